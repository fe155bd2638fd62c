package relay

import (
	"encoding/json"
	"errors"

	"meetingrelay/internal/presence"
)

// Event names on the wire, both directions.
const (
	EventConnected = "connected"
	EventJoin      = "join"
	EventSignal    = "signal"
	EventMessage   = "message"
	EventPresence  = "presence-update"
)

// Envelope wraps every frame.
type Envelope struct {
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}

type connectedBody struct {
	ID string `json:"id"`
}

type messageRoom struct {
	Room string `json:"room"`
}

var errInvalidBody = errors.New("body is not valid JSON")

func encode(event string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return encodeRaw(event, raw)
}

// encodeRaw splices body into the envelope as-is, so clients receive the
// exact bytes that were sent.
func encodeRaw(event string, body json.RawMessage) ([]byte, error) {
	if len(body) == 0 {
		return json.Marshal(Envelope{Event: event})
	}
	if !json.Valid(body) {
		return nil, errInvalidBody
	}
	name, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(name)+20)
	out = append(out, `{"event":`...)
	out = append(out, name...)
	out = append(out, `,"body":`...)
	out = append(out, body...)
	return append(out, '}'), nil
}

// signalFrame builds {"from":..,"data":..}; data is null when absent.
func signalFrame(from string, data json.RawMessage) ([]byte, error) {
	if len(data) == 0 {
		data = json.RawMessage("null")
	} else if !json.Valid(data) {
		return nil, errInvalidBody
	}
	id, err := json.Marshal(from)
	if err != nil {
		return nil, err
	}
	body := make([]byte, 0, len(id)+len(data)+18)
	body = append(body, `{"from":`...)
	body = append(body, id...)
	body = append(body, `,"data":`...)
	body = append(body, data...)
	return encodeRaw(EventSignal, append(body, '}'))
}

func presenceFrame(c presence.Counters) []byte {
	frame, _ := encode(EventPresence, c) // plain ints, cannot fail
	return frame
}
