// Package relay dispatches join, signal, message and disconnect events to the
// presence table and to the broadcast fabric.
package relay

import (
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"meetingrelay/internal/fabric"
	"meetingrelay/internal/presence"
)

var (
	ErrEmptyRoom           = errors.New("room is required")
	ErrEmptyTarget         = errors.New("signal target is required")
	ErrUnknownConnection   = errors.New("unknown connection")
	ErrDuplicateConnection = errors.New("connection id already registered")
)

// Engine owns the sessions attached to this process. Every presence
// mutation and the broadcast it triggers happen under mu, so members of a
// room observe presence updates in mutation order.
type Engine struct {
	mu    sync.Mutex
	table *presence.Table
	fab   fabric.Fabric

	smu      sync.RWMutex
	sessions map[string]*Session
}

// New wires the engine as the fabric's local sink.
func New(table *presence.Table, fab fabric.Fabric) *Engine {
	e := &Engine{
		table:    table,
		fab:      fab,
		sessions: make(map[string]*Session),
	}
	fab.Attach(e)
	return e
}

func (e *Engine) Mode() fabric.Mode { return e.fab.Mode() }

// Counters reports this instance's view of a room.
func (e *Engine) Counters(roomID string) presence.Counters { return e.table.Counters(roomID) }

// Rooms lists rooms with at least one local connection.
func (e *Engine) Rooms() []string { return e.table.Rooms() }

// Connect registers a new connection and tells the client its id.
func (e *Engine) Connect(id string, out Outbox) error {
	frame, err := encode(EventConnected, connectedBody{ID: id})
	if err != nil {
		return err
	}

	e.smu.Lock()
	if _, ok := e.sessions[id]; ok {
		e.smu.Unlock()
		return ErrDuplicateConnection
	}
	e.sessions[id] = &Session{id: id, out: out}
	e.smu.Unlock()

	out.Send(frame)
	return nil
}

func (e *Engine) session(id string) *Session {
	e.smu.RLock()
	defer e.smu.RUnlock()
	return e.sessions[id]
}

// Join puts the connection in roomID and broadcasts the room's counters to
// every member, the joiner included. A repeated join still broadcasts.
func (e *Engine) Join(connID, roomID, account string) error {
	if roomID == "" {
		return ErrEmptyRoom
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session(connID)
	if s == nil || s.closed {
		return ErrUnknownConnection
	}

	if s.joined() && s.room != roomID {
		prev, _ := s.clear()
		if c, ok := e.table.Leave(prev, connID); ok {
			e.fab.PublishRoom(prev, presenceFrame(c))
		}
	}

	c := e.table.Join(roomID, connID, account)
	s.room, s.account = roomID, account
	e.fab.PublishRoom(roomID, presenceFrame(c))

	zap.L().Debug("relay.join",
		zap.String("conn", connID),
		zap.String("room", roomID),
		zap.Int("connections", c.Connections),
		zap.Int("accounts", c.Accounts),
	)
	return nil
}

// Signal relays data to a single connection, tagged with the sender. An
// unreachable target is not an error.
func (e *Engine) Signal(fromID, toID string, data json.RawMessage) error {
	if toID == "" {
		return ErrEmptyTarget
	}
	if s := e.session(fromID); s == nil {
		return ErrUnknownConnection
	}
	frame, err := signalFrame(fromID, data)
	if err != nil {
		return err
	}
	e.fab.PublishConn(toID, frame)
	return nil
}

// Message broadcasts payload verbatim to every member of the room it names,
// the sender included. Sender membership is not required.
func (e *Engine) Message(fromID string, payload json.RawMessage) error {
	var mr messageRoom
	if err := json.Unmarshal(payload, &mr); err != nil {
		return err
	}
	if mr.Room == "" {
		return ErrEmptyRoom
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if s := e.session(fromID); s == nil || s.closed {
		return ErrUnknownConnection
	}
	frame, err := encodeRaw(EventMessage, payload)
	if err != nil {
		return err
	}
	e.fab.PublishRoom(mr.Room, frame)
	return nil
}

// Disconnect purges every trace of the connection and broadcasts the new
// counters to whoever remains in its room. Safe to call more than once.
func (e *Engine) Disconnect(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.smu.Lock()
	s, ok := e.sessions[connID]
	delete(e.sessions, connID)
	e.smu.Unlock()
	if !ok || s.closed {
		return
	}
	s.closed = true

	roomID, _ := s.clear()
	if roomID == "" {
		return
	}
	if c, ok := e.table.Leave(roomID, connID); ok {
		e.fab.PublishRoom(roomID, presenceFrame(c))
	} else {
		zap.L().Debug("relay.room_emptied", zap.String("room", roomID))
	}
}

// DeliverRoom implements fabric.Sink.
func (e *Engine) DeliverRoom(roomID string, frame []byte) {
	for _, id := range e.table.Members(roomID) {
		if s := e.session(id); s != nil {
			e.send(s, frame)
		}
	}
}

// DeliverConn implements fabric.Sink.
func (e *Engine) DeliverConn(connID string, frame []byte) {
	if s := e.session(connID); s != nil {
		e.send(s, frame)
	}
}

func (e *Engine) send(s *Session, frame []byte) {
	if !s.out.Send(frame) {
		zap.L().Debug("relay.send_dropped", zap.String("conn", s.id))
	}
}
