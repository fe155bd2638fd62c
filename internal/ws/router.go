package ws

import (
	"encoding/json"
	"errors"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"

	"meetingrelay/internal/relay"
)

var ErrUnknownEvent = errors.New("unknown_event")

var validate = validator.New()

// ConnContext is what a handler knows about the sending connection.
type ConnContext struct {
	ConnID string
	// Account resolved from the upgrade request, if any.
	Account string
}

// internal (untyped) handler signature.
type rawHandler func(c *ConnContext, body json.RawMessage) error

// Router keeps a map[event]handler, à‑la gin.Engine.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[string]rawHandler)} }

// Register binds an event to a strongly‑typed handler. Struct bodies are
// checked against their `validate` tags before the handler runs.
func Register[Req any](
	r *Router,
	event string,
	h func(c *ConnContext, req Req) error,
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = func(c *ConnContext, body json.RawMessage) error {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return err
			}
		}
		if reflect.Indirect(reflect.ValueOf(&req)).Kind() == reflect.Struct {
			if err := validate.Struct(req); err != nil {
				return err
			}
		}
		return h(c, req)
	}
}

// dispatch is called by the server’s reader loop.
func (r *Router) dispatch(c *ConnContext, env relay.Envelope) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownEvent
	}
	return h(c, env.Body)
}
