// Package fabrictest provides an in-memory fabric.Bus shared by several
// simulated server instances.
package fabrictest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"meetingrelay/internal/fabric"
)

var ErrClosed = errors.New("bus closed")

type subscriber struct {
	prefix string
	ch     chan fabric.Message
}

// Broker is the shared medium; every Bus it hands out sees the others'
// publications.
type Broker struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewBroker() *Broker { return &Broker{subs: make(map[*subscriber]struct{})} }

// Bus returns a new client of the broker.
func (b *Broker) Bus() *Bus { return &Bus{broker: b} }

func (b *Broker) publish(channel string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if strings.HasPrefix(channel, s.prefix) {
			s.ch <- fabric.Message{Channel: channel, Payload: append([]byte(nil), payload...)}
		}
	}
}

// Bus implements fabric.Bus. Patterns support a single trailing '*'.
type Bus struct {
	broker *Broker

	mu     sync.Mutex
	closed bool
	mine   []*subscriber

	// FailSubscribe makes PSubscribe return this error.
	FailSubscribe error
	published     int
}

// Published counts successful Publish calls.
func (b *Bus) Published() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published
}

func (b *Bus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.published++
	b.mu.Unlock()

	b.broker.publish(channel, payload)
	return nil
}

func (b *Bus) PSubscribe(ctx context.Context, pattern string) (<-chan fabric.Message, error) {
	if b.FailSubscribe != nil {
		return nil, b.FailSubscribe
	}
	s := &subscriber{prefix: strings.TrimSuffix(pattern, "*"), ch: make(chan fabric.Message, 1024)}

	b.broker.mu.Lock()
	b.broker.subs[s] = struct{}{}
	b.broker.mu.Unlock()

	b.mu.Lock()
	b.mine = append(b.mine, s)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.unsubscribe(s)
	}()
	return s.ch, nil
}

func (b *Bus) unsubscribe(s *subscriber) {
	b.broker.mu.Lock()
	defer b.broker.mu.Unlock()
	if _, ok := b.broker.subs[s]; ok {
		delete(b.broker.subs, s)
		close(s.ch)
	}
}

func (b *Bus) Close() error {
	b.mu.Lock()
	b.closed = true
	subs := b.mine
	b.mine = nil
	b.mu.Unlock()

	for _, s := range subs {
		b.unsubscribe(s)
	}
	return nil
}
