package fabric

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Message is one frame received from the broker.
type Message struct {
	Channel string
	Payload []byte
}

// Bus is the narrow broker surface the federated fabric needs.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// PSubscribe returns once the broker has confirmed the subscription.
	// The returned channel is closed when ctx is done or the bus closes.
	PSubscribe(ctx context.Context, pattern string) (<-chan Message, error)
	Close() error
}

// RedisBus implements Bus on Redis pub/sub.
type RedisBus struct {
	rdb *redis.Client
}

func NewRedisBus(rdb *redis.Client) *RedisBus { return &RedisBus{rdb: rdb} }

func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.rdb.Publish(ctx, channel, payload).Err()
}

func (b *RedisBus) PSubscribe(ctx context.Context, pattern string) (<-chan Message, error) {
	ps := b.rdb.PSubscribe(ctx, pattern)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("psubscribe %s: %w", pattern, err)
	}

	out := make(chan Message, 256)
	go func() {
		defer close(out)
		defer ps.Close()

		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok { // Redis connection closed.
					return
				}
				select {
				case out <- Message{Channel: m.Channel, Payload: []byte(m.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *RedisBus) Close() error { return b.rdb.Close() }
