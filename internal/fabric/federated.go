package fabric

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

type outbound struct {
	channel string
	payload []byte
}

// Federated publishes every frame to the broker and re-emits whatever the
// broker delivers to locally attached connections, including this
// instance's own publications. Presence counters carried in those frames
// remain per-instance: no cross-instance aggregation takes place.
type Federated struct {
	bus    Bus
	prefix string

	queue  chan outbound
	inbox  <-chan Message
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewFederated subscribes to "<prefix>:*" on bus. subscribeCtx bounds the
// subscription handshake only.
func NewFederated(subscribeCtx context.Context, bus Bus, prefix string, queueSize int) (*Federated, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// The subscription must outlive subscribeCtx, so only the handshake is bounded by it.
	type result struct {
		ch  <-chan Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		ch, err := bus.PSubscribe(ctx, prefix+":*")
		done <- result{ch, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-subscribeCtx.Done():
		cancel()
		return nil, subscribeCtx.Err()
	}
	if res.err != nil {
		cancel()
		return nil, res.err
	}

	f := &Federated{
		bus:    bus,
		prefix: prefix,
		queue:  make(chan outbound, queueSize),
		inbox:  res.ch,
		ctx:    ctx,
		cancel: cancel,
	}
	f.wg.Add(1)
	go f.publishLoop()
	return f, nil
}

func (f *Federated) roomChannel(roomID string) string { return f.prefix + ":room:" + roomID }
func (f *Federated) connChannel(connID string) string { return f.prefix + ":conn:" + connID }

func (f *Federated) Attach(sink Sink) {
	f.once.Do(func() {
		f.wg.Add(1)
		go f.receiveLoop(sink)
	})
}

func (f *Federated) PublishRoom(roomID string, frame []byte) {
	f.enqueue(f.roomChannel(roomID), frame)
}

func (f *Federated) PublishConn(connID string, frame []byte) {
	f.enqueue(f.connChannel(connID), frame)
}

func (f *Federated) enqueue(channel string, frame []byte) {
	select {
	case <-f.ctx.Done():
		return
	default:
	}
	select {
	case f.queue <- outbound{channel: channel, payload: frame}:
	default:
		zap.L().Warn("fabric.publish_queue_full", zap.String("channel", channel))
	}
}

// publishLoop is the single writer to the broker, so frames leave this
// instance in the order they were enqueued.
func (f *Federated) publishLoop() {
	defer f.wg.Done()
	for {
		select {
		case <-f.ctx.Done():
			return
		case o := <-f.queue:
			ctx, cancel := context.WithTimeout(f.ctx, publishTimeout)
			err := f.bus.Publish(ctx, o.channel, o.payload)
			cancel()
			if err != nil {
				zap.L().Warn("fabric.publish_failed", zap.String("channel", o.channel), zap.Error(err))
			}
		}
	}
}

func (f *Federated) receiveLoop(sink Sink) {
	defer f.wg.Done()
	roomPrefix := f.prefix + ":room:"
	connPrefix := f.prefix + ":conn:"
	for {
		select {
		case <-f.ctx.Done():
			return
		case m, ok := <-f.inbox:
			if !ok {
				zap.L().Warn("fabric.subscription_closed")
				return
			}
			if id, ok := strings.CutPrefix(m.Channel, roomPrefix); ok && id != "" {
				sink.DeliverRoom(id, m.Payload)
			} else if id, ok := strings.CutPrefix(m.Channel, connPrefix); ok && id != "" {
				sink.DeliverConn(id, m.Payload)
			}
		}
	}
}

func (f *Federated) Mode() Mode { return ModeFederated }

// Close stops both loops and closes the bus. Queued frames are discarded.
func (f *Federated) Close() error {
	f.cancel()
	f.wg.Wait()
	return f.bus.Close()
}
