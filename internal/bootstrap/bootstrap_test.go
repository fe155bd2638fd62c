package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetingrelay/internal/config"
	"meetingrelay/internal/fabric"
	"meetingrelay/internal/fabric/fabrictest"
)

func testConfig(redisURL string) *config.Config {
	return &config.Config{
		RedisURL:             redisURL,
		FabricChannelPrefix:  "meet",
		FabricConnectTimeout: 200 * time.Millisecond,
		FabricPublishQueue:   16,
	}
}

func withDialBus(t *testing.T, fn func(context.Context, *config.Config) (fabric.Bus, error)) {
	t.Helper()
	prev := dialBus
	dialBus = fn
	t.Cleanup(func() { dialBus = prev })
}

type nopOutbox struct{}

func (nopOutbox) Send([]byte) bool { return true }

func TestNewLocalWithoutRedisURL(t *testing.T) {
	withDialBus(t, func(context.Context, *config.Config) (fabric.Bus, error) {
		t.Fatal("dialed without a connection string")
		return nil, nil
	})

	rt := New(context.Background(), testConfig(""))
	assert.Equal(t, fabric.ModeLocal, rt.Mode())
	assert.NoError(t, rt.Close())
}

func TestNewFederated(t *testing.T) {
	broker := fabrictest.NewBroker()
	withDialBus(t, func(context.Context, *config.Config) (fabric.Bus, error) {
		return broker.Bus(), nil
	})

	rt := New(context.Background(), testConfig("redis://fabric:6379"))
	defer rt.Close()
	assert.Equal(t, fabric.ModeFederated, rt.Mode())

	require.NoError(t, rt.Engine.Connect("A", nopOutbox{}))
	require.NoError(t, rt.Engine.Message("A", json.RawMessage(`{"room":"R1"}`)))
}

func TestFallsBackToLocalOnDialFailure(t *testing.T) {
	withDialBus(t, func(context.Context, *config.Config) (fabric.Bus, error) {
		return nil, errors.New("connection refused")
	})

	rt := New(context.Background(), testConfig("redis://nowhere:6379"))
	assert.Equal(t, fabric.ModeLocal, rt.Mode())
}

func TestFallsBackToLocalOnSubscribeFailure(t *testing.T) {
	withDialBus(t, func(context.Context, *config.Config) (fabric.Bus, error) {
		bus := fabrictest.NewBroker().Bus()
		bus.FailSubscribe = errors.New("NOPERM")
		return bus, nil
	})

	rt := New(context.Background(), testConfig("redis://fabric:6379"))
	assert.Equal(t, fabric.ModeLocal, rt.Mode())
}

func TestFallbackIsBounded(t *testing.T) {
	withDialBus(t, func(ctx context.Context, _ *config.Config) (fabric.Bus, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	start := time.Now()
	rt := New(context.Background(), testConfig("redis://blackhole:6379"))
	assert.Equal(t, fabric.ModeLocal, rt.Mode())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDialBusRejectsBadURL(t *testing.T) {
	_, err := dialBus(context.Background(), testConfig("::not-a-url"))
	require.Error(t, err)
}

func TestInitRunsOnce(t *testing.T) {
	first := Init(context.Background(), testConfig(""))
	second := Init(context.Background(), testConfig("redis://ignored:6379"))
	assert.Same(t, first, second)
	assert.Equal(t, fabric.ModeLocal, second.Mode())
}
