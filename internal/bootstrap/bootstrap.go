// Package bootstrap builds the relay once per process and picks its
// broadcast fabric.
package bootstrap

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"meetingrelay/internal/config"
	"meetingrelay/internal/fabric"
	"meetingrelay/internal/presence"
	"meetingrelay/internal/redis/redis_client"
	"meetingrelay/internal/relay"
)

// Runtime is the wired relay handed to the transport layer.
type Runtime struct {
	Engine *relay.Engine
	Fabric fabric.Fabric
}

var (
	once    sync.Once
	current *Runtime
)

// dialBus opens the broker connection behind the federated fabric.
var dialBus = func(ctx context.Context, cfg *config.Config) (fabric.Bus, error) {
	rdb, err := redis_client.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return fabric.NewRedisBus(rdb), nil
}

// Init returns the process-wide runtime, building it on the first call.
func Init(ctx context.Context, cfg *config.Config) *Runtime {
	once.Do(func() { current = New(ctx, cfg) })
	return current
}

// New builds an independent runtime. A federated fabric that cannot be
// established within FabricConnectTimeout degrades to local fan-out.
func New(ctx context.Context, cfg *config.Config) *Runtime {
	fab := selectFabric(ctx, cfg)
	return &Runtime{
		Engine: relay.New(presence.NewTable(), fab),
		Fabric: fab,
	}
}

func selectFabric(ctx context.Context, cfg *config.Config) fabric.Fabric {
	if !cfg.Federated() {
		zap.L().Info("fabric.local")
		return fabric.NewLocal()
	}

	f, err := connectFederated(ctx, cfg)
	if err != nil {
		zap.L().Warn("fabric.federated_unavailable_falling_back_to_local", zap.Error(err))
		return fabric.NewLocal()
	}
	zap.L().Info("fabric.federated", zap.String("prefix", cfg.FabricChannelPrefix))
	return f
}

func connectFederated(ctx context.Context, cfg *config.Config) (*fabric.Federated, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.FabricConnectTimeout)
	defer cancel()

	bus, err := dialBus(ctx, cfg)
	if err != nil {
		return nil, err
	}
	f, err := fabric.NewFederated(ctx, bus, cfg.FabricChannelPrefix, cfg.FabricPublishQueue)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	return f, nil
}

func (r *Runtime) Mode() fabric.Mode { return r.Fabric.Mode() }

// Close stops the fabric and releases the broker connection.
func (r *Runtime) Close() error { return r.Fabric.Close() }
