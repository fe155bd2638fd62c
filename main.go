package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"meetingrelay/internal/bootstrap"
	"meetingrelay/internal/config"
	"meetingrelay/internal/http/http_server"
	"meetingrelay/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if !cfg.LogDevelopment {
		if prod, err := zap.NewProduction(); err == nil {
			Log = prod
			zap.ReplaceGlobals(Log)
		}
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Relay engine + broadcast fabric (Redis when REDIS_URL is set)
	rt := bootstrap.Init(ctx, cfg)
	defer rt.Close()
	Log.Info("Relay ready", zap.String("fabric", string(rt.Mode())))

	// 4. Initialize the WS server
	wsSrv := ws.NewWsServer(rt.Engine, ws.Options{
		ReadLimit:  cfg.WsReadLimit,
		SendBuffer: cfg.WsSendBuffer,
		PingPeriod: cfg.WsPingPeriod,
		PongWait:   cfg.WsPongWait,
	})

	// 5. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, rt.Engine)
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			Log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	case <-ctx.Done():
		Log.Info("Shutting down")
		_ = httpServer.Dispose()
	}
}
