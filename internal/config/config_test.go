package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.False(t, cfg.Federated())
	assert.Equal(t, "meet", cfg.FabricChannelPrefix)
	assert.Equal(t, 5*time.Second, cfg.FabricConnectTimeout)
	assert.Equal(t, uint16(8085), cfg.HttpServerPort)
	assert.Equal(t, int64(65536), cfg.WsReadLimit)
	assert.Less(t, cfg.WsPingPeriod, cfg.WsPongWait)
}

func TestLoadConfigFederated(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("FABRIC_CONNECT_TIMEOUT", "750ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Federated())
	assert.Equal(t, 750*time.Millisecond, cfg.FabricConnectTimeout)
}

func TestLoadConfigRejectsInvalidPort(t *testing.T) {
	t.Setenv("HTTP_SERVER_PORT", "80")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsPingAfterPong(t *testing.T) {
	t.Setenv("WS_PING_PERIOD", "30s")
	t.Setenv("WS_PONG_WAIT", "10s")

	_, err := LoadConfig()
	require.ErrorIs(t, err, ErrPingPeriod)
}
