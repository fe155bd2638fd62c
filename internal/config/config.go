package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	// Empty means single-instance local fan-out.
	RedisURL             string        `env:"REDIS_URL"`
	FabricChannelPrefix  string        `env:"FABRIC_CHANNEL_PREFIX"  envDefault:"meet" validate:"required"`
	FabricConnectTimeout time.Duration `env:"FABRIC_CONNECT_TIMEOUT" envDefault:"5s"   validate:"gt=0"`
	FabricPublishQueue   int           `env:"FABRIC_PUBLISH_QUEUE"   envDefault:"1024" validate:"min=1"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`

	WsReadLimit  int64         `env:"WS_READ_LIMIT"  envDefault:"65536" validate:"min=512"`
	WsSendBuffer int           `env:"WS_SEND_BUFFER" envDefault:"64"    validate:"min=1"`
	WsPingPeriod time.Duration `env:"WS_PING_PERIOD" envDefault:"25s"   validate:"gt=0"`
	WsPongWait   time.Duration `env:"WS_PONG_WAIT"   envDefault:"60s"   validate:"gt=0"`

	LogDevelopment bool `env:"LOG_DEVELOPMENT" envDefault:"true"`
}

var ErrPingPeriod = errors.New("WS_PING_PERIOD must be shorter than WS_PONG_WAIT")

// Federated reports whether a broadcast fabric connection string is configured.
func (c *Config) Federated() bool { return c.RedisURL != "" }

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	if cfg.WsPingPeriod >= cfg.WsPongWait {
		zap.L().Error("config_validation_failed", zap.Error(ErrPingPeriod))
		return nil, ErrPingPeriod
	}
	return cfg, nil
}
