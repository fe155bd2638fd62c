package redis_client

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// returns a new Redis client for a redis:// or rediss:// URL; ctx bounds the
// initial ping.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	maxPool := runtime.NumCPU() * 8
	if maxPool > 512 {
		maxPool = 512
	}
	opts.PoolSize = maxPool

	rc := redis.NewClient(opts)

	_, err = rc.Ping(ctx).Result()
	if err != nil {
		_ = rc.Close()
		err = errors.New("Redis connection failed: " + err.Error())
		zap.L().Error("redis_connect", zap.Error(err))
		return nil, err
	}
	return rc, nil
}
