package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/pulse/internal/config"
	"go.uber.org/fx"
)

const keyHeartbeatUser = "pulse:heartbeat:user:%s"

// HeartbeatLimiter throttles heartbeats per user. A nil limiter allows
// everything.
type HeartbeatLimiter struct {
	bucket *TokenBucket
	client *redis.Client
}

// NewHeartbeatLimiter dials Redis from config and closes the client when
// the lifecycle stops.
func NewHeartbeatLimiter(lc fx.Lifecycle, cfg config.Config) (*HeartbeatLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	limiter, err := NewHeartbeatLimiterWithClient(client, limitCfg.HeartbeatRate, limitCfg.HeartbeatBurst)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	limiter.client = client
	if lc != nil {
		lc.Append(fx.StopHook(func() error {
			return client.Close()
		}))
	}
	return limiter, nil
}

func NewHeartbeatLimiterWithClient(client *redis.Client, rate float64, burst int) (*HeartbeatLimiter, error) {
	if client == nil {
		return nil, errors.New("rate limit redis client is required")
	}
	if rate <= 0 || burst <= 0 {
		return nil, errors.New("heartbeat rate limit must be positive")
	}
	bucket, err := NewTokenBucket(client, rate, burst)
	if err != nil {
		return nil, err
	}
	return &HeartbeatLimiter{bucket: bucket}, nil
}

func (l *HeartbeatLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *HeartbeatLimiter) AllowUser(ctx context.Context, userID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Take(ctx, fmt.Sprintf(keyHeartbeatUser, strings.TrimSpace(userID)))
}
