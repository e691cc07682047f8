package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps its counters in Redis so several instances share them.
type RedisLimiter struct {
	client   *redis.Client
	policies map[string]Policy
	cooldown time.Duration
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		policies: DefaultPolicies,
		cooldown: DefaultCooldown,
	}
}

func ipKey(purpose, ip string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, ip)
}

func cooldownKey(email string) string {
	return fmt.Sprintf("cooldown:email:%s", strings.ToLower(email))
}

func (l *RedisLimiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, ipKey(purpose, ip)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	return count >= policyFor(l.policies, purpose).Limit, nil
}

func (l *RedisLimiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(purpose, ip)

	// The window starts with the first request and is not extended by later ones.
	pipe := l.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, policyFor(l.policies, purpose).Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record rate limit request: %w", err)
	}
	return nil
}

func (l *RedisLimiter) CheckEmailCooldown(ctx context.Context, email string) (bool, error) {
	exists, err := l.client.Exists(ctx, cooldownKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}
	return exists > 0, nil
}

func (l *RedisLimiter) SetEmailCooldown(ctx context.Context, email string) error {
	if err := l.client.SetNX(ctx, cooldownKey(email), "1", l.cooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return nil
}
