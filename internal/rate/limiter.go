package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds login throttle parameters.
type Config struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// Limiter counts failed logins per identifier and, optionally, per client IP
// using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited once the identifier or IP has used up
// its failure budget for the current window.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.checkCounter(ctx, loginUserKey(identifier), l.config.MaxLoginAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, loginIPKey(ip), l.config.MaxLoginAttempts); err != nil {
			return err
		}
	}

	return nil
}

// IncrementLogin records a failed login attempt.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	if l == nil {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, loginUserKey(identifier), l.config.LoginCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, loginIPKey(ip), l.config.LoginCooldownDuration)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}

	return nil
}

// ResetLogin clears the identifier counter after a successful login. IP
// counters only expire.
func (l *Limiter) ResetLogin(ctx context.Context, identifier string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, loginUserKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginAttempts returns the current failure count for an identifier.
func (l *Limiter) LoginAttempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, loginUserKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set on the first hit only.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

// Identifiers are case-folded so "Alice@x" and "alice@x" share a budget.
func loginUserKey(identifier string) string {
	return "gg:rl:login:" + strings.ToLower(strings.TrimSpace(identifier))
}

func loginIPKey(ip string) string {
	return "gg:rl:loginip:" + ip
}
