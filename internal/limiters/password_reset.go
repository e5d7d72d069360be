package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrResetRateLimited      = errors.New("reset rate limited")
	ErrResetRedisUnavailable = errors.New("reset redis unavailable")
)

type PasswordResetConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	Window                   time.Duration
	MaxAttempts              int
}

// PasswordResetLimiter bounds how often reset mails can be requested and
// how often confirmations can be tried, per email/uid and per client IP.
type PasswordResetLimiter struct {
	redis  redis.UniversalClient
	config PasswordResetConfig
}

func NewPasswordResetLimiter(redisClient redis.UniversalClient, cfg PasswordResetConfig) *PasswordResetLimiter {
	return &PasswordResetLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *PasswordResetLimiter) CheckRequest(ctx context.Context, email, ip string) error {
	if l == nil {
		return nil
	}
	if l.config.EnableIdentifierThrottle {
		if err := l.enforceFixedWindow(ctx, requestIdentifierKey(email)); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, requestIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *PasswordResetLimiter) CheckConfirm(ctx context.Context, uid, ip string) error {
	if l == nil {
		return nil
	}
	if l.config.EnableIdentifierThrottle {
		if err := l.enforceFixedWindow(ctx, confirmIdentifierKey(uid)); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, confirmIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

func (l *PasswordResetLimiter) Window() time.Duration {
	if l == nil {
		return 0
	}
	return l.config.Window
}

func (l *PasswordResetLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
		}
	}

	if count > int64(l.config.MaxAttempts) {
		return ErrResetRateLimited
	}

	return nil
}

func requestIdentifierKey(email string) string {
	return "gg:rl:prr:" + strings.ToLower(strings.TrimSpace(email))
}

func requestIPKey(ip string) string {
	return "gg:rl:prrip:" + ip
}

func confirmIdentifierKey(uid string) string {
	return "gg:rl:prc:" + uid
}

func confirmIPKey(ip string) string {
	return "gg:rl:prcip:" + ip
}
