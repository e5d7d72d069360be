package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestResetLimiter(t *testing.T, cfg PasswordResetConfig) (*miniredis.Miniredis, *PasswordResetLimiter) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, NewPasswordResetLimiter(rdb, cfg)
}

func TestResetRequestWindow(t *testing.T) {
	mr, l := newTestResetLimiter(t, PasswordResetConfig{
		EnableIdentifierThrottle: true,
		Window:                   15 * time.Minute,
		MaxAttempts:              2,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.CheckRequest(ctx, "a@example.com", ""); err != nil {
			t.Fatalf("request %d limited: %v", i+1, err)
		}
	}
	if err := l.CheckRequest(ctx, "A@example.com", ""); !errors.Is(err, ErrResetRateLimited) {
		t.Fatalf("expected ErrResetRateLimited, got %v", err)
	}
	if err := l.CheckConfirm(ctx, "dWlk", ""); err != nil {
		t.Fatalf("confirm budget is separate from request budget: %v", err)
	}

	mr.FastForward(16 * time.Minute)
	if err := l.CheckRequest(ctx, "a@example.com", ""); err != nil {
		t.Fatalf("window should have expired: %v", err)
	}
}

func TestResetLimiterDisabledIdentifierThrottle(t *testing.T) {
	_, l := newTestResetLimiter(t, PasswordResetConfig{Window: time.Minute, MaxAttempts: 1})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.CheckRequest(ctx, "a@example.com", ""); err != nil {
			t.Fatalf("throttle disabled but request %d limited: %v", i+1, err)
		}
	}
}

func TestResetLimiterIP(t *testing.T) {
	_, l := newTestResetLimiter(t, PasswordResetConfig{EnableIPThrottle: true, Window: time.Minute, MaxAttempts: 1})
	ctx := context.Background()

	if err := l.CheckConfirm(ctx, "u1", "10.0.0.1"); err != nil {
		t.Fatalf("first confirm limited: %v", err)
	}
	if err := l.CheckConfirm(ctx, "u2", "10.0.0.1"); !errors.Is(err, ErrResetRateLimited) {
		t.Fatalf("expected IP budget exhausted, got %v", err)
	}
}
