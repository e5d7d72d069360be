package goGrant

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *captureSink) next(t *testing.T) AuditEvent {
	t.Helper()
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event to be received")
		return AuditEvent{}
	}
}

func auditConfig() Config {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32
	cfg.Audit.DropIfFull = false
	return cfg
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = false

	sink := &countingSink{}
	env := newTestEnv(t, cfg, withBuilder(func(b *Builder) { b.WithAuditSink(sink) }))

	_, _ = env.engine.Login(WithClientIP(context.Background(), "203.0.113.1"), "alice", "wrong-password")
	env.engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditLoginFailureFields(t *testing.T) {
	sink := newCaptureSink(8)
	env := newTestEnv(t, auditConfig(), withBuilder(func(b *Builder) { b.WithAuditSink(sink) }))

	ctx := WithRequestID(WithClientIP(context.Background(), "198.51.100.33"), "req-1")
	_, _ = env.engine.Login(ctx, "bob", testPassword)

	ev := sink.next(t)
	if ev.EventType != auditEventLoginFailure || ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.IP != "198.51.100.33" || ev.RequestID != "req-1" {
		t.Fatalf("request context not copied: %+v", ev)
	}
	if ev.UserID != "u2" {
		t.Fatalf("expected user u2, got %q", ev.UserID)
	}
	if ev.Error != string(auditErrAccountInactive) {
		t.Fatalf("expected internal cause code, got %q", ev.Error)
	}
	if !ev.Timestamp.Equal(env.clock.Now()) {
		t.Fatalf("event time must come from the engine clock, got %v", ev.Timestamp)
	}
}

func TestAuditLoginAndRefreshSuccess(t *testing.T) {
	sink := newCaptureSink(8)
	env := newTestEnv(t, auditConfig(), withBuilder(func(b *Builder) { b.WithAuditSink(sink) }))

	login := env.login(t)
	ev := sink.next(t)
	if ev.EventType != auditEventLoginSuccess || !ev.Success || ev.ClientID == "" {
		t.Fatalf("unexpected login event %+v", ev)
	}
	if ev.Metadata["scope"] != "read write" {
		t.Fatalf("expected scope metadata, got %v", ev.Metadata)
	}

	if _, err := env.engine.Refresh(context.Background(), login.Tokens.RefreshToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	ev = sink.next(t)
	if ev.EventType != auditEventRefreshSuccess || ev.UserID != "u1" {
		t.Fatalf("unexpected refresh event %+v", ev)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	sink := newCaptureSink(32)
	env := newTestEnv(t, auditConfig(), withBuilder(func(b *Builder) { b.WithAuditSink(sink) }))
	ctx := context.Background()

	login := env.login(t)
	next, err := env.engine.Refresh(ctx, login.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	_, _ = env.engine.Refresh(ctx, login.Tokens.RefreshToken)
	if err := env.engine.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	env.engine.Close()

	needles := []string{
		testPassword,
		login.Tokens.AccessToken,
		login.Tokens.RefreshToken,
		next.AccessToken,
		next.RefreshToken,
		env.directory.get("u1").PasswordHash,
	}

	close(sink.events)
	count := 0
	for ev := range sink.events {
		count++
		for _, needle := range needles {
			if strings.Contains(ev.Error, needle) {
				t.Fatalf("sensitive value leaked in audit error field: %q", needle)
			}
			for k, v := range ev.Metadata {
				if strings.Contains(k, needle) || strings.Contains(v, needle) {
					t.Fatalf("sensitive value leaked in audit metadata: %q", needle)
				}
			}
		}
	}
	if count < 4 {
		t.Fatalf("expected at least 4 audit events, got %d", count)
	}
}

func TestAuditErrorCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{loginError(ErrUserNotFound), auditErrUserNotFound},
		{loginError(ErrInvalidCredentials), auditErrInvalidCredentials},
		{ErrRefreshTokenExpired, auditErrTokenExpired},
		{ErrInvalidResetRequest, auditErrInvalidToken},
		{directoryError(context.DeadlineExceeded), auditErrUnavailable},
		{context.Canceled, auditErrInternal},
	}
	for _, tt := range tests {
		if got := auditErrorCode(tt.err); got != tt.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
