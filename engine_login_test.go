package goGrant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goGrant/token"
	"golang.org/x/crypto/bcrypt"
)

func TestVerifyCredentialsByUsernameAndEmail(t *testing.T) {
	env := newTestEnv(t, testConfig())

	for _, identifier := range []string{"alice", "alice@example.com"} {
		u, err := env.engine.VerifyCredentials(context.Background(), identifier, testPassword)
		if err != nil {
			t.Fatalf("%s: expected success, got %v", identifier, err)
		}
		if u.ID != "u1" || u.Username != "alice" {
			t.Fatalf("%s: unexpected user %+v", identifier, u)
		}
		if u.PasswordHash != "" {
			t.Fatalf("%s: password hash must not leave the engine", identifier)
		}
	}
}

func TestVerifyCredentialsErrors(t *testing.T) {
	env := newTestEnv(t, testConfig())

	tests := []struct {
		name       string
		identifier string
		secret     string
		want       error
	}{
		{"wrong password", "alice", "wrong-password", ErrInvalidCredentials},
		{"empty secret", "alice", "", ErrInvalidCredentials},
		{"unknown user", "mallory", testPassword, ErrUserNotFound},
		{"unknown email", "mallory@example.com", testPassword, ErrUserNotFound},
		{"inactive", "bob", testPassword, ErrAccountInactive},
		{"inactive with wrong password", "bob", "wrong-password", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.VerifyCredentials(context.Background(), tt.identifier, tt.secret)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVerifyCredentialsDirectoryOutage(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.directory.fail = errors.New("connection refused")

	_, err := env.engine.VerifyCredentials(context.Background(), "alice", testPassword)
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
	if st := StatusOf(err); st.Code != 500 || st.Message != "Internal server error" {
		t.Fatalf("outage must surface as a generic 500, got %+v", st)
	}
}

func TestLoginIssuesOpaquePair(t *testing.T) {
	env := newTestEnv(t, testConfig())

	res := env.login(t)
	if res.User.ID != "u1" || res.User.Email != "alice@example.com" {
		t.Fatalf("unexpected user %+v", res.User)
	}

	pair := res.Tokens
	if len(pair.AccessToken) != 43 || len(pair.RefreshToken) != 43 {
		t.Fatalf("expected 43-char tokens, got %d and %d", len(pair.AccessToken), len(pair.RefreshToken))
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}
	if pair.TokenType != "Bearer" || pair.ExpiresIn != 3600 || pair.Scope != "read write" {
		t.Fatalf("unexpected pair metadata %+v", pair)
	}
	if !pair.ExpiresAt.Equal(env.clock.Now().Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", pair.ExpiresAt)
	}

	at, err := env.store.Access(context.Background(), token.Hash(pair.AccessToken))
	if err != nil {
		t.Fatalf("access token not stored: %v", err)
	}
	if at.UserID != "u1" || at.Scope != "read write" {
		t.Fatalf("unexpected stored token %+v", at)
	}
	if _, err := env.store.Access(context.Background(), pair.AccessToken); !errors.Is(err, token.ErrNotFound) {
		t.Fatal("plaintext token must not be a store key")
	}
}

func TestLoginReusesDefaultClient(t *testing.T) {
	env := newTestEnv(t, testConfig())

	first := env.login(t)
	second := env.login(t)

	a1, _ := env.store.Access(context.Background(), token.Hash(first.Tokens.AccessToken))
	a2, _ := env.store.Access(context.Background(), token.Hash(second.Tokens.AccessToken))
	if a1.ClientID == "" || a1.ClientID != a2.ClientID {
		t.Fatalf("expected one client, got %q and %q", a1.ClientID, a2.ClientID)
	}
}

func TestLoginHidesFailureCause(t *testing.T) {
	env := newTestEnv(t, testConfig())

	for _, tt := range []struct {
		identifier string
		cause      error
	}{
		{"mallory", ErrUserNotFound},
		{"bob", ErrAccountInactive},
	} {
		_, err := env.engine.Login(context.Background(), tt.identifier, testPassword)
		if !errors.Is(err, ErrInvalidCredentials) || !errors.Is(err, tt.cause) {
			t.Fatalf("%s: expected invalid credentials wrapping %v, got %v", tt.identifier, tt.cause, err)
		}
		if st := StatusOf(err); st.Code != 401 || st.Message != "Invalid credentials" {
			t.Fatalf("%s: unexpected status %+v", tt.identifier, st)
		}
	}
}

func TestFailedLoginStoresNoTokens(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	for _, tt := range []struct {
		name, identifier, password string
	}{
		{"unknown email", "a@x.com", testPassword},
		{"unknown username", "mallory", testPassword},
		{"wrong password", "alice@example.com", "not-the-password"},
		{"inactive account", "bob", testPassword},
	} {
		if _, err := env.engine.Login(ctx, tt.identifier, tt.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: expected invalid credentials, got %v", tt.name, err)
		}
		if access, refresh := env.store.Len(); access != 0 || refresh != 0 {
			t.Fatalf("%s: failed login stored %d access and %d refresh tokens", tt.name, access, refresh)
		}
	}

	env.login(t)
	if access, refresh := env.store.Len(); access != 1 || refresh != 1 {
		t.Fatalf("expected one pair after a good login, got %d/%d", access, refresh)
	}
}

func TestLoginScopeRequest(t *testing.T) {
	env := newTestEnv(t, testConfig())

	res, err := env.engine.LoginWithScope(context.Background(), "alice", testPassword, "read read")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Tokens.Scope != "read" {
		t.Fatalf("expected normalized scope, got %q", res.Tokens.Scope)
	}

	_, err = env.engine.LoginWithScope(context.Background(), "alice", testPassword, "read admin")
	if !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}

func TestLoginLeavesPriorTokensValid(t *testing.T) {
	env := newTestEnv(t, testConfig())

	first := env.login(t)
	env.login(t)

	if _, err := env.engine.Authorize(context.Background(), first.Tokens.AccessToken, "read"); err != nil {
		t.Fatalf("earlier token should stay valid: %v", err)
	}
}

func TestLoginThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	env := newTestEnv(t, cfg, withRedisThrottle(t))
	ctx := context.Background()

	for i := 0; i < cfg.Security.MaxLoginAttempts; i++ {
		_, err := env.engine.Login(ctx, "alice", "wrong-password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i+1, err)
		}
	}

	_, err := env.engine.Login(ctx, "alice", testPassword)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if StatusOf(err).Code != 429 {
		t.Fatalf("expected 429, got %d", StatusOf(err).Code)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricLoginRateLimited]; got != 1 {
		t.Fatalf("expected one rate limited login, got %d", got)
	}

	env.redis.FastForward(cfg.Security.LoginCooldownDuration + time.Second)
	if _, err := env.engine.Login(ctx, "alice", testPassword); err != nil {
		t.Fatalf("expected login after cooldown, got %v", err)
	}
}

func TestLoginSuccessClearsFailureCounter(t *testing.T) {
	cfg := testConfig()
	env := newTestEnv(t, cfg, withRedisThrottle(t))
	ctx := context.Background()

	for round := 0; round < 3; round++ {
		for i := 0; i < cfg.Security.MaxLoginAttempts-1; i++ {
			_, _ = env.engine.Login(ctx, "alice", "wrong-password")
		}
		if _, err := env.engine.Login(ctx, "alice", testPassword); err != nil {
			t.Fatalf("round %d: expected success, got %v", round, err)
		}
	}
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	env := newTestEnv(t, cfg)

	legacy, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := env.directory.get("u1")
	u.PasswordHash = string(legacy)
	env.directory.put(u)

	env.login(t)

	upgraded := env.directory.get("u1").PasswordHash
	if !strings.HasPrefix(upgraded, "$argon2id$") {
		t.Fatalf("expected argon2id hash after login, got %q", upgraded)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricPasswordHashUpgraded]; got != 1 {
		t.Fatalf("expected one upgrade, got %d", got)
	}

	env.login(t)
	if env.directory.sets != 1 {
		t.Fatalf("current hash must not be rewritten, got %d writes", env.directory.sets)
	}
}

func TestLoginUpgradeDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Password.UpgradeOnLogin = false
	env := newTestEnv(t, cfg)

	legacy, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := env.directory.get("u1")
	u.PasswordHash = string(legacy)
	env.directory.put(u)

	env.login(t)
	if env.directory.get("u1").PasswordHash != string(legacy) {
		t.Fatal("hash must be left alone when upgrades are off")
	}
}

func TestIssueTokens(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	pair, err := env.engine.IssueTokens(ctx, User{ID: "u1"}, "write")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if pair.Scope != "write" {
		t.Fatalf("unexpected scope %q", pair.Scope)
	}

	if _, err := env.engine.IssueTokens(ctx, User{}, ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for empty user, got %v", err)
	}
}

func TestEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), "alice", testPassword); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Refresh(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
