package test

import (
	"testing"
	"time"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/scope"
)

func TestDefaultConfigPresetValidates(t *testing.T) {
	cfg := goGrant.DefaultConfig()

	if cfg.Tokens.AccessTTL != time.Hour {
		t.Fatalf("expected 1h access ttl, got %v", cfg.Tokens.AccessTTL)
	}
	if cfg.Tokens.DefaultScope != scope.Default {
		t.Fatalf("expected default scope %q, got %q", scope.Default, cfg.Tokens.DefaultScope)
	}
	if len(cfg.PasswordReset.Secret) != 32 {
		t.Fatalf("expected generated 32 byte reset secret, got %d bytes", len(cfg.PasswordReset.Secret))
	}
	if !cfg.PasswordReset.RevokeTokens {
		t.Fatal("expected password reset to revoke tokens")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected preset to validate, got %v", err)
	}
}

func TestDefaultConfigSecretsDiffer(t *testing.T) {
	a := goGrant.DefaultConfig()
	b := goGrant.DefaultConfig()
	if string(a.PasswordReset.Secret) == string(b.PasswordReset.Secret) {
		t.Fatal("expected each preset to carry its own reset secret")
	}
}

func TestHighSecurityConfigPresetValidates(t *testing.T) {
	cfg := goGrant.HighSecurityConfig()

	if !cfg.Security.ProductionMode {
		t.Fatal("expected production mode")
	}
	if cfg.Tokens.AccessTTL != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %v", cfg.Tokens.AccessTTL)
	}
	if !cfg.Tokens.RevokeSupersededAccess {
		t.Fatal("expected superseded access tokens to be revoked")
	}
	if cfg.Password.MinLength < 12 {
		t.Fatalf("expected min password length >= 12, got %d", cfg.Password.MinLength)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected preset to validate, got %v", err)
	}
	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("expected no lint warnings, got %v", ws.Codes())
	}
}
