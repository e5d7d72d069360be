package goGrant

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goGrant/password"
	"github.com/MrEthical07/goGrant/scope"
)

// Config is the full engine configuration. It is copied by Builder.WithConfig
// and treated as immutable once an Engine is built.
type Config struct {
	Tokens        TokensConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	Security      SecurityConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Purge         PurgeConfig
}

/*
====================================
TOKENS CONFIG
====================================
*/

// TokensConfig controls access/refresh token issuance.
type TokensConfig struct {
	AccessTTL time.Duration
	// DefaultScope is granted when a login does not request a scope.
	DefaultScope string
	// AllowedScopes bounds what callers may request. Empty allows any scope.
	AllowedScopes []string
	// RevokeSupersededAccess deletes the old access token when its refresh
	// token is consumed. When false the old access token lives until it
	// expires.
	RevokeSupersededAccess bool
	// Retention keeps expired pairs around so a late refresh reports
	// ErrRefreshTokenExpired instead of ErrInvalidRefreshToken. Redis uses it
	// as the key TTL slack; the purger uses it as the cutoff.
	Retention  time.Duration
	ClientName string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig controls reset tickets and the reset request throttle.
type PasswordResetConfig struct {
	// Secret keys the ticket HMAC. At least 16 bytes.
	Secret []byte
	// URL is the page that receives uid and token as query parameters.
	URL string
	// Window is the ticket time-window size, TTL the longest a ticket can
	// live counted from the start of its window.
	Window       time.Duration
	TTL          time.Duration
	RevokeTokens bool

	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	MaxRequests              int
	RequestWindow            time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

type SecurityConfig struct {
	ProductionMode        bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// PurgeConfig drives Engine.StartPurger. A zero Interval disables it.
type PurgeConfig struct {
	Interval time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Tokens: TokensConfig{
			AccessTTL:              time.Hour,
			DefaultScope:           scope.Default,
			AllowedScopes:          []string{scope.Read, scope.Write},
			RevokeSupersededAccess: false,
			Retention:              24 * time.Hour,
			ClientName:             "Default",
		},
		Password: passwordDefaults(),
		PasswordReset: PasswordResetConfig{
			URL:                      "http://localhost:3000/reset-password",
			Window:                   5 * time.Minute,
			TTL:                      15 * time.Minute,
			RevokeTokens:             true,
			EnableIdentifierThrottle: true,
			EnableIPThrottle:         true,
			MaxRequests:              5,
			RequestWindow:            15 * time.Minute,
		},
		Security: SecurityConfig{
			ProductionMode:        false,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Purge: PurgeConfig{
			Interval: 0,
		},
	}
}

// passwordDefaults takes the argon2id costs from the password package.
func passwordDefaults() PasswordConfig {
	hc := password.DefaultConfig()
	return PasswordConfig{
		Memory:         hc.Memory,
		Time:           hc.Time,
		Parallelism:    hc.Parallelism,
		SaltLength:     hc.SaltLength,
		KeyLength:      hc.KeyLength,
		MinLength:      8,
		UpgradeOnLogin: true,
	}
}

// hashConfig is the argon2id cost for new hashes.
func (p PasswordConfig) hashConfig() password.Config {
	return password.Config{
		Memory:      p.Memory,
		Time:        p.Time,
		Parallelism: p.Parallelism,
		SaltLength:  p.SaltLength,
		KeyLength:   p.KeyLength,
	}
}

// DefaultConfig returns the baseline configuration with a freshly generated
// reset secret. Tickets signed with a generated secret do not survive a
// restart; production deployments set PasswordReset.Secret explicitly.
func DefaultConfig() Config {
	cfg := defaultConfig()
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(fmt.Sprintf("goGrant: generate reset secret: %v", err))
	}
	cfg.PasswordReset.Secret = secret
	return cfg
}

// HighSecurityConfig is DefaultConfig with production mode, IP throttles,
// eager revocation of superseded access tokens, a 15 minute access TTL and
// audit enabled.
func HighSecurityConfig() Config {
	cfg := DefaultConfig()
	cfg.Security.ProductionMode = true
	cfg.Security.EnableIPThrottle = true
	cfg.Security.MaxLoginAttempts = 3
	cfg.Tokens.AccessTTL = 15 * time.Minute
	cfg.Tokens.RevokeSupersededAccess = true
	cfg.PasswordReset.URL = "https://localhost/reset-password"
	cfg.PasswordReset.MaxRequests = 3
	cfg.Password.MinLength = 12
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Purge.Interval = time.Hour
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.PasswordReset.Secret = cloneBytes(cfg.PasswordReset.Secret)
	if cfg.Tokens.AllowedScopes != nil {
		out.Tokens.AllowedScopes = append([]string(nil), cfg.Tokens.AllowedScopes...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Tokens
	if c.Tokens.AccessTTL < time.Second {
		return errors.New("Tokens AccessTTL must be >= 1s")
	}
	if strings.TrimSpace(c.Tokens.DefaultScope) == "" {
		return errors.New("Tokens DefaultScope is required")
	}
	if len(c.Tokens.AllowedScopes) > 0 &&
		!scope.Parse(c.Tokens.DefaultScope).SubsetOf(scope.Parse(strings.Join(c.Tokens.AllowedScopes, " "))) {
		return errors.New("Tokens DefaultScope must be within AllowedScopes")
	}
	if c.Tokens.Retention < 0 {
		return errors.New("Tokens Retention must be >= 0")
	}
	if strings.TrimSpace(c.Tokens.ClientName) == "" {
		return errors.New("Tokens ClientName is required")
	}

	// Password
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}
	if err := c.Password.hashConfig().Validate(); err != nil {
		return fmt.Errorf("Password: %w", err)
	}

	// Password Reset
	if len(c.PasswordReset.Secret) < 16 {
		return errors.New("PasswordReset Secret must be at least 16 bytes")
	}
	u, err := url.Parse(c.PasswordReset.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("PasswordReset URL must be an absolute URL")
	}
	if c.PasswordReset.Window < time.Second {
		return errors.New("PasswordReset Window must be >= 1s")
	}
	if c.PasswordReset.TTL < c.PasswordReset.Window {
		return errors.New("PasswordReset TTL must be >= Window")
	}
	if c.PasswordReset.EnableIdentifierThrottle || c.PasswordReset.EnableIPThrottle {
		if c.PasswordReset.MaxRequests <= 0 {
			return errors.New("PasswordReset MaxRequests must be > 0 when throttled")
		}
		if c.PasswordReset.RequestWindow <= 0 {
			return errors.New("PasswordReset RequestWindow must be > 0 when throttled")
		}
	}

	// Security
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("MaxLoginAttempts must be > 0")
	}
	if c.Security.LoginCooldownDuration <= 0 {
		return errors.New("LoginCooldownDuration must be > 0")
	}
	if c.Security.ProductionMode {
		if u.Scheme != "https" {
			return errors.New("PasswordReset URL must use https in production mode")
		}
		if c.Password.Memory < 64*1024 {
			return errors.New("Password Memory must be >= 65536 KB in production mode")
		}
		if len(c.PasswordReset.Secret) < 32 {
			return errors.New("PasswordReset Secret must be at least 32 bytes in production mode")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Purge
	if c.Purge.Interval < 0 {
		return errors.New("Purge Interval must be >= 0")
	}

	return nil
}
