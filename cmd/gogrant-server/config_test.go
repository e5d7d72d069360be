package main

import (
	"testing"
	"time"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, storeSQL, cfg.TokenStore)
	assert.Equal(t, notifierLog, cfg.Notifier)
	assert.Equal(t, time.Hour, cfg.PurgeInterval)

	ec := cfg.engineConfig()
	def := goGrant.DefaultConfig()
	assert.Equal(t, def.Tokens.AccessTTL, ec.Tokens.AccessTTL)
	assert.Equal(t, def.PasswordReset.URL, ec.PasswordReset.URL)
	assert.True(t, ec.Audit.Enabled)
	assert.Len(t, ec.PasswordReset.Secret, 32)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("GOGRANT_ACCESS_TTL", "10m")
	t.Setenv("GOGRANT_ALLOWED_SCOPES", "read,write,admin")
	t.Setenv("GOGRANT_RESET_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("GOGRANT_RESET_URL", "https://auth.example.com/reset")
	t.Setenv("GOGRANT_TOKEN_STORE", "memory")

	cfg, err := loadConfig()
	require.NoError(t, err)

	ec := cfg.engineConfig()
	assert.Equal(t, 10*time.Minute, ec.Tokens.AccessTTL)
	assert.Equal(t, []string{"read", "write", "admin"}, ec.Tokens.AllowedScopes)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), ec.PasswordReset.Secret)
	assert.Equal(t, "https://auth.example.com/reset", ec.PasswordReset.URL)
}

func TestProductionUsesHighSecurityPreset(t *testing.T) {
	t.Setenv("GOGRANT_PRODUCTION", "true")
	t.Setenv("GOGRANT_RESET_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := loadConfig()
	require.NoError(t, err)

	ec := cfg.engineConfig()
	assert.Equal(t, 15*time.Minute, ec.Tokens.AccessTTL)
	assert.Equal(t, 12, ec.Password.MinLength)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "driver", env: map[string]string{"GOGRANT_DB_DRIVER": "mysql"}},
		{name: "store", env: map[string]string{"GOGRANT_TOKEN_STORE": "etcd"}},
		{name: "redis without addr", env: map[string]string{"GOGRANT_TOKEN_STORE": "redis"}},
		{name: "notifier", env: map[string]string{"GOGRANT_NOTIFIER": "pigeon"}},
		{name: "smtp without host", env: map[string]string{"GOGRANT_NOTIFIER": "smtp"}},
		{name: "kafka without brokers", env: map[string]string{"GOGRANT_NOTIFIER": "kafka"}},
		{name: "production without secret", env: map[string]string{"GOGRANT_PRODUCTION": "true"}},
		{name: "bad duration", env: map[string]string{"GOGRANT_ACCESS_TTL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig()
			assert.Error(t, err)
		})
	}
}
