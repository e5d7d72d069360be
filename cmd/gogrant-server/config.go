package main

import (
	"errors"
	"fmt"
	"time"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/internal/sqldb"
	"github.com/caarlos0/env/v11"
)

const envPrefix = "GOGRANT_"

// Token store and notifier backends selectable at startup.
const (
	storeSQL    = "sql"
	storeRedis  = "redis"
	storeMemory = "memory"

	notifierLog   = "log"
	notifierSMTP  = "smtp"
	notifierKafka = "kafka"
)

type serverConfig struct {
	HTTPAddr        string        `env:"HTTP_ADDR"        envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT"       envDefault:"json"`
	Production      bool          `env:"PRODUCTION"       envDefault:"false"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN"    envDefault:"file:gogrant.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"`

	TokenStore    string `env:"TOKEN_STORE"    envDefault:"sql"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX"   envDefault:"gg"`

	// Zero values keep the preset.
	AccessTTL     time.Duration `env:"ACCESS_TTL"`
	Retention     time.Duration `env:"RETENTION"`
	AllowedScopes []string      `env:"ALLOWED_SCOPES" envSeparator:","`
	PurgeInterval time.Duration `env:"PURGE_INTERVAL" envDefault:"1h"`

	ResetSecret string        `env:"RESET_SECRET,unset"`
	ResetURL    string        `env:"RESET_URL"`
	ResetTTL    time.Duration `env:"RESET_TTL"`

	Notifier     string   `env:"NOTIFIER"      envDefault:"log"`
	SMTPHost     string   `env:"SMTP_HOST"`
	SMTPPort     int      `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUsername string   `env:"SMTP_USERNAME"`
	SMTPPassword string   `env:"SMTP_PASSWORD,unset"`
	MailFrom     string   `env:"MAIL_FROM"     envDefault:"noreply@example.com"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC"   envDefault:"gogrant.mail"`

	AuditEnabled   bool `env:"AUDIT_ENABLED"   envDefault:"true"`
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

func loadConfig() (serverConfig, error) {
	var cfg serverConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return serverConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return serverConfig{}, err
	}
	return cfg, nil
}

func (c serverConfig) validate() error {
	switch c.DBDriver {
	case sqldb.DriverSQLite, sqldb.DriverPostgres:
	default:
		return fmt.Errorf("%sDB_DRIVER must be %q or %q", envPrefix, sqldb.DriverSQLite, sqldb.DriverPostgres)
	}
	switch c.TokenStore {
	case storeSQL, storeMemory:
	case storeRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%sREDIS_ADDR is required for the redis token store", envPrefix)
		}
	default:
		return fmt.Errorf("unknown %sTOKEN_STORE %q", envPrefix, c.TokenStore)
	}
	switch c.Notifier {
	case notifierLog:
	case notifierSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("%sSMTP_HOST is required for the smtp notifier", envPrefix)
		}
	case notifierKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("%sKAFKA_BROKERS is required for the kafka notifier", envPrefix)
		}
	default:
		return fmt.Errorf("unknown %sNOTIFIER %q", envPrefix, c.Notifier)
	}
	if c.Production && c.ResetSecret == "" {
		return errors.New(envPrefix + "RESET_SECRET is required in production")
	}
	return nil
}

// engineConfig starts from the preset matching the mode and applies the
// environment on top. Without RESET_SECRET the preset's random secret is
// kept, so reset links stop working across restarts.
func (c serverConfig) engineConfig() goGrant.Config {
	cfg := goGrant.DefaultConfig()
	if c.Production {
		cfg = goGrant.HighSecurityConfig()
	}

	if c.AccessTTL > 0 {
		cfg.Tokens.AccessTTL = c.AccessTTL
	}
	if c.Retention > 0 {
		cfg.Tokens.Retention = c.Retention
	}
	if len(c.AllowedScopes) > 0 {
		cfg.Tokens.AllowedScopes = c.AllowedScopes
	}
	if c.ResetURL != "" {
		cfg.PasswordReset.URL = c.ResetURL
	}
	if c.ResetTTL > 0 {
		cfg.PasswordReset.TTL = c.ResetTTL
	}
	cfg.Purge.Interval = c.PurgeInterval
	if c.ResetSecret != "" {
		cfg.PasswordReset.Secret = []byte(c.ResetSecret)
	}
	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	return cfg
}
