package goGrant

import (
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/goGrant/internal/audit"
	"github.com/MrEthical07/goGrant/internal/limiters"
	"github.com/MrEthical07/goGrant/internal/rate"
	"github.com/MrEthical07/goGrant/internal/ticket"
	"github.com/MrEthical07/goGrant/password"
	"github.com/MrEthical07/goGrant/scope"
	"github.com/MrEthical07/goGrant/token"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine from a Config and its collaborators.
//
// Builder instances are intended to be configured during initialization and
// used for exactly one Build call.
type Builder struct {
	config Config

	store     token.Store
	directory UserDirectory
	notifier  Notifier
	groups    GroupStore
	redis     redis.UniversalClient

	logger    *zap.Logger
	clock     func() time.Time
	random    io.Reader
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is deep-copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTokenStore sets the persistence backend for clients and tokens.
// Required.
func (b *Builder) WithTokenStore(store token.Store) *Builder {
	b.store = store
	return b
}

// WithDirectory sets the user directory. Required.
func (b *Builder) WithDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithNotifier sets the reset mail sender. Required.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithGroupStore enables Engine.RequireRole.
func (b *Builder) WithGroupStore(g GroupStore) *Builder {
	b.groups = g
	return b
}

// WithRedis enables the login and password reset throttles. Without a Redis
// client no request is ever throttled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for expiry decisions and ticket windows.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithRandom overrides crypto/rand as the token entropy source.
func (b *Builder) WithRandom(r io.Reader) *Builder {
	b.random = r
	return b
}

// WithAuditSink sets where audit events go when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, checks the required collaborators and
// returns a ready Engine. A Builder can be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("token store required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	hasher, err := password.New(cfg.Password.hashConfig())
	if err != nil {
		return nil, err
	}

	signer, err := ticket.NewSigner(cfg.PasswordReset.Secret, cfg.PasswordReset.Window, cfg.PasswordReset.TTL)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	random := b.random
	if random == nil {
		random = rand.Reader
	}

	engine := &Engine{
		config:        cfg,
		store:         b.store,
		directory:     b.directory,
		notifier:      b.notifier,
		groups:        b.groups,
		hasher:        hasher,
		signer:        signer,
		allowedScopes: scope.Parse(strings.Join(cfg.Tokens.AllowedScopes, " ")),
		logger:        logger.Named("gogrant"),
		now:           clock,
		random:        random,
		metrics:       NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	if b.redis != nil {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
		engine.resetLimiter = limiters.NewPasswordResetLimiter(b.redis, limiters.PasswordResetConfig{
			EnableIdentifierThrottle: cfg.PasswordReset.EnableIdentifierThrottle,
			EnableIPThrottle:         cfg.PasswordReset.EnableIPThrottle,
			Window:                   cfg.PasswordReset.RequestWindow,
			MaxAttempts:              cfg.PasswordReset.MaxRequests,
		})
	}

	engine.flows = engine.newFlowService()

	b.built = true

	return engine, nil
}
