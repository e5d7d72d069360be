package goGrant

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goGrant/internal"
	internalaudit "github.com/MrEthical07/goGrant/internal/audit"
	internalflows "github.com/MrEthical07/goGrant/internal/flows"
	"github.com/MrEthical07/goGrant/internal/limiters"
	"github.com/MrEthical07/goGrant/internal/rate"
	"github.com/MrEthical07/goGrant/internal/ticket"
	"github.com/MrEthical07/goGrant/password"
	"github.com/MrEthical07/goGrant/scope"
	"github.com/MrEthical07/goGrant/token"
	"go.uber.org/zap"
)

// Engine issues, refreshes, checks and revokes tokens and runs the password
// reset flow.
//
// Engine methods are safe for concurrent use once Builder.Build returns.
type Engine struct {
	config        Config
	allowedScopes scope.Set

	store     token.Store
	directory UserDirectory
	notifier  Notifier
	groups    GroupStore

	hasher       *password.Hasher
	signer       *ticket.Signer
	rateLimiter  *rate.Limiter
	resetLimiter *limiters.PasswordResetLimiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	logger       *zap.Logger
	flows        internalflows.Service

	now      func() time.Time
	randomMu sync.Mutex
	random   io.Reader

	client atomic.Pointer[token.Client]

	purgeMu     sync.Mutex
	purgeCancel context.CancelFunc
	purgeDone   chan struct{}

	closeOnce sync.Once
}

// Close stops the purger, flushes the audit dispatcher and wipes the reset
// ticket key. Reset requests fail after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.StopPurger()
		if e.audit != nil {
			e.audit.Close()
		}
		if e.signer != nil {
			e.signer.Wipe()
		}
	})
}

// AuditDropped reports how many audit events never reached the sink: the
// buffer was full, the request was cancelled while waiting, or the engine was
// already closed.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of every counter and the
// authorize latency histogram.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the live counters to exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// Ping checks the token store.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenStoreUnavailable, err)
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

func (e *Engine) newPair() (string, string, error) {
	e.randomMu.Lock()
	defer e.randomMu.Unlock()
	return internal.NewOpaquePair(e.random)
}

func (e *Engine) warn(msg string, args ...any) {
	e.logger.Sugar().Warnw(msg, args...)
}

func (e *Engine) newFlowService() internalflows.Service {
	return internalflows.New(internalflows.Deps{
		Credentials:   e.credentialFlowDeps(),
		Login:         e.loginFlowDeps(),
		Issue:         e.issueFlowDeps(),
		Refresh:       e.refreshFlowDeps(),
		Authorize:     e.authorizeFlowDeps(),
		Logout:        e.logoutFlowDeps(),
		PasswordReset: e.passwordResetFlowDeps(),
	})
}

func (e *Engine) directoryFlowDeps() internalflows.DirectoryDeps {
	return internalflows.DirectoryDeps{
		FindByEmail:    e.lookup(e.directory.FindByEmail),
		FindByUsername: e.lookup(e.directory.FindByUsername),
		FindByID:       e.lookup(e.directory.FindByID),
		NotFound:       ErrUserNotFound,
	}
}

func (e *Engine) lookup(find func(context.Context, string) (User, error)) func(context.Context, string) (internalflows.UserRecord, error) {
	return func(ctx context.Context, key string) (internalflows.UserRecord, error) {
		u, err := find(ctx, key)
		if err != nil {
			return internalflows.UserRecord{}, err
		}
		return toUserRecord(u), nil
	}
}

func toUserRecord(u User) internalflows.UserRecord {
	return internalflows.UserRecord{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Active:       u.Active(),
	}
}

// publicUser drops the password hash. Callers that need the full record ask
// the directory.
func publicUser(r internalflows.UserRecord) User {
	status := StatusActive
	if !r.Active {
		status = StatusInactive
	}
	return User{
		ID:       r.ID,
		Username: r.Username,
		Email:    r.Email,
		Status:   status,
	}
}

func directoryError(err error) error {
	return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
}

func storeError(err error) error {
	return fmt.Errorf("%w: %v", ErrTokenStoreUnavailable, err)
}
