package goGrant

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// PurgeExpired deletes access tokens that expired more than
// Config.Tokens.Retention ago, with their refresh tokens. It returns the
// number of access tokens removed. Stores with server-side expiry report 0.
func (e *Engine) PurgeExpired(ctx context.Context) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	cutoff := e.now().Add(-e.config.Tokens.Retention)
	n, err := e.store.PurgeExpired(ctx, cutoff)
	if err != nil {
		return 0, storeError(err)
	}
	if n > 0 {
		e.metrics.Add(MetricTokensPurged, uint64(n))
		e.emitAudit(ctx, auditEventTokensPurged, true, "", "", nil, func() map[string]string {
			return map[string]string{"count": strconv.Itoa(n)}
		})
	}
	return n, nil
}

// StartPurger runs PurgeExpired every Config.Purge.Interval until ctx is
// done, StopPurger is called or the engine is closed. It is a no-op when the
// interval is zero or a purger is already running.
func (e *Engine) StartPurger(ctx context.Context) {
	if !e.ready() || e.config.Purge.Interval <= 0 {
		return
	}

	e.purgeMu.Lock()
	defer e.purgeMu.Unlock()
	if e.purgeCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.purgeCancel = cancel
	e.purgeDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(e.config.Purge.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := e.PurgeExpired(ctx)
				if err != nil {
					e.logger.Warn("token purge failed", zap.Error(err))
					continue
				}
				e.logger.Debug("expired tokens purged", zap.Int("count", n))
			}
		}
	}()
}

// StopPurger stops a running purger and waits for it to exit.
func (e *Engine) StopPurger() {
	if e == nil {
		return
	}

	e.purgeMu.Lock()
	cancel, done := e.purgeCancel, e.purgeDone
	e.purgeCancel, e.purgeDone = nil, nil
	e.purgeMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
