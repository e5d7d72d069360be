package goGrant

import (
	"sync/atomic"
	"time"
)

// MetricID identifies an in-process counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricTokenIssued
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshExpired
	MetricAuthorizeSuccess
	MetricAuthorizeFailure
	MetricInsufficientScope
	MetricPermissionDenied
	MetricLogout
	MetricLogoutAll
	MetricPasswordResetRequest
	MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure
	MetricPasswordHashUpgraded
	MetricTokensPurged
	MetricRateLimitHit
	// MetricAuthorizeLatency is the only histogram; its counter stays zero.
	MetricAuthorizeLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:                "login_success",
	MetricLoginFailure:                "login_failure",
	MetricLoginRateLimited:            "login_rate_limited",
	MetricTokenIssued:                 "token_issued",
	MetricRefreshSuccess:              "refresh_success",
	MetricRefreshFailure:              "refresh_failure",
	MetricRefreshExpired:              "refresh_expired",
	MetricAuthorizeSuccess:            "authorize_success",
	MetricAuthorizeFailure:            "authorize_failure",
	MetricInsufficientScope:           "insufficient_scope",
	MetricPermissionDenied:            "permission_denied",
	MetricLogout:                      "logout",
	MetricLogoutAll:                   "logout_all",
	MetricPasswordResetRequest:        "password_reset_request",
	MetricPasswordResetConfirmSuccess: "password_reset_confirm_success",
	MetricPasswordResetConfirmFailure: "password_reset_confirm_failure",
	MetricPasswordHashUpgraded:        "password_hash_upgraded",
	MetricTokensPurged:                "tokens_purged",
	MetricRateLimitHit:                "rate_limit_hit",
	MetricAuthorizeLatency:            "authorize_latency",
}

// String returns the snake_case name exporters use.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// MetricIDs lists every defined metric in declaration order.
func MetricIDs() []MetricID {
	ids := make([]MetricID, 0, metricIDCount)
	for id := MetricID(0); id < metricIDCount; id++ {
		ids = append(ids, id)
	}
	return ids
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// LatencyBucketBounds are the inclusive upper bounds of the latency
// histogram buckets. The last bucket is unbounded.
var LatencyBucketBounds = [histBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and an optional Authorize latency
// histogram. A nil or disabled Metrics ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add increases the counter by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram of id. Only MetricAuthorizeLatency has
// a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricAuthorizeLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricAuthorizeLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthorizeLatency].buckets[i])
		}
		s.Histograms[MetricAuthorizeLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range LatencyBucketBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
