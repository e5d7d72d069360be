package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/internal/testkit"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot goGrant.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goGrant.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func gather(t *testing.T, src MetricsSource) map[string]*dto.MetricFamily {
	t.Helper()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(src)))
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestCollectorCountersAndHistogram(t *testing.T) {
	families := gather(t, fakeSource{
		snapshot: goGrant.MetricsSnapshot{
			Counters: map[goGrant.MetricID]uint64{
				goGrant.MetricLoginSuccess: 7,
			},
			Histograms: map[goGrant.MetricID][]uint64{
				goGrant.MetricAuthorizeLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	login := families["gogrant_login_success_total"]
	require.NotNil(t, login)
	assert.Equal(t, dto.MetricType_COUNTER, login.GetType())
	assert.Equal(t, 7.0, login.GetMetric()[0].GetCounter().GetValue())

	assert.Equal(t, 2.0, families["gogrant_audit_dropped_total"].GetMetric()[0].GetCounter().GetValue())

	hist := families["gogrant_authorize_latency_seconds"]
	require.NotNil(t, hist)
	h := hist.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(36), h.GetSampleCount())
	require.Len(t, h.GetBucket(), 7)
	assert.Equal(t, 0.005, h.GetBucket()[0].GetUpperBound())
	assert.Equal(t, uint64(1), h.GetBucket()[0].GetCumulativeCount())
	assert.Equal(t, uint64(28), h.GetBucket()[6].GetCumulativeCount())
}

func TestCollectorOmitsDisabledHistogram(t *testing.T) {
	families := gather(t, fakeSource{snapshot: goGrant.MetricsSnapshot{
		Counters:   map[goGrant.MetricID]uint64{},
		Histograms: map[goGrant.MetricID][]uint64{},
	}})

	assert.NotContains(t, families, "gogrant_authorize_latency_seconds")
	require.Contains(t, families, "gogrant_refresh_expired_total")
	assert.Equal(t, 0.0, families["gogrant_refresh_expired_total"].GetMetric()[0].GetCounter().GetValue())
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	cfg := testkit.Config()
	cfg.Metrics.Enabled = true
	kit := testkit.New(t, cfg)

	_, err := kit.Engine.Login(context.Background(), "alice", testkit.Password)
	require.NoError(t, err)

	srv := httptest.NewServer(Handler(kit.Engine))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "gogrant_login_success_total 1")
	assert.Contains(t, string(body), "# TYPE gogrant_logout_total counter")
}
