package prometheus

import (
	"net/http"

	goGrant "github.com/MrEthical07/goGrant"
	"github.com/MrEthical07/goGrant/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSource is what the collector reads. *goGrant.Engine satisfies it.
type MetricsSource interface {
	MetricsSnapshot() goGrant.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   goGrant.MetricID
	desc *prometheus.Desc
}

type histogramDesc struct {
	id   goGrant.MetricID
	desc *prometheus.Desc
}

// Collector is a prometheus.Collector over a MetricsSource.
type Collector struct {
	source       MetricsSource
	counters     []counterDesc
	histograms   []histogramDesc
	auditDropped *prometheus.Desc
}

func NewCollector(source MetricsSource) *Collector {
	c := &Collector{
		source: source,
		auditDropped: prometheus.NewDesc(
			internaldefs.Namespace+"_audit_dropped_total",
			"Audit events dropped because the dispatcher buffer was full.",
			nil, nil,
		),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	for _, hd := range c.histograms {
		ch <- hd.desc
	}
	ch <- c.auditDropped
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()
	for _, cd := range c.counters {
		ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(snapshot.Counters[cd.id]))
	}

	for _, hd := range c.histograms {
		raw, ok := snapshot.Histograms[hd.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(raw)
		buckets := make(map[float64]uint64, len(internaldefs.HistogramBounds))
		for i, bound := range internaldefs.HistogramBounds {
			buckets[bound] = cumulative[i]
		}
		// The engine keeps bucket counts only, so the sum is reported as zero.
		ch <- prometheus.MustNewConstHistogram(hd.desc, cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.auditDropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
}

// Handler serves source on a fresh registry in the Prometheus text format.
func Handler(source MetricsSource) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(source))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

var _ prometheus.Collector = (*Collector)(nil)
