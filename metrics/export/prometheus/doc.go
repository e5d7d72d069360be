// Package prometheus exposes engine metrics through client_golang.
//
// [Collector] implements prometheus.Collector and reads
// Engine.MetricsSnapshot on every scrape. Counters are named
// gogrant_*_total and the Authorize latency histogram is
// gogrant_authorize_latency_seconds. Nothing is registered globally; use
// [Handler] or register the collector on your own registry.
package prometheus
