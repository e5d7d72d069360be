// Package otel publishes engine metrics as OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per latency bucket, all fed by a single callback
// that reads Engine.MetricsSnapshot on each collection. The caller owns the
// MeterProvider.
package otel
