package scheduler

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// schedulerMetrics wraps the OpenTelemetry instruments the scheduler
// publishes each tick (§4.2.1). No exporter is configured here — by
// default these instruments feed the global no-op MeterProvider, and
// wiring a real exporter is left to the CLI layer.
type schedulerMetrics struct {
	tickDuration metric.Float64Histogram
	running      metric.Int64Gauge
	blocked      metric.Int64Gauge
	completed    metric.Int64Gauge
	failed       metric.Int64Gauge
}

func newSchedulerMetrics() schedulerMetrics {
	meter := otel.GetMeterProvider().Meter("cursorflow/internal/scheduler")

	tickDuration, _ := meter.Float64Histogram(
		"scheduler_tick_duration_ms",
		metric.WithDescription("wall-clock duration of one scheduler tick"),
		metric.WithUnit("ms"),
	)
	running, _ := meter.Int64Gauge("lanes_running", metric.WithDescription("lanes currently running"))
	blocked, _ := meter.Int64Gauge("lanes_blocked", metric.WithDescription("lanes blocked on an unresolved dependency"))
	completed, _ := meter.Int64Gauge("lanes_completed", metric.WithDescription("lanes that finished successfully"))
	failed, _ := meter.Int64Gauge("lanes_failed", metric.WithDescription("lanes that failed"))

	return schedulerMetrics{
		tickDuration: tickDuration,
		running:      running,
		blocked:      blocked,
		completed:    completed,
		failed:       failed,
	}
}

// recordLocked records one tick's set sizes and duration. Caller holds
// s.mu (the gauges themselves are safe for concurrent use, but reading
// s.sets is not).
func (s *Scheduler) recordTickMetricsLocked(elapsed time.Duration) {
	ctx := context.Background()
	s.metrics.running.Record(ctx, int64(len(s.sets.running)))
	s.metrics.blocked.Record(ctx, int64(len(s.sets.blocked)))
	s.metrics.completed.Record(ctx, int64(len(s.sets.completed)))
	s.metrics.failed.Record(ctx, int64(len(s.sets.failed)))
	s.metrics.tickDuration.Record(ctx, float64(elapsed.Microseconds())/1000.0)
}
