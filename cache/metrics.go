package cache

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// cacheMetrics holds the cache's meter instruments: expansion errors,
// permanent retry failures, sync timing, and a gauge over the snapshot size.
type cacheMetrics struct {
	errors      metric.Int64Counter
	retryFailed metric.Int64Counter
	syncHist    metric.Float64Histogram
}

func newCacheMetrics(meter metric.Meter, entries func() int64) (*cacheMetrics, error) {
	errCounter, err := meter.Int64Counter(
		"matcache.errors",
		metric.WithDescription("Materialization cache expansion errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	retryFailed, err := meter.Int64Counter(
		"matcache.retry_failed",
		metric.WithDescription("Materializations marked FAILED after exhausting retries"),
		metric.WithUnit("{materialization}"),
	)
	if err != nil {
		return nil, err
	}

	syncHist, err := meter.Float64Histogram(
		"matcache.sync.duration_ms",
		metric.WithDescription("Materialization cache sync times"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.Int64ObservableGauge(
		"matcache.entries",
		metric.WithDescription("Number of materialization cache entries"),
		metric.WithUnit("{entry}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(entries())
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return &cacheMetrics{
		errors:      errCounter,
		retryFailed: retryFailed,
		syncHist:    syncHist,
	}, nil
}

func errorAttrs(err error) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("reason", reasonFor(err)),
		attribute.Bool("source_down", IsSourceDown(err)),
	)
}

func (m *cacheMetrics) recordError(ctx context.Context, err error) {
	m.errors.Add(ctx, 1, errorAttrs(err))
}

func (m *cacheMetrics) recordRetryFailed(ctx context.Context, err error) {
	m.retryFailed.Add(ctx, 1, errorAttrs(err))
}

func (m *cacheMetrics) recordSync(ctx context.Context, durationMs float64, initial bool) {
	m.syncHist.Record(ctx, durationMs, metric.WithAttributes(attribute.Bool("initial", initial)))
}
