package cache

import (
	"context"
	"errors"
)

// Sentinel errors for cache operations.
var (
	// ErrInitTimeout is returned by readers when the cache does not
	// initialize within the configured budget.
	ErrInitTimeout = errors.New("cache: timed out waiting for materialization cache to initialize")

	// ErrSourceDown classifies expansion failures caused by an upstream
	// source outage. Expanders wrap it into their errors; such failures are
	// retried without a time bound.
	ErrSourceDown = errors.New("cache: source down")

	// ErrNilProvider indicates no Expander was configured.
	ErrNilProvider = errors.New("cache: materialization provider required")

	// ErrNilStatusService indicates no status service was configured.
	ErrNilStatusService = errors.New("cache: reflection status service required")

	// ErrNilCatalogService indicates no catalog service was configured.
	ErrNilCatalogService = errors.New("cache: catalog service required")

	// ErrNilOptions indicates no option manager was configured.
	ErrNilOptions = errors.New("cache: option manager required")

	// ErrNilStore indicates no materialization store was configured.
	ErrNilStore = errors.New("cache: materialization store required")
)

// IsSourceDown reports whether an expansion failure is classified as an
// upstream source outage.
func IsSourceDown(err error) bool {
	return errors.Is(err, ErrSourceDown)
}

// reasonFor maps an expansion failure to the reason class used as a metric
// attribute.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrSourceDown):
		return "source_down"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "expansion"
	}
}
