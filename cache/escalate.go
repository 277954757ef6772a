package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/matcache/descriptor"
	"github.com/jonwraymond/matcache/observe"
	"github.com/jonwraymond/matcache/store"
)

// escalate marks a materialization FAILED in the durable store after its
// retry window closed. The next materialization is rebuilt on the
// reflection's own refresh policy. The ledger entry is cleared regardless of
// the save outcome.
func (c *MaterializationCache) escalate(ctx context.Context, m *descriptor.Materialization, cause error) {
	defer c.ledger.clear(m.ID.String())

	failureMsg := fmt.Sprintf(
		"error expanding materialization %s: all retries exhausted, updated to FAILED: %s",
		m.ID, cause.Error())
	c.logger.Error(ctx, "materialization cache failure",
		observe.F("materialization_id", m.ID.String()),
		observe.F("reflection_id", m.ReflectionID.String()),
		observe.F("error", cause.Error()))

	update, err := c.matStore.Get(m.ID)
	if err != nil {
		c.logger.Warn(ctx, "failed to load materialization for escalation",
			observe.F("materialization_id", m.ID.String()),
			observe.F("error", err.Error()))
		return
	}
	update.State = descriptor.StateFailed
	update.Failure = &descriptor.Failure{Message: failureMsg}

	if err := c.matStore.Save(update); err != nil {
		if errors.Is(err, store.ErrConcurrentModification) {
			// A peer coordinator marked the materialization first.
			return
		}
		c.logger.Warn(ctx, "failed to persist FAILED materialization",
			observe.F("materialization_id", m.ID.String()),
			observe.F("error", err.Error()))
		return
	}
	c.metrics.recordRetryFailed(ctx, cause)
}
