// Package cache implements the materialization cache: an in-memory,
// concurrently refreshed map from entry id to expanded materialization
// descriptor, used by the planner to match queries against precomputed
// results without re-expanding plans on every query.
//
// The cache keeps an atomic snapshot that a background refresh swaps
// wholesale, reuses expansion work across refreshes, retries failed
// expansions inside a bounded window before escalating them to a durable
// FAILED state, and gates readers behind a one-shot init barrier until the
// first refresh completes.
package cache
