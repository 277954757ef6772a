// Package observe provides the telemetry primitives the materialization
// cache and its refresher are instrumented with.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Embedders create one Observer per process and hand
// its meter, tracer, and logger to the cache.
package observe
