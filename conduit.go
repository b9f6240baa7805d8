// Package conduit is the extensibility backbone of a multi-process
// streaming data-processing engine: a registry of pluggable services whose
// lifecycle is interleaved with the engine's execution phases, from
// initialization and per-message processing through process spawning and
// topology scheduling.
//
// Services are declared as data: a ServiceSpec names a service, scopes it
// with a ServiceKind, and binds the lifecycle callbacks it participates in.
// A Registry owns the handles of one process, an Invoker fires the phase
// callbacks in deterministic order, a topology Controller deploys the
// workflow across processes, and a metrics Sink routes runtime metrics
// through the metricHandling chain.
package conduit
