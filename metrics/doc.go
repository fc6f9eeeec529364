// Package metrics is the opaque observer surface for load package
// execution. It publishes to the process-wide expvar registry,
// init-once, matching how other services in this codebase expose
// operational counters without pulling in a separate metrics client.
package metrics
