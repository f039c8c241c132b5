package graph

import (
	"time"

	"github.com/rs/zerolog"
)

// schedulerOptions collects the configuration gathered by a Scheduler's
// functional options before NewScheduler applies them.
type schedulerOptions struct {
	maxSteps                int
	defaultComponentTimeout time.Duration
	fanoutConcurrency       int64
	metrics                 *PrometheusMetrics
	costTracker             *CostTracker
	logger                  zerolog.Logger
}

// Option is a functional option for configuring a Scheduler.
//
// Example:
//
//	sched := graph.NewScheduler(store, streamers, hooks,
//	    graph.WithMaxSteps(200),
//	    graph.WithFanoutConcurrency(10),
//	    graph.WithDefaultComponentTimeout(15*time.Second),
//	)
type Option func(*schedulerOptions)

// WithMaxSteps bounds the number of node invocations a single run may
// perform before it is aborted with ErrMaxStepsExceeded.
//
// Default: 10000. Workflow loops (A -> B -> A) are fully supported; use
// MaxSteps as a backstop against a conditional exit that never fires.
func WithMaxSteps(n int) Option {
	return func(o *schedulerOptions) { o.maxSteps = n }
}

// WithDefaultComponentTimeout sets the timeout applied to nodes that don't
// specify their own ComponentPolicy.Timeout.
//
// Default: 30s.
func WithDefaultComponentTimeout(d time.Duration) Option {
	return func(o *schedulerOptions) { o.defaultComponentTimeout = d }
}

// WithFanoutConcurrency bounds how many branches a map/loop component may
// run concurrently via Scheduler.RunFanout.
//
// Default: 5.
func WithFanoutConcurrency(n int64) Option {
	return func(o *schedulerOptions) { o.fanoutConcurrency = n }
}

// WithMetrics attaches a Prometheus metrics collector.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	sched := graph.NewScheduler(store, streamers, hooks, graph.WithMetrics(metrics))
func WithMetrics(m *PrometheusMetrics) Option {
	return func(o *schedulerOptions) { o.metrics = m }
}

// WithCostTracker attaches an LLM cost tracker that built-in LLM components
// record token usage and spend against.
func WithCostTracker(ct *CostTracker) Option {
	return func(o *schedulerOptions) { o.costTracker = ct }
}

// WithLogger attaches a structured logger.
//
// Default: a disabled (no-op) logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *schedulerOptions) { o.logger = l }
}
