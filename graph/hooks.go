package graph

import "context"

// Hook observes a run's lifecycle without participating in its control
// flow. Hook methods are called synchronously from the scheduler's loop; a
// hook that panics or blocks delays the run. A hook's own errors are never
// propagated back into the run — hooks narrate, they don't steer.
type Hook interface {
	OnRunStart(ctx context.Context, runID string, inputs map[string]any)
	OnNodeStart(ctx context.Context, runID, nodeID string, inputs map[string]any)
	OnNodeEnd(ctx context.Context, runID, nodeID string, output map[string]any, err error)
	OnRunSuspend(ctx context.Context, runID string)
	OnRunEnd(ctx context.Context, runID string, output map[string]any, err error)
}

// BaseHook is a no-op Hook implementation embeddable by hosts that only
// want to override a subset of the lifecycle.
type BaseHook struct{}

func (BaseHook) OnRunStart(context.Context, string, map[string]any)                     {}
func (BaseHook) OnNodeStart(context.Context, string, string, map[string]any)            {}
func (BaseHook) OnNodeEnd(context.Context, string, string, map[string]any, error)       {}
func (BaseHook) OnRunSuspend(context.Context, string)                                   {}
func (BaseHook) OnRunEnd(context.Context, string, map[string]any, error)                {}

// fireHooks dispatches a lifecycle event to every configured hook, swallowing
// panics from any individual hook so a misbehaving observer can't abort a run.
// A recovered panic is discarded; it is not logged.
func fireHooks(hooks []Hook, fn func(Hook)) {
	for _, h := range hooks {
		func() {
			defer func() { recover() }()
			fn(h)
		}()
	}
}
