package graph

import (
	"context"
	"fmt"
	"time"
)

// componentTimeout determines the timeout duration for a node, in order of
// precedence: the node's own ComponentPolicy.Timeout, then the scheduler's
// configured default, then 0 (no timeout).
func componentTimeout(policy *ComponentPolicy, defaultTimeout time.Duration) time.Duration {
	if policy != nil && policy.Timeout > 0 {
		return policy.Timeout
	}
	return defaultTimeout
}

// invokeWithTimeout wraps a single Component.Invoke call with timeout
// enforcement, using componentTimeout's precedence rules to pick the bound.
func invokeWithTimeout(
	ctx context.Context,
	comp Component,
	nodeID string,
	inputs, config map[string]any,
	execCtx *ExecutionContext,
	policy *ComponentPolicy,
	defaultTimeout time.Duration,
) (map[string]any, error) {
	timeout := componentTimeout(policy, defaultTimeout)
	if timeout == 0 {
		return comp.Invoke(ctx, inputs, config, execCtx)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := comp.Invoke(timeoutCtx, inputs, config, execCtx)
	if err != nil && timeoutCtx.Err() == context.DeadlineExceeded {
		return output, &ComponentError{
			NodeID: nodeID,
			Cause:  fmt.Errorf("exceeded timeout of %v: %w", timeout, timeoutCtx.Err()),
		}
	}
	return output, err
}
