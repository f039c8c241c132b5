// Package store provides persistence backends for workflow checkpoints and
// event history.
//
// Every backend in this package implements both graph.CheckpointStore
// (durable WorkflowState snapshots consumed by Scheduler.Run/Resume) and
// emit.EventStore (the append-only event log beneath a Bus's bounded
// ring buffer). A caller typically constructs one backend and hands it to
// both graph.NewScheduler and emit.NewStreamer.
package store

import (
	"errors"
)

// ErrNotFound is returned when a requested run ID does not have a
// checkpoint on record.
var ErrNotFound = errors.New("not found")
