package supervisor

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned when a run is requested for an audio
// source that already has an active run
var ErrAlreadyRunning = errors.New("a run is already active for this audio source")

// ErrNoSlot is returned when the worker pool is full and the
// supervisor is configured to fail fast instead of queueing
var ErrNoSlot = errors.New("no worker slot available")

// ProcessError reports a worker that exited abnormally. It carries
// enough state to offer recovery: the last sequence number observed
// and the checkpoint location.
type ProcessError struct {
	ExitCode       int
	LastSeq        int64
	CheckpointPath string
	TimedOut       bool
	Message        string
}

func (e *ProcessError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("worker timed out after no progress (last seq %d)", e.LastSeq)
	}
	if e.Message != "" {
		return fmt.Sprintf("worker exited with code %d: %s", e.ExitCode, e.Message)
	}
	return fmt.Sprintf("worker exited with code %d (last seq %d)", e.ExitCode, e.LastSeq)
}

// ResourceError reports a worker that failed before producing anything
// (model or device allocation). No recovery is meaningful.
type ResourceError struct {
	Message string
}

func (e *ResourceError) Error() string {
	if e.Message == "" {
		return "worker failed to allocate model or device"
	}
	return "worker resource failure: " + e.Message
}
