// Package protocol defines the one-directional progress protocol
// carried on the worker's standard output: one JSON event per line,
// forward-only, no backchannel. The controlling process decodes the
// stream incrementally and must keep draining it so the worker never
// stalls on a full pipe.
package protocol

import (
	"fmt"

	"github.com/ethanbaker/transcribe/pkg/transcript"
)

// EventType tags one of the closed set of protocol message kinds
type EventType string

const (
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventSegment   EventType = "segment"
	EventCompleted EventType = "completed"
	EventError     EventType = "error"
)

// Worker exit codes surfaced alongside error events
const (
	CodeGenericFailure  = 1
	CodeResourceFailure = 2
)

// Event is one protocol message. Type selects which payload fields are
// meaningful; Validate enforces the selection so an unknown or
// incomplete line is rejected at the parse boundary instead of leaking
// through as a silent no-op.
type Event struct {
	Type EventType `json:"type"`

	// started
	Model  string `json:"model,omitempty"`
	Device string `json:"device,omitempty"`

	// progress
	Fraction  float64 `json:"fraction,omitempty"`
	ElapsedMs int64   `json:"elapsed_ms,omitempty"`

	// segment
	Seq     int64               `json:"seq,omitempty"`
	Segment *transcript.Segment `json:"segment,omitempty"`

	// completed
	TotalSegments  int    `json:"total_segments,omitempty"`
	CheckpointPath string `json:"checkpoint_path,omitempty"`

	// error
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Terminal reports whether this event concludes a run
func (e Event) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventError
}

// Validate checks that the event carries the payload its type requires
func (e Event) Validate() error {
	switch e.Type {
	case EventStarted:
		if e.Model == "" {
			return fmt.Errorf("started event missing model")
		}
	case EventProgress:
		if e.Fraction < 0 || e.Fraction > 1 {
			return fmt.Errorf("progress fraction %.3f outside [0,1]", e.Fraction)
		}
	case EventSegment:
		if e.Segment == nil {
			return fmt.Errorf("segment event missing payload")
		}
		if e.Seq < 1 {
			return fmt.Errorf("segment event has sequence %d, want >= 1", e.Seq)
		}
	case EventCompleted:
		if e.TotalSegments < 0 {
			return fmt.Errorf("completed event with negative segment count %d", e.TotalSegments)
		}
	case EventError:
		if e.Message == "" {
			return fmt.Errorf("error event missing message")
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// Started builds a started event
func Started(model, device string) Event {
	return Event{Type: EventStarted, Model: model, Device: device}
}

// Progress builds a progress event
func Progress(fraction float64, elapsedMs int64) Event {
	return Event{Type: EventProgress, Fraction: fraction, ElapsedMs: elapsedMs}
}

// SegmentEvent builds a segment event for the given sequence number
func SegmentEvent(seq int64, seg transcript.Segment) Event {
	return Event{Type: EventSegment, Seq: seq, Segment: &seg}
}

// Completed builds the successful terminal event
func Completed(totalSegments int, checkpointPath string) Event {
	return Event{Type: EventCompleted, TotalSegments: totalSegments, CheckpointPath: checkpointPath}
}

// ErrorEvent builds the failure terminal event
func ErrorEvent(message string, code int) Event {
	return Event{Type: EventError, Message: message, Code: code}
}
