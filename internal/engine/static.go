package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethanbaker/transcribe/pkg/transcript"
)

// Static replays segments from a JSON fixture file. Used by worker
// tests and demos where no recognition model is available.
type Static struct {
	fixturePath string
}

// StaticFixture is the fixture file format
type StaticFixture struct {
	Language string               `json:"language"`
	Duration float64              `json:"duration"`
	Segments []transcript.Segment `json:"segments"`
}

// NewStatic creates a fixture-backed engine
func NewStatic(fixturePath string) *Static {
	return &Static{fixturePath: fixturePath}
}

func (s *Static) Name() string { return "static" }

// Recognize pushes the fixture's segments in order
func (s *Static) Recognize(ctx context.Context, audioPath string, opts Options, sink Sink) error {
	data, err := os.ReadFile(s.fixturePath)
	if err != nil {
		return fmt.Errorf("%w: read fixture: %v", ErrModelLoad, err)
	}
	var fixture StaticFixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("%w: parse fixture: %v", ErrModelLoad, err)
	}

	if err := sink.Info(Info{Language: fixture.Language, DurationSec: fixture.Duration}); err != nil {
		return err
	}
	for _, seg := range fixture.Segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seg.ID == "" {
			seg.ID = transcript.NewSegmentID()
		}
		if err := sink.Segment(seg); err != nil {
			return err
		}
	}
	return nil
}
