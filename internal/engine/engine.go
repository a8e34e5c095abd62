// Package engine defines the recognition engine boundary. An engine
// turns an audio file into an ordered stream of segments; everything
// about how recognition happens is behind this interface so the
// worker can run a local model, a cloud API, or a fixture.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethanbaker/transcribe/pkg/transcript"
)

// ErrModelLoad signals that the engine could not acquire its model or
// device. Nothing was produced, so no recovery is meaningful; the
// worker maps this to its resource-failure exit code.
var ErrModelLoad = errors.New("model load failed")

// Options configures one recognition pass
type Options struct {
	Model         string
	Device        string // auto|cpu|cuda
	InitialPrompt string // vocabulary hint, may be empty
	SegmentMode   string // natural|sentence
}

// Info describes the audio once the engine has inspected it
type Info struct {
	Language    string
	DurationSec float64
}

// Sink receives recognition output in production order. Info arrives
// at most once, before any segment. Either method may return an error
// to abort the pass (e.g. the checkpoint writer failed).
type Sink interface {
	Info(Info) error
	Segment(transcript.Segment) error
}

// Engine produces segments for an audio file, pushing them into the
// sink in production order. Recognition is synchronous: Recognize
// returns once the stream is drained or aborted.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, audioPath string, opts Options, sink Sink) error
}

// New returns the named engine implementation
func New(name string, cfg Config) (Engine, error) {
	switch name {
	case "fasterwhisper", "":
		return NewFasterWhisper(cfg.PythonBin), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai engine requires an API key")
		}
		return NewOpenAI(cfg.OpenAIKey), nil
	case "static":
		return NewStatic(cfg.FixturePath), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

// Config carries the engine-specific settings the factory needs
type Config struct {
	PythonBin   string // fasterwhisper: python interpreter, default python3
	OpenAIKey   string // openai: API key
	FixturePath string // static: fixture file
}
