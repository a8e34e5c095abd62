// Package worker implements the transcription worker process body: it
// runs the recognition engine, checkpoints every produced segment and
// reports progress as JSON lines on its output stream. The worker is
// deliberately single-purpose and synchronous; its only safety
// mechanisms are the checkpoint file and the process boundary.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ethanbaker/transcribe/internal/checkpoint"
	"github.com/ethanbaker/transcribe/internal/engine"
	"github.com/ethanbaker/transcribe/pkg/protocol"
	"github.com/ethanbaker/transcribe/pkg/transcript"
	"github.com/ethanbaker/transcribe/pkg/vocab"
)

// Exit codes reported to the supervisor
const (
	ExitOK       = 0
	ExitFailure  = protocol.CodeGenericFailure
	ExitResource = protocol.CodeResourceFailure
)

// Config is one worker invocation
type Config struct {
	AudioPath   string
	OutDir      string
	Model       string
	Device      string
	EngineName  string
	VocabFile   string
	SegmentMode string
	FlushEvery  int

	Engine engine.Engine // overrides EngineName when set (tests)
}

// Run executes one transcription pass and returns the process exit
// code. All failures are reported as protocol error events before the
// corresponding exit code is returned.
func Run(ctx context.Context, cfg Config, enc *protocol.Encoder, engineCfg engine.Config) int {
	eng := cfg.Engine
	if eng == nil {
		var err error
		eng, err = engine.New(cfg.EngineName, engineCfg)
		if err != nil {
			enc.Emit(protocol.ErrorEvent(err.Error(), protocol.CodeResourceFailure))
			return ExitResource
		}
	}

	opts := engine.Options{
		Model:       cfg.Model,
		Device:      cfg.Device,
		SegmentMode: cfg.SegmentMode,
	}
	if cfg.VocabFile != "" {
		v, err := vocab.Load(cfg.VocabFile)
		if err != nil {
			enc.Emit(protocol.ErrorEvent(fmt.Sprintf("load vocabulary: %v", err), protocol.CodeGenericFailure))
			return ExitFailure
		}
		opts.InitialPrompt = v.InitialPrompt()
	}

	writer, err := checkpoint.NewWriter(cfg.OutDir, checkpoint.Header{
		AudioPath: cfg.AudioPath,
		Model:     cfg.Model,
		Device:    cfg.Device,
		PID:       os.Getpid(),
		StartedAt: time.Now(),
	}, cfg.FlushEvery)
	if err != nil {
		enc.Emit(protocol.ErrorEvent(fmt.Sprintf("open checkpoint: %v", err), protocol.CodeGenericFailure))
		return ExitFailure
	}

	started := protocol.Started(cfg.Model, cfg.Device)
	started.CheckpointPath = writer.Path()
	enc.Emit(started)

	sink := &checkpointingSink{
		enc:     enc,
		writer:  writer,
		startAt: time.Now(),
	}

	if err := eng.Recognize(ctx, cfg.AudioPath, opts, sink); err != nil {
		// Keep whatever was produced reachable before reporting
		if flushErr := writer.Flush(); flushErr != nil {
			log.Printf("[WORKER]: flush on failure: %v", flushErr)
		}
		writer.Close()

		if errors.Is(err, engine.ErrModelLoad) && sink.count == 0 {
			enc.Emit(protocol.ErrorEvent(err.Error(), protocol.CodeResourceFailure))
			return ExitResource
		}
		enc.Emit(protocol.ErrorEvent(err.Error(), protocol.CodeGenericFailure))
		return ExitFailure
	}

	if err := writer.Finalize(); err != nil {
		enc.Emit(protocol.ErrorEvent(fmt.Sprintf("finalize checkpoint: %v", err), protocol.CodeGenericFailure))
		return ExitFailure
	}

	enc.Emit(protocol.Completed(int(sink.count), writer.Path()))
	return ExitOK
}

// checkpointingSink appends each segment to the checkpoint before
// announcing it, so a segment a consumer has seen is never lost to a
// later crash beyond the current unflushed batch.
type checkpointingSink struct {
	enc     *protocol.Encoder
	writer  *checkpoint.Writer
	startAt time.Time

	count       int64
	durationSec float64
}

func (s *checkpointingSink) Info(info engine.Info) error {
	s.durationSec = info.DurationSec
	return s.enc.Emit(protocol.Progress(0, time.Since(s.startAt).Milliseconds()))
}

func (s *checkpointingSink) Segment(seg transcript.Segment) error {
	if seg.ID == "" {
		seg.ID = transcript.NewSegmentID()
	}

	s.writer.Append(seg)
	if _, err := s.writer.FlushIfDue(); err != nil {
		return err
	}

	s.count++
	if err := s.enc.Emit(protocol.SegmentEvent(s.count, seg)); err != nil {
		return err
	}

	if s.durationSec > 0 {
		fraction := seg.End / s.durationSec
		if fraction > 1 {
			fraction = 1
		}
		return s.enc.Emit(protocol.Progress(fraction, time.Since(s.startAt).Milliseconds()))
	}
	return nil
}
