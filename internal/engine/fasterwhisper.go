package engine

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ethanbaker/transcribe/pkg/transcript"
)

//go:embed assets/faster_whisper.py
var fwScript []byte

// fwLoadFailureExit is the helper's exit code for model/device
// allocation failure
const fwLoadFailureExit = 3

// FasterWhisper runs faster-whisper through an embedded Python helper
// and streams its per-segment JSON lines. The helper handles device
// auto-detection and CUDA-to-CPU fallback itself.
type FasterWhisper struct {
	pythonBin string
}

// NewFasterWhisper creates the local whisper engine. pythonBin
// defaults to python3.
func NewFasterWhisper(pythonBin string) *FasterWhisper {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	return &FasterWhisper{pythonBin: pythonBin}
}

func (f *FasterWhisper) Name() string { return "fasterwhisper" }

type fwLine struct {
	Kind     string  `json:"kind"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Device   string  `json:"device,omitempty"`
	Start    float64 `json:"start,omitempty"`
	End      float64 `json:"end,omitempty"`
	Text     string  `json:"text,omitempty"`
	Words    []struct {
		Text       string  `json:"text"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Confidence float64 `json:"confidence"`
	} `json:"words,omitempty"`
}

// Recognize streams segments from the helper as they are produced
func (f *FasterWhisper) Recognize(ctx context.Context, audioPath string, opts Options, sink Sink) error {
	scriptPath := filepath.Join(os.TempDir(), "transcribe_faster_whisper.py")
	if err := os.WriteFile(scriptPath, fwScript, 0o755); err != nil {
		return fmt.Errorf("write helper script: %w", err)
	}
	defer os.Remove(scriptPath)

	args := []string{
		scriptPath,
		"--audio", audioPath,
		"--model", opts.Model,
		"--device", defaultString(opts.Device, "auto"),
		"--segment-mode", defaultString(opts.SegmentMode, "natural"),
	}
	if opts.InitialPrompt != "" {
		args = append(args, "--initial-prompt", opts.InitialPrompt)
	}

	cmd := exec.CommandContext(ctx, f.pythonBin, args...)
	cmd.Env = os.Environ()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("helper stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start helper: %w", err)
	}

	var sinkErr error

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var line fwLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			log.Printf("[ENGINE]: skipping unparseable helper line: %v", err)
			continue
		}

		switch line.Kind {
		case "info":
			sinkErr = sink.Info(Info{Language: line.Language, DurationSec: line.Duration})
		case "segment":
			seg := transcript.Segment{
				ID:    transcript.NewSegmentID(),
				Start: line.Start,
				End:   line.End,
				Text:  line.Text,
			}
			for _, w := range line.Words {
				seg.Words = append(seg.Words, transcript.Word{
					Text:       w.Text,
					Start:      w.Start,
					End:        w.End,
					Confidence: w.Confidence,
				})
			}
			sinkErr = sink.Segment(seg)
		}
		if sinkErr != nil {
			break
		}
	}

	waitErr := cmd.Wait()
	if sinkErr != nil {
		return sinkErr
	}
	if waitErr != nil {
		detail := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && exitErr.ExitCode() == fwLoadFailureExit {
			return fmt.Errorf("%w: %s", ErrModelLoad, detail)
		}
		if detail != "" {
			return fmt.Errorf("faster-whisper failed: %s", detail)
		}
		return fmt.Errorf("run helper: %w", waitErr)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read helper output: %w", err)
	}
	return nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
