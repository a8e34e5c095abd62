package engine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ethanbaker/transcribe/pkg/transcript"
	"github.com/sashabaranov/go-openai"
)

// OpenAI transcribes through the hosted Whisper API. The API returns
// the whole result at once, so segments are emitted in order after the
// call rather than as recognition proceeds; the rest of the pipeline
// does not care.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates the cloud engine
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{client: openai.NewClient(apiKey)}
}

func (o *OpenAI) Name() string { return "openai" }

// Recognize runs one transcription request with segment and word
// timestamps and pushes the segments in order
func (o *OpenAI) Recognize(ctx context.Context, audioPath string, opts Options, sink Sink) error {
	model := opts.Model
	if model == "" {
		model = openai.Whisper1
	}

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: audioPath,
		Prompt:   opts.InitialPrompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		// The API never partially succeeds; treat auth/model errors as
		// load failures so the worker reports a resource error
		if strings.Contains(err.Error(), "model") || strings.Contains(err.Error(), "401") {
			return fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
		return fmt.Errorf("transcription request: %w", err)
	}

	if err := sink.Info(Info{Language: resp.Language, DurationSec: float64(resp.Duration)}); err != nil {
		return err
	}

	for _, apiSeg := range resp.Segments {
		seg := transcript.Segment{
			ID:    transcript.NewSegmentID(),
			Start: apiSeg.Start,
			End:   apiSeg.End,
			Text:  strings.TrimSpace(apiSeg.Text),
		}

		// The API reports confidence as a mean log-probability per
		// segment; carry it onto the words that fall in range
		confidence := math.Exp(apiSeg.AvgLogprob)
		if confidence > 1 {
			confidence = 1
		}
		for _, w := range resp.Words {
			if w.Start >= apiSeg.Start && w.End <= apiSeg.End {
				seg.Words = append(seg.Words, transcript.Word{
					Text:       strings.TrimSpace(w.Word),
					Start:      w.Start,
					End:        w.End,
					Confidence: confidence,
				})
			}
		}

		if err := sink.Segment(seg); err != nil {
			return err
		}
	}
	return nil
}
