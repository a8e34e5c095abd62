// Package assemble merges progress events or checkpoint records into a
// final transcript. Sequence numbers are the only ordering key; the
// assembler defends against duplicate sequences so a protocol
// violation cannot corrupt the result.
package assemble

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"github.com/ethanbaker/transcribe/internal/checkpoint"
	"github.com/ethanbaker/transcribe/pkg/protocol"
	"github.com/ethanbaker/transcribe/pkg/transcript"
)

// Assembler accumulates segments in sequence order for one run
type Assembler struct {
	tr   *transcript.Transcript
	seen map[int64]bool
}

// New creates an assembler for the given audio source and model
func New(audioPath, model string) *Assembler {
	return &Assembler{
		tr:   transcript.New(audioPath, model),
		seen: make(map[int64]bool),
	}
}

// Add appends segments under the given sequence number. Duplicate
// sequences are dropped with a warning; they indicate a writer bug
// but must not corrupt the transcript.
func (a *Assembler) Add(seq int64, segments ...transcript.Segment) {
	if a.seen[seq] {
		log.Printf("[ASSEMBLER]: dropping duplicate sequence %d", seq)
		return
	}
	a.seen[seq] = true
	a.tr.Segments = append(a.tr.Segments, segments...)
}

// Finish marks the transcript with the given status and returns it.
// Segments are sorted by start time as a final repair; they normally
// arrive already ordered.
func (a *Assembler) Finish(status transcript.Status) *transcript.Transcript {
	a.tr.Status = status
	sort.SliceStable(a.tr.Segments, func(i, j int) bool {
		return a.tr.Segments[i].Start < a.tr.Segments[j].Start
	})
	return a.tr
}

// Options configures the live assembly path
type Options struct {
	// AutosaveDir, when set, receives a snapshot of the finished
	// transcript before it is returned to the caller
	AutosaveDir string
}

// FromEvents consumes a run's progress events and assembles the
// transcript. The channel must be closed by the producer once the run
// ends. A completed event yields a complete transcript (with an
// autosave snapshot when configured); an error event or early close
// yields a partial one.
func FromEvents(audioPath, model string, events <-chan protocol.Event, opts Options) (*transcript.Transcript, error) {
	a := New(audioPath, model)
	status := transcript.StatusPartial

	for ev := range events {
		switch ev.Type {
		case protocol.EventSegment:
			a.Add(ev.Seq, *ev.Segment)
		case protocol.EventCompleted:
			status = transcript.StatusComplete
		case protocol.EventError:
			status = transcript.StatusPartial
		}
	}

	tr := a.Finish(status)

	if status == transcript.StatusComplete && opts.AutosaveDir != "" {
		path := filepath.Join(opts.AutosaveDir, transcript.SnapshotName(audioPath, tr.CreatedAt))
		if err := transcript.SaveSnapshot(tr, path); err != nil {
			return tr, fmt.Errorf("autosave snapshot: %w", err)
		}
	}
	return tr, nil
}

// FromContents rebuilds a transcript from recovered checkpoint
// contents, ordered by record sequence number. The transcript is
// complete only when the completion marker was present.
func FromContents(contents checkpoint.Contents) *transcript.Transcript {
	audioPath, model := "", ""
	if contents.Header != nil {
		audioPath = contents.Header.AudioPath
		model = contents.Header.Model
	}

	a := New(audioPath, model)

	records := make([]checkpoint.Record, len(contents.Records))
	copy(records, contents.Records)
	sort.SliceStable(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })

	for _, rec := range records {
		a.Add(rec.Seq, rec.Segments...)
	}

	status := transcript.StatusPartial
	if contents.Complete {
		status = transcript.StatusComplete
	}
	tr := a.Finish(status)
	if contents.Header != nil {
		tr.CreatedAt = contents.Header.StartedAt
	}
	return tr
}
