package assemble

import (
	"os"
	"testing"
	"time"

	"github.com/ethanbaker/transcribe/internal/checkpoint"
	"github.com/ethanbaker/transcribe/pkg/protocol"
	"github.com/ethanbaker/transcribe/pkg/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seg(id string, start, end float64) transcript.Segment {
	return transcript.Segment{
		ID: id, Start: start, End: end, Text: "text " + id,
		Words: []transcript.Word{{Text: id, Start: start, End: end, Confidence: 0.9}},
	}
}

func TestFromEventsComplete(t *testing.T) {
	autosaveDir := t.TempDir()

	events := make(chan protocol.Event, 8)
	events <- protocol.Started("base", "cpu")
	events <- protocol.Progress(0.3, 100)
	events <- protocol.SegmentEvent(1, seg("a", 0, 1))
	events <- protocol.SegmentEvent(2, seg("b", 1, 2))
	events <- protocol.Completed(2, "/ckpt/x.ckpt.jsonl")
	close(events)

	tr, err := FromEvents("/audio/x.wav", "base", events, Options{AutosaveDir: autosaveDir})
	require.NoError(t, err)
	assert.Equal(t, transcript.StatusComplete, tr.Status)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, "a", tr.Segments[0].ID)
	assert.Equal(t, 2, tr.WordCount())

	// Autosave snapshot was written alongside
	entries, err := os.ReadDir(autosaveDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	loaded, err := transcript.LoadSnapshot(autosaveDir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Equal(t, transcript.StatusComplete, loaded.Status)
	assert.Len(t, loaded.Segments, 2)
}

func TestFromEventsErrorYieldsPartial(t *testing.T) {
	events := make(chan protocol.Event, 4)
	events <- protocol.Started("base", "cpu")
	events <- protocol.SegmentEvent(1, seg("a", 0, 1))
	events <- protocol.ErrorEvent("worker crashed", protocol.CodeGenericFailure)
	close(events)

	tr, err := FromEvents("/audio/x.wav", "base", events, Options{})
	require.NoError(t, err)
	assert.Equal(t, transcript.StatusPartial, tr.Status)
	assert.Len(t, tr.Segments, 1)
}

func TestFromEventsEarlyCloseYieldsPartial(t *testing.T) {
	// Stream cut off with no terminal event, as after a kill
	events := make(chan protocol.Event, 4)
	events <- protocol.Started("base", "cpu")
	events <- protocol.SegmentEvent(1, seg("a", 0, 1))
	close(events)

	tr, err := FromEvents("/audio/x.wav", "base", events, Options{})
	require.NoError(t, err)
	assert.Equal(t, transcript.StatusPartial, tr.Status)
}

func TestDuplicateSequencesDropped(t *testing.T) {
	events := make(chan protocol.Event, 4)
	events <- protocol.SegmentEvent(1, seg("a", 0, 1))
	events <- protocol.SegmentEvent(1, seg("a-again", 0, 1))
	events <- protocol.Completed(1, "")
	close(events)

	tr, err := FromEvents("/audio/x.wav", "base", events, Options{})
	require.NoError(t, err)
	require.Len(t, tr.Segments, 1)
	assert.Equal(t, "a", tr.Segments[0].ID)
}

func TestFromContents(t *testing.T) {
	header := &checkpoint.Header{
		AudioPath: "/audio/y.wav",
		Model:     "large-v3",
		StartedAt: time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC),
	}

	t.Run("partial without marker", func(t *testing.T) {
		contents := checkpoint.Contents{
			Header: header,
			// Records deliberately out of order; sequence wins
			Records: []checkpoint.Record{
				{Seq: 2, Segments: []transcript.Segment{seg("c", 2, 3)}},
				{Seq: 1, Segments: []transcript.Segment{seg("a", 0, 1), seg("b", 1, 2)}},
			},
		}

		tr := FromContents(contents)
		assert.Equal(t, transcript.StatusPartial, tr.Status)
		assert.Equal(t, "/audio/y.wav", tr.AudioPath)
		assert.Equal(t, "large-v3", tr.Model)
		assert.Equal(t, header.StartedAt, tr.CreatedAt)
		require.Len(t, tr.Segments, 3)
		assert.Equal(t, "a", tr.Segments[0].ID)
		assert.Equal(t, "c", tr.Segments[2].ID)
		// Word count equals the sum over records
		assert.Equal(t, 3, tr.WordCount())
	})

	t.Run("complete with marker", func(t *testing.T) {
		contents := checkpoint.Contents{
			Header:        header,
			Records:       []checkpoint.Record{{Seq: 1, Segments: []transcript.Segment{seg("a", 0, 1)}}},
			Complete:      true,
			TotalSegments: 1,
		}
		tr := FromContents(contents)
		assert.Equal(t, transcript.StatusComplete, tr.Status)
	})
}
