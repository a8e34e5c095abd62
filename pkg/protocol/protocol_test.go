package protocol

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ethanbaker/transcribe/pkg/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	seg := transcript.Segment{ID: "s1", Start: 0, End: 1, Text: "hi"}

	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{name: "started", event: Started("large-v3", "cuda")},
		{name: "started without model", event: Event{Type: EventStarted}, wantErr: true},
		{name: "progress", event: Progress(0.5, 1200)},
		{name: "progress fraction too high", event: Progress(1.5, 0), wantErr: true},
		{name: "segment", event: SegmentEvent(1, seg)},
		{name: "segment without payload", event: Event{Type: EventSegment, Seq: 1}, wantErr: true},
		{name: "segment with zero seq", event: Event{Type: EventSegment, Segment: &seg}, wantErr: true},
		{name: "completed", event: Completed(10, "/tmp/x.ckpt.jsonl")},
		{name: "error", event: ErrorEvent("model load failed", CodeResourceFailure)},
		{name: "error without message", event: Event{Type: EventError}, wantErr: true},
		{name: "unknown type", event: Event{Type: "telemetry"}, wantErr: true},
		{name: "empty type", event: Event{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	seg := transcript.Segment{
		ID: "s1", Start: 0, End: 2.5, Text: "hello world",
		Words: []transcript.Word{
			{Text: "hello", Start: 0, End: 1, Confidence: 0.9},
			{Text: "world", Start: 1.1, End: 2.4, Confidence: 0.85},
		},
	}

	require.NoError(t, enc.Emit(Started("base", "cpu")))
	require.NoError(t, enc.Emit(Progress(0.25, 500)))
	require.NoError(t, enc.Emit(SegmentEvent(1, seg)))
	require.NoError(t, enc.Emit(Completed(1, "/ckpt/test.ckpt.jsonl")))

	var events []Event
	stats, err := Decode(context.Background(), &buf, func(ev Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Delivered)
	assert.Equal(t, 0, stats.Skipped)

	require.Len(t, events, 4)
	assert.Equal(t, EventStarted, events[0].Type)
	assert.Equal(t, "base", events[0].Model)
	assert.Equal(t, EventProgress, events[1].Type)
	assert.Equal(t, EventSegment, events[2].Type)
	require.NotNil(t, events[2].Segment)
	assert.Equal(t, "hello world", events[2].Segment.Text)
	assert.Len(t, events[2].Segment.Words, 2)
	assert.Equal(t, EventCompleted, events[3].Type)
	assert.True(t, events[3].Terminal())
}

func TestEncoderRejectsInvalidEvent(t *testing.T) {
	enc := NewEncoder(&bytes.Buffer{})
	assert.Error(t, enc.Emit(Event{Type: "bogus"}))
}

func TestDecodeSkipsMalformedLines(t *testing.T) {
	// A garbled line in the middle must be dropped without disturbing
	// the delivery order of the surrounding events.
	stream := strings.Join([]string{
		`{"type":"started","model":"base","device":"cpu"}`,
		`{"type":"progress","fraction":0.5,"elapsed_ms":100}`,
		`{"type":"seg`,
		`{"type":"segment","seq":1,"segment":{"id":"s1","start":0,"end":1,"text":"ok"}}`,
		`{"type":"completed","total_segments":1}`,
	}, "\n") + "\n"

	var types []EventType
	stats, err := Decode(context.Background(), strings.NewReader(stream), func(ev Event) {
		types = append(types, ev.Type)
	})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Delivered)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []EventType{EventStarted, EventProgress, EventSegment, EventCompleted}, types)
}

func TestDecodeSkipsUnknownTypes(t *testing.T) {
	stream := `{"type":"telemetry","payload":"x"}` + "\n" +
		`{"type":"started","model":"base"}` + "\n"

	var events []Event
	stats, err := Decode(context.Background(), strings.NewReader(stream), func(ev Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, events, 1)
	assert.Equal(t, EventStarted, events[0].Type)
}

func TestDecodeEmptyStream(t *testing.T) {
	stats, err := Decode(context.Background(), strings.NewReader(""), func(Event) {
		t.Fatal("no events expected")
	})
	require.NoError(t, err)
	assert.Zero(t, stats.Delivered)
}

func TestDecodeContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := `{"type":"started","model":"base"}` + "\n" +
		`{"type":"progress","fraction":0.1}` + "\n"

	_, err := Decode(ctx, strings.NewReader(stream), func(Event) {})
	assert.ErrorIs(t, err, context.Canceled)
}
