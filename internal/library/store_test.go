package library

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanbaker/transcribe/pkg/transcript"
)

func newTestEntry(audioPath string) *Entry {
	tr := transcript.New(audioPath, "small")
	tr.Status = transcript.StatusComplete
	tr.Metadata = &transcript.Metadata{
		CaseNumber:      "2026-0142",
		ParticipantName: "J. Doe",
	}
	tr.Segments = []transcript.Segment{
		{ID: "a", Start: 0, End: 3, Text: "hello there"},
	}
	return NewEntry(tr, "/transcripts/out.json", "/checkpoints/out.ckpt.jsonl")
}

func TestNewEntry(t *testing.T) {
	entry := newTestEntry("/audio/interview.wav")

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, "/audio/interview.wav", entry.AudioPath)
	assert.Equal(t, string(transcript.StatusComplete), entry.Status)
	assert.Equal(t, 1, entry.SegmentCount)
	assert.Equal(t, 3.0, entry.DurationSec)
	assert.Equal(t, "2026-0142", entry.CaseNumber)
	assert.Nil(t, entry.Validate())
}

func TestNewEntryWithoutMetadata(t *testing.T) {
	tr := transcript.New("/audio/interview.wav", "small")
	tr.Segments = []transcript.Segment{
		{ID: "a", Start: 0, End: 3, Text: "hello there"},
	}

	entry := NewEntry(tr, "/transcripts/out.json", "/checkpoints/out.ckpt.jsonl")

	assert.Equal(t, "/audio/interview.wav", entry.AudioPath)
	assert.Empty(t, entry.CaseNumber)
	assert.Empty(t, entry.ParticipantName)
	assert.Nil(t, entry.Validate())
}

func TestInMemoryStoreCreateAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	entry := newTestEntry("/audio/interview.wav")
	require.Nil(t, store.CreateEntry(ctx, entry))

	t.Run("get existing", func(t *testing.T) {
		got, err := store.GetEntry(ctx, entry.ID)
		require.Nil(t, err)
		assert.Equal(t, entry.AudioPath, got.AudioPath)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := store.GetEntry(ctx, uuid.New())
		assert.NotNil(t, err)
	})

	t.Run("duplicate create fails", func(t *testing.T) {
		err := store.CreateEntry(ctx, entry)
		assert.NotNil(t, err)
	})

	t.Run("invalid entry rejected", func(t *testing.T) {
		err := store.CreateEntry(ctx, &Entry{ID: uuid.New()})
		assert.NotNil(t, err)
	})
}

func TestInMemoryStoreListOrder(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	older := newTestEntry("/audio/first.wav")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := newTestEntry("/audio/second.wav")

	require.Nil(t, store.CreateEntry(ctx, older))
	require.Nil(t, store.CreateEntry(ctx, newer))

	entries, err := store.ListEntries(ctx)
	require.Nil(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/audio/second.wav", entries[0].AudioPath)
	assert.Equal(t, "/audio/first.wav", entries[1].AudioPath)
}

func TestInMemoryStoreUpdateStatus(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	entry := newTestEntry("/audio/interview.wav")
	entry.Status = string(transcript.StatusPartial)
	require.Nil(t, store.CreateEntry(ctx, entry))

	require.Nil(t, store.UpdateStatus(ctx, entry.ID, string(transcript.StatusComplete)))

	got, err := store.GetEntry(ctx, entry.ID)
	require.Nil(t, err)
	assert.Equal(t, string(transcript.StatusComplete), got.Status)

	t.Run("missing entry", func(t *testing.T) {
		err := store.UpdateStatus(ctx, uuid.New(), string(transcript.StatusComplete))
		assert.NotNil(t, err)
	})
}

func TestInMemoryStoreSearch(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	first := newTestEntry("/audio/interview-smith.wav")
	first.ParticipantName = "A. Smith"
	second := newTestEntry("/audio/interview-jones.wav")
	second.ParticipantName = "B. Jones"
	second.CaseNumber = "2026-0777"

	require.Nil(t, store.CreateEntry(ctx, first))
	require.Nil(t, store.CreateEntry(ctx, second))

	t.Run("by participant name", func(t *testing.T) {
		entries, err := store.SearchEntries(ctx, "smith")
		require.Nil(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "A. Smith", entries[0].ParticipantName)
	})

	t.Run("by case number", func(t *testing.T) {
		entries, err := store.SearchEntries(ctx, "0777")
		require.Nil(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "B. Jones", entries[0].ParticipantName)
	})

	t.Run("no match", func(t *testing.T) {
		entries, err := store.SearchEntries(ctx, "nothing-here")
		require.Nil(t, err)
		assert.Empty(t, entries)
	})
}

func TestInMemoryStoreDelete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	entry := newTestEntry("/audio/interview.wav")
	require.Nil(t, store.CreateEntry(ctx, entry))

	require.Nil(t, store.DeleteEntry(ctx, entry.ID))

	_, err := store.GetEntry(ctx, entry.ID)
	assert.NotNil(t, err)

	assert.NotNil(t, store.DeleteEntry(ctx, entry.ID))
}
