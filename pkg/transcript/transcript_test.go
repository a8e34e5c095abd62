package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordValidate(t *testing.T) {
	tests := []struct {
		name    string
		word    Word
		wantErr bool
	}{
		{
			name: "valid word",
			word: Word{Text: "hello", Start: 1.0, End: 1.5, Confidence: 0.95},
		},
		{
			name: "zero duration word",
			word: Word{Text: "uh", Start: 2.0, End: 2.0, Confidence: 0.4},
		},
		{
			name:    "start after end",
			word:    Word{Text: "bad", Start: 2.0, End: 1.0, Confidence: 0.5},
			wantErr: true,
		},
		{
			name:    "confidence above one",
			word:    Word{Text: "bad", Start: 1.0, End: 2.0, Confidence: 1.5},
			wantErr: true,
		},
		{
			name:    "negative confidence",
			word:    Word{Text: "bad", Start: 1.0, End: 2.0, Confidence: -0.1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.word.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSegmentValidate(t *testing.T) {
	t.Run("valid segment with words", func(t *testing.T) {
		s := Segment{
			ID:    "seg1",
			Start: 0.0,
			End:   3.0,
			Text:  "hello world",
			Words: []Word{
				{Text: "hello", Start: 0.0, End: 1.0, Confidence: 0.9},
				{Text: "world", Start: 1.2, End: 2.8, Confidence: 0.8},
			},
		}
		assert.NoError(t, s.Validate())
	})

	t.Run("start after end", func(t *testing.T) {
		s := Segment{ID: "seg1", Start: 5.0, End: 3.0}
		assert.Error(t, s.Validate())
	})

	t.Run("word outside segment range", func(t *testing.T) {
		s := Segment{
			ID:    "seg1",
			Start: 0.0,
			End:   2.0,
			Words: []Word{
				{Text: "late", Start: 1.0, End: 3.0, Confidence: 0.9},
			},
		}
		assert.Error(t, s.Validate())
	})

	t.Run("words out of order", func(t *testing.T) {
		s := Segment{
			ID:    "seg1",
			Start: 0.0,
			End:   4.0,
			Words: []Word{
				{Text: "second", Start: 2.0, End: 3.0, Confidence: 0.9},
				{Text: "first", Start: 0.5, End: 1.0, Confidence: 0.9},
			},
		}
		assert.Error(t, s.Validate())
	})
}

func TestSegmentDisplayText(t *testing.T) {
	s := Segment{Text: "original text"}
	assert.Equal(t, "original text", s.DisplayText())

	s.Speaker = "Interviewer"
	assert.Equal(t, "Interviewer: original text", s.DisplayText())

	s.EditedText = "corrected text"
	assert.Equal(t, "Interviewer: corrected text", s.DisplayText())
}

func TestSegmentConfidence(t *testing.T) {
	s := Segment{
		Start: 0, End: 3,
		Words: []Word{
			{Text: "a", Start: 0, End: 1, Confidence: 1.0},
			{Text: "b", Start: 1, End: 2, Confidence: 0.5},
			{Text: "c", Start: 2, End: 3, Confidence: 0.9},
		},
	}
	assert.InDelta(t, 0.8, s.AverageConfidence(), 1e-9)

	low := s.LowConfidenceWords(0.8)
	require.Len(t, low, 1)
	assert.Equal(t, "b", low[0].Text)

	// No words means full confidence
	empty := Segment{}
	assert.Equal(t, 1.0, empty.AverageConfidence())
}

func TestTranscript(t *testing.T) {
	tr := New("/audio/interview.wav", "large-v3")
	require.NotEmpty(t, tr.ID)
	assert.Equal(t, StatusPartial, tr.Status)
	assert.Zero(t, tr.Duration())

	tr.Segments = []Segment{
		{ID: "b", Start: 2.0, End: 4.0, Words: []Word{{Text: "x", Start: 2, End: 3, Confidence: 1}}},
		{ID: "a", Start: 0.0, End: 1.5, Words: []Word{{Text: "y", Start: 0, End: 1, Confidence: 1}, {Text: "z", Start: 1, End: 1.5, Confidence: 1}}},
	}

	assert.Equal(t, 3, tr.WordCount())

	tr.Sort()
	assert.Equal(t, "a", tr.Segments[0].ID)
	assert.Equal(t, "b", tr.Segments[1].ID)
	assert.Equal(t, 4.0, tr.Duration())
	assert.NoError(t, tr.Validate())
}
