package transcript

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Status describes how much of a transcript survived its run
type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
)

// Word represents a single recognized word with timing and confidence
type Word struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"` // seconds
	End        float64 `json:"end"`   // seconds
	Confidence float64 `json:"confidence"`
}

// Duration returns the word duration in seconds
func (w Word) Duration() float64 {
	return w.End - w.Start
}

// Validate checks that the word timing and confidence values are sane
func (w Word) Validate() error {
	if w.Start > w.End {
		return fmt.Errorf("word %q: start %.3f after end %.3f", w.Text, w.Start, w.End)
	}
	if w.Confidence < 0 || w.Confidence > 1 {
		return fmt.Errorf("word %q: confidence %.3f outside [0,1]", w.Text, w.Confidence)
	}
	return nil
}

// Segment represents one contiguous span of recognized speech
type Segment struct {
	ID         string  `json:"id"`
	Start      float64 `json:"start"` // seconds
	End        float64 `json:"end"`   // seconds
	Text       string  `json:"text"`
	Words      []Word  `json:"words,omitempty"`
	Speaker    string  `json:"speaker,omitempty"`
	Bookmarked bool    `json:"bookmarked,omitempty"`
	EditedText string  `json:"edited_text,omitempty"` // human override, never written by the engine
}

// NewSegmentID generates a short unique segment identifier
func NewSegmentID() string {
	return uuid.NewString()[:8]
}

// Duration returns the segment duration in seconds
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Validate checks segment invariants: start <= end, word ranges
// monotonically non-decreasing and contained in the segment range
func (s Segment) Validate() error {
	if s.Start > s.End {
		return fmt.Errorf("segment %s: start %.3f after end %.3f", s.ID, s.Start, s.End)
	}
	prev := s.Start
	for i, w := range s.Words {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("segment %s: %w", s.ID, err)
		}
		if w.Start < prev {
			return fmt.Errorf("segment %s: word %d starts at %.3f before previous end %.3f", s.ID, i, w.Start, prev)
		}
		if w.End > s.End {
			return fmt.Errorf("segment %s: word %d ends at %.3f after segment end %.3f", s.ID, i, w.End, s.End)
		}
		prev = w.Start
	}
	return nil
}

// DisplayText returns the text to show for this segment, preferring a
// human edit over the recognized text and prefixing the speaker label
func (s Segment) DisplayText() string {
	text := s.Text
	if s.EditedText != "" {
		text = s.EditedText
	}
	if s.Speaker != "" {
		return s.Speaker + ": " + text
	}
	return text
}

// AverageConfidence returns the mean word confidence, or 1.0 for a
// segment without word timings
func (s Segment) AverageConfidence() float64 {
	if len(s.Words) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, w := range s.Words {
		sum += w.Confidence
	}
	return sum / float64(len(s.Words))
}

// LowConfidenceWords returns the words with confidence below threshold
func (s Segment) LowConfidenceWords(threshold float64) []Word {
	var low []Word
	for _, w := range s.Words {
		if w.Confidence < threshold {
			low = append(low, w)
		}
	}
	return low
}

// Metadata holds optional case and participant information attached to
// a transcript
type Metadata struct {
	CaseNumber      string `json:"case_number,omitempty"`
	ParticipantName string `json:"participant_name,omitempty"`
	InterviewDate   string `json:"interview_date,omitempty"`
	Location        string `json:"location,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// Transcript is an ordered sequence of segments produced from one
// audio source by one model
type Transcript struct {
	ID        string    `json:"id"`
	AudioPath string    `json:"audio_path"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"status"`
	Metadata  *Metadata `json:"metadata,omitempty"`
	Segments  []Segment `json:"segments"`
}

// New creates an empty transcript for the given audio source and model
func New(audioPath, model string) *Transcript {
	return &Transcript{
		ID:        uuid.NewString(),
		AudioPath: audioPath,
		Model:     model,
		CreatedAt: time.Now(),
		Status:    StatusPartial,
	}
}

// WordCount returns the total number of words across all segments
func (t *Transcript) WordCount() int {
	count := 0
	for _, s := range t.Segments {
		count += len(s.Words)
	}
	return count
}

// Duration returns the end time of the last segment in seconds
func (t *Transcript) Duration() float64 {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// Sort orders segments by start time. Segments normally arrive already
// ordered; this is a stable repair for merged or recovered input.
func (t *Transcript) Sort() {
	sort.SliceStable(t.Segments, func(i, j int) bool {
		return t.Segments[i].Start < t.Segments[j].Start
	})
}

// Validate checks every segment invariant in the transcript
func (t *Transcript) Validate() error {
	for _, s := range t.Segments {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
