// Package library keeps the catalog of transcription runs: one entry
// per audio file processed, pointing at the saved transcript and the
// checkpoint it was assembled from.
package library

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ethanbaker/transcribe/pkg/transcript"
)

// Entry is one cataloged transcription run
type Entry struct {
	ID uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`

	AudioPath string `gorm:"index" json:"audio_path"`
	Model     string `json:"model"`
	Status    string `gorm:"index" json:"status"`

	SegmentCount int     `json:"segment_count"`
	WordCount    int     `json:"word_count"`
	DurationSec  float64 `json:"duration_sec"`

	// Where the assembled transcript and its source checkpoint live
	TranscriptPath string `json:"transcript_path"`
	CheckpointPath string `json:"checkpoint_path"`

	// Interview metadata carried over from the transcript
	CaseNumber      string `gorm:"index" json:"case_number"`
	ParticipantName string `json:"participant_name"`
	Notes           string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntry builds a library entry from an assembled transcript
func NewEntry(tr *transcript.Transcript, transcriptPath, checkpointPath string) *Entry {
	id, err := uuid.Parse(tr.ID)
	if err != nil {
		id = uuid.New()
	}

	// Metadata is optional on a transcript
	meta := tr.Metadata
	if meta == nil {
		meta = &transcript.Metadata{}
	}

	return &Entry{
		ID:              id,
		AudioPath:       tr.AudioPath,
		Model:           tr.Model,
		Status:          string(tr.Status),
		SegmentCount:    len(tr.Segments),
		WordCount:       tr.WordCount(),
		DurationSec:     tr.Duration(),
		TranscriptPath:  transcriptPath,
		CheckpointPath:  checkpointPath,
		CaseNumber:      meta.CaseNumber,
		ParticipantName: meta.ParticipantName,
		Notes:           meta.Notes,
		CreatedAt:       tr.CreatedAt,
	}
}

// Validate checks the entry is storable
func (e *Entry) Validate() error {
	if e.ID == uuid.Nil {
		return fmt.Errorf("entry has no id")
	}
	if e.AudioPath == "" {
		return fmt.Errorf("entry has no audio path")
	}
	return nil
}
