// Package sdk holds the wire types shared by the transcription API and
// its clients, plus a small HTTP client wrapping the endpoints.
package sdk

import (
	"encoding/json"
	"time"

	"github.com/ethanbaker/transcribe/pkg/transcript"
)

// StatusType labels an API response outcome
type StatusType string

const (
	StatusSuccess StatusType = "success"
	StatusError   StatusType = "error"
)

// ApiResponse represents a standard API response structure
type ApiResponse[T any] struct {
	Status  StatusType `json:"status"`          // Status message
	Code    int        `json:"code"`            // Status code
	Message string     `json:"message"`         // Human-readable message
	Data    T          `json:"data,omitempty"`  // Optional data field for successful responses
	Error   any        `json:"error,omitempty"` // Optional errors field for error responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

// AsJSON converts the ApiResponse to a format suitable for JSON responses
func (r ApiResponse[T]) AsJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func NewSuccess(message string) ApiResponse[any] {
	return ApiResponse[any]{
		Status:  StatusSuccess,
		Code:    200,
		Message: message,
	}
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  StatusSuccess,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(code int, message string, err any) ApiResponse[any] {
	return ApiResponse[any]{
		Status:  StatusError,
		Code:    code,
		Message: message,
		Error:   err,
	}
}

/** Run Module DTOs */

// StartRunRequest represents the request body for starting a transcription run
type StartRunRequest struct {
	AudioPath   string `json:"audio_path" binding:"required"` // Audio file to transcribe
	Model       string `json:"model"`                         // Recognition model (defaults to server config)
	Device      string `json:"device"`                        // Compute device (auto, cpu, cuda)
	Engine      string `json:"engine"`                        // Recognition engine
	VocabFile   string `json:"vocab_file"`                    // Optional custom vocabulary file
	SegmentMode string `json:"segment_mode"`                  // Segmentation mode (natural, sentence)
}

// Run represents an active or finished transcription run
type Run struct {
	ID        string    `json:"id"`
	AudioPath string    `json:"audio_path"`
	Model     string    `json:"model"`
	StartedAt time.Time `json:"started_at"`
	LastSeq   int64     `json:"last_seq"`
	Active    bool      `json:"active"`
}

// RunProgress is a point-in-time progress report for a run
type RunProgress struct {
	RunID     string  `json:"run_id"`
	Fraction  float64 `json:"fraction"`
	ElapsedMs int64   `json:"elapsed_ms"`
	LastSeq   int64   `json:"last_seq"`
}

/** Recovery Module DTOs */

// CheckpointManifest describes one recoverable checkpoint file
type CheckpointManifest struct {
	ID             string    `json:"id"`
	AudioPath      string    `json:"audio_path"`
	Model          string    `json:"model"`
	LastSeq        int64     `json:"last_seq"`
	SegmentCount   int       `json:"segment_count"`
	Status         string    `json:"status"` // partial, orphaned, or complete
	CheckpointPath string    `json:"checkpoint_path"`
	ModifiedAt     time.Time `json:"modified_at"`
}

// RecoveryListResponse represents the response for listing recoverable checkpoints
type RecoveryListResponse struct {
	Manifests []CheckpointManifest `json:"manifests"`
	Count     int                  `json:"count"`
}

// PromoteResponse carries the transcript reconstructed from a checkpoint
type PromoteResponse struct {
	Transcript  *transcript.Transcript `json:"transcript"`
	ClaimedPath string                 `json:"claimed_path"`
}

/** Library Module DTOs */

// LibraryEntry represents one cataloged transcription run
type LibraryEntry struct {
	ID              string    `json:"id"`
	AudioPath       string    `json:"audio_path"`
	Model           string    `json:"model"`
	Status          string    `json:"status"`
	SegmentCount    int       `json:"segment_count"`
	WordCount       int       `json:"word_count"`
	DurationSec     float64   `json:"duration_sec"`
	TranscriptPath  string    `json:"transcript_path"`
	CheckpointPath  string    `json:"checkpoint_path"`
	CaseNumber      string    `json:"case_number"`
	ParticipantName string    `json:"participant_name"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LibraryListResponse represents the response for listing library entries
type LibraryListResponse struct {
	Entries []LibraryEntry `json:"entries"`
	Count   int            `json:"count"`
}
