// Package checkpoint implements the durable, append-only JSON-lines
// checkpoint file written by the worker. The file has exactly one
// writer (the worker) and is only ever read by the controlling
// process, so no cross-process locking is needed on the data; the
// claim transition is a single atomic rename.
package checkpoint

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethanbaker/transcribe/pkg/transcript"
)

// MarkerSeq is the sequence number reserved for the completion marker
const MarkerSeq = -1

// Header identifies the run that produced a checkpoint file. It is
// written as the first record (sequence 0) so recovery can attribute
// the file without any out-of-band state.
type Header struct {
	AudioPath string    `json:"audio_path"`
	Model     string    `json:"model"`
	Device    string    `json:"device,omitempty"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// Record is one checkpoint line: a header (Seq 0), a batch of whole
// segments (Seq 1..N), or the completion marker (Seq -1).
type Record struct {
	Seq           int64                `json:"seq"`
	Header        *Header              `json:"header,omitempty"`
	Segments      []transcript.Segment `json:"segments,omitempty"`
	Complete      bool                 `json:"complete,omitempty"`
	TotalSegments int                  `json:"total_segments,omitempty"`
}

// IsMarker reports whether the record is the completion marker
func (r Record) IsMarker() bool {
	return r.Seq == MarkerSeq && r.Complete
}

// FileSuffix is the extension of an unclaimed checkpoint file
const FileSuffix = ".ckpt.jsonl"

// ClaimedSuffix is appended when a checkpoint is claimed
const ClaimedSuffix = ".claimed"

// FileName derives the checkpoint file name for an audio source and
// run start time. The derivation is deterministic so the supervisor
// and the worker agree on identity, and distinct runs against the
// same audio do not collide.
func FileName(audioPath string, start time.Time) string {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return fmt.Sprintf("%s-%s%s", base, start.Format("20060102-150405"), FileSuffix)
}
