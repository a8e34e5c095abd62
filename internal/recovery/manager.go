// Package recovery reconstructs partial transcripts from the
// checkpoint files that abnormally terminated runs leave behind.
package recovery

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/ethanbaker/transcribe/internal/assemble"
	"github.com/ethanbaker/transcribe/internal/checkpoint"
	"github.com/ethanbaker/transcribe/pkg/transcript"
)

// ManifestStatus classifies one recoverable checkpoint
type ManifestStatus string

const (
	// StatusPartial is a run that died mid-stream
	StatusPartial ManifestStatus = "partial"
	// StatusOrphaned is a partial run whose producer is gone or whose
	// file is past the retention threshold
	StatusOrphaned ManifestStatus = "orphaned"
	// StatusComplete is a fully drained run whose checkpoint was never
	// claimed, i.e. the controlling process crashed after completion
	StatusComplete ManifestStatus = "complete"
)

// Manifest describes one unclaimed checkpoint file found by a scan
type Manifest struct {
	ID             string         `json:"id"` // checkpoint file base name, stable across scans
	AudioPath      string         `json:"audio_path"`
	Model          string         `json:"model"`
	LastSeq        int64          `json:"last_seq"`
	SegmentCount   int            `json:"segment_count"`
	Status         ManifestStatus `json:"status"`
	CheckpointPath string         `json:"checkpoint_path"`
	ModifiedAt     time.Time      `json:"modified_at"`
}

// DefaultRetention is how old a partial checkpoint may be before it is
// classified as orphaned even if its producer cannot be ruled out
const DefaultRetention = 24 * time.Hour

// ArchiveDir is the subdirectory discarded checkpoints are moved into
const ArchiveDir = "archive"

// Manager scans a checkpoint directory for unclaimed files and
// reconstructs transcripts from them
type Manager struct {
	dir       string
	retention time.Duration
}

// NewManager creates a manager over the given checkpoint directory
func NewManager(dir string, retention time.Duration) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Manager{dir: dir, retention: retention}
}

// Scan enumerates unclaimed checkpoint files and builds a manifest for
// each. Scanning is read-only and idempotent: repeated scans without a
// promote or discard in between return the same manifests. Files that
// cannot be attributed (no readable header) are skipped with a warning.
func (m *Manager) Scan() ([]Manifest, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint dir: %w", err)
	}

	var manifests []Manifest
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), checkpoint.FileSuffix) {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		contents, err := checkpoint.ReadFile(path)
		if err != nil {
			log.Printf("[RECOVERY]: warning, unreadable checkpoint %s: %v", entry.Name(), err)
			continue
		}
		if contents.Header == nil {
			log.Printf("[RECOVERY]: warning, checkpoint %s has no header, skipping", entry.Name())
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		manifests = append(manifests, Manifest{
			ID:             entry.Name(),
			AudioPath:      contents.Header.AudioPath,
			Model:          contents.Header.Model,
			LastSeq:        contents.LastSeq(),
			SegmentCount:   contents.SegmentCount(),
			Status:         m.classify(contents, info.ModTime()),
			CheckpointPath: path,
			ModifiedAt:     info.ModTime(),
		})
	}

	sort.Slice(manifests, func(i, j int) bool { return manifests[i].ID < manifests[j].ID })
	return manifests, nil
}

// classify decides the manifest status for one checkpoint
func (m *Manager) classify(contents checkpoint.Contents, modified time.Time) ManifestStatus {
	if contents.Complete {
		return StatusComplete
	}
	if time.Since(modified) > m.retention {
		return StatusOrphaned
	}
	if contents.Header.PID > 0 && !processAlive(contents.Header.PID) {
		return StatusOrphaned
	}
	return StatusPartial
}

// Reconstruct rebuilds a transcript from the manifest's checkpoint in
// sequence-number order. The transcript is partial unless the
// completion marker was present.
func (m *Manager) Reconstruct(manifest Manifest) (*transcript.Transcript, error) {
	contents, err := checkpoint.ReadFile(manifest.CheckpointPath)
	if err != nil {
		return nil, fmt.Errorf("reconstruct %s: %w", manifest.ID, err)
	}
	return assemble.FromContents(contents), nil
}

// Promote marks the manifest's checkpoint as claimed so subsequent
// scans no longer offer it. The claim is a single atomic rename.
func (m *Manager) Promote(manifest Manifest) error {
	claimed := manifest.CheckpointPath + checkpoint.ClaimedSuffix
	if err := os.Rename(manifest.CheckpointPath, claimed); err != nil {
		return fmt.Errorf("claim checkpoint %s: %w", manifest.ID, err)
	}
	log.Printf("[RECOVERY]: claimed %s", manifest.ID)
	return nil
}

// Discard moves the manifest's checkpoint into the archive
// subdirectory without reconstruction
func (m *Manager) Discard(manifest Manifest) error {
	archive := filepath.Join(m.dir, ArchiveDir)
	if err := os.MkdirAll(archive, 0o755); err != nil {
		return fmt.Errorf("make archive dir: %w", err)
	}
	dest := filepath.Join(archive, manifest.ID)
	if err := os.Rename(manifest.CheckpointPath, dest); err != nil {
		return fmt.Errorf("archive checkpoint %s: %w", manifest.ID, err)
	}
	log.Printf("[RECOVERY]: archived %s", manifest.ID)
	return nil
}

// Claim marks a checkpoint file claimed directly by path. The
// supervisor uses this after a clean run so the file is never offered
// for recovery.
func Claim(checkpointPath string) error {
	if err := os.Rename(checkpointPath, checkpointPath+checkpoint.ClaimedSuffix); err != nil {
		return fmt.Errorf("claim checkpoint: %w", err)
	}
	return nil
}

// processAlive reports whether a process with the given PID exists
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
