package recovery_module

import (
	"fmt"
	"log"
	"sync"

	"github.com/ethanbaker/transcribe/internal/recovery"
	"github.com/ethanbaker/transcribe/pkg/sdk"
	"github.com/ethanbaker/transcribe/pkg/transcript"
	"github.com/ethanbaker/transcribe/pkg/utils"
)

// RecoveryService wraps the checkpoint recovery manager for the API
type RecoveryService struct {
	manager *recovery.Manager
	janitor *recovery.Janitor

	// manifests from the latest scan, keyed by manifest ID so
	// promote/discard can resolve the path a client refers to
	mutex     sync.RWMutex
	manifests map[string]recovery.Manifest
}

var recoveryService *RecoveryService

/** ---- INIT ---- */

// Init creates the recovery service and starts the background janitor
// when a sweep schedule is configured
func Init(cfg *utils.Config) error {
	dir := cfg.Get("CHECKPOINT_DIR")
	if dir == "" {
		return fmt.Errorf("CHECKPOINT_DIR not set in environment")
	}

	retention := cfg.GetDuration("CHECKPOINT_RETENTION", recovery.DefaultRetention)
	manager := recovery.NewManager(dir, retention)

	recoveryService = &RecoveryService{
		manager:   manager,
		manifests: make(map[string]recovery.Manifest),
	}

	// Surface interrupted runs before the runs module can start new
	// ones against the same sources
	manifests, err := recoveryService.List()
	if err != nil {
		return fmt.Errorf("initial checkpoint scan: %w", err)
	}
	if len(manifests) > 0 {
		log.Printf("[RECOVERY]: %d recoverable checkpoint(s) in %s", len(manifests), dir)
	}

	// A sweep schedule of "off" disables the janitor entirely
	spec := cfg.GetWithDefault("JANITOR_SCHEDULE", "@hourly")
	if spec != "off" {
		recoveryService.janitor = recovery.NewJanitor(manager, spec)
		if err := recoveryService.janitor.Start(); err != nil {
			return fmt.Errorf("failed to start checkpoint janitor: %w", err)
		}
		log.Printf("[RECOVERY]: janitor sweeping %s on schedule %q", dir, spec)
	}

	return nil
}

// GetService returns the initialized recovery service
func GetService() *RecoveryService {
	return recoveryService
}

/** ---- OPERATIONS ---- */

// List performs a fresh scan of the checkpoint directory
func (s *RecoveryService) List() ([]recovery.Manifest, error) {
	manifests, err := s.manager.Scan()
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	s.manifests = make(map[string]recovery.Manifest, len(manifests))
	for _, m := range manifests {
		s.manifests[m.ID] = m
	}
	s.mutex.Unlock()

	return manifests, nil
}

// Promote reconstructs the transcript behind a manifest and claims the
// checkpoint so later scans skip it
func (s *RecoveryService) Promote(id string) (*transcript.Transcript, string, error) {
	manifest, err := s.find(id)
	if err != nil {
		return nil, "", err
	}

	tr, err := s.manager.Reconstruct(manifest)
	if err != nil {
		return nil, "", err
	}

	if err := s.manager.Promote(manifest); err != nil {
		return nil, "", err
	}

	return tr, manifest.CheckpointPath + ".claimed", nil
}

// Discard archives the checkpoint behind a manifest
func (s *RecoveryService) Discard(id string) error {
	manifest, err := s.find(id)
	if err != nil {
		return err
	}
	return s.manager.Discard(manifest)
}

// find resolves a manifest ID against the latest scan, rescanning once
// when the ID is unknown (the client may hold a fresher view)
func (s *RecoveryService) find(id string) (recovery.Manifest, error) {
	s.mutex.RLock()
	manifest, ok := s.manifests[id]
	s.mutex.RUnlock()
	if ok {
		return manifest, nil
	}

	if _, err := s.List(); err != nil {
		return recovery.Manifest{}, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	manifest, ok = s.manifests[id]
	if !ok {
		return recovery.Manifest{}, fmt.Errorf("no checkpoint with id %q", id)
	}
	return manifest, nil
}

// Stop halts the background janitor
func (s *RecoveryService) Stop() {
	if s.janitor != nil {
		s.janitor.Stop()
	}
}

// toSDKManifest converts a manifest to its wire representation
func toSDKManifest(m recovery.Manifest) sdk.CheckpointManifest {
	return sdk.CheckpointManifest{
		ID:             m.ID,
		AudioPath:      m.AudioPath,
		Model:          m.Model,
		LastSeq:        m.LastSeq,
		SegmentCount:   m.SegmentCount,
		Status:         string(m.Status),
		CheckpointPath: m.CheckpointPath,
		ModifiedAt:     m.ModifiedAt,
	}
}
