package runs_module

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	library_module "github.com/ethanbaker/transcribe/internal/api/modules/library"
	"github.com/ethanbaker/transcribe/internal/assemble"
	"github.com/ethanbaker/transcribe/internal/library"
	"github.com/ethanbaker/transcribe/internal/recovery"
	"github.com/ethanbaker/transcribe/internal/supervisor"
	"github.com/ethanbaker/transcribe/pkg/sdk"
	"github.com/ethanbaker/transcribe/pkg/transcript"
	"github.com/ethanbaker/transcribe/pkg/utils"
)

// RunsService launches and tracks transcription runs. Every run is a
// supervised worker subprocess; when one finishes the service assembles
// the transcript, snapshots it and registers it in the catalog.
type RunsService struct {
	supervisor  *supervisor.Supervisor
	autosaveDir string

	// Request defaults from configuration
	defaultModel  string
	defaultDevice string
	defaultEngine string
	flushEvery    int
}

var runsService *RunsService

/** ---- INIT ---- */

// Init creates the runs service from configuration
func Init(cfg *utils.Config) error {
	checkpointDir := cfg.Get("CHECKPOINT_DIR")
	if checkpointDir == "" {
		return fmt.Errorf("CHECKPOINT_DIR not set in environment")
	}

	workerCmd := strings.Fields(cfg.GetWithDefault("WORKER_COMMAND", "transcribe-worker"))

	sup, err := supervisor.New(supervisor.Options{
		WorkerCommand:    workerCmd,
		CheckpointDir:    checkpointDir,
		HeartbeatTimeout: cfg.GetDuration("HEARTBEAT_TIMEOUT", supervisor.DefaultHeartbeatTimeout),
		GracePeriod:      cfg.GetDuration("GRACE_PERIOD", supervisor.DefaultGracePeriod),
		MaxWorkers:       cfg.GetIntWithDefault("MAX_WORKERS", supervisor.DefaultMaxWorkers),
		WaitForSlot:      cfg.GetBool("WAIT_FOR_SLOT"),
	})
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}

	runsService = &RunsService{
		supervisor:    sup,
		autosaveDir:   cfg.GetWithDefault("AUTOSAVE_DIR", checkpointDir),
		defaultModel:  cfg.GetWithDefault("WHISPER_MODEL", "small"),
		defaultDevice: cfg.GetWithDefault("WHISPER_DEVICE", "auto"),
		defaultEngine: cfg.GetWithDefault("ENGINE", "fasterwhisper"),
		flushEvery:    cfg.GetInt("FLUSH_EVERY"),
	}
	return nil
}

// GetService returns the initialized runs service
func GetService() *RunsService {
	return runsService
}

/** ---- OPERATIONS ---- */

// Start launches a worker for the request and finalizes the run in the
// background once the worker exits
func (s *RunsService) Start(ctx context.Context, req *sdk.StartRunRequest) (*supervisor.Run, error) {
	run, err := s.supervisor.Start(ctx, supervisor.Request{
		AudioPath:   req.AudioPath,
		Model:       defaultString(req.Model, s.defaultModel),
		Device:      defaultString(req.Device, s.defaultDevice),
		Engine:      defaultString(req.Engine, s.defaultEngine),
		VocabFile:   req.VocabFile,
		SegmentMode: req.SegmentMode,
		FlushEvery:  s.flushEvery,
	})
	if err != nil {
		return nil, err
	}

	go s.finalize(run)

	return run, nil
}

// finalize drains a run's events into a transcript, then snapshots and
// catalogs the result. Runs on its own goroutine per run.
func (s *RunsService) finalize(run *supervisor.Run) {
	tr, err := assemble.FromEvents(run.AudioPath, run.Model, run.Events(), assemble.Options{})
	if err != nil {
		log.Printf("[RUNS]: assemble %s: %v", run.AudioPath, err)
	}

	result := s.supervisor.Wait(run)
	if result.Err != nil {
		log.Printf("[RUNS]: run %s for %s failed: %v", run.ID, run.AudioPath, result.Err)
	}

	// Snapshot whatever was assembled, partial results included
	snapshotPath := filepath.Join(s.autosaveDir, transcript.SnapshotName(run.AudioPath, run.StartedAt))
	if err := transcript.SaveSnapshot(tr, snapshotPath); err != nil {
		log.Printf("[RUNS]: autosave %s: %v", snapshotPath, err)
		snapshotPath = ""
	}

	// A clean run's checkpoint is consumed here; claim it so recovery
	// scans stop offering it
	checkpointPath := result.CheckpointPath
	if result.Err == nil && checkpointPath != "" {
		if err := recovery.Claim(checkpointPath); err != nil {
			log.Printf("[RUNS]: claim %s: %v", checkpointPath, err)
		} else {
			checkpointPath += ".claimed"
		}
	}

	entry := library.NewEntry(tr, snapshotPath, checkpointPath)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := library_module.GetService().Register(ctx, entry); err != nil {
		log.Printf("[RUNS]: catalog %s: %v", run.AudioPath, err)
	}
}

// List returns all active runs
func (s *RunsService) List() []*supervisor.Run {
	return s.supervisor.ActiveRuns()
}

// Get returns the active run for an audio path
func (s *RunsService) Get(audioPath string) (*supervisor.Run, bool) {
	return s.supervisor.Get(audioPath)
}

// Cancel stops the active run for an audio path
func (s *RunsService) Cancel(audioPath string) error {
	run, ok := s.supervisor.Get(audioPath)
	if !ok {
		return fmt.Errorf("no active run for %s", audioPath)
	}
	s.supervisor.Cancel(run)
	return nil
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// toSDKRun converts a run handle to its wire representation
func toSDKRun(run *supervisor.Run, active bool) sdk.Run {
	return sdk.Run{
		ID:        run.ID.String(),
		AudioPath: run.AudioPath,
		Model:     run.Model,
		StartedAt: run.StartedAt,
		LastSeq:   run.LastSeq(),
		Active:    active,
	}
}
