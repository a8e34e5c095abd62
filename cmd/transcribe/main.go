package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethanbaker/transcribe/internal/assemble"
	"github.com/ethanbaker/transcribe/internal/library"
	"github.com/ethanbaker/transcribe/internal/recovery"
	"github.com/ethanbaker/transcribe/internal/supervisor"
	"github.com/ethanbaker/transcribe/pkg/protocol"
	"github.com/ethanbaker/transcribe/pkg/transcript"
	"github.com/ethanbaker/transcribe/pkg/utils"
)

func main() {
	audio := flag.String("audio", "", "audio file to transcribe")
	model := flag.String("model", "", "recognition model (overrides WHISPER_MODEL)")
	device := flag.String("device", "", "compute device (overrides WHISPER_DEVICE)")
	engine := flag.String("engine", "", "recognition engine (overrides ENGINE)")
	vocabFile := flag.String("vocab", "", "custom vocabulary file")
	segmentMode := flag.String("segment-mode", "natural", "segmentation mode (natural, sentence)")
	resume := flag.String("resume", "", "recover the checkpoint with this manifest id instead of transcribing")
	discard := flag.String("discard", "", "archive the checkpoint with this manifest id")
	flag.Parse()

	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	// Load global config
	cfg := utils.NewConfigFromEnv(envFile)

	checkpointDir := cfg.GetWithDefault("CHECKPOINT_DIR", "checkpoints")
	if err := os.MkdirAll(checkpointDir, 0o755); err != nil {
		log.Fatalf("[TRANSCRIBE]: Failed to create checkpoint directory: %v", err)
	}

	manager := recovery.NewManager(checkpointDir, cfg.GetDuration("CHECKPOINT_RETENTION", recovery.DefaultRetention))

	// Interrupted runs are surfaced before any new work starts
	manifests, err := manager.Scan()
	if err != nil {
		log.Fatalf("[TRANSCRIBE]: Failed to scan checkpoints: %v", err)
	}

	switch {
	case *resume != "":
		resumeCheckpoint(manager, manifests, *resume, cfg)
		return
	case *discard != "":
		discardCheckpoint(manager, manifests, *discard)
		return
	}

	if len(manifests) > 0 {
		fmt.Printf("Found %d recoverable checkpoint(s):\n", len(manifests))
		for _, m := range manifests {
			fmt.Printf("  %-12s %s  %d segment(s)  [%s]\n", m.Status, m.AudioPath, m.SegmentCount, m.ID)
		}
		fmt.Println("Use -resume <id> to recover one, or -discard <id> to archive it.")
	}

	if *audio == "" {
		if len(manifests) == 0 {
			flag.Usage()
			os.Exit(2)
		}
		return
	}

	runOnce(cfg, checkpointDir, supervisor.Request{
		AudioPath:   *audio,
		Model:       firstNonEmpty(*model, cfg.GetWithDefault("WHISPER_MODEL", "small")),
		Device:      firstNonEmpty(*device, cfg.GetWithDefault("WHISPER_DEVICE", "auto")),
		Engine:      firstNonEmpty(*engine, cfg.GetWithDefault("ENGINE", "fasterwhisper")),
		VocabFile:   *vocabFile,
		SegmentMode: *segmentMode,
		FlushEvery:  cfg.GetInt("FLUSH_EVERY"),
	})
}

// runOnce supervises a single worker run and assembles its transcript
func runOnce(cfg *utils.Config, checkpointDir string, req supervisor.Request) {
	workerCmd := []string{cfg.GetWithDefault("WORKER_COMMAND", "transcribe-worker")}

	sup, err := supervisor.New(supervisor.Options{
		WorkerCommand:    workerCmd,
		CheckpointDir:    checkpointDir,
		HeartbeatTimeout: cfg.GetDuration("HEARTBEAT_TIMEOUT", supervisor.DefaultHeartbeatTimeout),
		GracePeriod:      cfg.GetDuration("GRACE_PERIOD", supervisor.DefaultGracePeriod),
	})
	if err != nil {
		log.Fatalf("[TRANSCRIBE]: Failed to create supervisor: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := sup.Start(ctx, req)
	if err != nil {
		log.Fatalf("[TRANSCRIBE]: Failed to start run: %v", err)
	}

	// Ctrl-C cancels the worker gracefully; the deferred checkpoint
	// keeps whatever was transcribed so far
	go func() {
		<-ctx.Done()
		sup.Cancel(run)
	}()

	events := make(chan protocol.Event)
	go func() {
		defer close(events)
		for ev := range run.Events() {
			report(ev)
			events <- ev
		}
	}()

	autosaveDir := cfg.GetWithDefault("AUTOSAVE_DIR", checkpointDir)
	tr, err := assemble.FromEvents(req.AudioPath, req.Model, events, assemble.Options{AutosaveDir: autosaveDir})
	if err != nil {
		log.Printf("[TRANSCRIBE]: %v", err)
	}

	result := sup.Wait(run)
	if result.Err != nil {
		log.Printf("[TRANSCRIBE]: Run failed: %v", result.Err)
		if result.CheckpointPath != "" {
			fmt.Printf("Partial progress kept in %s (run -resume to recover)\n", filepath.Base(result.CheckpointPath))
		}
		os.Exit(1)
	}

	// The checkpoint served its purpose; claim it so it stops showing
	// up as recoverable
	checkpointPath := result.CheckpointPath
	if checkpointPath != "" {
		if err := recovery.Claim(checkpointPath); err != nil {
			log.Printf("[TRANSCRIBE]: Failed to claim checkpoint: %v", err)
		} else {
			checkpointPath += ".claimed"
		}
	}

	registerEntry(cfg, tr, autosaveDir, checkpointPath)

	fmt.Printf("Transcribed %s: %d segment(s), %.1fs of audio\n", req.AudioPath, len(tr.Segments), tr.Duration())
}

// registerEntry catalogs the finished run when a database is configured
func registerEntry(cfg *utils.Config, tr *transcript.Transcript, autosaveDir, checkpointPath string) {
	if cfg.Get("MYSQL_DATABASE") == "" {
		return
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.Get("MYSQL_USER"),
		cfg.Get("MYSQL_ROOT_PASSWORD"),
		cfg.Get("MYSQL_HOST"),
		cfg.GetWithDefault("MYSQL_PORT", "3306"),
		cfg.Get("MYSQL_DATABASE"),
	)

	store, err := library.NewMySqlStore(dsn)
	if err != nil {
		log.Printf("[TRANSCRIBE]: Failed to open catalog store: %v", err)
		return
	}
	defer store.Close()

	snapshotPath := filepath.Join(autosaveDir, transcript.SnapshotName(tr.AudioPath, tr.CreatedAt))
	entry := library.NewEntry(tr, snapshotPath, checkpointPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.CreateEntry(ctx, entry); err != nil {
		log.Printf("[TRANSCRIBE]: Failed to catalog transcript: %v", err)
	}
}

// resumeCheckpoint reconstructs a transcript from a checkpoint and
// saves it as a snapshot
func resumeCheckpoint(manager *recovery.Manager, manifests []recovery.Manifest, id string, cfg *utils.Config) {
	for _, m := range manifests {
		if m.ID != id {
			continue
		}

		tr, err := manager.Reconstruct(m)
		if err != nil {
			log.Fatalf("[TRANSCRIBE]: Failed to reconstruct checkpoint: %v", err)
		}

		dir := cfg.GetWithDefault("AUTOSAVE_DIR", filepath.Dir(m.CheckpointPath))
		path := filepath.Join(dir, transcript.SnapshotName(tr.AudioPath, tr.CreatedAt))
		if err := transcript.SaveSnapshot(tr, path); err != nil {
			log.Fatalf("[TRANSCRIBE]: Failed to save recovered transcript: %v", err)
		}

		if err := manager.Promote(m); err != nil {
			log.Fatalf("[TRANSCRIBE]: Failed to claim checkpoint: %v", err)
		}

		fmt.Printf("Recovered %d segment(s) (%s) into %s\n", len(tr.Segments), tr.Status, path)
		return
	}

	log.Fatalf("[TRANSCRIBE]: No checkpoint with id %q", id)
}

// discardCheckpoint archives a checkpoint by manifest id
func discardCheckpoint(manager *recovery.Manager, manifests []recovery.Manifest, id string) {
	for _, m := range manifests {
		if m.ID != id {
			continue
		}
		if err := manager.Discard(m); err != nil {
			log.Fatalf("[TRANSCRIBE]: Failed to discard checkpoint: %v", err)
		}
		fmt.Printf("Archived %s\n", m.ID)
		return
	}

	log.Fatalf("[TRANSCRIBE]: No checkpoint with id %q", id)
}

// report prints one progress event to the terminal
func report(ev protocol.Event) {
	switch ev.Type {
	case protocol.EventStarted:
		fmt.Printf("Started model=%s device=%s\n", ev.Model, ev.Device)
	case protocol.EventProgress:
		fmt.Printf("\r%5.1f%%", ev.Fraction*100)
	case protocol.EventSegment:
		if ev.Segment != nil {
			fmt.Printf("\r[%7.2fs] %s\n", ev.Segment.Start, ev.Segment.Text)
		}
	case protocol.EventCompleted:
		fmt.Printf("\rDone: %d segment(s)\n", ev.TotalSegments)
	case protocol.EventError:
		fmt.Printf("\rWorker error: %s\n", ev.Message)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
