package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethanbaker/transcribe/internal/checkpoint"
	"github.com/ethanbaker/transcribe/internal/engine"
	"github.com/ethanbaker/transcribe/internal/worker"
	"github.com/ethanbaker/transcribe/pkg/protocol"
	"github.com/ethanbaker/transcribe/pkg/utils"
)

func main() {
	var cfg worker.Config
	flag.StringVar(&cfg.AudioPath, "audio", "", "path to the audio file to transcribe")
	flag.StringVar(&cfg.OutDir, "out-dir", ".", "directory for checkpoint files")
	flag.StringVar(&cfg.Model, "model", "small", "recognition model name")
	flag.StringVar(&cfg.Device, "device", "auto", "compute device (auto, cpu, cuda)")
	flag.StringVar(&cfg.EngineName, "engine", "fasterwhisper", "recognition engine (fasterwhisper, openai, static)")
	flag.StringVar(&cfg.VocabFile, "vocab", "", "optional custom vocabulary file")
	flag.StringVar(&cfg.SegmentMode, "segment-mode", "natural", "segmentation mode (natural, sentence)")
	flag.IntVar(&cfg.FlushEvery, "flush-every", checkpoint.DefaultFlushThreshold, "segments per checkpoint flush")
	fixture := flag.String("fixture", "", "fixture file for the static engine")
	flag.Parse()

	// All protocol traffic goes to stdout; diagnostics stay on stderr
	log.SetOutput(os.Stderr)
	enc := protocol.NewEncoder(os.Stdout)

	if cfg.AudioPath == "" {
		enc.Emit(protocol.ErrorEvent("no audio file given", protocol.CodeGenericFailure))
		os.Exit(worker.ExitFailure)
	}

	config := utils.NewConfigFromEnv(".env")
	engineCfg := engine.Config{
		PythonBin:   config.GetWithDefault("PYTHON_BIN", "python3"),
		OpenAIKey:   config.Get("OPENAI_API_KEY"),
		FixturePath: *fixture,
	}

	// The supervisor stops us with SIGTERM; finish the current segment
	// batch and exit instead of being cut off mid-write
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	os.Exit(worker.Run(ctx, cfg, enc, engineCfg))
}
