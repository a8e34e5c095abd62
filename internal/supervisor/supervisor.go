// Package supervisor spawns and watches transcription workers. The
// worker is a separate process on purpose: when it exits, the OS
// reclaims everything it held, including GPU memory. That reclaim-on-
// exit contract is the reason recognition never runs in-process.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// Defaults for supervisor options
const (
	DefaultHeartbeatTimeout = 2 * time.Minute
	DefaultGracePeriod      = 5 * time.Second
	DefaultMaxWorkers       = 1
)

// Options configures a Supervisor
type Options struct {
	// WorkerCommand is the argv prefix used to launch a worker; the
	// supervisor appends run-specific flags
	WorkerCommand []string
	// CheckpointDir is passed explicitly to every worker so the
	// supervisor and the recovery manager agree on location
	CheckpointDir string
	// HeartbeatTimeout cancels a run when no progress event arrives
	// within the window
	HeartbeatTimeout time.Duration
	// GracePeriod is how long a cancelled worker gets between the
	// graceful-terminate signal and the force kill
	GracePeriod time.Duration
	// MaxWorkers bounds concurrently active workers. Default 1: the
	// workload claims exclusive GPU memory.
	MaxWorkers int
	// WaitForSlot queues a start when the pool is full instead of
	// failing with ErrNoSlot
	WaitForSlot bool
}

// Request describes one transcription run
type Request struct {
	AudioPath   string
	Model       string
	Device      string
	Engine      string
	VocabFile   string
	SegmentMode string
	FlushEvery  int
}

// Supervisor launches workers, enforces one run per audio source and a
// bounded worker pool, and guarantees cancelled workers are gone.
type Supervisor struct {
	opts Options

	mu     sync.Mutex
	active map[string]*Run
	slots  chan struct{}
}

// New creates a supervisor
func New(opts Options) (*Supervisor, error) {
	if len(opts.WorkerCommand) == 0 {
		return nil, fmt.Errorf("worker command is required")
	}
	if opts.CheckpointDir == "" {
		return nil, fmt.Errorf("checkpoint directory is required")
	}
	if opts.HeartbeatTimeout <= 0 {
		opts.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}

	return &Supervisor{
		opts:   opts,
		active: make(map[string]*Run),
		slots:  make(chan struct{}, opts.MaxWorkers),
	}, nil
}

// Start launches a worker for the request. It fails with
// ErrAlreadyRunning when the audio source already has an active run,
// and with ErrNoSlot when the pool is full and WaitForSlot is off.
// The run's progress events are exposed on Run.Events(); the caller
// must consume that channel until it closes.
func (s *Supervisor) Start(ctx context.Context, req Request) (*Run, error) {
	if req.AudioPath == "" {
		return nil, fmt.Errorf("audio path is required")
	}
	key := filepath.Clean(req.AudioPath)

	run := newRun(req)

	// Register before acquiring a slot so a duplicate start for the
	// same source fails immediately rather than queueing behind it
	s.mu.Lock()
	if _, exists := s.active[key]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", key, ErrAlreadyRunning)
	}
	s.active[key] = run
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		delete(s.active, key)
		s.mu.Unlock()
	}

	if err := s.acquireSlot(ctx); err != nil {
		release()
		return nil, err
	}

	cmd := exec.Command(s.opts.WorkerCommand[0], append(s.opts.WorkerCommand[1:], s.workerArgs(req)...)...)
	// Own process group so terminate/kill reaches the worker's own
	// children (helper interpreters) and the pipe always closes
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := s.launch(ctx, run, cmd); err != nil {
		<-s.slots
		release()
		return nil, err
	}

	// The wait goroutine releases registry and slot once the process
	// is fully reaped
	go func() {
		s.reap(run)
		<-s.slots
		release()
	}()

	return run, nil
}

// Cancel requests cooperative termination of a run: graceful signal,
// grace period, then force kill. Safe to call more than once. Whatever
// the worker durably flushed stays recoverable.
func (s *Supervisor) Cancel(run *Run) {
	run.cancel(s.opts.GracePeriod)
}

// Wait blocks until the run's worker has exited and its output stream
// is fully drained, then returns the result.
func (s *Supervisor) Wait(run *Run) RunResult {
	<-run.done
	return run.result
}

// ActiveRuns returns the audio sources with a run in flight
func (s *Supervisor) ActiveRuns() []*Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make([]*Run, 0, len(s.active))
	for _, r := range s.active {
		runs = append(runs, r)
	}
	return runs
}

// Get returns the active run for an audio source, if any
func (s *Supervisor) Get(audioPath string) (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.active[filepath.Clean(audioPath)]
	return run, ok
}

func (s *Supervisor) acquireSlot(ctx context.Context) error {
	if s.opts.WaitForSlot {
		select {
		case s.slots <- struct{}{}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	default:
		return ErrNoSlot
	}
}

// workerArgs builds the run-specific worker flags. The checkpoint
// directory is always explicit, never left to a worker default.
func (s *Supervisor) workerArgs(req Request) []string {
	args := []string{
		"-audio", req.AudioPath,
		"-out-dir", s.opts.CheckpointDir,
	}
	if req.Model != "" {
		args = append(args, "-model", req.Model)
	}
	if req.Device != "" {
		args = append(args, "-device", req.Device)
	}
	if req.Engine != "" {
		args = append(args, "-engine", req.Engine)
	}
	if req.VocabFile != "" {
		args = append(args, "-vocab", req.VocabFile)
	}
	if req.SegmentMode != "" {
		args = append(args, "-segment-mode", req.SegmentMode)
	}
	if req.FlushEvery > 0 {
		args = append(args, "-flush-every", strconv.Itoa(req.FlushEvery))
	}
	return args
}

// launch wires the worker's streams and starts both the process and
// its watchdog
func (s *Supervisor) launch(ctx context.Context, run *Run, cmd *exec.Cmd) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("worker stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("worker stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	run.attach(cmd)
	log.Printf("[SUPERVISOR]: started worker pid %d for %s", cmd.Process.Pid, run.AudioPath)

	// Cancel the run if the caller's context ends first
	go func() {
		select {
		case <-ctx.Done():
			s.Cancel(run)
		case <-run.done:
		}
	}()

	run.startWatchdog(s.opts.HeartbeatTimeout, func() {
		log.Printf("[SUPERVISOR]: heartbeat timeout for %s, cancelling", run.AudioPath)
		run.markTimedOut()
		s.Cancel(run)
	})

	go run.drainStderr(stderr)
	go run.drainStdout(stdout)
	go run.pumpEvents()

	return nil
}

// reap waits for process exit, then finishes the run once the output
// stream is drained
func (s *Supervisor) reap(run *Run) {
	// Drain both pipes to EOF before Wait: Wait closes the pipes, and
	// closing early would lose trailing events still in the buffer
	<-run.drained
	<-run.stderrDone
	err := run.cmd.Wait()
	run.finish(err)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		log.Printf("[SUPERVISOR]: worker wait failed for %s: %v", run.AudioPath, err)
	}
	log.Printf("[SUPERVISOR]: worker for %s exited with code %d", run.AudioPath, run.result.ExitCode)
}
