package supervisor

import (
	"bufio"
	"context"
	"io"
	"log"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ethanbaker/transcribe/pkg/protocol"
	"github.com/google/uuid"
)

// RunResult is the outcome of one worker run
type RunResult struct {
	ExitCode       int
	LastSeq        int64
	Terminal       *protocol.Event
	CheckpointPath string
	TimedOut       bool
	// Err is nil on clean exit; *ResourceError when the worker failed
	// before producing anything; *ProcessError otherwise
	Err error
}

// Run is a handle on one in-flight worker
type Run struct {
	ID        uuid.UUID
	AudioPath string
	Model     string
	StartedAt time.Time

	cmd    *exec.Cmd
	queue  *eventQueue
	events chan protocol.Event

	heartbeat       *time.Timer
	heartbeatWindow time.Duration

	lastSeq    atomic.Int64
	timedOut   atomic.Bool
	cancelOnce sync.Once

	mu             sync.Mutex
	terminal       *protocol.Event
	checkpointPath string

	drained    chan struct{} // decoder finished reading stdout
	stderrDone chan struct{} // stderr forwarder finished
	done       chan struct{} // process reaped, result populated
	result     RunResult
}

func newRun(req Request) *Run {
	return &Run{
		ID:         uuid.New(),
		AudioPath:  req.AudioPath,
		Model:      req.Model,
		StartedAt:  time.Now(),
		queue:      newEventQueue(),
		events:     make(chan protocol.Event),
		drained:    make(chan struct{}),
		stderrDone: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Events returns the run's ordered progress events. The channel closes
// once the worker has exited and the stream is drained.
func (r *Run) Events() <-chan protocol.Event {
	return r.events
}

// Done is closed when the run has fully finished
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// LastSeq returns the highest segment sequence observed so far
func (r *Run) LastSeq() int64 {
	return r.lastSeq.Load()
}

func (r *Run) attach(cmd *exec.Cmd) {
	r.cmd = cmd
}

func (r *Run) startWatchdog(timeout time.Duration, onExpire func()) {
	r.heartbeatWindow = timeout
	r.heartbeat = time.AfterFunc(timeout, onExpire)
}

func (r *Run) markTimedOut() {
	r.timedOut.Store(true)
}

// observe records one decoded event and forwards it to the queue
func (r *Run) observe(ev protocol.Event) {
	if r.heartbeat != nil {
		r.heartbeat.Reset(r.heartbeatWindow)
	}

	if ev.Type == protocol.EventSegment && ev.Seq > r.lastSeq.Load() {
		r.lastSeq.Store(ev.Seq)
	}
	if ev.CheckpointPath != "" || ev.Terminal() {
		r.mu.Lock()
		if ev.CheckpointPath != "" {
			r.checkpointPath = ev.CheckpointPath
		}
		if ev.Terminal() {
			copied := ev
			r.terminal = &copied
		}
		r.mu.Unlock()
	}

	r.queue.push(ev)
}

// drainStdout decodes the protocol stream until the pipe closes. It
// runs on its own goroutine and never blocks on the consumer.
func (r *Run) drainStdout(stdout io.Reader) {
	stats, err := protocol.Decode(context.Background(), stdout, r.observe)
	if err != nil {
		log.Printf("[SUPERVISOR]: stream read error for %s: %v", r.AudioPath, err)
	}
	if stats.Skipped > 0 {
		log.Printf("[SUPERVISOR]: dropped %d malformed line(s) from %s", stats.Skipped, r.AudioPath)
	}
	r.queue.close()
	close(r.drained)
}

// drainStderr forwards worker stderr lines into the supervisor log
func (r *Run) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		log.Printf("[WORKER]: %s", scanner.Text())
	}
	close(r.stderrDone)
}

// pumpEvents moves queued events to the subscriber channel in order
func (r *Run) pumpEvents() {
	for {
		ev, ok := r.queue.pop()
		if !ok {
			close(r.events)
			return
		}
		r.events <- ev
	}
}

// cancel sends the graceful-terminate signal and schedules the force
// kill after the grace period
func (r *Run) cancel(grace time.Duration) {
	r.cancelOnce.Do(func() {
		if r.cmd == nil || r.cmd.Process == nil {
			return
		}
		log.Printf("[SUPERVISOR]: terminating worker for %s", r.AudioPath)
		if err := r.signalGroup(syscall.SIGTERM); err != nil {
			return // already gone
		}

		kill := time.AfterFunc(grace, func() {
			log.Printf("[SUPERVISOR]: force killing worker for %s", r.AudioPath)
			r.signalGroup(syscall.SIGKILL)
		})
		go func() {
			<-r.done
			kill.Stop()
		}()
	})
}

// signalGroup signals the worker's whole process group, falling back
// to the process itself if the group is unavailable
func (r *Run) signalGroup(sig syscall.Signal) error {
	pid := r.cmd.Process.Pid
	if err := syscall.Kill(-pid, sig); err == nil {
		return nil
	}
	return r.cmd.Process.Signal(sig)
}

// finish populates the result and releases waiters. Called exactly
// once, after process exit and stream drain.
func (r *Run) finish(waitErr error) {
	if r.heartbeat != nil {
		r.heartbeat.Stop()
	}

	exitCode := 0
	if r.cmd.ProcessState != nil {
		exitCode = r.cmd.ProcessState.ExitCode()
	}

	r.mu.Lock()
	terminal := r.terminal
	checkpointPath := r.checkpointPath
	r.mu.Unlock()

	result := RunResult{
		ExitCode:       exitCode,
		LastSeq:        r.lastSeq.Load(),
		Terminal:       terminal,
		CheckpointPath: checkpointPath,
		TimedOut:       r.timedOut.Load(),
	}

	switch {
	case result.TimedOut:
		result.Err = &ProcessError{
			ExitCode:       exitCode,
			LastSeq:        result.LastSeq,
			CheckpointPath: checkpointPath,
			TimedOut:       true,
		}
	case exitCode == 0 && waitErr == nil:
		// clean exit
	case exitCode == protocol.CodeResourceFailure:
		msg := ""
		if terminal != nil {
			msg = terminal.Message
		}
		result.Err = &ResourceError{Message: msg}
	default:
		msg := ""
		if terminal != nil {
			msg = terminal.Message
		}
		result.Err = &ProcessError{
			ExitCode:       exitCode,
			LastSeq:        result.LastSeq,
			CheckpointPath: checkpointPath,
			Message:        msg,
		}
	}

	r.result = result
	close(r.done)
}
