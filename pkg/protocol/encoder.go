package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Encoder writes protocol events as JSON lines. Each event is written
// as one complete line; the underlying writer is expected to be the
// worker's stdout, which the OS flushes per write.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder creates an encoder writing to w
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Emit validates and writes one event as a single JSON line
func (e *Encoder) Emit(ev Event) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("refusing to emit invalid event: %w", err)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
