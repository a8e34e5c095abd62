package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
)

// maxLineBytes caps a single protocol line. Segments carry word
// timings so lines can get long, but anything past this is garbage.
const maxLineBytes = 4 * 1024 * 1024

// DecodeStats summarizes one pass over a protocol stream
type DecodeStats struct {
	Delivered int
	Skipped   int
}

// Decode reads JSON-line events from r until EOF or context
// cancellation, delivering each valid event to fn in stream order.
// Malformed or invalid lines are logged and skipped; they never abort
// the stream. Decode keeps reading regardless of event content so the
// producer is continuously drained.
func Decode(ctx context.Context, r io.Reader, fn func(Event)) (DecodeStats, error) {
	var stats DecodeStats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			stats.Skipped++
			log.Printf("[DECODER]: skipping malformed line: %v", err)
			continue
		}
		if err := ev.Validate(); err != nil {
			stats.Skipped++
			log.Printf("[DECODER]: skipping invalid event: %v", err)
			continue
		}

		stats.Delivered++
		fn(ev)
	}

	if err := scanner.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}
