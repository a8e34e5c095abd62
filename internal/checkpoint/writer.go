package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethanbaker/transcribe/pkg/transcript"
)

// DefaultFlushThreshold is the number of buffered segments that
// triggers a flush. Matching the upstream default keeps I/O pressure
// low on long recordings while bounding how much work a crash can
// lose to one batch.
const DefaultFlushThreshold = 50

// Writer buffers produced segments and appends them to the checkpoint
// file in whole, fsync'd records. A crash between flushes loses only
// the unflushed tail; every record visible to a reader is complete.
type Writer struct {
	file      *os.File
	path      string
	threshold int
	buf       []transcript.Segment
	seq       int64
	total     int
	finalized bool
}

// NewWriter creates the checkpoint file at dir/FileName(...) and
// writes the header record. The directory is created if needed.
func NewWriter(dir string, header Header, threshold int) (*Writer, error) {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("make checkpoint dir: %w", err)
	}

	path := filepath.Join(dir, FileName(header.AudioPath, header.StartedAt))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create checkpoint file: %w", err)
	}

	w := &Writer{file: file, path: path, threshold: threshold}
	if err := w.writeRecord(Record{Seq: 0, Header: &header}); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	return w, nil
}

// Path returns the checkpoint file path
func (w *Writer) Path() string {
	return w.path
}

// Append buffers one segment. Call FlushIfDue afterwards to persist
// once the threshold is reached.
func (w *Writer) Append(seg transcript.Segment) {
	w.buf = append(w.buf, seg)
}

// FlushIfDue flushes the buffer when the segment-count threshold is
// reached. Returns whether a flush happened.
func (w *Writer) FlushIfDue() (bool, error) {
	if len(w.buf) < w.threshold {
		return false, nil
	}
	return true, w.flush()
}

// Flush forces the buffered segments to durable storage regardless of
// the threshold
func (w *Writer) Flush() error {
	return w.flush()
}

func (w *Writer) flush() error {
	if len(w.buf) == 0 {
		return nil
	}

	w.seq++
	rec := Record{Seq: w.seq, Segments: w.buf}
	if err := w.writeRecord(rec); err != nil {
		return err
	}
	w.total += len(w.buf)
	w.buf = nil
	return nil
}

// Finalize flushes remaining segments, writes the completion marker
// and closes the file. After Finalize a scan will classify the run as
// fully drained rather than died mid-stream.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	if err := w.flush(); err != nil {
		return err
	}
	if err := w.writeRecord(Record{Seq: MarkerSeq, Complete: true, TotalSegments: w.total}); err != nil {
		return err
	}
	w.finalized = true
	return w.file.Close()
}

// Close closes the file without writing the completion marker. Flushed
// records stay recoverable; buffered segments are dropped.
func (w *Writer) Close() error {
	if w.finalized {
		return nil
	}
	return w.file.Close()
}

// LastSeq returns the sequence number of the last flushed record
func (w *Writer) LastSeq() int64 {
	return w.seq
}

// Total returns the number of segments durably flushed so far
func (w *Writer) Total() int {
	return w.total
}

// writeRecord writes one record as a single line and forces it to
// durable storage before returning
func (w *Writer) writeRecord(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %d: %w", rec.Seq, err)
	}
	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write record %d: %w", rec.Seq, err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync record %d: %w", rec.Seq, err)
	}
	return nil
}
