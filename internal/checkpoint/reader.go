package checkpoint

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// maxRecordBytes caps one checkpoint line; a 50-segment batch with
// word timings stays well under this.
const maxRecordBytes = 16 * 1024 * 1024

// Contents is everything recovered from one checkpoint file
type Contents struct {
	Header  *Header
	Records []Record // data records only, in file order
	// Complete is true when the completion marker was read
	Complete      bool
	TotalSegments int
}

// SegmentCount returns the number of segments across all data records
func (c Contents) SegmentCount() int {
	n := 0
	for _, r := range c.Records {
		n += len(r.Segments)
	}
	return n
}

// LastSeq returns the highest data-record sequence number, 0 if none
func (c Contents) LastSeq() int64 {
	if len(c.Records) == 0 {
		return 0
	}
	return c.Records[len(c.Records)-1].Seq
}

// ReadFile reads all whole records from a checkpoint file. Reading
// stops at the first truncated or unparseable line: a worker killed
// mid-write leaves a ragged tail, and that tail is treated as "not
// yet flushed", logged at warning level, never as a read failure.
func ReadFile(path string) (Contents, error) {
	file, err := os.Open(path)
	if err != nil {
		return Contents{}, fmt.Errorf("open checkpoint: %w", err)
	}
	defer file.Close()

	var contents Contents

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxRecordBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Printf("[CHECKPOINT]: warning, truncated record in %s, stopping read: %v", filepath.Base(path), err)
			break
		}

		switch {
		case rec.IsMarker():
			contents.Complete = true
			contents.TotalSegments = rec.TotalSegments
		case rec.Seq == 0 && rec.Header != nil:
			contents.Header = rec.Header
		default:
			contents.Records = append(contents.Records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		// An oversized final line is the same ragged-tail case
		log.Printf("[CHECKPOINT]: warning, unreadable tail in %s: %v", filepath.Base(path), err)
	}

	return contents, nil
}
