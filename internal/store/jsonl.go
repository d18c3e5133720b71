package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nvandessel/geomood/internal/models"
)

// WriteEntriesJSONL writes one JSON entry per line.
func WriteEntriesJSONL(w io.Writer, entries []models.Entry) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	for _, e := range entries {
		if err := encoder.Encode(e); err != nil {
			return fmt.Errorf("failed to encode entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// ReadEntriesJSONL reads entries written by WriteEntriesJSONL. Lines that
// fail to parse are reported on stderr and skipped.
func ReadEntriesJSONL(r io.Reader) ([]models.Entry, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	var entries []models.Entry
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e models.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to parse line %d: %v\n", lineNum, err)
			continue
		}
		if e.ID == "" {
			fmt.Fprintf(os.Stderr, "warning: line %d has no entry id\n", lineNum)
			continue
		}
		entries = append(entries, e)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return entries, nil
}
