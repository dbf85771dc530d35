// Package dataset reads and atomically writes instruction-tuning datasets.
//
// A dataset is a JSON array of Records, one file per subject. Writes always go
// through a temporary file and a rename, so readers never observe a partial
// array.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrCorrupt is returned by Load when the file exists but is not a JSON array of records.
var ErrCorrupt = errors.New("dataset file is corrupt")

// Metadata is attached to every record generated from one document.
type Metadata struct {
	Class        string `json:"class" yaml:"class"`
	Subject      string `json:"subject" yaml:"subject"`
	Book         string `json:"book" yaml:"book"`
	Chapter      string `json:"chapter" yaml:"chapter"`
	ChapterTitle string `json:"chapter_title" yaml:"chapter_title"`
	Topic        string `json:"topic" yaml:"topic"`
}

// Record is one instruction/response pair.
type Record struct {
	Instruction string   `json:"instruction"`
	Input       string   `json:"input"`
	Output      string   `json:"output"`
	Metadata    Metadata `json:"metadata"`
}

// Merge returns existing followed by added as a new slice.
// Neither argument is modified.
func Merge(existing, added []Record) []Record {
	out := make([]Record, 0, len(existing)+len(added))
	out = append(out, existing...)
	return append(out, added...)
}

// Marshal renders records as an indented JSON array without HTML or
// non-ASCII escaping. A nil slice renders as [].
func Marshal(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads the dataset at path. A missing file is an empty dataset.
// Content that does not decode as an array of records wraps ErrCorrupt.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return records, nil
}

// Last returns the final record and true, or false for an empty dataset.
func Last(records []Record) (Record, bool) {
	if len(records) == 0 {
		return Record{}, false
	}
	return records[len(records)-1], true
}
