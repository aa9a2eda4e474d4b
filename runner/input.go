// Package runner drives batches of work items through a scrape driver
// with checkpointed progress and periodically flushed output.
package runner

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// minDetectConfidence is the chardet confidence below which we stop
// trusting the guess and fall back to UTF-8.
const minDetectConfidence = 70

// ReadLines loads one work item per line: trimmed, blanks skipped,
// duplicates dropped first-seen.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("decode input %s: %w", path, err)
	}

	var lines []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}
	return lines, nil
}

// Table is a decoded CSV input: the header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadCSV loads and decodes a CSV file. Input files come from
// spreadsheet exports in assorted encodings, so the bytes go through
// charset detection before parsing.
func ReadCSV(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("decode input %s: %w", path, err)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input %s is empty", path)
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Column returns the index of name in the header, case-insensitive.
func (t *Table) Column(name string) (int, error) {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("input has no %q column (header: %s)", name, strings.Join(t.Header, ", "))
}

// decodeText converts raw input bytes to UTF-8. A low-confidence
// detection falls back to UTF-8 as-is, which together with the BOM
// strip covers the common spreadsheet exports.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil || result.Confidence < minDetectConfidence {
		return string(data), nil
	}

	var enc encoding.Encoding
	switch strings.ToLower(result.Charset) {
	case "utf-8":
		return string(data), nil
	case "iso-8859-1":
		enc = charmap.ISO8859_1
	case "iso-8859-2":
		enc = charmap.ISO8859_2
	case "windows-1250":
		enc = charmap.Windows1250
	case "windows-1252":
		enc = charmap.Windows1252
	case "utf-16le":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "utf-16be":
		enc = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	default:
		return string(data), nil
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data), nil
	}
	return string(decoded), nil
}
