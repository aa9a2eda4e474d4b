package runner

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/mkovacs/placeharvest/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// OutputWriter appends records to the stage output. Flush pushes
// buffered rows to disk; the runner calls it on a cadence and before
// exit.
type OutputWriter interface {
	Append(rec models.Record) error
	Flush() error
	Close() error
}

// CSVWriter writes UTF-8 CSV with a byte order mark, which is what
// makes spreadsheet apps open accented text correctly. A fresh file
// gets the BOM and header; a resumed one is opened in append mode and
// gets neither.
type CSVWriter struct {
	file *os.File
	w    *csv.Writer
}

func NewCSVWriter(path string, header []string, resume bool) (*CSVWriter, error) {
	fresh := !resume
	if resume {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			fresh = true
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if fresh {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	cw := &CSVWriter{file: file, w: csv.NewWriter(file)}
	if fresh {
		if _, err := file.Write(utf8BOM); err != nil {
			file.Close()
			return nil, fmt.Errorf("write bom: %w", err)
		}
		if err := cw.w.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return cw, nil
}

func (c *CSVWriter) Append(rec models.Record) error {
	for _, row := range rec.Rows() {
		if err := c.w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return nil
}

func (c *CSVWriter) Flush() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}
	if err := c.file.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	return nil
}

func (c *CSVWriter) Close() error {
	flushErr := c.Flush()
	if err := c.file.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return flushErr
}

// LinksWriter writes one link per line, deduplicated across the whole
// file. On resume it re-reads the existing file so links harvested
// before the interruption stay unique.
type LinksWriter struct {
	file *os.File
	bw   *bufio.Writer
	seen map[string]struct{}
}

func NewLinksWriter(path string, resume bool) (*LinksWriter, error) {
	seen := make(map[string]struct{})
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if resume {
		if data, err := os.ReadFile(path); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					seen[line] = struct{}{}
				}
			}
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return &LinksWriter{file: file, bw: bufio.NewWriter(file), seen: seen}, nil
}

func (l *LinksWriter) Append(rec models.Record) error {
	for _, row := range rec.Rows() {
		if len(row) == 0 {
			continue
		}
		link := strings.TrimSpace(row[0])
		if link == "" {
			continue
		}
		if _, dup := l.seen[link]; dup {
			continue
		}
		l.seen[link] = struct{}{}
		if _, err := fmt.Fprintln(l.bw, link); err != nil {
			return fmt.Errorf("write link: %w", err)
		}
	}
	return nil
}

func (l *LinksWriter) Flush() error {
	if err := l.bw.Flush(); err != nil {
		return fmt.Errorf("flush links: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	return nil
}

func (l *LinksWriter) Close() error {
	flushErr := l.Flush()
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return flushErr
}
