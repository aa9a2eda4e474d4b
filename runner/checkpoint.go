package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// Checkpoint persists the index of the next unprocessed item as a plain
// integer file. It is written after every item and removed when the
// batch completes, so its mere existence means "there is work left".
type Checkpoint struct {
	path string
}

func NewCheckpoint(path string) *Checkpoint {
	return &Checkpoint{path: path}
}

func (c *Checkpoint) Path() string { return c.path }

// Load returns the resume index. A missing file means a fresh run and
// loads as zero; a file we cannot parse is an error, silently starting
// over would duplicate rows.
func (c *Checkpoint) Load() (int, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read checkpoint: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("corrupt checkpoint %s: %w", c.path, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("corrupt checkpoint %s: negative index %d", c.path, n)
	}
	return n, nil
}

func (c *Checkpoint) Save(next int) error {
	if err := os.WriteFile(c.path, []byte(strconv.Itoa(next)), 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// Clear removes the checkpoint; a missing file is fine.
func (c *Checkpoint) Clear() error {
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}
