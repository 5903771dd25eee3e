package statusfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mikey-austin/homewatch/pkg/hw"
)

// DefaultName is the status file name inside the data directory.
const DefaultName = "status.json"

// ErrNoStatus is returned by Load when nothing was saved yet.
var ErrNoStatus = errors.New("no saved status")

// File persists one session status document.
type File struct {
	path string
}

// New stores the document at path.
func New(path string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("status path required")
	}
	return &File{path: path}, nil
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Load reads the saved document.
func (f *File) Load() (hw.Status, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return hw.Status{}, ErrNoStatus
	}
	if err != nil {
		return hw.Status{}, err
	}
	var st hw.Status
	if err := json.Unmarshal(data, &st); err != nil {
		return hw.Status{}, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return st, nil
}

// Save replaces the document atomically.
func (f *File) Save(st hw.Status) error {
	payload, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("status dir: %w", err)
	}
	tmp := fmt.Sprintf("%s.tmp.%d", f.path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
