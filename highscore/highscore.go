// Package highscore keeps the best score between games.
package highscore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var ErrCorrupt = errors.New("high score file is corrupt")

// File stores the high score in a file as a protobuf Int64Value.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

// DefaultPath returns the high score file under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to find the config directory: %w", err)
	}
	return filepath.Join(dir, "blockdrop", "highscore"), nil
}

// Get returns the stored score, 0 if nothing was recorded yet.
func (f *File) Get() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

// Record stores score if it beats the stored one.
func (f *File) Record(score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, err := f.read()
	if err != nil && !errors.Is(err, ErrCorrupt) {
		return err
	}
	if score <= current {
		return nil
	}
	return f.write(score)
}

func (f *File) read() (int, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read high score: %w", err)
	}
	v := &wrapperspb.Int64Value{}
	if err := proto.Unmarshal(b, v); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if v.GetValue() < 0 {
		return 0, fmt.Errorf("%w: negative score %d", ErrCorrupt, v.GetValue())
	}
	return int(v.GetValue()), nil
}

// write replaces the file through a rename so a crash never leaves half a score behind.
func (f *File) write(score int) error {
	b, err := proto.Marshal(wrapperspb.Int64(int64(score)))
	if err != nil {
		return fmt.Errorf("failed to encode high score: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(f.path)+"-"+uuid.NewString())
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("failed to write high score: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp) //nolint: errcheck
		return fmt.Errorf("failed to replace high score: %w", err)
	}
	return nil
}

// Memory keeps the high score for the lifetime of the process.
type Memory struct {
	score int
	mu    sync.Mutex
}

func (m *Memory) Get() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score, nil
}

func (m *Memory) Record(score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.score = max(m.score, score)
	return nil
}
