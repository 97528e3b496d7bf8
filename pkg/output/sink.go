// Package output writes scanned documents to local files.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrSinkClosed is returned when writing to a committed or aborted sink.
var ErrSinkClosed = errors.New("output: sink already closed")

// FileSink writes to a temporary file next to the target path. Commit
// renames it into place; Abort removes it. The target is never touched by a
// failed scan.
type FileSink struct {
	path string
	tmp  *os.File
	done bool
}

// NewFileSink creates the temporary file for path.
func NewFileSink(path string) (*FileSink, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.part")
	if err != nil {
		return nil, fmt.Errorf("output: create temporary file for %s: %w", path, err)
	}
	return &FileSink{path: path, tmp: tmp}, nil
}

// Path returns the target path.
func (s *FileSink) Path() string {
	return s.path
}

// Write implements io.Writer.
func (s *FileSink) Write(p []byte) (int, error) {
	if s.done {
		return 0, ErrSinkClosed
	}
	return s.tmp.Write(p)
}

// Commit flushes the temporary file and renames it to the target path.
func (s *FileSink) Commit() error {
	if s.done {
		return ErrSinkClosed
	}
	s.done = true

	if err := s.tmp.Sync(); err != nil {
		s.discard()
		return fmt.Errorf("output: sync %s: %w", s.tmp.Name(), err)
	}
	// CreateTemp opens with 0600; scans are ordinary user documents.
	if err := s.tmp.Chmod(0o644); err != nil {
		s.discard()
		return fmt.Errorf("output: chmod %s: %w", s.tmp.Name(), err)
	}
	if err := s.tmp.Close(); err != nil {
		_ = os.Remove(s.tmp.Name())
		return fmt.Errorf("output: close %s: %w", s.tmp.Name(), err)
	}
	if err := os.Rename(s.tmp.Name(), s.path); err != nil {
		_ = os.Remove(s.tmp.Name())
		return fmt.Errorf("output: rename to %s: %w", s.path, err)
	}
	return nil
}

// Abort removes the temporary file. It is a no-op after Commit.
func (s *FileSink) Abort() {
	if s.done {
		return
	}
	s.done = true
	s.discard()
}

func (s *FileSink) discard() {
	_ = s.tmp.Close()
	_ = os.Remove(s.tmp.Name())
}

// Save copies src into path through a FileSink. On any failure the target
// path is left untouched.
func Save(path string, src io.WriterTo) (int64, error) {
	sink, err := NewFileSink(path)
	if err != nil {
		return 0, err
	}

	n, err := src.WriteTo(sink)
	if err != nil {
		sink.Abort()
		return n, err
	}
	if err := sink.Commit(); err != nil {
		return n, err
	}
	return n, nil
}
