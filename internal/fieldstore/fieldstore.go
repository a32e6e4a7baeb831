// Package fieldstore implements the per-field directory persistence
// format (spec.md §6): Field.txt, Boundary.txt, Headland.Txt,
// BackPic.Txt, TrackLines.txt, Headlines.txt, and Coverage.bin.
//
// Every format here is the line-oriented `$Marker` plus fixed-decimal
// fields shape the rest of this module's text formats use (compare
// internal/nmea's `$PANDA` line parsing); Coverage.bin alone is binary
// and is handled by internal/coverage's own RLE codec.
package fieldstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// ErrPersistenceIO wraps any file read/write failure (spec.md §7
// PersistenceIOError: surfaced synchronously to the caller, never
// affecting the control loop).
type ErrPersistenceIO struct {
	Path string
	Err  error
}

func (e *ErrPersistenceIO) Error() string {
	return fmt.Sprintf("fieldstore: %s: %v", e.Path, e.Err)
}

func (e *ErrPersistenceIO) Unwrap() error { return e.Err }

// Store is a single field's on-disk directory.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir, which need not yet exist.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(name string) string { return filepath.Join(s.Dir, name) }

func (s *Store) readFile(name string) ([]byte, error) {
	p := s.path(name)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, &ErrPersistenceIO{Path: p, Err: err}
	}
	return b, nil
}

func (s *Store) writeFile(name string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return &ErrPersistenceIO{Path: s.Dir, Err: err}
	}
	p := s.path(name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return &ErrPersistenceIO{Path: p, Err: err}
	}
	return nil
}
