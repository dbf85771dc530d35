// Package progress persists which chunk indices of a dataset have been generated.
//
// The sidecar lives next to the dataset file and records at-least-once
// progress: a crash between a dataset append and the following Save replays
// that chunk on the next run.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Suffix is appended to the dataset path to name its sidecar.
const Suffix = ".progress"

// Set is an unordered set of processed chunk indices.
type Set map[int]struct{}

// NewSet builds a set from indices.
func NewSet(indices ...int) Set {
	s := make(Set, len(indices))
	for _, i := range indices {
		s[i] = struct{}{}
	}
	return s
}

// Has reports whether index i was processed.
func (s Set) Has(i int) bool {
	_, ok := s[i]
	return ok
}

// Add marks index i as processed.
func (s Set) Add(i int) {
	s[i] = struct{}{}
}

// Sorted returns the indices in ascending order.
func (s Set) Sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

type sidecar struct {
	ProcessedChunks []int `json:"processed_chunks"`
}

// SidecarPath returns the progress file for a dataset target.
func SidecarPath(target string) string {
	return target + Suffix
}

// Store loads and saves progress sidecars.
type Store struct {
	Logger *slog.Logger

	rename func(oldpath, newpath string) error
}

// NewStore creates a Store that logs to logger (slog.Default when nil).
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{Logger: logger}
}

func (s *Store) logger() *slog.Logger {
	if s == nil || s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Store) renameFile(oldpath, newpath string) error {
	if s != nil && s.rename != nil {
		return s.rename(oldpath, newpath)
	}
	return os.Rename(oldpath, newpath)
}

// Load returns the processed set for target.
// A missing, unreadable or malformed sidecar yields an empty set.
func (s *Store) Load(target string) Set {
	path := SidecarPath(target)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger().Warn("failed to read progress, starting fresh", "path", path, "error", err)
		}
		return NewSet()
	}

	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		s.logger().Warn("failed to parse progress, starting fresh", "path", path, "error", err)
		return NewSet()
	}
	return NewSet(sc.ProcessedChunks...)
}

// Save replaces the sidecar for target with the full set. The file is
// written to a temporary sibling and renamed into place, so a failed Save
// leaves the previous sidecar intact.
func (s *Store) Save(target string, set Set) (err error) {
	data, err := json.Marshal(sidecar{ProcessedChunks: set.Sorted()})
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	path := SidecarPath(target)
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp progress file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				s.logger().Warn("failed to remove temp progress file", "path", tmpPath, "error", rmErr)
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write progress: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod progress: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync progress: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close progress: %w", err)
	}
	if err = s.renameFile(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Remove deletes the sidecar for target. A missing sidecar is not an error.
func (s *Store) Remove(target string) error {
	if err := os.Remove(SidecarPath(target)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove progress: %w", err)
	}
	return nil
}
