package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// BackupTimeFormat names backups of corrupted datasets.
const BackupTimeFormat = "20060102_150405"

// Writer persists datasets with write-to-temp-then-rename semantics.
type Writer struct {
	Logger *slog.Logger

	now    func() time.Time
	rename func(oldpath, newpath string) error
}

// NewWriter creates a Writer that logs to logger (slog.Default when nil).
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		Logger: logger,
		now:    time.Now,
		rename: os.Rename,
	}
}

func (w *Writer) renameFile(oldpath, newpath string) error {
	if w.rename != nil {
		return w.rename(oldpath, newpath)
	}
	return os.Rename(oldpath, newpath)
}

func (w *Writer) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

// Persist replaces target with records. On failure the temporary file is
// removed and target keeps its previous contents.
func (w *Writer) Persist(target string, records []Record) (err error) {
	data, err := Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				w.logger().Warn("failed to remove temp file", "path", tmpPath, "error", rmErr)
			}
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	// Rename replaces an existing target and creates a missing one.
	if err = w.renameFile(tmpPath, target); err != nil {
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}
	return nil
}

// Append loads target, appends added after the existing records and persists
// the merged array.
func (w *Writer) Append(target string, added []Record) error {
	existing, err := Load(target)
	if err != nil {
		return err
	}
	merged := Merge(existing, added)
	if err := w.Persist(target, merged); err != nil {
		return err
	}
	w.logger().Info("saved dataset", "path", target, "records", len(merged), "added", len(added))
	return nil
}

// Recover moves a corrupted dataset aside as <target>.<timestamp>.bak so
// processing can start from an empty dataset. If the backup cannot be made the
// corrupted file is deleted. The returned path is empty when no backup exists.
func (w *Writer) Recover(target string) (string, error) {
	backup := fmt.Sprintf("%s.%s.bak", target, w.clock().Format(BackupTimeFormat))

	if _, err := os.Stat(backup); err == nil {
		if err := os.Remove(backup); err != nil {
			w.logger().Warn("failed to remove stale backup", "path", backup, "error", err)
		}
	}

	renameErr := w.renameFile(target, backup)
	if renameErr == nil {
		w.logger().Info("created backup of corrupted dataset", "path", backup)
		return backup, nil
	}
	w.logger().Warn("failed to create backup", "path", backup, "error", renameErr)

	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to remove corrupted dataset %s: %w", target, err)
	}
	w.logger().Info("removed corrupted dataset", "path", target)
	return "", nil
}

// LoadOrRecover loads target, recovering from corruption by backing the file
// up and returning an empty dataset.
func (w *Writer) LoadOrRecover(target string) ([]Record, error) {
	records, err := Load(target)
	if err == nil {
		return records, nil
	}
	if !errors.Is(err, ErrCorrupt) {
		return nil, err
	}

	w.logger().Warn("existing dataset is corrupt", "path", target, "error", err)
	if _, err := w.Recover(target); err != nil {
		return nil, err
	}
	return nil, nil
}
