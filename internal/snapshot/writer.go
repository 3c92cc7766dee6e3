// Package snapshot writes and reads the three CSV snapshot files that make
// up the output of a fetch run.
package snapshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/sambett/github-api-visualize/internal/domain"
)

// File names of the three datasets inside the output directory.
const (
	RepositoriesFile = "repositories.csv"
	CommitsFile      = "commits.csv"
	ContributorsFile = "contributors.csv"
)

// Writer serializes snapshots to an output directory.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a new Writer instance.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// Write replaces the snapshot files under dir with the given snapshot. Each
// file is written to a temporary path and renamed into place, so a reader
// never observes a half-written file and a crash leaves the previous
// snapshot intact.
func (w *Writer) Write(snap *domain.Snapshot, dir string) error {
	if err := writeFile(filepath.Join(dir, RepositoriesFile), snap.Repositories); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, CommitsFile), snap.Commits); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, ContributorsFile), snap.Contributors); err != nil {
		return err
	}
	w.logger.Info("snapshot written", "dir", dir,
		"repositories", len(snap.Repositories),
		"commits", len(snap.Commits),
		"contributors", len(snap.Contributors))
	return nil
}

// Read loads a previously written snapshot from dir.
func Read(dir string) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := readFile(filepath.Join(dir, RepositoriesFile), &snap.Repositories); err != nil {
		return nil, err
	}
	if err := readFile(filepath.Join(dir, CommitsFile), &snap.Commits); err != nil {
		return nil, err
	}
	if err := readFile(filepath.Join(dir, ContributorsFile), &snap.Contributors); err != nil {
		return nil, err
	}
	return &snap, nil
}

func writeFile[T any](path string, records []T) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // No-op after a successful rename.
	}()

	if err := gocsv.MarshalFile(&records, tmp); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func readFile[T any](path string, out *[]T) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gocsv.UnmarshalFile(f, out); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}
