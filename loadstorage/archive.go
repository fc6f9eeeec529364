package loadstorage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func isEmptyFolder(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filepath.Ext(e.Name()) == exceptionSuffix {
			continue
		}
		return false, nil
	}
	return true, nil
}

// CompleteLoadPackage archives loadID's directory under the archived
// root. Unless aborted is true, it refuses when new_jobs or started_jobs
// still holds job files.
func (s *Storage) CompleteLoadPackage(loadID string, aborted bool) error {
	if !aborted {
		archivable, folder, err := s.packageArchivable(loadID)
		if err != nil {
			return err
		}
		if !archivable {
			return fmt.Errorf("%w: %s/%s", ErrPackageNotArchivable, loadID, folder)
		}
	}
	if err := ensureDir(filepath.Join(s.root, archivedDir)); err != nil {
		return err
	}
	if err := os.Rename(s.packageDir(loadID), s.archivedPackageDir(loadID)); err != nil {
		return err
	}
	now := time.Now()
	return os.Chtimes(s.archivedPackageDir(loadID), now, now)
}

// PackageArchivable reports whether loadID currently has both new_jobs and
// started_jobs empty, the non-aborted precondition for CompleteLoadPackage.
// Callers that must not perform destination-side finalization before
// archiving is actually possible should check this first rather than
// discover the refusal after the fact.
func (s *Storage) PackageArchivable(loadID string) (bool, error) {
	archivable, _, err := s.packageArchivable(loadID)
	return archivable, err
}

func (s *Storage) packageArchivable(loadID string) (bool, folderName, error) {
	for _, folder := range []folderName{folderNew, folderStarted} {
		empty, err := isEmptyFolder(s.folderDir(loadID, folder))
		if err != nil {
			return false, folder, err
		}
		if !empty {
			return false, folder, nil
		}
	}
	return true, "", nil
}

// ArchivedPackage describes one archived package directory, as returned
// by ListArchivedPackages.
type ArchivedPackage struct {
	LoadID   string
	Path     string
	Archived time.Time
}

// ListArchivedPackages returns every archived package directory, oldest
// first by archival time (the directory's modification time, which
// CompleteLoadPackage sets right after renaming it into place).
func (s *Storage) ListArchivedPackages() ([]ArchivedPackage, error) {
	dir := filepath.Join(s.root, archivedDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loadstorage: list archived packages: %w", err)
	}
	var out []ArchivedPackage
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, ArchivedPackage{
			LoadID:   e.Name(),
			Path:     filepath.Join(dir, e.Name()),
			Archived: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Archived.Before(out[j].Archived) })
	return out, nil
}

// DeleteArchivedPackage permanently removes an archived package
// directory. It is the terminal step of the retention sweep (see
// loadexec.ArchiveSweeper), never applied to a live (non-archived)
// package.
func (s *Storage) DeleteArchivedPackage(loadID string) error {
	return os.RemoveAll(s.archivedPackageDir(loadID))
}
