package loadstorage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/loadqueue/loadexec/loadjob"
)

// Storage is the filesystem-backed job-state store for every load package
// under one inbox root.
//
// All package directories live under the same root, so every folder
// transition is a rename within one filesystem volume and is therefore
// atomic.
type Storage struct {
	root string
}

// New opens a Storage rooted at root, creating it if it does not exist.
func New(root string) (*Storage, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("loadstorage: create root %s: %w", root, err)
	}
	if err := os.MkdirAll(filepath.Join(root, archivedDir), 0o750); err != nil {
		return nil, fmt.Errorf("loadstorage: create archive root: %w", err)
	}
	return &Storage{root: root}, nil
}

// Root returns the storage's inbox root directory.
func (s *Storage) Root() string {
	return s.root
}

// ListPackages returns every non-archived load package's id, in lexical
// ascending order.
func (s *Storage) ListPackages() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("loadstorage: list packages: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == archivedDir {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// PackageSchemaPath returns the path to the frozen schema file for
// loadID. Callers load it with the schema package.
func (s *Storage) PackageSchemaPath(loadID string) (string, error) {
	entries, err := os.ReadDir(s.packageDir(loadID))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPackageNotFound, loadID)
	}
	var best string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) >= len("schema..json") && name[:7] == "schema." && filepath.Ext(name) == ".json" {
			if name > best {
				best = name
			}
		}
	}
	if best == "" {
		return "", fmt.Errorf("loadstorage: no schema file in package %s", loadID)
	}
	return filepath.Join(s.packageDir(loadID), best), nil
}

func (s *Storage) listFolder(loadID string, folder folderName) ([]string, error) {
	dir := s.folderDir(loadID, folder)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loadstorage: list %s/%s: %w", loadID, folder, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) == exceptionSuffix {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// ListNewJobs returns every job file path currently in new_jobs.
func (s *Storage) ListNewJobs(loadID string) ([]string, error) {
	return s.listFolder(loadID, folderNew)
}

// ListStartedJobs returns every job file path currently in started_jobs.
func (s *Storage) ListStartedJobs(loadID string) ([]string, error) {
	return s.listFolder(loadID, folderStarted)
}

// JobInfo describes one job file's current folder and parsed identity,
// as returned by ListJobsForTable.
type JobInfo struct {
	Folder loadjob.Folder
	Parsed loadjob.ParsedName
	Path   string
}

var folderToLoadjob = map[folderName]loadjob.Folder{
	folderNew:       loadjob.NewJobs,
	folderStarted:   loadjob.StartedJobs,
	folderFailed:    loadjob.FailedJobs,
	folderCompleted: loadjob.CompletedJobs,
}

// ListJobsForTable returns every job file for table across all four
// folders, most recent retry included, each tagged with the folder it
// currently occupies.
func (s *Storage) ListJobsForTable(loadID string, table string) ([]JobInfo, error) {
	var infos []JobInfo
	for _, folder := range allFolders {
		paths, err := s.listFolder(loadID, folder)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			parsed, err := loadjob.ParseName(filepath.Base(p))
			if err != nil {
				continue
			}
			if parsed.TableName != table {
				continue
			}
			infos = append(infos, JobInfo{
				Folder: folderToLoadjob[folder],
				Parsed: parsed,
				Path:   p,
			})
		}
	}
	return infos, nil
}

// ParseJobFileName parses the identity encoded in a job file's path.
func (s *Storage) ParseJobFileName(path string) (loadjob.ParsedName, error) {
	return loadjob.ParseName(filepath.Base(path))
}
