package loadstorage

import "path/filepath"

const (
	schemaUpdateFile  = "schema_update.json"
	appliedUpdateFile = "applied_update.json"
	exceptionSuffix   = ".exception"
	archivedDir       = "_archived"
)

func (s *Storage) packageDir(loadID string) string {
	return filepath.Join(s.root, loadID)
}

func (s *Storage) archivedPackageDir(loadID string) string {
	return filepath.Join(s.root, archivedDir, loadID)
}

func (s *Storage) folderDir(loadID string, folder folderName) string {
	return filepath.Join(s.packageDir(loadID), string(folder))
}

func (s *Storage) jobPath(loadID string, folder folderName, fileName string) string {
	return filepath.Join(s.folderDir(loadID, folder), fileName)
}

func (s *Storage) schemaUpdatePath(loadID string) string {
	return filepath.Join(s.packageDir(loadID), schemaUpdateFile)
}

func (s *Storage) appliedUpdatePath(loadID string) string {
	return filepath.Join(s.packageDir(loadID), appliedUpdateFile)
}

func (s *Storage) exceptionPath(loadID string, fileName string) string {
	return s.jobPath(loadID, folderFailed, fileName+exceptionSuffix)
}

// folderName is the on-disk directory name for a job folder.
type folderName string

const (
	folderNew       folderName = "new_jobs"
	folderStarted   folderName = "started_jobs"
	folderFailed    folderName = "failed_jobs"
	folderCompleted folderName = "completed_jobs"
)

var allFolders = [...]folderName{folderNew, folderStarted, folderFailed, folderCompleted}
