package loadstorage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/loadqueue/loadexec/loadjob"
)

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o750)
}

func moveJob(fromDir, toDir, fileName string) (string, error) {
	if err := ensureDir(toDir); err != nil {
		return "", err
	}
	from := filepath.Join(fromDir, fileName)
	to := filepath.Join(toDir, fileName)
	if _, err := os.Stat(from); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrJobNotFound, from)
		}
		return "", err
	}
	if err := os.Rename(from, to); err != nil {
		return "", fmt.Errorf("loadstorage: move %s -> %s: %w", from, to, err)
	}
	return to, nil
}

// StartJob atomically moves fileName from new_jobs to started_jobs. It is
// idempotent: if the file is already in started_jobs, it is a no-op.
func (s *Storage) StartJob(loadID string, fileName string) error {
	startedDir := s.folderDir(loadID, folderStarted)
	if _, err := os.Stat(filepath.Join(startedDir, fileName)); err == nil {
		return nil
	}
	_, err := moveJob(s.folderDir(loadID, folderNew), startedDir, fileName)
	return err
}

// FailJob atomically moves fileName from started_jobs to failed_jobs and
// persists message as a sibling ".exception" artifact. It returns the
// final path of the job file.
func (s *Storage) FailJob(loadID string, fileName string, message string) (string, error) {
	final, err := moveJob(s.folderDir(loadID, folderStarted), s.folderDir(loadID, folderFailed), fileName)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(s.exceptionPath(loadID, fileName), []byte(message), 0o640); err != nil {
		return final, fmt.Errorf("loadstorage: write exception sidecar for %s: %w", fileName, err)
	}
	return final, nil
}

// FailureMessage returns the exception sidecar contents for a job file
// already in failed_jobs, or "" if none was recorded.
func (s *Storage) FailureMessage(loadID string, fileName string) string {
	data, err := os.ReadFile(s.exceptionPath(loadID, fileName))
	if err != nil {
		return ""
	}
	return string(data)
}

// RetryJob atomically moves fileName from started_jobs back to new_jobs,
// incrementing retry_count in the target file name while preserving the
// (table_name, file_id) identity. It returns the new file name.
func (s *Storage) RetryJob(loadID string, fileName string) (string, error) {
	parsed, err := loadjob.ParseName(fileName)
	if err != nil {
		return "", err
	}
	next := parsed.WithRetry(parsed.RetryCount + 1).Encode()

	fromDir := s.folderDir(loadID, folderStarted)
	toDir := s.folderDir(loadID, folderNew)
	if err := ensureDir(toDir); err != nil {
		return "", err
	}
	from := filepath.Join(fromDir, fileName)
	to := filepath.Join(toDir, next)
	if _, err := os.Stat(from); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrJobNotFound, from)
		}
		return "", err
	}
	if err := os.Rename(from, to); err != nil {
		return "", fmt.Errorf("loadstorage: retry rename %s -> %s: %w", from, to, err)
	}
	return next, nil
}

// CompleteJob atomically moves fileName from started_jobs to
// completed_jobs and returns its final path.
func (s *Storage) CompleteJob(loadID string, fileName string) (string, error) {
	return moveJob(s.folderDir(loadID, folderStarted), s.folderDir(loadID, folderCompleted), fileName)
}

// AddNewJob inserts a synthesized job directly into folder, taking it
// from srcPath (the temporary location the destination client wrote it
// to): the file is renamed into place when possible and its content is
// copied otherwise.
func (s *Storage) AddNewJob(loadID string, srcPath string, folder loadjob.Folder) error {
	var target folderName
	switch folder {
	case loadjob.NewJobs:
		target = folderNew
	case loadjob.StartedJobs:
		target = folderStarted
	default:
		return fmt.Errorf("loadstorage: add_new_job only supports new_jobs or started_jobs, got %s", folder)
	}
	dir := s.folderDir(loadID, target)
	if err := ensureDir(dir); err != nil {
		return err
	}
	dst := filepath.Join(dir, filepath.Base(srcPath))
	if sameVolume(srcPath, dir) {
		if err := os.Rename(srcPath, dst); err == nil {
			return nil
		}
	}
	return copyFile(srcPath, dst)
}

// sameVolume is a best-effort check used to prefer a rename over a copy.
// It compares volume names only; on Unix filepath.VolumeName is always
// empty, so it reports true there and a failed rename falls back to a
// copy.
func sameVolume(path string, dir string) bool {
	absPath, err1 := filepath.Abs(path)
	absDir, err2 := filepath.Abs(dir)
	if err1 != nil || err2 != nil {
		return false
	}
	return filepath.VolumeName(absPath) == filepath.VolumeName(absDir)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("loadstorage: open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("loadstorage: create %s: %w", dst, err)
	}
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("loadstorage: copy %s -> %s: %w", src, dst, err)
	}
	return nil
}

// JobElapsedTimeSeconds returns the wall time between a job's creation
// and its arrival at finalPath, a terminal-folder path returned by
// FailJob or CompleteJob.
//
// os.Rename never touches a file's modification time, so the original
// creation timestamp survives every transition the job went through,
// including retries; this is read directly off the file rather than
// tracked in a side record.
func (s *Storage) JobElapsedTimeSeconds(finalPath string) (float64, error) {
	info, err := os.Stat(finalPath)
	if err != nil {
		return 0, fmt.Errorf("loadstorage: stat %s: %w", finalPath, err)
	}
	return time.Since(info.ModTime()).Seconds(), nil
}
