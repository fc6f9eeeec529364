package loadjob

import "fmt"

// Folder identifies which of the four on-disk directories a job file
// currently lives in.
//
// The state machine is:
//
//	new_jobs     -> started_jobs
//	started_jobs -> completed_jobs
//	started_jobs -> new_jobs       (via retry, retry_count incremented)
//	started_jobs -> failed_jobs
//
// Unknown is reserved as the zero value and is never a job's actual folder.
type Folder uint8

const (
	// Unknown represents an unspecified folder. It is the zero value.
	Unknown Folder = iota

	// NewJobs holds job files eligible to be spooled.
	NewJobs

	// StartedJobs holds job files handed to the destination, running
	// remotely or locally.
	StartedJobs

	// FailedJobs holds job files in a terminal failure state. A sibling
	// ".exception" file carries the failure message.
	FailedJobs

	// CompletedJobs holds job files in a terminal success state.
	CompletedJobs
)

func folderToString(f Folder) string {
	switch f {
	case NewJobs:
		return "new_jobs"
	case StartedJobs:
		return "started_jobs"
	case FailedJobs:
		return "failed_jobs"
	case CompletedJobs:
		return "completed_jobs"
	default:
		return "unknown"
	}
}

func folderFromString(s string) (Folder, error) {
	switch s {
	case "new_jobs":
		return NewJobs, nil
	case "started_jobs":
		return StartedJobs, nil
	case "failed_jobs":
		return FailedJobs, nil
	case "completed_jobs":
		return CompletedJobs, nil
	default:
		return Unknown, fmt.Errorf("unknown job folder: %s", s)
	}
}

// ParseFolder converts a directory name into a Folder value.
func ParseFolder(s string) (Folder, error) {
	return folderFromString(s)
}

// Terminal reports whether the folder is one of the two terminal states
// (failed_jobs or completed_jobs).
func (f Folder) Terminal() bool {
	return f == FailedJobs || f == CompletedJobs
}

// String returns the on-disk directory name for the folder.
func (f Folder) String() string {
	return folderToString(f)
}
