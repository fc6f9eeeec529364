package loadexec

import "fmt"

// UnsupportedWriteDisposition is a terminal, core-originated error: the
// table's resolved write disposition is not one of append/replace/merge.
type UnsupportedWriteDisposition struct {
	Table       string
	Disposition string
	Path        string
}

func (e *UnsupportedWriteDisposition) Error() string {
	return fmt.Sprintf("loadexec: unsupported write disposition %q for table %q (file %s)", e.Disposition, e.Table, e.Path)
}

// UnsupportedFileFormat is a terminal, core-originated error: the job
// file's format is not among the destination's supported formats.
type UnsupportedFileFormat struct {
	Format    string
	Supported []string
	Path      string
}

func (e *UnsupportedFileFormat) Error() string {
	return fmt.Sprintf("loadexec: unsupported file format %q (supported: %v, file %s)", e.Format, e.Supported, e.Path)
}

// UnknownTable is a terminal, core-originated error: the job file's table
// is not present in the package's schema.
type UnknownTable struct {
	Table string
	Path  string
}

func (e *UnknownTable) Error() string {
	return fmt.Sprintf("loadexec: unknown table %q (file %s)", e.Table, e.Path)
}

// JobFailed signals that a job failed terminally while
// raise_on_failed_jobs is set. It is package-fatal: the caller must
// complete_package(aborted=true) and propagate this error.
type JobFailed struct {
	LoadID  string
	JobID   string
	Message string
}

func (e *JobFailed) Error() string {
	return fmt.Sprintf("loadexec: job %s in package %s failed: %s", e.JobID, e.LoadID, e.Message)
}
