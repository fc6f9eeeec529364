package loadjob

// RunState is the runtime state of a job as reported by a destination
// client while the job executes. It is distinct from Folder, which is the
// durable, on-disk state.
type RunState uint8

const (
	// Running indicates the job is still executing, remotely or locally.
	Running RunState = iota

	// Retry indicates the handler failed with a retryable condition; the
	// job should be rescheduled as a new attempt.
	Retry

	// Failed indicates the job failed terminally and will not be retried.
	Failed

	// Completed indicates the job finished successfully.
	Completed
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case Retry:
		return "retry"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// LoadJob is the runtime handle for a job in flight, returned by a
// destination.Client from StartFileLoad or RestoreFileLoad.
//
// Exception is only meaningful when State is Failed or Retry; it must be
// the empty string otherwise.
type LoadJob interface {
	State() RunState
	Exception() string
	FileName() string
	JobID() string
}

// FollowupJob tags a LoadJob that may produce follow-up jobs once it
// reaches Completed. A LoadJob implementation opts into this capability
// by additionally implementing IsFollowupCapable; plain jobs do not
// satisfy this interface even though they structurally share LoadJob's
// method set, because IsFollowupCapable is not one of LoadJob's methods.
type FollowupJob interface {
	LoadJob
	IsFollowupCapable() bool
}

// NewLoadJob is a job synthesized outside the normal spool path — in
// practice, always by the planner package as a merge follow-up.
//
// State reports the initial advertised state: Running if the job will
// execute asynchronously once placed in started_jobs/new_jobs, or a
// terminal state if the destination already executed it synchronously
// while constructing it.
type NewLoadJob interface {
	State() RunState
	NewFilePath() string
}

// EmptyLoadJob is a LoadJob-shaped value with no backing destination
// operation. It is used to synthesize a terminal job when spooling or
// retrieval fails before a real job could be obtained, so the poll loop
// can route it to failed_jobs uniformly with any other job.
type EmptyLoadJob struct {
	fileName  string
	state     RunState
	exception string
}

// NewEmptyLoadJob builds a synthesized job for fileName in the given
// terminal state, carrying exception as its failure message.
func NewEmptyLoadJob(fileName string, state RunState, exception string) *EmptyLoadJob {
	return &EmptyLoadJob{fileName: fileName, state: state, exception: exception}
}

func (j *EmptyLoadJob) State() RunState   { return j.state }
func (j *EmptyLoadJob) Exception() string { return j.exception }
func (j *EmptyLoadJob) FileName() string  { return j.fileName }
func (j *EmptyLoadJob) JobID() string {
	parsed, err := ParseName(j.fileName)
	if err != nil {
		return j.fileName
	}
	return parsed.JobID()
}
