package sqlitedest

import "github.com/loadqueue/loadexec/loadjob"

// sqlJob is the LoadJob handle returned for every file sqlitedest loads.
// It always carries the followup capability, matching the original
// implementation where every SQL-backed job is followup-capable and the
// write-disposition check happens one layer up, in the planner.
type sqlJob struct {
	fileName  string
	jobID     string
	state     loadjob.RunState
	exception string
}

func (j *sqlJob) State() loadjob.RunState   { return j.state }
func (j *sqlJob) Exception() string         { return j.exception }
func (j *sqlJob) FileName() string          { return j.fileName }
func (j *sqlJob) JobID() string             { return j.jobID }
func (j *sqlJob) IsFollowupCapable() bool   { return true }

var _ loadjob.FollowupJob = (*sqlJob)(nil)

// mergeJob is the NewLoadJob handle returned by CreateMergeJob. The merge
// itself already ran synchronously by the time this value is
// constructed, so State always reports a terminal value; Executor places
// it in started_jobs and immediately restores it through RestoreFileLoad,
// so the following poll pass finalizes it.
type mergeJob struct {
	newFilePath string
}

func (j *mergeJob) State() loadjob.RunState { return loadjob.Completed }
func (j *mergeJob) NewFilePath() string     { return j.newFilePath }

var _ loadjob.NewLoadJob = (*mergeJob)(nil)
