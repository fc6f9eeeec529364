package planner

import (
	"context"

	"github.com/loadqueue/loadexec/destination"
	"github.com/loadqueue/loadexec/loadjob"
	"github.com/loadqueue/loadexec/loadstorage"
	"github.com/loadqueue/loadexec/schema"
)

// Planner decides whether a completed job should produce a merge
// follow-up job, and builds it through a destination.Client.
type Planner struct {
	storage *loadstorage.Storage
}

// New builds a Planner backed by storage.
func New(storage *loadstorage.Storage) *Planner {
	return &Planner{storage: storage}
}

// ChainGate reports the ordered parent-to-child table chain rooted at top
// that is ready for a merge job, and whether the gate is open at all.
//
// The gate opens only once at least one table in top's descendant chain
// has a job, and every job for every table in the chain is in a
// terminal folder (failed_jobs or completed_jobs) -- except startingJob
// itself, which is still being processed by the caller and is exempted
// from this check. A table with no jobs at all is skipped rather than
// blocking the chain, matching the assumption that a childless parent
// implies childless children.
func (p *Planner) ChainGate(loadID string, sch *schema.Schema, top *schema.Table, startingJob loadjob.LoadJob) ([]*schema.Table, bool, error) {
	var chain []*schema.Table
	for _, table := range sch.Descendants(top.Name) {
		jobs, err := p.storage.ListJobsForTable(loadID, table.Name)
		if err != nil {
			return nil, false, err
		}
		if len(jobs) == 0 {
			continue
		}
		for _, j := range jobs {
			if j.Folder.Terminal() {
				continue
			}
			if j.Parsed.JobID() == startingJob.JobID() {
				continue
			}
			return nil, false, nil
		}
		chain = append(chain, table)
	}
	if len(chain) == 0 {
		return nil, false, nil
	}
	return chain, true, nil
}

// CreateFollowupJobs builds the follow-up jobs unblocked by startingJob
// reaching state, if any. It returns an empty slice, not an error, when
// startingJob does not carry the followup capability, when state is not
// Completed, when the job's top-level table is not a merge table, or when
// the chain gate is not yet open.
func (p *Planner) CreateFollowupJobs(ctx context.Context, client destination.Client, loadID string, sch *schema.Schema, state loadjob.RunState, startingJob loadjob.LoadJob) ([]loadjob.NewLoadJob, error) {
	followup, ok := startingJob.(loadjob.FollowupJob)
	if !ok || !followup.IsFollowupCapable() {
		return nil, nil
	}
	if state != loadjob.Completed {
		return nil, nil
	}

	parsed, err := loadjob.ParseName(startingJob.FileName())
	if err != nil {
		return nil, err
	}
	top, err := sch.TopLevelTable(parsed.TableName)
	if err != nil {
		return nil, err
	}
	disposition, err := sch.ResolvedWriteDisposition(top.Name)
	if err != nil {
		return nil, err
	}
	if disposition != schema.Merge {
		return nil, nil
	}

	chain, open, err := p.ChainGate(loadID, sch, top, startingJob)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, nil
	}

	job, err := client.CreateMergeJob(ctx, chain)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	return []loadjob.NewLoadJob{job}, nil
}
