package jobpool

import (
	"context"
	"log/slog"
	"sync"

	"github.com/loadqueue/loadexec/loadjob"
)

// SpoolFunc spools a single job file at path (belonging to loadID) onto a
// destination and returns the resulting LoadJob.
//
// A nil, nil return indicates a transient failure: the caller should leave
// the file in new_jobs for a later run. A non-nil error from SpoolFunc is
// treated as an unexpected failure and is also folded into a transient
// (nil job, nil error) result by Pool: any unrecognized spool error is
// assumed retriable rather than poisoning the job outright.
type SpoolFunc func(ctx context.Context, loadID string, path string) (loadjob.LoadJob, error)

// Pool is a bounded worker pool of the given size, used to spool one
// batch of files concurrently.
type Pool struct {
	workers int
	log     *slog.Logger
}

// New creates a Pool with the given concurrency bound. workers must be at
// least 1.
func New(workers int, log *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{workers: workers, log: log}
}

// SpoolBatch spools every file in files concurrently, bounded by the
// pool's worker count, and returns one LoadJob per input file in the same
// order. An entry is nil where spool raised a transient failure, leaving
// that file in new_jobs for a subsequent run.
//
// At most Pool's worker count files are in flight at any moment; the rest
// of files wait their turn within this same call. Files beyond the
// worker count are NOT deferred to a future poll cycle by Pool itself —
// that truncation (at most `workers` per cycle) is the caller's
// responsibility, applied before files is passed in.
func (p *Pool) SpoolBatch(ctx context.Context, loadID string, files []string, spool SpoolFunc) []loadjob.LoadJob {
	results := make([]loadjob.LoadJob, len(files))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.spoolOne(ctx, loadID, path, spool)
		}(i, path)
	}
	wg.Wait()
	return results
}

func (p *Pool) spoolOne(ctx context.Context, loadID string, path string, spool SpoolFunc) (job loadjob.LoadJob) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("jobpool: worker panic recovered", "path", path, "err", r)
			job = nil
		}
	}()
	j, err := spool(ctx, loadID, path)
	if err != nil {
		p.log.Warn("jobpool: spool failed, leaving file for a later run", "path", path, "err", err)
		return nil
	}
	return j
}
