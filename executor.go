package loadexec

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/loadqueue/loadexec/config"
	"github.com/loadqueue/loadexec/destination"
	"github.com/loadqueue/loadexec/jobpool"
	"github.com/loadqueue/loadexec/loadjob"
	"github.com/loadqueue/loadexec/loadstorage"
	"github.com/loadqueue/loadexec/metrics"
	"github.com/loadqueue/loadexec/planner"
	"github.com/loadqueue/loadexec/schema"
)

// Executor drives one load package at a time from inbox to archive.
type Executor struct {
	storage *loadstorage.Storage
	factory destination.Factory
	pool    *jobpool.Pool
	plan    *planner.Planner
	cfg     *config.Config
	metrics *metrics.Registry
	log     *slog.Logger
}

// New builds an Executor. cfg.Workers bounds jobpool.Pool's concurrency.
func New(storage *loadstorage.Storage, factory destination.Factory, cfg *config.Config, reg *metrics.Registry, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	if reg == nil {
		reg = metrics.New(cfg.MetricsEnabled)
	}
	return &Executor{
		storage: storage,
		factory: factory,
		pool:    jobpool.New(cfg.Workers, log),
		plan:    planner.New(storage),
		cfg:     cfg,
		metrics: reg,
		log:     log,
	}
}

// Run processes at most one load package. It reports false, nil when
// the inbox is empty. A JobFailed error means the package was aborted
// because raise_on_failed_jobs is set; any other error (a transient
// destination failure, a storage error, ErrPackageNotArchivable while a
// file is still pending, or ctx's error on cancellation) aborted the run
// for the outer scheduler to retry.
func (e *Executor) Run(ctx context.Context) (bool, error) {
	packages, err := e.storage.ListPackages()
	if err != nil {
		return false, err
	}
	if len(packages) == 0 {
		return false, nil
	}
	loadID := packages[0]
	log := e.log.With("load_id", loadID)
	log.Info("picked up load package")

	schemaPath, err := e.storage.PackageSchemaPath(loadID)
	if err != nil {
		return false, err
	}
	sch, err := schema.Load(schemaPath)
	if err != nil {
		return false, err
	}

	client, err := e.factory.Open(ctx, sch)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Warn("error closing destination session", "error", err)
		}
	}()

	if err := e.syncSchema(ctx, client, sch, loadID); err != nil {
		return false, err
	}

	jobs, err := e.retrieveJobs(ctx, client, loadID)
	if err != nil {
		return false, err
	}
	if len(jobs) == 0 {
		jobs, err = e.spoolNewJobs(ctx, sch, loadID)
		if err != nil {
			return false, err
		}
	}

	if len(jobs) == 0 {
		if err := e.archive(loadID, false); err != nil {
			return false, err
		}
		log.Info("load package had no jobs to run")
		return true, nil
	}

	for {
		jobs, err = e.completeJobs(ctx, client, sch, loadID, jobs)
		if err != nil {
			if failed, ok := err.(*JobFailed); ok {
				if archErr := e.archive(loadID, true); archErr != nil {
					log.Error("error archiving aborted package", "error", archErr)
				}
				return true, failed
			}
			return false, err
		}
		if len(jobs) == 0 {
			break
		}
		if err := e.sleepInterruptible(ctx, e.cfg.PollInterval); err != nil {
			return true, err
		}
	}

	archivable, err := e.storage.PackageArchivable(loadID)
	if err != nil {
		return false, err
	}
	if !archivable {
		return false, fmt.Errorf("%w: %s", loadstorage.ErrPackageNotArchivable, loadID)
	}

	if err := client.CompleteLoad(ctx, loadID); err != nil {
		return false, err
	}
	if err := e.archive(loadID, false); err != nil {
		return false, err
	}
	log.Info("load package completed")
	return true, nil
}

// sleepInterruptible waits d, returning ctx.Err() early if ctx is
// cancelled first, rather than a bare time.Sleep.
func (e *Executor) sleepInterruptible(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Executor) archive(loadID string, aborted bool) error {
	if err := e.storage.CompleteLoadPackage(loadID, aborted); err != nil {
		return err
	}
	if aborted {
		e.metrics.PackageAborted()
	} else {
		e.metrics.PackageCompleted()
	}
	return nil
}

// syncSchema runs the schema-sync protocol once per package: on the
// first call after package creation, begin_schema_update returns the
// staged artifact; every later call returns nil and this is a no-op.
func (e *Executor) syncSchema(ctx context.Context, client destination.Client, sch *schema.Schema, loadID string) error {
	update, err := e.storage.BeginSchemaUpdate(loadID)
	if err != nil {
		return err
	}
	if update == nil {
		return nil
	}

	if err := client.InitializeStorage(ctx, false, nil); err != nil {
		return err
	}

	newJobFiles, err := e.storage.ListNewJobs(loadID)
	if err != nil {
		return err
	}
	tables := map[string]bool{}
	for _, f := range newJobFiles {
		parsed, err := loadjob.ParseName(filepath.Base(f))
		if err != nil {
			continue
		}
		tables[parsed.TableName] = true
	}
	for _, name := range sch.InternalTables() {
		tables[name] = true
	}

	applied, err := client.UpdateStorageSchema(ctx, false, tables, update)
	if err != nil {
		return err
	}

	mergeTables := e.mergeTables(sch, tables)
	if len(mergeTables) > 0 {
		stagingSet := map[string]bool{}
		truncate := make([]string, 0, len(mergeTables))
		for table := range mergeTables {
			stagingSet[table] = true
			truncate = append(truncate, table)
		}
		for _, name := range sch.InternalTables() {
			stagingSet[name] = true
		}

		if err := client.InitializeStorage(ctx, true, nil); err != nil {
			return err
		}
		if _, err := client.UpdateStorageSchema(ctx, true, stagingSet, update); err != nil {
			return err
		}
		if err := client.InitializeStorage(ctx, true, truncate); err != nil {
			return err
		}
	}

	return e.storage.CommitSchemaUpdate(loadID, applied)
}

// mergeTables returns the subset of candidates whose top-level write
// disposition resolves to merge.
func (e *Executor) mergeTables(sch *schema.Schema, candidates map[string]bool) map[string]bool {
	merge := map[string]bool{}
	for table := range candidates {
		top, err := sch.TopLevelTable(table)
		if err != nil {
			continue
		}
		disposition, err := sch.ResolvedWriteDisposition(top.Name)
		if err == nil && disposition == schema.Merge {
			merge[table] = true
		}
	}
	return merge
}

// retrieveJobs restores every job left in started_jobs from a previous
// crashed or interrupted run. A transient restore failure propagates,
// aborting the whole invocation for the outer scheduler to retry.
func (e *Executor) retrieveJobs(ctx context.Context, client destination.Client, loadID string) ([]loadjob.LoadJob, error) {
	files, err := e.storage.ListStartedJobs(loadID)
	if err != nil {
		return nil, err
	}
	jobs := make([]loadjob.LoadJob, 0, len(files))
	for _, f := range files {
		fileName := filepath.Base(f)
		job, err := client.RestoreFileLoad(ctx, fileName)
		if err != nil {
			if destination.IsTerminal(err) {
				jobs = append(jobs, loadjob.NewEmptyLoadJob(fileName, loadjob.Failed, err.Error()))
				continue
			}
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// spoolNewJobs spools at most cfg.Workers files from new_jobs through
// jobpool.Pool. Files beyond that bound wait for the next invocation.
func (e *Executor) spoolNewJobs(ctx context.Context, sch *schema.Schema, loadID string) ([]loadjob.LoadJob, error) {
	files, err := e.storage.ListNewJobs(loadID)
	if err != nil {
		return nil, err
	}
	if len(files) > e.cfg.Workers {
		files = files[:e.cfg.Workers]
	}

	caps := e.factory.Capabilities()
	results := e.pool.SpoolBatch(ctx, loadID, files, func(ctx context.Context, loadID, path string) (loadjob.LoadJob, error) {
		return e.spoolOne(ctx, sch, caps, loadID, path)
	})

	jobs := make([]loadjob.LoadJob, 0, len(results))
	for _, j := range results {
		if j != nil {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

// spoolOne owns a destination session scoped to this one file, open for
// the duration of the spool and closed before returning: validates format
// and write disposition, starts the file load, and moves the file into
// started_jobs regardless of whether the destination accepted it or
// failed it terminally.
func (e *Executor) spoolOne(ctx context.Context, sch *schema.Schema, caps destination.Capabilities, loadID, path string) (loadjob.LoadJob, error) {
	fileName := filepath.Base(path)

	parsed, err := loadjob.ParseName(fileName)
	if err != nil {
		return e.finishTerminalSpool(loadID, fileName, err)
	}
	if !caps.Supports(parsed.FileFormat) {
		return e.finishTerminalSpool(loadID, fileName, &UnsupportedFileFormat{
			Format: parsed.FileFormat, Supported: caps.SupportedFileFormats, Path: path,
		})
	}
	table, ok := sch.GetTable(parsed.TableName)
	if !ok {
		return e.finishTerminalSpool(loadID, fileName, &UnknownTable{Table: parsed.TableName, Path: path})
	}
	disposition, err := sch.ResolvedWriteDisposition(parsed.TableName)
	if err != nil || !disposition.Valid() {
		return e.finishTerminalSpool(loadID, fileName, &UnsupportedWriteDisposition{
			Table: parsed.TableName, Disposition: string(disposition), Path: path,
		})
	}

	client, err := e.factory.Open(ctx, sch)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			e.log.Warn("error closing per-file destination session", "file", fileName, "error", cerr)
		}
	}()

	job, startErr := client.StartFileLoad(ctx, table, path)
	if startErr != nil {
		if destination.IsTerminal(startErr) {
			return e.finishTerminalSpool(loadID, fileName, startErr)
		}
		return nil, startErr
	}

	if err := e.storage.StartJob(loadID, fileName); err != nil {
		return nil, err
	}
	return job, nil
}

// finishTerminalSpool moves fileName into started_jobs and returns a
// synthesized failed LoadJob carrying cause's message, so the poll loop
// can route it to failed_jobs the same way as any other job.
func (e *Executor) finishTerminalSpool(loadID, fileName string, cause error) (loadjob.LoadJob, error) {
	if err := e.storage.StartJob(loadID, fileName); err != nil {
		return nil, err
	}
	return loadjob.NewEmptyLoadJob(fileName, loadjob.Failed, cause.Error()), nil
}

// completeJobs routes every job by its current state, returning the
// still-running subset. A failure with raise_on_failed_jobs set returns
// a *JobFailed error; the caller must archive the package as aborted.
func (e *Executor) completeJobs(ctx context.Context, client destination.Client, sch *schema.Schema, loadID string, jobs []loadjob.LoadJob) ([]loadjob.LoadJob, error) {
	remaining := make([]loadjob.LoadJob, 0, len(jobs))
	counts := map[loadjob.RunState]int64{}
	for _, job := range jobs {
		state := job.State()
		counts[state]++
		switch state {
		case loadjob.Running:
			remaining = append(remaining, job)

		case loadjob.Failed:
			msg := job.Exception()
			finalPath, err := e.storage.FailJob(loadID, job.FileName(), msg)
			if err != nil {
				return nil, err
			}
			e.recordTerminal(loadID, job.FileName(), finalPath, loadjob.Failed)
			if e.cfg.RaiseOnFailedJobs {
				return nil, &JobFailed{LoadID: loadID, JobID: job.JobID(), Message: msg}
			}
			e.log.Error("job failed terminally", "load_id", loadID, "job_id", job.JobID(), "message", msg)

		case loadjob.Retry:
			if err := e.retryOrKill(loadID, job); err != nil {
				return nil, err
			}

		case loadjob.Completed:
			followups, err := e.plan.CreateFollowupJobs(ctx, client, loadID, sch, state, job)
			if err != nil {
				return nil, err
			}
			for _, fj := range followups {
				restored, err := e.insertFollowup(ctx, client, loadID, fj)
				if err != nil {
					return nil, err
				}
				if restored != nil {
					remaining = append(remaining, restored)
				}
			}
			finalPath, err := e.storage.CompleteJob(loadID, job.FileName())
			if err != nil {
				return nil, err
			}
			e.recordTerminal(loadID, job.FileName(), finalPath, loadjob.Completed)
		}
	}
	for state, count := range counts {
		e.metrics.SetJobStateCount(state, count)
	}
	return remaining, nil
}

// retryOrKill either returns job to new_jobs with retry_count
// incremented, or kills it to failed_jobs when doing so would exceed
// config.Config.MaxRetries.
func (e *Executor) retryOrKill(loadID string, job loadjob.LoadJob) error {
	msg := job.Exception()
	parsed, err := loadjob.ParseName(job.FileName())
	if err != nil {
		_, err := e.storage.FailJob(loadID, job.FileName(), msg)
		return err
	}
	if retryExceedsCap(parsed.RetryCount+1, e.cfg.MaxRetries) {
		finalPath, err := e.storage.FailJob(loadID, job.FileName(), msg)
		if err != nil {
			return err
		}
		e.recordTerminal(loadID, job.FileName(), finalPath, loadjob.Failed)
		e.log.Error("job exceeded retry cap, killed", "load_id", loadID, "job_id", job.JobID(), "retry_count", parsed.RetryCount+1)
		return nil
	}
	if _, err := e.storage.RetryJob(loadID, job.FileName()); err != nil {
		return err
	}
	e.log.Warn("job retried", "load_id", loadID, "job_id", job.JobID(), "message", msg)
	return nil
}

// insertFollowup places a follow-up job per its advertised state: Running
// jobs go into new_jobs to be spooled normally next cycle; anything else
// goes into started_jobs and is immediately restored so it terminalizes
// within the current cycle.
func (e *Executor) insertFollowup(ctx context.Context, client destination.Client, loadID string, fj loadjob.NewLoadJob) (loadjob.LoadJob, error) {
	folder := loadjob.StartedJobs
	if fj.State() == loadjob.Running {
		folder = loadjob.NewJobs
	}
	if err := e.storage.AddNewJob(loadID, fj.NewFilePath(), folder); err != nil {
		return nil, err
	}
	if folder == loadjob.NewJobs {
		return nil, nil
	}
	fileName := filepath.Base(fj.NewFilePath())
	return client.RestoreFileLoad(ctx, fileName)
}

func (e *Executor) recordTerminal(loadID, fileName, finalPath string, state loadjob.RunState) {
	e.metrics.JobTerminated(state)
	elapsed, err := e.storage.JobElapsedTimeSeconds(finalPath)
	if err != nil {
		return
	}
	table := fileName
	if parsed, perr := loadjob.ParseName(fileName); perr == nil {
		table = parsed.TableName
	}
	e.metrics.RecordJobWait(table, elapsed)
}
