package loadexec

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/loadqueue/loadexec/internal"
	"github.com/loadqueue/loadexec/loadstorage"
)

// sweepInterval is how often ArchiveSweeper checks for expired archived
// packages. Retention (ArchiveSweeperConfig.Retention) is configurable;
// the check cadence is not.
const sweepInterval = time.Hour

// ArchiveSweeperConfig configures an ArchiveSweeper.
type ArchiveSweeperConfig struct {
	// Retention is how long an archived package is kept before
	// deletion. Zero disables sweeping entirely.
	Retention time.Duration
}

// ArchiveSweeper periodically deletes archived load packages older than
// the configured retention window.
//
// ArchiveSweeper has a strict lifecycle: Start may only be called once;
// Stop must be called to terminate it and waits for the in-flight sweep
// to finish or the given timeout to expire.
type ArchiveSweeper struct {
	lcBase
	storage   *loadstorage.Storage
	task      internal.TimerTask
	log       *slog.Logger
	retention time.Duration
}

// NewArchiveSweeper builds an ArchiveSweeper over storage. The sweeper is
// not started automatically.
func NewArchiveSweeper(storage *loadstorage.Storage, cfg ArchiveSweeperConfig, log *slog.Logger) *ArchiveSweeper {
	return &ArchiveSweeper{
		storage:   storage,
		log:       log,
		retention: cfg.Retention,
	}
}

func (s *ArchiveSweeper) sweep(ctx context.Context) {
	if s.retention <= 0 {
		return
	}
	packages, err := s.storage.ListArchivedPackages()
	if err != nil {
		s.log.Error("archive sweep: list archived packages", "error", err)
		return
	}
	cutoff := time.Now().Add(-s.retention)
	var deleted int
	for _, pkg := range packages {
		if pkg.Archived.After(cutoff) {
			break // oldest-first: nothing further is expired either
		}
		if err := s.storage.DeleteArchivedPackage(pkg.LoadID); err != nil {
			s.log.Error("archive sweep: delete package", "load_id", pkg.LoadID, "error", err)
			continue
		}
		deleted++
		s.log.Info("archive sweep: deleted package", "load_id", pkg.LoadID, "age", humanize.Time(pkg.Archived))
	}
	if deleted > 0 {
		s.log.Info("archive sweep: complete", "deleted", deleted)
	}
}

// Start begins periodic sweeping. It returns ErrDoubleStarted if already
// running.
func (s *ArchiveSweeper) Start(ctx context.Context) error {
	if err := s.tryStart(); err != nil {
		return err
	}
	s.task.Start(ctx, s.sweep, sweepInterval)
	return nil
}

// Stop terminates the background sweep, waiting up to timeout for the
// in-flight pass to finish.
func (s *ArchiveSweeper) Stop(timeout time.Duration) error {
	return s.tryStop(timeout, s.task.Stop)
}
