package loadstorage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loadqueue/loadexec/loadstorage"
)

func writeNewJob(t *testing.T, s *loadstorage.Storage, loadID, fileName, body string) {
	t.Helper()
	dir := filepath.Join(s.Root(), loadID, "new_jobs")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir new_jobs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte(body), 0o640); err != nil {
		t.Fatalf("write job file: %v", err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestStartJobMovesBetweenFolders(t *testing.T) {
	root := t.TempDir()
	s, err := loadstorage.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	writeNewJob(t, s, "load1", "orders.f1.0.jsonl", "{}")

	if err := s.StartJob("load1", "orders.f1.0.jsonl"); err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	if exists(filepath.Join(root, "load1", "new_jobs", "orders.f1.0.jsonl")) {
		t.Fatalf("job still present in new_jobs")
	}
	if !exists(filepath.Join(root, "load1", "started_jobs", "orders.f1.0.jsonl")) {
		t.Fatalf("job not present in started_jobs")
	}

	// idempotent: calling again once already started is a no-op, not an error
	if err := s.StartJob("load1", "orders.f1.0.jsonl"); err != nil {
		t.Fatalf("StartJob (repeat): %v", err)
	}
}

func TestStartJobMissingFileReturnsErrJobNotFound(t *testing.T) {
	root := t.TempDir()
	s, err := loadstorage.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.StartJob("load1", "orders.f1.0.jsonl"); err == nil {
		t.Fatalf("expected error for missing job file")
	}
}

func TestRetryJobRewritesFileNamePreservingIdentity(t *testing.T) {
	root := t.TempDir()
	s, err := loadstorage.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	writeNewJob(t, s, "load1", "orders.f1.0.jsonl", "{}")
	if err := s.StartJob("load1", "orders.f1.0.jsonl"); err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	next, err := s.RetryJob("load1", "orders.f1.0.jsonl")
	if err != nil {
		t.Fatalf("RetryJob: %v", err)
	}
	if next != "orders.f1.1.jsonl" {
		t.Fatalf("expected orders.f1.1.jsonl, got %s", next)
	}
	if exists(filepath.Join(root, "load1", "started_jobs", "orders.f1.0.jsonl")) {
		t.Fatalf("original file still in started_jobs")
	}
	if !exists(filepath.Join(root, "load1", "new_jobs", next)) {
		t.Fatalf("retried file not in new_jobs")
	}

	parsed, err := s.ParseJobFileName(next)
	if err != nil {
		t.Fatalf("ParseJobFileName: %v", err)
	}
	if parsed.JobID() != "orders.f1" {
		t.Fatalf("retry changed job identity: %s", parsed.JobID())
	}
	if parsed.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", parsed.RetryCount)
	}
}

func TestFailJobWritesExceptionSidecar(t *testing.T) {
	root := t.TempDir()
	s, err := loadstorage.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	writeNewJob(t, s, "load1", "orders.f1.0.jsonl", "{}")
	if err := s.StartJob("load1", "orders.f1.0.jsonl"); err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	final, err := s.FailJob("load1", "orders.f1.0.jsonl", "boom")
	if err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	if filepath.Dir(final) != filepath.Join(root, "load1", "failed_jobs") {
		t.Fatalf("unexpected final path: %s", final)
	}
	if msg := s.FailureMessage("load1", "orders.f1.0.jsonl"); msg != "boom" {
		t.Fatalf("expected exception sidecar %q, got %q", "boom", msg)
	}
}

func TestPackageArchivableRefusesWhileJobsRemain(t *testing.T) {
	root := t.TempDir()
	s, err := loadstorage.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	writeNewJob(t, s, "load1", "orders.f1.0.jsonl", "{}")

	archivable, err := s.PackageArchivable("load1")
	if err != nil {
		t.Fatalf("PackageArchivable: %v", err)
	}
	if archivable {
		t.Fatalf("expected package with a pending new_jobs file to be non-archivable")
	}

	if err := s.CompleteLoadPackage("load1", false); err == nil {
		t.Fatalf("expected CompleteLoadPackage to refuse while new_jobs is non-empty")
	}

	if err := s.StartJob("load1", "orders.f1.0.jsonl"); err != nil {
		t.Fatalf("StartJob: %v", err)
	}
	if _, err := s.CompleteJob("load1", "orders.f1.0.jsonl"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}

	archivable, err = s.PackageArchivable("load1")
	if err != nil {
		t.Fatalf("PackageArchivable (after completion): %v", err)
	}
	if !archivable {
		t.Fatalf("expected package to be archivable once new_jobs and started_jobs are empty")
	}

	if err := s.CompleteLoadPackage("load1", false); err != nil {
		t.Fatalf("CompleteLoadPackage: %v", err)
	}
	if exists(filepath.Join(root, "load1")) {
		t.Fatalf("package directory still present outside archive")
	}
	archived, err := s.ListArchivedPackages()
	if err != nil {
		t.Fatalf("ListArchivedPackages: %v", err)
	}
	if len(archived) != 1 || archived[0].LoadID != "load1" {
		t.Fatalf("expected load1 in archived packages, got %+v", archived)
	}
}

func TestCompleteLoadPackageAbortedIgnoresRemainingJobs(t *testing.T) {
	root := t.TempDir()
	s, err := loadstorage.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	writeNewJob(t, s, "load1", "orders.f1.0.jsonl", "{}")

	if err := s.CompleteLoadPackage("load1", true); err != nil {
		t.Fatalf("CompleteLoadPackage(aborted=true): %v", err)
	}
	if exists(filepath.Join(root, "load1")) {
		t.Fatalf("package directory still present after aborted archive")
	}
}

func TestReopenedStorageSeesJobsLeftByPriorRun(t *testing.T) {
	root := t.TempDir()
	s1, err := loadstorage.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	writeNewJob(t, s1, "load1", "orders.f1.0.jsonl", "{}")
	if err := s1.StartJob("load1", "orders.f1.0.jsonl"); err != nil {
		t.Fatalf("StartJob: %v", err)
	}

	// simulate a crash and restart: a fresh Storage opened over the same
	// root must observe the job exactly where the rename left it, since
	// all state lives in directory membership rather than in memory.
	s2, err := loadstorage.New(root)
	if err != nil {
		t.Fatalf("New (reopen): %v", err)
	}
	started, err := s2.ListStartedJobs("load1")
	if err != nil {
		t.Fatalf("ListStartedJobs: %v", err)
	}
	if len(started) != 1 || filepath.Base(started[0]) != "orders.f1.0.jsonl" {
		t.Fatalf("expected reopened storage to see started job, got %v", started)
	}

	archivable, err := s2.PackageArchivable("load1")
	if err != nil {
		t.Fatalf("PackageArchivable: %v", err)
	}
	if archivable {
		t.Fatalf("expected non-archivable: job still sits in started_jobs")
	}
}

func TestListPackagesExcludesArchivedRoot(t *testing.T) {
	root := t.TempDir()
	s, err := loadstorage.New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	writeNewJob(t, s, "load1", "orders.f1.0.jsonl", "{}")
	writeNewJob(t, s, "load2", "orders.f2.0.jsonl", "{}")

	ids, err := s.ListPackages()
	if err != nil {
		t.Fatalf("ListPackages: %v", err)
	}
	if len(ids) != 2 || ids[0] != "load1" || ids[1] != "load2" {
		t.Fatalf("expected [load1 load2], got %v", ids)
	}
}
