package planner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/loadqueue/loadexec/destination"
	"github.com/loadqueue/loadexec/loadjob"
	"github.com/loadqueue/loadexec/loadstorage"
	"github.com/loadqueue/loadexec/planner"
	"github.com/loadqueue/loadexec/schema"
)

func newTestStorage(t *testing.T) *loadstorage.Storage {
	t.Helper()
	s, err := loadstorage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// placeCompleted puts a job for table, under a synthesized file name, into
// completed_jobs by walking it new->started->completed through Storage.
func placeCompleted(t *testing.T, s *loadstorage.Storage, loadID, table, fileID string) string {
	t.Helper()
	return placeJob(t, s, loadID, table, fileID, true)
}

func placeRunning(t *testing.T, s *loadstorage.Storage, loadID, table, fileID string) string {
	t.Helper()
	return placeJob(t, s, loadID, table, fileID, false)
}

func placeJob(t *testing.T, s *loadstorage.Storage, loadID, table, fileID string, completed bool) string {
	t.Helper()
	name := loadjob.ParsedName{TableName: table, FileID: fileID, RetryCount: 0, FileFormat: "jsonl"}.Encode()
	src := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(src, []byte("{}"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := s.AddNewJob(loadID, src, loadjob.NewJobs); err != nil {
		t.Fatal(err)
	}
	if err := s.StartJob(loadID, name); err != nil {
		t.Fatal(err)
	}
	if completed {
		if _, err := s.CompleteJob(loadID, name); err != nil {
			t.Fatal(err)
		}
	}
	return name
}

type fakeFollowupJob struct {
	fileName   string
	followup   bool
	jobIDValue string
}

func (f *fakeFollowupJob) State() loadjob.RunState  { return loadjob.Completed }
func (f *fakeFollowupJob) Exception() string        { return "" }
func (f *fakeFollowupJob) FileName() string         { return f.fileName }
func (f *fakeFollowupJob) JobID() string            { return f.jobIDValue }
func (f *fakeFollowupJob) IsFollowupCapable() bool  { return f.followup }

type fakeMergeJob struct {
	path string
}

func (j *fakeMergeJob) State() loadjob.RunState { return loadjob.Running }
func (j *fakeMergeJob) NewFilePath() string     { return j.path }

type fakeClient struct {
	mergeCalls [][]*schema.Table
	mergeJob   loadjob.NewLoadJob
}

func (c *fakeClient) InitializeStorage(ctx context.Context, staging bool, truncateTables []string) error {
	return nil
}
func (c *fakeClient) UpdateStorageSchema(ctx context.Context, staging bool, onlyTables map[string]bool, expected schema.Update) (schema.Update, error) {
	return nil, nil
}
func (c *fakeClient) StartFileLoad(ctx context.Context, table *schema.Table, absolutePath string) (loadjob.LoadJob, error) {
	return nil, nil
}
func (c *fakeClient) RestoreFileLoad(ctx context.Context, fileName string) (loadjob.LoadJob, error) {
	return nil, nil
}
func (c *fakeClient) CreateMergeJob(ctx context.Context, tableChain []*schema.Table) (loadjob.NewLoadJob, error) {
	c.mergeCalls = append(c.mergeCalls, tableChain)
	return c.mergeJob, nil
}
func (c *fakeClient) CompleteLoad(ctx context.Context, loadID string) error { return nil }
func (c *fakeClient) Close() error                                         { return nil }

var _ destination.Client = (*fakeClient)(nil)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Name:    "test",
		Version: 1,
		Tables: map[string]*schema.Table{
			"events":        {Name: "events", WriteDisposition: schema.Merge},
			"events__items": {Name: "events__items", ParentTable: "events"},
		},
	}
}

func TestCreateFollowupJobsOpensGateWhenChainComplete(t *testing.T) {
	storage := newTestStorage(t)
	sch := testSchema()
	placeCompleted(t, storage, "load1", "events", "f1")
	placeCompleted(t, storage, "load1", "events__items", "f2")

	p := planner.New(storage)
	client := &fakeClient{mergeJob: &fakeMergeJob{path: "/tmp/merge.sql"}}

	starting := &fakeFollowupJob{fileName: "events.f1.0.jsonl", followup: true, jobIDValue: "events.f1"}
	jobs, err := p.CreateFollowupJobs(context.Background(), client, "load1", sch, loadjob.Completed, starting)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 followup job, got %d", len(jobs))
	}
	if len(client.mergeCalls) != 1 || len(client.mergeCalls[0]) != 2 {
		t.Fatalf("expected merge job over 2-table chain, got %v", client.mergeCalls)
	}
}

func TestCreateFollowupJobsGateStaysClosedWhileSiblingRunning(t *testing.T) {
	storage := newTestStorage(t)
	sch := testSchema()
	placeCompleted(t, storage, "load1", "events", "f1")
	placeRunning(t, storage, "load1", "events__items", "f2")

	p := planner.New(storage)
	client := &fakeClient{mergeJob: &fakeMergeJob{path: "/tmp/merge.sql"}}

	starting := &fakeFollowupJob{fileName: "events.f1.0.jsonl", followup: true, jobIDValue: "events.f1"}
	jobs, err := p.CreateFollowupJobs(context.Background(), client, "load1", sch, loadjob.Completed, starting)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected gate closed, got %d followup jobs", len(jobs))
	}
	if len(client.mergeCalls) != 0 {
		t.Fatal("expected no merge job to be created")
	}
}

func TestCreateFollowupJobsSkipsNonFollowupJobs(t *testing.T) {
	storage := newTestStorage(t)
	sch := testSchema()
	placeCompleted(t, storage, "load1", "events", "f1")

	p := planner.New(storage)
	client := &fakeClient{mergeJob: &fakeMergeJob{path: "/tmp/merge.sql"}}

	starting := &fakeFollowupJob{fileName: "events.f1.0.jsonl", followup: false, jobIDValue: "events.f1"}
	jobs, err := p.CreateFollowupJobs(context.Background(), client, "load1", sch, loadjob.Completed, starting)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 0 {
		t.Fatal("expected no followup jobs for a non-followup-capable job")
	}
}

func TestCreateFollowupJobsSkipsAppendTables(t *testing.T) {
	storage := newTestStorage(t)
	sch := &schema.Schema{
		Name:    "test",
		Version: 1,
		Tables: map[string]*schema.Table{
			"logs": {Name: "logs", WriteDisposition: schema.Append},
		},
	}
	placeCompleted(t, storage, "load1", "logs", "f1")

	p := planner.New(storage)
	client := &fakeClient{mergeJob: &fakeMergeJob{path: "/tmp/merge.sql"}}

	starting := &fakeFollowupJob{fileName: "logs.f1.0.jsonl", followup: true, jobIDValue: "logs.f1"}
	jobs, err := p.CreateFollowupJobs(context.Background(), client, "load1", sch, loadjob.Completed, starting)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 0 {
		t.Fatal("expected no followup jobs for an append table")
	}
	if len(client.mergeCalls) != 0 {
		t.Fatal("expected no merge job to be created for an append table")
	}
}
