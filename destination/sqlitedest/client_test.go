package sqlitedest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/loadqueue/loadexec/destination"
	"github.com/loadqueue/loadexec/destination/sqlitedest"
	"github.com/loadqueue/loadexec/loadjob"
	"github.com/loadqueue/loadexec/schema"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Name:    "test",
		Version: 1,
		Tables: map[string]*schema.Table{
			"events": {Name: "events", WriteDisposition: schema.Merge},
		},
	}
}

func openTestClient(t *testing.T) destination.Client {
	t.Helper()
	factory := sqlitedest.NewFactory("file::memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&cache=shared")
	client, err := factory.Open(context.Background(), testSchema())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStartFileLoadInsertsEachLine(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "events.f1.0.jsonl")
	content := "{\"id\":1}\n{\"id\":2}\n"
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatal(err)
	}

	job, err := client.StartFileLoad(ctx, &schema.Table{Name: "events"}, path)
	if err != nil {
		t.Fatal(err)
	}
	if job.State() != loadjob.Completed {
		t.Fatalf("expected job to complete synchronously, got %s", job.State())
	}
	if job.JobID() != "events.f1" {
		t.Fatalf("expected job id events.f1, got %s", job.JobID())
	}
}

func TestStartFileLoadMissingFileIsTerminal(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()

	job, err := client.StartFileLoad(ctx, &schema.Table{Name: "events"}, "/does/not/exist.jsonl")
	if err != nil {
		t.Fatal(err)
	}
	if job.State() != loadjob.Failed {
		t.Fatalf("expected a failed job for a missing file, got %s", job.State())
	}
}

func TestCreateMergeJobReturnsNilWhenNothingStaged(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()

	job, err := client.CreateMergeJob(ctx, []*schema.Table{{Name: "events"}})
	if err != nil {
		t.Fatal(err)
	}
	if job != nil {
		t.Fatal("expected no merge job when staging is empty")
	}
}

func TestCompleteLoadRecordsHistory(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()

	if err := client.CompleteLoad(ctx, "load1"); err != nil {
		t.Fatal(err)
	}
}
