package metrics_test

import (
	"testing"

	"github.com/loadqueue/loadexec/loadjob"
	"github.com/loadqueue/loadexec/metrics"
)

func TestRegistryIsASingleton(t *testing.T) {
	a := metrics.New(true)
	b := metrics.New(false)
	if a != b {
		t.Fatal("expected New to return the same process-wide Registry")
	}
}

func TestCountersDoNotPanicWhenDisabled(t *testing.T) {
	r := metrics.New(false)
	r.PackageCompleted()
	r.PackageAborted()
	r.SetJobStateCount(loadjob.Running, 3)
	r.JobTerminated(loadjob.Completed)
	r.RecordJobWait("events", 1.5)
}
