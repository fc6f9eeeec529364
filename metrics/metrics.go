package metrics

import (
	"expvar"
	"sync"
	"time"

	"github.com/loadqueue/loadexec/loadjob"
)

var (
	once        sync.Once
	publishOnce sync.Once
	registry    *Registry
)

// Registry collects execution counters for one process. It is a
// singleton: successive calls to New return the same instance, with
// Enabled updated to the most recent call's value.
type Registry struct {
	enabled bool
	mu      sync.RWMutex

	packagesCompleted *expvar.Int
	packagesAborted   *expvar.Int
	jobStateCounts    *expvar.Map
	jobTerminations   *expvar.Map
	jobWaitSeconds    *expvar.Map
	startTime         time.Time
}

// New returns the process-wide Registry, publishing its counters to
// expvar the first time it is called with enabled set. Subsequent calls
// update the enabled flag without republishing.
func New(enabled bool) *Registry {
	once.Do(func() {
		registry = &Registry{
			enabled:           enabled,
			packagesCompleted: new(expvar.Int),
			packagesAborted:   new(expvar.Int),
			jobStateCounts:    new(expvar.Map).Init(),
			jobTerminations:   new(expvar.Map).Init(),
			jobWaitSeconds:    new(expvar.Map).Init(),
			startTime:         time.Now(),
		}
	})
	if enabled {
		publishOnce.Do(func() {
			expvar.Publish("loadexec_packages_completed", registry.packagesCompleted)
			expvar.Publish("loadexec_packages_aborted", registry.packagesAborted)
			expvar.Publish("loadexec_job_state_counts", registry.jobStateCounts)
			expvar.Publish("loadexec_job_terminations", registry.jobTerminations)
			expvar.Publish("loadexec_job_wait_seconds", registry.jobWaitSeconds)
			expvar.Publish("loadexec_uptime_seconds", expvar.Func(func() any {
				return time.Since(registry.startTime).Seconds()
			}))
		})
	}

	registry.mu.Lock()
	registry.enabled = enabled
	registry.mu.Unlock()
	return registry
}

func (r *Registry) isEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// PackageCompleted records one successfully completed load package.
func (r *Registry) PackageCompleted() {
	if !r.isEnabled() {
		return
	}
	r.packagesCompleted.Add(1)
}

// PackageAborted records one load package completed with aborted=true.
func (r *Registry) PackageAborted() {
	if !r.isEnabled() {
		return
	}
	r.packagesAborted.Add(1)
}

// SetJobStateCount publishes the current count of jobs in state across
// the package most recently polled.
func (r *Registry) SetJobStateCount(state loadjob.RunState, count int64) {
	if !r.isEnabled() {
		return
	}
	v := new(expvar.Int)
	v.Set(count)
	r.jobStateCounts.Set(state.String(), v)
}

// JobTerminated records one job reaching a terminal RunState.
func (r *Registry) JobTerminated(state loadjob.RunState) {
	if !r.isEnabled() {
		return
	}
	r.jobTerminations.Add(state.String(), 1)
}

// RecordJobWait records the elapsed wall time between a job file's
// creation and its arrival at a terminal folder.
func (r *Registry) RecordJobWait(table string, seconds float64) {
	if !r.isEnabled() {
		return
	}
	r.jobWaitSeconds.AddFloat(table, seconds)
}
