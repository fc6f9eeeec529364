// Package loadexec drives one load package at a time through a
// destination warehouse.
//
// # Overview
//
// Executor is the top-level loop: it picks the lexically smallest
// pending package from a loadstorage.Storage, opens a destination.Client
// session, synchronizes schema and staging state, retrieves any
// in-flight jobs left over from a prior crash or spools fresh ones
// through jobpool.Pool, then polls repeatedly — routing completed jobs
// through planner.Planner for merge follow-ups and every terminal
// transition through Storage — until the package drains, and archives
// it.
//
// # Error Handling
//
// destination.TerminalError poisons a single job. destination.TransientError
// while spooling leaves that file in new_jobs, so the package cannot be
// archived in this run; anywhere else it aborts the whole run so the outer
// scheduler can retry later. JobFailed is
// package-fatal only when configured via config.Config.RaiseOnFailedJobs.
package loadexec
