// Package loadstorage implements the durable, filesystem-backed job-state
// store for load packages.
//
// Job state lives entirely in directory membership: a job file sits in
// exactly one of new_jobs, started_jobs, failed_jobs or completed_jobs at
// any time, and every transition between them is a single os.Rename,
// atomic as long as both folders share a filesystem volume — which they
// always do here, since every package directory lives under one Storage
// root.
package loadstorage
