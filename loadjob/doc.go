// Package loadjob defines the identity and runtime contracts of a single
// job file inside a load package.
//
// A job file's identity lives entirely in its name: table_name, file_id,
// retry_count and file_format are encoded positionally and parsed back out
// by ParseName. The durable state of a job (which folder it lives in) is
// owned by package loadstorage; this package only models values, not
// storage.
//
// LoadJob is the runtime handle returned by a destination.Client while a
// job is executing. NewLoadJob is the handle synthesized by the planner
// package for a follow-up (merge) job. FollowupJob tags a LoadJob that may
// itself produce follow-up jobs once it completes.
package loadjob
