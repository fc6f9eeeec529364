// Package sqlitedest is a reference destination.Factory/Client backed by
// SQLite through bun, playing the role of "the warehouse" in tests and
// local runs.
//
// # Overview
//
// Each schema table becomes a SQLite table storing one row per loaded
// record as a JSON blob, alongside a staging twin (suffixed __staging)
// used for merge write dispositions. A small _loadexec_loads history
// table records completed packages.
//
// # Concurrency Model
//
// All destination-side work in StartFileLoad and CreateMergeJob executes
// synchronously inside the call: sqlitedest never returns a job in the
// Running state. This keeps the reference implementation simple and
// still exercises the Executor's async-capable poll loop, since Running
// is still a legal value a job can report.
//
// # Schema
//
// Factory.Open creates every schema table (and its staging twin) if it
// does not exist yet; InitializeStorage only truncates the tables it is
// given. Data tables have a fixed (row_id, file_id, data) shape, so
// UpdateStorageSchema runs no DDL: it reports the requested columns as
// applied without adding, dropping or renaming any column.
package sqlitedest
