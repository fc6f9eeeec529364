package destination

import (
	"context"

	"github.com/loadqueue/loadexec/loadjob"
	"github.com/loadqueue/loadexec/schema"
)

// Capabilities describes the static, schema-independent capabilities of a
// destination, obtained from a Factory.
type Capabilities struct {
	PreferredFileFormat  string
	SupportedFileFormats []string
}

// Supports reports whether format is among the destination's supported
// loader file formats.
func (c Capabilities) Supports(format string) bool {
	for _, f := range c.SupportedFileFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Factory opens a per-package session on a destination. Capabilities are
// static and do not require a session.
type Factory interface {
	Capabilities() Capabilities
	Open(ctx context.Context, sch *schema.Schema) (Client, error)
}

// Client is a scoped session on the target warehouse for one load
// package. Callers must call Close on every exit path.
type Client interface {
	// InitializeStorage creates datasets/schemas, optionally truncating
	// the listed staging tables. Idempotent.
	InitializeStorage(ctx context.Context, staging bool, truncateTables []string) error

	// UpdateStorageSchema applies the subset of expected restricted to
	// onlyTables and returns what was actually applied.
	UpdateStorageSchema(ctx context.Context, staging bool, onlyTables map[string]bool, expected schema.Update) (schema.Update, error)

	// StartFileLoad begins loading one file into table. It may return
	// synchronously (a terminal-state job) or asynchronously (a Running
	// job).
	StartFileLoad(ctx context.Context, table *schema.Table, absolutePath string) (loadjob.LoadJob, error)

	// RestoreFileLoad reattaches to a previously started job by file
	// name, used on resume.
	RestoreFileLoad(ctx context.Context, fileName string) (loadjob.LoadJob, error)

	// CreateMergeJob synthesizes a merge/upsert job over the ordered
	// parent-to-child table chain.
	CreateMergeJob(ctx context.Context, tableChain []*schema.Table) (loadjob.NewLoadJob, error)

	// CompleteLoad performs destination-side finalization of the
	// package, e.g. inserting a row into a load-history table.
	CompleteLoad(ctx context.Context, loadID string) error

	// Close releases the session. Safe to call more than once.
	Close() error
}
