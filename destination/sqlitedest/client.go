package sqlitedest

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/loadqueue/loadexec/destination"
	"github.com/loadqueue/loadexec/loadjob"
	"github.com/loadqueue/loadexec/schema"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

// Factory opens sqlitedest sessions against a single SQLite DSN, e.g.
// "file:loadexec.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)".
type Factory struct {
	dsn string
}

// NewFactory builds a Factory targeting dsn.
func NewFactory(dsn string) *Factory {
	return &Factory{dsn: dsn}
}

// Capabilities reports jsonl as the only supported loader file format:
// one JSON object per line, matching what StartFileLoad parses.
func (f *Factory) Capabilities() destination.Capabilities {
	return destination.Capabilities{
		PreferredFileFormat:  "jsonl",
		SupportedFileFormats: []string{"jsonl"},
	}
}

// Open connects to the database and ensures every table named in sch
// exists before returning a Client.
func (f *Factory) Open(ctx context.Context, sch *schema.Schema) (destination.Client, error) {
	sqlDB, err := sql.Open("sqlite", f.dsn)
	if err != nil {
		return nil, destination.Transient(fmt.Errorf("sqlitedest: open %s: %w", f.dsn, err))
	}
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())

	names := make([]string, 0, len(sch.Tables))
	for name := range sch.Tables {
		names = append(names, name)
	}
	if err := initSchema(ctx, db, names); err != nil {
		_ = db.Close()
		return nil, destination.Transient(err)
	}
	return &Client{db: db, schema: sch}, nil
}

// Client is a sqlitedest session scoped to one load package.
type Client struct {
	db     *bun.DB
	schema *schema.Schema
}

var _ destination.Client = (*Client)(nil)

// InitializeStorage creates the package's tables (already done in Open)
// and truncates the listed tables, in their staging twin when staging is
// set.
func (c *Client) InitializeStorage(ctx context.Context, staging bool, truncateTables []string) error {
	for _, table := range truncateTables {
		target := table
		if staging {
			target = stagingName(table)
		}
		quoted, err := quoteIdent(target)
		if err != nil {
			return destination.Terminal(err)
		}
		if _, err := c.db.ExecContext(ctx, "DELETE FROM "+quoted); err != nil {
			return destination.Transient(fmt.Errorf("sqlitedest: truncate %s: %w", target, err))
		}
	}
	return nil
}

// UpdateStorageSchema is a no-op beyond table creation for this
// reference destination: data tables have a fixed (file_id, data) shape
// and carry every column implicitly inside the JSON blob, so there is no
// ALTER TABLE to run. It still reports every requested column as applied
// so callers relying on the returned Update to track progress see it as
// fully synced.
func (c *Client) UpdateStorageSchema(ctx context.Context, staging bool, onlyTables map[string]bool, expected schema.Update) (schema.Update, error) {
	applied := schema.Update{}
	for table, columns := range expected {
		if onlyTables != nil && !onlyTables[table] {
			continue
		}
		applied[table] = columns
	}
	return applied, nil
}

// StartFileLoad reads absolutePath as newline-delimited JSON and inserts
// each line as one row into table's data table. The whole file loads
// synchronously; StartFileLoad never returns a Running job.
func (c *Client) StartFileLoad(ctx context.Context, table *schema.Table, absolutePath string) (loadjob.LoadJob, error) {
	fileName := filepath.Base(absolutePath)
	parsed, err := loadjob.ParseName(fileName)
	jobID := fileName
	fileID := fileName
	if err == nil {
		jobID = parsed.JobID()
		fileID = parsed.FileID
	}

	quoted, err := quoteIdent(table.Name)
	if err != nil {
		return &sqlJob{fileName: fileName, jobID: jobID, state: loadjob.Failed, exception: err.Error()}, nil
	}

	f, err := os.Open(absolutePath)
	if err != nil {
		return &sqlJob{fileName: fileName, jobID: jobID, state: loadjob.Failed, exception: err.Error()}, nil
	}
	defer func() { _ = f.Close() }()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, destination.Transient(fmt.Errorf("sqlitedest: begin tx: %w", err))
	}

	insert := fmt.Sprintf("INSERT INTO %s (file_id, data) VALUES (?, ?)", quoted)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, insert, fileID, line); err != nil {
			_ = tx.Rollback()
			return nil, destination.Transient(fmt.Errorf("sqlitedest: insert into %s: %w", table.Name, err))
		}
	}
	if err := scanner.Err(); err != nil {
		_ = tx.Rollback()
		return &sqlJob{fileName: fileName, jobID: jobID, state: loadjob.Failed, exception: err.Error()}, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, destination.Transient(fmt.Errorf("sqlitedest: commit: %w", err))
	}

	return &sqlJob{fileName: fileName, jobID: jobID, state: loadjob.Completed}, nil
}

// RestoreFileLoad reattaches to a job whose data was already inserted in
// a prior run before the process exited; since StartFileLoad always runs
// to completion synchronously, any job file found sitting in
// started_jobs on resume is, by construction, already done.
func (c *Client) RestoreFileLoad(ctx context.Context, fileName string) (loadjob.LoadJob, error) {
	parsed, err := loadjob.ParseName(fileName)
	jobID := fileName
	if err == nil {
		jobID = parsed.JobID()
	}
	return &sqlJob{fileName: fileName, jobID: jobID, state: loadjob.Completed}, nil
}

// CreateMergeJob copies every staging row into its target table across
// the chain, oldest table first, then empties the staging tables. The
// merge runs synchronously and returns nil when the chain has nothing
// staged, matching create_merge_job's "there must be at least 1 job"
// assumption translated to "there is nothing to merge yet".
func (c *Client) CreateMergeJob(ctx context.Context, tableChain []*schema.Table) (loadjob.NewLoadJob, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, destination.Transient(fmt.Errorf("sqlitedest: begin tx: %w", err))
	}

	var mergedAny bool
	for _, table := range tableChain {
		target, err := quoteIdent(table.Name)
		if err != nil {
			_ = tx.Rollback()
			return nil, destination.Terminal(err)
		}
		staging, err := quoteIdent(stagingName(table.Name))
		if err != nil {
			_ = tx.Rollback()
			return nil, destination.Terminal(err)
		}
		res, err := tx.ExecContext(ctx, fmt.Sprintf(
			"INSERT INTO %s (file_id, data) SELECT file_id, data FROM %s", target, staging))
		if err != nil {
			_ = tx.Rollback()
			return nil, destination.Transient(fmt.Errorf("sqlitedest: merge into %s: %w", table.Name, err))
		}
		if n, _ := res.RowsAffected(); n > 0 {
			mergedAny = true
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+staging); err != nil {
			_ = tx.Rollback()
			return nil, destination.Transient(fmt.Errorf("sqlitedest: clear staging %s: %w", table.Name, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, destination.Transient(fmt.Errorf("sqlitedest: commit merge: %w", err))
	}
	if !mergedAny {
		return nil, nil
	}
	return &mergeJob{newFilePath: tableChain[0].Name + ".merge.0.jsonl"}, nil
}

// CompleteLoad records loadID in the destination-side load history
// table.
func (c *Client) CompleteLoad(ctx context.Context, loadID string) error {
	_, err := c.db.NewInsert().Model(newLoadModel(loadID)).Exec(ctx)
	if err != nil {
		return destination.Transient(fmt.Errorf("sqlitedest: record completed load %s: %w", loadID, err))
	}
	return nil
}

// Close releases the underlying database connection.
func (c *Client) Close() error {
	return c.db.Close()
}
