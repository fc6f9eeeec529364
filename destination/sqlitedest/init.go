package sqlitedest

import (
	"context"
	"fmt"
	"regexp"

	"github.com/uptrace/bun"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdent validates name against a conservative identifier pattern and
// returns it quoted for interpolation into raw SQL. Schema- and
// file-derived names are never passed to SQL as bind parameters because
// SQLite (like most dialects) cannot parameterize identifiers, so this is
// the injection boundary: reject anything that is not a plain identifier.
func quoteIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("sqlitedest: invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

func stagingName(table string) string {
	return table + "__staging"
}

func createLoadHistoryTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*loadModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// createDataTable creates the raw-record table for a schema table (and
// its staging twin, used by merge write dispositions) if they do not
// already exist. Every data table has a fixed shape: an autoincrement
// row id, the file_id of the job that inserted the row, and a JSON blob
// of the record itself. Columns added later by UpdateStorageSchema are
// metadata only in this reference implementation; the blob remains the
// source of truth.
func createDataTable(ctx context.Context, db bun.IDB, table string) error {
	for _, name := range []string{table, stagingName(table)} {
		quoted, err := quoteIdent(name)
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (
				row_id INTEGER PRIMARY KEY AUTOINCREMENT,
				file_id TEXT NOT NULL,
				data TEXT NOT NULL
			)`, quoted)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlitedest: create table %s: %w", name, err)
		}
	}
	return nil
}

func initSchema(ctx context.Context, db *bun.DB, tables []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := createLoadHistoryTable(ctx, tx); err != nil {
		return joinRollback(err, tx)
	}
	for _, table := range tables {
		if err := createDataTable(ctx, tx, table); err != nil {
			return joinRollback(err, tx)
		}
	}
	return tx.Commit()
}

func joinRollback(err error, tx bun.Tx) error {
	if rbErr := tx.Rollback(); rbErr != nil {
		return fmt.Errorf("%w (rollback: %v)", err, rbErr)
	}
	return err
}
