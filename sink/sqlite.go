package sink

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteDialect implements the sqlite dialect of §4.3: single-quoted
// identifiers, `sqlite_master` table enumeration, and `VACUUM INTO` as the
// live snapshot operation that backs isArchiver()=true.
type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite" }

func (sqliteDialect) quote(ident string) string {
	return "'" + ident + "'"
}

func (sqliteDialect) fold(ident string) string { return identity(ident) }

func (sqliteDialect) listUserTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT IN (?, ?) AND name NOT LIKE 'sqlite_%'`,
		DiagnosticsTable, ConfigTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (d sqliteDialect) createTableSQL(table string, columns []Column) string {
	return createTableSQLWith(d.quote, table, columns)
}

func (sqliteDialect) supportsSnapshot() bool { return true }

func (sqliteDialect) snapshot(ctx context.Context, db *sql.DB, destDirAndPrefix string) error {
	dest := fmt.Sprintf("%s-%s.db", destDirAndPrefix, time.Now().Format("2006-01-02"))
	_, err := db.ExecContext(ctx, "VACUUM INTO ?", dest)
	return err
}

// NewSQLite opens (creating if absent) the sqlite file dir/name.db via
// modernc.org/sqlite, per the DOMAIN STACK wiring of SPEC_FULL.md.
func NewSQLite(dir, name string) (Sink, error) {
	path := filepath.Join(dir, name+".db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sink: open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway
	return newSQLSink(db, sqliteDialect{}), nil
}
