package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"jidl/errs"

	_ "github.com/MonetDB/MonetDB-Go/v2"
)

// monetdbDialect implements the monetdb dialect of §4.3: double-quoted
// identifiers folded to lowercase, `sys.tables` table enumeration, and no
// snapshot support.
type monetdbDialect struct{}

func (monetdbDialect) name() string { return "monetdb" }

func (monetdbDialect) quote(ident string) string {
	return `"` + strings.ToLower(ident) + `"`
}

func (monetdbDialect) fold(ident string) string { return strings.ToLower(ident) }

func (monetdbDialect) listUserTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sys.tables WHERE system = false AND name NOT IN (?, ?)`,
		strings.ToLower(DiagnosticsTable), strings.ToLower(ConfigTable))
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

func (d monetdbDialect) createTableSQL(table string, columns []Column) string {
	return createTableSQLWith(d.quote, table, columns)
}

func (monetdbDialect) supportsSnapshot() bool { return false }

func (monetdbDialect) snapshot(ctx context.Context, db *sql.DB, destDirAndPrefix string) error {
	return fmt.Errorf("sink: %w: monetdb dialect does not support snapshots", errs.ErrBadArgument)
}

// NewMonetDB opens a connection to server:port over
// github.com/MonetDB/MonetDB-Go/v2, per the DOMAIN STACK wiring of
// SPEC_FULL.md.
func NewMonetDB(server string, port int, username, password, name string) (Sink, error) {
	dsn := fmt.Sprintf("%s:%s@%s:%d/%s", username, password, server, port, name)
	db, err := sql.Open("monetdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("sink: open monetdb %s:%d: %w", server, port, err)
	}
	return newSQLSink(db, monetdbDialect{}), nil
}
