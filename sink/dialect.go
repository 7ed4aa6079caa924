package sink

import (
	"context"
	"database/sql"
	"fmt"
)

// dialect encapsulates everything that varies across the three SQL sinks:
// identifier quoting and case folding, table enumeration, and snapshot
// support, per §4.3: "Identifier quoting varies by dialect... the sink
// encapsulates this."
type dialect interface {
	name() string
	quote(ident string) string
	fold(ident string) string
	listUserTables(ctx context.Context, db *sql.DB) ([]string, error)
	createTableSQL(table string, columns []Column) string
	supportsSnapshot() bool
	snapshot(ctx context.Context, db *sql.DB, destDirAndPrefix string) error
}

// identity is the no-op case fold used by dialects that preserve case.
func identity(s string) string { return s }

func createTableSQLWith(quote func(string) string, table string, columns []Column) string {
	cols := make([]string, 0, len(columns)+1)
	cols = append(cols, quote("TIMESTAMP")+" TEXT")
	for _, c := range columns {
		cols = append(cols, fmt.Sprintf("%s %s", quote(c.Name), c.SQLType))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(table), joinCols(cols))
}

func joinCols(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
