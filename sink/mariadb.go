package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jidl/errs"

	_ "github.com/go-sql-driver/mysql"
)

// mariadbDialect implements the mariadb dialect of §4.3: backtick-quoted
// identifiers, `information_schema` table enumeration, and no snapshot
// support (mysqldump-shaped export is explicitly out of scope).
type mariadbDialect struct{}

func (mariadbDialect) name() string { return "mariadb" }

func (mariadbDialect) quote(ident string) string {
	return "`" + ident + "`"
}

func (mariadbDialect) fold(ident string) string { return identity(ident) }

func (mariadbDialect) listUserTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name NOT IN (?, ?)`,
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

func (d mariadbDialect) createTableSQL(table string, columns []Column) string {
	return createTableSQLWith(d.quote, table, columns)
}

func (mariadbDialect) supportsSnapshot() bool { return false }

func (mariadbDialect) snapshot(ctx context.Context, db *sql.DB, destDirAndPrefix string) error {
	return fmt.Errorf("sink: %w: mariadb dialect does not support snapshots", errs.ErrBadArgument)
}

// NewMariaDB opens a connection to server:port over
// github.com/go-sql-driver/mysql, per the DOMAIN STACK wiring of
// SPEC_FULL.md.
func NewMariaDB(server string, port int, username, password, name string) (Sink, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", username, password, server, port, name)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sink: open mariadb %s:%d: %w", server, port, err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return newSQLSink(db, mariadbDialect{}), nil
}
