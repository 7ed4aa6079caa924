package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jidl/errs"
)

// sqlSink is the shared implementation behind the sqlite, mariadb, and
// monetdb dialects: a single *database/sql.DB with a dialect strategy for
// identifier quoting, table enumeration, and snapshotting, per §4.3.
type sqlSink struct {
	db      *sql.DB
	dialect dialect
	headers *headerCache
}

func newSQLSink(db *sql.DB, d dialect) *sqlSink {
	return &sqlSink{db: db, dialect: d, headers: newHeaderCache()}
}

// Open creates the two reserved tables if absent and discovers headers for
// every existing user table, per §4.3's "header discovery... on open".
func (s *sqlSink) Open(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return sinkUnavailable("open", err)
	}

	diagSQL := s.dialect.createTableSQL(DiagnosticsTable, []Column{{Name: "MESSAGE", SQLType: "TEXT"}})
	if _, err := s.db.ExecContext(ctx, diagSQL); err != nil {
		return sinkUnavailable("open: create diagnostics table", err)
	}
	cfgSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s TEXT, %s TEXT)",
		s.dialect.quote(ConfigTable), s.dialect.quote("ID"), s.dialect.quote("DATA"))
	if _, err := s.db.ExecContext(ctx, cfgSQL); err != nil {
		return sinkUnavailable("open: create configuration table", err)
	}

	tables, err := s.dialect.listUserTables(ctx, s.db)
	if err != nil {
		return sinkUnavailable("open: list tables", err)
	}
	for _, t := range tables {
		if err := s.discoverHeader(ctx, t); err != nil {
			return sinkUnavailable("open: discover header for "+t, err)
		}
	}
	return nil
}

func (s *sqlSink) Close() error {
	return s.db.Close()
}

func (s *sqlSink) discoverHeader(ctx context.Context, table string) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", s.dialect.quote(table)))
	if err != nil {
		return err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	s.headers.set(table, cols)
	return nil
}

func (s *sqlSink) EnsureTable(ctx context.Context, table string, columns []Column) error {
	table = s.dialect.fold(table)
	createSQL := s.dialect.createTableSQL(table, columns)
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return sinkUnavailable("ensure table "+table, err)
	}
	return s.discoverHeader(ctx, table)
}

// AddEntry builds `INSERT INTO '<table>' (<cols>) VALUES (<vals>)` over the
// intersection of row's keys and the table's known header, skipping absent
// columns so they default to NULL, per §4.1's "Rows are inserted only if at
// least the timestamp... null values are skipped in the INSERT".
func (s *sqlSink) AddEntry(ctx context.Context, table string, row map[string]string) error {
	table = s.dialect.fold(table)
	header, ok := s.headers.get(table)
	if !ok {
		return sinkUnavailable("add entry", fmt.Errorf("unknown table %q", table))
	}

	cols := make([]string, 0, len(header))
	vals := make([]interface{}, 0, len(header))
	for _, h := range header {
		key := h
		if h == "TIMESTAMP" {
			if v, present := row["TIMESTAMP"]; present {
				cols = append(cols, h)
				vals = append(vals, v)
			}
			continue
		}
		if v, present := row[key]; present {
			cols = append(cols, h)
			vals = append(vals, v)
		}
	}
	if len(cols) == 0 {
		return nil
	}

	insertSQL := fmtInsert(s.dialect.quote, table, cols)
	if _, err := s.db.ExecContext(ctx, insertSQL, vals...); err != nil {
		return sinkUnavailable("add entry into "+table, err)
	}
	return nil
}

// Log inserts one diagnostics row, retrying once with a bumped timestamp
// when the first insert fails for any reason, per §4.3/§9.
func (s *sqlSink) Log(ctx context.Context, message string, isError bool) error {
	text := message
	if isError {
		text = stripQuotes(message)
	}

	now := time.Now()
	insertSQL := fmtInsert(s.dialect.quote, DiagnosticsTable, []string{"TIMESTAMP", "MESSAGE"})
	_, err := s.db.ExecContext(ctx, insertSQL, FormatTimestamp(now), text)
	if err == nil {
		return nil
	}

	// Retry once with a bumped timestamp to disambiguate a PK collision.
	now = bumpTimestamp(now)
	_, err2 := s.db.ExecContext(ctx, insertSQL, FormatTimestamp(now), text)
	if err2 == nil {
		return nil
	}

	if isError {
		return sinkUnavailable("log", err2)
	}
	return nil
}

func (s *sqlSink) GetConfiguration(ctx context.Context) ([]ConfigSection, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s, %s FROM %s",
		s.dialect.quote("ID"), s.dialect.quote("DATA"), s.dialect.quote(ConfigTable)))
	if err != nil {
		return nil, sinkUnavailable("get configuration", err)
	}
	defer rows.Close()

	var out []ConfigSection
	for rows.Next() {
		var sec ConfigSection
		if err := rows.Scan(&sec.ID, &sec.Data); err != nil {
			return nil, sinkUnavailable("get configuration: scan", err)
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *sqlSink) SaveConfiguration(ctx context.Context, sections []ConfigSection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sinkUnavailable("save configuration", err)
	}
	defer tx.Rollback()

	deleteSQL := fmt.Sprintf("DELETE FROM %s", s.dialect.quote(ConfigTable))
	if _, err := tx.ExecContext(ctx, deleteSQL); err != nil {
		return sinkUnavailable("save configuration: clear", err)
	}
	insertSQL := fmtInsert(s.dialect.quote, ConfigTable, []string{"ID", "DATA"})
	for _, sec := range sections {
		if _, err := tx.ExecContext(ctx, insertSQL, sec.ID, sec.Data); err != nil {
			return sinkUnavailable("save configuration: insert "+sec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return sinkUnavailable("save configuration: commit", err)
	}
	return nil
}

func (s *sqlSink) IsArchiver() bool { return s.dialect.supportsSnapshot() }

func (s *sqlSink) Snapshot(ctx context.Context, destDirAndPrefix string) error {
	if !s.dialect.supportsSnapshot() {
		return fmt.Errorf("sink: %w: %s dialect does not support snapshots", errs.ErrBadArgument, s.dialect.name())
	}
	return s.dialect.snapshot(ctx, s.db, destDirAndPrefix)
}

func (s *sqlSink) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	tables, err := s.dialect.listUserTables(ctx, s.db)
	if err != nil {
		return sinkUnavailable("delete older than: list tables", err)
	}
	tables = append(tables, DiagnosticsTable)
	cutoffText := FormatTimestamp(cutoff)
	for _, t := range tables {
		deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s < ?", s.dialect.quote(t), s.dialect.quote("TIMESTAMP"))
		if _, err := s.db.ExecContext(ctx, deleteSQL, cutoffText); err != nil {
			return sinkUnavailable("delete older than: "+t, err)
		}
	}
	return nil
}
