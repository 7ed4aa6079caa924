// Package sink implements append-only row storage per connection,
// diagnostics logging, and configuration persistence, over a small set of
// relational dialects (§4.3).
package sink

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"jidl/errs"
)

// DiagnosticsTable and ConfigTable are the two reserved table names every
// sink carries alongside one table per connection, per §3's Data Model.
const (
	DiagnosticsTable = "JIDL Diagnostics"
	ConfigTable      = "JIDL Configuration"
)

// Column describes one column of a per-connection table: its name and its
// canonical SQL type (NUMERIC, INTEGER, REAL, TEXT), per DataType.SQLType.
type Column struct {
	Name    string
	SQLType string
}

// ConfigSection is one row of the JIDL Configuration table: an INI-style
// section serialized as a single blob keyed by ID.
type ConfigSection struct {
	ID   string
	Data string
}

// Sink is the storage capability §4.3 describes: open/close lifecycle,
// per-connection append, diagnostics logging, configuration persistence,
// and (dialect-permitting) archiving support.
type Sink interface {
	Open(ctx context.Context) error
	Close() error

	// EnsureTable creates the named table if it does not already exist, with
	// a leading TIMESTAMP TEXT column followed by columns, and refreshes the
	// sink's header cache for it.
	EnsureTable(ctx context.Context, table string, columns []Column) error

	// AddEntry inserts one row into table. Keys of row absent from the
	// table's header are ignored; header columns absent from row are left
	// NULL, per §4.3.
	AddEntry(ctx context.Context, table string, row map[string]string) error

	// Log inserts one diagnostics row with a generated timestamp. When
	// isError is set, embedded single quotes in message are stripped, and a
	// failed insert is fatal (SinkUnavailable) rather than merely dropped —
	// the historical quirk of §9.
	Log(ctx context.Context, message string, isError bool) error

	GetConfiguration(ctx context.Context) ([]ConfigSection, error)
	SaveConfiguration(ctx context.Context, sections []ConfigSection) error

	// IsArchiver reports whether this dialect supports Snapshot/DeleteOlderThan.
	IsArchiver() bool
	// Snapshot copies the store to a dialect-specific path derived from
	// destDirAndPrefix plus the current date, per §4.4.
	Snapshot(ctx context.Context, destDirAndPrefix string) error
	// DeleteOlderThan removes rows with TIMESTAMP < cutoff from every
	// per-connection table plus the diagnostics table itself, per §4.4's
	// retention sweep.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
}

// timestampLayout is the canonical TIMESTAMP TEXT rendering used across all
// dialects: sortable, unambiguous, millisecond-resolution.
const timestampLayout = "2006-01-02 15:04:05.000"

// FormatTimestamp renders t in the sink's canonical TIMESTAMP TEXT form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}

// bumpTimestamp advances t by one millisecond, used to disambiguate a
// primary-key collision on a retried diagnostics insert (§9).
func bumpTimestamp(t time.Time) time.Time {
	return t.Add(time.Millisecond)
}

// stripQuotes removes single quotes from message, the historical quirk
// §4.3/§9 preserve for error rows: `message.replace("'", "")`.
func stripQuotes(message string) string {
	return strings.ReplaceAll(message, "'", "")
}

// sinkUnavailable wraps err as errs.SinkUnavailable for op.
func sinkUnavailable(op string, err error) error {
	return &errs.SinkUnavailable{Op: op, Err: err}
}

// headerCache is the per-table column-order cache built at Open/EnsureTable
// time and consulted by AddEntry, per §4.3's "header discovery" contract.
type headerCache struct {
	mu      sync.RWMutex
	headers map[string][]string
}

func newHeaderCache() *headerCache {
	return &headerCache{headers: make(map[string][]string)}
}

func (h *headerCache) set(table string, cols []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.headers[table] = cols
}

func (h *headerCache) get(table string) ([]string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cols, ok := h.headers[table]
	return cols, ok
}

func quotedList(quote func(string) string, names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quote(n)
	}
	return strings.Join(out, ", ")
}

func placeholderList(n int) string {
	if n == 0 {
		return ""
	}
	out := make([]string, n)
	for i := range out {
		out[i] = "?"
	}
	return strings.Join(out, ", ")
}

func fmtInsert(quote func(string) string, table string, cols []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(table), quotedList(quote, cols), placeholderList(len(cols)))
}
