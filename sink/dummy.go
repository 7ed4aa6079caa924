package sink

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// dummySink is the in-memory sink of §4.3: no external dependency, used by
// tests and by `type=dummy` configurations. It never returns
// SinkUnavailable except through FailNext, which tests use to exercise the
// scheduler's fatal-error path.
type dummySink struct {
	mu      sync.Mutex
	headers map[string][]string
	rows    map[string][]map[string]string
	diag    []diagRow
	config  []ConfigSection

	failNext error
}

type diagRow struct {
	timestamp string
	message   string
}

// NewDummy constructs an in-memory Sink.
func NewDummy() Sink {
	return &dummySink{
		headers: make(map[string][]string),
		rows:    make(map[string][]map[string]string),
	}
}

// FailNext makes the next mutating call return err wrapped as
// SinkUnavailable, then clears itself. Used by tests to exercise the
// scheduler's fatal-error path.
func (s *dummySink) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *dummySink) takeFailure(op string) error {
	if s.failNext == nil {
		return nil
	}
	err := s.failNext
	s.failNext = nil
	return sinkUnavailable(op, err)
}

func (s *dummySink) Open(ctx context.Context) error  { return nil }
func (s *dummySink) Close() error                     { return nil }

func (s *dummySink) EnsureTable(ctx context.Context, table string, columns []Column) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("ensure table"); err != nil {
		return err
	}
	if _, ok := s.headers[table]; ok {
		return nil
	}
	header := make([]string, 0, len(columns)+1)
	header = append(header, "TIMESTAMP")
	for _, c := range columns {
		header = append(header, c.Name)
	}
	s.headers[table] = header
	s.rows[table] = nil
	return nil
}

func (s *dummySink) AddEntry(ctx context.Context, table string, row map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("add entry"); err != nil {
		return err
	}
	header, ok := s.headers[table]
	if !ok {
		return sinkUnavailable("add entry", fmt.Errorf("unknown table %q", table))
	}
	entry := make(map[string]string, len(header))
	for _, h := range header {
		if v, present := row[h]; present {
			entry[h] = v
		}
	}
	s.rows[table] = append(s.rows[table], entry)
	return nil
}

func (s *dummySink) Log(ctx context.Context, message string, isError bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("log"); err != nil {
		if isError {
			return err
		}
		return nil
	}
	text := message
	if isError {
		text = stripQuotes(message)
	}
	s.diag = append(s.diag, diagRow{timestamp: FormatTimestamp(time.Now()), message: text})
	return nil
}

func (s *dummySink) GetConfiguration(ctx context.Context) ([]ConfigSection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConfigSection, len(s.config))
	copy(out, s.config)
	return out, nil
}

func (s *dummySink) SaveConfiguration(ctx context.Context, sections []ConfigSection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = append([]ConfigSection(nil), sections...)
	return nil
}

func (s *dummySink) IsArchiver() bool { return false }

func (s *dummySink) Snapshot(ctx context.Context, destDirAndPrefix string) error {
	return fmt.Errorf("sink: dummy dialect does not support snapshots")
}

func (s *dummySink) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for table, rows := range s.rows {
		var kept []map[string]string
		for _, r := range rows {
			ts, err := ParseTimestamp(r["TIMESTAMP"])
			if err != nil || !ts.Before(cutoff) {
				kept = append(kept, r)
			}
		}
		s.rows[table] = kept
	}
	var keptDiag []diagRow
	for _, d := range s.diag {
		ts, err := ParseTimestamp(d.timestamp)
		if err != nil || !ts.Before(cutoff) {
			keptDiag = append(keptDiag, d)
		}
	}
	s.diag = keptDiag
	return nil
}

// Rows returns a snapshot copy of table's rows, for tests.
func (s *dummySink) Rows(table string) []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]string, len(s.rows[table]))
	copy(out, s.rows[table])
	return out
}

// Diagnostics returns a snapshot copy of the diagnostics rows, for tests.
func (s *dummySink) Diagnostics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.diag))
	for i, d := range s.diag {
		out[i] = d.message
	}
	sort.Strings(out)
	return out
}
