package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"jidl/errs"
)

func TestDummyAddEntrySkipsMissingColumns(t *testing.T) {
	ctx := context.Background()
	s := NewDummy().(*dummySink)
	if err := s.EnsureTable(ctx, "c1", []Column{{Name: "a", SQLType: "INTEGER"}, {Name: "b", SQLType: "TEXT"}}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if err := s.AddEntry(ctx, "c1", map[string]string{"TIMESTAMP": "t1", "a": "5"}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	rows := s.Rows("c1")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["a"] != "5" {
		t.Fatalf("expected a=5, got %v", rows[0])
	}
	if _, ok := rows[0]["b"]; ok {
		t.Fatalf("expected b to be absent (NULL), got %v", rows[0])
	}
}

func TestDummyAddEntryUnknownTable(t *testing.T) {
	ctx := context.Background()
	s := NewDummy()
	err := s.AddEntry(ctx, "missing", map[string]string{"TIMESTAMP": "t1"})
	if err == nil {
		t.Fatalf("expected error for unknown table")
	}
	var su *errs.SinkUnavailable
	if !errors.As(err, &su) {
		t.Fatalf("expected SinkUnavailable, got %T: %v", err, err)
	}
}

func TestDummyLogStripsQuotesOnError(t *testing.T) {
	ctx := context.Background()
	s := NewDummy().(*dummySink)
	if err := s.Log(ctx, "it's broken", true); err != nil {
		t.Fatalf("Log: %v", err)
	}
	diags := s.Diagnostics()
	if len(diags) != 1 || diags[0] != "its broken" {
		t.Fatalf("expected quotes stripped, got %v", diags)
	}
}

func TestDummyLogFailureIsFatalOnlyWhenError(t *testing.T) {
	ctx := context.Background()
	s := NewDummy().(*dummySink)

	s.FailNext(errors.New("boom"))
	if err := s.Log(ctx, "info", false); err != nil {
		t.Fatalf("non-error log failure should be swallowed, got %v", err)
	}

	s.FailNext(errors.New("boom"))
	if err := s.Log(ctx, "bad", true); err == nil {
		t.Fatalf("expected SinkUnavailable for failed error-log insert")
	}
}

func TestDummyDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	s := NewDummy().(*dummySink)
	if err := s.EnsureTable(ctx, "c1", []Column{{Name: "a", SQLType: "INTEGER"}}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()
	if err := s.AddEntry(ctx, "c1", map[string]string{"TIMESTAMP": FormatTimestamp(old), "a": "1"}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := s.AddEntry(ctx, "c1", map[string]string{"TIMESTAMP": FormatTimestamp(recent), "a": "2"}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := s.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour)); err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	rows := s.Rows("c1")
	if len(rows) != 1 || rows[0]["a"] != "2" {
		t.Fatalf("expected only the recent row to survive, got %v", rows)
	}
}

func TestDummySaveAndGetConfiguration(t *testing.T) {
	ctx := context.Background()
	s := NewDummy()
	sections := []ConfigSection{{ID: "datalogger", Data: "type=dummy"}}
	if err := s.SaveConfiguration(ctx, sections); err != nil {
		t.Fatalf("SaveConfiguration: %v", err)
	}
	got, err := s.GetConfiguration(ctx)
	if err != nil {
		t.Fatalf("GetConfiguration: %v", err)
	}
	if len(got) != 1 || got[0].ID != "datalogger" {
		t.Fatalf("unexpected configuration: %v", got)
	}
}

func TestDummyIsArchiverFalse(t *testing.T) {
	s := NewDummy()
	if s.IsArchiver() {
		t.Fatalf("dummy sink must not advertise archiver support")
	}
}

func TestStripQuotes(t *testing.T) {
	if got := stripQuotes("a'b'c"); got != "abc" {
		t.Fatalf("stripQuotes = %q", got)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond).UTC()
	text := FormatTimestamp(now)
	got, err := ParseTimestamp(text)
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if !got.Equal(now) {
		t.Fatalf("round trip mismatch: %v != %v", got, now)
	}
}
