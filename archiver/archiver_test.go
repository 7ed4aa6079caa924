package archiver

import (
	"context"
	"testing"
	"time"

	"jidl/sink"
)

// archivingDummy is a minimal Sink stub that advertises archiver support
// without doing any real I/O, for exercising SetArchivingService's
// validation logic without waiting on a real schedule to fire.
type archivingDummy struct{}

func (archivingDummy) Open(ctx context.Context) error  { return nil }
func (archivingDummy) Close() error                      { return nil }
func (archivingDummy) EnsureTable(ctx context.Context, table string, columns []sink.Column) error {
	return nil
}
func (archivingDummy) AddEntry(ctx context.Context, table string, row map[string]string) error {
	return nil
}
func (archivingDummy) Log(ctx context.Context, message string, isError bool) error { return nil }
func (archivingDummy) GetConfiguration(ctx context.Context) ([]sink.ConfigSection, error) {
	return nil, nil
}
func (archivingDummy) SaveConfiguration(ctx context.Context, sections []sink.ConfigSection) error {
	return nil
}
func (archivingDummy) IsArchiver() bool { return true }
func (archivingDummy) Snapshot(ctx context.Context, destDirAndPrefix string) error { return nil }
func (archivingDummy) DeleteOlderThan(ctx context.Context, cutoff time.Time) error { return nil }

func TestNextWeeklyFireDelay(t *testing.T) {
	// Monday 2026-08-03 10:00, target Wednesday (ISO 3).
	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	delay := nextWeeklyFireDelay(now, isoWeekday(3))
	target := now.Add(delay)
	if target.Weekday() != time.Wednesday {
		t.Fatalf("expected Wednesday, got %v", target.Weekday())
	}
	if target.Hour() != 0 || target.Minute() != 0 {
		t.Fatalf("expected midnight, got %v", target)
	}
	if target.Before(now) {
		t.Fatalf("target must be in the future")
	}
}

func TestNextWeeklyFireDelaySameDayRollsToNextWeek(t *testing.T) {
	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC) // Monday
	delay := nextWeeklyFireDelay(now, isoWeekday(1))
	target := now.Add(delay)
	if target.Sub(now) < 24*time.Hour {
		t.Fatalf("same-day target should roll to next week, got delay %v", delay)
	}
}

func TestNextWeeklyFireDelayScenarioFive(t *testing.T) {
	// §8 scenario 5: clock pinned to Sunday 23:00, dayOfWeek=MONDAY, first
	// fire must be Monday 00:00.
	now := time.Date(2026, 8, 2, 23, 0, 0, 0, time.UTC) // Sunday
	delay := nextWeeklyFireDelay(now, isoWeekday(1))
	target := now.Add(delay)
	if target.Weekday() != time.Monday || target.Hour() != 0 {
		t.Fatalf("expected Monday 00:00, got %v", target)
	}
}

func TestNextMonthlyFireDelayLandsInFirstWeekOfNextMonth(t *testing.T) {
	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	delay := nextMonthlyFireDelay(now, isoWeekday(3))
	target := now.Add(delay)
	if target.Weekday() != time.Wednesday {
		t.Fatalf("expected Wednesday, got %v", target.Weekday())
	}
	if target.Month() == now.Month() {
		t.Fatalf("expected a date in the month after %v, got %v", now.Month(), target)
	}
	if target.Day() > 7 {
		t.Fatalf("expected a date in the first week of the month, got day %d", target.Day())
	}
}

func TestSetArchivingServiceRejectsUnsupportedSink(t *testing.T) {
	// sink.NewDummy's Sink never advertises IsArchiver()=true.
	a := New(sink.NewDummy(), "/tmp/jidl-archive")
	if err := a.SetArchivingService(1, 1, false); err == nil {
		t.Fatalf("expected error for a sink without archiver support")
	}
}

func TestSetArchivingServiceValidatesInterval(t *testing.T) {
	a := New(archivingDummy{}, "/tmp/jidl-archive")
	if err := a.SetArchivingService(1, 0, false); err == nil {
		t.Fatalf("expected error for interval below range")
	}
	if err := a.SetArchivingService(1, 53, false); err == nil {
		t.Fatalf("expected error for interval above weekly max")
	}
	if err := a.SetArchivingService(1, 13, true); err == nil {
		t.Fatalf("expected error for interval above monthly max")
	}
	if err := a.SetArchivingService(8, 1, false); err == nil {
		t.Fatalf("expected error for out-of-range dayOfWeek")
	}
}

func TestStopArchivingServiceIdempotent(t *testing.T) {
	a := New(archivingDummy{}, "/tmp/jidl-archive")
	a.StopArchivingService() // no schedule set; must not panic or block
	if a.IsArchiverSet() {
		t.Fatalf("expected no schedule set")
	}
}
