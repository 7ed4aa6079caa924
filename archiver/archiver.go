// Package archiver implements the calendar-driven snapshot-and-retention
// service of §4.4: on a weekly or monthly cadence, snapshot the sink and
// delete rows older than a retention horizon.
package archiver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jidl/errs"
	"jidl/sink"
)

// hoursPerWeek is the archiving period unit of §4.4: "Period is interval x 168h".
const hoursPerWeek = 168 * time.Hour

// Archiver owns the single scheduled goroutine that periodically snapshots
// and prunes a Sink. At most one schedule is active at a time;
// SetArchivingService overwrites any existing one.
type Archiver struct {
	sink             sink.Sink
	destDirAndPrefix string

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New constructs an Archiver over sink, snapshotting to
// "<destDirAndPrefix>-<date>" when fired, per §4.4.
func New(s sink.Sink, destDirAndPrefix string) *Archiver {
	return &Archiver{sink: s, destDirAndPrefix: destDirAndPrefix}
}

// IsArchiver reports whether the underlying sink supports snapshotting.
func (a *Archiver) IsArchiver() bool { return a.sink.IsArchiver() }

// IsArchiverSet reports whether a schedule is currently active.
func (a *Archiver) IsArchiverSet() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// SetArchivingService schedules weekly (or monthly, self-gated weekly)
// snapshot-and-prune cycles, per §4.4's contract. dayOfWeek is ISO-8601
// (1=Monday..7=Sunday). interval must be in [1, maxRange] where maxRange is
// 12 for monthly schedules, 52 otherwise. Overwrites any existing schedule.
func (a *Archiver) SetArchivingService(dayOfWeek, interval int, useMonths bool) error {
	if !a.IsArchiver() {
		return fmt.Errorf("archiver: %w: sink does not support snapshots", errs.ErrBadArgument)
	}
	if dayOfWeek < 1 || dayOfWeek > 7 {
		return fmt.Errorf("archiver: %w: dayOfWeek must be in [1,7]", errs.ErrBadArgument)
	}
	maxRange := 52
	if useMonths {
		maxRange = 12
	}
	if interval < 1 || interval > maxRange {
		return fmt.Errorf("archiver: %w: interval must be in [1,%d]", errs.ErrBadArgument, maxRange)
	}

	a.StopArchivingService()

	a.mu.Lock()
	a.running = true
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	stop, done := a.stop, a.done
	a.mu.Unlock()

	now := time.Now()
	var delay time.Duration
	if useMonths {
		delay = nextMonthlyFireDelay(now, isoWeekday(dayOfWeek))
	} else {
		delay = nextWeeklyFireDelay(now, isoWeekday(dayOfWeek))
	}
	period := time.Duration(interval) * hoursPerWeek

	go a.run(stop, done, delay, period, useMonths)
	return nil
}

// StopArchivingService cancels any active schedule, waiting up to 5 s per
// §5's cancellation contract before returning regardless.
func (a *Archiver) StopArchivingService() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	stop, done := a.stop, a.done
	a.running = false
	a.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

func (a *Archiver) run(stop, done chan struct{}, delay, period time.Duration, useMonths bool) {
	defer close(done)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-stop:
		return
	case <-timer.C:
	}
	a.fire(useMonths)

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.fire(useMonths)
		}
	}
}

// fire runs one snapshot-and-prune cycle. A monthly schedule's weekly tick
// self-gates: it no-ops unless the current day falls within the first week
// of the month, per §4.4.
func (a *Archiver) fire(useMonths bool) {
	now := time.Now()
	if useMonths && now.Day() > 7 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.sink.Snapshot(ctx, a.destDirAndPrefix); err != nil {
		a.sink.Log(ctx, fmt.Sprintf("archiver: snapshot failed: %v", err), true)
	}

	var cutoff time.Time
	if useMonths {
		cutoff = now.AddDate(0, 0, -(30 + now.Day()))
	} else {
		cutoff = now.AddDate(0, 0, -7)
	}
	if err := a.sink.DeleteOlderThan(ctx, cutoff); err != nil {
		a.sink.Log(ctx, fmt.Sprintf("archiver: retention delete failed: %v", err), true)
	}
}

// isoWeekday maps the ISO-8601 1..7 (Monday..Sunday) convention onto
// time.Weekday (Sunday=0..Saturday=6).
func isoWeekday(n int) time.Weekday {
	if n == 7 {
		return time.Sunday
	}
	return time.Weekday(n)
}

// nextWeeklyFireDelay computes the delay until the next occurrence of
// targetDow at hour 0, per §4.4.
func nextWeeklyFireDelay(now time.Time, targetDow time.Weekday) time.Duration {
	daysToNext := (int(targetDow) - int(now.Weekday()) + 7) % 7
	if daysToNext == 0 {
		daysToNext = 7
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	target := midnight.AddDate(0, 0, daysToNext)
	return target.Sub(now)
}

// nextMonthlyFireDelay computes the delay until the first occurrence of
// targetDow in the month following now's month, at hour 0, so the first
// fire always lands within the first week (day-of-month <= 7) of the next
// month, per §4.4.
func nextMonthlyFireDelay(now time.Time, targetDow time.Weekday) time.Duration {
	firstOfNextMonth := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	offset := (int(targetDow) - int(firstOfNextMonth.Weekday()) + 7) % 7
	target := firstOfNextMonth.AddDate(0, 0, offset)
	return target.Sub(now)
}
