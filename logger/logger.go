// Package logger composes a Sink, a slice of Connections, and the
// Scheduler that drives them into the single named unit the rest of the
// system (the IPC server, the CLI) operates on, per §3's Logger type.
package logger

import (
	"context"
	"fmt"

	"jidl/archiver"
	"jidl/connection"
	"jidl/errs"
	"jidl/scheduler"
	"jidl/sink"
)

// LogFunc is the logging callback signature, kept distinct from the
// diagnostics sink: it is for operator-facing status lines (CLI, future
// UI), not persisted rows.
type LogFunc func(format string, args ...interface{})

// FatalHandler is invoked once when a SinkUnavailable stops the scheduler.
type FatalHandler func(error)

// Config holds everything needed to construct a Logger.
type Config struct {
	Name        string
	WorkingDir  string
	Sink        sink.Sink
	Connections []*connection.Connection
	Archiver    *archiver.Archiver // nil if the sink does not support archiving
	LogFunc     LogFunc
	Fatal       FatalHandler
}

// Logger is the Logger of §3: at most one scheduler active, at most one IPC
// server, per logger.
type Logger struct {
	name        string
	workingDir  string
	sink        sink.Sink
	connections []*connection.Connection
	archiver    *archiver.Archiver
	scheduler   *scheduler.Scheduler
	logFn       LogFunc
}

// New constructs a Logger. Connection names must be unique; New rejects a
// duplicate name with ErrBadArgument.
func New(cfg Config) (*Logger, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("logger: %w: empty name", errs.ErrBadArgument)
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("logger: %w: nil sink", errs.ErrBadArgument)
	}
	seen := make(map[string]bool, len(cfg.Connections))
	for _, c := range cfg.Connections {
		if seen[c.Name()] {
			return nil, fmt.Errorf("logger: %w: duplicate connection name %q", errs.ErrBadArgument, c.Name())
		}
		seen[c.Name()] = true
	}

	logFn := cfg.LogFunc
	if logFn == nil {
		logFn = func(string, ...interface{}) {}
	}

	l := &Logger{
		name:        cfg.Name,
		workingDir:  cfg.WorkingDir,
		sink:        cfg.Sink,
		connections: cfg.Connections,
		archiver:    cfg.Archiver,
		logFn:       logFn,
	}
	l.scheduler = scheduler.New(cfg.Connections, cfg.Sink, func(err error) {
		l.logFn("fatal: %v", err)
		if cfg.Fatal != nil {
			cfg.Fatal(err)
		}
	})
	return l, nil
}

func (l *Logger) Name() string       { return l.name }
func (l *Logger) WorkingDir() string { return l.workingDir }
func (l *Logger) Sink() sink.Sink    { return l.sink }

// Connections returns the ordered connection list. The caller must not
// mutate it.
func (l *Logger) Connections() []*connection.Connection { return l.connections }

// Connection looks up one connection by name.
func (l *Logger) Connection(name string) (*connection.Connection, bool) {
	for _, c := range l.connections {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Archiver returns the configured archiver, or nil.
func (l *Logger) Archiver() *archiver.Archiver { return l.archiver }

// Start opens the sink and initializes/connects every connection, then
// starts the scheduler. A per-connection initialize/connect failure is
// logged and left for the scheduler's own retry loop rather than aborting
// Start.
func (l *Logger) Start(ctx context.Context) error {
	if err := l.sink.Open(ctx); err != nil {
		anyUninitialized := false
		for _, c := range l.connections {
			if !c.IsInitialized() {
				anyUninitialized = true
				break
			}
		}
		if anyUninitialized {
			return fmt.Errorf("logger %q: %w: %v", l.name, errs.ErrLoggerNotReady, err)
		}
	}

	for _, c := range l.connections {
		if !c.IsInitialized() {
			if err := c.Initialize(); err != nil {
				l.logFn("connection %q: initialize failed: %v", c.Name(), err)
				continue
			}
		}
		if err := c.Connect(ctx); err != nil {
			l.logFn("connection %q: connect failed: %v", c.Name(), err)
		}
	}

	return l.scheduler.Start(ctx)
}

// Stop stops the scheduler and the archiver (if any), disconnects every
// connection, and closes the sink.
func (l *Logger) Stop() {
	l.scheduler.Stop()
	if l.archiver != nil {
		l.archiver.StopArchivingService()
	}
	l.sink.Close()
}

// Status reports whether the scheduler is currently ticking.
func (l *Logger) Status() bool { return l.scheduler.Status() }

// Log writes an operator-facing status line through LogFunc and, best
// effort, into the sink's diagnostics table.
func (l *Logger) Log(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logFn(msg)
	l.sink.Log(context.Background(), msg, false)
}
