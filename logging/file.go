package logging

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// FileLogger is the operator-facing log stream (conventionally opened
// against "<datalogger dir>/jidl.log"). It receives the Logger's LogFunc
// lines (initialize/connect failures during Start, the fatal-error line) and
// the IPC server's log lines; the scheduler's per-tick read/write failures
// and the archiver's events go to the sink's diagnostics table instead. It
// is safe for concurrent use from multiple goroutines.
type FileLogger struct {
	file   *os.File
	mu     sync.Mutex
	closed bool
}

// NewFileLogger opens path for the operator log, creating it if absent and
// appending to it otherwise, so a restart never discards prior history.
func NewFileLogger(path string) (*FileLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &FileLogger{
		file: file,
	}, nil
}

// Log writes one timestamped, formatted line. Callers pass this as the
// logFunc a Logger or Server was constructed with, so it never panics on a
// closed logger after shutdown has begun.
func (l *FileLogger) Log(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.file, "%s %s\n", timestamp, msg)
}

// Close closes the log file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	return l.file.Close()
}

