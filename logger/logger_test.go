package logger

import (
	"context"
	"testing"

	"jidl/connection"
	"jidl/sink"
)

func newStubConnection(t *testing.T, name string) *connection.Connection {
	t.Helper()
	c, err := connection.New(name, "stub", "addr", 10, connection.NewStubClient("stub"), false)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewRejectsEmptyName(t *testing.T) {
	_, err := New(Config{Sink: sink.NewDummy()})
	if err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestNewRejectsNilSink(t *testing.T) {
	_, err := New(Config{Name: "l"})
	if err == nil {
		t.Fatal("expected error for nil sink")
	}
}

func TestNewRejectsDuplicateConnectionNames(t *testing.T) {
	c1 := newStubConnection(t, "a")
	c2 := newStubConnection(t, "a")
	_, err := New(Config{Name: "l", Sink: sink.NewDummy(), Connections: []*connection.Connection{c1, c2}})
	if err == nil {
		t.Fatal("expected error for duplicate connection name")
	}
}

func TestLoggerStartStopStatus(t *testing.T) {
	c := newStubConnection(t, "a")
	l, err := New(Config{Name: "l", Sink: sink.NewDummy(), Connections: []*connection.Connection{c}})
	if err != nil {
		t.Fatal(err)
	}

	if l.Status() {
		t.Fatal("expected Status false before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !l.Status() {
		t.Fatal("expected Status true after Start")
	}

	l.Stop()
	if l.Status() {
		t.Fatal("expected Status false after Stop")
	}
}

func TestLoggerConnectionLookup(t *testing.T) {
	c := newStubConnection(t, "a")
	l, err := New(Config{Name: "l", Sink: sink.NewDummy(), Connections: []*connection.Connection{c}})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := l.Connection("a"); !ok {
		t.Fatal("expected to find connection a")
	}
	if _, ok := l.Connection("missing"); ok {
		t.Fatal("did not expect to find connection missing")
	}
}

func TestLoggerLogWritesToSinkAndLogFunc(t *testing.T) {
	var captured string
	s := sink.NewDummy()
	l, err := New(Config{
		Name: "l",
		Sink: s,
		LogFunc: func(format string, args ...interface{}) {
			captured = format
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	l.Log("hello %s", "world")
	if captured != "hello world" {
		t.Errorf("captured = %q, want %q", captured, "hello world")
	}
	diag := s.(interface{ Diagnostics() []string }).Diagnostics()
	if len(diag) != 1 || diag[0] != "hello world" {
		t.Errorf("sink diagnostics = %q, want [\"hello world\"]", diag)
	}
}
