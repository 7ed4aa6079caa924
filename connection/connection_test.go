package connection

import (
	"context"
	"errors"
	"testing"

	"jidl/datatype"
	"jidl/variable"
)

type fakeClient struct {
	connectErr error
	readErr    error
	reads      int
}

func (f *fakeClient) Initialize() error   { return nil }
func (f *fakeClient) IsInitialized() bool { return true }
func (f *fakeClient) Connect(ctx context.Context) error {
	return f.connectErr
}
func (f *fakeClient) Disconnect() error { return nil }
func (f *fakeClient) Read(ctx context.Context, readers []*variable.Reader) error {
	f.reads++
	if f.readErr != nil {
		return f.readErr
	}
	for _, r := range readers {
		r.SetValue(datatype.NewValue(r.Type(), int64(42)))
	}
	return nil
}
func (f *fakeClient) Write(ctx context.Context, writers []*variable.Writer) error { return nil }

func newTestReader(t *testing.T, name string) *variable.Reader {
	t.Helper()
	r, err := variable.NewReader(name, "some-key", datatype.New(datatype.Integer), variable.ProtocolJSON)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func TestConnectionStateMachine(t *testing.T) {
	fc := &fakeClient{}
	c, err := New("c1", "json", "http://example/tags", 1, fc, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.State() != Uninitialized {
		t.Fatalf("expected Uninitialized, got %v", c.State())
	}
	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if c.State() != Initialized {
		t.Fatalf("expected Initialized, got %v", c.State())
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !c.Status() {
		t.Fatalf("expected Status() true after Connect")
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if c.State() != Disconnected {
		t.Fatalf("expected Disconnected, got %v", c.State())
	}
}

func TestConnectionConnectFailureKeepsStateUninitialized(t *testing.T) {
	fc := &fakeClient{connectErr: errors.New("boom")}
	c, err := New("c1", "json", "http://example/tags", 1, fc, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Connect(context.Background()); err == nil {
		t.Fatalf("expected Connect error")
	}
	if c.State() != Uninitialized {
		t.Fatalf("failed Connect must not advance state, got %v", c.State())
	}
}

func TestConnectionReadBuildsRow(t *testing.T) {
	fc := &fakeClient{}
	c, err := New("c1", "json", "http://example/tags", 1, fc, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r1 := newTestReader(t, "a")
	r2 := newTestReader(t, "b")
	if err := c.AddReader(r1); err != nil {
		t.Fatalf("AddReader: %v", err)
	}
	if err := c.AddReader(r2); err != nil {
		t.Fatalf("AddReader: %v", err)
	}

	row, err := c.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if row["a"] != "42" || row["b"] != "42" {
		t.Fatalf("unexpected row: %v", row)
	}
	if c.LastTimestamp().IsZero() {
		t.Fatalf("expected LastTimestamp to be set")
	}
}

func TestConnectionAddReaderRejectsDuplicate(t *testing.T) {
	fc := &fakeClient{}
	c, err := New("c1", "json", "http://example/tags", 1, fc, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r1 := newTestReader(t, "a")
	r2 := newTestReader(t, "a")
	if err := c.AddReader(r1); err != nil {
		t.Fatalf("AddReader: %v", err)
	}
	if err := c.AddReader(r2); err == nil {
		t.Fatalf("expected duplicate-name error")
	}
}

func TestConnectionWriteableReflectsWriters(t *testing.T) {
	fc := &fakeClient{}
	c, err := New("c1", "json", "http://example/tags", 1, fc, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Writeable() {
		t.Fatalf("expected not Writeable with no writers")
	}
	src := newTestReader(t, "src")
	w, err := variable.NewWriter("dst", "some-key", variable.ProtocolJSON, src)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := c.AddWriter(w); err != nil {
		t.Fatalf("AddWriter: %v", err)
	}
	if !c.Writeable() {
		t.Fatalf("expected Writeable with a writer present")
	}
}

func TestNewRejectsBadSampleTicks(t *testing.T) {
	fc := &fakeClient{}
	if _, err := New("c1", "json", "addr", 0, fc, false); err == nil {
		t.Fatalf("expected error for sampleTicks=0")
	}
}
