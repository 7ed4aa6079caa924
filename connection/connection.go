// Package connection implements Connection: a stateful, named binding to a
// device, parameterized by address and sample period, owning an ordered
// reader list and (optionally) a writer list, per §3 and §4.1.
package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jidl/errs"
	"jidl/variable"
)

// State is one member of the per-connection state machine of §4.1:
// UNINITIALIZED -> INITIALIZED -> CONNECTED <-> DISCONNECTED.
type State int

const (
	Uninitialized State = iota
	Initialized
	Connected
	Disconnected
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Initialized:
		return "INITIALIZED"
	case Connected:
		return "CONNECTED"
	case Disconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Connection is the one concrete Connection type generalizing the source's
// parallel ConnectionManager hierarchy (PLC/JSON-HTTP/IPC-as-client), per the
// §9 re-architecture note: capability, not subclass, distinguishes variants.
// A nil Writer list means the connection is not Writeable; Shareable is a
// plain flag rather than a marker interface since aliasing is decided once,
// at configuration-bind time.
type Connection struct {
	name        string
	kind        string
	address     string
	sampleTicks int
	shareable   bool

	client  variable.DeviceClient
	readers []*variable.Reader
	writers []*variable.Writer

	mu            sync.Mutex
	state         State
	lastTimestamp time.Time
}

// New constructs a Connection. name must be non-empty and unique within its
// logger (enforced by the caller, a Logger's config-bind walk); sampleTicks
// must be >= 1 per §3.
func New(name, kind, address string, sampleTicks int, client variable.DeviceClient, shareable bool) (*Connection, error) {
	if name == "" {
		return nil, fmt.Errorf("connection: %w: empty name", errs.ErrBadArgument)
	}
	if sampleTicks < 1 {
		return nil, fmt.Errorf("connection %q: %w: sampleTicks must be >= 1", name, errs.ErrBadArgument)
	}
	return &Connection{
		name:        name,
		kind:        kind,
		address:     address,
		sampleTicks: sampleTicks,
		shareable:   shareable,
		client:      client,
		state:       Uninitialized,
	}, nil
}

func (c *Connection) Name() string     { return c.name }
func (c *Connection) Kind() string     { return c.kind }
func (c *Connection) Address() string  { return c.address }
func (c *Connection) Shareable() bool  { return c.shareable }
func (c *Connection) SampleTicks() int { return c.sampleTicks }

// Client returns the underlying DeviceClient, for Shareable aliasing: two
// connections sharing the same (type, address) alias the same client value
// rather than opening a second one, per §5's shared-resource policy.
func (c *Connection) Client() variable.DeviceClient { return c.client }

// AddReader appends r to the ordered reader list, rejecting a duplicate name.
func (c *Connection) AddReader(r *variable.Reader) error {
	for _, existing := range c.readers {
		if existing.Name() == r.Name() {
			return fmt.Errorf("connection %q: %w: duplicate reader %q", c.name, errs.ErrBadArgument, r.Name())
		}
	}
	c.readers = append(c.readers, r)
	return nil
}

// AddWriter appends w to the ordered writer list, rejecting a duplicate name.
func (c *Connection) AddWriter(w *variable.Writer) error {
	for _, existing := range c.writers {
		if existing.Name() == w.Name() {
			return fmt.Errorf("connection %q: %w: duplicate writer %q", c.name, errs.ErrBadArgument, w.Name())
		}
	}
	c.writers = append(c.writers, w)
	return nil
}

// Readers returns the ordered reader list. The caller must not mutate it.
func (c *Connection) Readers() []*variable.Reader { return c.readers }

// Writers returns the ordered writer list. The caller must not mutate it.
func (c *Connection) Writers() []*variable.Writer { return c.writers }

// HasReaders / HasWriters mirror the original's isReaderListEmpty /
// isWriterListEmpty, inverted for readability at call sites.
func (c *Connection) HasReaders() bool { return len(c.readers) > 0 }
func (c *Connection) HasWriters() bool { return len(c.writers) > 0 }

// Writeable reports whether this connection carries any writers, the
// capability test the scheduler uses in place of a WriteableConnection marker
// interface.
func (c *Connection) Writeable() bool { return c.HasWriters() }

// State returns the current state-machine state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status reports true while CONNECTED, per §3's "status ∈ {DISCONNECTED,
// CONNECTED}" (UNINITIALIZED/INITIALIZED both report false, matching the
// original's boolean getStatus()).
func (c *Connection) Status() bool {
	return c.State() == Connected
}

// IsInitialized reports whether Initialize has succeeded.
func (c *Connection) IsInitialized() bool {
	s := c.State()
	return s == Initialized || s == Connected || s == Disconnected
}

// LastTimestamp returns the timestamp of the last successful read.
func (c *Connection) LastTimestamp() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTimestamp
}

// Initialize calls through to the DeviceClient and advances the state
// machine to INITIALIZED on success.
func (c *Connection) Initialize() error {
	if err := c.client.Initialize(); err != nil {
		return fmt.Errorf("connection %q: %w: %v", c.name, errs.ErrBadArgument, err)
	}
	c.mu.Lock()
	c.state = Initialized
	c.mu.Unlock()
	return nil
}

// Connect calls through to the DeviceClient and advances the state machine
// to CONNECTED on success, per the UNINITIALIZED/INITIALIZED -> CONNECTED
// edge of §4.1's state machine.
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.client.Connect(ctx); err != nil {
		return fmt.Errorf("connection %q: %w: %v", c.name, errs.ErrDeviceUnreachable, err)
	}
	c.mu.Lock()
	c.state = Connected
	c.mu.Unlock()
	return nil
}

// Disconnect calls through to the DeviceClient and marks the connection
// DISCONNECTED regardless of the client's own error, per §4.1: "any
// read/write I/O failure" drives this transition and it must always
// complete.
func (c *Connection) Disconnect() error {
	err := c.client.Disconnect()
	c.mu.Lock()
	if c.state != Uninitialized {
		c.state = Disconnected
	}
	c.mu.Unlock()
	return err
}

// Read walks the reader list in order through the DeviceClient (the
// "connection owns its client and its per-tag order" guarantee of §5),
// updates lastTimestamp on success, and returns the row of text values
// ready for sink.AddEntry, keyed by reader name (readers with no value yet
// are omitted). The caller adds the "TIMESTAMP" key.
func (c *Connection) Read(ctx context.Context) (map[string]string, error) {
	if err := c.client.Read(ctx, c.readers); err != nil {
		return nil, fmt.Errorf("connection %q: %w: %v", c.name, errs.ErrDeviceReadError, err)
	}

	now := time.Now()
	c.mu.Lock()
	c.lastTimestamp = now
	c.mu.Unlock()

	row := make(map[string]string, len(c.readers)+1)
	for _, r := range c.readers {
		if _, ok := r.Value(); ok {
			row[r.Name()] = r.Text()
		}
	}
	return row, nil
}

// Write walks the writer list in order through the DeviceClient.
func (c *Connection) Write(ctx context.Context) error {
	if err := c.client.Write(ctx, c.writers); err != nil {
		return fmt.Errorf("connection %q: %w: %v", c.name, errs.ErrDeviceWriteError, err)
	}
	return nil
}

// FieldView is one (label, value) pair of Connection.Fields, the typed
// introspection surface replacing the source's reflective
// getParameterByName/getParameterNames (§9).
type FieldView struct {
	Label string
	Value string
}

// Fields returns the handful of fields the original GUI read generically,
// with no runtime type queries: name, type, address, sample ticks, status.
func (c *Connection) Fields() []FieldView {
	return []FieldView{
		{"name", c.name},
		{"type", c.kind},
		{"address", c.address},
		{"sample ticks", fmt.Sprintf("%d", c.sampleTicks)},
		{"status", c.State().String()},
	}
}
