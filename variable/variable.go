// Package variable implements typed, address-bound tags: the readers and
// writers a Connection polls or updates on each due tick.
package variable

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"jidl/datatype"
)

// nameRe is the variable-name grammar from §3: identifier-shaped, no leading
// digit.
var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("variable: invalid name %q", name)
	}
	return nil
}

// Protocol identifies which address grammar a Variable's address was
// validated against, selected once at construction time so the hot read/write
// path never re-dispatches on protocol.
type Protocol int

const (
	ProtocolModbus Protocol = iota
	ProtocolS7
	ProtocolOPCUA
	ProtocolJSON
	ProtocolIPC
)

// Reader is a VariableReader: a named, typed, address-bound tag read from a
// DeviceClient on each due tick.
type Reader struct {
	name     string
	address  string
	typ      datatype.DataType
	protocol Protocol

	mu       sync.RWMutex
	value    datatype.Value
	hasValue bool
}

// NewReader constructs a Reader, validating name and, per protocol, address.
func NewReader(name, address string, typ datatype.DataType, protocol Protocol) (*Reader, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := typ.Validate(); err != nil {
		return nil, err
	}
	if err := validateAddress(address, typ, protocol); err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	return &Reader{name: name, address: address, typ: typ, protocol: protocol}, nil
}

func (r *Reader) Name() string              { return r.name }
func (r *Reader) Address() string           { return r.address }
func (r *Reader) Type() datatype.DataType   { return r.typ }
func (r *Reader) Protocol() Protocol        { return r.protocol }

// Value returns the last successfully read value. ok is false until the
// first successful read, per §3's Variable lifecycle.
func (r *Reader) Value() (datatype.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value, r.hasValue
}

// SetValue records a freshly decoded value. Called by a DeviceClient
// implementation while servicing Read.
func (r *Reader) SetValue(v datatype.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = v
	r.hasValue = true
}

// Text renders the current value as getAllDataAsText does in the original:
// the empty string if no read has succeeded yet.
func (r *Reader) Text() string {
	v, ok := r.Value()
	if !ok {
		return ""
	}
	return v.Text()
}

// Writer is a VariableWriter: writes the current value of its bound source
// Reader (a zero value of its type until the source's first successful read)
// through a DeviceClient. Every Writer has a source; NewWriter rejects nil.
type Writer struct {
	name     string
	address  string
	typ      datatype.DataType
	protocol Protocol

	source *Reader

	mu         sync.RWMutex
	pending    datatype.Value
	hasPending bool
}

// NewWriter constructs a Writer bound to source, whose DataType it inherits
// (per §6: "[var::connection<-srcVar::srcConnection] — address only; type
// inherited from source").
func NewWriter(name, address string, protocol Protocol, source *Reader) (*Writer, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("variable %q: writer requires a bound source reader", name)
	}
	typ := source.Type()
	if err := validateAddress(address, typ, protocol); err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	return &Writer{name: name, address: address, typ: typ, protocol: protocol, source: source}, nil
}

func (w *Writer) Name() string            { return w.name }
func (w *Writer) Address() string         { return w.address }
func (w *Writer) Type() datatype.DataType { return w.typ }
func (w *Writer) Protocol() Protocol      { return w.protocol }

// Value returns the value to write: the bound source's current value, or,
// absent a successful source read yet, a protocol-defined zero value.
func (w *Writer) Value() datatype.Value {
	if v, ok := w.source.Value(); ok {
		return v
	}
	return zeroValue(w.typ)
}

func zeroValue(t datatype.DataType) datatype.Value {
	switch t.Kind() {
	case datatype.Boolean:
		return datatype.NewValue(t, false)
	case datatype.Integer, datatype.DoubleInteger, datatype.Byte, datatype.Word, datatype.DoubleWord:
		return datatype.NewValue(t, int64(0))
	case datatype.Float, datatype.Real:
		return datatype.NewValue(t, float64(0))
	case datatype.Text:
		return datatype.NewValue(t, "")
	default:
		return datatype.Value{}
	}
}

// DeviceClient is the uniform capability every concrete protocol client
// (Modbus TCP, S7, OPC UA, JSON/HTTP, IPC-as-client) exposes to the core.
// Read/Write walk the supplied reader/writer lists in order, per §4.1's
// "Within one connection, reads are sequential" ordering guarantee.
type DeviceClient interface {
	Initialize() error
	Connect(ctx context.Context) error
	Disconnect() error
	IsInitialized() bool
	Read(ctx context.Context, readers []*Reader) error
	Write(ctx context.Context, writers []*Writer) error
}
