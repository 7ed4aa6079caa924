// Package datatype defines the closed set of logical value kinds JIDL moves
// between devices, the wire protocol, and the relational sink.
package datatype

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is one member of the closed DataType enumeration.
type Kind int

const (
	Boolean Kind = iota
	Integer
	DoubleInteger
	Float
	Real
	Byte
	Word
	DoubleWord
	Text
)

var kindNames = map[Kind]string{
	Boolean:       "BOOLEAN",
	Integer:       "INTEGER",
	DoubleInteger: "DOUBLE_INTEGER",
	Float:         "FLOAT",
	Real:          "REAL",
	Byte:          "BYTE",
	Word:          "WORD",
	DoubleWord:    "DOUBLE_WORD",
	Text:          "TEXT",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "UNKNOWN"
}

// DataType is an immutable, fully-constructed type descriptor: a Kind plus an
// optional size, relevant only to TEXT. Unlike the original implementation's
// enum (where size lived on the shared enum instance and every Variable of
// the same Kind clobbered every other one's size), each DataType value here
// is independent — constructing one never mutates another.
type DataType struct {
	kind Kind
	size int // 0 means "unset"
}

// New constructs a DataType of the given kind with no explicit size.
func New(k Kind) DataType { return DataType{kind: k} }

// NewSized constructs a DataType with an explicit, positive size. Only TEXT
// uses this; setting a size on a fixed-width kind is accepted (the original
// never restricted it either) but ignored by SQLType and by decoders.
func NewSized(k Kind, size int) (DataType, error) {
	if size < 0 {
		return DataType{}, fmt.Errorf("datatype: negative size %d", size)
	}
	return DataType{kind: k, size: size}, nil
}

// Kind returns the underlying enum member.
func (d DataType) Kind() Kind { return d.kind }

// Size returns the explicit size and whether one was set.
func (d DataType) Size() (int, bool) { return d.size, d.size > 0 }

// TextSize returns the effective size for a TEXT column: the explicit size,
// or 127 registers' worth of default if none was given (see §4.2 for the
// Modbus default of 127 registers; the same default value doubles as the
// generic "no size given" default for TEXT elsewhere).
func (d DataType) TextSize() int {
	if d.size > 0 {
		return d.size
	}
	return 127
}

func (d DataType) String() string {
	if d.size > 0 {
		return fmt.Sprintf("%s(%d)", d.kind, d.size)
	}
	return d.kind.String()
}

// Parse parses a DataType name, with an optional "(size)" suffix, e.g.
// "TEXT(6)" or "INTEGER". It is the direct counterpart of the original's
// valueOfDataType.
func Parse(s string) (DataType, error) {
	name := s
	size := 0

	if start := strings.IndexByte(s, '('); start >= 0 {
		end := strings.IndexByte(s, ')')
		if end < start {
			return DataType{}, fmt.Errorf("datatype: malformed size suffix in %q", s)
		}
		n, err := strconv.Atoi(strings.TrimSpace(s[start+1 : end]))
		if err != nil {
			return DataType{}, fmt.Errorf("datatype: malformed size suffix in %q: %w", s, err)
		}
		if n < 0 {
			return DataType{}, fmt.Errorf("datatype: negative size in %q", s)
		}
		size = n
		name = s[:start]
	}

	for k, n := range kindNames {
		if n == name {
			return DataType{kind: k, size: size}, nil
		}
	}
	return DataType{}, fmt.Errorf("datatype: unrecognized DataType %q", s)
}

// SQLType maps a DataType onto the canonical SQL type used for sink column
// declarations: one of NUMERIC, INTEGER, REAL, TEXT.
func (d DataType) SQLType() string {
	switch d.kind {
	case Boolean:
		return "NUMERIC"
	case Integer, DoubleInteger, Byte, Word, DoubleWord:
		return "INTEGER"
	case Float, Real:
		return "REAL"
	case Text:
		return "TEXT"
	default:
		return ""
	}
}

// Validate reports whether d's Kind is a recognized member of the enum.
func (d DataType) Validate() error {
	if _, ok := kindNames[d.kind]; !ok {
		return fmt.Errorf("datatype: invalid DataType %d", d.kind)
	}
	return nil
}

// RegisterWidth returns the number of 16-bit Modbus registers occupied by a
// value of this type, per §4.2: BOOLEAN takes a single coil/bit (reported as
// 0 registers, callers must check Kind==Boolean separately), word-sized types
// take 1 register, DOUBLE_*/REAL take 2, TEXT takes TextSize() registers.
func (d DataType) RegisterWidth() int {
	switch d.kind {
	case Boolean:
		return 0
	case Integer, Byte, Word:
		return 1
	case DoubleInteger, Float, Real, DoubleWord:
		return 2
	case Text:
		return d.TextSize()
	default:
		return 1
	}
}
