package datatype

import (
	"fmt"
	"strconv"
)

// Value is a logical, typed datum: the decoded form of a reader's last
// successful read, or a writer's pending value. It carries its DataType so
// sink row-building and the IPC "values" handler never need to re-derive the
// type from context.
type Value struct {
	Type DataType
	raw  interface{}
}

// NewValue wraps a decoded Go value (bool, int64, float64, or string) with
// its DataType. It does not attempt to coerce raw into Type's Kind — callers
// decode the wire bytes into the right Go type before calling this.
func NewValue(t DataType, raw interface{}) Value {
	return Value{Type: t, raw: raw}
}

// Raw returns the underlying Go value.
func (v Value) Raw() interface{} { return v.raw }

// Text renders the value as its canonical textual form, used by addEntry
// row-building (getAllDataAsText in the original). The IPC "values" response
// carries Raw() instead.
func (v Value) Text() string {
	switch x := v.raw.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

// CoerceJSON converts a decoded JSON value (float64, string, bool, nil) into
// a Value typed per t, as required by the JSON/HTTP connection variant
// (§4.2): "the value is coerced per target DataType".
func CoerceJSON(t DataType, decoded interface{}) (Value, error) {
	switch t.Kind() {
	case Boolean:
		switch x := decoded.(type) {
		case bool:
			return NewValue(t, x), nil
		case float64:
			return NewValue(t, x != 0), nil
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return Value{}, fmt.Errorf("datatype: cannot coerce %q to BOOLEAN: %w", x, err)
			}
			return NewValue(t, b), nil
		default:
			return Value{}, fmt.Errorf("datatype: cannot coerce %T to BOOLEAN", decoded)
		}
	case Integer, DoubleInteger, Byte, Word, DoubleWord:
		switch x := decoded.(type) {
		case float64:
			return NewValue(t, int64(x)), nil
		case string:
			n, err := strconv.ParseInt(x, 10, 64)
			if err != nil {
				return Value{}, fmt.Errorf("datatype: cannot coerce %q to %s: %w", x, t.Kind(), err)
			}
			return NewValue(t, n), nil
		default:
			return Value{}, fmt.Errorf("datatype: cannot coerce %T to %s", decoded, t.Kind())
		}
	case Float, Real:
		switch x := decoded.(type) {
		case float64:
			return NewValue(t, x), nil
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return Value{}, fmt.Errorf("datatype: cannot coerce %q to %s: %w", x, t.Kind(), err)
			}
			return NewValue(t, f), nil
		default:
			return Value{}, fmt.Errorf("datatype: cannot coerce %T to %s", decoded, t.Kind())
		}
	case Text:
		switch x := decoded.(type) {
		case string:
			return NewValue(t, x), nil
		default:
			return NewValue(t, fmt.Sprintf("%v", x)), nil
		}
	default:
		return Value{}, fmt.Errorf("datatype: unsupported DataType %s", t.Kind())
	}
}
