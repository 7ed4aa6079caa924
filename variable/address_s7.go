package variable

import (
	"fmt"

	"jidl/datatype"
)

// s7TypeCodes maps a DataType Kind to the S7 DataTypeCode used in the tag
// identifier formed for the underlying (out-of-scope) S7 client library, per
// §4.2: "DataTypeCode ∈ {BOOL, BYTE, INT, WORD, DINT, REAL, STRING(n)}".
var s7TypeCodes = map[datatype.Kind]string{
	datatype.Boolean:       "BOOL",
	datatype.Byte:          "BYTE",
	datatype.Integer:       "INT",
	datatype.Word:          "WORD",
	datatype.DoubleInteger: "DINT",
	datatype.DoubleWord:    "DINT",
	datatype.Real:          "REAL",
	datatype.Float:         "REAL",
}

// s7MaxStringLen is the maximum STRING(n) length the S7 driver accepts.
const s7MaxStringLen = 254

// s7DefaultStringLen is used when typ carries no explicit size.
const s7DefaultStringLen = 254

// S7TagIdentifier forms the typed tag identifier "<address>:<DataTypeCode>"
// that the core hands to the underlying S7 client library. Address validity
// itself is delegated to that client (per §4.2); this only needs to be able
// to form the identifier, so it rejects an empty address and an
// unrepresentable DataType, nothing more.
func S7TagIdentifier(address string, typ datatype.DataType) (string, error) {
	if address == "" {
		return "", fmt.Errorf("s7: empty address")
	}

	if typ.Kind() == datatype.Text {
		n := s7DefaultStringLen
		if size, ok := typ.Size(); ok {
			n = size
		}
		if n > s7MaxStringLen {
			return "", fmt.Errorf("s7: STRING(%d) exceeds maximum length %d", n, s7MaxStringLen)
		}
		return fmt.Sprintf("%s:STRING(%d)", address, n), nil
	}

	code, ok := s7TypeCodes[typ.Kind()]
	if !ok {
		return "", fmt.Errorf("s7: unsupported DataType %s", typ.Kind())
	}
	return fmt.Sprintf("%s:%s", address, code), nil
}
