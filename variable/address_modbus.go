package variable

import (
	"fmt"

	"jidl/datatype"
)

// validateModbusAddress checks the register-file/size agreement of §4.2: the
// first digit of the address selects coil (bit) or register (word) space,
// and the target DataType must match that space's width. BYTE is treated as
// word-sized (a single register), matching the original's "word variable"
// branch for anything that is not BOOLEAN/DOUBLE_*/TEXT.
func validateModbusAddress(address string, typ datatype.DataType) error {
	var bitSpace bool
	switch address[0] {
	case '0', '1':
		bitSpace = true
	case '3', '4':
		bitSpace = false
	default:
		return fmt.Errorf("illegal modbus address: %s", address)
	}

	switch typ.Kind() {
	case datatype.Boolean:
		if !bitSpace {
			return fmt.Errorf("illegal modbus address for bit variable: %s", address)
		}
	case datatype.Integer, datatype.Float, datatype.Word, datatype.Byte:
		if bitSpace {
			return fmt.Errorf("illegal modbus address for word variable: %s", address)
		}
	case datatype.DoubleInteger, datatype.Real, datatype.DoubleWord:
		if bitSpace {
			return fmt.Errorf("illegal modbus address for double word variable: %s", address)
		}
	case datatype.Text:
		if bitSpace {
			return fmt.Errorf("illegal modbus address for string variable: %s", address)
		}
	default:
		return fmt.Errorf("illegal type for modbus: %s", typ.Kind())
	}
	return nil
}

// ModbusRegisterCount returns the number of registers a read/write of typ
// occupies, per RegisterWidth, clamped to at least 1 for bit-space types
// (each coil is its own addressable unit, not a register).
func ModbusRegisterCount(typ datatype.DataType) int {
	if typ.Kind() == datatype.Boolean {
		return 1
	}
	w := typ.RegisterWidth()
	if w == 0 {
		return 1
	}
	return w
}
