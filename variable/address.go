package variable

import (
	"fmt"

	"jidl/datatype"
)

// validateAddress dispatches to the address grammar named by protocol, per
// §4.2. S7 and OPC UA delegate the bulk of validation to their underlying
// client library (not present in this module); the core only needs to be
// able to form the tag identifier it hands to that client.
func validateAddress(address string, typ datatype.DataType, protocol Protocol) error {
	if address == "" {
		return fmt.Errorf("empty address")
	}
	switch protocol {
	case ProtocolModbus:
		return validateModbusAddress(address, typ)
	case ProtocolS7:
		_, err := S7TagIdentifier(address, typ)
		return err
	case ProtocolOPCUA:
		return nil // delegated entirely to the underlying client
	case ProtocolJSON:
		return nil // any non-empty key name is valid
	case ProtocolIPC:
		return validateIPCAddress(address)
	default:
		return fmt.Errorf("unknown protocol %v", protocol)
	}
}
