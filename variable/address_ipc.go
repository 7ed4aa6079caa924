package variable

import (
	"fmt"

	"jidl/qualifier"
)

// validateIPCAddress checks that an IPC-as-client address is a well-formed
// "var::connection" qualifier naming a reader on the remote server, per
// §4.2: "the address is a var::connection qualifier that the remote server
// understands".
func validateIPCAddress(address string) error {
	q, err := qualifier.Parse(address)
	if err != nil {
		return err
	}
	if !q.IsReader() {
		return fmt.Errorf("ipc: address %q is not a var::connection qualifier", address)
	}
	return nil
}
