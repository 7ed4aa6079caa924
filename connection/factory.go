package connection

import (
	"fmt"
	"time"

	"jidl/errs"
	"jidl/ipc"
	"jidl/variable"
)

// NewClient builds the DeviceClient for a connection of the given kind and
// address, per §4.2's five connection types. JSON and IPC-as-client get a
// fully working implementation; modbus-tcp/s7/opcua get the out-of-scope
// stub (address validation for those protocols still runs in package
// variable, ahead of this call).
func NewClient(kind, address string, timeout time.Duration, ipcClient *ipc.Client) (variable.DeviceClient, error) {
	switch kind {
	case "json":
		return NewJSONClient(address, timeout), nil
	case "ipc":
		return NewIPCClient(address, ipcClient, timeout), nil
	case "modbus", "s7", "opcua":
		return NewStubClient(kind), nil
	default:
		return nil, fmt.Errorf("connection: %w: unknown connection kind %q", errs.ErrBadArgument, kind)
	}
}
