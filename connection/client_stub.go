package connection

import (
	"context"
	"fmt"

	"jidl/errs"
	"jidl/variable"
)

// stubClient stands in for a concrete industrial-protocol client (Modbus
// TCP, S7, OPC UA) that §1 scopes out of this build: address grammar and
// DataType validation for these protocols is implemented in package
// variable, but the wire-level driver that actually talks to the PLC is an
// external collaborator. Connect fails cleanly rather than pretending to
// succeed, so a misconfigured connection surfaces immediately instead of
// silently never producing a read.
type stubClient struct {
	protocol string
}

// NewStubClient constructs the DeviceClient placeholder for protocol, which
// names the out-of-scope wire protocol for its error message.
func NewStubClient(protocol string) variable.DeviceClient {
	return &stubClient{protocol: protocol}
}

func (c *stubClient) Initialize() error   { return nil }
func (c *stubClient) IsInitialized() bool { return true }

func (c *stubClient) Connect(ctx context.Context) error {
	return fmt.Errorf("connection: %w: %s client library not included in this build", errs.ErrDeviceUnreachable, c.protocol)
}

func (c *stubClient) Disconnect() error { return nil }

func (c *stubClient) Read(ctx context.Context, readers []*variable.Reader) error {
	return fmt.Errorf("connection: %w: %s client library not included in this build", errs.ErrDeviceReadError, c.protocol)
}

func (c *stubClient) Write(ctx context.Context, writers []*variable.Writer) error {
	return fmt.Errorf("connection: %w: %s client library not included in this build", errs.ErrDeviceWriteError, c.protocol)
}
