package connection

import (
	"context"
	"fmt"
	"time"

	"jidl/datatype"
	"jidl/errs"
	"jidl/ipc"
	"jidl/qualifier"
	"jidl/variable"
)

// ipcClient is the DeviceClient variant of the IPC-as-client connection
// type: each reader's address is a "var::connection" qualifier resolved by
// a remote Jidl server's "values" method (§4.2, §4.6).
type ipcClient struct {
	client  *ipc.Client
	timeout time.Duration
}

// NewIPCClient constructs the DeviceClient for an IPC-as-client connection
// dialing addr.
func NewIPCClient(addr string, tlsClient *ipc.Client, timeout time.Duration) variable.DeviceClient {
	c := tlsClient
	if c == nil {
		c = ipc.New(addr, nil)
	}
	return &ipcClient{client: c, timeout: timeout}
}

func (c *ipcClient) Initialize() error       { return nil }
func (c *ipcClient) IsInitialized() bool     { return true }
func (c *ipcClient) Connect(ctx context.Context) error { return nil }
func (c *ipcClient) Disconnect() error       { return nil }

// Read groups readers by the remote connection their qualifier names, sends
// one "values" request per call, and decodes each returned value per the
// reader's own DataType.
func (c *ipcClient) Read(ctx context.Context, readers []*variable.Reader) error {
	byConn := map[string][]*variable.Reader{}
	for _, r := range readers {
		q, err := qualifier.Parse(r.Address())
		if err != nil {
			return fmt.Errorf("ipc client: reader %q: %w: %v", r.Name(), errs.ErrDecodeError, err)
		}
		byConn[q.Connection] = append(byConn[q.Connection], r)
	}

	payload := map[string]interface{}{}
	for connName, rs := range byConn {
		vars := make([]interface{}, 0, len(rs))
		for _, r := range rs {
			q, _ := qualifier.Parse(r.Address())
			vars = append(vars, q.Var)
		}
		payload[connName] = vars
	}

	resp, err := c.client.Send("values", payload, c.timeout)
	if err != nil {
		return fmt.Errorf("ipc client: %w: %v", errs.ErrDeviceUnreachable, err)
	}

	for _, r := range readers {
		q, err := qualifier.Parse(r.Address())
		if err != nil {
			continue
		}
		raw, ok := resp[q.String()]
		if !ok {
			continue
		}
		v, err := datatype.CoerceJSON(r.Type(), raw)
		if err != nil {
			return fmt.Errorf("ipc client: reader %q: %w: %v", r.Name(), errs.ErrDecodeError, err)
		}
		r.SetValue(v)
	}
	return nil
}

// Write is unsupported: the remote "values" method is read-only (§4.6).
func (c *ipcClient) Write(ctx context.Context, writers []*variable.Writer) error {
	if len(writers) == 0 {
		return nil
	}
	return fmt.Errorf("ipc client: %w: write not supported over IPC-as-client", errs.ErrBadArgument)
}
