package ipc

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// Client is the IPC client side of §4.6: "exists for completeness... the
// client's connection pool/worker resource is reusable across many requests
// — it is not torn down after the first call" (§9). Reusability here means
// a Client value carries no owned connection or goroutine to tear down;
// every Send dials fresh, so calling Send repeatedly on the same Client is
// always safe and requires no Close.
type Client struct {
	Addr      string
	TLSConfig *tls.Config
}

// New constructs a Client dialing addr with the given TLS configuration
// (nil disables TLS, for use against a plaintext test listener).
func New(addr string, tlsConfig *tls.Config) *Client {
	return &Client{Addr: addr, TLSConfig: tlsConfig}
}

// Send writes one request frame and reads one response frame, honoring
// timeout (0 = no timeout). A bad response is returned as *Error carrying its
// status code; dial, write and read failures are returned wrapped (a frame
// decode failure still wraps an *Error). server.Client translates these into
// errs.ProtocolError and errs.ErrIoError.
func (c *Client) Send(method string, payload map[string]interface{}, timeout time.Duration) (map[string]interface{}, error) {
	conn, err := c.dial(timeout)
	if err != nil {
		return nil, fmt.Errorf("ipc: dial %s: %w", c.Addr, err)
	}
	defer conn.Close()

	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
	}

	if err := WriteRequest(conn, method, payload); err != nil {
		return nil, fmt.Errorf("ipc: write request: %w", err)
	}

	status, body, err := ReadResponse(conn)
	if err != nil {
		return nil, fmt.Errorf("ipc: read response: %w", err)
	}
	if status.IsBad() {
		return nil, &Error{Code: status}
	}
	return body, nil
}

func (c *Client) dial(timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	if c.TLSConfig != nil {
		return tls.DialWithDialer(dialer, "tcp", c.Addr, c.TLSConfig)
	}
	return dialer.Dial("tcp", c.Addr)
}
