package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"jidl/errs"
	"jidl/ipc"
)

// Client is JidlClient: a thin, domain-shaped wrapper over ipc.Client for
// the three CLI/remote-tooling operations named in §4.6. It carries no
// connection of its own — per ipc.Client's doc, every call dials fresh — so
// a Client value needs no Close and is safe to reuse across calls.
type Client struct {
	inner *ipc.Client
}

// NewClient constructs a Client dialing addr. tlsConfig may be nil only
// against a plaintext test listener; production use always gates through
// mutual TLS.
func NewClient(addr string, tlsConfig *tls.Config) *Client {
	return &Client{inner: ipc.New(addr, tlsConfig)}
}

// wrap translates an ipc.Error into errs.ProtocolError and any other
// transport failure into errs.ErrIoError, per §4.6's client contract.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var perr *ipc.Error
	if errors.As(err, &perr) {
		return &errs.ProtocolError{Code: uint8(perr.Code)}
	}
	return fmt.Errorf("%w: %v", errs.ErrIoError, err)
}

// Values requests the current cached values for the given
// connection -> variable-names map, returning a "var::connection" -> value
// map on success.
func (c *Client) Values(vars map[string][]string, timeout time.Duration) (map[string]interface{}, error) {
	payload := make(map[string]interface{}, len(vars))
	for conn, names := range vars {
		list := make([]interface{}, len(names))
		for i, n := range names {
			list[i] = n
		}
		payload[conn] = list
	}
	resp, err := c.inner.Send("values", payload, timeout)
	if err != nil {
		return nil, wrap(err)
	}
	return resp, nil
}

// Start requests that the remote logger begin scheduling, subject to the
// remote server's ControlEnabled gate.
func (c *Client) Start(timeout time.Duration) error {
	_, err := c.inner.Send("start", nil, timeout)
	return wrap(err)
}

// Stop requests that the remote logger stop scheduling.
func (c *Client) Stop(timeout time.Duration) error {
	_, err := c.inner.Send("stop", nil, timeout)
	return wrap(err)
}

// Trends requests trend data. The server's current implementation always
// returns an empty payload; this method exists for client-side completeness.
func (c *Client) Trends(timeout time.Duration) (map[string]interface{}, error) {
	resp, err := c.inner.Send("trends", nil, timeout)
	if err != nil {
		return nil, wrap(err)
	}
	return resp, nil
}
