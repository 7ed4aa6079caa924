package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"jidl/datatype"
	"jidl/errs"
	"jidl/logging"
	"jidl/variable"
)

const jsonProtocol = "json"

// jsonClient is the DeviceClient variant of §4.2's JSON-HTTP connection: a
// single GET against Address returns a flat JSON object, and each reader's
// address names a key into that object, coerced to its DataType.
type jsonClient struct {
	address string
	timeout time.Duration

	mu         sync.Mutex
	httpClient *http.Client
}

// NewJSONClient constructs the DeviceClient for a JSON-HTTP connection whose
// base URL is address.
func NewJSONClient(address string, timeout time.Duration) variable.DeviceClient {
	return &jsonClient{address: address, timeout: timeout}
}

func (c *jsonClient) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpClient = &http.Client{Timeout: c.timeout}
	return nil
}

func (c *jsonClient) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.httpClient != nil
}

// Connect is a no-op: HTTP is connectionless per request, so "connected"
// only means Initialize has run.
func (c *jsonClient) Connect(ctx context.Context) error {
	if !c.IsInitialized() {
		return fmt.Errorf("json client: %w: not initialized", errs.ErrBadArgument)
	}
	return nil
}

func (c *jsonClient) Disconnect() error { return nil }

// Read performs one GET and decodes the response body into a flat object,
// coercing each reader's named field per its DataType.
func (c *jsonClient) Read(ctx context.Context, readers []*variable.Reader) error {
	c.mu.Lock()
	hc := c.httpClient
	c.mu.Unlock()
	if hc == nil {
		return fmt.Errorf("json client: %w: not initialized", errs.ErrBadArgument)
	}

	logging.DebugConnect(jsonProtocol, c.address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.address, nil)
	if err != nil {
		logging.DebugConnectError(jsonProtocol, c.address, err)
		return fmt.Errorf("json client: %w: %v", errs.ErrDeviceUnreachable, err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		logging.DebugConnectError(jsonProtocol, c.address, err)
		return fmt.Errorf("json client: %w: %v", errs.ErrDeviceUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("HTTP status %d", resp.StatusCode)
		logging.DebugConnectError(jsonProtocol, c.address, err)
		return fmt.Errorf("json client: %w: %v", errs.ErrDeviceUnreachable, err)
	}
	logging.DebugConnectSuccess(jsonProtocol, c.address, resp.Status)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("json client: %w: %v", errs.ErrDecodeError, err)
	}
	logging.DebugRX(jsonProtocol, body)

	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		logging.DebugError(jsonProtocol, "decode response", err)
		return fmt.Errorf("json client: %w: %v", errs.ErrDecodeError, err)
	}

	for _, r := range readers {
		raw, ok := decoded[r.Address()]
		if !ok {
			continue
		}
		v, err := datatype.CoerceJSON(r.Type(), raw)
		if err != nil {
			return fmt.Errorf("json client: reader %q: %w: %v", r.Name(), errs.ErrDecodeError, err)
		}
		r.SetValue(v)
	}
	return nil
}

// Write is out of scope for the JSON-HTTP variant: the original targets a
// pull-only telemetry endpoint, and §1 scopes the write path to protocols
// that support it explicitly.
func (c *jsonClient) Write(ctx context.Context, writers []*variable.Writer) error {
	if len(writers) == 0 {
		return nil
	}
	return fmt.Errorf("json client: %w: write not supported over JSON-HTTP", errs.ErrBadArgument)
}
