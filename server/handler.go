package server

import (
	"context"
	"fmt"

	"jidl/ipc"
	"jidl/logger"
	"jidl/qualifier"
)

// RequestHandler dispatches decoded IPC requests against a live Logger, per
// §4.6's handler surface.
type RequestHandler struct {
	logger         *logger.Logger
	controlEnabled bool
}

// NewRequestHandler constructs a RequestHandler over l. controlEnabled gates
// the "start"/"stop" methods; cmd/jidl sets it from the `-r` CLI flag.
func NewRequestHandler(l *logger.Logger, controlEnabled bool) *RequestHandler {
	return &RequestHandler{logger: l, controlEnabled: controlEnabled}
}

// Handle dispatches one request and returns its response payload, or a
// *ipc.Error carrying the StatusCode to write back.
func (h *RequestHandler) Handle(ctx context.Context, method string, payload map[string]interface{}) (map[string]interface{}, error) {
	switch method {
	case "values":
		return h.handleValues(payload)
	case "start":
		return h.handleStart(ctx)
	case "stop":
		return h.handleStop()
	case "trends":
		return map[string]interface{}{}, nil
	default:
		return nil, &ipc.Error{Code: ipc.BadResponseFailedRequestHandling}
	}
}

// handleValues implements §4.6: payload `{connectionName: [var, ...], ...}`,
// response `{"var::connection": value, ...}` from the most recent cached
// reads. Any unknown connection or variable fails the whole request.
func (h *RequestHandler) handleValues(payload map[string]interface{}) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for connName, rawVars := range payload {
		conn, ok := h.logger.Connection(connName)
		if !ok {
			return nil, &ipc.Error{Code: ipc.BadResponseFailedRequestHandling}
		}
		vars, ok := rawVars.([]interface{})
		if !ok {
			return nil, &ipc.Error{Code: ipc.BadResponseFailedRequestHandling}
		}
		for _, rv := range vars {
			varName, ok := rv.(string)
			if !ok {
				return nil, &ipc.Error{Code: ipc.BadResponseFailedRequestHandling}
			}
			var found bool
			for _, r := range conn.Readers() {
				if r.Name() != varName {
					continue
				}
				v, hasValue := r.Value()
				if !hasValue {
					return nil, &ipc.Error{Code: ipc.BadResponseFailedRequestHandling}
				}
				key := (qualifier.Qualifier{Var: varName, Connection: connName}).String()
				out[key] = v.Raw()
				found = true
				break
			}
			if !found {
				return nil, &ipc.Error{Code: ipc.BadResponseFailedRequestHandling}
			}
		}
	}
	return out, nil
}

func (h *RequestHandler) handleStart(ctx context.Context) (map[string]interface{}, error) {
	if !h.controlEnabled {
		return nil, &ipc.Error{Code: ipc.BadResponseFailedRequestHandling}
	}
	if h.logger.Status() {
		return map[string]interface{}{}, nil
	}
	if err := h.logger.Start(ctx); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return map[string]interface{}{}, nil
}

func (h *RequestHandler) handleStop() (map[string]interface{}, error) {
	if !h.controlEnabled {
		return nil, &ipc.Error{Code: ipc.BadResponseFailedRequestHandling}
	}
	h.logger.Stop()
	return map[string]interface{}{}, nil
}
