// Package ipc implements the Jidl wire protocol: a length-prefixed,
// JSON-bodied frame with a one-byte status code, as consumed by the TLS
// server and client in package server.
package ipc

import (
	"encoding/json"
	"fmt"
	"io"

	"jidl/logging"
)

// wireProtocol is the logging.DebugTX/DebugRX protocol tag for every frame
// this codec moves, regardless of which connection kind carries it.
const wireProtocol = "ipc"

// Magic is the four-byte frame identifier.
var Magic = [4]byte{'j', 'i', 'd', 'l'}

// MaxSize is the largest JSON body a frame may carry.
const MaxSize = 64 * 1024

// Frame is one decoded "magic | status | length | body" packet.
type Frame struct {
	Status StatusCode
	Body   map[string]interface{}
}

// Error is the decode/encode failure taxonomy of §4.5, carrying the
// StatusCode a caller would write back for this failure.
type Error struct {
	Code StatusCode
}

func (e *Error) Error() string { return e.Code.TextMessage() }

func protoErr(code StatusCode) error { return &Error{Code: code} }

// ReadFrame reads one frame from r. Decode failures are returned as *Error
// carrying the appropriate bad-response StatusCode, per the taxonomy: magic
// mismatch (or a stream that ends before the four magic bytes) ->
// UnrecognizedProtocol, short read after the magic -> IncompleteData,
// unknown status byte -> InvalidStatusCode, non-JSON body -> InvalidBody.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, protoErr(BadResponseUnrecognizedProtocol)
	}
	if hdr != Magic {
		return Frame{}, protoErr(BadResponseUnrecognizedProtocol)
	}

	var statusByte [1]byte
	if _, err := io.ReadFull(r, statusByte[:]); err != nil {
		return Frame{}, protoErr(BadResponseIncompleteData)
	}
	status, ok := FromRawValue(statusByte[0])
	if !ok {
		return Frame{}, protoErr(BadResponseInvalidStatusCode)
	}

	var lenBytes [2]byte
	if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
		return Frame{}, protoErr(BadResponseIncompleteData)
	}
	bodyLen := int(lenBytes[0]) | int(lenBytes[1])<<8

	buf := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Frame{}, protoErr(BadResponseIncompleteData)
	}

	raw := make([]byte, 0, 4+1+2+len(buf))
	raw = append(raw, hdr[:]...)
	raw = append(raw, statusByte[0])
	raw = append(raw, lenBytes[:]...)
	raw = append(raw, buf...)
	logging.DebugRX(wireProtocol, raw)

	body := make(map[string]interface{})
	if bodyLen > 0 {
		if err := json.Unmarshal(buf, &body); err != nil {
			return Frame{}, protoErr(BadResponseInvalidBody)
		}
	}

	return Frame{Status: status, Body: body}, nil
}

// WriteFrame writes one frame to w and flushes (the caller's writer is
// expected to be unbuffered or flushed by the caller; this mirrors the
// original's explicit flush-after-write by writing the whole frame in one
// call). Fails with BufferOverflow if the encoded body exceeds MaxSize.
func WriteFrame(w io.Writer, status StatusCode, body map[string]interface{}) error {
	if body == nil {
		body = map[string]interface{}{}
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ipc: marshal body: %w", err)
	}
	if len(encoded) > MaxSize {
		return protoErr(BadResponseBufferOverflow)
	}

	out := make([]byte, 0, 4+1+2+len(encoded))
	out = append(out, Magic[:]...)
	out = append(out, byte(status))
	out = append(out, byte(len(encoded)&0xff), byte((len(encoded)>>8)&0xff))
	out = append(out, encoded...)

	logging.DebugTX(wireProtocol, out)

	_, err = w.Write(out)
	return err
}

// ReadRequest reads one frame and extracts a request's method/payload,
// rejecting anything that is not a request status code.
func ReadRequest(r io.Reader) (method string, payload map[string]interface{}, err error) {
	f, err := ReadFrame(r)
	if err != nil {
		return "", nil, err
	}
	if !f.Status.IsRequest() {
		return "", nil, protoErr(BadResponseInvalidStatusCode)
	}
	if m, ok := f.Body["method"].(string); ok {
		method = m
	}
	if p, ok := f.Body["payload"].(map[string]interface{}); ok {
		payload = p
	}
	return method, payload, nil
}

// WriteRequest writes a request frame. The request sub-code (0-3) reflects
// which of method/payload are absent, per the original's rc accumulator:
// +1 for a missing method, +2 for a missing payload.
func WriteRequest(w io.Writer, method string, payload map[string]interface{}) error {
	rc := 0
	body := map[string]interface{}{}
	if method != "" {
		body["method"] = method
	} else {
		rc += 1
	}
	if payload != nil {
		body["payload"] = payload
	} else {
		rc += 2
	}
	return WriteFrame(w, StatusCode(rc), body)
}

// ReadResponse reads one response frame and returns its status and payload
// (for good responses) or its full body (for bad responses).
func ReadResponse(r io.Reader) (StatusCode, map[string]interface{}, error) {
	f, err := ReadFrame(r)
	if err != nil {
		return 0, nil, err
	}
	switch {
	case f.Status.IsGood():
		payload, _ := f.Body["payload"].(map[string]interface{})
		return f.Status, payload, nil
	case f.Status.IsBad():
		return f.Status, f.Body, nil
	default:
		return 0, nil, protoErr(BadResponseInvalidStatusCode)
	}
}

// WriteErrorResponse writes a bad response whose body is {"message": <text>}.
// A nil code falls back to the generic BadResponse, matching the original's
// "something went bad and we do not know more" branch.
func WriteErrorResponse(w io.Writer, code *StatusCode) error {
	if code == nil {
		return WriteFrame(w, BadResponse, map[string]interface{}{"message": "error"})
	}
	return WriteFrame(w, *code, map[string]interface{}{"message": code.TextMessage()})
}

// WritePayloadResponse writes a good response carrying payload, or a plain
// GoodResponse with no payload if payload is nil.
func WritePayloadResponse(w io.Writer, payload map[string]interface{}) error {
	if payload == nil {
		return WriteFrame(w, GoodResponse, map[string]interface{}{})
	}
	return WriteFrame(w, GoodResponseWithPayload, map[string]interface{}{"payload": payload})
}
