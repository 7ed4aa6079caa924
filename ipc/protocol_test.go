package ipc

import (
	"bytes"
	"testing"
)

func TestWriteFrameThenReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := map[string]interface{}{"payload": map[string]interface{}{"a": float64(1)}}
	if err := WriteFrame(&buf, GoodResponseWithPayload, body); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	encoded := buf.Bytes()
	wantPrefix := []byte{'j', 'i', 'd', 'l', byte(GoodResponseWithPayload)}
	if !bytes.Equal(encoded[:5], wantPrefix) {
		t.Fatalf("frame prefix = % X, want % X", encoded[:5], wantPrefix)
	}

	f, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.Status != GoodResponseWithPayload {
		t.Errorf("Status = %v, want %v", f.Status, GoodResponseWithPayload)
	}
	payload, ok := f.Body["payload"].(map[string]interface{})
	if !ok || payload["a"] != float64(1) {
		t.Errorf("Body = %+v, want payload.a == 1", f.Body)
	}
}

func TestReadFrameInvalidMagic(t *testing.T) {
	in := bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0})
	_, err := ReadFrame(in)
	var pe *Error
	if err == nil {
		t.Fatal("expected error for invalid magic")
	}
	if !asError(err, &pe) || pe.Code != BadResponseUnrecognizedProtocol {
		t.Errorf("err = %v, want UnrecognizedProtocol", err)
	}
}

func TestReadFrameShortBody(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	buf.WriteByte(byte(GoodResponse))
	buf.WriteByte(10) // claims 10 bytes of body
	buf.WriteByte(0)
	buf.WriteString("ab") // only 2 actually present

	_, err := ReadFrame(&buf)
	var pe *Error
	if !asError(err, &pe) || pe.Code != BadResponseIncompleteData {
		t.Errorf("err = %v, want IncompleteData", err)
	}
}

func TestReadFrameInvalidStatusByte(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	buf.WriteByte(200) // reserved range, unrecognized
	buf.WriteByte(0)
	buf.WriteByte(0)

	_, err := ReadFrame(&buf)
	var pe *Error
	if !asError(err, &pe) || pe.Code != BadResponseInvalidStatusCode {
		t.Errorf("err = %v, want InvalidStatusCode", err)
	}
}

func TestReadFrameInvalidBody(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	buf.WriteByte(byte(GoodResponse))
	body := []byte("not json")
	buf.WriteByte(byte(len(body)))
	buf.WriteByte(0)
	buf.Write(body)

	_, err := ReadFrame(&buf)
	var pe *Error
	if !asError(err, &pe) || pe.Code != BadResponseInvalidBody {
		t.Errorf("err = %v, want InvalidBody", err)
	}
}

func TestWriteFrameBufferOverflow(t *testing.T) {
	big := make([]byte, MaxSize+1)
	for i := range big {
		big[i] = 'x'
	}
	var buf bytes.Buffer
	err := WriteFrame(&buf, GoodResponseWithPayload, map[string]interface{}{"payload": string(big)})
	var pe *Error
	if !asError(err, &pe) || pe.Code != BadResponseBufferOverflow {
		t.Errorf("err = %v, want BufferOverflow", err)
	}
}

func TestStatusCodePartitioning(t *testing.T) {
	for raw := 0; raw < 256; raw++ {
		sc, ok := FromRawValue(uint8(raw))
		if !ok {
			continue
		}
		n := 0
		if sc.IsRequest() {
			n++
		}
		if sc.IsGood() {
			n++
		}
		if sc.IsBad() {
			n++
		}
		if n != 1 {
			t.Errorf("status %v (%d) matched %d of {request,good,bad}, want exactly 1", sc, raw, n)
		}
	}
}

func TestWriteRequestSubCodes(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		payload map[string]interface{}
		want    StatusCode
	}{
		{"neither", "", nil, RequestWithoutMethodAndPayload},
		{"method only", "values", nil, RequestWithoutPayload},
		{"payload only", "", map[string]interface{}{"a": 1}, RequestWithoutMethod},
		{"both", "values", map[string]interface{}{"a": 1}, Request},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteRequest(&buf, tt.method, tt.payload); err != nil {
				t.Fatalf("WriteRequest: %v", err)
			}
			f, err := ReadFrame(&buf)
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if f.Status != tt.want {
				t.Errorf("Status = %v, want %v", f.Status, tt.want)
			}
		})
	}
}

// asError is a small helper standing in for errors.As to keep the test file
// free of an extra import alias collision with this package's own Error type.
func asError(err error, target **Error) bool {
	pe, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = pe
	return true
}
