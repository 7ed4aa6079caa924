package ipc

// StatusCode is the one-byte status enumeration of the Jidl wire protocol.
// Raw values are partitioned: 00xxxxxx request, 01xxxxxx good response,
// 10xxxxxx bad response, 11xxxxxx reserved.
type StatusCode uint8

const (
	Request                        StatusCode = 0
	RequestWithoutMethod            StatusCode = 1
	RequestWithoutPayload           StatusCode = 2
	RequestWithoutMethodAndPayload  StatusCode = 3

	GoodResponse           StatusCode = 64
	GoodResponseWithPayload StatusCode = 65

	BadResponse                      StatusCode = 128
	BadResponseUnrecognizedProtocol  StatusCode = 129
	BadResponseIncompleteData        StatusCode = 130
	BadResponseInvalidStatusCode     StatusCode = 131
	BadResponseInvalidBody           StatusCode = 132
	BadResponseBufferOverflow        StatusCode = 133
	BadResponseFailedRequestHandling StatusCode = 134
)

var textMessages = map[StatusCode]string{
	Request:                         "request",
	RequestWithoutMethod:             "request without method",
	RequestWithoutPayload:            "request without payload",
	RequestWithoutMethodAndPayload:   "request without method and payload",
	GoodResponse:                     "OK",
	GoodResponseWithPayload:          "payload",
	BadResponse:                      "error",
	BadResponseUnrecognizedProtocol:  "unrecognized protocol",
	BadResponseIncompleteData:        "incomplete data",
	BadResponseInvalidStatusCode:     "invalid status code",
	BadResponseInvalidBody:           "invalid body",
	BadResponseBufferOverflow:        "buffer overflow",
	BadResponseFailedRequestHandling: "failed request handling",
}

// TextMessage returns the human-readable message associated with sc.
func (sc StatusCode) TextMessage() string {
	return textMessages[sc]
}

// FromRawValue looks up a StatusCode by its raw byte value. ok is false if
// the value does not name a recognized status code.
func FromRawValue(v uint8) (StatusCode, bool) {
	sc := StatusCode(v)
	_, ok := textMessages[sc]
	return sc, ok
}

// IsBad reports whether sc is a bad-response code (10xxxxxx, 128-191).
func (sc StatusCode) IsBad() bool { return sc > 127 && sc < 192 }

// IsGood reports whether sc is a good-response code (01xxxxxx, 64-127).
func (sc StatusCode) IsGood() bool { return sc > 63 && sc < 128 }

// IsRequest reports whether sc is a request code (00xxxxxx, 0-63).
func (sc StatusCode) IsRequest() bool { return sc < 64 }
