package protocol

import (
	"encoding/binary"
	"io"
)

// ResponseHeader precedes every response body. Header v1 (Flexible) adds a
// tag buffer after the correlation id.
type ResponseHeader struct {
	CorrelationID int32
	Flexible      bool
}

func (h ResponseHeader) Encode(w *Writer) {
	w.Int32(h.CorrelationID)
	if h.Flexible {
		w.TagBuffer()
	}
}

// ResponseBody is implemented by the response schemas. Encode writes the
// layout of the given version.
type ResponseBody interface {
	APIKey() APIKey
	Encode(w *Writer, version int16)
}

// Response pairs a body with its header and the version it is encoded at
type Response struct {
	Header  ResponseHeader
	Version int16
	Body    ResponseBody
}

// NewResponse builds a response to header, encoding body at version. The
// correlation id is copied from the request. ApiVersions always answers with
// header v0 so that clients can parse it before version negotiation.
func NewResponse(header RequestHeader, version int16, body ResponseBody) *Response {
	flexible := header.Flexible() && header.APIKey != ApiVersionsKey
	return &Response{
		Header:  ResponseHeader{CorrelationID: header.CorrelationID, Flexible: flexible},
		Version: version,
		Body:    body,
	}
}

// AppendFrame appends the length-prefixed frame to dst. The length is
// back-filled after the header and body are serialized.
func (resp *Response) AppendFrame(dst []byte) []byte {
	start := len(dst)
	w := &Writer{buf: append(dst, 0, 0, 0, 0)}
	resp.Header.Encode(w)
	resp.Body.Encode(w, resp.Version)
	frame := w.Bytes()
	binary.BigEndian.PutUint32(frame[start:start+4], uint32(len(frame)-start-4))
	return frame
}

// WriteTo writes the framed response in a single call
func (resp *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(resp.AppendFrame(nil))
	return int64(n), err
}

// ErrorResponse is a bare error_code body, used to answer requests whose
// schema is unknown
type ErrorResponse struct {
	Key       APIKey
	ErrorCode int16
}

func (e *ErrorResponse) APIKey() APIKey { return e.Key }

func (e *ErrorResponse) Encode(w *Writer, _ int16) {
	w.Int16(e.ErrorCode)
}
