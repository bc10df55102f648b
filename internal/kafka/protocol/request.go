package protocol

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// RequestHeader is the common prefix of every request.
//
// Header v1 (non-flexible APIs): api_key, api_version, correlation_id,
// client_id as an int16-prefixed nullable string.
// Header v2 (flexible APIs): the same fields followed by a tag buffer. The
// client_id keeps its int16 prefix in both layouts.
type RequestHeader struct {
	APIKey        APIKey
	APIVersion    int16
	CorrelationID int32
	ClientID      *string
}

// Flexible reports whether the header carries a trailing tag buffer
func (h RequestHeader) Flexible() bool {
	return IsFlexible(h.APIKey, h.APIVersion)
}

// DecodeRequestHeader reads the header fields in wire order
func DecodeRequestHeader(r *Reader) (RequestHeader, error) {
	var h RequestHeader
	key, err := r.Int16()
	if err != nil {
		return h, err
	}
	h.APIKey = APIKey(key)
	if h.APIVersion, err = r.Int16(); err != nil {
		return h, err
	}
	if h.CorrelationID, err = r.Int32(); err != nil {
		return h, err
	}
	if h.ClientID, err = r.NullableString(Legacy); err != nil {
		return h, err
	}
	if h.Flexible() {
		err = r.TagBuffer()
	}
	return h, err
}

// Encode writes the header in the layout selected by its API and version
func (h RequestHeader) Encode(w *Writer) {
	w.Int16(int16(h.APIKey))
	w.Int16(h.APIVersion)
	w.Int32(h.CorrelationID)
	w.NullableString(Legacy, h.ClientID)
	if h.Flexible() {
		w.TagBuffer()
	}
}

// RequestBody is implemented by the request schemas this server understands:
// *ApiVersionsRequest, *FetchRequest and *DescribeTopicPartitionsRequest.
type RequestBody interface {
	APIKey() APIKey
	Decode(r *Reader, version int16) error
}

// Request is a decoded request frame
type Request struct {
	Header RequestHeader
	Body   RequestBody
}

// newRequestBody maps an api key to an empty body of the matching schema
func newRequestBody(key APIKey) (RequestBody, error) {
	switch key {
	case ApiVersionsKey:
		return &ApiVersionsRequest{}, nil
	case FetchKey:
		return &FetchRequest{}, nil
	case DescribeTopicPartitionsKey:
		return &DescribeTopicPartitionsRequest{}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedAPIKey, "api key %d", int16(key))
	}
}

// DecodeRequest decodes a frame payload (without its length prefix).
//
// When the api key is unknown the returned request still carries the decoded
// header, so the caller can answer with an error code, together with an error
// matching ErrUnsupportedAPIKey.
func DecodeRequest(payload []byte) (*Request, error) {
	r := NewReader(payload)
	header, err := DecodeRequestHeader(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding request header")
	}
	req := &Request{Header: header}

	body, err := newRequestBody(header.APIKey)
	if err != nil {
		return req, err
	}

	version := header.APIVersion
	if d, ok := LookupAPI(header.APIKey); ok {
		version = d.Clamp(version)
	}
	if err := body.Decode(r, version); err != nil {
		return nil, errors.Wrapf(err, "decoding %s v%d request", header.APIKey, header.APIVersion)
	}
	req.Body = body
	return req, nil
}

// ReadFrame reads one length-prefixed frame. maxSize bounds the declared
// length; zero disables the check.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	length, err := ReadFrameLength(r, maxSize)
	if err != nil {
		return nil, err
	}
	return ReadFrameBody(r, length)
}

// ReadFrameLength reads the 4-byte big-endian length prefix of a frame
func ReadFrameLength(r io.Reader, maxSize int) (int, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, err
	}
	length := binary.BigEndian.Uint32(prefix[:])
	if maxSize > 0 && uint64(length) > uint64(maxSize) {
		return 0, errors.Wrapf(ErrFrameTooLarge, "frame of %d bytes exceeds %d", length, maxSize)
	}
	return int(length), nil
}

// ReadFrameBody reads exactly length payload bytes. A short read is returned
// as io.ErrUnexpectedEOF.
func ReadFrameBody(r io.Reader, length int) ([]byte, error) {
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
