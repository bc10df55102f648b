package protocol

import "github.com/pkg/errors"

// Decode failures. Callers match them with errors.Is; the codec wraps them
// with the offset and field that failed.
var (
	// ErrTruncated means fewer bytes remained than the field required
	ErrTruncated = errors.New("truncated input")
	// ErrMalformed means a length prefix held an impossible value
	ErrMalformed = errors.New("malformed length")
	// ErrUnsupportedFeature is returned for wire features this server does not implement,
	// such as populated tagged fields
	ErrUnsupportedFeature = errors.New("unsupported feature")
	// ErrUnsupportedAPIKey is returned when the request header names an API the dispatcher does not know
	ErrUnsupportedAPIKey = errors.New("unsupported api key")
	// ErrFrameTooLarge is returned when a frame's declared length exceeds the configured maximum
	ErrFrameTooLarge = errors.New("frame too large")
)

// IsDecodeError reports whether err came from decoding a frame rather than from the transport
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrUnsupportedFeature) ||
		errors.Is(err, ErrUnsupportedAPIKey) ||
		errors.Is(err, ErrFrameTooLarge)
}
