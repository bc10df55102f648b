package protocol

import (
	"encoding/binary"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Convention selects how a length-prefixed field is encoded. The protocol
// mixes both across message versions, so every string, bytes and array call
// names its convention explicitly.
type Convention int8

const (
	// Legacy prefixes arrays and bytes with a signed int32 and strings with a
	// signed int16. -1 encodes null.
	Legacy Convention = iota
	// Compact prefixes with an unsigned varint holding length+1. 0 encodes null.
	Compact
)

func (c Convention) String() string {
	if c == Compact {
		return "compact"
	}
	return "legacy"
}

// ConventionFor returns Compact when flexible is set
func ConventionFor(flexible bool) Convention {
	if flexible {
		return Compact
	}
	return Legacy
}

// Reader decodes primitive wire types from a byte slice
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a reader positioned at the start of buf
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Offset returns the number of bytes consumed so far
func (r *Reader) Offset() int {
	return r.off
}

func (r *Reader) next(n int, field string) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, errors.Wrapf(ErrTruncated, "reading %s at offset %d: need %d bytes, have %d",
			field, r.off, n, r.Remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Int8 reads a signed byte
func (r *Reader) Int8() (int8, error) {
	b, err := r.next(1, "int8")
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

// Uint8 reads an unsigned byte
func (r *Reader) Uint8() (uint8, error) {
	b, err := r.next(1, "uint8")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Bool reads a single byte; any non-zero value is true
func (r *Reader) Bool() (bool, error) {
	b, err := r.Uint8()
	return b != 0, err
}

// Int16 reads a big-endian int16
func (r *Reader) Int16() (int16, error) {
	b, err := r.next(2, "int16")
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b)), nil
}

// Int32 reads a big-endian int32
func (r *Reader) Int32() (int32, error) {
	b, err := r.next(4, "int32")
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// Int64 reads a big-endian int64
func (r *Reader) Int64() (int64, error) {
	b, err := r.next(8, "int64")
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// UUID reads 16 raw bytes
func (r *Reader) UUID() (uuid.UUID, error) {
	var id uuid.UUID
	b, err := r.next(16, "uuid")
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// Uvarint reads an unsigned LEB128 varint of at most five bytes
func (r *Reader) Uvarint() (uint32, error) {
	var x uint32
	var s uint
	for i := 0; i < binary.MaxVarintLen32; i++ {
		b, err := r.Uint8()
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			if i == binary.MaxVarintLen32-1 && b > 0x0f {
				break
			}
			return x | uint32(b)<<s, nil
		}
		x |= uint32(b&0x7f) << s
		s += 7
	}
	return 0, errors.Wrapf(ErrMalformed, "varint overflows 32 bits at offset %d", r.off)
}

// length reads a length prefix in the given convention. legacyWidth is 2 for
// strings and 4 for arrays and bytes. A null value is returned as -1.
func (r *Reader) length(conv Convention, legacyWidth int, field string) (int, error) {
	var n int
	if conv == Compact {
		v, err := r.Uvarint()
		if err != nil {
			return 0, err
		}
		n = int(v) - 1
	} else if legacyWidth == 2 {
		v, err := r.Int16()
		if err != nil {
			return 0, err
		}
		n = int(v)
	} else {
		v, err := r.Int32()
		if err != nil {
			return 0, err
		}
		n = int(v)
	}
	if n < -1 {
		return 0, errors.Wrapf(ErrMalformed, "%s %s length %d at offset %d", conv, field, n, r.off)
	}
	return n, nil
}

// ArrayLength reads an array element count. -1 means a null array.
// The count is checked against the remaining input, since every element
// occupies at least one byte.
func (r *Reader) ArrayLength(conv Convention) (int, error) {
	n, err := r.length(conv, 4, "array")
	if err != nil {
		return 0, err
	}
	if n > r.Remaining() {
		return 0, errors.Wrapf(ErrTruncated, "%s array of %d elements at offset %d exceeds %d remaining bytes",
			conv, n, r.off, r.Remaining())
	}
	return n, nil
}

// NullableString reads a string that may be null. Invalid UTF-8 is replaced
// rather than rejected.
func (r *Reader) NullableString(conv Convention) (*string, error) {
	n, err := r.length(conv, 2, "string")
	if err != nil || n < 0 {
		return nil, err
	}
	b, err := r.next(n, "string")
	if err != nil {
		return nil, err
	}
	s := strings.ToValidUTF8(string(b), "�")
	return &s, nil
}

// String reads a string, mapping null to ""
func (r *Reader) String(conv Convention) (string, error) {
	s, err := r.NullableString(conv)
	if err != nil || s == nil {
		return "", err
	}
	return *s, nil
}

// Bytes reads a byte string. A null value is returned as nil.
func (r *Reader) Bytes(conv Convention) ([]byte, error) {
	n, err := r.length(conv, 4, "bytes")
	if err != nil || n < 0 {
		return nil, err
	}
	b, err := r.next(n, "bytes")
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// TagBuffer consumes the tagged-field section of a flexible struct. Only the
// empty section is supported.
func (r *Reader) TagBuffer() error {
	n, err := r.Uvarint()
	if err != nil {
		return err
	}
	if n != 0 {
		return errors.Wrapf(ErrUnsupportedFeature, "%d tagged fields at offset %d", n, r.off)
	}
	return nil
}

// ReadArray decodes an array whose elements are read by fn. A null or empty
// array yields nil without invoking fn.
func ReadArray[T any](r *Reader, conv Convention, fn func(*Reader) (T, error)) ([]T, error) {
	n, err := r.ArrayLength(conv)
	if err != nil || n <= 0 {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		v, err := fn(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
