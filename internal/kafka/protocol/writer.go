package protocol

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Writer appends primitive wire types to a growing buffer
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with room for size bytes
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// Bytes returns everything written so far
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Int8(v int8) {
	w.buf = append(w.buf, byte(v))
}

func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) Bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

func (w *Writer) Int16(v int16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(v))
}

func (w *Writer) Int32(v int32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
}

func (w *Writer) Int64(v int64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
}

func (w *Writer) UUID(id uuid.UUID) {
	w.buf = append(w.buf, id[:]...)
}

func (w *Writer) Uvarint(v uint32) {
	w.buf = binary.AppendUvarint(w.buf, uint64(v))
}

// Raw appends b without a length prefix
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// length writes a length prefix; n == -1 writes null
func (w *Writer) length(conv Convention, legacyWidth int, n int) {
	switch {
	case conv == Compact:
		w.Uvarint(uint32(n + 1))
	case legacyWidth == 2:
		w.Int16(int16(n))
	default:
		w.Int32(int32(n))
	}
}

// ArrayLength writes an element count; -1 writes a null array
func (w *Writer) ArrayLength(conv Convention, n int) {
	w.length(conv, 4, n)
}

func (w *Writer) String(conv Convention, s string) {
	w.length(conv, 2, len(s))
	w.buf = append(w.buf, s...)
}

// NullableString writes s, or the null marker when s is nil
func (w *Writer) NullableString(conv Convention, s *string) {
	if s == nil {
		w.length(conv, 2, -1)
		return
	}
	w.String(conv, *s)
}

// ByteString writes b with a length prefix; a nil slice is written as null
func (w *Writer) ByteString(conv Convention, b []byte) {
	if b == nil {
		w.length(conv, 4, -1)
		return
	}
	w.length(conv, 4, len(b))
	w.buf = append(w.buf, b...)
}

// TagBuffer writes an empty tagged-field section
func (w *Writer) TagBuffer() {
	w.buf = append(w.buf, 0)
}

// WriteArray writes items with a length prefix, encoding each with fn
func WriteArray[T any](w *Writer, conv Convention, items []T, fn func(*Writer, T)) {
	w.ArrayLength(conv, len(items))
	for _, item := range items {
		fn(w, item)
	}
}

// WriteNullableArray is WriteArray with a nil slice written as null
func WriteNullableArray[T any](w *Writer, conv Convention, items []T, fn func(*Writer, T)) {
	if items == nil {
		w.ArrayLength(conv, -1)
		return
	}
	WriteArray(w, conv, items, fn)
}

func writeInt32(w *Writer, v int32) {
	w.Int32(v)
}

func readInt32(r *Reader) (int32, error) {
	return r.Int32()
}
