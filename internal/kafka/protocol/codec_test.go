package protocol

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFixedWidthBigEndian(t *testing.T) {
	w := NewWriter(32)
	w.Int8(-2)
	w.Int16(0x0102)
	w.Int32(-1)
	w.Int64(0x0102030405060708)
	w.Bool(true)

	require.Equal(t, []byte{
		0xfe,
		0x01, 0x02,
		0xff, 0xff, 0xff, 0xff,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x01,
	}, w.Bytes())

	r := NewReader(w.Bytes())
	i8, err := r.Int8()
	require.NoError(t, err)
	require.Equal(t, int8(-2), i8)
	i16, err := r.Int16()
	require.NoError(t, err)
	require.Equal(t, int16(0x0102), i16)
	i32, err := r.Int32()
	require.NoError(t, err)
	require.Equal(t, int32(-1), i32)
	i64, err := r.Int64()
	require.NoError(t, err)
	require.Equal(t, int64(0x0102030405060708), i64)
	b, err := r.Bool()
	require.NoError(t, err)
	require.True(t, b)
	require.Zero(t, r.Remaining())
}

func TestTruncatedReads(t *testing.T) {
	cases := map[string]func(*Reader) error{
		"int16": func(r *Reader) error { _, err := r.Int16(); return err },
		"int32": func(r *Reader) error { _, err := r.Int32(); return err },
		"int64": func(r *Reader) error { _, err := r.Int64(); return err },
		"uuid":  func(r *Reader) error { _, err := r.UUID(); return err },
	}
	for name, read := range cases {
		t.Run(name, func(t *testing.T) {
			err := read(NewReader([]byte{0x01}))
			require.ErrorIs(t, err, ErrTruncated)
			require.True(t, IsDecodeError(err))
		})
	}

	_, err := NewReader(nil).Uint8()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestUUIDCopiedVerbatim(t *testing.T) {
	id := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	w := NewWriter(16)
	w.UUID(id)
	require.Equal(t, id[:], w.Bytes())

	got, err := NewReader(w.Bytes()).UUID()
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestCompactArrayLengthLaw(t *testing.T) {
	for _, n := range []int{0, 1, 2, 126, 127, 128, 300} {
		w := NewWriter(8)
		w.ArrayLength(Compact, n)

		r := NewReader(w.Bytes())
		prefix, err := r.Uvarint()
		require.NoError(t, err)
		require.Equal(t, uint32(n+1), prefix, "prefix for %d elements", n)

		// pad so the remaining-bytes check admits n elements
		data := append(w.Bytes(), make([]byte, n)...)
		got, err := NewReader(data).ArrayLength(Compact)
		require.NoError(t, err)
		require.Equal(t, n, got)
	}

	w := NewWriter(2)
	w.ArrayLength(Compact, 127)
	require.Equal(t, []byte{0x80, 0x01}, w.Bytes(), "128 needs two varint bytes")
}

func TestCompactArrayZeroPrefixReadsNothing(t *testing.T) {
	called := false
	items, err := ReadArray(NewReader([]byte{0x00}), Compact, func(r *Reader) (int32, error) {
		called = true
		return r.Int32()
	})
	require.NoError(t, err)
	require.Nil(t, items)
	require.False(t, called)

	items, err = ReadArray(NewReader([]byte{0x01}), Compact, readInt32)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestArrayConventions(t *testing.T) {
	values := []int32{7, -1}

	legacy := NewWriter(16)
	WriteArray(legacy, Legacy, values, writeInt32)
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x07,
		0xff, 0xff, 0xff, 0xff,
	}, legacy.Bytes())

	compact := NewWriter(16)
	WriteArray(compact, Compact, values, writeInt32)
	require.Equal(t, []byte{
		0x03,
		0x00, 0x00, 0x00, 0x07,
		0xff, 0xff, 0xff, 0xff,
	}, compact.Bytes())

	for conv, data := range map[Convention][]byte{Legacy: legacy.Bytes(), Compact: compact.Bytes()} {
		got, err := ReadArray(NewReader(data), conv, readInt32)
		require.NoError(t, err, conv.String())
		require.Equal(t, values, got, conv.String())
	}
}

func TestNullArrays(t *testing.T) {
	legacy := NewWriter(4)
	WriteNullableArray[int32](legacy, Legacy, nil, writeInt32)
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, legacy.Bytes())

	compact := NewWriter(1)
	WriteNullableArray[int32](compact, Compact, nil, writeInt32)
	require.Equal(t, []byte{0x00}, compact.Bytes())

	n, err := NewReader(legacy.Bytes()).ArrayLength(Legacy)
	require.NoError(t, err)
	require.Equal(t, -1, n)
}

func TestArrayLengthBeyondInput(t *testing.T) {
	_, err := NewReader([]byte{0x0a, 0x00}).ArrayLength(Compact)
	require.ErrorIs(t, err, ErrTruncated)

	_, err = NewReader([]byte{0xff, 0xff, 0xff, 0xfe}).ArrayLength(Legacy)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestCompactStringLaw(t *testing.T) {
	for _, s := range []string{"", "a", "foo", string(make([]byte, 200))} {
		w := NewWriter(len(s) + 2)
		w.String(Compact, s)

		r := NewReader(w.Bytes())
		prefix, err := r.Uvarint()
		require.NoError(t, err)
		require.Equal(t, uint32(len(s)+1), prefix)

		got, err := NewReader(w.Bytes()).String(Compact)
		require.NoError(t, err)
		require.Equal(t, s, got)
	}

	w := NewWriter(4)
	w.String(Compact, "foo")
	require.Equal(t, []byte{0x04, 'f', 'o', 'o'}, w.Bytes())
}

func TestStringConventions(t *testing.T) {
	legacy := NewWriter(8)
	legacy.String(Legacy, "foo")
	require.Equal(t, []byte{0x00, 0x03, 'f', 'o', 'o'}, legacy.Bytes())

	nulls := NewWriter(3)
	nulls.NullableString(Legacy, nil)
	nulls.NullableString(Compact, nil)
	require.Equal(t, []byte{0xff, 0xff, 0x00}, nulls.Bytes())

	r := NewReader(nulls.Bytes())
	s, err := r.NullableString(Legacy)
	require.NoError(t, err)
	require.Nil(t, s)
	s, err = r.NullableString(Compact)
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestStringInvalidUTF8IsSubstituted(t *testing.T) {
	got, err := NewReader([]byte{0x03, 'a', 0xff}).String(Compact)
	require.NoError(t, err)
	require.Equal(t, "a�", got)
}

func TestStringTruncated(t *testing.T) {
	_, err := NewReader([]byte{0x05, 'a', 'b'}).String(Compact)
	require.ErrorIs(t, err, ErrTruncated)

	_, err = NewReader([]byte{0x00, 0x05, 'a'}).String(Legacy)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestByteStringConventions(t *testing.T) {
	w := NewWriter(16)
	w.ByteString(Compact, []byte{})
	w.ByteString(Compact, nil)
	w.ByteString(Legacy, []byte{0xab})
	require.Equal(t, []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x01, 0xab}, w.Bytes())

	r := NewReader(w.Bytes())
	b, err := r.Bytes(Compact)
	require.NoError(t, err)
	require.NotNil(t, b)
	require.Empty(t, b)
	b, err = r.Bytes(Compact)
	require.NoError(t, err)
	require.Nil(t, b)
	b, err = r.Bytes(Legacy)
	require.NoError(t, err)
	require.Equal(t, []byte{0xab}, b)
}

func TestTagBuffer(t *testing.T) {
	w := NewWriter(1)
	w.TagBuffer()
	require.Equal(t, []byte{0x00}, w.Bytes())
	require.NoError(t, NewReader(w.Bytes()).TagBuffer())

	err := NewReader([]byte{0x01, 0x00, 0x00}).TagBuffer()
	require.ErrorIs(t, err, ErrUnsupportedFeature)

	require.ErrorIs(t, NewReader(nil).TagBuffer(), ErrTruncated)
}

func TestUvarintOverflow(t *testing.T) {
	_, err := NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x7f}).Uvarint()
	require.ErrorIs(t, err, ErrMalformed)

	v, err := NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x0f}).Uvarint()
	require.NoError(t, err)
	require.Equal(t, uint32(0xffffffff), v)
}
