package schema_registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawEncoder struct{ err error }

func (r rawEncoder) AppendBinary(buf []byte, value any) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return append(buf, value.([]byte)...), nil
}

func TestEncodeSchemaID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x2a}, EncodeSchemaID(42))
	assert.Equal(t, []byte{0x00, 0x01, 0x02, 0x03, 0x04}, EncodeSchemaID(0x01020304))
	assert.Equal(t, []byte{0x00, 0xff, 0xff, 0xff, 0xff}, EncodeSchemaID(0xffffffff))
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()
	data, err := Encode([]byte("hello"), 456, rawEncoder{})
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0, 0, 0, 0x01, 0xc8}, "hello"...), data)

	id, offset, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 456, id)
	assert.Equal(t, HeaderSize, offset)
	assert.Equal(t, "hello", string(data[offset:]))

	id, payload, err := DecodeSchemaID(data)
	require.NoError(t, err)
	assert.Equal(t, 456, id)
	assert.Equal(t, "hello", string(payload))
}

func TestEncode_PayloadError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	_, err := Encode([]byte("x"), 1, rawEncoder{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestEncode_SchemaIDOutOfRange(t *testing.T) {
	t.Parallel()
	for _, id := range []int{-1, 1 << 32} {
		_, err := Encode([]byte("x"), id, rawEncoder{})
		assert.ErrorIs(t, err, ErrInvalidSchemaID, "id %d", id)
	}

	data, err := Encode([]byte("x"), 0xffffffff, rawEncoder{})
	require.NoError(t, err)
	id, _, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 0xffffffff, id)
}

func TestDecode_HeaderOnly(t *testing.T) {
	t.Parallel()
	id, offset, err := Decode(EncodeSchemaID(7))
	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.Equal(t, 5, offset)
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()
	for _, data := range [][]byte{nil, {}, {0}, {0, 0, 0}, {0, 0, 0, 1}} {
		_, _, err := Decode(data)
		assert.ErrorIs(t, err, ErrMalformedWireMessage, "len %d", len(data))
	}
	_, _, err := DecodeSchemaID([]byte{0, 0, 0})
	assert.ErrorIs(t, err, ErrMalformedWireMessage)
}

func TestDecode_UnsupportedMagicByte(t *testing.T) {
	t.Parallel()
	_, _, err := Decode([]byte{0x01, 0, 0, 0, 1, 0xaa})
	assert.ErrorIs(t, err, ErrUnsupportedMagicByte)
	assert.NotErrorIs(t, err, ErrMalformedWireMessage)
}

func TestIsWireFormat(t *testing.T) {
	t.Parallel()
	assert.True(t, IsWireFormat(EncodeSchemaID(1)))
	assert.False(t, IsWireFormat([]byte("plain-key")))
	assert.False(t, IsWireFormat([]byte{0, 0}))
}
