package schema_registry

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// MagicByte is the first byte of every framed message.
	MagicByte byte = 0x0

	// HeaderSize is the length of the frame: magic byte plus 4-byte schema id.
	HeaderSize = 5
)

// PayloadEncoder appends the binary encoding of a value to buf.
// *Schema implements it.
type PayloadEncoder interface {
	AppendBinary(buf []byte, value any) ([]byte, error)
}

// EncodeSchemaID encodes a schema ID in the Confluent wire format
// Format: [magic_byte][schema_id]
//   - magic_byte: 0x0 (1 byte)
//   - schema_id: 4 bytes (big-endian)
//
// schemaID must be within [0, math.MaxUint32]; Encode checks it.
func EncodeSchemaID(schemaID int) []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = MagicByte
	binary.BigEndian.PutUint32(buf[1:], uint32(schemaID)) //nolint:gosec
	return buf
}

// ValidateSchemaID reports ErrInvalidSchemaID for ids the header cannot carry.
func ValidateSchemaID(schemaID int) error {
	if schemaID < 0 || uint64(schemaID) > math.MaxUint32 {
		return fmt.Errorf("%w: %d is outside [0, %d]", ErrInvalidSchemaID, schemaID, uint64(math.MaxUint32))
	}
	return nil
}

// Encode frames value with schemaID, delegating the payload to encoder.
func Encode(value any, schemaID int, encoder PayloadEncoder) ([]byte, error) {
	if err := ValidateSchemaID(schemaID); err != nil {
		return nil, err
	}
	out, err := encoder.AppendBinary(EncodeSchemaID(schemaID), value)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Decode validates the frame and returns the schema id and the offset at
// which the schema-specific payload starts. The offset is always HeaderSize.
func Decode(data []byte) (schemaID int, offset int, err error) {
	if len(data) < HeaderSize {
		return 0, 0, fmt.Errorf("%w: expected at least %d bytes, got %d", ErrMalformedWireMessage, HeaderSize, len(data))
	}
	if data[0] != MagicByte {
		return 0, 0, fmt.Errorf("%w: expected 0x%x, got 0x%x", ErrUnsupportedMagicByte, MagicByte, data[0])
	}
	return int(binary.BigEndian.Uint32(data[1:HeaderSize])), HeaderSize, nil
}

// DecodeSchemaID decodes a schema ID from the Confluent wire format
// Returns the schema ID and the remaining payload (after the 5-byte header)
func DecodeSchemaID(data []byte) (int, []byte, error) {
	schemaID, offset, err := Decode(data)
	if err != nil {
		return 0, nil, err
	}
	return schemaID, data[offset:], nil
}

// IsWireFormat reports whether data starts with a valid frame header.
func IsWireFormat(data []byte) bool {
	return len(data) >= HeaderSize && data[0] == MagicByte
}
