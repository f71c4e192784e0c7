package schema_registry

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/linkedin/goavro/v2"
)

// SchemaTypeAvro is the registry's schema type for Avro. The registry omits
// schemaType for Avro schemas, so an empty type means Avro too.
const SchemaTypeAvro = "AVRO"

// Schema is a registered schema with its compiled Avro codec. Instances are
// owned by SchemaCache and never mutated after construction.
type Schema struct {
	ID         int
	Subject    string
	Version    int
	Type       string
	Definition string

	codec *goavro.Codec
	root  *avroType
	name  string
}

// NewSchema compiles meta.Schema with goavro.
func NewSchema(meta Metadata) (*Schema, error) {
	schemaType := strings.ToUpper(meta.Type)
	if schemaType == "" {
		schemaType = SchemaTypeAvro
	}
	if schemaType != SchemaTypeAvro {
		return nil, fmt.Errorf("%w: %s (schema id %d)", ErrUnsupportedSchemaType, meta.Type, meta.ID)
	}

	codec, err := goavro.NewCodec(meta.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: schema id %d: %w", ErrInvalidSchema, meta.ID, err)
	}

	root, err := parseAvroType(meta.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: schema id %d: %w", ErrInvalidSchema, meta.ID, err)
	}

	return &Schema{
		ID:         meta.ID,
		Subject:    meta.Subject,
		Version:    meta.Version,
		Type:       schemaType,
		Definition: meta.Schema,
		codec:      codec,
		root:       root,
		name:       root.name,
	}, nil
}

// Name returns the fully-qualified name of a named schema (record, enum or
// fixed), or "" for primitives and anonymous types.
func (s *Schema) Name() string {
	return s.name
}

// AppendBinary appends the Avro binary encoding of value to buf.
//
// Maps, primitives and structs are walked against the schema: struct fields
// match record fields by their `json` names, nil pointers select the null
// branch of a union and []byte is written as raw bytes. WithRecordName tags
// are stripped first.
func (s *Schema) AppendBinary(buf []byte, value any) ([]byte, error) {
	native, err := s.toNative(value)
	if err != nil {
		return nil, err
	}
	out, err := s.codec.BinaryFromNative(buf, native)
	if err != nil {
		return nil, fmt.Errorf("%w: schema id %d: %w", ErrInvalidValue, s.ID, err)
	}
	return out, nil
}

func (s *Schema) toNative(value any) (any, error) {
	if s.root == nil {
		return nil, fmt.Errorf("%w: schema id %d is not compiled", ErrInvalidSchema, s.ID)
	}
	native, err := toNative(s.root, reflect.ValueOf(unwrapValue(value)))
	if err != nil {
		return nil, fmt.Errorf("%w: schema id %d: %w", ErrInvalidValue, s.ID, err)
	}
	return native, nil
}

// DecodeBinary decodes an Avro payload (the bytes after the frame header)
// into goavro native form: map[string]interface{} for records, Go
// primitives otherwise.
func (s *Schema) DecodeBinary(payload []byte) (any, error) {
	native, _, err := s.codec.NativeFromBinary(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload with schema id %d: %w", s.ID, err)
	}
	return native, nil
}

// DecodeInto decodes payload and stores it in target. *interface{} and
// *map[string]interface{} targets receive the native form; anything else is
// filled field by field, the reverse of AppendBinary.
func (s *Schema) DecodeInto(payload []byte, target any) error {
	native, err := s.DecodeBinary(payload)
	if err != nil {
		return err
	}

	switch t := target.(type) {
	case *interface{}:
		*t = native
		return nil
	case *map[string]interface{}:
		m, ok := native.(map[string]interface{})
		if !ok {
			return fmt.Errorf("schema id %d does not decode to a record, got %T", s.ID, native)
		}
		*t = m
		return nil
	}

	dst := reflect.ValueOf(target)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", target)
	}
	if s.root == nil {
		return fmt.Errorf("%w: schema id %d is not compiled", ErrInvalidSchema, s.ID)
	}
	if err := fromNative(s.root, native, dst.Elem()); err != nil {
		return fmt.Errorf("failed to decode schema id %d into %T: %w", s.ID, target, err)
	}
	return nil
}

// SchemaProvider is implemented by values that carry their own Avro schema
// definition, making them eligible for auto-registration.
type SchemaProvider interface {
	AvroSchema() string
}

// DeriveSchema returns a schema definition for value's runtime shape: the
// SchemaProvider definition if present, otherwise the Avro primitive that
// matches a Go primitive. Other values have no derivable schema.
func DeriveSchema(value any) (string, bool) {
	for _, v := range []any{value, unwrapValue(value)} {
		if provider, ok := v.(SchemaProvider); ok {
			if def := provider.AvroSchema(); def != "" {
				return def, true
			}
		}
	}

	switch unwrapValue(value).(type) {
	case string:
		return `"string"`, true
	case bool:
		return `"boolean"`, true
	case int32:
		return `"int"`, true
	case int, int64:
		return `"long"`, true
	case float32:
		return `"float"`, true
	case float64:
		return `"double"`, true
	case []byte:
		return `"bytes"`, true
	}
	return "", false
}
