package schema_registry

import (
	"context"
	"fmt"
)

// Serializer is the interface for encoding data
type Serializer interface {
	Serialize(data interface{}) ([]byte, error)
}

// Deserializer is the interface for decoding data
type Deserializer interface {
	Deserialize(data []byte, target interface{}) error
}

// Serde encodes values into framed Avro and decodes framed Avro back, using
// the resolver for outbound subjects and the cache for inbound ids.
type Serde struct {
	resolver *Resolver
	cache    *SchemaCache
}

// NewSerde creates a Serde.
func NewSerde(resolver *Resolver, cache *SchemaCache) *Serde {
	return &Serde{resolver: resolver, cache: cache}
}

// Resolver returns the resolver used for outbound values.
func (s *Serde) Resolver() *Resolver {
	return s.resolver
}

// Encode resolves the schema for value on topic and returns the framed
// Avro encoding.
//
// Example:
//
//	data, err := serde.Encode(ctx, "orders", order, false)
func (s *Serde) Encode(ctx context.Context, topic string, value any, isKey bool) ([]byte, error) {
	schema, err := s.resolver.ResolveForPublish(ctx, topic, value, isKey)
	if err != nil {
		return nil, err
	}
	return Encode(value, schema.ID, schema)
}

// Decode reads the frame, resolves the writer schema by id and decodes the
// payload into goavro native form.
func (s *Serde) Decode(ctx context.Context, data []byte) (*Schema, any, error) {
	schema, payload, err := s.writerSchema(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	value, err := schema.DecodeBinary(payload)
	if err != nil {
		return schema, nil, err
	}
	return schema, value, nil
}

// DecodeInto decodes framed data into target. See Schema.DecodeInto.
func (s *Serde) DecodeInto(ctx context.Context, data []byte, target any) (*Schema, error) {
	schema, payload, err := s.writerSchema(ctx, data)
	if err != nil {
		return nil, err
	}
	return schema, schema.DecodeInto(payload, target)
}

func (s *Serde) writerSchema(ctx context.Context, data []byte) (*Schema, []byte, error) {
	schemaID, offset, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}
	schema, err := s.cache.GetByID(ctx, schemaID)
	if err != nil {
		return nil, nil, err
	}
	return schema, data[offset:], nil
}

// TopicSerializer binds a Serde to one topic and role. It implements
// Serializer for callers that do not carry a context.
type TopicSerializer struct {
	serde *Serde
	topic string
	isKey bool
}

// NewTopicSerializer creates a Serializer for the key or value of topic.
func NewTopicSerializer(serde *Serde, topic string, isKey bool) (*TopicSerializer, error) {
	if serde == nil {
		return nil, fmt.Errorf("serde is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	return &TopicSerializer{serde: serde, topic: topic, isKey: isKey}, nil
}

// Serialize encodes data with a background context.
func (t *TopicSerializer) Serialize(data interface{}) ([]byte, error) {
	return t.serde.Encode(context.Background(), t.topic, data, t.isKey)
}

// SerdeDeserializer adapts a Serde to the Deserializer interface.
type SerdeDeserializer struct {
	serde *Serde
}

// NewSerdeDeserializer creates a Deserializer backed by serde.
func NewSerdeDeserializer(serde *Serde) (*SerdeDeserializer, error) {
	if serde == nil {
		return nil, fmt.Errorf("serde is required")
	}
	return &SerdeDeserializer{serde: serde}, nil
}

// Deserialize decodes framed data into target.
func (d *SerdeDeserializer) Deserialize(data []byte, target interface{}) error {
	_, err := d.serde.DecodeInto(context.Background(), data, target)
	return err
}
