package schema_registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors returned by this package. Callers classify with errors.Is.
var (
	// ErrInvalidStrategyName is returned when a subject name strategy name
	// matches none of the supported strategies.
	ErrInvalidStrategyName = errors.New("invalid subject name strategy")

	// ErrMalformedWireMessage is returned when a buffer is shorter than the
	// 5-byte wire header.
	ErrMalformedWireMessage = errors.New("malformed wire message")

	// ErrInvalidSchemaID is returned when a schema id does not fit the
	// unsigned 32-bit field of the wire header.
	ErrInvalidSchemaID = errors.New("invalid schema id")

	// ErrUnsupportedMagicByte is returned when the first byte of a buffer is
	// not MagicByte.
	ErrUnsupportedMagicByte = errors.New("unsupported magic byte")

	// ErrSchemaNotFound is returned when the registry definitively reports
	// that a subject, version or id does not exist. Not retriable.
	ErrSchemaNotFound = errors.New("schema not found")

	// ErrSchemaRequiredButMissing is returned on publish in strict mode when
	// no schema is registered for the resolved subject.
	ErrSchemaRequiredButMissing = errors.New("schema required but missing")

	// ErrRegistryUnavailable marks transient registry failures: 5xx, 408,
	// 429, timeouts, refused connections and callers giving up on an
	// in-flight fetch. Retriable.
	ErrRegistryUnavailable = errors.New("schema registry unavailable")

	// ErrIncompatibleSchema is returned when the registry rejects a schema as
	// incompatible with the subject's history.
	ErrIncompatibleSchema = errors.New("incompatible schema")

	// ErrInvalidSchema is returned when a schema definition cannot be parsed,
	// either locally or by the registry.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("schema registry unauthorized")

	// ErrUnsupportedSchemaType is returned for registry schemas that are not Avro.
	ErrUnsupportedSchemaType = errors.New("unsupported schema type")

	// ErrInvalidValue is returned when a value does not conform to its schema.
	ErrInvalidValue = errors.New("value does not match schema")
)

// Registry error codes from the Confluent REST API.
const (
	errorCodeSubjectNotFound = 40401
	errorCodeVersionNotFound = 40402
	errorCodeSchemaNotFound  = 40403
	errorCodeInvalidSchema   = 42201
)

// RegistryError is a non-2xx response from the schema registry.
// It unwraps to the sentinel matching its status and error code.
type RegistryError struct {
	StatusCode int
	ErrorCode  int    `json:"error_code"`
	Message    string `json:"message"`
}

func (e *RegistryError) Error() string {
	if e.ErrorCode != 0 {
		return fmt.Sprintf("schema registry returned status %d (error code %d): %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("schema registry returned status %d: %s", e.StatusCode, e.Message)
}

func (e *RegistryError) Unwrap() error {
	switch e.ErrorCode {
	case errorCodeSubjectNotFound, errorCodeVersionNotFound, errorCodeSchemaNotFound:
		return ErrSchemaNotFound
	case errorCodeInvalidSchema:
		return ErrInvalidSchema
	}

	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrSchemaNotFound
	case e.StatusCode == http.StatusConflict:
		return ErrIncompatibleSchema
	case e.StatusCode == http.StatusUnprocessableEntity:
		return ErrInvalidSchema
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode >= http.StatusInternalServerError:
		return ErrRegistryUnavailable
	}
	return nil
}

// IsRetryable reports whether err is a transient registry condition that a
// later attempt may not hit.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRegistryUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// unavailable wraps a transport-level failure so it classifies as retriable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrRegistryUnavailable, err)
}
