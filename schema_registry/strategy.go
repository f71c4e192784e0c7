package schema_registry

import (
	"fmt"
	"reflect"
	"strings"
)

// SubjectNameStrategy selects the registry subject a record's schema is
// looked up or registered under.
type SubjectNameStrategy int

const (
	// TopicNameStrategy derives "<topic>-key" or "<topic>-value". It is the
	// zero value and the default.
	TopicNameStrategy SubjectNameStrategy = iota

	// TopicRecordNameStrategy derives "<topic>-<record name>", allowing
	// several record types per topic.
	TopicRecordNameStrategy

	// RecordNameStrategy derives "<record name>", sharing one subject for a
	// record type across every topic.
	RecordNameStrategy
)

var strategyNames = map[SubjectNameStrategy]string{
	TopicNameStrategy:       "TopicNameStrategy",
	TopicRecordNameStrategy: "TopicRecordNameStrategy",
	RecordNameStrategy:      "RecordNameStrategy",
}

func (s SubjectNameStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SubjectNameStrategy(%d)", int(s))
}

// ParseSubjectNameStrategy matches name case-insensitively against the
// supported strategies. An empty name selects TopicNameStrategy.
//
// Example:
//
//	s, err := schema_registry.ParseSubjectNameStrategy("topicrecordnamestrategy")
//	// s == TopicRecordNameStrategy
func ParseSubjectNameStrategy(name string) (SubjectNameStrategy, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return TopicNameStrategy, nil
	}
	for _, s := range []SubjectNameStrategy{TopicNameStrategy, TopicRecordNameStrategy, RecordNameStrategy} {
		if strings.EqualFold(trimmed, s.String()) {
			return s, nil
		}
	}
	return TopicNameStrategy, fmt.Errorf("%w %q: must be one of TopicNameStrategy, TopicRecordNameStrategy, RecordNameStrategy",
		ErrInvalidStrategyName, name)
}

// Subject returns the subject for value published to topic. It never fails:
// the record strategies fall back to the bare topic when no record name can
// be derived, and unknown strategy values behave as TopicNameStrategy.
func (s SubjectNameStrategy) Subject(topic string, value any, isKey bool) string {
	switch s {
	case TopicRecordNameStrategy:
		if name, ok := RecordName(value); ok {
			return topic + "-" + name
		}
		return topic
	case RecordNameStrategy:
		if name, ok := RecordName(value); ok {
			return name
		}
		return topic
	default:
		if isKey {
			return topic + "-key"
		}
		return topic + "-value"
	}
}

// RecordNamer is implemented by values that declare their record name.
//
//	type Order struct{ ID string }
//
//	func (Order) SchemaName() string { return "com.acme.Order" }
type RecordNamer interface {
	SchemaName() string
}

// namedValue attaches a record name to a value that has none of its own.
type namedValue struct {
	name  string
	value any
}

func (n namedValue) SchemaName() string { return n.name }

// WithRecordName tags value with an explicit record name. Serializers unwrap
// the tag before encoding.
//
// Example:
//
//	payload := schema_registry.WithRecordName("Book", map[string]interface{}{"title": "Dune"})
//	subject := schema_registry.TopicRecordNameStrategy.Subject("library", payload, false)
//	// subject == "library-Book"
func WithRecordName(name string, value any) any {
	return namedValue{name: name, value: value}
}

// unwrapValue strips WithRecordName tags.
func unwrapValue(value any) any {
	for {
		nv, ok := value.(namedValue)
		if !ok {
			return value
		}
		value = nv.value
	}
}

// RecordName derives the record name of value. An explicit RecordNamer tag
// wins. Otherwise a named Go type supplies its type name; generic containers
// (maps, slices, arrays, interfaces, unnamed types) and nil have none.
func RecordName(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	if namer, ok := value.(RecordNamer); ok {
		if name := namer.SchemaName(); name != "" {
			return name, true
		}
	}

	t := reflect.TypeOf(unwrapValue(value))
	if t == nil {
		return "", false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Interface:
		return "", false
	}
	if t.Name() == "" {
		return "", false
	}
	return t.Name(), true
}
