package schema_registry

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/linkedin/goavro/v2"
)

// avroType is the parsed shape of a schema definition. It guides the
// conversion between Go values and goavro's native form.
type avroType struct {
	kind    string
	name    string // full name of records, enums and fixed
	logical string
	fields  []avroField
	items   *avroType // array items, map values
	members []*avroType
}

type avroField struct {
	name string
	typ  *avroType
}

var primitiveKinds = map[string]bool{
	"null": true, "boolean": true, "int": true, "long": true,
	"float": true, "double": true, "bytes": true, "string": true,
}

// Logical types goavro compiles into their own codec, and so names union
// members after.
var namedLogicalTypes = map[string]bool{
	"long.timestamp-millis":   true,
	"long.timestamp-micros":   true,
	"int.time-millis":         true,
	"long.time-micros":        true,
	"int.date":                true,
	"bytes.decimal":           true,
	"string.validated-string": true,
}

// unionName is the key goavro expects for t inside a union.
func (t *avroType) unionName() string {
	if t.name != "" {
		return t.name
	}
	if t.logical != "" && namedLogicalTypes[t.kind+"."+t.logical] {
		return t.kind + "." + t.logical
	}
	return t.kind
}

func parseAvroType(definition string) (*avroType, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(definition), &raw); err != nil {
		return nil, err
	}
	return newTypeParser().parse(raw, "")
}

type typeParser struct {
	named map[string]*avroType
}

func newTypeParser() *typeParser {
	return &typeParser{named: make(map[string]*avroType)}
}

func (p *typeParser) parse(raw interface{}, namespace string) (*avroType, error) {
	switch v := raw.(type) {
	case string:
		return p.reference(v, namespace)
	case []interface{}:
		union := &avroType{kind: "union"}
		for _, m := range v {
			member, err := p.parse(m, namespace)
			if err != nil {
				return nil, err
			}
			union.members = append(union.members, member)
		}
		return union, nil
	case map[string]interface{}:
		return p.parseObject(v, namespace)
	}
	return nil, fmt.Errorf("unexpected schema element %T", raw)
}

func (p *typeParser) reference(ref, namespace string) (*avroType, error) {
	if primitiveKinds[ref] {
		return &avroType{kind: ref}, nil
	}
	if !strings.Contains(ref, ".") && namespace != "" {
		if t, ok := p.named[namespace+"."+ref]; ok {
			return t, nil
		}
	}
	if t, ok := p.named[ref]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown type %q", ref)
}

func (p *typeParser) parseObject(obj map[string]interface{}, namespace string) (*avroType, error) {
	kind, ok := obj["type"].(string)
	if !ok {
		// {"type": {...}} or {"type": [...]}
		return p.parse(obj["type"], namespace)
	}
	logical, _ := obj["logicalType"].(string)

	switch kind {
	case "record", "error", "enum", "fixed":
		full, ns := fullName(obj, namespace)
		t := &avroType{kind: kind, name: full, logical: logical}
		if kind == "error" {
			t.kind = "record"
		}
		p.named[full] = t
		if t.kind != "record" {
			return t, nil
		}
		fields, _ := obj["fields"].([]interface{})
		for _, f := range fields {
			fieldObj, ok := f.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("record %s: field must be an object", full)
			}
			name, _ := fieldObj["name"].(string)
			ft, err := p.parse(fieldObj["type"], ns)
			if err != nil {
				return nil, fmt.Errorf("record %s field %q: %w", full, name, err)
			}
			t.fields = append(t.fields, avroField{name: name, typ: ft})
		}
		return t, nil
	case "array":
		items, err := p.parse(obj["items"], namespace)
		if err != nil {
			return nil, err
		}
		return &avroType{kind: kind, items: items}, nil
	case "map":
		values, err := p.parse(obj["values"], namespace)
		if err != nil {
			return nil, err
		}
		return &avroType{kind: kind, items: values}, nil
	}

	t, err := p.reference(kind, namespace)
	if err != nil {
		return nil, err
	}
	if logical != "" && primitiveKinds[kind] {
		t = &avroType{kind: kind, logical: logical}
	}
	return t, nil
}

// fullName returns the full name of a named schema and the namespace its
// children inherit.
func fullName(obj map[string]interface{}, enclosing string) (string, string) {
	name, _ := obj["name"].(string)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name, name[:i]
	}
	ns := enclosing
	if explicit, ok := obj["namespace"].(string); ok {
		ns = explicit
	}
	if ns == "" {
		return name, ""
	}
	return ns + "." + name, ns
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// toNative converts v into the goavro native form of t. Structs become
// records through their `json` field names, pointers and interfaces are
// followed, nil selects the null branch of a union and other union values
// are wrapped with goavro.Union under the first member that accepts them.
func toNative(t *avroType, v reflect.Value) (interface{}, error) {
	v = indirect(v)

	if t.kind == "union" {
		return unionToNative(t, v)
	}
	if !v.IsValid() {
		if t.kind == "null" {
			return nil, nil
		}
		return nil, fmt.Errorf("nil is not a valid %s", t.kind)
	}
	if t.logical != "" && (v.Type() == timeType || v.Type() == durationType) {
		return v.Interface(), nil
	}

	switch t.kind {
	case "null":
		return nil, fmt.Errorf("%s is not null", v.Type())
	case "boolean":
		if v.Kind() == reflect.Bool {
			return v.Bool(), nil
		}
	case "int":
		if n, ok := integer(v); ok {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("%d overflows int", n)
			}
			return int32(n), nil
		}
	case "long":
		if n, ok := integer(v); ok {
			return n, nil
		}
	case "float":
		if f, ok := float(v); ok {
			return float32(f), nil
		}
	case "double":
		if f, ok := float(v); ok {
			return f, nil
		}
	case "string", "enum":
		if v.Kind() == reflect.String {
			return v.String(), nil
		}
	case "bytes", "fixed":
		if b, ok := byteSlice(v); ok {
			return b, nil
		}
		if t.logical == "decimal" {
			return v.Interface(), nil
		}
	case "array":
		return arrayToNative(t, v)
	case "map":
		return mapToNative(t, v)
	case "record":
		return recordToNative(t, v)
	}
	return nil, fmt.Errorf("cannot encode %s as %s", v.Type(), t.kind)
}

func unionToNative(t *avroType, v reflect.Value) (interface{}, error) {
	if !v.IsValid() {
		for _, m := range t.members {
			if m.kind == "null" {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("nil is not a member of the union")
	}

	// Values already in goavro's union form pass through.
	if wrapped, ok := v.Interface().(map[string]interface{}); ok && len(wrapped) == 1 {
		for _, m := range t.members {
			if _, ok := wrapped[m.unionName()]; ok {
				return wrapped, nil
			}
		}
	}

	var lastErr error
	for _, m := range t.members {
		if m.kind == "null" {
			continue
		}
		native, err := toNative(m, v)
		if err == nil {
			return goavro.Union(m.unionName(), native), nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no union member accepts %s: %w", v.Type(), lastErr)
}

func arrayToNative(t *avroType, v reflect.Value) (interface{}, error) {
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("cannot encode %s as array", v.Type())
	}
	out := make([]interface{}, v.Len())
	for i := range out {
		item, err := toNative(t.items, v.Index(i))
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = item
	}
	return out, nil
}

func mapToNative(t *avroType, v reflect.Value) (interface{}, error) {
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("cannot encode %s as map", v.Type())
	}
	out := make(map[string]interface{}, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		item, err := toNative(t.items, iter.Value())
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out[key] = item
	}
	return out, nil
}

// recordToNative copies the fields the record declares. Fields the value
// lacks are left out so goavro applies their defaults.
func recordToNative(t *avroType, v reflect.Value) (interface{}, error) {
	out := make(map[string]interface{}, len(t.fields))

	switch {
	case v.Kind() == reflect.Struct:
		index := structFields(v.Type())
		for _, f := range t.fields {
			path, ok := index[f.name]
			if !ok {
				continue
			}
			fv, ok := fieldByPath(v, path)
			if !ok {
				continue
			}
			native, err := toNative(f.typ, fv)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.name, err)
			}
			out[f.name] = native
		}
	case v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String:
		for _, f := range t.fields {
			fv := v.MapIndex(reflect.ValueOf(f.name).Convert(v.Type().Key()))
			if !fv.IsValid() {
				continue
			}
			native, err := toNative(f.typ, fv)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.name, err)
			}
			out[f.name] = native
		}
	default:
		return nil, fmt.Errorf("cannot encode %s as record %s", v.Type(), t.name)
	}
	return out, nil
}

// fromNative stores the goavro native value of t in dst, the reverse of
// toNative.
func fromNative(t *avroType, native interface{}, dst reflect.Value) error {
	if t.kind == "union" {
		return unionFromNative(t, native, dst)
	}

	if native == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	switch dst.Kind() {
	case reflect.Pointer:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return fromNative(t, native, dst.Elem())
	case reflect.Interface:
		if dst.NumMethod() == 0 {
			dst.Set(reflect.ValueOf(native))
			return nil
		}
	}

	nv := reflect.ValueOf(native)
	switch t.kind {
	case "record":
		return recordFromNative(t, native, dst)
	case "array":
		return arrayFromNative(t, native, dst)
	case "map":
		return mapFromNative(t, native, dst)
	}

	if nv.Type().AssignableTo(dst.Type()) {
		dst.Set(nv)
		return nil
	}

	switch dst.Kind() {
	case reflect.Bool:
		if b, ok := native.(bool); ok {
			dst.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := integer(nv); ok && !dst.OverflowInt(n) {
			dst.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := integer(nv); ok && n >= 0 && !dst.OverflowUint(uint64(n)) {
			dst.SetUint(uint64(n))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := float(nv); ok {
			dst.SetFloat(f)
			return nil
		}
	case reflect.String:
		switch s := native.(type) {
		case string:
			dst.SetString(s)
			return nil
		case []byte:
			dst.SetString(string(s))
			return nil
		}
	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 {
			switch b := native.(type) {
			case []byte:
				dst.SetBytes(append([]byte(nil), b...))
				return nil
			case string:
				dst.SetBytes([]byte(b))
				return nil
			}
		}
	case reflect.Array:
		if b, ok := native.([]byte); ok && dst.Type().Elem().Kind() == reflect.Uint8 && len(b) == dst.Len() {
			reflect.Copy(dst, reflect.ValueOf(b))
			return nil
		}
	}
	return fmt.Errorf("cannot decode %s %T into %s", t.kind, native, dst.Type())
}

func unionFromNative(t *avroType, native interface{}, dst reflect.Value) error {
	if native == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	wrapped, ok := native.(map[string]interface{})
	if !ok || len(wrapped) != 1 {
		return fmt.Errorf("cannot decode union from %T", native)
	}
	for _, m := range t.members {
		if value, ok := wrapped[m.unionName()]; ok {
			return fromNative(m, value, dst)
		}
	}
	return fmt.Errorf("union value names no known member")
}

func recordFromNative(t *avroType, native interface{}, dst reflect.Value) error {
	record, ok := native.(map[string]interface{})
	if !ok {
		return fmt.Errorf("cannot decode record %s from %T", t.name, native)
	}

	switch {
	case dst.Kind() == reflect.Struct:
		index := structFields(dst.Type())
		for _, f := range t.fields {
			path, ok := index[f.name]
			if !ok {
				continue
			}
			value, ok := record[f.name]
			if !ok {
				continue
			}
			if err := fromNative(f.typ, value, allocFieldByPath(dst, path)); err != nil {
				return fmt.Errorf("field %q: %w", f.name, err)
			}
		}
		return nil
	case dst.Kind() == reflect.Map && dst.Type().Key().Kind() == reflect.String:
		if dst.IsNil() {
			dst.Set(reflect.MakeMapWithSize(dst.Type(), len(record)))
		}
		for _, f := range t.fields {
			value, ok := record[f.name]
			if !ok {
				continue
			}
			elem := reflect.New(dst.Type().Elem()).Elem()
			if err := fromNative(f.typ, value, elem); err != nil {
				return fmt.Errorf("field %q: %w", f.name, err)
			}
			dst.SetMapIndex(reflect.ValueOf(f.name).Convert(dst.Type().Key()), elem)
		}
		return nil
	}
	return fmt.Errorf("cannot decode record %s into %s", t.name, dst.Type())
}

func arrayFromNative(t *avroType, native interface{}, dst reflect.Value) error {
	items, ok := native.([]interface{})
	if !ok {
		return fmt.Errorf("cannot decode array from %T", native)
	}
	switch dst.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			if err := fromNative(t.items, item, out.Index(i)); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		dst.Set(out)
		return nil
	case reflect.Array:
		if len(items) != dst.Len() {
			return fmt.Errorf("cannot decode %d items into %s", len(items), dst.Type())
		}
		for i, item := range items {
			if err := fromNative(t.items, item, dst.Index(i)); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	}
	return fmt.Errorf("cannot decode array into %s", dst.Type())
}

func mapFromNative(t *avroType, native interface{}, dst reflect.Value) error {
	values, ok := native.(map[string]interface{})
	if !ok {
		return fmt.Errorf("cannot decode map from %T", native)
	}
	if dst.Kind() != reflect.Map || dst.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("cannot decode map into %s", dst.Type())
	}
	out := reflect.MakeMapWithSize(dst.Type(), len(values))
	for key, value := range values {
		elem := reflect.New(dst.Type().Elem()).Elem()
		if err := fromNative(t.items, value, elem); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		out.SetMapIndex(reflect.ValueOf(key).Convert(dst.Type().Key()), elem)
	}
	dst.Set(out)
	return nil
}

// indirect follows pointers and interfaces. A nil one yields the zero Value.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func integer(v reflect.Value) (int64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if v.Uint() > math.MaxInt64 {
			return 0, false
		}
		return int64(v.Uint()), true
	}
	return 0, false
}

func float(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	if n, ok := integer(v); ok {
		return float64(n), true
	}
	return 0, false
}

func byteSlice(v reflect.Value) ([]byte, bool) {
	switch {
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8:
		return v.Bytes(), true
	case v.Kind() == reflect.Array && v.Type().Elem().Kind() == reflect.Uint8:
		b := make([]byte, v.Len())
		reflect.Copy(reflect.ValueOf(b), v)
		return b, true
	}
	return nil, false
}

var fieldIndexCache sync.Map // reflect.Type -> map[string][]int

// structFields maps the `json` name of every exported field of t, including
// those promoted from embedded structs, to its index path.
func structFields(t reflect.Type) map[string][]int {
	if cached, ok := fieldIndexCache.Load(t); ok {
		return cached.(map[string][]int)
	}
	index := make(map[string][]int)
	collectFields(t, nil, index)
	actual, _ := fieldIndexCache.LoadOrStore(t, index)
	return actual.(map[string][]int)
}

func collectFields(t reflect.Type, prefix []int, index map[string][]int) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		path := append(append([]int(nil), prefix...), i)

		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if f.Anonymous && name == "" && ft.Kind() == reflect.Struct {
			collectFields(ft, path, index)
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if _, taken := index[name]; !taken || len(index[name]) > len(path) {
			index[name] = path
		}
	}
}

// fieldByPath reads a field, reporting false when an embedded pointer on
// the way is nil.
func fieldByPath(v reflect.Value, path []int) (reflect.Value, bool) {
	for i, idx := range path {
		if i > 0 {
			if v.Kind() == reflect.Pointer {
				if v.IsNil() {
					return reflect.Value{}, false
				}
				v = v.Elem()
			}
		}
		v = v.Field(idx)
	}
	return v, true
}

// allocFieldByPath returns a settable field, allocating nil embedded
// pointers on the way.
func allocFieldByPath(v reflect.Value, path []int) reflect.Value {
	for i, idx := range path {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(idx)
	}
	return v
}
