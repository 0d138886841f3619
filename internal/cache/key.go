package cache

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// KeySeparator joins the operation name and the serialized arguments.
const KeySeparator = "::"

const maxDepth = 32

var timeType = reflect.TypeOf(time.Time{})

// IDKey is the entity key used by reads and writes addressing one record.
func IDKey(id uint) string {
	return "id" + KeySeparator + strconv.FormatUint(uint64(id), 10)
}

// Fingerprint builds a deterministic key from the operation name and the
// values of its arguments. Arguments with equal values always produce equal
// keys: pointers are followed, map keys are sorted and struct fields are
// written by name.
func Fingerprint(operation string, args ...any) string {
	if len(args) == 0 {
		return operation
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, operation)
	for _, arg := range args {
		var sb strings.Builder
		writeValue(&sb, reflect.ValueOf(arg), 0)
		parts = append(parts, sb.String())
	}

	return strings.Join(parts, KeySeparator)
}

func writeValue(sb *strings.Builder, rv reflect.Value, depth int) {
	if !rv.IsValid() {
		sb.WriteString("nil")
		return
	}
	if depth > maxDepth {
		sb.WriteString("...")
		return
	}

	if rv.Type() == timeType && rv.CanInterface() {
		sb.WriteString(rv.Interface().(time.Time).UTC().Format(time.RFC3339Nano))
		return
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			sb.WriteString("nil")
			return
		}
		writeValue(sb, rv.Elem(), depth+1)
	case reflect.String:
		sb.WriteString(strconv.Quote(rv.String()))
	case reflect.Bool:
		sb.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sb.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		sb.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		sb.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, 64))
	case reflect.Complex64, reflect.Complex128:
		sb.WriteString(strconv.FormatComplex(rv.Complex(), 'g', -1, 128))
	case reflect.Slice:
		if rv.IsNil() {
			sb.WriteString("nil")
			return
		}
		writeSequence(sb, rv, depth)
	case reflect.Array:
		writeSequence(sb, rv, depth)
	case reflect.Map:
		if rv.IsNil() {
			sb.WriteString("nil")
			return
		}
		writeMap(sb, rv, depth)
	case reflect.Struct:
		writeStruct(sb, rv, depth)
	default:
		// funcs, channels and unsafe pointers carry no comparable value
		sb.WriteString(rv.Type().String())
	}
}

func writeSequence(sb *strings.Builder, rv reflect.Value, depth int) {
	sb.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeValue(sb, rv.Index(i), depth+1)
	}
	sb.WriteByte(']')
}

func writeMap(sb *strings.Builder, rv reflect.Value, depth int) {
	type entry struct{ key, value string }

	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		var k, v strings.Builder
		writeValue(&k, iter.Key(), depth+1)
		writeValue(&v, iter.Value(), depth+1)
		entries = append(entries, entry{key: k.String(), value: v.String()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	sb.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(e.key)
		sb.WriteByte('=')
		sb.WriteString(e.value)
	}
	sb.WriteByte('}')
}

func writeStruct(sb *strings.Builder, rv reflect.Value, depth int) {
	rt := rv.Type()
	sb.WriteString(rt.String())
	sb.WriteByte('{')
	for i := 0; i < rv.NumField(); i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(rt.Field(i).Name)
		sb.WriteByte('=')
		writeValue(sb, rv.Field(i), depth+1)
	}
	sb.WriteByte('}')
}
