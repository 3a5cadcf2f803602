// Package hexjson encodes arbitrary values as JSON, rendering byte
// sequences as short hex fingerprints instead of base64 or numeric arrays.
//
// The fingerprint rule exists for display and debugging: a byte-valued
// field anywhere in a structure becomes "0x" followed by the uppercase hex
// of its first four bytes. The encoding is one-way and lossy; it is not a
// general serialization format and cannot be round-tripped.
package hexjson

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// FingerprintLen is the number of leading bytes included in a fingerprint.
const FingerprintLen = 4

// Fingerprint renders the first FingerprintLen bytes of b as an
// "0x"-prefixed uppercase hex string. Shorter inputs use every byte they
// have; Fingerprint(nil) is "0x".
func Fingerprint(b []byte) string {
	if len(b) > FingerprintLen {
		b = b[:FingerprintLen]
	}
	var sb strings.Builder
	sb.Grow(2 + 2*len(b))
	sb.WriteString("0x")
	const hexDigits = "0123456789ABCDEF"
	for _, c := range b {
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0F])
	}
	return sb.String()
}

// Marshal encodes v as JSON with the byte-sequence fingerprint rule applied
// at every nesting depth. All other JSON-representable values (maps,
// slices, structs, strings, numbers, booleans, nil) use standard structural
// encoding. Key ordering of maps is whatever encoding/json produces;
// callers must not depend on it.
func Marshal(v any) ([]byte, error) {
	t, err := transform(reflect.ValueOf(v), 0)
	if err != nil {
		return nil, err
	}
	return json.Marshal(t)
}

// maxDepth bounds recursion so cyclic values fail instead of overflowing.
const maxDepth = 256

func transform(rv reflect.Value, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("hexjson: value nests deeper than %d levels (cycle?)", maxDepth)
	}
	if !rv.IsValid() {
		return nil, nil
	}

	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return transform(rv.Elem(), depth+1)

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Fingerprint(rv.Bytes()), nil
		}
		return transformSeq(rv, depth)

	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			for i := range b {
				b[i] = byte(rv.Index(i).Uint())
			}
			return Fingerprint(b), nil
		}
		return transformSeq(rv, depth)

	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, err := mapKey(iter.Key())
			if err != nil {
				return nil, err
			}
			val, err := transform(iter.Value(), depth+1)
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil

	case reflect.Struct:
		return transformStruct(rv, depth)

	default:
		// Scalars and anything else encoding/json can already handle.
		return rv.Interface(), nil
	}
}

func transformSeq(rv reflect.Value, depth int) (any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		val, err := transform(rv.Index(i), depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

// transformStruct walks exported fields honoring the json tag's name,
// "-" and omitempty options, applying the fingerprint rule to each value.
// Byte fields must be handled here rather than left to encoding/json,
// which would render them as base64.
func transformStruct(rv reflect.Value, depth int) (any, error) {
	pre := make(map[string]any)
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonFieldName(f)
		if skip {
			continue
		}
		fv := rv.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		val, err := transform(fv, depth+1)
		if err != nil {
			return nil, err
		}
		pre[name] = val
	}
	return pre, nil
}

func jsonFieldName(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = f.Name
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func mapKey(rv reflect.Value) (string, error) {
	if rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%d", rv.Uint()), nil
	default:
		return "", fmt.Errorf("hexjson: unsupported map key type %s", rv.Type())
	}
}
