package drisl

import (
	"bytes"
	"math/big"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/dasl-ing/drisl-go/cid"
)

// fieldInfo describes one encoded/decoded struct field.
type fieldInfo struct {
	name      string
	index     []int
	omitEmpty bool
}

var structFieldCache sync.Map // reflect.Type -> []fieldInfo

// structFields returns the encode/decode-relevant fields of t, honoring
// "drisl", then "cbor", then "json" struct tags (first one present on a
// field wins), a "-" tag to skip a field, and an ",omitempty" option.
func structFields(t reflect.Type) []fieldInfo {
	if cached, ok := structFieldCache.Load(t); ok {
		return cached.([]fieldInfo)
	}
	var fields []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, ok := f.Tag.Lookup("drisl")
		if !ok {
			tag, ok = f.Tag.Lookup("cbor")
		}
		if !ok {
			tag, ok = f.Tag.Lookup("json")
		}
		name := f.Name
		omitEmpty := false
		if ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitEmpty = true
				}
			}
		}
		fields = append(fields, fieldInfo{name: name, index: f.Index, omitEmpty: omitEmpty})
	}
	structFieldCache.Store(t, fields)
	return fields
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	default:
		return false
	}
}

var (
	bigIntType = reflect.TypeOf(big.Int{})
	cidType    = reflect.TypeOf(cid.Cid{})
	valueType  = reflect.TypeOf(Value{})
)

// appendReflect encodes an arbitrary Go value using reflection. It is the
// fallback path used by Marshal/Encoder.Encode for anything that isn't a
// *Value, a cid.Cid, or a Marshaler.
func appendReflect(buf []byte, st *encState, v reflect.Value) ([]byte, error) {
	if !v.IsValid() {
		return append(buf, majorSimple<<5|simpleNull), nil
	}

	if v.Type() == bigIntType {
		return appendBigInt(buf, v.Addr().Interface().(*big.Int))
	}
	if v.CanInterface() {
		if m, ok := v.Interface().(Marshaler); ok {
			return appendAny(buf, st, m)
		}
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return append(buf, majorSimple<<5|simpleNull), nil
		}
		return appendReflect(buf, st, v.Elem())
	case reflect.Interface:
		if v.IsNil() {
			return append(buf, majorSimple<<5|simpleNull), nil
		}
		return appendAny(buf, st, v.Interface())
	case reflect.Bool:
		if v.Bool() {
			return append(buf, majorSimple<<5|simpleTrue), nil
		}
		return append(buf, majorSimple<<5|simpleFalse), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return appendBigInt(buf, big.NewInt(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return appendBigInt(buf, new(big.Int).SetUint64(v.Uint()))
	case reflect.Float32, reflect.Float64:
		return appendFloat(buf, v.Float())
	case reflect.String:
		return appendText(buf, v.String())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return append(buf, majorSimple<<5|simpleNull), nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return appendBytes(buf, b), nil
		}
		if err := st.enter(); err != nil {
			return nil, err
		}
		defer st.leave()
		buf = appendHead(buf, majorArray, uint64(v.Len()))
		var err error
		for i := 0; i < v.Len(); i++ {
			buf, err = appendReflect(buf, st, v.Index(i))
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case reflect.Map:
		if v.IsNil() {
			return append(buf, majorSimple<<5|simpleNull), nil
		}
		if v.Type().Key().Kind() != reflect.String {
			return nil, encErr(ErrEncodeCustom, "map keys must be strings")
		}
		if err := st.enter(); err != nil {
			return nil, err
		}
		defer st.leave()
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		type kv struct {
			key string
			val reflect.Value
		}
		pairs := make([]kv, len(keys))
		for i, k := range keys {
			pairs[i] = kv{key: k.String(), val: v.MapIndex(k)}
		}
		return appendMapEntriesReflect(buf, st, len(pairs), func(yield func(key string, val reflect.Value) bool) {
			for _, p := range pairs {
				if !yield(p.key, p.val) {
					return
				}
			}
		})
	case reflect.Struct:
		if v.Type() == cidType {
			return appendCid(buf, v.Interface().(cid.Cid)), nil
		}
		if v.Type() == valueType {
			vv := v.Interface().(Value)
			return appendValue(buf, st, &vv)
		}
		if err := st.enter(); err != nil {
			return nil, err
		}
		defer st.leave()
		fields := structFields(v.Type())
		type kv struct {
			key string
			val reflect.Value
		}
		pairs := make([]kv, 0, len(fields))
		for _, f := range fields {
			fv := v.FieldByIndex(f.index)
			if f.omitEmpty && isEmptyValue(fv) {
				continue
			}
			pairs = append(pairs, kv{key: f.name, val: fv})
		}
		return appendMapEntriesReflect(buf, st, len(pairs), func(yield func(key string, val reflect.Value) bool) {
			for _, p := range pairs {
				if !yield(p.key, p.val) {
					return
				}
			}
		})
	default:
		return nil, encErr(ErrEncodeCustom, "unsupported type "+v.Type().String())
	}
}

func appendMapEntriesReflect(buf []byte, st *encState, n int, rangeFn func(yield func(key string, val reflect.Value) bool)) ([]byte, error) {
	type entry struct {
		key []byte
		val []byte
	}
	entries := make([]entry, 0, n)
	var outerErr error
	rangeFn(func(key string, val reflect.Value) bool {
		kb, err := appendText(nil, key)
		if err != nil {
			outerErr = err
			return false
		}
		vb, err := appendReflect(nil, st, val)
		if err != nil {
			outerErr = err
			return false
		}
		entries = append(entries, entry{key: kb, val: vb})
		return true
	})
	if outerErr != nil {
		return nil, outerErr
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})
	buf = appendHead(buf, majorMap, uint64(len(entries)))
	for _, e := range entries {
		buf = append(buf, e.key...)
		buf = append(buf, e.val...)
	}
	return buf, nil
}
