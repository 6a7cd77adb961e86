package drisl

import (
	"math"
	"reflect"
)

// assign stores the decoded value val into the Go value pointed to by
// target. target must be a non-nil pointer.
func assign(val *Value, target any) error {
	switch t := target.(type) {
	case *Value:
		*t = *val
		return nil
	case Unmarshaler:
		enc, err := Marshal(val)
		if err != nil {
			return err
		}
		if err := t.UnmarshalDRISL(enc); err != nil {
			return &DecodeError{Kind: ErrDecodeCustom, Msg: err.Error()}
		}
		return nil
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return decErr(ErrDecodeCustom, "decode target must be a non-nil pointer")
	}
	return assignReflect(val, rv.Elem())
}

func assignReflect(val *Value, v reflect.Value) error {
	if v.Type() == valueType {
		v.Set(reflect.ValueOf(*val))
		return nil
	}
	if v.Type() == cidType {
		c, ok := val.Cid()
		if !ok {
			return decErr(ErrDecodeCustom, "expected cid")
		}
		v.Set(reflect.ValueOf(c))
		return nil
	}
	if v.Type() == bigIntType {
		i, ok := val.Int()
		if !ok {
			return decErr(ErrDecodeCustom, "expected integer")
		}
		v.Set(reflect.ValueOf(*i))
		return nil
	}
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(Unmarshaler); ok {
			enc, err := Marshal(val)
			if err != nil {
				return err
			}
			if err := u.UnmarshalDRISL(enc); err != nil {
				return &DecodeError{Kind: ErrDecodeCustom, Msg: err.Error()}
			}
			return nil
		}
	}

	switch v.Kind() {
	case reflect.Ptr:
		if val.IsNull() {
			v.Set(reflect.Zero(v.Type()))
			return nil
		}
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return assignReflect(val, v.Elem())
	case reflect.Interface:
		if v.NumMethod() == 0 {
			iv, err := toInterface(val)
			if err != nil {
				return err
			}
			v.Set(reflect.ValueOf(iv))
			return nil
		}
		return decErr(ErrDecodeCustom, "cannot decode into non-empty interface "+v.Type().String())
	case reflect.Bool:
		b, ok := val.Bool()
		if !ok {
			return decErr(ErrDecodeCustom, "expected bool, got "+val.Kind().String())
		}
		v.SetBool(b)
		return nil
	case reflect.String:
		s, ok := val.Text()
		if !ok {
			return decErr(ErrDecodeCustom, "expected text, got "+val.Kind().String())
		}
		v.SetString(s)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := val.Int()
		if !ok {
			return decErr(ErrDecodeCustom, "expected integer, got "+val.Kind().String())
		}
		if !i.IsInt64() {
			return &DecodeError{Kind: ErrCastOverflow, Target: v.Type().String()}
		}
		n := i.Int64()
		if v.OverflowInt(n) {
			return &DecodeError{Kind: ErrCastOverflow, Target: v.Type().String()}
		}
		v.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		i, ok := val.Int()
		if !ok {
			return decErr(ErrDecodeCustom, "expected integer, got "+val.Kind().String())
		}
		if !i.IsUint64() {
			return &DecodeError{Kind: ErrCastOverflow, Target: v.Type().String()}
		}
		n := i.Uint64()
		if v.OverflowUint(n) {
			return &DecodeError{Kind: ErrCastOverflow, Target: v.Type().String()}
		}
		v.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		f, ok := val.Float()
		if !ok {
			return decErr(ErrDecodeCustom, "expected float, got "+val.Kind().String())
		}
		if v.Kind() == reflect.Float32 && !math.IsNaN(f) && (f > math.MaxFloat32 || f < -math.MaxFloat32) {
			return &DecodeError{Kind: ErrCastOverflow, Target: v.Type().String()}
		}
		v.SetFloat(f)
		return nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b, ok := val.Bytes()
			if !ok {
				return decErr(ErrDecodeCustom, "expected bytes, got "+val.Kind().String())
			}
			v.SetBytes(b)
			return nil
		}
		arr, ok := val.Array()
		if !ok {
			return decErr(ErrDecodeCustom, "expected array, got "+val.Kind().String())
		}
		out := reflect.MakeSlice(v.Type(), len(arr), len(arr))
		for i, item := range arr {
			if err := assignReflect(item, out.Index(i)); err != nil {
				return err
			}
		}
		v.Set(out)
		return nil
	case reflect.Array:
		arr, ok := val.Array()
		if !ok {
			return decErr(ErrDecodeCustom, "expected array, got "+val.Kind().String())
		}
		if len(arr) != v.Len() {
			return decErr(ErrDecodeCustom, "array length mismatch")
		}
		for i, item := range arr {
			if err := assignReflect(item, v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		m, ok := val.Map()
		if !ok {
			return decErr(ErrDecodeCustom, "expected map, got "+val.Kind().String())
		}
		if v.Type().Key().Kind() != reflect.String {
			return decErr(ErrDecodeCustom, "map keys must be strings")
		}
		out := reflect.MakeMapWithSize(v.Type(), m.Len())
		var outerErr error
		m.Range(func(key string, mv *Value) bool {
			elem := reflect.New(v.Type().Elem()).Elem()
			if err := assignReflect(mv, elem); err != nil {
				outerErr = err
				return false
			}
			out.SetMapIndex(reflect.ValueOf(key).Convert(v.Type().Key()), elem)
			return true
		})
		if outerErr != nil {
			return outerErr
		}
		v.Set(out)
		return nil
	case reflect.Struct:
		m, ok := val.Map()
		if !ok {
			return decErr(ErrDecodeCustom, "expected map, got "+val.Kind().String())
		}
		for _, f := range structFields(v.Type()) {
			fv, ok := m.Get(f.name)
			if !ok {
				continue
			}
			if err := assignReflect(fv, v.FieldByIndex(f.index)); err != nil {
				return err
			}
		}
		return nil
	default:
		return decErr(ErrDecodeCustom, "unsupported decode target "+v.Type().String())
	}
}

// toInterface converts val to a plain Go value for decoding into any/
// interface{}: nil, bool, *big.Int, float64, string, []byte, []any,
// map[string]any, or cid.Cid.
func toInterface(val *Value) (any, error) {
	switch val.Kind() {
	case KindNull:
		return nil, nil
	case KindBool:
		b, _ := val.Bool()
		return b, nil
	case KindInt:
		i, _ := val.Int()
		return i, nil
	case KindFloat:
		f, _ := val.Float()
		return f, nil
	case KindText:
		s, _ := val.Text()
		return s, nil
	case KindBytes:
		b, _ := val.Bytes()
		return b, nil
	case KindArray:
		arr, _ := val.Array()
		out := make([]any, len(arr))
		for i, item := range arr {
			iv, err := toInterface(item)
			if err != nil {
				return nil, err
			}
			out[i] = iv
		}
		return out, nil
	case KindMap:
		m, _ := val.Map()
		out := make(map[string]any, m.Len())
		var outerErr error
		m.Range(func(key string, mv *Value) bool {
			iv, err := toInterface(mv)
			if err != nil {
				outerErr = err
				return false
			}
			out[key] = iv
			return true
		})
		if outerErr != nil {
			return nil, outerErr
		}
		return out, nil
	case KindCid:
		c, _ := val.Cid()
		return c, nil
	default:
		return nil, decErr(ErrDecodeCustom, "invalid value kind")
	}
}
