package drisl

import (
	"math/big"
	"strings"

	"github.com/dasl-ing/drisl-go/cid"
)

// Kind identifies which of the nine DRISL data kinds a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindBytes
	KindArray
	KindMap
	KindCid
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindCid:
		return "cid"
	default:
		return "invalid"
	}
}

// MinInt and MaxInt bound the integer range DRISL can represent:
// [-2^64, 2^64-1].
var (
	MaxInt = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1))
	MinInt = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 64))
)

// Value is a dynamic DRISL value: exactly one of the nine kinds in the
// DASL data model. It is the default decode target and is also used to
// validate arbitrary input, since every valid DRISL byte sequence decodes
// to some Value and re-encoding that Value reproduces the original bytes
// exactly.
//
// The zero Value is KindNull.
type Value struct {
	kind  Kind
	b     bool
	i     *big.Int
	f     float64
	s     string
	bytes []byte
	arr   []*Value
	m     *Map
	c     cid.Cid
}

// NewNull returns a Value holding null.
func NewNull() *Value { return &Value{kind: KindNull} }

// NewBool returns a Value holding a boolean.
func NewBool(b bool) *Value { return &Value{kind: KindBool, b: b} }

// NewInt returns a Value holding a signed integer.
func NewInt(i int64) *Value { return &Value{kind: KindInt, i: big.NewInt(i)} }

// NewUint returns a Value holding an unsigned integer.
func NewUint(u uint64) *Value {
	return &Value{kind: KindInt, i: new(big.Int).SetUint64(u)}
}

// NewBigInt returns a Value holding an arbitrary-precision integer. It
// fails if i falls outside the representable range [-2^64, 2^64-1].
func NewBigInt(i *big.Int) (*Value, error) {
	if i.Cmp(MinInt) < 0 || i.Cmp(MaxInt) > 0 {
		return nil, encErr(ErrIntegerOutOfRange, i.String())
	}
	return &Value{kind: KindInt, i: new(big.Int).Set(i)}, nil
}

// NewFloat returns a Value holding a 64-bit float. Signalling NaN payloads
// are accepted here (construction never fails) but are rejected at encode
// time; quiet NaNs are normalized to the canonical pattern when encoded.
func NewFloat(f float64) *Value { return &Value{kind: KindFloat, f: f} }

// NewText returns a Value holding a UTF-8 string. Marshal rejects a Value
// whose Text is not valid UTF-8.
func NewText(s string) *Value { return &Value{kind: KindText, s: s} }

// NewBytes returns a Value holding a copy of b.
func NewBytes(b []byte) *Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &Value{kind: KindBytes, bytes: cp}
}

// NewArray returns a Value holding an ordered sequence of items.
func NewArray(items ...*Value) *Value {
	cp := make([]*Value, len(items))
	copy(cp, items)
	return &Value{kind: KindArray, arr: cp}
}

// NewMap returns a Value holding an empty map, ready for Map.Set calls.
func NewMap() *Value { return &Value{kind: KindMap, m: newMap()} }

// NewCid returns a Value holding a CID.
func NewCid(c cid.Cid) *Value { return &Value{kind: KindCid, c: c} }

// Kind reports which of the nine DRISL kinds v holds.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether v holds null (or is a nil *Value).
func (v *Value) IsNull() bool { return v.Kind() == KindNull }

// Bool returns v's boolean payload, and whether v holds a bool.
func (v *Value) Bool() (bool, bool) {
	if v.Kind() != KindBool {
		return false, false
	}
	return v.b, true
}

// Int returns v's integer payload as a big.Int, and whether v holds an
// integer. The returned value is a copy and safe to modify.
func (v *Value) Int() (*big.Int, bool) {
	if v.Kind() != KindInt {
		return nil, false
	}
	return new(big.Int).Set(v.i), true
}

// Int64 returns v's integer payload if it holds an integer and that
// integer fits in an int64.
func (v *Value) Int64() (int64, bool) {
	if v.Kind() != KindInt || !v.i.IsInt64() {
		return 0, false
	}
	return v.i.Int64(), true
}

// Uint64 returns v's integer payload if it holds an integer and that
// integer fits in a uint64.
func (v *Value) Uint64() (uint64, bool) {
	if v.Kind() != KindInt || !v.i.IsUint64() {
		return 0, false
	}
	return v.i.Uint64(), true
}

// Float returns v's float payload, and whether v holds a float.
func (v *Value) Float() (float64, bool) {
	if v.Kind() != KindFloat {
		return 0, false
	}
	return v.f, true
}

// Text returns v's string payload, and whether v holds text.
func (v *Value) Text() (string, bool) {
	if v.Kind() != KindText {
		return "", false
	}
	return v.s, true
}

// Bytes returns a copy of v's byte-string payload, and whether v holds
// bytes.
func (v *Value) Bytes() ([]byte, bool) {
	if v.Kind() != KindBytes {
		return nil, false
	}
	cp := make([]byte, len(v.bytes))
	copy(cp, v.bytes)
	return cp, true
}

// Array returns v's elements, and whether v holds an array. The returned
// slice is v's own backing storage and should not be mutated.
func (v *Value) Array() ([]*Value, bool) {
	if v.Kind() != KindArray {
		return nil, false
	}
	return v.arr, true
}

// Map returns v's key/value pairs, and whether v holds a map.
func (v *Value) Map() (*Map, bool) {
	if v.Kind() != KindMap {
		return nil, false
	}
	return v.m, true
}

// Cid returns v's CID payload, and whether v holds a CID.
func (v *Value) Cid() (cid.Cid, bool) {
	if v.Kind() != KindCid {
		return cid.Cid{}, false
	}
	return v.c, true
}

// Equal reports whether v and o represent the same DRISL value.
func (v *Value) Equal(o *Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i.Cmp(o.i) == 0
	case KindFloat:
		return v.f == o.f || (isNaN(v.f) && isNaN(o.f))
	case KindText:
		return v.s == o.s
	case KindBytes:
		return string(v.bytes) == string(o.bytes)
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.equal(o.m)
	case KindCid:
		return v.c.Equal(o.c)
	default:
		return false
	}
}

func isNaN(f float64) bool { return f != f }

// mapEntry is one key/value pair of a Map, kept in canonical (ascending
// encoded-key-byte) order.
type mapEntry struct {
	key   string
	value *Value
}

// Map is an ordered string-keyed map: the DRISL Map kind. Entries are
// always kept in canonical order (ascending by encoded key bytes, which
// for DRISL text keys with shortest-form length prefixes is equivalent to
// sorting first by UTF-8 byte length, then lexicographically), so a Map
// decoded from the wire and immediately re-encoded reproduces the
// original bytes, and a Map built by hand always encodes canonically.
type Map struct {
	entries []mapEntry
}

func newMap() *Map { return &Map{} }

// compareKeys orders two map keys the way their canonical DRISL encodings
// (a shortest-form length prefix followed by UTF-8 bytes) would sort: by
// byte length first, then lexicographically. This matches sorting the
// fully encoded key bytes because the length-prefix size class is a
// non-decreasing function of byte length, so it never reorders two keys
// relative to each other.
func compareKeys(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func (m *Map) search(key string) (int, bool) {
	lo, hi := 0, len(m.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		switch c := compareKeys(m.entries[mid].key, key); {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

// Len returns the number of entries in m.
func (m *Map) Len() int { return len(m.entries) }

// Get returns the value for key, and whether it was present.
func (m *Map) Get(key string) (*Value, bool) {
	i, ok := m.search(key)
	if !ok {
		return nil, false
	}
	return m.entries[i].value, true
}

// Set inserts or overwrites the value for key, maintaining canonical
// order.
func (m *Map) Set(key string, v *Value) {
	i, ok := m.search(key)
	if ok {
		m.entries[i].value = v
		return
	}
	m.entries = append(m.entries, mapEntry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = mapEntry{key: key, value: v}
}

// Delete removes key from m, if present.
func (m *Map) Delete(key string) {
	i, ok := m.search(key)
	if !ok {
		return
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
}

// Keys returns m's keys in canonical order.
func (m *Map) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys
}

// Range calls f for each entry in canonical order, stopping early if f
// returns false.
func (m *Map) Range(f func(key string, value *Value) bool) {
	for _, e := range m.entries {
		if !f(e.key, e.value) {
			return
		}
	}
}

// appendSortedUnchecked appends an entry known to already be the next one
// in ascending canonical order, skipping the binary search Set performs.
// It is used by the decoder, which validates ascending order as it reads.
func (m *Map) appendSortedUnchecked(key string, v *Value) {
	m.entries = append(m.entries, mapEntry{key: key, value: v})
}

func (m *Map) equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i, e := range m.entries {
		if e.key != o.entries[i].key || !e.value.Equal(o.entries[i].value) {
			return false
		}
	}
	return true
}
