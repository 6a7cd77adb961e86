package drisl

import (
	"bytes"
	"io"
	"math"
	"math/big"
	"reflect"
	"sort"
	"unicode/utf8"

	"github.com/dasl-ing/drisl-go/cid"
)

const (
	majorUint     = 0
	majorNegInt   = 1
	majorBytes    = 2
	majorText     = 3
	majorArray    = 4
	majorMap      = 5
	majorTag      = 6
	majorSimple   = 7
	simpleFalse   = 20
	simpleTrue    = 21
	simpleNull    = 22
	quietNaNBit   = uint64(1) << 51
	canonicalNaN  = uint64(0x7ff8000000000000)
)

// CidTagNumber is the CBOR tag number used to bridge a CID into DRISL.
const CidTagNumber = 42

const cidTag = CidTagNumber

// Marshaler is implemented by types that encode themselves to DRISL. The
// returned bytes are re-validated by decoding them back, so MarshalDRISL
// cannot be used to smuggle non-canonical output onto the wire.
type Marshaler interface {
	MarshalDRISL() ([]byte, error)
}

// appendHead appends the canonical, shortest-form CBOR head for a major
// type and an argument n (a length, a tag number, or the magnitude of an
// integer).
func appendHead(buf []byte, major byte, n uint64) []byte {
	b0 := major << 5
	switch {
	case n < 24:
		return append(buf, b0|byte(n))
	case n <= 0xff:
		return append(buf, b0|24, byte(n))
	case n <= 0xffff:
		return append(buf, b0|25, byte(n>>8), byte(n))
	case n <= 0xffffffff:
		return append(buf, b0|26, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	default:
		return append(buf, b0|27,
			byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32),
			byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
}

// appendBigInt appends the canonical encoding of an arbitrary-precision
// integer in [-2^64, 2^64-1]: major 0 for non-negative values, major 1
// (encoding -1-n) for negative ones. Both branches' arguments always fit
// a uint64 because the range check above bounds them to [0, 2^64-1].
func appendBigInt(buf []byte, i *big.Int) ([]byte, error) {
	if i.Cmp(MinInt) < 0 || i.Cmp(MaxInt) > 0 {
		return nil, encErr(ErrIntegerOutOfRange, i.String())
	}
	if i.Sign() >= 0 {
		return appendHead(buf, majorUint, i.Uint64()), nil
	}
	n := new(big.Int).Neg(i)
	n.Sub(n, big.NewInt(1))
	return appendHead(buf, majorNegInt, n.Uint64()), nil
}

func appendFloat(buf []byte, f float64) ([]byte, error) {
	bits := math.Float64bits(f)
	if math.IsNaN(f) {
		if bits&quietNaNBit == 0 {
			return nil, encErr(ErrSignallingNaN, "")
		}
		bits = canonicalNaN
	}
	return appendFloatBits(buf, bits), nil
}

func appendFloatBits(buf []byte, bits uint64) []byte {
	b0 := byte(majorSimple<<5) | 27
	return append(buf, b0,
		byte(bits>>56), byte(bits>>48), byte(bits>>40), byte(bits>>32),
		byte(bits>>24), byte(bits>>16), byte(bits>>8), byte(bits))
}

func appendText(buf []byte, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, encErr(ErrEncodeCustom, "invalid utf-8 text")
	}
	buf = appendHead(buf, majorText, uint64(len(s)))
	return append(buf, s...), nil
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = appendHead(buf, majorBytes, uint64(len(b)))
	return append(buf, b...)
}

// appendCid appends the tag-42 bridge wrapping a CID's multibase-identity
// prefixed logical record. This is the single point where the codec
// touches the cid package.
func appendCid(buf []byte, c cid.Cid) []byte {
	body := c.Bytes()
	buf = appendHead(buf, majorTag, cidTag)
	buf = appendHead(buf, majorBytes, uint64(len(body))+1)
	buf = append(buf, 0x00)
	return append(buf, body...)
}

type encState struct {
	depth    int
	maxDepth int
}

func (s *encState) enter() error {
	s.depth++
	if s.depth > s.maxDepth {
		return encErr(ErrEncodeCustom, "max depth exceeded")
	}
	return nil
}

func (s *encState) leave() { s.depth-- }

// DefaultMaxDepth bounds the recursion depth Marshal and Encoder.Encode
// (and Unmarshal and Decoder.Decode) will follow through nested arrays and
// maps before failing. A tag-42 CID does not count as a level.
const DefaultMaxDepth = 128

// Marshal encodes v to its canonical DRISL representation.
//
// v may be a *Value, a type implementing Marshaler, or any Go value
// reachable via reflection: bool, integer and float kinds, string,
// []byte, slices, maps with string keys, structs (using "drisl", "cbor",
// then "json" struct tags, in that precedence order), pointers, and
// interfaces. A nil pointer, nil interface, or untyped nil encodes as
// null.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CidForValue computes the DASL CID of v: the DRISL codec tag over the
// SHA2-256 digest of v's canonical encoding. It fails exactly when
// Marshal(v) would fail.
func CidForValue(v any) (cid.Cid, error) {
	b, err := Marshal(v)
	if err != nil {
		return cid.Cid{}, err
	}
	return cid.DigestSHA2(cid.Drisl, b), nil
}

// Encoder writes a stream of DRISL items to an underlying writer.
type Encoder struct {
	w        io.Writer
	maxDepth int
}

// NewEncoder returns an Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, maxDepth: DefaultMaxDepth}
}

// SetMaxDepth overrides the recursion depth limit (DefaultMaxDepth unless
// called).
func (e *Encoder) SetMaxDepth(n int) { e.maxDepth = n }

// Encode writes the canonical DRISL encoding of v.
func (e *Encoder) Encode(v any) error {
	st := &encState{maxDepth: e.maxDepth}
	buf, err := appendAny(nil, st, v)
	if err != nil {
		return err
	}
	_, err = e.w.Write(buf)
	if err != nil {
		return &EncodeError{Kind: ErrEncodeIO, Err: err}
	}
	return nil
}

func appendAny(buf []byte, st *encState, v any) ([]byte, error) {
	if v == nil {
		return append(buf, majorSimple<<5|simpleNull), nil
	}
	switch x := v.(type) {
	case *Value:
		return appendValue(buf, st, x)
	case cid.Cid:
		return appendCid(buf, x), nil
	case Marshaler:
		body, err := x.MarshalDRISL()
		if err != nil {
			return nil, &EncodeError{Kind: ErrEncodeCustom, Err: err}
		}
		if _, err := Unmarshal(body, new(Value)); err != nil {
			return nil, encErr(ErrEncodeCustom, "Marshaler produced non-canonical DRISL")
		}
		return append(buf, body...), nil
	}
	return appendReflect(buf, st, reflect.ValueOf(v))
}

func appendValue(buf []byte, st *encState, v *Value) ([]byte, error) {
	if v == nil {
		return append(buf, majorSimple<<5|simpleNull), nil
	}

	switch v.Kind() {
	case KindNull:
		return append(buf, majorSimple<<5|simpleNull), nil
	case KindBool:
		b, _ := v.Bool()
		if b {
			return append(buf, majorSimple<<5|simpleTrue), nil
		}
		return append(buf, majorSimple<<5|simpleFalse), nil
	case KindInt:
		i, _ := v.Int()
		return appendBigInt(buf, i)
	case KindFloat:
		f, _ := v.Float()
		return appendFloat(buf, f)
	case KindText:
		s, _ := v.Text()
		return appendText(buf, s)
	case KindBytes:
		b, _ := v.Bytes()
		return appendBytes(buf, b), nil
	case KindArray:
		if err := st.enter(); err != nil {
			return nil, err
		}
		defer st.leave()
		arr, _ := v.Array()
		buf = appendHead(buf, majorArray, uint64(len(arr)))
		var err error
		for _, item := range arr {
			buf, err = appendValue(buf, st, item)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case KindMap:
		if err := st.enter(); err != nil {
			return nil, err
		}
		defer st.leave()
		m, _ := v.Map()
		return appendMapEntries(buf, st, m.Len(), func(yield func(key string, val *Value) bool) {
			m.Range(yield)
		})
	case KindCid:
		c, _ := v.Cid()
		return appendCid(buf, c), nil
	default:
		return nil, encErr(ErrEncodeCustom, "invalid Value kind")
	}
}

// appendMapEntries encodes n key/value pairs delivered by rangeFn in
// canonical order: every key is encoded first, pairs are sorted by
// encoded key bytes, then flushed. This is the bulletproof way to satisfy
// the canonical-ordering rule regardless of what order the caller's keys
// started in.
func appendMapEntries(buf []byte, st *encState, n int, rangeFn func(yield func(key string, val *Value) bool)) ([]byte, error) {
	type entry struct {
		key []byte
		val []byte
	}
	entries := make([]entry, 0, n)
	var outerErr error
	rangeFn(func(key string, val *Value) bool {
		kb, err := appendText(nil, key)
		if err != nil {
			outerErr = err
			return false
		}
		vb, err := appendValue(nil, st, val)
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
