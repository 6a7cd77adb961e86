package drisl

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"math/big"
	"unicode/utf8"

	"github.com/dasl-ing/drisl-go/cid"
)

// Unmarshaler is implemented by types that decode themselves from DRISL.
type Unmarshaler interface {
	UnmarshalDRISL([]byte) error
}

// Unmarshal decodes a single DRISL item from data into v and fails if any
// bytes remain afterward. v should be a pointer to a *Value, to a type
// implementing Unmarshaler, or to any Go value reachable via reflection
// (the mirror image of what Marshal accepts).
func Unmarshal(data []byte, v any) error {
	d := NewDecoder(bytes.NewReader(data))
	if err := d.Decode(v); err != nil {
		return err
	}
	if d.r.Buffered() > 0 {
		return decErr(ErrTrailingData, "")
	}
	// Confirm EOF: a bufio.Reader can have an empty buffer yet more bytes
	// available from the underlying reader.
	if _, err := d.r.ReadByte(); err != io.EOF {
		if err == nil {
			return decErr(ErrTrailingData, "")
		}
		return &DecodeError{Kind: ErrDecodeIO, Err: err}
	}
	return nil
}

// Decoder reads a stream of DRISL items from an underlying reader.
type Decoder struct {
	r        *bufio.Reader
	maxDepth int
}

// NewDecoder returns a Decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r), maxDepth: DefaultMaxDepth}
}

// SetMaxDepth overrides the recursion depth limit (DefaultMaxDepth unless
// called).
func (d *Decoder) SetMaxDepth(n int) { d.maxDepth = n }

// Decode reads the next DRISL item into v. It returns io.EOF, unwrapped,
// if the underlying reader is exhausted cleanly between items; any other
// error means the input ended in the middle of an item, was malformed, or
// held an item that could not be stored in v.
func (d *Decoder) Decode(v any) error {
	_, err := d.r.Peek(1)
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return &DecodeError{Kind: ErrDecodeIO, Err: err}
	}

	st := &decState{maxDepth: d.maxDepth}
	val, err := readValue(d.r, st)
	if err != nil {
		return err
	}
	return assign(val, v)
}

type decState struct {
	depth    int
	maxDepth int
}

func (s *decState) enter() error {
	s.depth++
	if s.depth > s.maxDepth {
		return decErr(ErrDepthOverflow, "")
	}
	return nil
}

func (s *decState) leave() { s.depth-- }

func ioErrDecode(err error) error {
	if err == io.EOF {
		return decErr(ErrEOF, "")
	}
	return &DecodeError{Kind: ErrDecodeIO, Err: err}
}

func readByte(r io.ByteReader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, ioErrDecode(err)
	}
	return b, nil
}

func readFull(r io.Reader, n uint64) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, ioErrDecode(err)
	}
	return buf, nil
}

// head is a decoded CBOR item header: major type, additional-info byte,
// and the argument it encodes (ai itself for ai < 24, otherwise the 1-8
// bytes that follow for ai 24-27).
type head struct {
	major byte
	ai    byte
	arg   uint64
}

// readHead reads one item header and validates shortest-form encoding and
// indefinite-length rejection. When ai < 24, arg equals ai itself (the
// immediate form, minimal by construction); ai 31 and the reserved values
// 28-30 are rejected before return.
func readHead(r io.ByteReader) (head, error) {
	b, err := readByte(r)
	if err != nil {
		return head{}, err
	}
	major := b >> 5
	ai := b & 0x1f

	switch {
	case ai < 24:
		return head{major: major, ai: ai, arg: uint64(ai)}, nil
	case ai == 24:
		n, err := readByte(r)
		if err != nil {
			return head{}, err
		}
		if n < 24 {
			return head{}, decErr(ErrNonMinimal, "header")
		}
		return head{major: major, ai: ai, arg: uint64(n)}, nil
	case ai == 25:
		b, err := readFull(r.(io.Reader), 2)
		if err != nil {
			return head{}, err
		}
		n := uint64(b[0])<<8 | uint64(b[1])
		// For major type 7 these bytes are a half-precision float's literal
		// bit pattern, not a length/integer argument: minimality doesn't
		// apply, and readSimple/readValue reject it as a half-float outright.
		if major != majorSimple && n <= 0xff {
			return head{}, decErr(ErrNonMinimal, "header")
		}
		return head{major: major, ai: ai, arg: n}, nil
	case ai == 26:
		b, err := readFull(r.(io.Reader), 4)
		if err != nil {
			return head{}, err
		}
		n := uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3])
		// Same as above: under major 7 this is a single-precision float's
		// bit pattern, rejected by kind (HalfOrSingleFloat), not by minimality.
		if major != majorSimple && n <= 0xffff {
			return head{}, decErr(ErrNonMinimal, "header")
		}
		return head{major: major, ai: ai, arg: n}, nil
	case ai == 27:
		b, err := readFull(r.(io.Reader), 8)
		if err != nil {
			return head{}, err
		}
		var n uint64
		for _, c := range b {
			n = n<<8 | uint64(c)
		}
		// Under major 7 this is a binary64 float's literal bit pattern
		// (the canonical, and only accepted, float width): it is never
		// subject to the integer-minimality rule.
		if major != majorSimple && n <= 0xffffffff {
			return head{}, decErr(ErrNonMinimal, "header")
		}
		return head{major: major, ai: ai, arg: n}, nil
	case ai == 31:
		return head{}, decErr(ErrIndefiniteSize, "")
	default:
		// ai in {28, 29, 30}: reserved, never valid CBOR.
		return head{}, &DecodeError{Kind: ErrMismatch, What: "header", Found: b}
	}
}

// readValue reads one fully-formed item and returns it as a *Value. This
// is DRISL's single strict decode entry point: every validation rule in
// the canonical-CBOR subset is enforced here, not left to callers.
func readValue(r *bufio.Reader, st *decState) (*Value, error) {
	h, err := readHead(r)
	if err != nil {
		return nil, err
	}

	switch h.major {
	case majorUint:
		return &Value{kind: KindInt, i: new(big.Int).SetUint64(h.arg)}, nil
	case majorNegInt:
		i := new(big.Int).SetUint64(h.arg)
		i.Add(i, big.NewInt(1))
		i.Neg(i)
		return &Value{kind: KindInt, i: i}, nil
	case majorBytes:
		b, err := readFull(r, h.arg)
		if err != nil {
			return nil, err
		}
		return &Value{kind: KindBytes, bytes: b}, nil
	case majorText:
		b, err := readFull(r, h.arg)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, decErr(ErrInvalidUtf8, "text")
		}
		return &Value{kind: KindText, s: string(b)}, nil
	case majorArray:
		if err := st.enter(); err != nil {
			return nil, err
		}
		defer st.leave()
		items := make([]*Value, 0, h.arg)
		for i := uint64(0); i < h.arg; i++ {
			item, err := readValue(r, st)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return &Value{kind: KindArray, arr: items}, nil
	case majorMap:
		if err := st.enter(); err != nil {
			return nil, err
		}
		defer st.leave()
		m := newMap()
		var prevKey []byte
		for i := uint64(0); i < h.arg; i++ {
			kh, err := readHead(r)
			if err != nil {
				return nil, err
			}
			if kh.major != majorText {
				return nil, decErr(ErrNonTextMapKey, "")
			}
			keyBytes, err := readFull(r, kh.arg)
			if err != nil {
				return nil, err
			}
			if !utf8.Valid(keyBytes) {
				return nil, decErr(ErrInvalidUtf8, "map key")
			}
			encodedKey := appendHead(nil, majorText, kh.arg)
			encodedKey = append(encodedKey, keyBytes...)
			if prevKey != nil {
				switch bytes.Compare(encodedKey, prevKey) {
				case 0:
					return nil, decErr(ErrDuplicateMapKey, string(keyBytes))
				case -1:
					return nil, decErr(ErrUnsortedMapKey, string(keyBytes))
				}
			}
			prevKey = encodedKey

			val, err := readValue(r, st)
			if err != nil {
				return nil, err
			}
			m.appendSortedUnchecked(string(keyBytes), val)
		}
		return &Value{kind: KindMap, m: m}, nil
	case majorTag:
		if h.arg != cidTag {
			return nil, &DecodeError{Kind: ErrUnknownTag, Tag: h.arg}
		}
		th, err := readHead(r)
		if err != nil {
			return nil, err
		}
		if th.major != majorBytes {
			return nil, decErr(ErrTagPayloadNotByteString, "")
		}
		body, err := readFull(r, th.arg)
		if err != nil {
			return nil, err
		}
		if len(body) == 0 || body[0] != 0x00 {
			return nil, decErr(ErrCidPrefixMissing, "")
		}
		c, err := cid.FromBytesRaw(body[1:])
		if err != nil {
			return nil, &DecodeError{Kind: ErrInvalidCid, Err: err}
		}
		return &Value{kind: KindCid, c: c}, nil
	case majorSimple:
		return readSimple(h)
	default:
		return nil, decErr(ErrMismatch, "major type")
	}
}

func readSimple(h head) (*Value, error) {
	switch h.ai {
	case simpleFalse:
		return &Value{kind: KindBool, b: false}, nil
	case simpleTrue:
		return &Value{kind: KindBool, b: true}, nil
	case simpleNull:
		return &Value{kind: KindNull}, nil
	case 27:
		// readHead already consumed the 8 argument bytes for ai 27; h.arg
		// carries them as the float's literal bit pattern.
		bits := h.arg
		f := math.Float64frombits(bits)
		if math.IsNaN(f) {
			if bits != canonicalNaN {
				return nil, decErr(ErrNonCanonicalNaN, "")
			}
		}
		return &Value{kind: KindFloat, f: f}, nil
	case 25, 26:
		return nil, decErr(ErrHalfOrSingleFloat, "")
	default:
		return nil, &DecodeError{Kind: ErrUnsupportedSimpleValue, What: "simple value", Found: h.ai}
	}
}
