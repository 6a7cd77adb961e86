package drisl_test

import (
	"bytes"
	"testing"

	"github.com/dasl-ing/drisl-go/drisl"
)

// fuzzSeeds are small hand-picked canonical and near-canonical DRISL byte
// strings, covering each major type and a few of the rejection rules, used
// to get the fuzzer started from known-interesting inputs rather than
// purely random bytes.
func fuzzSeeds() [][]byte {
	return [][]byte{
		{0xa0},                   // {}
		{0xf6},                   // null
		{0xf4},                   // false
		{0xf5},                   // true
		{0x00},                   // 0
		{0x17},                   // 23
		{0x18, 0x18},             // 24, minimal
		{0x20},                   // -1
		{0x60},                   // ""
		{0x65, 'h', 'e', 'l', 'l', 'o'},
		{0x40},       // empty bytes
		{0x80},       // []
		{0xa2, 0x61, 0x61, 0x02, 0x61, 0x62, 0x01}, // {"a":2,"b":1}
		{0xfb, 0x7f, 0xf8, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, // canonical NaN
		{0x18, 0x17},       // non-minimal 23, should be rejected
		{0xf9, 0x3c, 0x00}, // half-float, should be rejected
		{0x9f, 0xff},       // indefinite array, should be rejected
	}
}

// FuzzUnmarshal checks that any byte string Unmarshal accepts as a Value
// reproduces those exact bytes when re-Marshaled: Unmarshal never accepts
// an input whose canonical re-encoding would differ from it.
func FuzzUnmarshal(f *testing.F) {
	for _, seed := range fuzzSeeds() {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		var v drisl.Value
		if err := drisl.Unmarshal(data, &v); err != nil {
			return
		}
		got, err := drisl.Marshal(&v)
		if err != nil {
			t.Fatalf("accepted input failed to re-marshal: %x: %v", data, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("re-marshal changed bytes: %x -> %x", data, got)
		}
	})
}

type fuzzMarshaler struct{ val []byte }

func (m fuzzMarshaler) MarshalDRISL() ([]byte, error) {
	return m.val, nil
}

// FuzzMarshalerValidation checks that Marshal never lets a Marshaler smuggle
// non-canonical bytes onto the wire: whatever MarshalDRISL returns is
// re-validated by decoding it, so Marshal either rejects it or passes
// through only genuinely canonical output.
func FuzzMarshalerValidation(f *testing.F) {
	for _, seed := range fuzzSeeds() {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		out, err := drisl.Marshal(fuzzMarshaler{val: data})
		if err != nil {
			return
		}
		if !bytes.Equal(out, data) {
			t.Fatalf("Marshal altered a validated Marshaler's bytes: %x -> %x", data, out)
		}
		var v drisl.Value
		if err := drisl.Unmarshal(out, &v); err != nil {
			t.Fatalf("Marshal passed through bytes that don't decode: %x: %v", out, err)
		}
	})
}
