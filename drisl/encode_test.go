package drisl_test

import (
	"bytes"
	"math"
	"math/big"
	"testing"

	"github.com/dasl-ing/drisl-go/cid"
	"github.com/dasl-ing/drisl-go/drisl"
)

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := drisl.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return b
}

func TestMarshalEmptyMap(t *testing.T) {
	got := mustMarshal(t, drisl.NewMap())
	want := []byte{0xa0}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal(empty map) = %x, want %x", got, want)
	}
}

func TestMarshalMapCanonicalOrder(t *testing.T) {
	mv := drisl.NewMap()
	m, _ := mv.Map()
	m.Set("b", drisl.NewInt(1))
	m.Set("a", drisl.NewInt(2))

	got := mustMarshal(t, mv)
	want := []byte{0xa2, 0x61, 0x61, 0x02, 0x61, 0x62, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal = %x, want %x", got, want)
	}
}

func TestMarshalShortestFormIntegers(t *testing.T) {
	cases := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{23, []byte{0x17}},
		{24, []byte{0x18, 0x18}},
		{255, []byte{0x18, 0xff}},
		{256, []byte{0x19, 0x01, 0x00}},
		{-1, []byte{0x20}},
		{-24, []byte{0x37}},
		{-25, []byte{0x38, 0x18}},
	}
	for _, c := range cases {
		got := mustMarshal(t, drisl.NewInt(c.v))
		if !bytes.Equal(got, c.want) {
			t.Errorf("Marshal(%d) = %x, want %x", c.v, got, c.want)
		}
	}
}

func TestMarshalIntegerRangeBoundary(t *testing.T) {
	max, _ := drisl.NewBigInt(drisl.MaxInt)
	got := mustMarshal(t, max)
	want := []byte{0x1b, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal(2^64-1) = %x, want %x", got, want)
	}

	min, _ := drisl.NewBigInt(drisl.MinInt)
	got = mustMarshal(t, min)
	wantMin := []byte{0x3b, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	if !bytes.Equal(got, wantMin) {
		t.Errorf("Marshal(-2^64) = %x, want %x", got, wantMin)
	}
}

func TestMarshalIntegerOutOfRangeFails(t *testing.T) {
	tooBig := new(big.Int).Add(drisl.MaxInt, big.NewInt(1))
	if _, err := drisl.Marshal(tooBig); err == nil {
		t.Error("expected error marshaling an out-of-range *big.Int")
	}
}

func TestMarshalSignallingNaNFails(t *testing.T) {
	sigNaN := math.Float64frombits(0x7ff0000000000001)
	if _, err := drisl.Marshal(drisl.NewFloat(sigNaN)); err == nil {
		t.Error("expected error marshaling a signalling NaN")
	}
}

func TestMarshalNormalizesQuietNaN(t *testing.T) {
	q := math.Float64frombits(0xfff8000000000001)
	got := mustMarshal(t, drisl.NewFloat(q))
	want := []byte{0xfb, 0x7f, 0xf8, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal(quiet NaN) = %x, want canonical %x", got, want)
	}
}

func TestMarshalCidUsesTag42(t *testing.T) {
	c := cid.DigestSHA2(cid.Raw, []byte("foo"))
	got := mustMarshal(t, drisl.NewCid(c))
	if got[0] != 0xd8 || got[1] != 0x2a {
		t.Fatalf("Marshal(cid) missing tag 42 head, got %x", got[:2])
	}
	if got[2] != 0x58 { // byte string, 1-byte length (37 bytes: 1 prefix + 36 record)
		t.Errorf("expected byte-string head, got %x", got[2])
	}
	if got[4] != 0x00 {
		t.Errorf("expected 0x00 multibase prefix inside tag body, got %x", got[4])
	}
}

func TestMarshalInvalidUTF8Fails(t *testing.T) {
	if _, err := drisl.Marshal(drisl.NewText(string([]byte{0xff, 0xfe}))); err == nil {
		t.Error("expected error marshaling invalid UTF-8")
	}
}

func TestMarshalStructUsesTags(t *testing.T) {
	type inner struct {
		Name  string `drisl:"name"`
		Empty string `drisl:"empty,omitempty"`
		Skip  string `drisl:"-"`
	}
	got := mustMarshal(t, inner{Name: "foo", Empty: "", Skip: "hidden"})
	want := mustMarshal(t, map[string]any{"name": "foo"})
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal(struct) = %x, want %x", got, want)
	}
}

func TestMarshalNilPointerIsNull(t *testing.T) {
	var p *int
	got := mustMarshal(t, p)
	if !bytes.Equal(got, []byte{0xf6}) {
		t.Errorf("Marshal(nil *int) = %x, want null", got)
	}
}

func TestMarshalByteSlice(t *testing.T) {
	got := mustMarshal(t, []byte{1, 2, 3})
	want := []byte{0x43, 1, 2, 3}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal([]byte) = %x, want %x", got, want)
	}
}

func TestMarshalGoMapSortsKeys(t *testing.T) {
	got := mustMarshal(t, map[string]int{"b": 1, "a": 2})
	want := []byte{0xa2, 0x61, 0x61, 0x02, 0x61, 0x62, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal(map) = %x, want %x", got, want)
	}
}

func TestMarshalerOutputIsValidated(t *testing.T) {
	if _, err := drisl.Marshal(badMarshaler{}); err == nil {
		t.Error("expected error for Marshaler producing non-canonical bytes")
	}
}

type badMarshaler struct{}

func (badMarshaler) MarshalDRISL() ([]byte, error) {
	// Non-minimal integer encoding: invalid DRISL.
	return []byte{0x18, 0x01}, nil
}
