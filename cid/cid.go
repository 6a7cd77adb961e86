/*
Package cid implements DASL Content Identifiers: a restricted, fixed-shape
subset of the multiformats CID that binds a codec tag to a SHA2-256 or
BLAKE3 digest.

https://dasl.ing/cid.html
*/
package cid

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"

	"github.com/dasl-ing/drisl-go/base32"

	"lukechampine.com/blake3"
)

// Codec identifies the interpretation of the data a CID addresses.
type Codec uint8

const (
	// Raw identifies an opaque byte string.
	Raw Codec = 0x55
	// Drisl identifies a DRISL-encoded value.
	Drisl Codec = 0x71
)

func (c Codec) String() string {
	switch c {
	case Raw:
		return "raw"
	case Drisl:
		return "drisl"
	default:
		return fmt.Sprintf("Codec(0x%02x)", uint8(c))
	}
}

func (c Codec) valid() bool {
	return c == Raw || c == Drisl
}

// HashCode identifies the hash algorithm whose digest is embedded in a CID.
type HashCode uint8

const (
	// SHA2256 is the SHA2-256 hash family.
	SHA2256 HashCode = 0x12
	// BLAKE3 is the BLAKE3 hash family (with a 32-byte output).
	BLAKE3 HashCode = 0x1e
)

func (h HashCode) String() string {
	switch h {
	case SHA2256:
		return "sha2-256"
	case BLAKE3:
		return "blake3"
	default:
		return fmt.Sprintf("HashCode(0x%02x)", uint8(h))
	}
}

func (h HashCode) valid() bool {
	return h == SHA2256 || h == BLAKE3
}

const (
	version = 1
	// HashLength is the digest length used by every known hash family.
	HashLength = 32
	// multibasePrefix is the single ASCII character that prefixes the
	// base32 text form of every CID.
	multibasePrefix = 'b'
)

// Cid is a DASL CID: a 4-byte prefix (version, codec, hash code, hash
// length) optionally followed by a 32-byte digest.
//
// The zero value is not a valid Cid; it exists only so Cid can be used as
// an ordinary struct field. Call Defined to check for it.
//
// Cid should be passed by value, not by pointer.
type Cid struct {
	// b holds the logical record: 4 bytes if the CID is empty, 36 otherwise.
	b []byte
}

// ParseErrorKind identifies why parsing a CID failed.
type ParseErrorKind int

const (
	// InvalidEncoding means the input was not valid multibase/CBOR framing.
	InvalidEncoding ParseErrorKind = iota
	// TooShort means the input was shorter than the minimum CID length.
	TooShort
	// InvalidVersion means the version byte was not 1.
	InvalidVersion
	// UnknownCodec means the codec byte did not name a known codec.
	UnknownCodec
	// UnknownHashCode means the hash code byte did not name a known hash.
	UnknownHashCode
	// InvalidHashLength means the hash-length byte or the trailing data
	// length didn't match one of the two legal shapes (0 or 32 bytes).
	InvalidHashLength
)

func (k ParseErrorKind) String() string {
	switch k {
	case InvalidEncoding:
		return "invalid encoding"
	case TooShort:
		return "too short"
	case InvalidVersion:
		return "invalid version"
	case UnknownCodec:
		return "unknown codec"
	case UnknownHashCode:
		return "unknown hash code"
	case InvalidHashLength:
		return "invalid hash length"
	default:
		return "unknown error"
	}
}

// ParseError reports why a CID could not be parsed or validated.
type ParseError struct {
	Kind ParseErrorKind
	// Value carries the offending byte for the InvalidVersion,
	// UnknownCodec and UnknownHashCode kinds.
	Value int
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case InvalidVersion, UnknownCodec, UnknownHashCode:
		return fmt.Sprintf("dasl cid: %s (0x%02x)", e.Kind, e.Value)
	default:
		return fmt.Sprintf("dasl cid: %s", e.Kind)
	}
}

const minLogicalLen = 4

// FromBytesRaw validates and copies the logical 4- or 36-byte CID record in
// b. It fails if the record is malformed in any of the ways enumerated by
// the DASL CID spec: too short/long, bad version, unknown codec or hash
// code, or a hash-length byte other than 0 or 32 (with a body length that
// doesn't match it).
func FromBytesRaw(b []byte) (Cid, error) {
	if len(b) < minLogicalLen {
		return Cid{}, &ParseError{Kind: TooShort}
	}
	if b[0] != version {
		return Cid{}, &ParseError{Kind: InvalidVersion, Value: int(b[0])}
	}
	if !Codec(b[1]).valid() {
		return Cid{}, &ParseError{Kind: UnknownCodec, Value: int(b[1])}
	}
	if !HashCode(b[2]).valid() {
		return Cid{}, &ParseError{Kind: UnknownHashCode, Value: int(b[2])}
	}

	hashLen, n, err := varint.FromUvarint(b[3:])
	if err != nil {
		return Cid{}, &ParseError{Kind: InvalidHashLength}
	}
	if hashLen != 0 && hashLen != HashLength {
		return Cid{}, &ParseError{Kind: InvalidHashLength}
	}
	if len(b) != 3+n+int(hashLen) {
		return Cid{}, &ParseError{Kind: InvalidHashLength}
	}

	out := make([]byte, len(b))
	copy(out, b)
	return Cid{b: out}, nil
}

// FromBytes validates and copies a CID prefixed with the 0x00 multibase
// "identity" byte used when CIDs are embedded inline in other binary
// formats. It fails if b is empty or doesn't start with 0x00, or if the
// remainder fails FromBytesRaw.
func FromBytes(b []byte) (Cid, error) {
	if len(b) == 0 {
		return Cid{}, &ParseError{Kind: TooShort}
	}
	if b[0] != 0x00 {
		return Cid{}, &ParseError{Kind: InvalidEncoding}
	}
	return FromBytesRaw(b[1:])
}

// Parse parses the textual form of a CID: the ASCII character 'b' followed
// by lower-case (case-insensitive on input) unpadded base32 of the logical
// record.
func Parse(s string) (Cid, error) {
	if len(s) == 0 || s[0] != multibasePrefix {
		return Cid{}, &ParseError{Kind: InvalidEncoding}
	}
	b, err := base32.Decode(s[1:])
	if err != nil {
		return Cid{}, &ParseError{Kind: InvalidEncoding}
	}
	return FromBytesRaw(b)
}

func assemble(codec Codec, hashCode HashCode, digest []byte) Cid {
	b := make([]byte, 0, 4+len(digest))
	b = append(b, version, byte(codec), byte(hashCode))
	b = binary.AppendUvarint(b, uint64(len(digest)))
	b = append(b, digest...)
	return Cid{b: b}
}

// DigestSHA2 computes the SHA2-256 digest of data and assembles a CID with
// the given codec.
func DigestSHA2(codec Codec, data []byte) Cid {
	sum := sha256.Sum256(data)
	return assemble(codec, SHA2256, sum[:])
}

// DigestBLAKE3 computes the 32-byte BLAKE3 digest of data and assembles a
// CID with the given codec.
func DigestBLAKE3(codec Codec, data []byte) Cid {
	h := blake3.New(HashLength, nil)
	h.Write(data)
	return assemble(codec, BLAKE3, h.Sum(nil))
}

// EmptySHA2256 assembles a sentinel CID with no hash bytes (a 4-byte
// logical record) tagged as a SHA2-256 hash.
func EmptySHA2256(codec Codec) Cid {
	return assemble(codec, SHA2256, nil)
}

// EmptyBLAKE3 assembles a sentinel CID with no hash bytes (a 4-byte
// logical record) tagged as a BLAKE3 hash.
func EmptyBLAKE3(codec Codec) Cid {
	return assemble(codec, BLAKE3, nil)
}

// ReadByteReader is the reader interface required by FromReader. Wrap a
// plain io.Reader with bufio.NewReader if it doesn't already implement
// io.ByteReader.
type ReadByteReader interface {
	io.Reader
	io.ByteReader
}

// FromReader reads a binary CID from r, leaving any trailing bytes
// unconsumed for the caller. It fails with io.ErrUnexpectedEOF if the
// reader ends in the middle of a CID.
func FromReader(r ReadByteReader) (Cid, error) {
	prefix := make([]byte, 3, minLogicalLen)
	for i := range prefix {
		b, err := r.ReadByte()
		if err != nil {
			return Cid{}, ioErr(err)
		}
		prefix[i] = b
	}
	if prefix[0] != version {
		return Cid{}, &ParseError{Kind: InvalidVersion, Value: int(prefix[0])}
	}
	if !Codec(prefix[1]).valid() {
		return Cid{}, &ParseError{Kind: UnknownCodec, Value: int(prefix[1])}
	}
	if !HashCode(prefix[2]).valid() {
		return Cid{}, &ParseError{Kind: UnknownHashCode, Value: int(prefix[2])}
	}

	hashLen, varintBytes, err := readUvarint(r)
	if err != nil {
		return Cid{}, err
	}
	if hashLen != 0 && hashLen != HashLength {
		return Cid{}, &ParseError{Kind: InvalidHashLength}
	}

	digest := make([]byte, hashLen)
	if _, err := io.ReadFull(r, digest); err != nil {
		return Cid{}, ioErr(err)
	}

	b := append(prefix, varintBytes...)
	b = append(b, digest...)
	return Cid{b: b}, nil
}

func ioErr(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// readUvarint reads a minimal unsigned varint one byte at a time, the way
// multiformats/go-varint does, but over a plain io.ByteReader so callers
// don't need a byte slice up front.
func readUvarint(r io.ByteReader) (uint64, []byte, error) {
	var x uint64
	var s uint
	buf := make([]byte, 0, 1)
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && s != 0 {
				return 0, nil, io.ErrUnexpectedEOF
			}
			return 0, nil, ioErr(err)
		}
		buf = append(buf, b)
		if b < 0x80 {
			if b == 0 && s > 0 {
				return 0, nil, &ParseError{Kind: InvalidHashLength}
			}
			return x | uint64(b)<<s, buf, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
		if s >= 64 {
			return 0, nil, &ParseError{Kind: InvalidHashLength}
		}
	}
}

// Bytes returns a copy of the CID's binary logical record. This is not the
// same as the CBOR-in-DRISL representation (see the drisl package).
func (c Cid) Bytes() []byte {
	b := make([]byte, len(c.b))
	copy(b, c.b)
	return b
}

// String returns the textual form of the CID: 'b' followed by lower-case
// unpadded base32 of its logical record.
func (c Cid) String() string {
	return string(multibasePrefix) + base32.Encode(c.b)
}

// Codec returns the CID's codec tag.
func (c Cid) Codec() Codec {
	return Codec(c.b[1])
}

// HashCode returns the CID's hash algorithm tag.
func (c Cid) HashCode() HashCode {
	return HashCode(c.b[2])
}

// Hash returns the CID's digest bytes. It is empty for a CID constructed
// with EmptySHA2256 or EmptyBLAKE3.
func (c Cid) Hash() []byte {
	n, idx, _ := varint.FromUvarint(c.b[3:])
	start := 3 + idx
	digest := make([]byte, n)
	copy(digest, c.b[start:])
	return digest
}

// Defined reports whether c holds data. It is false only for the zero
// value Cid{}.
func (c Cid) Defined() bool {
	return c.b != nil
}

// Equal reports whether c and o have identical logical records. CIDs with
// the same hash but different codecs are not equal.
func (c Cid) Equal(o Cid) bool {
	return bytes.Equal(c.b, o.b)
}

// Compare orders CIDs lexicographically by their logical record bytes. It
// implements the ordering required to use Cid as a sorted map key or in
// slices.SortFunc.
func (c Cid) Compare(o Cid) int {
	return bytes.Compare(c.b, o.b)
}
