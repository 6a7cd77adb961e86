package drisl

import "fmt"

// EncodeErrorKind identifies why encoding a value failed.
type EncodeErrorKind int

const (
	// ErrIntegerOutOfRange means an integer fell outside [-2^64, 2^64-1].
	ErrIntegerOutOfRange EncodeErrorKind = iota
	// ErrSignallingNaN means a signalling NaN float was encountered; only
	// quiet NaNs can be normalized to the canonical pattern.
	ErrSignallingNaN
	// ErrEncodeIO means the underlying writer returned an error.
	ErrEncodeIO
	// ErrEncodeCustom is a catch-all for type-specific encode failures
	// (invalid UTF-8 text, a Marshaler producing malformed output, an
	// unsupported Go type, ...).
	ErrEncodeCustom
)

func (k EncodeErrorKind) String() string {
	switch k {
	case ErrIntegerOutOfRange:
		return "integer out of range"
	case ErrSignallingNaN:
		return "signalling NaN"
	case ErrEncodeIO:
		return "io error"
	case ErrEncodeCustom:
		return "custom"
	default:
		return "unknown encode error"
	}
}

// EncodeError reports why Marshal or an Encoder failed.
type EncodeError struct {
	Kind EncodeErrorKind
	// Msg gives human-readable detail for ErrEncodeCustom.
	Msg string
	// Err wraps the underlying error for ErrEncodeIO, and for
	// ErrEncodeCustom when a Marshaler's MarshalDRISL fails.
	Err error
}

func (e *EncodeError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("drisl: encode: %s: %s", e.Kind, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("drisl: encode: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("drisl: encode: %s", e.Kind)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func encErr(kind EncodeErrorKind, msg string) error {
	return &EncodeError{Kind: kind, Msg: msg}
}

// DecodeErrorKind identifies why decoding a value failed.
type DecodeErrorKind int

const (
	// ErrDecodeIO means the underlying reader returned an error.
	ErrDecodeIO DecodeErrorKind = iota
	// ErrEOF means the input ended in the middle of an item.
	ErrEOF
	// ErrMismatch means a byte didn't match what was expected for What.
	ErrMismatch
	// ErrNonMinimal means an integer or length used more bytes than its
	// value required.
	ErrNonMinimal
	// ErrIndefiniteSize means an indefinite-length item marker (additional
	// info 31) was used; only definite-length items are valid DRISL.
	ErrIndefiniteSize
	// ErrHalfOrSingleFloat means a 16- or 32-bit float was used; only
	// 64-bit floats are valid DRISL.
	ErrHalfOrSingleFloat
	// ErrNonCanonicalNaN means a NaN bit pattern other than the one
	// canonical quiet NaN was decoded.
	ErrNonCanonicalNaN
	// ErrUnknownTag means a CBOR tag other than 42 was used.
	ErrUnknownTag
	// ErrTagPayloadNotByteString means tag 42 wrapped something other
	// than a byte string.
	ErrTagPayloadNotByteString
	// ErrCidPrefixMissing means a tag-42 byte string didn't start with
	// the 0x00 multibase-identity byte.
	ErrCidPrefixMissing
	// ErrInvalidCid means the bytes after the 0x00 prefix failed CID
	// validation; Err wraps the underlying cid.ParseError.
	ErrInvalidCid
	// ErrNonTextMapKey means a map key was not a text string.
	ErrNonTextMapKey
	// ErrUnsortedMapKey means map keys were not in strictly ascending
	// encoded-byte order.
	ErrUnsortedMapKey
	// ErrDuplicateMapKey means the same map key appeared twice.
	ErrDuplicateMapKey
	// ErrInvalidUtf8 means a text string's bytes were not valid UTF-8.
	ErrInvalidUtf8
	// ErrUnsupportedSimpleValue means a CBOR simple value other than
	// false/true/null was used.
	ErrUnsupportedSimpleValue
	// ErrCastOverflow means a decoded integer didn't fit the requested
	// Go target type.
	ErrCastOverflow
	// ErrDepthOverflow means nested arrays/maps exceeded the configured
	// recursion depth. A tag-42 CID does not count as a level.
	ErrDepthOverflow
	// ErrTrailingData means bytes remained after a single top-level item.
	ErrTrailingData
	// ErrRequireLength means an item's header promised a length that its
	// content doesn't satisfy.
	ErrRequireLength
	// ErrDecodeCustom is a catch-all for Unmarshaler and reflection
	// target-assignment failures.
	ErrDecodeCustom
)

func (k DecodeErrorKind) String() string {
	switch k {
	case ErrDecodeIO:
		return "io error"
	case ErrEOF:
		return "unexpected eof"
	case ErrMismatch:
		return "mismatch"
	case ErrNonMinimal:
		return "non-minimal encoding"
	case ErrIndefiniteSize:
		return "indefinite-length item"
	case ErrHalfOrSingleFloat:
		return "half or single precision float"
	case ErrNonCanonicalNaN:
		return "non-canonical NaN"
	case ErrUnknownTag:
		return "unknown tag"
	case ErrTagPayloadNotByteString:
		return "tag payload not a byte string"
	case ErrCidPrefixMissing:
		return "cid prefix missing"
	case ErrInvalidCid:
		return "invalid cid"
	case ErrNonTextMapKey:
		return "non-text map key"
	case ErrUnsortedMapKey:
		return "unsorted map key"
	case ErrDuplicateMapKey:
		return "duplicate map key"
	case ErrInvalidUtf8:
		return "invalid utf-8"
	case ErrUnsupportedSimpleValue:
		return "unsupported simple value"
	case ErrCastOverflow:
		return "cast overflow"
	case ErrDepthOverflow:
		return "depth overflow"
	case ErrTrailingData:
		return "trailing data"
	case ErrRequireLength:
		return "required length not met"
	case ErrDecodeCustom:
		return "custom"
	default:
		return "unknown decode error"
	}
}

// DecodeError reports why Unmarshal or a Decoder failed.
type DecodeError struct {
	Kind DecodeErrorKind
	// What names the kind of item being decoded when the error occurred
	// (e.g. "array length", "map key"), when useful.
	What string
	// Found is the offending byte, for ErrMismatch and
	// ErrUnsupportedSimpleValue.
	Found byte
	// Tag is the offending tag number, for ErrUnknownTag.
	Tag uint64
	// Target names the Go type an integer couldn't be cast into, for
	// ErrCastOverflow.
	Target string
	// Msg gives human-readable detail for ErrDecodeCustom.
	Msg string
	// Err wraps the underlying error for ErrDecodeIO and ErrInvalidCid.
	Err error
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case ErrMismatch, ErrUnsupportedSimpleValue:
		return fmt.Sprintf("drisl: decode: %s: %s (found 0x%02x)", e.Kind, e.What, e.Found)
	case ErrUnknownTag:
		return fmt.Sprintf("drisl: decode: %s: %d", e.Kind, e.Tag)
	case ErrCastOverflow:
		return fmt.Sprintf("drisl: decode: %s: does not fit %s", e.Kind, e.Target)
	case ErrInvalidCid, ErrDecodeIO:
		return fmt.Sprintf("drisl: decode: %s: %v", e.Kind, e.Err)
	case ErrDecodeCustom:
		return fmt.Sprintf("drisl: decode: %s: %s", e.Kind, e.Msg)
	default:
		if e.What != "" {
			return fmt.Sprintf("drisl: decode: %s: %s", e.Kind, e.What)
		}
		return fmt.Sprintf("drisl: decode: %s", e.Kind)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decErr(kind DecodeErrorKind, what string) error {
	return &DecodeError{Kind: kind, What: what}
}
