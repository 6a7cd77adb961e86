/*
Package base32 implements the lower-case, unpadded RFC 4648 base32 alphabet
used for DASL CID text encoding.

https://dasl.ing/cid.html
*/
package base32

import (
	"encoding/base32"
	"strings"
)

// encoding is RFC 4648 base32 using the lower-case alphabet with no padding,
// i.e. multibase's "base32" ("b" prefix).
var encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// Encode returns the lower-case, unpadded base32 encoding of b.
func Encode(b []byte) string {
	return encoding.EncodeToString(b)
}

// Decode decodes s as base32. Decoding is case-insensitive (upper-case
// input is folded to lower-case before decoding), but Encode only ever
// produces lower-case output.
func Decode(s string) ([]byte, error) {
	return encoding.DecodeString(strings.ToLower(s))
}

// EncodedLen returns the length in bytes of the base32 encoding of an input
// buffer of length n.
func EncodedLen(n int) int {
	return encoding.EncodedLen(n)
}

// AppendEncode appends the base32 encoding of src to dst and returns the
// extended buffer.
func AppendEncode(dst, src []byte) []byte {
	n := len(dst)
	out := append(dst, make([]byte, encoding.EncodedLen(len(src)))...)
	encoding.Encode(out[n:], src)
	return out
}
