/*
Package drisl implements DRISL: a strict, canonical subset of CBOR (RFC
8949) used as the wire format of the DASL data model. A DRISL byte string
decodes to exactly one of nine kinds (null, bool, integer, float, text,
bytes, array, map, or CID) and, when re-encoded, reproduces those bytes
exactly. Encoding always produces this canonical form; decoding rejects
anything that deviates from it: non-shortest-form integers and lengths,
indefinite-length items, 16- or 32-bit floats, non-canonical NaN bit
patterns, unsorted or duplicate map keys, non-text map keys, invalid
UTF-8, CBOR tags other than 42, and simple values other than false/true/
null.

https://dasl.ing/drisl.html
*/
package drisl
