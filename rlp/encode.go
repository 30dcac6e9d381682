// Package rlp implements the Recursive Length Prefix serialization used by
// Ethereum transaction envelopes and contract-address derivation.
package rlp

import "github.com/holiman/uint256"

// AppendBytes appends the RLP encoding of a byte string to buf.
func AppendBytes(buf, b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return append(buf, b[0])
	}
	buf = appendLength(buf, 0x80, uint64(len(b)))
	return append(buf, b...)
}

// AppendUint appends the RLP encoding of an unsigned integer (big-endian,
// no leading zeros; zero encodes as the empty string).
func AppendUint(buf []byte, v uint64) []byte {
	if v == 0 {
		return append(buf, 0x80)
	}
	return AppendBytes(buf, putUintBigEndian(v))
}

// AppendU256 appends the RLP encoding of a 256-bit word, treated as an
// unsigned integer. A nil word encodes as zero.
func AppendU256(buf []byte, v *uint256.Int) []byte {
	if v == nil || v.IsZero() {
		return append(buf, 0x80)
	}
	b := v.Bytes()
	return AppendBytes(buf, b)
}

// WrapList prefixes payload with an RLP list header.
func WrapList(payload []byte) []byte {
	buf := appendLength(nil, 0xC0, uint64(len(payload)))
	return append(buf, payload...)
}

// EncodeBytes returns the RLP encoding of a single byte string.
func EncodeBytes(b []byte) []byte {
	return AppendBytes(nil, b)
}

// EncodeUint returns the RLP encoding of an unsigned integer.
func EncodeUint(v uint64) []byte {
	return AppendUint(nil, v)
}

// appendLength writes a short or long length header with the given tag
// base (0x80 for strings, 0xC0 for lists).
func appendLength(buf []byte, base byte, length uint64) []byte {
	if length < 56 {
		return append(buf, base+byte(length))
	}
	lenBytes := putUintBigEndian(length)
	buf = append(buf, base+55+byte(len(lenBytes)))
	return append(buf, lenBytes...)
}

func putUintBigEndian(v uint64) []byte {
	var tmp [8]byte
	n := 0
	for i := 7; i >= 0; i-- {
		tmp[7-i] = byte(v >> (uint(i) * 8))
	}
	for n < 8 && tmp[n] == 0 {
		n++
	}
	return tmp[n:]
}
