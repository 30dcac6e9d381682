package rlp

import "errors"

var (
	ErrUnexpectedEOF  = errors.New("rlp: unexpected end of input")
	ErrExpectedString = errors.New("rlp: expected string, got list")
	ErrExpectedList   = errors.New("rlp: expected list, got string")
	ErrCanonInt       = errors.New("rlp: non-canonical integer encoding")
	ErrCanonSize      = errors.New("rlp: non-canonical size information")
	ErrValueTooLarge  = errors.New("rlp: value does not fit target type")
	ErrTrailingBytes  = errors.New("rlp: input contains trailing bytes")
)
