package rlp

import "github.com/holiman/uint256"

// Kind classifies an RLP item.
type Kind int

const (
	String Kind = iota
	List
)

// Stream reads a sequence of RLP items from a byte slice. List items are
// consumed through sub-streams returned by List.
type Stream struct {
	data []byte
	pos  int
}

// NewStream creates a stream over data.
func NewStream(data []byte) *Stream {
	return &Stream{data: data}
}

// More reports whether unconsumed items remain.
func (s *Stream) More() bool {
	return s.pos < len(s.data)
}

// Remaining returns the number of unconsumed bytes.
func (s *Stream) Remaining() int {
	return len(s.data) - s.pos
}

// Kind peeks at the kind of the next item without consuming it.
func (s *Stream) Kind() (Kind, error) {
	if !s.More() {
		return 0, ErrUnexpectedEOF
	}
	if s.data[s.pos] >= 0xC0 {
		return List, nil
	}
	return String, nil
}

// Bytes consumes the next item, which must be a string, and returns its
// payload.
func (s *Stream) Bytes() ([]byte, error) {
	kind, payload, err := s.next()
	if err != nil {
		return nil, err
	}
	if kind != String {
		return nil, ErrExpectedString
	}
	return payload, nil
}

// Uint64 consumes the next item as a canonical unsigned integer.
func (s *Stream) Uint64() (uint64, error) {
	b, err := s.intBytes()
	if err != nil {
		return 0, err
	}
	if len(b) > 8 {
		return 0, ErrValueTooLarge
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// U256 consumes the next item as a canonical 256-bit unsigned integer.
func (s *Stream) U256() (*uint256.Int, error) {
	b, err := s.intBytes()
	if err != nil {
		return nil, err
	}
	if len(b) > 32 {
		return nil, ErrValueTooLarge
	}
	return new(uint256.Int).SetBytes(b), nil
}

// List consumes the next item, which must be a list, and returns a
// sub-stream over its payload.
func (s *Stream) List() (*Stream, error) {
	kind, payload, err := s.next()
	if err != nil {
		return nil, err
	}
	if kind != List {
		return nil, ErrExpectedList
	}
	return NewStream(payload), nil
}

// intBytes consumes a string item and checks integer canonicality
// (no leading zero bytes, single bytes below 0x80 self-encode).
func (s *Stream) intBytes() ([]byte, error) {
	b, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	if len(b) > 0 && b[0] == 0 {
		return nil, ErrCanonInt
	}
	return b, nil
}

// next consumes one item and returns its kind and payload.
func (s *Stream) next() (Kind, []byte, error) {
	if !s.More() {
		return 0, nil, ErrUnexpectedEOF
	}
	tag := s.data[s.pos]
	switch {
	case tag < 0x80: // single byte literal
		s.pos++
		return String, s.data[s.pos-1 : s.pos], nil
	case tag < 0xB8: // short string
		return s.payload(String, 1, uint64(tag-0x80))
	case tag < 0xC0: // long string
		size, hdr, err := s.longLength(int(tag - 0xB7))
		if err != nil {
			return 0, nil, err
		}
		if size < 56 {
			return 0, nil, ErrCanonSize
		}
		return s.payload(String, hdr, size)
	case tag < 0xF8: // short list
		return s.payload(List, 1, uint64(tag-0xC0))
	default: // long list
		size, hdr, err := s.longLength(int(tag - 0xF7))
		if err != nil {
			return 0, nil, err
		}
		if size < 56 {
			return 0, nil, ErrCanonSize
		}
		return s.payload(List, hdr, size)
	}
}

// longLength reads an n-byte big-endian length following the tag and
// returns it together with the total header size.
func (s *Stream) longLength(n int) (uint64, int, error) {
	if s.pos+1+n > len(s.data) {
		return 0, 0, ErrUnexpectedEOF
	}
	lenBytes := s.data[s.pos+1 : s.pos+1+n]
	if lenBytes[0] == 0 {
		return 0, 0, ErrCanonSize
	}
	var size uint64
	for _, c := range lenBytes {
		size = size<<8 | uint64(c)
	}
	return size, 1 + n, nil
}

func (s *Stream) payload(kind Kind, hdr int, size uint64) (Kind, []byte, error) {
	start := s.pos + hdr
	end := start + int(size)
	if end > len(s.data) || end < start {
		return 0, nil, ErrUnexpectedEOF
	}
	// Canonicality: a 1-byte string below 0x80 must self-encode.
	if kind == String && hdr == 1 && size == 1 && s.data[start] < 0x80 {
		return 0, nil, ErrCanonSize
	}
	s.pos = end
	return kind, s.data[start:end], nil
}
