package rlp

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
)

func TestEncodeBytes(t *testing.T) {
	tests := []struct {
		input []byte
		want  []byte
	}{
		{nil, []byte{0x80}},
		{[]byte{0x00}, []byte{0x00}},
		{[]byte{0x7F}, []byte{0x7F}},
		{[]byte{0x80}, []byte{0x81, 0x80}},
		{[]byte("dog"), []byte{0x83, 'd', 'o', 'g'}},
	}
	for _, tt := range tests {
		if got := EncodeBytes(tt.input); !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeBytes(%x) = %x, want %x", tt.input, got, tt.want)
		}
	}
}

func TestEncodeLongString(t *testing.T) {
	input := bytes.Repeat([]byte{'a'}, 56)
	got := EncodeBytes(input)
	if got[0] != 0xB8 || got[1] != 56 {
		t.Errorf("long string header = %x %x, want b8 38", got[0], got[1])
	}
}

func TestUintRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 256, 1024, 1<<32 - 1, 1<<63 + 5} {
		enc := EncodeUint(v)
		got, err := NewStream(enc).Uint64()
		if err != nil {
			t.Fatalf("Uint64(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
	}
}

func TestU256RoundTrip(t *testing.T) {
	big := new(uint256.Int).Lsh(uint256.NewInt(0xDEADBEEF), 200)
	enc := AppendU256(nil, big)
	got, err := NewStream(enc).U256()
	if err != nil {
		t.Fatalf("U256: %v", err)
	}
	if !got.Eq(big) {
		t.Errorf("round trip %s -> %s", big, got)
	}
}

func TestListRoundTrip(t *testing.T) {
	var payload []byte
	payload = AppendUint(payload, 42)
	payload = AppendBytes(payload, []byte("cat"))
	enc := WrapList(payload)

	list, err := NewStream(enc).List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	v, err := list.Uint64()
	if err != nil || v != 42 {
		t.Fatalf("first item = %d, %v; want 42", v, err)
	}
	b, err := list.Bytes()
	if err != nil || string(b) != "cat" {
		t.Fatalf("second item = %q, %v; want cat", b, err)
	}
	if list.More() {
		t.Error("list should be exhausted")
	}
}

func TestNonCanonicalInt(t *testing.T) {
	// 0x820001 encodes 1 with a leading zero byte.
	if _, err := NewStream([]byte{0x82, 0x00, 0x01}).Uint64(); err != ErrCanonInt {
		t.Errorf("err = %v, want ErrCanonInt", err)
	}
	// A single byte below 0x80 wrapped in a string header.
	if _, err := NewStream([]byte{0x81, 0x05}).Bytes(); err != ErrCanonSize {
		t.Errorf("err = %v, want ErrCanonSize", err)
	}
}

func TestKindMismatch(t *testing.T) {
	if _, err := NewStream([]byte{0xC0}).Bytes(); err != ErrExpectedString {
		t.Errorf("err = %v, want ErrExpectedString", err)
	}
	if _, err := NewStream([]byte{0x80}).List(); err != ErrExpectedList {
		t.Errorf("err = %v, want ErrExpectedList", err)
	}
}

func TestTruncatedInput(t *testing.T) {
	if _, err := NewStream([]byte{0x83, 'd', 'o'}).Bytes(); err != ErrUnexpectedEOF {
		t.Errorf("err = %v, want ErrUnexpectedEOF", err)
	}
}
