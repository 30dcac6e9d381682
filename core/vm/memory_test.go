package vm

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
)

func TestMemorySetGet(t *testing.T) {
	m := NewMemory()
	m.Resize(64)
	m.Set(10, 4, []byte{1, 2, 3, 4})

	got := m.Get(10, 4)
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("Get = %x, want 01020304", got)
	}
	// Get copies; mutating the result must not touch memory.
	got[0] = 0xFF
	if m.GetPtr(10, 1)[0] != 1 {
		t.Error("Get returned a live reference")
	}
}

func TestMemorySet32(t *testing.T) {
	m := NewMemory()
	m.Resize(64)
	m.Set32(0, uint256.NewInt(0xDEAD))

	got := new(uint256.Int).SetBytes(m.Get(0, 32))
	if got.Uint64() != 0xDEAD {
		t.Errorf("Set32 round-trip = %#x, want 0xdead", got.Uint64())
	}
}

func TestMemoryResizeMonotonic(t *testing.T) {
	m := NewMemory()
	m.Resize(96)
	m.Resize(32)
	if m.Len() != 96 {
		t.Errorf("Len() = %d, memory must never shrink", m.Len())
	}
}

func TestMemoryZeroLengthGet(t *testing.T) {
	m := NewMemory()
	if m.Get(1000, 0) != nil {
		t.Error("zero-length Get should return nil without touching memory")
	}
	if m.Len() != 0 {
		t.Error("zero-length access expanded memory")
	}
}

func TestMemoryCopyOverlap(t *testing.T) {
	m := NewMemory()
	m.Resize(64)
	m.Set(0, 4, []byte{1, 2, 3, 4})
	m.Copy(2, 0, 4) // overlapping forward copy
	if !bytes.Equal(m.Get(2, 4), []byte{1, 2, 3, 4}) {
		t.Errorf("overlapping Copy = %x, want 01020304", m.Get(2, 4))
	}
}

func TestMemSizeZeroLength(t *testing.T) {
	// offset + 0 bytes touches nothing, even at absurd offsets.
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	size, overflow := memSize(huge, new(uint256.Int))
	if overflow || size != 0 {
		t.Errorf("memSize(huge, 0) = %d, %v; want 0, false", size, overflow)
	}
	_, overflow = memSize(huge, uint256.NewInt(1))
	if !overflow {
		t.Error("memSize with non-uint64 offset must overflow")
	}
}
