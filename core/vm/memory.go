package vm

import "github.com/holiman/uint256"

// Memory is the byte-addressed frame memory. It grows monotonically in
// 32-byte words; the quadratic expansion cost is charged by the
// interpreter's dispatch loop before Resize is called.
type Memory struct {
	store []byte
}

// NewMemory returns a new empty memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Set copies value into memory at the given offset. The caller has
// already resized memory to cover the range.
func (m *Memory) Set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}
	copy(m.store[offset:offset+size], value)
}

// Set32 writes a 32-byte big-endian word at the given offset.
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	b := val.Bytes32()
	copy(m.store[offset:offset+32], b[:])
}

// SetByte writes a single byte at the given offset.
func (m *Memory) SetByte(offset uint64, b byte) {
	m.store[offset] = b
}

// Resize grows memory to size bytes. Shrinking never happens.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) < size {
		m.store = append(m.store, make([]byte, size-uint64(len(m.store)))...)
	}
}

// Get returns a copy of memory at [offset, offset+size).
func (m *Memory) Get(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	copy(out, m.store[offset:offset+size])
	return out
}

// GetPtr returns a direct reference to memory at [offset, offset+size).
func (m *Memory) GetPtr(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// Copy moves size bytes from src to dst within memory, handling overlap
// (MCOPY).
func (m *Memory) Copy(dst, src, size uint64) {
	if size == 0 {
		return
	}
	copy(m.store[dst:dst+size], m.store[src:src+size])
}

// Len returns the current memory size in bytes.
func (m *Memory) Len() int {
	return len(m.store)
}

// Data returns the backing slice. Tracers only.
func (m *Memory) Data() []byte {
	return m.store
}
