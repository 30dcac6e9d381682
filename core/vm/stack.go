package vm

import (
	"github.com/holiman/uint256"

	"github.com/corevm/corevm/params"
)

// Stack is the EVM operand stack: at most 1024 256-bit words. Bounds are
// validated by the dispatch loop against each operation's stack
// requirements, so the hot accessors do no checking of their own.
type Stack struct {
	data []uint256.Int
}

// NewStack returns a new empty stack.
func NewStack() *Stack {
	return &Stack{data: make([]uint256.Int, 0, 16)}
}

// Push pushes a value onto the stack.
func (st *Stack) Push(val *uint256.Int) {
	st.data = append(st.data, *val)
}

// PushBytes pushes a big-endian byte slice as a word.
func (st *Stack) PushBytes(b []byte) {
	var v uint256.Int
	v.SetBytes(b)
	st.data = append(st.data, v)
}

// Pop removes and returns the top element.
func (st *Stack) Pop() uint256.Int {
	ret := st.data[len(st.data)-1]
	st.data = st.data[:len(st.data)-1]
	return ret
}

// Peek returns a pointer to the top element. Mutating it in place is the
// idiomatic way for binary operations to write their result.
func (st *Stack) Peek() *uint256.Int {
	return &st.data[len(st.data)-1]
}

// Back returns the nth element from the top (0 = top).
func (st *Stack) Back(n int) *uint256.Int {
	return &st.data[len(st.data)-1-n]
}

// Swap exchanges the top element with the nth element below it.
func (st *Stack) Swap(n int) {
	top := len(st.data) - 1
	st.data[top], st.data[top-n] = st.data[top-n], st.data[top]
}

// Dup pushes a copy of the nth element from the top (1 = top).
func (st *Stack) Dup(n int) {
	st.data = append(st.data, st.data[len(st.data)-n])
}

// Len returns the number of elements on the stack.
func (st *Stack) Len() int {
	return len(st.data)
}

// Data returns the underlying slice, bottom to top. Tracers only.
func (st *Stack) Data() []uint256.Int {
	return st.data
}

// overflows reports whether pushing grow elements would exceed the limit.
func (st *Stack) overflows(grow int) bool {
	return len(st.data)+grow > params.StackLimit
}
