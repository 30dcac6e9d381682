package vm

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestStackPushPop(t *testing.T) {
	st := NewStack()
	st.Push(uint256.NewInt(42))
	st.Push(uint256.NewInt(99))

	if st.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", st.Len())
	}
	if v := st.Pop(); v.Uint64() != 99 {
		t.Errorf("Pop() = %d, want 99", v.Uint64())
	}
	if v := st.Pop(); v.Uint64() != 42 {
		t.Errorf("Pop() = %d, want 42", v.Uint64())
	}
	if st.Len() != 0 {
		t.Errorf("Len() = %d, want 0", st.Len())
	}
}

func TestStackPeekBack(t *testing.T) {
	st := NewStack()
	st.Push(uint256.NewInt(10))
	st.Push(uint256.NewInt(20))
	st.Push(uint256.NewInt(30))

	if st.Peek().Uint64() != 30 {
		t.Errorf("Peek() = %d, want 30", st.Peek().Uint64())
	}
	if st.Back(1).Uint64() != 20 {
		t.Errorf("Back(1) = %d, want 20", st.Back(1).Uint64())
	}
	if st.Back(2).Uint64() != 10 {
		t.Errorf("Back(2) = %d, want 10", st.Back(2).Uint64())
	}
}

func TestStackDupSwap(t *testing.T) {
	st := NewStack()
	st.Push(uint256.NewInt(1))
	st.Push(uint256.NewInt(2))

	st.Dup(2) // duplicate the 2nd from top (value 1)
	if st.Peek().Uint64() != 1 {
		t.Errorf("after Dup(2), Peek() = %d, want 1", st.Peek().Uint64())
	}

	st.Swap(1) // exchange the top (1) with the element below it (2)
	if st.Peek().Uint64() != 2 {
		t.Errorf("after Swap(1), Peek() = %d, want 2", st.Peek().Uint64())
	}
}

func TestStackOverflowBound(t *testing.T) {
	st := NewStack()
	for i := 0; i < 1024; i++ {
		st.Push(uint256.NewInt(uint64(i)))
	}
	if !st.overflows(1) {
		t.Error("push at 1024 should overflow")
	}
	if st.overflows(0) {
		t.Error("stack exactly at limit should not overflow")
	}
}
