package atomic_test

import (
	"testing"

	libatm "github.com/nabbar/reactor/atomic"
)

func TestValue_DefaultLoad(t *testing.T) {
	v := libatm.NewValueDefault[int](42, 99)
	if got := v.Load(); got != 42 {
		t.Fatalf("expected default load 42, got %d", got)
	}
}

func TestValue_StoreAndLoad(t *testing.T) {
	v := libatm.NewValue[string]()
	v.Store("connected")
	if got := v.Load(); got != "connected" {
		t.Fatalf("expected %q, got %q", "connected", got)
	}
}

func TestValue_StoreZeroUsesDefaultStore(t *testing.T) {
	v := libatm.NewValueDefault[int](0, 7)
	v.Store(0)
	if got := v.Load(); got != 7 {
		t.Fatalf("expected default store 7 for zero input, got %d", got)
	}
}

func TestValue_Swap(t *testing.T) {
	v := libatm.NewValue[int]()
	v.Store(1)
	old := v.Swap(2)
	if old != 1 {
		t.Fatalf("expected old value 1, got %d", old)
	}
	if got := v.Load(); got != 2 {
		t.Fatalf("expected new value 2, got %d", got)
	}
}

func TestValue_CompareAndSwap(t *testing.T) {
	v := libatm.NewValue[int]()
	v.Store(5)

	if swapped := v.CompareAndSwap(4, 6); swapped {
		t.Fatalf("expected CompareAndSwap to fail on mismatched old value")
	}
	if swapped := v.CompareAndSwap(5, 6); !swapped {
		t.Fatalf("expected CompareAndSwap to succeed on matching old value")
	}
	if got := v.Load(); got != 6 {
		t.Fatalf("expected 6 after successful swap, got %d", got)
	}
}

func TestCast_TypeMismatchReturnsFalse(t *testing.T) {
	if _, ok := libatm.Cast[int]("not an int"); ok {
		t.Fatalf("expected Cast to fail on type mismatch")
	}
}

func TestCast_ZeroValueIsTreatedAsAbsent(t *testing.T) {
	if _, ok := libatm.Cast[int](0); ok {
		t.Fatalf("expected Cast to report the zero value as not cast (mirrors atomic.Value's empty load)")
	}
}

func TestIsEmpty(t *testing.T) {
	if !libatm.IsEmpty[string](nil) {
		t.Fatalf("expected nil to be empty")
	}
	if libatm.IsEmpty[int](3) {
		t.Fatalf("expected non-zero int to not be empty")
	}
}
