package value

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Nil, false},
		{Bool(false), false},
		{Bool(true), true},
		{Number(0), true},
		{Number(-1), true},
	}
	for _, c := range cases {
		if got := Truthy(c.v); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestStringInterning(t *testing.T) {
	h := NewHeap()
	a := h.InternString("hello")
	b := h.InternString("hello")
	if a != b {
		t.Fatalf("expected identical interned pointers, got distinct")
	}
	if !Equal(FromObject(a), FromObject(b)) {
		t.Fatalf("interned strings with equal content must compare equal")
	}
}

func TestEqualAcrossKinds(t *testing.T) {
	if Equal(Number(1), Bool(true)) {
		t.Fatalf("values of different kinds must never be equal")
	}
}

func TestStringifyNumbers(t *testing.T) {
	if got := Stringify(Number(3)); got != "3" {
		t.Errorf("Stringify(3) = %q, want 3", got)
	}
	if got := Stringify(Number(3.5)); got != "3.5" {
		t.Errorf("Stringify(3.5) = %q, want 3.5", got)
	}
}

func TestArrayGrowOnHeap(t *testing.T) {
	h := NewHeap()
	arr := h.NewArray([]Value{Number(1), Number(2)})
	if h.Count() != 1 {
		t.Fatalf("expected 1 tracked allocation, got %d", h.Count())
	}
	if len(arr.Elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(arr.Elements))
	}
}
