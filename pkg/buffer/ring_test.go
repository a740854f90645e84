package buffer

import (
	"slices"
	"testing"
)

func TestRing_Tail(t *testing.T) {
	r := RingN[int16](5)
	r.Write([]int16{1, 2, 3})
	if got := r.Tail(10); !slices.Equal(got, []int16{1, 2, 3}) {
		t.Fatalf("Tail(10) = %v, want [1 2 3]", got)
	}

	r.Write([]int16{4, 5, 6, 7})
	if got := r.Tail(5); !slices.Equal(got, []int16{3, 4, 5, 6, 7}) {
		t.Fatalf("Tail(5) = %v, want [3 4 5 6 7]", got)
	}
	if got := r.Tail(2); !slices.Equal(got, []int16{6, 7}) {
		t.Fatalf("Tail(2) = %v, want [6 7]", got)
	}
}

func TestRing_OversizedWrite(t *testing.T) {
	r := RingN[int16](3)
	r.Write([]int16{1, 2, 3, 4, 5, 6, 7, 8})
	if got := r.Tail(3); !slices.Equal(got, []int16{6, 7, 8}) {
		t.Fatalf("Tail(3) = %v, want [6 7 8]", got)
	}
}

func TestRing_ZeroSize(t *testing.T) {
	r := RingN[int16](0)
	if n, err := r.Write([]int16{1, 2}); n != 2 || err != nil {
		t.Fatalf("Write = %d, %v; want 2, nil", n, err)
	}
	if got := r.Tail(2); len(got) != 0 {
		t.Fatalf("Tail(2) = %v, want empty", got)
	}
}

func TestRing_Reset(t *testing.T) {
	r := RingN[int16](4)
	r.Write([]int16{1, 2, 3})
	r.Reset()
	if got := r.Tail(4); len(got) != 0 {
		t.Fatalf("Tail(4) after Reset = %v, want empty", got)
	}
	r.Write([]int16{9})
	if got := r.Tail(4); !slices.Equal(got, []int16{9}) {
		t.Fatalf("Tail(4) = %v, want [9]", got)
	}
}
