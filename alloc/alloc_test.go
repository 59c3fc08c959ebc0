package alloc

import "testing"

func TestLibcAllocRealloc(t *testing.T) {
	a := NewLibc()
	buf := a.Alloc(4, 0)
	if len(buf) != 4 {
		t.Fatalf("Alloc len = %d, want 4", len(buf))
	}
	copy(buf, []byte("abcd"))
	buf = a.Realloc(buf, 8, 0)
	if len(buf) != 8 {
		t.Fatalf("Realloc len = %d, want 8", len(buf))
	}
	if string(buf[:4]) != "abcd" {
		t.Errorf("Realloc did not preserve prefix: %q", buf[:4])
	}
}

func TestArenaBumpAndReset(t *testing.T) {
	a := NewArena(64)
	b1 := a.Alloc(16, 0)
	b2 := a.Alloc(16, 0)
	if len(a.pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(a.pages))
	}
	if &b1[0] == &b2[0] {
		t.Error("Alloc returned overlapping blocks")
	}
	b3 := a.Alloc(64, 0)
	if len(a.pages) != 2 {
		t.Fatalf("expected page growth, got %d pages", len(a.pages))
	}
	_ = b3
	a.Reset()
	if a.off != 0 || a.cur != 0 {
		t.Errorf("Reset did not rewind offsets: cur=%d off=%d", a.cur, a.off)
	}
}

func TestRingAllocFreeRotation(t *testing.T) {
	r := NewRing(2, 8)
	f1 := r.Alloc(8, 0)
	f2 := r.Alloc(8, 0)
	if len(f1) != 8 || len(f2) != 8 {
		t.Fatal("expected 8-byte frames")
	}
	// Ring exhausted: next Alloc overflows to a fresh heap frame.
	f3 := r.Alloc(8, 0)
	if len(f3) != 8 {
		t.Fatalf("overflow frame len = %d, want 8", len(f3))
	}
	r.Free(f1, 0)
	r.Free(f2, 0)
}
