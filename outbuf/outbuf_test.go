package outbuf

import (
	"os"
	"testing"
)

func TestAddBytesAndLength(t *testing.T) {
	o := New()
	o.Adds("hello ")
	o.Adds("world")
	if o.Length() != 11 {
		t.Fatalf("length = %d, want 11", o.Length())
	}
	if o.IsEmpty() {
		t.Fatal("expected non-empty")
	}
}

func TestReserveAndPatch(t *testing.T) {
	o := New()
	off := o.Reserve(4)
	o.Adds("data")
	if err := o.PatchAt(off, []byte("1234")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Length() != 8 {
		t.Fatalf("length = %d, want 8", o.Length())
	}
}

func TestWriteDrainsToPipe(t *testing.T) {
	o := New()
	o.Adds("hello ")
	o.AddExternal([]byte("world"))

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	n, err := o.Write(int(w.Fd()))
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if n != 11 {
		t.Fatalf("wrote %d bytes, want 11", n)
	}
	if !o.IsEmpty() {
		t.Error("expected outbuf to be empty after full drain")
	}

	buf := make([]byte, 11)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "hello world" {
		t.Errorf("got %q, want %q", buf, "hello world")
	}
}

func TestMergeDeletePreservesOrder(t *testing.T) {
	a := New()
	a.Adds("a")
	b := New()
	b.Adds("b")
	a.MergeDelete(b)
	if a.Length() != 2 {
		t.Fatalf("length = %d, want 2", a.Length())
	}
	if !b.IsEmpty() {
		t.Error("expected source outbuf to be emptied")
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()
	if _, err := a.Write(int(w.Fd())); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	buf := make([]byte, 2)
	r.Read(buf)
	if string(buf) != "ab" {
		t.Errorf("got %q, want ab (order not preserved)", buf)
	}
}
