package httpc

import "testing"

func TestPoolAttachDetachTracksLen(t *testing.T) {
	p := NewPool("example.com:80", DefaultConfig(), 4)
	c1 := &Conn{}
	c2 := &Conn{busy: true}

	p.attach(c1)
	p.attach(c2)
	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", p.Len())
	}
	if len(p.ready) != 1 || len(p.busy) != 1 {
		t.Fatalf("ready=%d busy=%d, want 1/1", len(p.ready), len(p.busy))
	}

	p.markBusy(c1)
	if len(p.ready) != 0 || len(p.busy) != 2 {
		t.Fatalf("after markBusy: ready=%d busy=%d, want 0/2", len(p.ready), len(p.busy))
	}

	p.detach(c1)
	if p.Len() != 1 {
		t.Fatalf("Len() after detach = %d, want 1", p.Len())
	}
}

func TestPoolGetReturnsNilWhenSaturated(t *testing.T) {
	p := NewPool("example.com:80", DefaultConfig(), 1)
	p.attach(&Conn{busy: true})

	c, err := p.Get(nil)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if c != nil {
		t.Errorf("Get() = %v, want nil (pool saturated)", c)
	}
}
