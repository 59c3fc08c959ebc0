package httpd

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-http/el"
	"github.com/momentics/hioload-http/wire"
)

func newTestLoop(t *testing.T) *el.Loop {
	t.Helper()
	l, err := el.New()
	if err != nil {
		t.Fatalf("el.New() error: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func pumpUntil(t *testing.T, loop *el.Loop, cond func() bool) {
	t.Helper()
	for i := 0; i < 200 && !cond(); i++ {
		if err := loop.LoopTimeout(5); err != nil {
			t.Fatalf("LoopTimeout error: %v", err)
		}
	}
	if !cond() {
		t.Fatal("condition never became true")
	}
}

func TestConnServesSimpleGet(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	clientFd, serverFd := fds[0], fds[1]
	defer unix.Close(clientFd)

	loop := newTestLoop(t)
	trie := NewTrie()
	trie.Register(wire.GET, "/hello", &Trigger{Cb: func(q *Query) {
		c := q.Conn()
		c.ReplyHdrsStart(q, 200, false)
		c.ReplyHdrsDone(q, 5, false)
		c.queryOutbuf(q).Adds("world")
		c.ReplyDone(q)
	}})

	cfg := DefaultConfig()
	if _, err := Spawn(loop, serverFd, cfg, trie); err != nil {
		t.Fatalf("Spawn error: %v", err)
	}

	req := "GET /hello HTTP/1.1\r\nHost: test\r\n\r\n"
	if _, err := unix.Write(clientFd, []byte(req)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var resp []byte
	pumpUntil(t, loop, func() bool {
		buf := make([]byte, 4096)
		n, _ := unix.Read(clientFd, buf)
		if n > 0 {
			resp = append(resp, buf[:n]...)
		}
		return containsWorld(resp)
	})

	if !containsWorld(resp) {
		t.Errorf("response %q does not contain body 'world'", resp)
	}
}

func containsWorld(b []byte) bool {
	s := string(b)
	for i := 0; i+5 <= len(s); i++ {
		if s[i:i+5] == "world" {
			return true
		}
	}
	return false
}

func TestConnRejectsUnknownRoute(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	clientFd, serverFd := fds[0], fds[1]
	defer unix.Close(clientFd)

	loop := newTestLoop(t)
	trie := NewTrie()
	trie.Register(wire.GET, "/known", &Trigger{Cb: func(q *Query) {}})

	cfg := DefaultConfig()
	if _, err := Spawn(loop, serverFd, cfg, trie); err != nil {
		t.Fatalf("Spawn error: %v", err)
	}

	req := "GET /unknown HTTP/1.1\r\nHost: test\r\n\r\n"
	if _, err := unix.Write(clientFd, []byte(req)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var resp []byte
	pumpUntil(t, loop, func() bool {
		buf := make([]byte, 4096)
		n, _ := unix.Read(clientFd, buf)
		if n > 0 {
			resp = append(resp, buf[:n]...)
		}
		return len(resp) >= len("HTTP/1.1 404")
	})
	if string(resp[:len("HTTP/1.1 404")]) != "HTTP/1.1 404" {
		t.Errorf("response %q, want 404 status", resp)
	}
}

func TestConnRejectsPostWithoutLength(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	clientFd, serverFd := fds[0], fds[1]
	defer unix.Close(clientFd)

	loop := newTestLoop(t)
	trie := NewTrie()
	trie.Register(wire.POST, "/up", &Trigger{Cb: func(q *Query) {}})

	cfg := DefaultConfig()
	if _, err := Spawn(loop, serverFd, cfg, trie); err != nil {
		t.Fatalf("Spawn error: %v", err)
	}

	req := "POST /up HTTP/1.1\r\nHost: test\r\n\r\n"
	if _, err := unix.Write(clientFd, []byte(req)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var resp []byte
	pumpUntil(t, loop, func() bool {
		buf := make([]byte, 4096)
		n, _ := unix.Read(clientFd, buf)
		if n > 0 {
			resp = append(resp, buf[:n]...)
		}
		return len(resp) >= len("HTTP/1.1 411")
	})
	if string(resp[:len("HTTP/1.1 411")]) != "HTTP/1.1 411" {
		t.Errorf("response %q, want 411 status", resp)
	}
}
