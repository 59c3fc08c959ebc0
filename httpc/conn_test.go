package httpc

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

func TestConnRoundTripsSimpleResponse(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	serverFd, clientFd := fds[0], fds[1]
	defer unix.Close(serverFd)

	loop := newTestLoop(t)
	cfg := DefaultConfig()
	c, err := Spawn(loop, clientFd, cfg, nil)
	if err != nil {
		t.Fatalf("Spawn error: %v", err)
	}

	var gotStatus int
	var gotBody []byte
	done := false

	q := NewQuery(wire.GET, "example.com", "/x")
	q.OnHdrs(func(q *Query) error {
		gotStatus = q.Info().Status.Code
		return nil
	})
	q.Bufferize(4096)
	q.OnDone(func(status Status) {
		gotBody = q.Payload()
		done = status == StatusOK
	})

	if err := c.AttachQuery(q); err != nil {
		t.Fatalf("AttachQuery error: %v", err)
	}
	c.QueryStart(q)
	c.QueryHdrsDone(q, -1, false)
	c.QueryDone(q)

	resp := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	if _, err := unix.Write(serverFd, []byte(resp)); err != nil {
		t.Fatalf("write response: %v", err)
	}

	pumpUntil(t, loop, func() bool { return done })

	if gotStatus != 200 {
		t.Errorf("status = %d, want 200", gotStatus)
	}
	if string(gotBody) != "hello" {
		t.Errorf("body = %q, want %q", gotBody, "hello")
	}
}

func TestConnChunkedResponse(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	serverFd, clientFd := fds[0], fds[1]
	defer unix.Close(serverFd)

	loop := newTestLoop(t)
	cfg := DefaultConfig()
	c, err := Spawn(loop, clientFd, cfg, nil)
	if err != nil {
		t.Fatalf("Spawn error: %v", err)
	}

	q := NewQuery(wire.GET, "example.com", "/x")
	q.Bufferize(4096)
	done := false
	q.OnDone(func(status Status) { done = status == StatusOK })

	if err := c.AttachQuery(q); err != nil {
		t.Fatalf("AttachQuery error: %v", err)
	}
	c.QueryStart(q)
	c.QueryHdrsDone(q, -1, false)
	c.QueryDone(q)

	resp := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"
	if _, err := unix.Write(serverFd, []byte(resp)); err != nil {
		t.Fatalf("write response: %v", err)
	}

	pumpUntil(t, loop, func() bool { return done })

	if string(q.Payload()) != "hello" {
		t.Errorf("payload = %q, want %q", q.Payload(), "hello")
	}
}

// TestConnCloseResponseStillConsumesBody checks that a Connection: close
// response's body is fully read via the chunked/clen state machine
// before the connection tears down, and that a second, not-yet-answered
// pipelined query is aborted rather than left hanging.
func TestConnCloseResponseStillConsumesBody(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	serverFd, clientFd := fds[0], fds[1]
	defer unix.Close(serverFd)

	loop := newTestLoop(t)
	cfg := DefaultConfig()
	c, err := Spawn(loop, clientFd, cfg, nil)
	if err != nil {
		t.Fatalf("Spawn error: %v", err)
	}

	q1 := NewQuery(wire.GET, "example.com", "/first")
	q1.Bufferize(4096)
	var q1Status Status
	q1Done := false
	q1.OnDone(func(status Status) { q1Status = status; q1Done = true })

	q2 := NewQuery(wire.GET, "example.com", "/second")
	var q2Status Status
	q2Done := false
	q2.OnDone(func(status Status) { q2Status = status; q2Done = true })

	if err := c.AttachQuery(q1); err != nil {
		t.Fatalf("AttachQuery q1 error: %v", err)
	}
	c.QueryStart(q1)
	c.QueryHdrsDone(q1, -1, false)
	c.QueryDone(q1)

	if err := c.AttachQuery(q2); err != nil {
		t.Fatalf("AttachQuery q2 error: %v", err)
	}
	c.QueryStart(q2)
	c.QueryHdrsDone(q2, -1, false)
	c.QueryDone(q2)

	resp := "HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 5\r\n\r\nhello"
	if _, err := unix.Write(serverFd, []byte(resp)); err != nil {
		t.Fatalf("write response: %v", err)
	}

	pumpUntil(t, loop, func() bool { return q1Done && q2Done })

	if string(q1.Payload()) != "hello" {
		t.Errorf("q1 payload = %q, want %q", q1.Payload(), "hello")
	}
	if q1Status != StatusOK {
		t.Errorf("q1 status = %v, want StatusOK", q1Status)
	}
	if q2Status != StatusAbort {
		t.Errorf("q2 status = %v, want StatusAbort", q2Status)
	}
}
