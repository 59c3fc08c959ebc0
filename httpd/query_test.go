package httpd

import (
	"testing"

	"github.com/momentics/hioload-http/wire"
)

func TestQueryReleaseWipesAtZero(t *testing.T) {
	q := newQuery(nil, QInfo{})
	if q.refcount != int(refHolderCount) {
		t.Fatalf("refcount = %d, want %d", q.refcount, refHolderCount)
	}
	q.release()
	q.release()
	if q.private == nil {
		t.Fatalf("private outbuf freed before refcount reached zero")
	}
	q.release()
	if q.private != nil {
		t.Errorf("private outbuf still set after refcount reached zero")
	}
}

func TestQueryBufferizeAccumulates(t *testing.T) {
	q := newQuery(nil, QInfo{})
	q.Bufferize(1024)
	q.onData([]byte("hello "))
	q.onData([]byte("world"))
	if got := string(q.Bufferized()); got != "hello world" {
		t.Errorf("Bufferized() = %q, want %q", got, "hello world")
	}
}

func TestQueryBufferizeRejectsOversizedContentLength(t *testing.T) {
	q := newQuery(nil, QInfo{Headers: []wire.Header{
		{WK: wire.WKHdrContentLength, Key: "Content-Length", Value: "99999"},
	}})
	q.Bufferize(10)
	if q.onData != nil {
		t.Errorf("onData installed despite oversized Content-Length")
	}
}

func TestParseContentLength(t *testing.T) {
	cases := map[string]int{"0": 0, "123": 123, "abc": -1, "": -1}
	for in, want := range cases {
		if got := parseContentLength(in); got != want {
			t.Errorf("parseContentLength(%q) = %d, want %d", in, got, want)
		}
	}
}
