package httpc

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/momentics/hioload-http/outbuf"
	"github.com/momentics/hioload-http/wire"
)

func TestQueryChunkRoundTrip(t *testing.T) {
	c := &Conn{out: outbuf.New(), cfg: DefaultConfig()}
	q := NewQuery(wire.GET, "example.com", "/x")

	c.QueryStart(q)
	c.QueryHdrsDone(q, -1, true)
	c.QueryChunkStart(q)
	c.out.Adds("hello")
	c.QueryChunkDone(q)
	c.QueryDone(q)

	raw := drainToString(t, c.out)
	if !strings.Contains(raw, "5\r\nhello\r\n") {
		t.Errorf("chunk framing missing in %q", raw)
	}
	if !strings.Contains(raw, "0\r\n\r\n") {
		t.Errorf("terminator missing in %q", raw)
	}
}

func drainToString(t *testing.T, ob *outbuf.Outbuf) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	go func() {
		for !ob.IsEmpty() {
			if _, err := ob.Write(int(w.Fd())); err != nil {
				break
			}
		}
		w.Close()
	}()
	buf, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(buf)
}
