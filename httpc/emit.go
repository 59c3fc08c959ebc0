package httpc

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-http/wire"
)

// QueryStart emits the request line, Host (direct mode) or absolute-form
// target (proxy mode), and Date.
func (c *Conn) QueryStart(q *Query) {
	if q.hdrsStarted {
		return
	}
	q.hdrsStarted = true
	ob := c.out

	if c.cfg.UseProxy {
		ob.Addf("%s http://%s%s HTTP/1.1\r\n", q.method.String(), q.host, q.uri)
	} else {
		ob.Addf("%s %s HTTP/1.1\r\n", q.method.String(), q.uri)
		ob.Addf("Host: %s\r\n", q.host)
	}
	ob.Addf("Date: %s\r\n", c.date.Line(time.Now()))
	if c.connClose {
		ob.Adds("Connection: close\r\n")
	}
}

// QueryHdrsDone emits Expect: 100-continue (if armed), Content-Length or
// Transfer-Encoding, and, unless chunked, the blank line ending the header
// block. A chunked request's header block is ended by the CRLF that opens
// the first chunk prefix (or the terminator).
func (c *Conn) QueryHdrsDone(q *Query, clen int, chunked bool) {
	if q.hdrsDone {
		return
	}
	q.hdrsDone = true
	ob := c.out

	if q.expect100 {
		ob.Adds("Expect: 100-continue\r\n")
	}
	if clen >= 0 {
		ob.Addf("Content-Length: %d\r\n", clen)
	}
	if chunked {
		q.chunked = true
		ob.Adds("Transfer-Encoding: chunked\r\n")
	} else {
		ob.Adds("\r\n")
	}
}

type chunkReservation struct {
	sbOffset    int
	lenAfterRes int
}

// QueryChunkStart reserves the fixed-width chunk-size prefix.
func (c *Conn) QueryChunkStart(q *Query) {
	if !q.chunked {
		return
	}
	ob := c.out
	prefix := wire.ChunkStartBytes()
	off := ob.Reserve(len(prefix))
	ob.PatchAt(off, prefix[:])
	q.chunkRes = chunkReservation{sbOffset: off, lenAfterRes: ob.Length()}
	q.chunkStarted = true
}

// QueryChunkDone patches the reservation from QueryChunkStart with the
// number of bytes written since.
func (c *Conn) QueryChunkDone(q *Query) {
	if !q.chunked || !q.chunkStarted {
		return
	}
	ob := c.out
	res := q.chunkRes
	q.chunkStarted = false
	n := ob.Length() - res.lenAfterRes
	ob.PatchAt(res.sbOffset+2, []byte(fmt.Sprintf("%08x", n)))
}

// QueryDone emits the chunk terminator if needed and marks the request
// fully sent; the response is dispatched asynchronously via on_hdrs/
// on_data/on_done as bytes arrive.
func (c *Conn) QueryDone(q *Query) {
	if q.chunked {
		c.out.Adds(wire.ChunkTerminator)
	}
	q.queryDone = true
	c.drainOutput()
}
