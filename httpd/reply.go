package httpd

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-http/outbuf"
	"github.com/momentics/hioload-http/wire"
)

// queryOutbuf returns the buffer q should write into: the shared
// connection outbuf if q is at the head of the pipeline FIFO, else q's
// private outbuf, merged in on head-advance.
func (c *Conn) queryOutbuf(q *Query) *outbuf.Outbuf {
	if c.pipeline.Length() > 0 && c.pipeline.Peek() == q {
		return c.out
	}
	return q.private
}

// advancePipeline pops answered queries off the FIFO head and merges the
// new head's private buffer into the shared connection outbuf, the
// write-coalescing optimization for pipelined responses.
func (c *Conn) advancePipeline() {
	for c.pipeline.Length() > 0 {
		head, ok := c.pipeline.Peek().(*Query)
		if !ok || !head.answered {
			break
		}
		c.pipeline.Remove()
		head.release()
	}
	if c.pipeline.Length() > 0 {
		if head, ok := c.pipeline.Peek().(*Query); ok && head.private != nil && !head.private.IsEmpty() {
			c.out.MergeDelete(head.private)
		}
	}
}

// ReplyHdrsStart must be the first reply call for q: emits the status
// line and cached Date, plus Connection: close if warranted.
func (c *Conn) ReplyHdrsStart(q *Query, code int, forceUncacheable bool) {
	if q.hdrsStarted {
		return
	}
	q.hdrsStarted = true
	ob := c.queryOutbuf(q)

	reason := wire.StatusText(code)
	ob.Addf("HTTP/1.%d %03d %s\r\n", q.info.RequestLine.VersionMin, code, reason)
	ob.Addf("Date: %s\r\n", c.date.Line(time.Now()))

	if q.connClose || c.connClose {
		ob.Adds("Connection: close\r\n")
	}
	if forceUncacheable {
		ob.Adds("Cache-Control: no-store, no-cache, must-revalidate\r\n")
		ob.Adds("Pragma: no-cache\r\n")
	}
}

// ReplyHdrsDone emits Content-Length or Transfer-Encoding as applicable
// and, unless chunked, the blank line ending the header section. A
// chunked reply's header section is ended by the CRLF that opens the
// first chunk prefix (or the terminator), see wire.ChunkStartBytes.
func (c *Conn) ReplyHdrsDone(q *Query, clen int, chunked bool) {
	if q.hdrsDone {
		return
	}
	q.hdrsDone = true
	ob := c.queryOutbuf(q)

	if clen >= 0 {
		ob.Addf("Content-Length: %d\r\n\r\n", clen)
	} else if chunked && q.info.RequestLine.VersionMin >= 1 {
		ob.Adds("Transfer-Encoding: chunked\r\n")
		q.chunked = true
	} else {
		ob.Adds("Connection: close\r\n\r\n")
		q.connClose = true
		c.connClose = true
	}
}

// chunkReservation remembers both the inline-builder offset (for PatchAt,
// which is sb-relative) and the total outbuf length right after the
// reservation (for computing the byte count since, regardless of how many
// external chunks were appended in between).
type chunkReservation struct {
	sbOffset    int
	lenAfterRes int
}

// ReplyChunkStart reserves the fixed-width chunk-size prefix; a no-op
// when q isn't in chunked mode.
func (c *Conn) ReplyChunkStart(q *Query) {
	if !q.chunked {
		return
	}
	ob := c.queryOutbuf(q)
	prefix := wire.ChunkStartBytes()
	off := ob.Reserve(len(prefix))
	ob.PatchAt(off, prefix[:])
	q.chunkRes = chunkReservation{sbOffset: off, lenAfterRes: ob.Length()}
	q.chunkStarted = true
}

// ReplyChunkDone patches the reservation from ReplyChunkStart with the
// number of bytes written since.
func (c *Conn) ReplyChunkDone(q *Query) {
	if !q.chunked || !q.chunkStarted {
		return
	}
	ob := c.queryOutbuf(q)
	res := q.chunkRes
	q.chunkStarted = false
	n := ob.Length() - res.lenAfterRes
	ob.PatchAt(res.sbOffset+2, []byte(fmt.Sprintf("%08x", n)))
}

// ReplyDone emits the terminator chunk if chunked, marks q answered and
// advances the pipeline.
func (c *Conn) ReplyDone(q *Query) {
	ob := c.queryOutbuf(q)
	if q.chunked {
		ob.Adds(wire.ChunkTerminator)
	}
	q.answered = true
	q.release()
	c.advancePipeline()
}

// Reply100Continue emits a 100 status if the request declared
// Expect: 100-continue and no body bytes have been produced yet.
func (c *Conn) Reply100Continue(q *Query) {
	if !q.expect100cont || q.hdrsStarted {
		return
	}
	ob := c.queryOutbuf(q)
	ob.Adds("HTTP/1.1 100 Continue\r\n\r\n")
	q.expect100cont = false
}

// Reject emits a minimal HTML error body via chunked encoding.
func (c *Conn) Reject(q *Query, code int, format string, args ...any) {
	c.RejectQ(q, code, format, args...)
}

// RejectQ is the same operation as Reject; kept as the primary
// implementation so internal callers (dispatch, bufferize overflow) don't
// need a *Query built from scratch for the common case of an already
// in-flight query.
func (c *Conn) RejectQ(q *Query, code int, format string, args ...any) {
	c.ReplyHdrsStart(q, code, true)
	c.ReplyHdrsDone(q, -1, true)
	c.ReplyChunkStart(q)
	c.queryOutbuf(q).Addf("<html><body><h1>%d %s</h1></body></html>", code, wire.StatusText(code))
	c.ReplyChunkDone(q)
	c.ReplyDone(q)
}

// RejectUnauthorized emits 401 + WWW-Authenticate: Basic plus a fixed
// HTML body.
func (c *Conn) RejectUnauthorized(q *Query, realm string) {
	c.ReplyHdrsStart(q, 401, true)
	ob := c.queryOutbuf(q)
	ob.Addf("WWW-Authenticate: Basic realm=%q\r\n", realm)
	c.ReplyHdrsDone(q, -1, true)
	c.ReplyChunkStart(q)
	ob.Adds("<html><body><h1>401 Unauthorized</h1></body></html>")
	c.ReplyChunkDone(q)
	c.ReplyDone(q)
}

// rejectRaw answers a framing-level error (header block too large,
// unparseable request line) before a Query even exists, directly on the
// connection outbuf, then forces connection close.
func (c *Conn) rejectRaw(code int, msg string) {
	ob := c.out
	ob.Addf("HTTP/1.1 %03d %s\r\n", code, wire.StatusText(code))
	ob.Adds("Connection: close\r\n")
	ob.Addf("Content-Length: %d\r\n\r\n", len(msg))
	ob.Adds(msg)
	c.connClose = true
}
