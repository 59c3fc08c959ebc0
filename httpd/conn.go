package httpd

import (
	"strconv"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-http/el"
	"github.com/momentics/hioload-http/outbuf"
	"github.com/momentics/hioload-http/wire"
)

const readBufSize = 64 * 1024

type parseState uint8

const (
	stateIdle parseState = iota
	stateBody
	stateChunkHdr
	stateChunk
	stateChunkTrailer
	stateClose
)

// Conn is a per-connection request parser state machine:
// IDLE → BODY | CHUNK_HDR → (CHUNK | CHUNK_TRAILER)* → IDLE | CLOSE.
type Conn struct {
	fd       int
	ev       *el.Ev
	loop     *el.Loop
	cfg      *Config
	trie     *Trie
	listener *Listener

	in    []byte // accumulated unparsed input
	state parseState

	pipeline   *queue.Queue // FIFO of *Query, in arrival order
	out        *outbuf.Outbuf
	dead       bool
	connClose  bool
	maxQueries int

	chunkLength int // remaining bytes for BODY/CHUNK states
	headHdr     *headerParse
	cur         *Query // query currently being parsed/body-consumed

	date wire.DateCache
}

// headerParse is an empty placeholder; IDLE accumulates the header block
// directly in Conn.in.
type headerParse struct{}

func newConn(loop *el.Loop, fd int, cfg *Config, trie *Trie, listener *Listener) *Conn {
	return &Conn{
		fd:         fd,
		loop:       loop,
		cfg:        cfg,
		trie:       trie,
		listener:   listener,
		pipeline:   queue.New(),
		out:        outbuf.New(),
		maxQueries: cfg.MaxQueries,
	}
}

// Spawn registers fd with read-interest, arms the inactivity watchdog and
// begins IDLE parsing.
func Spawn(loop *el.Loop, fd int, cfg *Config, trie *Trie) (*Conn, error) {
	return spawnFor(loop, fd, cfg, trie, nil)
}

func spawnFor(loop *el.Loop, fd int, cfg *Config, trie *Trie, listener *Listener) (*Conn, error) {
	c := newConn(loop, fd, cfg, trie, listener)
	ev, err := loop.RegisterFd(fd, el.PollIn, c.onReadable, c)
	if err != nil {
		return nil, err
	}
	c.ev = ev
	ev.WatchActivity(el.PollIn|el.PollOut, cfg.NoActDelayMs)
	return c, nil
}

func (c *Conn) onReadable(_ *el.Ev, fd int, mask el.PollMask, _ any) {
	if mask&el.PollOut != 0 {
		c.drainOutput()
	}
	if mask&el.PollIn == 0 {
		return
	}
	buf := c.cfg.Allocator.Alloc(readBufSize, 0)
	n, err := readFd(fd, buf)
	if n > 0 {
		c.in = append(c.in, buf[:n]...)
	}
	c.cfg.Allocator.Free(buf, 0)
	if n > 0 {
		c.runParser()
	}
	if err != nil || n == 0 {
		c.teardown()
	}
}

func (c *Conn) runParser() {
	for {
		progressed, err := c.step()
		if err != nil {
			c.teardown()
			return
		}
		if !progressed {
			break
		}
	}
	c.enforceBackpressure()
	c.drainOutput()
}

// step attempts to make one unit of parsing progress; returns false when
// more input is needed.
func (c *Conn) step() (bool, error) {
	switch c.state {
	case stateIdle:
		return c.stepIdle()
	case stateBody:
		return c.stepBody()
	case stateChunkHdr:
		return c.stepChunkHdr()
	case stateChunk:
		return c.stepChunk()
	case stateChunkTrailer:
		return c.stepChunkTrailer()
	case stateClose:
		return false, nil
	}
	return false, nil
}

func (c *Conn) findHeaderEnd() int {
	for i := 0; i+3 < len(c.in); i++ {
		if c.in[i] == '\r' && c.in[i+1] == '\n' && c.in[i+2] == '\r' && c.in[i+3] == '\n' {
			return i
		}
	}
	return -1
}

func (c *Conn) stepIdle() (bool, error) {
	if c.maxQueries <= 0 {
		c.connClose = true
	}
	end := c.findHeaderEnd()
	if end < 0 {
		if len(c.in) > c.cfg.HeaderSizeMax {
			c.rejectRaw(403, "header block too large")
			c.connClose = true
			return false, errClose
		}
		return false, nil
	}
	if end > c.cfg.HeaderSizeMax {
		c.rejectRaw(403, "header block too large")
		c.connClose = true
		return false, errClose
	}

	block := string(c.in[:end])
	c.in = c.in[end+4:]
	c.maxQueries--

	lines := wire.SplitLines(block)
	if len(lines) == 0 {
		c.rejectRaw(400, "empty request")
		return false, errClose
	}
	rl, err := wire.ParseRequestLine(lines[0])
	if err != nil {
		c.rejectRaw(400, "malformed request line")
		return false, errClose
	}
	hdrs, err := wire.ParseHeaderBlock(lines[1:])
	if err != nil {
		c.rejectRaw(400, "malformed header")
		return false, errClose
	}

	q := newQuery(c, QInfo{RequestLine: rl, Headers: hdrs})
	if h, ok := wire.HeaderByWK(hdrs, wire.WKHdrExpect); ok && wire.ContainsToken(h.Value, "100-continue") {
		q.expect100cont = true
	}
	if h, ok := wire.HeaderByWK(hdrs, wire.WKHdrConnection); ok && wire.ContainsToken(h.Value, "close") {
		q.connClose = true
	}
	if rl.VersionMaj == 1 && rl.VersionMin == 0 {
		q.connClose = true
	}
	q.parsed = true
	c.pipeline.Add(q)

	c.dispatch(q)

	c.cur = q
	c.chunkLength = 0
	if te, ok := wire.HeaderByWK(hdrs, wire.WKHdrTransferEncoding); ok {
		if !wire.EqualsFold(te.Value, "identity") {
			if !wire.EqualsFold(te.Value, "chunked") {
				c.RejectQ(q, 501, "unsupported transfer-encoding")
				c.state = stateIdle
				return true, nil
			}
			q.chunked = true
			c.state = stateChunkHdr
			return true, nil
		}
	}
	if cl, ok := wire.HeaderByWK(hdrs, wire.WKHdrContentLength); ok {
		n, _ := strconv.Atoi(cl.Value)
		c.chunkLength = n
	} else if rl.Method == wire.POST || rl.Method == wire.PUT {
		c.RejectQ(q, 411, "length required")
		c.connClose = true
		c.finishRequest()
		return true, nil
	}
	c.state = stateBody
	return true, nil
}

func (c *Conn) dispatch(q *Query) {
	if q.info.RequestLine.Method == wire.TRACE {
		c.serveTraceInline(q)
		return
	}
	trig, prefix, tail := c.trie.Resolve(q.info.RequestLine.Method, q.info.RequestLine.Path)
	if trig == nil {
		if c.trie.IsEmpty(q.info.RequestLine.Method) {
			c.RejectQ(q, 501, "method not implemented")
		} else {
			c.RejectQ(q, 404, "no trigger matched")
		}
		return
	}
	_ = prefix
	_ = tail
	if trig.Auth != nil {
		user, pass, ok := extractBasicAuth(q.info.Headers)
		if !ok || !trig.Auth(user, pass) {
			c.RejectUnauthorized(q, trig.Realm)
			return
		}
	}
	trig.Cb(q)
}

// serveTraceInline echoes the request line and header block (as parsed,
// folded lines joined) as the response body, always chunked on HTTP/1.1;
// TRACE on HTTP/1.0 is refused with 501.
func (c *Conn) serveTraceInline(q *Query) {
	if q.info.RequestLine.VersionMaj == 1 && q.info.RequestLine.VersionMin == 0 {
		c.RejectQ(q, 501, "TRACE not supported on HTTP/1.0")
		return
	}
	c.ReplyHdrsStart(q, 200, true)
	c.ReplyHdrsDone(q, -1, true)
	rl := q.info.RequestLine
	body := rl.Method.String() + " " + rl.Target + " HTTP/" +
		strconv.Itoa(rl.VersionMaj) + "." + strconv.Itoa(rl.VersionMin) + "\r\n"
	for _, h := range q.info.Headers {
		body += h.Key + ": " + h.Value + "\r\n"
	}
	c.ReplyChunkStart(q)
	c.queryOutbuf(q).Adds(body)
	c.ReplyChunkDone(q)
	c.ReplyDone(q)
}

func (c *Conn) stepBody() (bool, error) {
	n := c.chunkLength
	if n > len(c.in) {
		n = len(c.in)
	}
	if n > 0 {
		c.feedData(n)
	}
	if c.chunkLength > 0 {
		return n > 0, nil
	}
	c.finishRequest()
	return true, nil
}

func (c *Conn) feedData(n int) {
	if c.cur != nil && c.cur.onData != nil {
		c.cur.onData(c.in[:n])
	}
	c.in = c.in[n:]
	c.chunkLength -= n
}

func (c *Conn) stepChunkHdr() (bool, error) {
	idx := indexCRLF(c.in)
	if idx < 0 {
		return false, nil
	}
	line := string(c.in[:idx])
	c.in = c.in[idx+2:]
	hdr, err := wire.ParseChunkHeader(line)
	if err != nil {
		return false, errClose
	}
	if hdr.Last {
		c.state = stateChunkTrailer
	} else {
		c.chunkLength = hdr.Size
		c.state = stateChunk
	}
	return true, nil
}

func (c *Conn) stepChunk() (bool, error) {
	if c.chunkLength > 0 {
		n := c.chunkLength
		if n > len(c.in) {
			n = len(c.in)
		}
		if n > 0 {
			c.feedData(n)
		}
		if c.chunkLength > 0 {
			return n > 0, nil
		}
	}
	// trailing CRLF after chunk data
	if len(c.in) < 2 {
		return false, nil
	}
	c.in = c.in[2:]
	c.state = stateChunkHdr
	return true, nil
}

func (c *Conn) stepChunkTrailer() (bool, error) {
	for {
		idx := indexCRLF(c.in)
		if idx < 0 {
			return false, nil
		}
		line := c.in[:idx]
		c.in = c.in[idx+2:]
		if len(line) == 0 {
			c.finishRequest()
			return true, nil
		}
	}
}

func (c *Conn) finishRequest() {
	q := c.cur
	c.cur = nil
	if q != nil && q.onDone != nil {
		q.onDone()
	}
	if q != nil {
		q.release() // drops the "unparsed" reference
	}
	if c.connClose || (q != nil && q.connClose) {
		c.connClose = true
	}
	if c.connClose {
		c.state = stateClose
		return
	}
	c.state = stateIdle
}

func indexCRLF(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' {
			return i
		}
	}
	return -1
}

var errClose = &Error{Code: ErrCodeBadRequest, Message: "connection closing due to framing error"}

func (c *Conn) enforceBackpressure() {
	inFlight := c.pipeline.Length()
	overLimit := inFlight >= c.cfg.PipelineDepthIn || c.out.Length() >= c.cfg.OutbufMaxSize
	mask := el.PollOut
	if !overLimit {
		mask |= el.PollIn
	}
	if c.ev != nil {
		c.ev.SetMask(mask)
	}
}

func (c *Conn) drainOutput() {
	if c.out.IsEmpty() {
		return
	}
	n, err := c.out.Write(c.fd)
	_ = n
	if err != nil {
		c.teardown()
		return
	}
	c.enforceBackpressure()
	if c.out.IsEmpty() && c.state == stateClose && c.pipeline.Length() == 0 {
		c.teardown()
	}
}

func (c *Conn) teardown() {
	if c.dead {
		return
	}
	c.dead = true
	if c.ev != nil {
		c.loop.UnregisterFd(c.ev)
	}
	c.out.Close()
	for c.pipeline.Length() > 0 {
		q := c.pipeline.Remove().(*Query)
		q.release()
	}
	closeFd(c.fd)
	if c.listener != nil {
		c.listener.connClosed()
	}
}
