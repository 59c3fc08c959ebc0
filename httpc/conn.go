package httpc

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
)

// Conn is a per-connection response parser, the client-side mirror of
// httpd.Conn.
type Conn struct {
	fd   int
	ev   *el.Ev
	loop *el.Loop
	cfg  *Config
	pool *Pool

	in    []byte
	state parseState

	queries     *queue.Queue // FIFO of *Query, send order
	out         *outbuf.Outbuf
	dead        bool
	connClose   bool
	maxQueries  int
	inFlight    int
	busy        bool
	chunkLength int

	date wire.DateCache
}

func newConn(loop *el.Loop, fd int, cfg *Config, pool *Pool) *Conn {
	return &Conn{
		fd:         fd,
		loop:       loop,
		cfg:        cfg,
		pool:       pool,
		queries:    queue.New(),
		out:        outbuf.New(),
		maxQueries: cfg.MaxQueries,
	}
}

// Spawn wraps an already-connected fd (e.g. accepted by a peer acting as
// a relay) in an HTTPC reader immediately.
func Spawn(loop *el.Loop, fd int, cfg *Config, pool *Pool) (*Conn, error) {
	c := newConn(loop, fd, cfg, pool)
	ev, err := loop.RegisterFd(fd, el.PollIn, c.onEvent, c)
	if err != nil {
		return nil, err
	}
	c.ev = ev
	ev.WatchActivity(el.PollIn|el.PollOut, cfg.NoActDelayMs)
	if pool != nil {
		pool.attach(c)
	}
	return c, nil
}

// Connect opens a non-blocking TCP connection to addr and begins the
// connect-completion handshake; the connection starts busy and becomes
// ready once the socket finishes connecting.
func Connect(addr string, loop *el.Loop, cfg *Config, pool *Pool) (*Conn, error) {
	fd, err := dialNonblocking(addr)
	if err != nil {
		return nil, newErr(ErrCodeConnect, err.Error())
	}
	c := newConn(loop, fd, cfg, pool)
	c.busy = true
	ev, err := loop.RegisterFd(fd, el.PollOut, c.onConnecting, c)
	if err != nil {
		closeFd(fd)
		return nil, err
	}
	c.ev = ev
	ev.WatchActivity(el.PollIn|el.PollOut, cfg.NoActDelayMs)
	if pool != nil {
		pool.attach(c)
	}
	return c, nil
}

func (c *Conn) onConnecting(_ *el.Ev, fd int, _ el.PollMask, _ any) {
	ok, err := connectStatus(fd)
	if err != nil {
		c.teardown(StatusAbort)
		return
	}
	if !ok {
		return // still in progress
	}
	c.ev.SetMask(el.PollIn)
	c.ev.SetCallback(c.onEvent)
	c.setReady()
}

func (c *Conn) setReady() {
	c.busy = false
	if c.pool != nil {
		c.pool.markReady(c)
	}
}

func (c *Conn) setBusy() {
	if c.busy {
		return
	}
	c.busy = true
	if c.pool != nil {
		c.pool.markBusy(c)
	}
}

func (c *Conn) onEvent(_ *el.Ev, fd int, mask el.PollMask, _ any) {
	if mask == el.PollNoAct {
		c.onInactivity()
		return
	}
	if mask&el.PollIn != 0 {
		buf := c.cfg.Allocator.Alloc(readBufSize, 0)
		n, err := readFd(fd, buf)
		if n > 0 {
			c.in = append(c.in, buf[:n]...)
		}
		c.cfg.Allocator.Free(buf, 0)
		if n > 0 {
			if c.ev != nil {
				c.ev.NotifyActivity()
			}
			if err2 := c.runParser(); err2 != nil {
				c.teardown(statusForErr(err2))
				return
			}
		}
		if err != nil || n == 0 {
			c.teardown(StatusAbort)
			return
		}
	}
	if mask&el.PollOut != 0 {
		c.drainOutput()
	}
	if c.connClose && c.queries.Length() == 0 && c.out.IsEmpty() {
		c.teardown(StatusAbort)
	}
}

func (c *Conn) onInactivity() {
	if c.queries.Length() > 0 {
		if head, ok := c.queries.Peek().(*Query); ok && head.expect100 {
			if head.on100Cont != nil {
				head.on100Cont(head)
			}
			head.expect100 = false
			if c.ev != nil {
				c.ev.WatchActivity(el.PollIn|el.PollOut, c.cfg.NoActDelayMs)
			}
			return
		}
	}
	c.teardown(StatusAbort)
}

func (c *Conn) runParser() error {
	for {
		progressed, err := c.step()
		if err != nil {
			return err
		}
		if !progressed {
			break
		}
	}
	c.drainOutput()
	return nil
}

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

func (c *Conn) headQuery() *Query {
	if c.queries.Length() == 0 {
		return nil
	}
	q, _ := c.queries.Peek().(*Query)
	return q
}

func (c *Conn) stepIdle() (bool, error) {
	if len(c.in) > 0 && c.queries.Length() == 0 {
		return false, errSpurious
	}
	end := c.findHeaderEnd()
	if end < 0 {
		return false, nil
	}
	block := string(c.in[:end])
	c.in = c.in[end+4:]

	lines := wire.SplitLines(block)
	if len(lines) == 0 {
		return false, errSpurious
	}
	sl, err := wire.ParseStatusLine(lines[0])
	if err != nil {
		return false, errSpurious
	}
	hdrs, err := wire.ParseHeaderBlock(lines[1:])
	if err != nil {
		return false, errSpurious
	}

	q := c.headQuery()
	if q == nil {
		return false, errSpurious
	}

	connClose := false
	chunked := false
	clen := -1
	if h, ok := wire.HeaderByWK(hdrs, wire.WKHdrConnection); ok && wire.ContainsToken(h.Value, "close") {
		connClose = true
	}
	if h, ok := wire.HeaderByWK(hdrs, wire.WKHdrTransferEncoding); ok {
		chunked = !wire.EqualsFold(h.Value, "identity")
	}
	if h, ok := wire.HeaderByWK(hdrs, wire.WKHdrContentLength); ok {
		clen, _ = strconv.Atoi(h.Value)
	}

	if sl.Code >= 100 && sl.Code < 200 {
		if sl.VersionMaj == 1 && sl.VersionMin == 0 {
			return false, errSpurious
		}
		if sl.Code == 100 && q.expect100 {
			q.info = &RInfo{Status: sl, Headers: hdrs}
			if q.on100Cont != nil {
				q.on100Cont(q)
			}
			q.info = nil
		}
		q.expect100 = false
		return true, nil
	}

	if q.expect100 && sl.Code >= 200 && sl.Code < 300 {
		return false, errExp100Cont
	}

	q.info = &RInfo{Status: sl, Headers: hdrs}
	if q.onHdrs != nil {
		if err := q.onHdrs(q); err != nil {
			return false, err
		}
	}
	if connClose {
		// The peer is closing after this response; stop accepting new
		// queries but still read this response's body per chunked/clen
		// below. Queries other than this one are aborted once it
		// finishes, in finishHeadQuery.
		c.maxQueries = 0
		c.connClose = true
		c.setBusy()
	}

	if chunked {
		c.chunkLength = 0
		c.state = stateChunkHdr
	} else {
		if clen < 0 {
			clen = 0
		}
		c.chunkLength = clen
		c.state = stateBody
	}
	return true, nil
}

var errSpurious = newErr(ErrCodeFatal, "spurious or malformed response")
var errExp100Cont = newErr(ErrCodeFatal, "2xx response while 100-continue outstanding")

// finishHeadQuery removes q from the FIFO head and finishes it with
// status. If the connection is closing, any queries still pipelined
// behind q will never get a matching response, so they're aborted here
// too, once q's own body has actually been consumed.
func (c *Conn) finishHeadQuery(q *Query, status Status) {
	c.queries.Remove()
	q.finish(status)
	if c.connClose {
		for c.queries.Length() > 0 {
			other := c.queries.Remove().(*Query)
			other.finish(StatusAbort)
		}
	}
}

func (c *Conn) stepBody() (bool, error) {
	q := c.headQuery()
	if q == nil {
		return false, errSpurious
	}
	n := c.chunkLength
	if n > len(c.in) {
		n = len(c.in)
	}
	if n > 0 {
		if q.onData != nil {
			if err := q.onData(c.in[:n]); err != nil {
				return false, err
			}
		}
		c.in = c.in[n:]
		c.chunkLength -= n
	}
	if c.chunkLength > 0 {
		return n > 0, nil
	}
	c.finishHeadQuery(q, StatusOK)
	c.state = stateIdle
	return true, nil
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
		return false, errSpurious
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
	q := c.headQuery()
	if q == nil {
		return false, errSpurious
	}
	if c.chunkLength > 0 {
		n := c.chunkLength
		if n > len(c.in) {
			n = len(c.in)
		}
		if n > 0 {
			if q.onData != nil {
				if err := q.onData(c.in[:n]); err != nil {
					return false, err
				}
			}
			c.in = c.in[n:]
			c.chunkLength -= n
		}
		if c.chunkLength > 0 {
			return n > 0, nil
		}
	}
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
			q := c.headQuery()
			if q == nil {
				return false, errSpurious
			}
			c.finishHeadQuery(q, StatusOK)
			c.state = stateIdle
			return true, nil
		}
	}
}

func indexCRLF(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' {
			return i
		}
	}
	return -1
}

// AttachQuery appends q to the connection's send-order FIFO, marking the
// connection busy once its pipeline depth or per-connection query
// budget is exhausted.
func (c *Conn) AttachQuery(q *Query) error {
	if c.maxQueries <= 0 || q.hdrsStarted || q.hdrsDone {
		return errSpurious
	}
	q.owner = c
	c.queries.Add(q)
	c.maxQueries--
	if c.maxQueries == 0 {
		c.connClose = true
		c.setBusy()
	}
	c.inFlight++
	if c.inFlight >= c.cfg.PipelineDepth {
		c.setBusy()
	}
	return nil
}

func (c *Conn) detachQuery(q *Query) {
	c.inFlight--
	if c.inFlight < c.cfg.PipelineDepth && c.maxQueries > 0 {
		c.setReady()
	}
}

func (c *Conn) drainOutput() {
	if c.out.IsEmpty() {
		return
	}
	_, err := c.out.Write(c.fd)
	if err != nil {
		c.teardown(StatusAbort)
		return
	}
	mask := el.PollIn
	if !c.out.IsEmpty() {
		mask |= el.PollOut
	}
	if c.ev != nil {
		c.ev.SetMask(mask)
	}
}

func (c *Conn) teardown(status Status) {
	if c.dead {
		return
	}
	c.dead = true
	if c.pool != nil {
		c.pool.detach(c)
	}
	if c.ev != nil {
		c.loop.UnregisterFd(c.ev)
	}
	c.out.Close()
	first := true
	for c.queries.Length() > 0 {
		q := c.queries.Remove().(*Query)
		if first {
			q.finish(status)
			first = false
		} else {
			q.finish(StatusAbort)
		}
	}
	closeFd(c.fd)
}

// statusForErr maps a parser sentinel error to the on_done status it
// represents: EXP100CONT/TOOLARGE fall out as distinct statuses, anything
// else surfaces as a generic parse INVALID.
func statusForErr(err error) Status {
	switch err {
	case errExp100Cont:
		return StatusExp100Cont
	case errTooLarge:
		return StatusTooLarge
	default:
		return StatusInvalid
	}
}
