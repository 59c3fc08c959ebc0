package httpd

import (
	"github.com/momentics/hioload-http/outbuf"
	"github.com/momentics/hioload-http/wire"
)

// QInfo is the immutable snapshot of a parsed request: method, HTTP minor
// version, host view, decoded path, raw query string, and header table.
type QInfo struct {
	RequestLine wire.RequestLine
	Headers     []wire.Header
}

// refHolder enumerates the three logical reference holders for a
// query's lifetime: owner, unanswered, unparsed.
type refHolder uint8

const (
	refOwner refHolder = iota
	refUnanswered
	refUnparsed
	refHolderCount
)

// Query is a per-request record. State flags advance linearly through
// the request lifecycle; Conn owns it until the connection dies, at
// which point writes through it silently no-op.
type Query struct {
	conn *Conn
	info QInfo

	refcount int

	expect100cont bool
	parsed        bool
	hdrsStarted   bool
	hdrsDone      bool
	chunkStarted  bool
	chunked       bool
	connClose     bool
	answered      bool

	chunkRes chunkReservation // valid while chunkStarted

	private *outbuf.Outbuf // pre-head-of-FIFO accumulation buffer

	onData func(p []byte)
	onDone func()

	bufferizeMax int
	bufferized   []byte
}

func newQuery(c *Conn, info QInfo) *Query {
	return &Query{
		conn:     c,
		info:     info,
		refcount: int(refHolderCount),
		private:  outbuf.New(),
	}
}

// Conn returns the owning connection, or nil if the connection has died
// and this query outlived it.
func (q *Query) Conn() *Conn {
	if q.conn == nil || q.conn.dead {
		return nil
	}
	return q.conn
}

// Info returns the immutable parsed request snapshot.
func (q *Query) Info() *QInfo { return &q.info }

// release drops one of the three logical references; once all three are
// gone the query is wiped.
func (q *Query) release() {
	q.refcount--
	if q.refcount == 0 {
		q.wipe()
	}
}

func (q *Query) wipe() {
	if q.private != nil {
		q.private.Close()
		q.private = nil
	}
}

// OnData installs the streaming body-consumption callback.
func (q *Query) OnData(cb func(p []byte)) { q.onData = cb }

// OnDone installs the end-of-request callback.
func (q *Query) OnDone(cb func()) { q.onDone = cb }

// Bufferize installs a default on_data that appends the body into an
// internal buffer bounded by max bytes; if Content-Length is present and
// exceeds max, the request is rejected immediately with 413.
func (q *Query) Bufferize(max int) {
	q.bufferizeMax = max
	if h, ok := wire.HeaderByWK(q.info.Headers, wire.WKHdrContentLength); ok {
		if n := parseContentLength(h.Value); n > max {
			q.reject413()
			return
		}
	}
	q.onData = func(p []byte) {
		if len(q.bufferized)+len(p) > q.bufferizeMax {
			q.reject413()
			return
		}
		q.bufferized = append(q.bufferized, p...)
	}
}

// Bufferized returns the body accumulated by Bufferize.
func (q *Query) Bufferized() []byte { return q.bufferized }

func (q *Query) reject413() {
	if c := q.Conn(); c != nil {
		c.Reject(q, 413, "entity too large")
	}
}

func parseContentLength(s string) int {
	if s == "" {
		return -1
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return -1
		}
		n = n*10 + int(s[i]-'0')
	}
	return n
}
