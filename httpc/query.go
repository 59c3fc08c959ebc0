package httpc

import "github.com/momentics/hioload-http/wire"

// RInfo is the parsed response snapshot handed to on_hdrs (status line
// plus header table), the client-side mirror of httpd.QInfo.
type RInfo struct {
	Status  wire.StatusLine
	Headers []wire.Header
}

// Query is a per-request outbound record, linked into its owning
// connection's FIFO in send order.
type Query struct {
	owner *Conn
	info  *RInfo

	method wire.Method
	host   string
	uri    string

	hdrsStarted  bool
	hdrsDone     bool
	chunked      bool
	chunkStarted bool
	queryDone    bool
	expect100    bool

	chunkRes chunkReservation // valid while chunkStarted

	payloadMax int
	payload    []byte

	on100Cont func(q *Query)
	onHdrs    func(q *Query) error
	onData    func(p []byte) error
	onDone    func(status Status)
}

// NewQuery builds an outbound request record for method/host/uri;
// SetExpect100 enables the 100-continue handshake before the body is sent.
func NewQuery(method wire.Method, host, uri string) *Query {
	return &Query{method: method, host: host, uri: uri}
}

func (q *Query) SetExpect100(v bool)               { q.expect100 = v }
func (q *Query) On100Continue(cb func(q *Query))    { q.on100Cont = cb }
func (q *Query) OnHdrs(cb func(q *Query) error)     { q.onHdrs = cb }
func (q *Query) OnData(cb func(p []byte) error)     { q.onData = cb }
func (q *Query) OnDone(cb func(status Status))      { q.onDone = cb }
func (q *Query) Info() *RInfo                       { return q.info }
func (q *Query) Conn() *Conn                        { return q.owner }

// Bufferize installs a default on_data that accumulates the response body,
// capped at maxsize; exceeding it surfaces StatusTooLarge.
func (q *Query) Bufferize(maxsize int) {
	q.payloadMax = maxsize
	q.onData = func(p []byte) error {
		if len(q.payload)+len(p) > q.payloadMax {
			return errTooLarge
		}
		q.payload = append(q.payload, p...)
		return nil
	}
}

// Payload returns the body accumulated by Bufferize.
func (q *Query) Payload() []byte { return q.payload }

var errTooLarge = newErr(ErrCodeFatal, "payload exceeds bufferize ceiling")

func (q *Query) finish(status Status) {
	if q.owner != nil {
		q.owner.detachQuery(q)
		q.owner = nil
	}
	if q.onDone != nil {
		q.onDone(status)
	}
}
