package httpc

import "github.com/momentics/hioload-http/el"

// Pool manages a set of HTTPC connections to one target, split between
// ready (idle) and busy (at pipeline capacity or mid-handshake) lists.
// A connection is on exactly one list; Len counts both.
type Pool struct {
	Addr         string
	Cfg          *Config
	MaxLen       int
	LenGlobal    *int // optional shared counter across pools
	MaxLenGlobal int

	OnReady func(p *Pool, c *Conn)
	OnBusy  func(p *Pool, c *Conn)

	ready []*Conn
	busy  []*Conn
	len   int
}

// NewPool constructs a pool targeting addr with cfg as the per-connection
// config template.
func NewPool(addr string, cfg *Config, maxLen int) *Pool {
	return &Pool{Addr: addr, Cfg: cfg, MaxLen: maxLen}
}

// Len reports the total connection count (ready + busy).
func (p *Pool) Len() int { return p.len }

func (p *Pool) attach(c *Conn) {
	p.len++
	if p.LenGlobal != nil {
		*p.LenGlobal++
	}
	if c.busy {
		p.busy = append(p.busy, c)
		if p.OnBusy != nil {
			p.OnBusy(p, c)
		}
	} else {
		p.ready = append(p.ready, c)
		if p.OnReady != nil {
			p.OnReady(p, c)
		}
	}
}

func (p *Pool) detach(c *Conn) {
	if removeConn(&p.ready, c) || removeConn(&p.busy, c) {
		p.len--
		if p.LenGlobal != nil {
			*p.LenGlobal--
		}
	}
}

func removeConn(list *[]*Conn, c *Conn) bool {
	for i, v := range *list {
		if v == c {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Pool) markReady(c *Conn) {
	if removeConn(&p.busy, c) {
		p.ready = append(p.ready, c)
		if p.OnReady != nil {
			p.OnReady(p, c)
		}
	}
}

func (p *Pool) markBusy(c *Conn) {
	if removeConn(&p.ready, c) {
		p.busy = append(p.busy, c)
		if p.OnBusy != nil {
			p.OnBusy(p, c)
		}
	}
}

// Get returns an idle connection, rotating the ready list (tail-move) for
// fairness, or launches a new one subject to MaxLen/MaxLenGlobal.
func (p *Pool) Get(loop *el.Loop) (*Conn, error) {
	if len(p.ready) == 0 {
		if p.len >= p.MaxLen || (p.LenGlobal != nil && *p.LenGlobal >= p.MaxLenGlobal) {
			return nil, nil
		}
		c, err := Connect(p.Addr, loop, p.Cfg, p)
		if err != nil {
			return nil, err
		}
		if c.busy {
			return nil, nil
		}
		return c, nil
	}
	c := p.ready[0]
	p.ready = append(p.ready[1:], c)
	return c, nil
}
