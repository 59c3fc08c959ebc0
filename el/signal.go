package el

import (
	"os"
	"os/signal"
)

// signalHandler bridges Go's os/signal channel delivery into the
// loop's atomic-bitmap-then-drain model: the real OS handler (Go's
// runtime signal dispatcher) only ever sets a pending bit; user
// callbacks are invoked from inside the loop at the drain step, never
// directly from signal context.
type signalHandler struct {
	ch chan os.Signal
}

func (l *Loop) ensureSignalHandler() {
	if l.sigHandler != nil {
		return
	}
	l.sigHandler = &signalHandler{ch: make(chan os.Signal, 64)}
}

// RegisterSignal arms cb to run when signum is delivered. signum must be
// < 64 (the pending bitmap's width).
func (l *Loop) RegisterSignal(signum int, cb SignalCallback, data any) *Ev {
	l.ensureSignalHandler()
	signal.Notify(l.sigHandler.ch, signalOf(signum))
	ev := l.allocEv(KindSignal, 0, data)
	ev.signum = signum
	ev.sigCB = cb
	l.signalEvs[signum] = append(l.signalEvs[signum], ev)
	return ev
}

// UnregisterSignal cancels a previously registered signal handler.
func (l *Loop) UnregisterSignal(ev *Ev) {
	l.deferFree(ev)
}

// drainPendingSignals is called once per tick, after epoll_wait, and
// converts any buffered OS signal notifications into pending bitmap bits,
// then dispatches registered callbacks for each pending bit — a snapshot
// of registrants is taken before dispatch so a callback unregistering
// another signal handler doesn't affect this tick's iteration.
func (l *Loop) drainPendingSignals() {
	if l.sigHandler == nil {
		return
	}
	for {
		select {
		case s := <-l.sigHandler.ch:
			signum := signumOf(s)
			if signum >= 0 && signum < len(l.signalPending) {
				l.signalPending[signum] = true
			}
		default:
			goto drained
		}
	}
drained:
	for signum, pending := range l.signalPending {
		if !pending {
			continue
		}
		l.signalPending[signum] = false
		snapshot := append([]*Ev(nil), l.signalEvs[signum]...)
		for _, ev := range snapshot {
			if ev.garbage {
				continue
			}
			ev.sigCB(ev, signum, ev.data)
		}
	}
}
