package el

import (
	"fmt"
)

// reactor abstracts the OS polling backend (epoll on Linux).
type reactor interface {
	Add(fd int, mask PollMask) error
	Modify(fd int, mask PollMask) error
	Remove(fd int) error
	Wait(timeoutMs int, out []readyFd) (int, error)
	Close() error
}

type readyFd struct {
	fd   int
	mask PollMask
}

const maxReadyBatch = 256

// Loop is the single-threaded reactor: owns the slab, timer heap, signal
// bitmap, child-pid table, before/after lists, proxy ready list and the
// epoll backend.
type Loop struct {
	slab   *slab
	timers timerHeap
	fds    map[int]*Ev

	before []*Ev
	after  []*Ev
	proxy  []*Ev

	signalPending [64]bool
	signalEvs     map[int][]*Ev
	childEvs      map[int][]*Ev

	watchdogs map[*Ev]*Ev // activity-watchdog timer ev -> owning fd ev

	garbage []*Ev
	depth   int // loopTimeout reentrancy depth; garbage reclaimed only at 0

	active int
	unloop bool

	rx    reactor
	clk   clock
	bl    *BigLock
	ready []readyFd

	sigHandler *signalHandler
	sp         *selfPipe
}

// New constructs a Loop with the Linux epoll backend.
func New() (*Loop, error) {
	rx, err := newEpollReactor()
	if err != nil {
		return nil, fmt.Errorf("el: %w", err)
	}
	l := &Loop{
		slab:      newSlab(),
		fds:       make(map[int]*Ev),
		signalEvs: make(map[int][]*Ev),
		childEvs:  make(map[int][]*Ev),
		watchdogs: make(map[*Ev]*Ev),
		rx:        rx,
		ready:     make([]readyFd, maxReadyBatch),
	}
	return l, nil
}

// Active returns the current reference count keeping the loop alive.
func (l *Loop) Active() int { return l.active }

// Unloop requests that Loop exit after the current tick.
func (l *Loop) Unloop() { l.unloop = true }

// IsUnlooped reports whether Unloop has been called, for callers driving
// their own LoopTimeout loop instead of Loop.
func (l *Loop) IsUnlooped() bool { return l.unloop }

func (l *Loop) allocEv(kind Kind, flags Flags, data any) *Ev {
	ev := l.slab.alloc()
	ev.kind = kind
	ev.flags = flags
	ev.data = data
	ev.loop = l
	if flags&FlagRef != 0 {
		l.active++
	}
	return ev
}

// Close tears down the epoll backend. It does not release registered
// events; callers must unregister everything first.
func (l *Loop) Close() error {
	return l.rx.Close()
}
