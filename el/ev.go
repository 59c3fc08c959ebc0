// Package el
// Author: momentics <momentics@gmail.com>
//
// Single-threaded, cooperative reactor: epoll-driven fd readiness, a
// hierarchical timer min-heap, child-process reaping, UNIX signal
// delivery, before/after hook lists and ready-queue "proxy" events.
package el

// Kind discriminates the variant an ev record holds.
type Kind uint8

const (
	KindBlocker Kind = iota
	KindBefore
	KindAfter
	KindSignal
	KindChild
	KindFd
	KindTimer
	KindProxy
)

// Flags are the reference/timer/fd sub-flag bits names.
type Flags uint16

const (
	// FlagRef marks an ev holding a reference counted in Loop.active.
	FlagRef Flags = 1 << iota
	// FlagTimerNoMiss causes missed timer expirations to fire catch-up
	// reschedules instead of being silently dropped.
	FlagTimerNoMiss
	// FlagTimerLowRes opts a timer into the cached (lower-resolution)
	// clock value when RegisterTimer computes its first expiry, provided
	// the delay is at least lowResThreshold.
	FlagTimerLowRes
	// FlagTimerUpdated is reserved: nothing in the package sets or reads it.
	FlagTimerUpdated
	// FlagFdWatchActivity marks an fd ev as paired with an activity
	// watchdog timer.
	FlagFdWatchActivity
)

// PollMask is the bitmask of readiness an fd or proxy event cares about
// or reports.
type PollMask uint8

const (
	PollIn PollMask = 1 << iota
	PollOut
	PollErr
	PollHup
	// PollNoAct is the synthetic bit surfaced to an fd callback when its
	// paired activity watchdog fires.
	PollNoAct
)

// FdCallback is invoked on fd readiness (or synthetic PollNoAct).
type FdCallback func(ev *Ev, fd int, mask PollMask, data any)

// TimerCallback is invoked when a timer expires.
type TimerCallback func(ev *Ev, data any)

// SignalCallback is invoked when a pending signal is drained.
type SignalCallback func(ev *Ev, signum int, data any)

// ChildCallback is invoked when a reaped child's pid matches.
type ChildCallback func(ev *Ev, pid int, status int, data any)

// HookCallback backs Before/After list entries.
type HookCallback func(ev *Ev, data any)

// ProxyCallback fires when a proxy event's available & wanted masks
// intersect.
type ProxyCallback func(ev *Ev, available PollMask, data any)

// Ev is one registration with the loop: a discriminated record carrying a
// variant tag, flag bits, an opaque callback and datum, plus
// variant-specific state. Allocated from Loop's slab; never touched by
// user code directly except through the accessor methods below.
type Ev struct {
	kind  Kind
	flags Flags
	data  any

	// generic list linkage for Before/After/Signal/Proxy lists.
	listNext, listPrev *Ev

	// Fd variant
	fd        int
	wanted    PollMask
	activity  PollMask
	fdCB      FdCallback
	watchTimer *Ev // hidden activity watchdog, nil unless armed

	// Timer variant
	expiry     int64 // absolute monotonic ms
	repeat     int64 // ms; <=0 encodes one-shot with |repeat| = original timeout
	heapIndex  int
	timerCB    TimerCallback

	// Signal variant
	signum   int
	sigCB    SignalCallback

	// Child variant
	pid      int
	childCB  ChildCallback

	// Before/After
	hookCB HookCallback

	// Proxy variant
	available PollMask
	proxyWanted PollMask
	proxyCB   ProxyCallback

	// bookkeeping
	loop    *Loop
	garbage bool // queued on the per-tick garbage list, pending reclaim
}

// Data returns the opaque user datum attached at registration.
func (e *Ev) Data() any { return e.data }

// Fd returns the file descriptor for a Fd-variant event.
func (e *Ev) Fd() int { return e.fd }

// Kind returns the event's variant tag.
func (e *Ev) Kind() Kind { return e.kind }
