package el

import (
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	l, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestTimerHeapOrdering(t *testing.T) {
	var h timerHeap
	a := &Ev{expiry: 30}
	b := &Ev{expiry: 10}
	c := &Ev{expiry: 20}
	h.push(a)
	h.push(b)
	h.push(c)
	if got := h.peek(); got != b {
		t.Fatalf("peek = expiry %d, want 10", got.expiry)
	}
	h.remove(b)
	if got := h.peek(); got != c {
		t.Fatalf("peek after remove = expiry %d, want 20", got.expiry)
	}
}

func TestSlabAllocGrowsGeometrically(t *testing.T) {
	s := newSlab()
	first := s.alloc()
	if first == nil {
		t.Fatal("alloc returned nil")
	}
	for i := 0; i < slabInitialBucketSize; i++ {
		s.alloc()
	}
	if len(s.buckets) < 2 {
		t.Fatalf("expected slab to grow past the first bucket, got %d buckets", len(s.buckets))
	}
	s.release(first)
	reused := s.alloc()
	if reused != first {
		t.Error("expected release'd record to be reused by the next alloc (LIFO freelist)")
	}
}

func TestRegisterTimerFiresOnce(t *testing.T) {
	l := newTestLoop(t)
	fired := 0
	l.RegisterTimer(0, 0, 0, func(_ *Ev, _ any) { fired++ }, nil)
	if err := l.LoopTimeout(10); err != nil {
		t.Fatalf("LoopTimeout error: %v", err)
	}
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
	if err := l.LoopTimeout(10); err != nil {
		t.Fatalf("LoopTimeout error: %v", err)
	}
	if fired != 1 {
		t.Errorf("one-shot timer fired again: fired = %d", fired)
	}
}

func TestRegisterTimerPeriodic(t *testing.T) {
	l := newTestLoop(t)
	fired := 0
	ev := l.RegisterTimer(0, 5, 0, func(_ *Ev, _ any) { fired++ }, nil)
	l.LoopTimeout(10)
	l.LoopTimeout(10)
	if fired < 1 {
		t.Fatalf("periodic timer never fired")
	}
	l.UnregisterTimer(ev)
}

func TestBeforeAfterOrdering(t *testing.T) {
	l := newTestLoop(t)
	var order []string
	l.RegisterBefore(func(_ *Ev, _ any) { order = append(order, "before") }, nil)
	l.RegisterAfter(func(_ *Ev, _ any) { order = append(order, "after") }, nil)
	if err := l.LoopTimeout(0); err != nil {
		t.Fatalf("LoopTimeout error: %v", err)
	}
	if len(order) != 2 || order[0] != "before" || order[1] != "after" {
		t.Fatalf("got order %v, want [before after]", order)
	}
}

func TestUnregisterDuringDispatchSafety(t *testing.T) {
	l := newTestLoop(t)
	var second *Ev
	var secondFired bool
	first := l.RegisterBefore(func(ev *Ev, _ any) {
		l.deferFree(second)
	}, nil)
	second = l.RegisterBefore(func(_ *Ev, _ any) { secondFired = true }, nil)
	_ = first
	if err := l.LoopTimeout(0); err != nil {
		t.Fatalf("LoopTimeout error: %v", err)
	}
	if secondFired {
		t.Error("unregistered-mid-tick callback still fired")
	}
}

func TestFdRegisterAndSelfPipeWakeup(t *testing.T) {
	l := newTestLoop(t)
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	readCh := make(chan []byte, 1)
	ev, err := l.RegisterFd(p[0], PollIn, func(_ *Ev, fd int, _ PollMask, _ any) {
		buf := make([]byte, 16)
		n, _ := unix.Read(fd, buf)
		readCh <- buf[:n]
	}, nil)
	if err != nil {
		t.Fatalf("RegisterFd error: %v", err)
	}

	unix.Write(p[1], []byte("hi"))
	if err := l.LoopTimeout(1000); err != nil {
		t.Fatalf("LoopTimeout error: %v", err)
	}
	select {
	case got := <-readCh:
		if string(got) != "hi" {
			t.Errorf("got %q, want hi", got)
		}
	default:
		t.Fatal("fd callback never fired")
	}

	if err := l.UnregisterFd(ev); err != nil {
		t.Fatalf("UnregisterFd error: %v", err)
	}
}

func TestBigLockForeignThreadLocking(t *testing.T) {
	l := newTestLoop(t)
	l.BlUse()
	bl := l.BigLock()
	if bl == nil {
		t.Fatal("BigLock() returned nil after BlUse")
	}

	var mu sync.Mutex
	touched := 0
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		bl.BlLock()
		mu.Lock()
		touched++
		mu.Unlock()
		l.BlUnlock()
	}()

	// The loop thread only releases bl during epoll_wait, so a real tick
	// is needed to let the foreign goroutine acquire it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := l.LoopTimeout(10); err != nil {
			t.Fatalf("LoopTimeout error: %v", err)
		}
		mu.Lock()
		got := touched
		mu.Unlock()
		if got == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("foreign thread never acquired BigLock")
		}
	}
	wg.Wait()
}

func TestWatchActivityFiresNoAct(t *testing.T) {
	l := newTestLoop(t)
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer unix.Close(p[0])
	defer unix.Close(p[1])

	noact := false
	ev, err := l.RegisterFd(p[0], PollIn, func(_ *Ev, _ int, mask PollMask, _ any) {
		if mask&PollNoAct != 0 {
			noact = true
		}
	}, nil)
	if err != nil {
		t.Fatalf("RegisterFd error: %v", err)
	}
	ev.WatchActivity(PollIn, 0) // exercise the arm-then-disarm path too
	ev.WatchActivity(PollIn, 1)
	for i := 0; i < 5 && !noact; i++ {
		l.LoopTimeout(5)
	}
	if !noact {
		t.Error("expected activity watchdog to fire NOACT")
	}
}
