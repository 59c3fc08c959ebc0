package el

// LoopTimeout runs one tick: before hooks, due timers, epoll_wait
// (clamped by the next timer deadline and any pending proxy events), fd
// dispatch, proxy dispatch, signal drain, after hooks, and — if this is
// the outermost call — garbage reclamation. Mirrors .3's
// ordering exactly.
func (l *Loop) LoopTimeout(ms int) error {
	l.depth++
	defer func() {
		l.depth--
		if l.depth == 0 {
			l.reclaimGarbage()
		}
	}()

	now := l.clk.refresh()

	l.runHookList(l.before)

	l.fireDueTimers(now)

	timeout := ms
	if d := l.nextTimerDelay(l.clk.now()); d >= 0 && int(d) < timeout {
		timeout = int(d)
	}
	if l.hasPendingProxy() {
		timeout = 0
	}
	if l.unloop {
		timeout = 0
	}

	l.releaseForWait()
	n, err := l.rx.Wait(timeout, l.ready)
	l.reacquireAfterWait()
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		rfd := l.ready[i]
		ev, ok := l.fds[rfd.fd]
		if !ok || ev.garbage {
			continue
		}
		if rfd.mask&ev.activity&(PollIn|PollOut) != 0 {
			ev.NotifyActivity()
		}
		ev.fdCB(ev, rfd.fd, rfd.mask, ev.data)
	}

	l.firePendingProxies()
	l.drainPendingSignals()

	l.runHookList(l.after)

	return nil
}

// Loop drives LoopTimeout(59000) — an arbitrary ceiling between forced
// wakeups — until Active() reaches zero or Unloop() was called.
func (l *Loop) Loop() error {
	const maxTick = 59000
	for l.active > 0 && !l.unloop {
		if err := l.LoopTimeout(maxTick); err != nil {
			return err
		}
	}
	return nil
}
