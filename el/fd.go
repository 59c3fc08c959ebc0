package el

import "fmt"

// RegisterFd registers fd with the given wanted poll mask. The fd's
// readiness events are delivered to cb until UnregisterFd is called. The
// returned ev does not hold a Loop.active reference (mirroring el_unref,
// which the original httpd/httpc always apply to their listener and
// connection fds: a daemon's connection count must not be what decides
// whether its own Loop keeps spinning). Callers that want a registration
// to anchor Loop.Loop by itself should register a ref'd timer instead.
func (l *Loop) RegisterFd(fd int, mask PollMask, cb FdCallback, data any) (*Ev, error) {
	if err := l.rx.Add(fd, mask); err != nil {
		return nil, fmt.Errorf("el: fd register: %w", err)
	}
	ev := l.allocEv(KindFd, 0, data)
	ev.fd = fd
	ev.wanted = mask
	ev.fdCB = cb
	l.fds[fd] = ev
	return ev, nil
}

// SetMask changes the wanted poll mask for an fd event, used e.g. to
// disable POLLIN as pipeline/outbuf backpressure and re-enable it later.
func (ev *Ev) SetMask(mask PollMask) error {
	if ev.kind != KindFd {
		return fmt.Errorf("el: SetMask on non-fd event")
	}
	if mask == ev.wanted {
		return nil
	}
	ev.wanted = mask
	return ev.loop.rx.Modify(ev.fd, mask)
}

// WatchActivity arms (or rearms) a one-shot inactivity timer on ev. If the
// timer fires before any byte flows in a watched direction, the fd
// callback receives a synthetic PollNoAct event. timeoutMs == 0 disarms.
func (ev *Ev) WatchActivity(mask PollMask, timeoutMs int64) {
	l := ev.loop
	if timeoutMs <= 0 {
		if ev.watchTimer != nil {
			l.unregisterTimer(ev.watchTimer)
			delete(l.watchdogs, ev.watchTimer)
			ev.watchTimer = nil
		}
		ev.flags &^= FlagFdWatchActivity
		return
	}
	ev.activity = mask
	ev.flags |= FlagFdWatchActivity
	if ev.watchTimer != nil {
		l.rearmTimer(ev.watchTimer, timeoutMs)
		return
	}
	t := l.RegisterTimer(timeoutMs, 0, 0, func(tev *Ev, _ any) {
		owner, ok := l.watchdogs[tev]
		if !ok {
			return
		}
		// This one-shot timer is released once the callback returns.
		delete(l.watchdogs, tev)
		owner.watchTimer = nil
		if owner.fdCB == nil {
			return
		}
		owner.fdCB(owner, owner.fd, PollNoAct, owner.data)
	}, nil)
	ev.watchTimer = t
	l.watchdogs[t] = ev
}

// SetCallback replaces ev's fd callback, mirroring el_fd_set_hook: used by
// connect-completion handshakes that dispatch to one callback while
// POLLOUT-waiting for the connect and another once traffic starts flowing.
func (ev *Ev) SetCallback(cb FdCallback) error {
	if ev.kind != KindFd {
		return fmt.Errorf("el: SetCallback on non-fd event")
	}
	ev.fdCB = cb
	return nil
}

// NotifyActivity resets ev's activity watchdog — called whenever bytes
// flow in the watched direction.
func (ev *Ev) NotifyActivity() {
	if ev.watchTimer != nil {
		ev.loop.rearmTimer(ev.watchTimer, -ev.watchTimer.repeat)
	}
}

// UnregisterFd removes fd from the poll set and deallocates its ev
// record (deferred to the garbage list per tick-reentrancy rules).
func (l *Loop) UnregisterFd(ev *Ev) error {
	if ev.kind != KindFd {
		return fmt.Errorf("el: UnregisterFd on non-fd event")
	}
	if ev.watchTimer != nil {
		l.unregisterTimer(ev.watchTimer)
		delete(l.watchdogs, ev.watchTimer)
		ev.watchTimer = nil
	}
	if err := l.rx.Remove(ev.fd); err != nil {
		return fmt.Errorf("el: fd unregister: %w", err)
	}
	delete(l.fds, ev.fd)
	l.deferFree(ev)
	return nil
}
