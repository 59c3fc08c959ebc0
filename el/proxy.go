package el

// RegisterProxy creates a software-visible ready-queue event: it fires
// when available & wanted are non-zero, used to drive edge-triggered
// producer/consumer handoffs that don't live on an fd (glossary "Proxy").
func (l *Loop) RegisterProxy(wanted PollMask, cb ProxyCallback, data any) *Ev {
	ev := l.allocEv(KindProxy, 0, data)
	ev.proxyWanted = wanted
	ev.proxyCB = cb
	l.proxy = append(l.proxy, ev)
	return ev
}

// SetAvailable updates ev's available mask, e.g. after a producer pushes
// work onto a queue this proxy represents.
func (ev *Ev) SetAvailable(mask PollMask) {
	ev.available = mask
}

// UnregisterProxy cancels a previously registered proxy event.
func (l *Loop) UnregisterProxy(ev *Ev) {
	l.deferFree(ev)
}

// firePendingProxies dispatches every proxy event whose available&wanted
// is non-empty, via a pre-tick snapshot so unregistration mid-dispatch is
// safe.
func (l *Loop) firePendingProxies() {
	snapshot := append([]*Ev(nil), l.proxy...)
	for _, ev := range snapshot {
		if ev.garbage {
			continue
		}
		if ev.available&ev.proxyWanted == 0 {
			continue
		}
		ev.proxyCB(ev, ev.available, ev.data)
	}
}

// hasPendingProxy reports whether any proxy event currently has
// available&wanted non-empty — used to clamp the epoll_wait timeout to 0.
func (l *Loop) hasPendingProxy() bool {
	for _, ev := range l.proxy {
		if !ev.garbage && ev.available&ev.proxyWanted != 0 {
			return true
		}
	}
	return false
}
