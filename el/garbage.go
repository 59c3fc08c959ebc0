package el

// deferFree marks ev as garbage and queues it; the slab slot is not
// reused until the outermost loopTimeout call finishes, so a callback
// that unregisters an ev (including itself) never races a later callback
// in the same tick against recycled memory.
func (l *Loop) deferFree(ev *Ev) {
	if ev.garbage {
		return
	}
	ev.garbage = true
	if ev.flags&FlagRef != 0 {
		l.active--
	}
	switch ev.kind {
	case KindBefore:
		l.before = removeFromSlice(l.before, ev)
	case KindAfter:
		l.after = removeFromSlice(l.after, ev)
	case KindProxy:
		l.proxy = removeFromSlice(l.proxy, ev)
	case KindSignal:
		l.signalEvs[ev.signum] = removeFromSlice(l.signalEvs[ev.signum], ev)
	case KindChild:
		l.childEvs[ev.pid] = removeFromSlice(l.childEvs[ev.pid], ev)
	}
	l.garbage = append(l.garbage, ev)
}

// reclaimGarbage splices the per-tick garbage list into the slab freelist.
// Only called when depth == 0, i.e. the outermost loopTimeout frame.
func (l *Loop) reclaimGarbage() {
	for _, ev := range l.garbage {
		l.slab.release(ev)
	}
	l.garbage = l.garbage[:0]
}
