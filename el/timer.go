package el

// RegisterTimer arms a timer firing delayMs from now. repeatMs > 0 makes
// it periodic; repeatMs <= 0 makes it one-shot, and the one-shot's
// original delay is retained (negated) in ev.repeat so WatchActivity can
// rearm with the same duration via NotifyActivity.
func (l *Loop) RegisterTimer(delayMs, repeatMs int64, flags Flags, cb TimerCallback, data any) *Ev {
	ev := l.allocEv(KindTimer, flags, data)
	ev.timerCB = cb
	now := l.clk.now()
	if flags&FlagTimerLowRes != 0 && delayMs >= lowResThreshold && l.clk.cached != 0 {
		now = l.clk.get(true)
	}
	ev.expiry = now + delayMs
	if repeatMs > 0 {
		ev.repeat = repeatMs
	} else {
		ev.repeat = -delayMs
	}
	l.timers.push(ev)
	return ev
}

// rearmTimer resets ev's expiry to fire delayMs from now, without
// allocating a new record or touching ev.repeat's periodic/one-shot
// encoding beyond a fresh one-shot delay when delayMs > 0 is supplied
// explicitly (delayMs < 0 means "reuse the stored one-shot delay").
func (l *Loop) rearmTimer(ev *Ev, delayMs int64) {
	if delayMs > 0 {
		ev.repeat = -delayMs
	}
	d := delayMs
	if d < 0 {
		d = -ev.repeat
	}
	ev.expiry = l.clk.now() + d
	l.timers.fix(ev)
}

// UnregisterTimer cancels ev; safe to call from inside the timer's own
// callback.
func (l *Loop) UnregisterTimer(ev *Ev) {
	l.unregisterTimer(ev)
	l.deferFree(ev)
}

func (l *Loop) unregisterTimer(ev *Ev) {
	if ev.heapIndex >= 0 && ev.heapIndex < len(l.timers.items) && l.timers.items[ev.heapIndex] == ev {
		l.timers.remove(ev)
	}
}

// fireDueTimers pops and fires every timer whose expiry <= now, rescheduling
// periodic timers and, for NOMISS timers, catching up any ticks missed
// while the loop was busy elsewhere.
func (l *Loop) fireDueTimers(now int64) {
	for {
		t := l.timers.peek()
		if t == nil || t.expiry > now {
			return
		}
		l.timers.remove(t)

		cb := t.timerCB
		data := t.data
		periodic := t.repeat > 0

		if periodic {
			next := t.expiry + t.repeat
			if next <= now && t.flags&FlagTimerNoMiss == 0 {
				next = now + t.repeat
			}
			t.expiry = next
			l.timers.push(t)
		}

		if cb != nil {
			cb(t, data)
		}

		if !periodic && !t.garbage {
			// one-shot timers are auto-released unless the callback
			// already unregistered them (a fired activity watchdog
			// detaches itself from its fd ev before its callback runs,
			// so a later WatchActivity arms a fresh timer).
			l.deferFree(t)
		}
	}
}

// nextTimerDelay returns the ms until the next timer fires, or -1 if
// none are pending.
func (l *Loop) nextTimerDelay(now int64) int64 {
	t := l.timers.peek()
	if t == nil {
		return -1
	}
	d := t.expiry - now
	if d < 0 {
		d = 0
	}
	return d
}
