//go:build linux

package el

import "golang.org/x/sys/unix"

// RegisterChild arms cb to run when pid is reaped. SIGCHLD is pre-hooked
// the first time any child is registered; the loop then waitpid-loops at
// the signal-drain step to dispatch per-pid callbacks.
func (l *Loop) RegisterChild(pid int, cb ChildCallback, data any) *Ev {
	l.ensureSigchldHook()
	ev := l.allocEv(KindChild, 0, data)
	ev.pid = pid
	ev.childCB = cb
	l.childEvs[pid] = append(l.childEvs[pid], ev)
	return ev
}

// UnregisterChild cancels a previously registered child reaper.
func (l *Loop) UnregisterChild(ev *Ev) {
	l.deferFree(ev)
}

var sigchldHooked bool

func (l *Loop) ensureSigchldHook() {
	if sigchldHooked {
		return
	}
	sigchldHooked = true
	l.RegisterSignal(int(unix.SIGCHLD), func(_ *Ev, _ int, _ any) {
		l.reapChildren()
	}, nil)
}

// reapChildren waitpid-loops non-blockingly, dispatching a callback for
// every pid with a registered reaper.
func (l *Loop) reapChildren() {
	var status unix.WaitStatus
	for {
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
		if err != nil || pid <= 0 {
			return
		}
		snapshot := append([]*Ev(nil), l.childEvs[pid]...)
		for _, ev := range snapshot {
			if ev.garbage {
				continue
			}
			ev.childCB(ev, pid, int(status), ev.data)
		}
	}
}
