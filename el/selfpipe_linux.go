//go:build linux

package el

import "golang.org/x/sys/unix"

// selfPipe is the el-internal marker so the fd callback can drain the
// pipe without surfacing a synthetic event to user code.
type selfPipe struct {
	r, w int
}

func (l *Loop) ensureSelfPipe() {
	if l.sp != nil {
		return
	}
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return
	}
	sp := &selfPipe{r: p[0], w: p[1]}
	l.sp = sp
	l.RegisterFd(sp.r, PollIn, func(_ *Ev, fd int, _ PollMask, _ any) {
		var buf [64]byte
		for {
			_, err := unix.Read(fd, buf[:])
			if err != nil {
				return
			}
		}
	}, nil)
}

func (l *Loop) wakeSelfPipe() {
	if l.sp == nil {
		return
	}
	unix.Write(l.sp.w, []byte{0})
}
