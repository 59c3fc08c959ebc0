//go:build linux
// +build linux

package el

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// epollReactor implements the reactor interface using Linux epoll. It is
// a direct descendant of reactor/epoll_reactor.go, generalized from that
// file's sync.Map fd table (needed there because multiple goroutines
// could call Register concurrently): the reactor keeps no table at all and
// the fd table is Loop.fds, a plain map — EL is single-threaded
// cooperative and never calls Add/Modify/Remove from two goroutines.
type epollReactor struct {
	epfd int
}

func newEpollReactor() (reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollReactor{epfd: epfd}, nil
}

func toEpollEvents(mask PollMask) uint32 {
	var ev uint32
	if mask&PollIn != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&PollOut != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func fromEpollEvents(ev uint32) PollMask {
	var mask PollMask
	if ev&unix.EPOLLIN != 0 {
		mask |= PollIn
	}
	if ev&unix.EPOLLOUT != 0 {
		mask |= PollOut
	}
	if ev&unix.EPOLLERR != 0 {
		mask |= PollErr
	}
	if ev&unix.EPOLLHUP != 0 {
		mask |= PollHup
	}
	return mask
}

func (r *epollReactor) Add(fd int, mask PollMask) error {
	ev := unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

func (r *epollReactor) Modify(fd int, mask PollMask) error {
	ev := unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

func (r *epollReactor) Remove(fd int) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

func (r *epollReactor) Wait(timeoutMs int, out []readyFd) (int, error) {
	var raw [maxReadyBatch]unix.EpollEvent
	n, err := unix.EpollWait(r.epfd, raw[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = readyFd{fd: int(raw[i].Fd), mask: fromEpollEvents(raw[i].Events)}
	}
	return n, nil
}

func (r *epollReactor) Close() error {
	return unix.Close(r.epfd)
}
