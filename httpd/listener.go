package httpd

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-http/el"
)

// Listener binds a TCP address, registers the listening fd for
// read-readiness with the event loop and spawns an httpd.Conn per
// accepted socket.
type Listener struct {
	fd         int
	ev         *el.Ev
	loop       *el.Loop
	cfg        *Config
	trie       *Trie
	nbConns    int
	nbAccepted int
	nbRejected int
	closed     bool
}

// Listen binds/listens on addr ("host:port") and arms the accept loop.
// Connections beyond cfg.MaxConns are accepted then immediately dropped
// rather than left to back up the kernel accept queue.
func Listen(addr string, loop *el.Loop, cfg *Config, trie *Trie) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	if err := unix.Listen(fd, 1024); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	l := &Listener{fd: fd, loop: loop, cfg: cfg, trie: trie}
	ev, err := loop.RegisterFd(fd, el.PollIn, l.onAcceptable, l)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	l.ev = ev
	return l, nil
}

func (l *Listener) onAcceptable(_ *el.Ev, fd int, _ el.PollMask, _ any) {
	for {
		connFd, _, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
				return
			}
			return
		}
		if l.nbConns >= l.cfg.MaxConns {
			closeFd(connFd)
			l.nbRejected++
			continue
		}
		if _, err := spawnFor(l.loop, connFd, l.cfg, l.trie, l); err != nil {
			closeFd(connFd)
			l.nbRejected++
			continue
		}
		l.nbConns++
		l.nbAccepted++
	}
}

// connClosed decrements the live-connection count; called from
// Conn.teardown via the listener backref.
func (l *Listener) connClosed() {
	if l.nbConns > 0 {
		l.nbConns--
	}
}

// Close unregisters and closes the listening socket; in-flight
// connections are left running.
func (l *Listener) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	if l.ev != nil {
		l.loop.UnregisterFd(l.ev)
	}
	return unix.Close(l.fd)
}
