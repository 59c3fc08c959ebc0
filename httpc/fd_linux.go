//go:build linux

package httpc

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// readFd mirrors httpd's read helper: retry on EINTR, EAGAIN reads as 0.
func readFd(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if err == nil {
			return n, nil
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return n, err
	}
}

func closeFd(fd int) {
	for {
		err := unix.Close(fd)
		if err != unix.EINTR {
			return
		}
	}
}

// dialNonblocking creates a non-blocking TCP socket and issues connect(2),
// tolerating EINPROGRESS (the usual case for a non-blocking connect).
func dialNonblocking(addr string) (int, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return -1, fmt.Errorf("resolve %s: %w", addr, err)
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	sa := &unix.SockaddrInet4{Port: tcpAddr.Port}
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	if err := unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return -1, fmt.Errorf("connect %s: %w", addr, err)
	}
	return fd, nil
}

// connectStatus reports whether a non-blocking connect has finished, and
// whether it succeeded, via getsockopt(SO_ERROR).
func connectStatus(fd int) (ready bool, err error) {
	errno, serr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if serr != nil {
		return false, serr
	}
	if errno == 0 {
		return true, nil
	}
	if errno == int(unix.EINPROGRESS) {
		return false, nil
	}
	return true, fmt.Errorf("connect failed: errno %d", errno)
}
