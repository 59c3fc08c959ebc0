//go:build linux

package httpd

import "golang.org/x/sys/unix"

// readFd reads into buf, retrying on EINTR and treating EAGAIN as a
// zero-byte, nil-error read (the fd is edge/level-triggered and will
// re-fire when more data arrives); mirrors the original xread retry loop.
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
