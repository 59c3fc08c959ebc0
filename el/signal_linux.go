//go:build linux

package el

import (
	"os"

	"golang.org/x/sys/unix"
)

func signalOf(signum int) os.Signal {
	return unix.Signal(signum)
}

func signumOf(s os.Signal) int {
	if sig, ok := s.(unix.Signal); ok {
		return int(sig)
	}
	return -1
}
