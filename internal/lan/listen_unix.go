//go:build unix

package lan

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseAddr lets several scans, and other local clients of the protocol, share the response port
func reuseAddr(_ string, _ string, conn syscall.RawConn) error {
	var sockErr error
	if err := conn.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return sockErr
}
