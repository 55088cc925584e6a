//go:build linux

package ntrip

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// Keepalive probing for long-lived caster connections: start probing
// after 30s idle, probe every 5s, give up after 3 missed probes.
const (
	keepAliveIdle     = 30 * time.Second
	keepAliveInterval = 5
	keepAliveCount    = 3
)

func enableKeepAlive(conn net.Conn) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tc.SetKeepAlive(true); err != nil {
		return err
	}
	if err := tc.SetKeepAlivePeriod(keepAliveIdle); err != nil {
		return err
	}

	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	err = raw.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, keepAliveInterval); e != nil {
			serr = e
			return
		}
		serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, keepAliveCount)
	})
	if err != nil {
		return err
	}
	return serr
}
