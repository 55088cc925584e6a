//go:build !linux

package ntrip

import (
	"net"
	"time"
)

func enableKeepAlive(conn net.Conn) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tc.SetKeepAlive(true); err != nil {
		return err
	}
	return tc.SetKeepAlivePeriod(30 * time.Second)
}
