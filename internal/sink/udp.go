package sink

import (
	"fmt"
	"net"
)

// UDP forwards correction chunks as datagrams to a fixed destination,
// typically a rover receiver listening for RTCM input.
type UDP struct {
	dest string
	conn *net.UDPConn
}

func NewUDP(dest string) (*UDP, error) {
	addr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// Connected socket: every Write goes to dest, no per-datagram
	// addressing needed.
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &UDP{dest: dest, conn: conn}, nil
}

func (u *UDP) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return u.conn.Write(p)
}

func (u *UDP) Close() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
