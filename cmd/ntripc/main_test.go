package main

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"ntripc/internal/ntrip"
)

// TestSupervise_StartsStreamWithoutPriorRun covers the boot path where
// the initial connection attempt failed: the supervisor alone must be
// able to bring the stream up once the caster is reachable.
func TestSupervise_StartsStreamWithoutPriorRun(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				br := bufio.NewReader(conn)
				for {
					line, err := br.ReadString('\n')
					if err != nil {
						return
					}
					if line == "\r\n" {
						break
					}
				}
				_, _ = conn.Write([]byte("ICY 200 OK\r\n\r\n"))
				for {
					if _, err := br.ReadString('\n'); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}

	client := ntrip.New(ntrip.Config{
		Host:              host,
		Port:              port,
		Mountpoint:        "TEST",
		Username:          "u",
		Password:          "p",
		HandshakeAttempts: 5,
		HandshakeInterval: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go supervise(ctx, client)

	deadline := time.Now().Add(5 * time.Second)
	for !client.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if !client.IsRunning() {
		t.Fatalf("supervisor never started the stream")
	}

	cancel()
	if err := client.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
