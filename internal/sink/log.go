package sink

import "log"

// Log hex-dumps every received chunk. Mostly useful for bring-up and
// debugging; RTCM is binary and a caster emits a batch every second.
type Log struct{}

func (Log) Write(p []byte) (int, error) {
	log.Printf("sink: %d correction bytes: %x", len(p), p)
	return len(p), nil
}
