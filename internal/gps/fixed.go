// Package gps supplies position reports to the streaming client, either
// from a fixed configured location or from a serial NMEA receiver.
package gps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ntripc/internal/nmea"
)

// UpdateFunc receives a complete CRLF-terminated GGA sentence.
type UpdateFunc func(gga string)

// FixedConfig describes a static position re-reported on an interval so
// the sentence's UTC time field stays fresh.
type FixedConfig struct {
	LatDeg   float64
	LonDeg   float64
	AltM     float64
	Interval time.Duration
}

// FixedSource periodically regenerates a GGA sentence for a fixed
// position and hands it to an UpdateFunc.
type FixedSource struct {
	cfg FixedConfig
	fn  UpdateFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFixed(cfg FixedConfig, fn UpdateFunc) *FixedSource {
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Second
	}
	return &FixedSource{cfg: cfg, fn: fn}
}

// Start publishes one sentence immediately, then on every interval tick
// until the context is cancelled or Close is called.
func (s *FixedSource) Start(ctx context.Context) error {
	if s.fn == nil {
		return fmt.Errorf("gps: update func is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		pos := nmea.Position{LatDeg: s.cfg.LatDeg, LonDeg: s.cfg.LonDeg, AltM: s.cfg.AltM}
		s.fn(nmea.GGA(pos, time.Now()))

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-childCtx.Done():
				return
			case now := <-ticker.C:
				s.fn(nmea.GGA(pos, now))
			}
		}
	}()
	return nil
}

func (s *FixedSource) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}
