package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	gonmea "github.com/adrianmo/go-nmea"
	"go.bug.st/serial"
)

// SerialConfig describes a serial NMEA receiver used as the position
// source. Any receiver emitting standard GGA sentences works.
type SerialConfig struct {
	Device string
	Baud   int
}

// SerialSource reads NMEA lines from a serial GPS and forwards each
// checksum-valid GGA sentence, verbatim, to an UpdateFunc.
type SerialSource struct {
	cfg SerialConfig
	fn  UpdateFunc

	mu     sync.Mutex
	port   serial.Port
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSerial(cfg SerialConfig, fn UpdateFunc) *SerialSource {
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}
	return &SerialSource{cfg: cfg, fn: fn}
}

func (s *SerialSource) Start(ctx context.Context) error {
	if s.fn == nil {
		return fmt.Errorf("gps: update func is nil")
	}
	if s.cfg.Device == "" {
		return fmt.Errorf("gps: serial device is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: s.cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.cfg.Device, mode)
	if err != nil {
		return fmt.Errorf("gps: open %s failed: %w", s.cfg.Device, err)
	}
	s.port = port

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("gps: serial source device=%s baud=%d", s.cfg.Device, s.cfg.Baud)
		s.readLoop(childCtx, port)
	}()
	return nil
}

// readLoop scans NMEA lines until the reader fails. Reads block until
// the device produces bytes; a quiet receiver (cold start, no fix yet)
// just means a longer block, never an error. Close unblocks a pending
// read by closing the port.
func (s *SerialSource) readLoop(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	// NMEA sentences are < 82 chars, but allow headroom for chatter.
	scanner.Buffer(make([]byte, 0, 256), 4096)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.handleLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Printf("gps: serial read stopped: %v", err)
	}
}

// handleLine forwards checksum-valid GGA sentences and drops everything
// else.
func (s *SerialSource) handleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return
	}
	parsed, err := gonmea.Parse(line)
	if err != nil {
		return
	}
	if parsed.DataType() != gonmea.TypeGGA {
		return
	}
	s.fn(line + "\r\n")
}

func (s *SerialSource) Close() {
	s.mu.Lock()
	cancel := s.cancel
	port := s.port
	s.cancel = nil
	s.port = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if port != nil {
		_ = port.Close()
	}
	s.wg.Wait()
}
