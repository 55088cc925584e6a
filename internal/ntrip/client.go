package ntrip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	readBufferSize = 4096

	defaultUserAgent         = "NTRIP NTRIPClient/1.2.0.b431661"
	defaultHandshakeAttempts = 50
	defaultHandshakeInterval = 100 * time.Millisecond
	defaultReportInterval    = 1 * time.Second
	defaultLoopReadTimeout   = 10 * time.Millisecond
	defaultWriteTimeout      = 5 * time.Second
	defaultStopTimeout       = 5 * time.Second
)

var (
	// ErrAuthFailed means the caster never replied with a success status
	// within the handshake attempt budget.
	ErrAuthFailed = errors.New("ntrip: authentication failed")

	// ErrPeerClosed means the caster closed the connection before
	// authentication completed.
	ErrPeerClosed = errors.New("ntrip: connection closed by peer")

	// ErrStopTimeout means the stream loop did not exit within the stop
	// timeout. The socket is force-closed in that case.
	ErrStopTimeout = errors.New("ntrip: stream loop did not stop in time")
)

// Config holds the per-run connection parameters. Host, Port, Mountpoint,
// Username and Password are required; Port must be numeric.
type Config struct {
	Host       string
	Port       string
	Mountpoint string
	Username   string
	Password   string

	// UserAgent is sent in the request header. Defaults to a common NTRIP
	// client identification.
	UserAgent string

	// ReportInterval is how often the current GGA sentence is re-sent to
	// the caster while streaming. Defaults to 1s.
	ReportInterval time.Duration

	// HandshakeAttempts and HandshakeInterval bound the wait for the
	// caster's reply to the initial request. Defaults: 50 x 100ms.
	HandshakeAttempts int
	HandshakeInterval time.Duration

	// StopTimeout bounds how long Stop waits for the stream loop to exit.
	StopTimeout time.Duration

	// Sink receives every chunk of raw correction bytes read from the
	// caster. The buffer passed to Write is reused; implementations that
	// retain the data must copy it. Sink errors are logged, never fatal.
	// May be nil.
	Sink io.Writer
}

func (c Config) validate() error {
	if c.Host == "" {
		return fmt.Errorf("ntrip: host is required")
	}
	if c.Port == "" {
		return fmt.Errorf("ntrip: port is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("ntrip: port %q is not numeric", c.Port)
	}
	if c.Mountpoint == "" {
		return fmt.Errorf("ntrip: mountpoint is required")
	}
	if c.Username == "" {
		return fmt.Errorf("ntrip: username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("ntrip: password is required")
	}
	return nil
}

// Stats is an observational snapshot of a client's streaming counters.
type Stats struct {
	Running        bool   `json:"running"`
	BytesReceived  uint64 `json:"bytes_received"`
	ChunksReceived uint64 `json:"chunks_received"`
	GGASent        uint64 `json:"gga_sent"`
	LastDataUTC    string `json:"last_data_utc,omitempty"`
}

// Client streams RTCM corrections from an NTRIP caster over a single
// owned TCP connection, periodically re-sending the latest GGA position
// report. One stream loop goroutine is alive per successful Run; Run,
// Stop and UpdateGGA are safe to call from other goroutines.
type Client struct {
	cfg Config

	mu        sync.Mutex
	conn      net.Conn
	closeOnce *sync.Once
	cancel    context.CancelFunc
	done      chan struct{}

	initialized   bool
	connected     bool
	authenticated bool

	running atomic.Bool
	gga     atomic.Value // string

	bytesRx  atomic.Uint64
	chunksRx atomic.Uint64
	ggaTx    atomic.Uint64
	lastData atomic.Int64 // unix nanos
}

// New creates a client. Defaults are applied for any zero timing fields;
// Config validation happens in Run.
func New(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = defaultReportInterval
	}
	if cfg.HandshakeAttempts <= 0 {
		cfg.HandshakeAttempts = defaultHandshakeAttempts
	}
	if cfg.HandshakeInterval <= 0 {
		cfg.HandshakeInterval = defaultHandshakeInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	return &Client{cfg: cfg, initialized: true}
}

// Run connects to the caster, performs the handshake and, on success,
// starts the stream loop. An already-running client is stopped first, so
// Run twice is equivalent to Stop-then-Run. The loop also exits when ctx
// is cancelled.
func (c *Client) Run(ctx context.Context) error {
	if c.IsRunning() {
		if err := c.Stop(); err != nil {
			return err
		}
	}
	if err := c.cfg.validate(); err != nil {
		return err
	}

	conn, err := c.dial()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.closeOnce = new(sync.Once)
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(conn); err != nil {
		c.cleanup()
		return err
	}

	if err := enableKeepAlive(conn); err != nil {
		// Keepalive is an optimization; the stream works without it.
		log.Printf("ntrip: tcp keepalive setup failed: %v", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()
	c.running.Store(true)

	go c.streamLoop(loopCtx, conn, done)
	return nil
}

// Stop signals the stream loop to exit, waits for it (bounded by
// StopTimeout) and releases the socket. No-op when not running; safe to
// call repeatedly.
func (c *Client) Stop() error {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
	case <-time.After(c.cfg.StopTimeout):
		// Force the socket closed so the loop's next read fails.
		c.cleanup()
		return ErrStopTimeout
	}
	c.cleanup()
	return nil
}

// IsRunning reports whether the stream loop is alive.
func (c *Client) IsRunning() bool {
	return c.running.Load()
}

// UpdateGGA replaces the position report re-sent to the caster. The value
// is swapped whole, so the stream loop always observes a complete
// sentence. Callable at any time, including before Run.
func (c *Client) UpdateGGA(sentence string) {
	c.gga.Store(sentence)
}

// Stats returns the current streaming counters.
func (c *Client) Stats() Stats {
	st := Stats{
		Running:        c.running.Load(),
		BytesReceived:  c.bytesRx.Load(),
		ChunksReceived: c.chunksRx.Load(),
		GGASent:        c.ggaTx.Load(),
	}
	if nanos := c.lastData.Load(); nanos != 0 {
		st.LastDataUTC = time.Unix(0, nanos).UTC().Format(time.RFC3339Nano)
	}
	return st
}

func (c *Client) currentGGA() string {
	v := c.gga.Load()
	if v == nil {
		return ""
	}
	return v.(string)
}

// dial resolves the caster address (IPv4 only, like the wire protocol
// this client was built against) and connects with the OS default
// connect timeout.
func (c *Client) dial() (net.Conn, error) {
	addr := net.JoinHostPort(c.cfg.Host, c.cfg.Port)
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("ntrip: resolve %s failed: %w", addr, err)
	}
	conn, err := net.DialTCP("tcp4", nil, tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("ntrip: connect %s failed: %w", addr, err)
	}
	return conn, nil
}

// handshake sends the request and polls for the caster's reply with
// short read deadlines, up to the attempt budget. On success it marks
// the client authenticated and transmits the initial position report.
func (c *Client) handshake(conn net.Conn) error {
	req := buildRequest(c.cfg.Mountpoint, c.cfg.Username, c.cfg.Password, c.cfg.UserAgent)
	_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	if _, err := conn.Write([]byte(req)); err != nil {
		return fmt.Errorf("ntrip: request send failed: %w", err)
	}

	buf := make([]byte, readBufferSize)
	for attempt := 0; attempt < c.cfg.HandshakeAttempts; attempt++ {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeInterval))
		n, err := conn.Read(buf)
		if n > 0 {
			reply := string(buf[:n])
			if strings.Contains(reply, "HTTP/1.1 200 OK") || strings.Contains(reply, "ICY 200 OK") {
				c.mu.Lock()
				c.authenticated = true
				c.mu.Unlock()
				return c.sendInitialGGA(conn)
			}
			// Keep polling: some casters emit keep-alive or cache lines
			// ahead of the real status line.
			log.Printf("ntrip: caster reply without success status: %q", strings.TrimSpace(reply))
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrPeerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("ntrip: handshake read failed: %w", err)
		}
	}

	// The password is deliberately omitted from the diagnostic.
	return fmt.Errorf("%w: caster %s:%s mountpoint %s user %s",
		ErrAuthFailed, c.cfg.Host, c.cfg.Port, c.cfg.Mountpoint, c.cfg.Username)
}

func (c *Client) sendInitialGGA(conn net.Conn) error {
	gga := c.currentGGA()
	if gga == "" {
		// Normal: no position report supplied yet.
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	if _, err := conn.Write([]byte(gga)); err != nil {
		return fmt.Errorf("ntrip: gga send failed: %w", err)
	}
	c.ggaTx.Add(1)
	return nil
}

// streamLoop drains correction bytes and re-sends the position report on
// the reporting interval until ctx is cancelled or a fatal I/O error
// occurs. The short read deadline doubles as the iteration pacing.
func (c *Client) streamLoop(ctx context.Context, conn net.Conn, done chan struct{}) {
	defer close(done)
	defer c.cleanup()
	defer log.Printf("ntrip: client stopped")

	c.mu.Lock()
	ok := c.initialized && c.connected && c.authenticated && c.conn != nil
	c.mu.Unlock()
	if !ok {
		log.Printf("ntrip: stream loop preconditions not met")
		return
	}

	log.Printf("ntrip: client running caster=%s:%s mountpoint=%s",
		c.cfg.Host, c.cfg.Port, c.cfg.Mountpoint)

	buf := make([]byte, readBufferSize)
	lastReport := time.Now()
	peerClosed := false

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(defaultLoopReadTimeout))
		n, err := conn.Read(buf)
		if n > 0 {
			peerClosed = false
			c.bytesRx.Add(uint64(n))
			c.chunksRx.Add(1)
			c.lastData.Store(time.Now().UnixNano())
			if c.cfg.Sink != nil {
				if _, werr := c.cfg.Sink.Write(buf[:n]); werr != nil {
					log.Printf("ntrip: sink write failed: %v", werr)
				}
			}
		} else if err != nil {
			var ne net.Error
			switch {
			case errors.Is(err, io.EOF):
				// Unlike during the handshake, a remote close while
				// streaming is tolerated; the caster may still come back
				// on the same connection. Logged once per closure, not
				// once per iteration.
				if !peerClosed {
					peerClosed = true
					log.Printf("ntrip: remote socket closed")
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(defaultLoopReadTimeout):
				}
			case errors.As(err, &ne) && ne.Timeout():
				// No data this iteration.
			default:
				log.Printf("ntrip: stream read failed: %v", err)
				return
			}
		}

		if time.Since(lastReport) >= c.cfg.ReportInterval {
			lastReport = time.Now()
			if gga := c.currentGGA(); gga != "" {
				_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
				if _, werr := conn.Write([]byte(gga)); werr != nil {
					log.Printf("ntrip: gga send failed: %v", werr)
					return
				}
				c.ggaTx.Add(1)
			}
		}
	}
}

// cleanup closes the socket exactly once per run cycle and rolls the
// state flags back so a fresh Run can follow. Idempotent.
func (c *Client) cleanup() {
	c.mu.Lock()
	conn := c.conn
	once := c.closeOnce
	c.conn = nil
	c.connected = false
	c.authenticated = false
	c.mu.Unlock()

	c.running.Store(false)
	if conn != nil && once != nil {
		once.Do(func() { _ = conn.Close() })
	}
}
