// Package web exposes a small observational HTTP surface for the
// streaming client: a JSON status endpoint and a live correction feed
// over WebSocket.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"ntripc/internal/ntrip"
)

// StreamStats is the read-only view of the client the status endpoint
// reports on.
type StreamStats interface {
	IsRunning() bool
	Stats() ntrip.Stats
}

// Info holds static connection facts shown in the status response.
// Credentials intentionally have no place here.
type Info struct {
	Caster     string `json:"caster"`
	Mountpoint string `json:"mountpoint"`
}

type statusResponse struct {
	Service   string `json:"service"`
	NowUTC    string `json:"now_utc"`
	UptimeSec int64  `json:"uptime_sec"`
	Info
	ntrip.Stats
	StreamClients int `json:"stream_clients"`
}

// Handler serves GET /api/status and, when bcast is non-nil, the /ws
// correction feed.
func Handler(client StreamStats, info Info, bcast *Broadcaster) http.Handler {
	start := time.Now().UTC()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		now := time.Now().UTC()
		resp := statusResponse{
			Service:   "ntripc",
			NowUTC:    now.Format(time.RFC3339Nano),
			UptimeSec: int64(now.Sub(start).Seconds()),
			Info:      info,
		}
		if client != nil {
			resp.Stats = client.Stats()
		}
		if bcast != nil {
			resp.StreamClients = bcast.ClientCount()
		}
		b, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if bcast == nil {
			http.Error(w, "stream unavailable", http.StatusNotFound)
			return
		}
		bcast.HandleWS(w, r)
	})

	return mux
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.Printf("web: listening on %s", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
