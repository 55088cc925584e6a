package web

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Broadcaster fans correction chunks out to any connected WebSocket
// clients. It implements io.Writer so it can be wired as a sink; slow
// clients drop chunks rather than stalling the stream loop.
type Broadcaster struct {
	mu       sync.Mutex
	clients  map[*wsClient]struct{}
	upgrader websocket.Upgrader
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Write copies the chunk and offers it to every client. Never blocks.
func (b *Broadcaster) Write(p []byte) (int, error) {
	cp := append([]byte(nil), p...)

	b.mu.Lock()
	for c := range b.clients {
		select {
		case c.send <- cp:
		default:
			// Client is not keeping up; drop this chunk for it.
		}
	}
	b.mu.Unlock()
	return len(p), nil
}

func (b *Broadcaster) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: ws upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	b.mu.Lock()
	b.clients[client] = struct{}{}
	total := len(b.clients)
	b.mu.Unlock()
	log.Printf("web: stream client connected (%d total)", total)

	// Writer goroutine.
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine; only used to detect disconnect.
	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.clients, client)
			total := len(b.clients)
			b.mu.Unlock()
			close(client.send)
			log.Printf("web: stream client disconnected (%d total)", total)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
