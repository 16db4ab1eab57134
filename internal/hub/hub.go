package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"dashv/internal/domain"
)

// DefaultKeepAlive is the interval between keepalive comments
const DefaultKeepAlive = 30 * time.Second

// Client represents a connected SSE client
type Client struct {
	id     string
	events chan []byte
}

// Hub fans service change events out to SSE clients
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan domain.ChangeEvent
	keepAlive  time.Duration
	stopped    chan struct{}
}

// New creates a new Hub
func New() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan domain.ChangeEvent, 256),
		keepAlive:  DefaultKeepAlive,
		stopped:    make(chan struct{}),
	}
}

// SetKeepAlive changes the keepalive interval for new connections
func (h *Hub) SetKeepAlive(d time.Duration) {
	if d > 0 {
		h.keepAlive = d
	}
}

// Run starts the hub's event loop and returns when ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.stopped)
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.events)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("SSE client connected: %s (total: %d)", client.id, n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("SSE client disconnected: %s (total: %d)", client.id, n)

		case event := <-h.broadcast:
			msg, err := Format(event)
			if err != nil {
				log.Printf("Failed to marshal event %s: %v", event.Kind, err)
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.events <- msg:
				default:
					log.Printf("SSE client %s is slow, skipping message", client.id)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Format renders an event as an SSE frame
func Format(event domain.ChangeEvent) ([]byte, error) {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Kind, data)), nil
}

// Publish queues an event for all connected clients
func (h *Hub) Publish(event domain.ChangeEvent) {
	select {
	case h.broadcast <- event:
	default:
		log.Println("Broadcast channel full, dropping event")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := &Client{
		id:     uuid.NewString(),
		events: make(chan []byte, 64),
	}

	select {
	case h.register <- client:
	case <-h.stopped:
		return
	}
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.stopped:
		}
	}()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.events:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
