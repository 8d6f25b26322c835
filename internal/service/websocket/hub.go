package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"keywatch/internal/logger"
)

const (
	broadcastQueue = 64
	writeWait      = 5 * time.Second
)

// HubService fans status messages out to connected viewers. All writes to
// client connections happen on the Run goroutine.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	dropped    atomic.Uint64
	count      atomic.Int64
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx is
// cancelled, then closes every client connection.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.count.Store(int64(total))
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.count.Store(int64(total))
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Warning("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.count.Store(int64(len(h.clients)))
			h.mutex.Unlock()
		}
	}
}

func (h *HubService) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		client.Close()
		delete(h.clients, client)
	}
	h.count.Store(0)
}

// Register adds a viewer. It is a no-op once the hub has stopped.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes and closes a viewer.
func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a message for every viewer. It never blocks: when the
// queue is full the message is dropped.
func (h *HubService) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.dropped.Add(1)
	}
}

// BroadcastJSON marshals v and queues it with Broadcast.
func (h *HubService) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// Dropped returns how many messages were discarded because the queue was full.
func (h *HubService) Dropped() uint64 {
	return h.dropped.Load()
}

// GetClientCount never waits on in-flight writes.
func (h *HubService) GetClientCount() int {
	return int(h.count.Load())
}
