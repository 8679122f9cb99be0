package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vitos/crypto_sentiment_bot/internal/usecase"
	"go.uber.org/zap"
)

const statusBroadcastInterval = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard may be served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StatusHub pushes bot status snapshots to every connected client on a
// fixed interval. Slow or dead clients are dropped, never waited on.
type StatusHub struct {
	bots   *usecase.BotService
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	done    chan struct{}
	once    sync.Once
}

func NewStatusHub(bots *usecase.BotService, logger *zap.Logger) *StatusHub {
	return &StatusHub{
		bots:    bots,
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
		done:    make(chan struct{}),
	}
}

func (h *StatusHub) Run() {
	go h.broadcastLoop()
}

func (h *StatusHub) Stop() {
	h.once.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}

func (h *StatusHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Send the current state immediately so the client does not wait for
	// the next broadcast tick.
	h.send(conn, h.bots.ListStatuses())

	// Drain incoming frames to process close messages; the stream is
	// one-directional otherwise.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *StatusHub) broadcastLoop() {
	ticker := time.NewTicker(statusBroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			statuses := h.bots.ListStatuses()

			h.mu.Lock()
			conns := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				conns = append(conns, conn)
			}
			h.mu.Unlock()

			for _, conn := range conns {
				h.send(conn, statuses)
			}
		}
	}
}

func (h *StatusHub) send(conn *websocket.Conn, payload interface{}) {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(payload); err != nil {
		h.drop(conn)
	}
}

func (h *StatusHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, exists := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()

	if exists {
		conn.Close()
	}
}
