package ranking

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const writeWait = 10 * time.Second

type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub tracks open standings connections so they can be closed on shutdown.
type Hub struct {
	reader   *Reader
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]context.CancelFunc
}

func NewHub(r *Reader, interval time.Duration, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{reader: r, interval: interval, log: logger, clients: make(map[*websocket.Conn]context.CancelFunc)}
}

func (h *Hub) register(c *websocket.Conn, cancel context.CancelFunc) {
	h.mu.Lock()
	h.clients[c] = cancel
	h.mu.Unlock()
}

func (h *Hub) unregister(c *websocket.Conn) {
	h.mu.Lock()
	if cancel, ok := h.clients[c]; ok {
		cancel()
		delete(h.clients, c)
	}
	h.mu.Unlock()
}

// Len is the number of open connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll ends every open feed.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c, cancel := range h.clients {
		cancel()
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = c.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StandingsWS pushes a standings snapshot right away and on every tick
func (h *Hub) StandingsWS(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.register(ws, cancel)
	defer h.unregister(ws)

	go h.push(ctx, ws)

	// Read loop (discard client messages; protocol is server push)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	_ = ws.Close()
	return nil
}

func (h *Hub) push(ctx context.Context, ws *websocket.Conn) {
	for snap := range h.reader.Subscribe(ctx, h.interval) {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(wsEvent{Type: "standings", Data: snap}); err != nil {
			h.log.Debug("standings push stopped", "error", err)
			_ = ws.Close()
			return
		}
	}
}
