package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/yoockh/labourline/internal/services"
	"github.com/yoockh/labourline/internal/utils"
)

// WSHandler streams call telemetry to dashboards.
type WSHandler struct {
	redis    *redis.Client
	upgrader websocket.Upgrader

	// Dashboards only listen, so the server pings to keep the read deadline moving.
	pingPeriod time.Duration
	pongWait   time.Duration
}

func NewWSHandler(rdb *redis.Client) *WSHandler {
	return &WSHandler{
		redis: rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
		pingPeriod: 30 * time.Second,
		pongWait:   60 * time.Second,
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

func (h *WSHandler) CallEvents(c *gin.Context) {
	if h.redis == nil {
		writeError(c, utils.E(utils.CodeUnavailable, "WSHandler.CallEvents", "live events require redis", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, services.CallEventsChannel)
	defer pubsub.Close()

	// reader: only keeps the connection alive and notices the close
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
			return nil
		})
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
		}
	}()

	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	// writer: Redis Pub/Sub -> WS
	msgs := pubsub.Channel()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wc.ping(); err != nil {
				return
			}
		case m, ok := <-msgs:
			if !ok {
				return
			}
			// forward as-is (payload is the JSON-encoded CallEvent)
			if err := wc.writeText([]byte(m.Payload)); err != nil {
				return
			}
		}
	}
}
