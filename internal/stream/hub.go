package stream

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"rebelodds/internal/engine"
)

// Hub fans committed trade ticks out to websocket subscribers. Publish never
// blocks the trade path: a subscriber that cannot keep up loses ticks.
type Hub struct {
	Logger     *zap.Logger
	BufferSize int

	mu   sync.Mutex
	subs map[chan engine.TradeTick]struct{}
}

func NewHub(logger *zap.Logger, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		Logger:     logger,
		BufferSize: bufferSize,
		subs:       map[chan engine.TradeTick]struct{}{},
	}
}

func (h *Hub) Publish(tick engine.TradeTick) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- tick:
		default:
		}
	}
}

func (h *Hub) subscribe() chan engine.TradeTick {
	ch := make(chan engine.TradeTick, h.BufferSize)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan engine.TradeTick) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *Hub) Register(r *gin.Engine) {
	r.GET("/api/v1/stream/trades", h.serveTrades)
}

// serveTrades upgrades the connection and forwards ticks until the client
// goes away.
func (h *Hub) serveTrades(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	ctx := c.Request.Context()

	// Reads are discarded; the socket is one-way. CloseRead surfaces client
	// disconnects through ctx.
	ctx = conn.CloseRead(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, tick)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
