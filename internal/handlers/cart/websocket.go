package cart

import (
	"context"
	"time"

	"stride_back_end/internal/cache"
	"stride_back_end/internal/cart"
	"stride_back_end/internal/handlers"
	"stride_back_end/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

type wsMessage struct {
	Type    string        `json:"type"`
	Message string        `json:"message,omitempty"`
	Cart    *cart.Summary `json:"cart,omitempty"`
}

// Sync keeps every open tab of a user on the same cart: each write to the
// cart is pushed to all connected sockets.
func (h *Handler) Sync(c *gin.Context) {
	u := middleware.MustUser(c)
	owner := cache.UserOwner(u.ID.Hex())

	// The subscription outlives the request timeout, so it only follows
	// the request context.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub, err := h.carts.Subscribe(ctx, owner)
	if err != nil {
		h.log.Error("cart subscribe failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		handlers.Internal(c, err)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Reader: handles pongs and notices the client going away.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg wsMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(msg) == nil
	}
	push := func() bool {
		ct, err := h.carts.Load(ctx, owner)
		if err != nil {
			h.log.Warn("cart load for sync failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
			return true
		}
		s := ct.Summary()
		return send(wsMessage{Type: "cart_updated", Cart: &s})
	}

	if !send(wsMessage{Type: "connected", Message: "Cart sync enabled"}) || !push() {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(wsWriteWait))
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if ev == cache.EventCartUpdated || ev == cache.EventCartCleared {
				if !push() {
					return
				}
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
