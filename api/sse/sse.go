// Package sse streams match events to connected clients.
package sse

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/matchd/cache"
	mw "github.com/kasuganosora/matchd/middleware"
	"github.com/kasuganosora/matchd/notify"
	"go.uber.org/zap"
)

const defaultKeepalive = 30 * time.Second

// Handler handles the SSE endpoint.
type Handler struct {
	pubsub    cache.PubSub
	keepalive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a new SSE Handler. A zero keepalive uses 30s.
func NewHandler(pubsub cache.PubSub, keepalive time.Duration, logger *zap.Logger) *Handler {
	if keepalive <= 0 {
		keepalive = defaultKeepalive
	}
	return &Handler{pubsub: pubsub, keepalive: keepalive, logger: logger}
}

// ServeSSE handles GET /sse?token=<jwt>. It must run behind middleware.Auth
// and relays the caller's match events until the client goes away.
func (h *Handler) ServeSSE(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	if accountID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	ctx := c.Request.Context()
	msgCh, unsub, err := h.pubsub.Subscribe(ctx, notify.Topic(accountID))
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Int64("account_id", accountID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// Subscribed before this is sent, so nothing published after the client
	// sees "connected" is missed.
	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"account_id\":%d}\n\n", accountID)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", notify.EventMatch, msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-ctx.Done():
			return
		}
	}
}
