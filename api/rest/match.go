package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/matchd/account"
	"github.com/kasuganosora/matchd/audit"
	"github.com/kasuganosora/matchd/channel"
	"github.com/kasuganosora/matchd/match"
	mw "github.com/kasuganosora/matchd/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MatchHandler exposes the matching engine to authenticated callers. The
// caller is always the actor; the path names the target.
type MatchHandler struct {
	db       *gorm.DB
	engine   *match.Engine
	accounts *account.Store
	channels *channel.Store
	audit    *audit.Service
	logger   *zap.Logger
}

// NewMatchHandler creates a new MatchHandler. auditSvc may be nil.
func NewMatchHandler(db *gorm.DB, engine *match.Engine, auditSvc *audit.Service, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{
		db:       db,
		engine:   engine,
		accounts: account.NewStore(),
		channels: channel.NewStore(),
		audit:    auditSvc,
		logger:   logger,
	}
}

// Register mounts the handler's routes on an authenticated group.
func (h *MatchHandler) Register(g *gin.RouterGroup) {
	g.POST("/interactions/:target_id/like", h.Like)
	g.POST("/interactions/:target_id/reject", h.Reject)
	g.POST("/blocks/:target_id", h.Block)
	g.DELETE("/blocks/:target_id", h.Unblock)
	g.GET("/matches", h.ListMatches)
	g.GET("/channels/:target_id", h.GetChannel)
	g.GET("/accounts/me/counters", h.Counters)
}

// Like handles POST /api/interactions/:target_id/like.
func (h *MatchHandler) Like(c *gin.Context) {
	h.act(c, "like", func(actorID, targetID int64) (interface{}, error) {
		return h.engine.Like(c.Request.Context(), actorID, targetID)
	})
}

// Reject handles POST /api/interactions/:target_id/reject.
func (h *MatchHandler) Reject(c *gin.Context) {
	h.act(c, "reject", func(actorID, targetID int64) (interface{}, error) {
		return h.engine.Reject(c.Request.Context(), actorID, targetID)
	})
}

// Block handles POST /api/blocks/:target_id.
func (h *MatchHandler) Block(c *gin.Context) {
	h.act(c, "block", func(actorID, targetID int64) (interface{}, error) {
		return h.engine.Block(c.Request.Context(), actorID, targetID)
	})
}

// Unblock handles DELETE /api/blocks/:target_id.
func (h *MatchHandler) Unblock(c *gin.Context) {
	h.act(c, "unblock", func(actorID, targetID int64) (interface{}, error) {
		return h.engine.Unblock(c.Request.Context(), actorID, targetID)
	})
}

// act runs one relationship mutation for the caller, writes the response and
// records the audit entry.
func (h *MatchHandler) act(c *gin.Context, action string, fn func(actorID, targetID int64) (interface{}, error)) {
	actorID := mw.GetAccountID(c)
	targetID, err := strconv.ParseInt(c.Param("target_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target id"})
		return
	}

	start := time.Now()
	res, err := fn(actorID, targetID)
	elapsed := time.Since(start)
	if err != nil {
		h.writeError(c, err)
	} else {
		c.JSON(http.StatusOK, res)
	}
	h.record(c, action, actorID, targetID, res, err, elapsed)
}

func (h *MatchHandler) record(c *gin.Context, action string, actorID, targetID int64, res interface{}, err error, elapsed time.Duration) {
	if h.audit == nil {
		return
	}
	entry := audit.AuditEntry{
		TraceID:    mw.GetTraceID(c),
		AccountID:  &actorID,
		TargetID:   &targetID,
		Action:     action,
		Request:    gin.H{"target_id": targetID},
		IP:         c.ClientIP(),
		DurationMs: int(elapsed.Milliseconds()),
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Response = res
	}
	h.audit.Log(entry)
}

// ListMatches handles GET /api/matches?filter=match|like&page=&page_size=.
func (h *MatchHandler) ListMatches(c *gin.Context) {
	filter := c.DefaultQuery("filter", match.FilterMatch)
	page, err := queryInt(c, "page")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page_size"})
		return
	}

	entries, err := h.engine.ListMatches(c.Request.Context(), mw.GetAccountID(c), filter,
		match.Page{Number: page, Size: size})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": filter, "entries": entries})
}

// GetChannel handles GET /api/channels/:target_id and returns the caller's
// view of the channel they share with the target.
func (h *MatchHandler) GetChannel(c *gin.Context) {
	selfID := mw.GetAccountID(c)
	targetID, err := strconv.ParseInt(c.Param("target_id"), 10, 64)
	if err != nil || targetID <= 0 || targetID == selfID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target id"})
		return
	}

	ch, err := h.channels.Get(h.db.WithContext(c.Request.Context()), selfID, targetID)
	if errors.Is(err, channel.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}

	status, peerStatus := ch.LowStatus, ch.HighStatus
	pinned, unread := ch.LowPinned, ch.LowUnread
	if selfID == ch.HighID {
		status, peerStatus = ch.HighStatus, ch.LowStatus
		pinned, unread = ch.HighPinned, ch.HighUnread
	}
	c.JSON(http.StatusOK, gin.H{
		"channel_id":  ch.ID,
		"target_id":   targetID,
		"status":      status,
		"peer_status": peerStatus,
		"pinned":      pinned,
		"unread":      unread,
	})
}

// Counters handles GET /api/accounts/me/counters.
func (h *MatchHandler) Counters(c *gin.Context) {
	acc, err := h.accounts.Get(h.db.WithContext(c.Request.Context()), mw.GetAccountID(c), false)
	if errors.Is(err, account.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"likes_given": acc.LikesGiven,
		"matches":     acc.Matches,
		"rejects":     acc.Rejects,
	})
}

// writeError maps an engine error to its HTTP status. Client errors carry
// their message; server errors are opaque and logged with the trace id.
func (h *MatchHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, match.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, match.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, match.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, match.ErrTransient):
		h.logger.Warn("transient engine failure",
			zap.String("trace_id", mw.GetTraceID(c)), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry"})
	default:
		h.internalError(c, err)
	}
}

func (h *MatchHandler) internalError(c *gin.Context, err error) {
	h.logger.Error("request failed",
		zap.String("trace_id", mw.GetTraceID(c)),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
