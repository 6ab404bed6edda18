package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amishk599/upfeed/internal/poller"
)

// Controller is the part of the poller the API drives.
type Controller interface {
	Poll(ctx context.Context) (poller.CycleStats, error)
	Reset(ctx context.Context) error
	LastStats() (poller.CycleStats, bool)
	SeenCount() int
}

// SeenLister lists the persisted ids in insertion order.
type SeenLister interface {
	IDs() []string
}

// Handler serves the admin endpoints.
type Handler struct {
	ctrl    Controller
	seen    SeenLister
	started time.Time
}

// NewHandler creates a handler over ctrl and seen.
func NewHandler(ctrl Controller, seen SeenLister) *Handler {
	return &Handler{ctrl: ctrl, seen: seen, started: time.Now()}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Status returns the last cycle's stats and the seen set size.
func (h *Handler) Status(c *gin.Context) {
	resp := gin.H{"seen": h.ctrl.SeenCount()}
	if stats, ok := h.ctrl.LastStats(); ok {
		resp["last_cycle"] = stats
	}
	c.JSON(http.StatusOK, resp)
}

// Seen lists the persisted ids.
func (h *Handler) Seen(c *gin.Context) {
	ids := h.seen.IDs()
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(ids), "links": ids})
}

// Reset clears the seen set.
func (h *Handler) Reset(c *gin.Context) {
	if err := h.ctrl.Reset(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// Cycle runs one cycle now. A cycle already in flight yields 409.
func (h *Handler) Cycle(c *gin.Context) {
	stats, err := h.ctrl.Poll(c.Request.Context())
	switch {
	case errors.Is(err, poller.ErrCycleBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "cycle": stats})
	default:
		c.JSON(http.StatusOK, gin.H{"cycle": stats})
	}
}
