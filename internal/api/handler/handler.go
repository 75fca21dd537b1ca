// Package handler serves the operator HTTP API: complaint listing, status
// changes and the live websocket feed.
package handler

import (
	"complaintbot/backend/internal/feed"
	"complaintbot/backend/internal/models"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ComplaintService is the part of the complaint pipeline exposed over HTTP.
type ComplaintService interface {
	Get(ctx context.Context, id int64) (*models.ComplaintRecord, error)
	List(ctx context.Context, status models.Status, limit int) ([]models.ComplaintRecord, error)
	ChangeStatus(ctx context.Context, id int64, status models.Status) (*models.ComplaintRecord, error)
}

// Handler holds the services behind the HTTP routes.
type Handler struct {
	Complaints ComplaintService
	Hub        *feed.Manager
	OperatorID int64
	JWTSecret  []byte
	// Ready reports whether the backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewHandler(complaints ComplaintService, hub *feed.Manager, operatorID int64, jwtSecret string) *Handler {
	return &Handler{
		Complaints: complaints,
		Hub:        hub,
		OperatorID: operatorID,
		JWTSecret:  []byte(jwtSecret),
	}
}

// NewRouter wires the routes. The /api/v1 group is mounted only when a JWT secret is configured.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", h.Health)
	r.GET("/ready", h.Readiness)

	if len(h.JWTSecret) == 0 {
		return r
	}
	api := r.Group("/api/v1", h.RequireOperator())
	api.GET("/complaints", h.ListComplaints)
	api.GET("/complaints/:id", h.GetComplaint)
	api.POST("/complaints/:id/resolve", h.ResolveComplaint)
	api.POST("/complaints/:id/reject", h.RejectComplaint)
	api.GET("/feed", h.ServeWebSocket)
	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Readiness(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
