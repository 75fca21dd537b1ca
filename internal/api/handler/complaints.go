package handler

import (
	"complaintbot/backend/internal/errs"
	"complaintbot/backend/internal/models"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListComplaints handles GET /complaints?status=&limit=.
func (h *Handler) ListComplaints(c *gin.Context) {
	status := models.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	records, err := h.Complaints.List(c.Request.Context(), status, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": records, "count": len(records)})
}

func (h *Handler) GetComplaint(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	rec, err := h.Complaints.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) ResolveComplaint(c *gin.Context) {
	h.changeStatus(c, models.StatusResolved)
}

func (h *Handler) RejectComplaint(c *gin.Context) {
	h.changeStatus(c, models.StatusRejected)
}

func (h *Handler) changeStatus(c *gin.Context, status models.Status) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	rec, err := h.Complaints.ChangeStatus(c.Request.Context(), id, status)
	if errors.Is(err, errs.ErrStatusFinal) && rec != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "complaint": rec})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	log.Printf("INFO: complaint %d set to %s over HTTP", rec.ID, rec.Status)
	c.JSON(http.StatusOK, rec)
}

func complaintID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid complaint id"})
		return 0, false
	}
	return id, true
}

// writeError maps service errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrStatusFinal):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.Printf("ERROR: api request %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
