package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Health handles GET /api/health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// logTailLines is how many recent log lines GET /api/logs returns.
const logTailLines = 100

// Logs handles GET /api/logs with the most recent log lines as plain text.
func (h *Handler) Logs(c *gin.Context) {
	if h.logs == nil {
		c.String(http.StatusOK, "")
		return
	}
	c.String(http.StatusOK, strings.Join(h.logs.Tail(logTailLines), "\n"))
}
