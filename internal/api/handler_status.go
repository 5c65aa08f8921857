package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetMachineStatus handles GET /api/machine/status for the primary
// machine this backend runs inside.
func (h *Handler) GetMachineStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.PrimaryStatus())
}

// GetMachineStatusByID handles GET /api/machine/status/:id.
func (h *Handler) GetMachineStatusByID(c *gin.Context) {
	status, ok := h.hub.Status(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Machine not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// WebSocket handles GET /ws by upgrading to a realtime connection.
func (h *Handler) WebSocket(c *gin.Context) {
	if err := h.hub.HandleConnection(c.Writer, c.Request); err != nil {
		log.Printf("websocket upgrade: %v", err)
	}
}
