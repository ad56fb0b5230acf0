package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nataliethinks/o2c-integration-hub/config"
)

// AdminHandler exposes operational information to admins
type AdminHandler struct {
	broker config.BrokerConfig
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(broker config.BrokerConfig) *AdminHandler {
	return &AdminHandler{broker: broker}
}

// HandleQueueInfo reports the queue the producer publishes to
func (h *AdminHandler) HandleQueueInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"queue":       h.broker.QueueName,
		"broker_host": h.broker.Host,
	})
}
