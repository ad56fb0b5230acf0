package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/nataliethinks/o2c-integration-hub/internal/auth"
	"github.com/nataliethinks/o2c-integration-hub/internal/models"
	"github.com/nataliethinks/o2c-integration-hub/internal/retry"
	"github.com/nataliethinks/o2c-integration-hub/internal/services"
)

// OrdersHandler handles order intake requests
type OrdersHandler struct {
	producer *services.ProducerService
}

// NewOrdersHandler creates a new orders handler
func NewOrdersHandler(producer *services.ProducerService) *OrdersHandler {
	return &OrdersHandler{producer: producer}
}

// OrderResponse is the delivery receipt returned on publish success
type OrderResponse struct {
	Message string           `json:"message"`
	Event   *models.Envelope `json:"event"`
}

// HandleCreateOrder accepts an order payload, publishes it as a durable
// event and returns the published envelope. 201 means the event reached
// the broker, not that it has been processed.
func (h *OrdersHandler) HandleCreateOrder(c *gin.Context) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	claims := auth.ClaimsFromContext(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing Bearer token"})
		return
	}

	envelope, err := h.producer.PublishOrder(c.Request.Context(), &req, claims.Subject)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}
		log.Error().Err(err).Msg("Failed to publish order event")
		if errors.Is(err, retry.ErrConnectionExhausted) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Event broker unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish order event"})
		return
	}

	c.JSON(http.StatusCreated, OrderResponse{
		Message: "Order received and event published",
		Event:   envelope,
	})
}
