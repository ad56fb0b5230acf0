package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/nataliethinks/o2c-integration-hub/internal/metrics"
	"github.com/nataliethinks/o2c-integration-hub/internal/models"
)

// QueuePublisher is the slice of the queue client the producer needs
type QueuePublisher interface {
	Publish(ctx context.Context, body []byte) error
}

// ValidationError marks a malformed order payload. It is a client error:
// nothing was published and the request must not be retried as-is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ProducerService validates inbound orders and publishes them as durable
// SalesOrderCreated events.
type ProducerService struct {
	queue QueuePublisher
	now   func() time.Time
}

// NewProducerService creates a producer backed by the given queue client
func NewProducerService(queue QueuePublisher) *ProducerService {
	return &ProducerService{
		queue: queue,
		now:   time.Now,
	}
}

// PublishOrder validates the payload, wraps it in an envelope and
// publishes it. The returned envelope is the caller's delivery receipt:
// the event reached durable storage in the broker, not the reporting
// table. Publish failure surfaces as an error with no partial side
// effects.
func (s *ProducerService) PublishOrder(ctx context.Context, req *models.OrderRequest, createdBy string) (*models.Envelope, error) {
	order, err := s.buildOrder(req, createdBy)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(order)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal order")
	}
	envelope := &models.Envelope{
		EventType:    models.EventTypeSalesOrderCreated,
		EventVersion: models.EventVersion,
		Data:         data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal envelope")
	}

	if err := s.queue.Publish(ctx, body); err != nil {
		return nil, errors.Wrap(err, "failed to publish order event")
	}

	metrics.EventsPublished.Inc()
	log.Info().
		Int64("orderId", order.OrderID).
		Str("createdBy", createdBy).
		Msg("Order event published")

	return envelope, nil
}

func (s *ProducerService) buildOrder(req *models.OrderRequest, createdBy string) (*models.Order, error) {
	if req.OrderID == nil {
		return nil, &ValidationError{Field: "order_id", Reason: "is required"}
	}
	if req.CustomerID == "" {
		return nil, &ValidationError{Field: "customer_id", Reason: "is required"}
	}
	if req.Amount == "" {
		return nil, &ValidationError{Field: "amount", Reason: "is required"}
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		return nil, &ValidationError{Field: "amount", Reason: "must be a decimal number"}
	}
	if amount.IsNegative() {
		return nil, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	return &models.Order{
		OrderID:    *req.OrderID,
		CustomerID: req.CustomerID,
		Currency:   currency,
		Amount:     amount,
		CreatedAt:  s.now().Unix(),
		CreatedBy:  createdBy,
	}, nil
}
