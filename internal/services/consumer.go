package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/nataliethinks/o2c-integration-hub/internal/metrics"
	"github.com/nataliethinks/o2c-integration-hub/internal/models"
	"github.com/nataliethinks/o2c-integration-hub/internal/normalizer"
	"github.com/nataliethinks/o2c-integration-hub/internal/repositories"
)

// EventRepository is the slice of the repository the consumer needs
type EventRepository interface {
	Create(ctx context.Context, event *models.SalesOrderEvent) error
}

// DeadLetterStore parks undecodable payloads for later inspection
type DeadLetterStore interface {
	Push(ctx context.Context, payload []byte, cause error)
}

const defaultPersistTimeout = 30 * time.Second

// ConsumerService processes one queue delivery at a time. The return
// value of ProcessMessage is the acknowledgment decision: nil acks the
// message, an error requeues it for redelivery.
type ConsumerService struct {
	repo           EventRepository
	deadLetters    DeadLetterStore
	persistTimeout time.Duration
	now            func() time.Time
}

// NewConsumerService creates a consumer service
func NewConsumerService(repo EventRepository, deadLetters DeadLetterStore) *ConsumerService {
	return &ConsumerService{
		repo:           repo,
		deadLetters:    deadLetters,
		persistTimeout: defaultPersistTimeout,
		now:            time.Now,
	}
}

// ProcessMessage runs one message through decode, filter, normalize and
// persist.
//
// Undecodable bodies are dead-lettered and acknowledged so a poison
// message cannot block the queue at prefetch = 1. Unrecognized event
// types are acknowledged without processing. Only a persistence failure
// returns an error: the message stays unacknowledged and the broker
// redelivers it.
func (s *ConsumerService) ProcessMessage(ctx context.Context, body []byte) error {
	metrics.EventsConsumed.Inc()

	var envelope models.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Error().Err(err).Msg("Dropping undecodable message body")
		s.deadLetters.Push(ctx, body, err)
		return nil
	}

	if envelope.EventType != models.EventTypeSalesOrderCreated {
		log.Debug().Str("eventType", envelope.EventType).Msg("Skipping unrecognized event type")
		return nil
	}

	var order models.Order
	if err := json.Unmarshal(envelope.Data, &order); err != nil {
		log.Error().Err(err).Msg("Dropping event with undecodable order payload")
		s.deadLetters.Push(ctx, body, err)
		return nil
	}

	event := &models.SalesOrderEvent{
		OrderID:    order.OrderID,
		CustomerID: order.CustomerID,
		Currency:   order.Currency,
		Amount:     order.Amount,
		AmountCAD:  normalizer.ToCAD(order.Currency, order.Amount),
		CreatedAt:  order.CreatedAt,
		ReceivedAt: s.now().Unix(),
	}

	// Bound the write so a stuck storage call cannot block the consumer
	// indefinitely.
	persistCtx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	start := time.Now()
	err := s.repo.Create(persistCtx, event)
	metrics.DBLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateEvent) {
			log.Info().Int64("orderId", order.OrderID).Msg("Duplicate delivery, already recorded")
			return nil
		}
		return errors.Wrap(err, "failed to persist sales order event")
	}

	metrics.EventsPersisted.Inc()
	log.Info().
		Int64("orderId", order.OrderID).
		Str("amountCad", event.AmountCAD.StringFixed(2)).
		Msg("Order event loaded")

	return nil
}
