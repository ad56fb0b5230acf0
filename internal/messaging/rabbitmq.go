package messaging

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/nataliethinks/o2c-integration-hub/config"
	"github.com/nataliethinks/o2c-integration-hub/internal/retry"
)

// QueueClient is the interface for durable queue operations
type QueueClient interface {
	Publish(ctx context.Context, body []byte) error
	Consume(ctx context.Context, processor MessageProcessor) error
	Close() error
}

// MessageProcessor handles one delivery. A nil return acknowledges the
// message; an error returns it to the queue for redelivery.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, body []byte) error
}

// RabbitMQClient implements QueueClient against a RabbitMQ broker
type RabbitMQClient struct {
	url       string
	queueName string
	policy    retry.Policy

	mu   sync.Mutex // serializes publishes; amqp channels are not safe for concurrent use
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitMQClient dials the broker under the bounded retry policy and
// declares the durable queue. Declaration is idempotent and runs on every
// startup.
func NewRabbitMQClient(ctx context.Context, cfg config.BrokerConfig) (*RabbitMQClient, error) {
	client := &RabbitMQClient{
		url:       cfg.URL(),
		queueName: cfg.QueueName,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Interval:    cfg.RetryInterval,
		},
	}

	err := client.policy.Do(ctx, func() error {
		if err := client.connect(); err != nil {
			log.Warn().Err(err).Str("host", cfg.Host).Msg("Broker not reachable, retrying")
			return err
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to broker")
	}

	log.Info().Str("queue", cfg.QueueName).Msg("Connected to broker")
	return client, nil
}

// connect establishes the connection, opens a channel and declares the
// queue. Caller must hold no lock or the publish lock.
func (c *RabbitMQClient) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return errors.Wrap(err, "failed to dial broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "failed to open channel")
	}

	if _, err := ch.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return errors.Wrapf(err, "failed to declare queue %s", c.queueName)
	}

	c.conn = conn
	c.ch = ch
	return nil
}

// Publish sends a message with persistent delivery mode so it survives a
// broker restart. A broken connection is re-established under the same
// bounded retry policy; exhaustion surfaces retry.ErrConnectionExhausted
// to the caller, which must fail the request rather than drop the event.
func (c *RabbitMQClient) Publish(ctx context.Context, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.policy.Do(ctx, func() error {
		if c.ch == nil || c.ch.IsClosed() {
			if err := c.connect(); err != nil {
				return err
			}
		}
		err := c.ch.PublishWithContext(ctx,
			"",          // default exchange
			c.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    uuid.NewString(),
				Body:         body,
			},
		)
		if err != nil {
			log.Warn().Err(err).Str("queue", c.queueName).Msg("Publish failed, retrying")
		}
		return err
	})
}

// Consume registers the processor with prefetch = 1: the broker will not
// push a second message until the one in flight is acknowledged or
// requeued. Runs until ctx is cancelled or the delivery stream closes.
func (c *RabbitMQClient) Consume(ctx context.Context, processor MessageProcessor) error {
	if err := c.ch.Qos(1, 0, false); err != nil {
		return errors.Wrap(err, "failed to set prefetch")
	}

	deliveries, err := c.ch.Consume(
		c.queueName,
		"",    // consumer tag
		false, // autoAck; acknowledgment is explicit
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to start consuming from %s", c.queueName)
	}

	log.Info().Str("queue", c.queueName).Msg("Waiting for messages")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			if err := processor.ProcessMessage(ctx, d.Body); err != nil {
				log.Error().Err(err).Str("messageId", d.MessageId).Msg("Processing failed, requeueing message")
				if nerr := d.Nack(false, true); nerr != nil {
					log.Error().Err(nerr).Msg("Failed to nack message")
				}
				continue
			}
			if aerr := d.Ack(false); aerr != nil {
				log.Error().Err(aerr).Msg("Failed to ack message")
			}
		}
	}
}

// Close closes the channel and connection
func (c *RabbitMQClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil && !c.ch.IsClosed() {
		if err := c.ch.Close(); err != nil {
			return err
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}
