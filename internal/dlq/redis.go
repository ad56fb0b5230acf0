// Package dlq stores undecodable message bodies in a redis list so they
// can be inspected instead of silently discarded.
package dlq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/nataliethinks/o2c-integration-hub/config"
	"github.com/nataliethinks/o2c-integration-hub/internal/metrics"
)

// DeadLetter is one parked message with the reason it could not be
// processed.
type DeadLetter struct {
	At      time.Time       `json:"at"`
	Error   string          `json:"error"`
	Payload json.RawMessage `json:"payload"`
}

// Store is a redis-backed dead-letter list
type Store struct {
	client  *redis.Client
	key     string
	enabled bool
}

// NewStore creates a dead-letter store. A disabled store is a no-op so the
// worker can run without redis.
func NewStore(cfg config.RedisConfig) (*Store, error) {
	if !cfg.Enabled {
		return &Store{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &Store{
		client:  client,
		key:     cfg.DeadLetterKey,
		enabled: true,
	}, nil
}

// Push parks a payload with its error. Best effort: a failed push is
// logged, never propagated, so a redis outage cannot wedge the consumer.
func (s *Store) Push(ctx context.Context, payload []byte, cause error) {
	if !s.enabled {
		return
	}

	letter := DeadLetter{
		At:      time.Now().UTC(),
		Error:   cause.Error(),
		Payload: json.RawMessage(payload),
	}
	data, err := json.Marshal(letter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal dead letter")
		return
	}

	if err := s.client.LPush(ctx, s.key, data).Err(); err != nil {
		log.Error().Err(err).Str("key", s.key).Msg("Failed to push dead letter")
		return
	}
	metrics.MessagesDeadLettered.Inc()
}

// Close closes the redis connection
func (s *Store) Close() error {
	if !s.enabled || s.client == nil {
		return nil
	}
	return s.client.Close()
}
