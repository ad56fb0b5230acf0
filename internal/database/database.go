package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nataliethinks/o2c-integration-hub/config"
	"github.com/nataliethinks/o2c-integration-hub/internal/retry"
)

// Connect establishes a pooled connection to the reporting database under
// the bounded retry policy. Exhaustion is a fatal startup failure.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	policy := retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		Interval:    cfg.RetryInterval,
	}

	var db *gorm.DB
	err := policy.Do(ctx, func() error {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
			// Maps duplicate-key violations to gorm.ErrDuplicatedKey
			TranslateError: true,
		})
		if err != nil {
			log.Warn().Err(err).Str("host", cfg.Host).Msg("Database not reachable, retrying")
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying DB connection")
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info().Str("database", cfg.DBName).Msg("Connected to database")
	return db, nil
}
