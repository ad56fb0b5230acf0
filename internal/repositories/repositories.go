package repositories

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/nataliethinks/o2c-integration-hub/internal/models"
)

// ErrDuplicateEvent is returned when a row for the same (order_id,
// created_at) pair already exists. Consumers treat it as an
// already-processed no-op, not a failure.
var ErrDuplicateEvent = errors.New("sales order event already recorded")

// SalesOrderEventRepository provides access to the reporting table
type SalesOrderEventRepository struct {
	db *gorm.DB
}

// NewSalesOrderEventRepository creates a new repository
func NewSalesOrderEventRepository(db *gorm.DB) *SalesOrderEventRepository {
	return &SalesOrderEventRepository{db: db}
}

// Create appends one processed event row.
func (r *SalesOrderEventRepository) Create(ctx context.Context, event *models.SalesOrderEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEvent
		}
		return pkgerrors.Wrap(err, "failed to insert sales order event")
	}
	return nil
}

// Count returns the total number of recorded events
func (r *SalesOrderEventRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SalesOrderEvent{}).Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to count sales order events")
	}
	return count, nil
}

// CountSince returns the number of events received at or after the given
// unix timestamp, used by the worker heartbeat job.
func (r *SalesOrderEventRepository) CountSince(ctx context.Context, receivedAt int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SalesOrderEvent{}).
		Where("received_at >= ?", receivedAt).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to count recent sales order events")
	}
	return count, nil
}
