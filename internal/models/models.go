package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Event constants for the envelope
const (
	EventTypeSalesOrderCreated = "SalesOrderCreated"
	EventVersion               = "1.0"
)

// Envelope wraps every published event with a type tag and schema version.
// It is immutable once published; Data carries the serialized domain payload.
type Envelope struct {
	EventType    string          `json:"event_type"`
	EventVersion string          `json:"event_version"`
	Data         json.RawMessage `json:"data"`
}

// Order is the domain payload of a SalesOrderCreated event.
type Order struct {
	OrderID    int64           `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Currency   string          `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  int64           `json:"created_at"`
	CreatedBy  string          `json:"created_by"`
}

// OrderRequest is an inbound order payload before validation.
// Amount is kept as json.Number so malformed values surface as a
// validation error instead of a silent float conversion.
type OrderRequest struct {
	OrderID    *int64      `json:"order_id"`
	CustomerID string      `json:"customer_id"`
	Currency   string      `json:"currency"`
	Amount     json.Number `json:"amount"`
}

// SalesOrderEvent is one row of the append-only reporting table.
// The unique index on (order_id, created_at) makes redelivered messages
// converge to a single row.
type SalesOrderEvent struct {
	ID         uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64           `gorm:"not null;uniqueIndex:idx_order_created" json:"order_id"`
	CustomerID string          `gorm:"not null" json:"customer_id"`
	Currency   string          `gorm:"not null" json:"currency"`
	Amount     decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	AmountCAD  decimal.Decimal `gorm:"column:amount_cad;type:numeric;not null" json:"amount_cad"`
	CreatedAt  int64           `gorm:"not null;autoCreateTime:false;uniqueIndex:idx_order_created" json:"created_at"`
	ReceivedAt int64           `gorm:"not null" json:"received_at"`
}

// TableName keeps the table name the reporting jobs expect
func (SalesOrderEvent) TableName() string {
	return "sales_order_events"
}

// SetupModels runs the idempotent schema migration, safe on every startup.
func SetupModels(db *gorm.DB) error {
	return db.AutoMigrate(&SalesOrderEvent{})
}
