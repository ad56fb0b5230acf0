package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nataliethinks/o2c-integration-hub/internal/models"
)

// Mock queue publisher for testing
type MockQueuePublisher struct {
	mock.Mock
}

func (m *MockQueuePublisher) Publish(ctx context.Context, body []byte) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestPublishOrderBuildsEnvelope(t *testing.T) {
	mockQueue := new(MockQueuePublisher)

	var published []byte
	mockQueue.On("Publish", mock.Anything, mock.AnythingOfType("[]uint8")).
		Run(func(args mock.Arguments) {
			published = args.Get(1).([]byte)
		}).
		Return(nil)

	service := NewProducerService(mockQueue)
	service.now = func() time.Time { return time.Unix(1700000000, 0) }

	req := &models.OrderRequest{
		OrderID:    int64Ptr(42),
		CustomerID: "cust-7",
		Currency:   "usd",
		Amount:     json.Number("100"),
	}

	envelope, err := service.PublishOrder(context.Background(), req, "admin")
	require.NoError(t, err)
	require.Equal(t, models.EventTypeSalesOrderCreated, envelope.EventType)
	require.Equal(t, models.EventVersion, envelope.EventVersion)

	// The published bytes decode back to the same envelope and order
	var wire models.Envelope
	require.NoError(t, json.Unmarshal(published, &wire))
	require.Equal(t, envelope.EventType, wire.EventType)

	var order models.Order
	require.NoError(t, json.Unmarshal(wire.Data, &order))
	require.Equal(t, int64(42), order.OrderID)
	require.Equal(t, "cust-7", order.CustomerID)
	require.Equal(t, "usd", order.Currency)
	require.Equal(t, "100", order.Amount.String())
	require.Equal(t, int64(1700000000), order.CreatedAt)
	require.Equal(t, "admin", order.CreatedBy)

	mockQueue.AssertExpectations(t)
}

func TestPublishOrderDefaultsCurrency(t *testing.T) {
	mockQueue := new(MockQueuePublisher)

	var published []byte
	mockQueue.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(1).([]byte)
		}).
		Return(nil)

	service := NewProducerService(mockQueue)
	req := &models.OrderRequest{
		OrderID:    int64Ptr(1),
		CustomerID: "cust-1",
		Amount:     json.Number("9.99"),
	}

	_, err := service.PublishOrder(context.Background(), req, "user")
	require.NoError(t, err)

	var wire models.Envelope
	require.NoError(t, json.Unmarshal(published, &wire))
	var order models.Order
	require.NoError(t, json.Unmarshal(wire.Data, &order))
	require.Equal(t, "USD", order.Currency)
}

func TestPublishOrderValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   *models.OrderRequest
		field string
	}{
		{
			name:  "missing order_id",
			req:   &models.OrderRequest{CustomerID: "c", Amount: json.Number("1")},
			field: "order_id",
		},
		{
			name:  "missing customer_id",
			req:   &models.OrderRequest{OrderID: int64Ptr(1), Amount: json.Number("1")},
			field: "customer_id",
		},
		{
			name:  "missing amount",
			req:   &models.OrderRequest{OrderID: int64Ptr(1), CustomerID: "c"},
			field: "amount",
		},
		{
			name:  "non-numeric amount",
			req:   &models.OrderRequest{OrderID: int64Ptr(1), CustomerID: "c", Amount: json.Number("abc")},
			field: "amount",
		},
		{
			name:  "negative amount",
			req:   &models.OrderRequest{OrderID: int64Ptr(1), CustomerID: "c", Amount: json.Number("-5")},
			field: "amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockQueue := new(MockQueuePublisher)
			service := NewProducerService(mockQueue)

			_, err := service.PublishOrder(context.Background(), tt.req, "user")

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Equal(t, tt.field, validationErr.Field)

			// Nothing must reach the queue on a validation failure
			mockQueue.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestPublishOrderPropagatesPublishFailure(t *testing.T) {
	mockQueue := new(MockQueuePublisher)
	mockQueue.On("Publish", mock.Anything, mock.Anything).
		Return(pkgerrors.New("broker gone"))

	service := NewProducerService(mockQueue)
	req := &models.OrderRequest{
		OrderID:    int64Ptr(5),
		CustomerID: "cust-5",
		Amount:     json.Number("10"),
	}

	envelope, err := service.PublishOrder(context.Background(), req, "user")
	require.Error(t, err)
	require.Nil(t, envelope)
	require.Contains(t, err.Error(), "broker gone")

	mockQueue.AssertExpectations(t)
}
