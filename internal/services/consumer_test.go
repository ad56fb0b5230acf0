package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nataliethinks/o2c-integration-hub/internal/models"
	"github.com/nataliethinks/o2c-integration-hub/internal/repositories"
)

// Mock repository for testing
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *models.SalesOrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Mock dead-letter store for testing
type MockDeadLetterStore struct {
	mock.Mock
}

func (m *MockDeadLetterStore) Push(ctx context.Context, payload []byte, cause error) {
	m.Called(ctx, payload, cause)
}

func orderEventBody(t *testing.T, order models.Order) []byte {
	t.Helper()
	data, err := json.Marshal(order)
	require.NoError(t, err)
	body, err := json.Marshal(models.Envelope{
		EventType:    models.EventTypeSalesOrderCreated,
		EventVersion: models.EventVersion,
		Data:         data,
	})
	require.NoError(t, err)
	return body
}

func TestProcessMessagePersistsAndAcks(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockDLQ := new(MockDeadLetterStore)

	var persisted *models.SalesOrderEvent
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.SalesOrderEvent")).
		Run(func(args mock.Arguments) {
			persisted = args.Get(1).(*models.SalesOrderEvent)
		}).
		Return(nil)

	service := NewConsumerService(mockRepo, mockDLQ)
	service.now = func() time.Time { return time.Unix(1700000100, 0) }

	body := orderEventBody(t, models.Order{
		OrderID:    42,
		CustomerID: "cust-7",
		Currency:   "usd",
		Amount:     decimal.RequireFromString("100"),
		CreatedAt:  1700000000,
		CreatedBy:  "admin",
	})

	err := service.ProcessMessage(context.Background(), body)
	require.NoError(t, err)

	require.NotNil(t, persisted)
	require.Equal(t, int64(42), persisted.OrderID)
	require.Equal(t, "cust-7", persisted.CustomerID)
	require.Equal(t, "usd", persisted.Currency)
	require.Equal(t, "135.00", persisted.AmountCAD.StringFixed(2))
	require.Equal(t, int64(1700000000), persisted.CreatedAt)
	require.Equal(t, int64(1700000100), persisted.ReceivedAt)

	mockRepo.AssertExpectations(t)
	mockDLQ.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessMessageMalformedBodyIsDeadLetteredAndAcked(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockDLQ := new(MockDeadLetterStore)
	mockDLQ.On("Push", mock.Anything, mock.Anything, mock.Anything).Return()

	service := NewConsumerService(mockRepo, mockDLQ)

	// nil error means the message is acknowledged: a poison message must
	// not block the queue
	err := service.ProcessMessage(context.Background(), []byte("not json"))
	require.NoError(t, err)

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockDLQ.AssertCalled(t, "Push", mock.Anything, []byte("not json"), mock.Anything)
}

func TestProcessMessageSkipsForeignEventTypes(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockDLQ := new(MockDeadLetterStore)

	service := NewConsumerService(mockRepo, mockDLQ)

	body, err := json.Marshal(models.Envelope{
		EventType:    "SalesOrderCancelled",
		EventVersion: models.EventVersion,
		Data:         json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	require.NoError(t, service.ProcessMessage(context.Background(), body))

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockDLQ.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessMessagePersistenceFailureRequeues(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockDLQ := new(MockDeadLetterStore)
	mockRepo.On("Create", mock.Anything, mock.Anything).
		Return(pkgerrors.New("connection reset"))

	service := NewConsumerService(mockRepo, mockDLQ)

	body := orderEventBody(t, models.Order{
		OrderID:    7,
		CustomerID: "cust-1",
		Currency:   "CAD",
		Amount:     decimal.RequireFromString("50"),
		CreatedAt:  1700000000,
	})

	// An error leaves the message unacknowledged so the broker redelivers
	err := service.ProcessMessage(context.Background(), body)
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection reset")

	mockDLQ.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessMessageDuplicateDeliveryIsAcked(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockDLQ := new(MockDeadLetterStore)
	mockRepo.On("Create", mock.Anything, mock.Anything).
		Return(repositories.ErrDuplicateEvent)

	service := NewConsumerService(mockRepo, mockDLQ)

	body := orderEventBody(t, models.Order{
		OrderID:    7,
		CustomerID: "cust-1",
		Currency:   "USD",
		Amount:     decimal.RequireFromString("10"),
		CreatedAt:  1700000000,
	})

	// A redelivered message whose row already exists is a no-op ack
	require.NoError(t, service.ProcessMessage(context.Background(), body))

	mockRepo.AssertExpectations(t)
	mockDLQ.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
}
