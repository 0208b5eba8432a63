package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Forget(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_SkipsDuplicates(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()

	inner := newRecordingHandler("GoodsReceived")
	handler := NewIdempotentHandler(inner, store, time.Hour, zap.NewNop())
	assert.Equal(t, []string{"GoodsReceived"}, handler.EventTypes())

	event := newTestEvent("GoodsReceived")
	require.NoError(t, handler.Handle(context.Background(), event))
	require.NoError(t, handler.Handle(context.Background(), event))
	require.NoError(t, handler.Handle(context.Background(), newTestEvent("GoodsReceived")))

	assert.Equal(t, 2, inner.count())
	assert.Equal(t, DeliveryStats{Processed: 2, Duplicate: 1}, handler.Stats())
}

func TestIdempotentHandler_FailureReleasesClaim(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()

	inner := newRecordingHandler("GoodsReceived")
	inner.err = errors.New("downstream unavailable")
	handler := NewIdempotentHandler(inner, store, time.Hour, nil)

	event := newTestEvent("GoodsReceived")
	require.Error(t, handler.Handle(context.Background(), event))

	inner.err = nil
	require.NoError(t, handler.Handle(context.Background(), event))
	assert.Equal(t, 2, inner.count())
	assert.Equal(t, DeliveryStats{Processed: 1, Failed: 1}, handler.Stats())
}

func TestIdempotentHandler_StoreErrorStillHandles(t *testing.T) {
	store := new(mockIdempotencyStore)
	event := newTestEvent("OrderAllocated")
	key := eventKeyPrefix + event.EventID().String()
	store.On("MarkProcessed", mock.Anything, key, time.Minute).Return(false, errors.New("redis down"))

	inner := newRecordingHandler()
	handler := NewIdempotentHandler(inner, store, time.Minute, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), event))
	assert.Equal(t, 1, inner.count())
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Forget", mock.Anything, mock.Anything)
}
