package trade

import (
	"errors"
	"testing"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestPurchaseOrder(t *testing.T) *PurchaseOrder {
	order, err := NewPurchaseOrder("PO-2024-001", "Test Supplier", uuid.New())
	require.NoError(t, err)
	return order
}

func addTestLine(t *testing.T, order *PurchaseOrder, qty int64) *PurchaseOrderLine {
	line, err := order.AddLine(uuid.New(), qty, decimal.NewFromFloat(12.5))
	require.NoError(t, err)
	return line
}

func TestNewPurchaseOrder(t *testing.T) {
	t.Run("valid order starts confirmed", func(t *testing.T) {
		order := createTestPurchaseOrder(t)
		assert.Equal(t, PurchaseOrderStatusConfirmed, order.Status)
		assert.Equal(t, 1, order.Version)
		assert.Empty(t, order.Lines)
	})

	t.Run("empty order number", func(t *testing.T) {
		_, err := NewPurchaseOrder("  ", "S", uuid.New())
		require.Error(t, err)
	})

	t.Run("empty warehouse", func(t *testing.T) {
		_, err := NewPurchaseOrder("PO-1", "S", uuid.Nil)
		require.Error(t, err)
	})
}

func TestPurchaseOrderStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  PurchaseOrderStatus
		isValid bool
	}{
		{PurchaseOrderStatusConfirmed, true},
		{PurchaseOrderStatusPartiallyReceived, true},
		{PurchaseOrderStatusReceived, true},
		{PurchaseOrderStatus("DRAFT"), false},
		{PurchaseOrderStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestPurchaseOrder_ReceiveLine_PartialThenFull(t *testing.T) {
	order := createTestPurchaseOrder(t)
	line := addTestLine(t, order, 10)
	order.ClearDomainEvents()

	updated, err := order.ReceiveLine(line.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(6), updated.ReceivedQuantity)
	assert.Equal(t, PurchaseOrderStatusPartiallyReceived, order.Status)
	assert.Len(t, order.GetDomainEvents(), 2)

	_, err = order.ReceiveLine(line.ID, 5)
	require.Error(t, err)
	var ore *OverReceiptError
	require.True(t, errors.As(err, &ore))
	assert.Equal(t, int64(11), ore.AttemptedTotal())
	assert.Equal(t, int64(10), ore.Ordered)
	assert.Equal(t, int64(6), ore.AlreadyReceived)
	assert.Equal(t, int64(5), ore.Attempted)
	assert.True(t, errors.Is(err, shared.ErrOverReceipt))
	assert.Equal(t, int64(6), order.Lines[0].ReceivedQuantity, "rejected receipt must not be clamped")

	_, err = order.ReceiveLine(line.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(10), order.Lines[0].ReceivedQuantity)
	assert.Equal(t, PurchaseOrderStatusReceived, order.Status)
	assert.NotNil(t, order.ReceivedAt)

	events := len(order.GetDomainEvents())
	_, err = order.ReceiveLine(line.ID, 1)
	require.True(t, errors.As(err, &ore))
	assert.Equal(t, line.ID, ore.POLineID)
	assert.Equal(t, int64(10), ore.AlreadyReceived)
	assert.Equal(t, int64(10), ore.Ordered)
	assert.Equal(t, int64(1), ore.Attempted)
	assert.Equal(t, PurchaseOrderStatusReceived, order.Status)
	assert.Len(t, order.GetDomainEvents(), events)
}

func TestPurchaseOrder_ReceiveLine_Validation(t *testing.T) {
	order := createTestPurchaseOrder(t)
	line := addTestLine(t, order, 3)

	for _, qty := range []int64{0, -1} {
		_, err := order.ReceiveLine(line.ID, qty)
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	}

	_, err := order.ReceiveLine(uuid.New(), 1)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.Equal(t, PurchaseOrderStatusConfirmed, order.Status)
}

func TestPurchaseOrder_ReceivedQuantityIsMonotonic(t *testing.T) {
	order := createTestPurchaseOrder(t)
	line := addTestLine(t, order, 20)

	attempts := []int64{3, 0, 25, 7, -2, 11, 10, 1}
	last := int64(0)
	for _, qty := range attempts {
		_, _ = order.ReceiveLine(line.ID, qty)
		got := order.Lines[0].ReceivedQuantity
		assert.GreaterOrEqual(t, got, last)
		assert.LessOrEqual(t, got, order.Lines[0].OrderedQuantity)
		last = got
	}
	assert.Equal(t, int64(20), last)
}

func TestDeriveStatus(t *testing.T) {
	line := func(ordered, received int64) PurchaseOrderLine {
		return PurchaseOrderLine{OrderedQuantity: ordered, ReceivedQuantity: received}
	}

	tests := []struct {
		name  string
		lines []PurchaseOrderLine
		want  PurchaseOrderStatus
	}{
		{"no lines", nil, PurchaseOrderStatusConfirmed},
		{"nothing received", []PurchaseOrderLine{line(5, 0), line(3, 0)}, PurchaseOrderStatusConfirmed},
		{"one line started", []PurchaseOrderLine{line(5, 1), line(3, 0)}, PurchaseOrderStatusPartiallyReceived},
		{"one line complete", []PurchaseOrderLine{line(5, 5), line(3, 0)}, PurchaseOrderStatusPartiallyReceived},
		{"all complete", []PurchaseOrderLine{line(5, 5), line(3, 3)}, PurchaseOrderStatusReceived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.lines))
		})
	}
}

func TestPurchaseOrder_AddLine(t *testing.T) {
	order := createTestPurchaseOrder(t)

	_, err := order.AddLine(uuid.New(), 0, decimal.Zero)
	require.Error(t, err)

	_, err = order.AddLine(uuid.Nil, 1, decimal.Zero)
	require.Error(t, err)

	line := addTestLine(t, order, 4)
	assert.Equal(t, order.ID, line.PurchaseOrderID)
	assert.True(t, decimal.NewFromInt(50).Equal(order.TotalAmount()))

	_, err = order.ReceiveLine(line.ID, 1)
	require.NoError(t, err)
	_, err = order.AddLine(uuid.New(), 1, decimal.Zero)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestPurchaseOrder_Totals(t *testing.T) {
	order := createTestPurchaseOrder(t)
	l1 := addTestLine(t, order, 4)
	addTestLine(t, order, 6)

	_, err := order.ReceiveLine(l1.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(10), order.TotalOrderedQuantity())
	assert.Equal(t, int64(3), order.TotalReceivedQuantity())
	assert.Equal(t, int64(1), order.Lines[0].RemainingQuantity())
}
