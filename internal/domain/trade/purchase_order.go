package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus represents the receiving status of a purchase order.
// It is always derived from the lines and never set directly.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusConfirmed         PurchaseOrderStatus = "confirmed"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	PurchaseOrderStatusReceived          PurchaseOrderStatus = "received"
)

// IsValid checks if the status is a valid PurchaseOrderStatus
func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusConfirmed, PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusReceived:
		return true
	}
	return false
}

// String returns the string representation of PurchaseOrderStatus
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// PurchaseOrderLine is one product line of a purchase order.
// 0 <= ReceivedQuantity <= OrderedQuantity always holds.
type PurchaseOrderLine struct {
	shared.BaseEntity
	PurchaseOrderID  uuid.UUID
	ProductID        uuid.UUID
	OrderedQuantity  int64
	ReceivedQuantity int64
	UnitPrice        decimal.Decimal
}

// NewPurchaseOrderLine creates a new purchase order line
func NewPurchaseOrderLine(orderID, productID uuid.UUID, orderedQuantity int64, unitPrice decimal.Decimal) (*PurchaseOrderLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if orderedQuantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Ordered quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return &PurchaseOrderLine{
		BaseEntity:      shared.NewBaseEntity(),
		PurchaseOrderID: orderID,
		ProductID:       productID,
		OrderedQuantity: orderedQuantity,
		UnitPrice:       unitPrice,
	}, nil
}

// RemainingQuantity returns the quantity still to be received
func (l *PurchaseOrderLine) RemainingQuantity() int64 {
	return l.OrderedQuantity - l.ReceivedQuantity
}

// IsFullyReceived returns true if all ordered quantity has been received
func (l *PurchaseOrderLine) IsFullyReceived() bool {
	return l.ReceivedQuantity >= l.OrderedQuantity
}

// Amount returns ordered quantity times unit price
func (l *PurchaseOrderLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.OrderedQuantity))
}

// Receive records quantity as received. It never clamps: a receipt that
// would take the line past its ordered quantity is rejected whole.
func (l *PurchaseOrderLine) Receive(quantity int64) error {
	if quantity <= 0 {
		return shared.ErrInvalidQuantity
	}
	if l.ReceivedQuantity+quantity > l.OrderedQuantity {
		return &OverReceiptError{
			POLineID:        l.ID,
			AlreadyReceived: l.ReceivedQuantity,
			Ordered:         l.OrderedQuantity,
			Attempted:       quantity,
		}
	}
	l.ReceivedQuantity += quantity
	l.UpdatedAt = time.Now()
	return nil
}

// PurchaseOrder is the aggregate root for purchase orders
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderNumber  string
	SupplierName string
	WarehouseID  uuid.UUID
	Status       PurchaseOrderStatus
	Lines        []PurchaseOrderLine
	ReceivedAt   *time.Time
}

// NewPurchaseOrder creates a confirmed purchase order
func NewPurchaseOrder(orderNumber, supplierName string, warehouseID uuid.UUID) (*PurchaseOrder, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}

	order := &PurchaseOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		SupplierName:      strings.TrimSpace(supplierName),
		WarehouseID:       warehouseID,
		Status:            PurchaseOrderStatusConfirmed,
		Lines:             make([]PurchaseOrderLine, 0),
	}
	return order, nil
}

// AddLine adds a product line. Lines can only be added before any receipt.
func (o *PurchaseOrder) AddLine(productID uuid.UUID, orderedQuantity int64, unitPrice decimal.Decimal) (*PurchaseOrderLine, error) {
	if o.Status != PurchaseOrderStatusConfirmed || o.hasReceivedAnyGoods() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add lines after goods have been received")
	}
	line, err := NewPurchaseOrderLine(o.ID, productID, orderedQuantity, unitPrice)
	if err != nil {
		return nil, err
	}
	o.Lines = append(o.Lines, *line)
	o.UpdatedAt = time.Now()
	return &o.Lines[len(o.Lines)-1], nil
}

// Line returns the line with the given ID
func (o *PurchaseOrder) Line(lineID uuid.UUID) (*PurchaseOrderLine, error) {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i], nil
		}
	}
	return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Line %s not found in purchase order %s", lineID, o.OrderNumber))
}

// ReceiveLine records a receipt against one line and re-derives the order
// status. Returns the updated line. A fully received order has no room left
// on any line, so further receipts fail with OverReceiptError.
func (o *PurchaseOrder) ReceiveLine(lineID uuid.UUID, quantity int64) (*PurchaseOrderLine, error) {
	line, err := o.Line(lineID)
	if err != nil {
		return nil, err
	}
	if err := line.Receive(quantity); err != nil {
		return nil, err
	}

	previous := o.Status
	o.Status = DeriveStatus(o.Lines)
	now := time.Now()
	if o.Status == PurchaseOrderStatusReceived {
		o.ReceivedAt = &now
	}
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewGoodsReceivedEvent(o, line, quantity))
	if previous != o.Status {
		o.AddDomainEvent(NewPurchaseOrderStatusChangedEvent(o, previous))
	}
	return line, nil
}

// DeriveStatus computes the order status from its lines: received when every
// line is fully received, partially_received when anything has been received,
// confirmed otherwise.
func DeriveStatus(lines []PurchaseOrderLine) PurchaseOrderStatus {
	if len(lines) == 0 {
		return PurchaseOrderStatusConfirmed
	}
	allReceived := true
	anyReceived := false
	for _, l := range lines {
		if !l.IsFullyReceived() {
			allReceived = false
		}
		if l.ReceivedQuantity > 0 {
			anyReceived = true
		}
	}
	switch {
	case allReceived:
		return PurchaseOrderStatusReceived
	case anyReceived:
		return PurchaseOrderStatusPartiallyReceived
	default:
		return PurchaseOrderStatusConfirmed
	}
}

func (o *PurchaseOrder) hasReceivedAnyGoods() bool {
	for _, l := range o.Lines {
		if l.ReceivedQuantity > 0 {
			return true
		}
	}
	return false
}

// TotalOrderedQuantity returns the sum of ordered quantities
func (o *PurchaseOrder) TotalOrderedQuantity() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.OrderedQuantity
	}
	return total
}

// TotalReceivedQuantity returns the sum of received quantities
func (o *PurchaseOrder) TotalReceivedQuantity() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.ReceivedQuantity
	}
	return total
}

// TotalAmount returns the order value at unit price
func (o *PurchaseOrder) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Lines {
		total = total.Add(o.Lines[i].Amount())
	}
	return total
}
