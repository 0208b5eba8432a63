package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Batch is a discrete lot of one product in one warehouse. Quantity is the
// on-hand amount and never goes below zero. A batch that reaches zero stays
// on record for audit but is never drawn from again.
type Batch struct {
	shared.BaseEntity
	ProductID           uuid.UUID
	WarehouseID         uuid.UUID
	BatchNumber         string
	Quantity            int64
	OriginalQuantity    int64
	UnitCost            decimal.Decimal
	ReceivedAt          time.Time
	ExpiresAt           *time.Time
	Location            string
	PurchaseOrderLineID *uuid.UUID
	Version             int
}

// NewBatch creates a new batch with the given received quantity
func NewBatch(
	productID, warehouseID uuid.UUID,
	batchNumber string,
	quantity int64,
	unitCost decimal.Decimal,
	receivedAt time.Time,
	expiresAt *time.Time,
	location string,
) (*Batch, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Batch quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	if expiresAt != nil && expiresAt.Before(receivedAt) {
		return nil, shared.NewDomainError("INVALID_EXPIRY", "Expiry date cannot be before received date")
	}

	base := shared.NewBaseEntity()
	batchNumber = strings.TrimSpace(batchNumber)
	if batchNumber == "" {
		batchNumber = GenerateBatchNumber(receivedAt, base.ID)
	}

	return &Batch{
		BaseEntity:       base,
		ProductID:        productID,
		WarehouseID:      warehouseID,
		BatchNumber:      batchNumber,
		Quantity:         quantity,
		OriginalQuantity: quantity,
		UnitCost:         unitCost,
		ReceivedAt:       receivedAt,
		ExpiresAt:        expiresAt,
		Location:         strings.TrimSpace(location),
		Version:          1,
	}, nil
}

// GenerateBatchNumber builds a readable lot number from the receipt date and batch ID
func GenerateBatchNumber(receivedAt time.Time, id uuid.UUID) string {
	return fmt.Sprintf("B%s-%s", receivedAt.Format("20060102"), strings.ToUpper(id.String()[:8]))
}

// IsAvailable reports whether the batch can be drawn from
func (b *Batch) IsAvailable() bool {
	return b.Quantity > 0
}

// HasExpiry reports whether the batch carries an expiration date
func (b *Batch) HasExpiry() bool {
	return b.ExpiresAt != nil
}

// IsExpired returns true if the batch has an expiry date before now
func (b *Batch) IsExpired(now time.Time) bool {
	return b.ExpiresAt != nil && b.ExpiresAt.Before(now)
}

// Draw removes quantity from the batch
func (b *Batch) Draw(quantity int64) error {
	if quantity <= 0 {
		return shared.ErrInvalidQuantity
	}
	if quantity > b.Quantity {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Batch %s has %d available, cannot draw %d", b.BatchNumber, b.Quantity, quantity))
	}
	b.Quantity -= quantity
	b.UpdatedAt = time.Now()
	return nil
}

// Restore puts quantity back into the batch. A batch can never hold more than
// it was received with.
func (b *Batch) Restore(quantity int64) error {
	if quantity <= 0 {
		return shared.ErrInvalidQuantity
	}
	if b.Quantity+quantity > b.OriginalQuantity {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Batch %s cannot be restored above its received quantity %d", b.BatchNumber, b.OriginalQuantity))
	}
	b.Quantity += quantity
	b.UpdatedAt = time.Now()
	return nil
}

// Replenish adds a further receipt into this batch, raising both on-hand and
// received quantity. Used only when identical lots are merged on receipt.
func (b *Batch) Replenish(quantity int64) error {
	if quantity <= 0 {
		return shared.ErrInvalidQuantity
	}
	b.Quantity += quantity
	b.OriginalQuantity += quantity
	b.UpdatedAt = time.Now()
	return nil
}

// DrawnQuantity returns how much of the received quantity has been drawn
func (b *Batch) DrawnQuantity() int64 {
	return b.OriginalQuantity - b.Quantity
}

// Value returns the on-hand valuation of the batch
func (b *Batch) Value() decimal.Decimal {
	return b.UnitCost.Mul(decimal.NewFromInt(b.Quantity))
}

// SameLot reports whether other describes an identical lot: same product,
// warehouse, cost, location, expiry, and received on the same day.
func (b *Batch) SameLot(other *Batch) bool {
	if b.ProductID != other.ProductID || b.WarehouseID != other.WarehouseID {
		return false
	}
	if !b.UnitCost.Equal(other.UnitCost) || b.Location != other.Location {
		return false
	}
	if !sameDay(b.ReceivedAt, other.ReceivedAt) {
		return false
	}
	switch {
	case b.ExpiresAt == nil && other.ExpiresAt == nil:
		return true
	case b.ExpiresAt == nil || other.ExpiresAt == nil:
		return false
	default:
		return sameDay(*b.ExpiresAt, *other.ExpiresAt)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
