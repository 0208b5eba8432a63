package inventory

import (
	"errors"
	"fmt"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// InsufficientStockError is returned when the eligible batches of a product
// in a warehouse cannot cover a requested quantity.
type InsufficientStockError struct {
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Requested   int64     `json:"requested"`
	Available   int64     `json:"available"`
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d (short %d)",
		e.ProductID, e.Requested, e.Available, e.Shortfall())
}

// Shortfall returns how many units could not be covered
func (e *InsufficientStockError) Shortfall() int64 {
	return e.Requested - e.Available
}

// Unwrap lets errors.Is match shared.ErrInsufficientStock
func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrInsufficientStock
}

// DomainError returns the error in its HTTP-mappable form
func (e *InsufficientStockError) DomainError() *shared.DomainError {
	return shared.NewDomainError(shared.ErrInsufficientStock.Code, e.Error())
}

// FulfillmentError wraps the first line-level failure of an order whose
// allocations were rolled back.
type FulfillmentError struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderLineID uuid.UUID `json:"order_line_id"`
	Cause       error     `json:"-"`
}

// Error implements the error interface
func (e *FulfillmentError) Error() string {
	return fmt.Sprintf("order %s line %s could not be allocated: %v", e.OrderID, e.OrderLineID, e.Cause)
}

// Unwrap returns the line-level cause
func (e *FulfillmentError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match shared.ErrFulfillmentFailed in addition to the cause chain
func (e *FulfillmentError) Is(target error) bool {
	return target == shared.ErrFulfillmentFailed
}

// Shortage returns the insufficient-stock detail if that was the cause
func (e *FulfillmentError) Shortage() (*InsufficientStockError, bool) {
	var ise *InsufficientStockError
	if errors.As(e.Cause, &ise) {
		return ise, true
	}
	return nil, false
}

// DomainError returns the error in its HTTP-mappable form. A stock shortage
// keeps the INSUFFICIENT_STOCK code so callers can show a shortage message.
func (e *FulfillmentError) DomainError() *shared.DomainError {
	if _, ok := e.Shortage(); ok {
		return shared.NewDomainError(shared.ErrInsufficientStock.Code, e.Error())
	}
	return shared.NewDomainError(shared.ErrFulfillmentFailed.Code, e.Error())
}

// ErrInvalidStrategy returns an error for an unknown strategy tag
func ErrInvalidStrategy(s string) *shared.DomainError {
	return shared.NewDomainError("INVALID_STRATEGY",
		fmt.Sprintf("Unknown allocation strategy %q, expected FIFO, LIFO or FEFO", s))
}
