package trade

import (
	"fmt"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
)

// OverReceiptError is returned when a receipt would take a purchase order
// line past its ordered quantity.
type OverReceiptError struct {
	POLineID        uuid.UUID `json:"po_line_id"`
	AlreadyReceived int64     `json:"already_received"`
	Ordered         int64     `json:"ordered"`
	Attempted       int64     `json:"attempted"`
}

// Error implements the error interface
func (e *OverReceiptError) Error() string {
	return fmt.Sprintf("over-receipt on purchase order line %s: received %d + attempted %d = %d exceeds ordered %d",
		e.POLineID, e.AlreadyReceived, e.Attempted, e.AttemptedTotal(), e.Ordered)
}

// AttemptedTotal returns what the received quantity would have become
func (e *OverReceiptError) AttemptedTotal() int64 {
	return e.AlreadyReceived + e.Attempted
}

// Unwrap lets errors.Is match shared.ErrOverReceipt
func (e *OverReceiptError) Unwrap() error {
	return shared.ErrOverReceipt
}

// DomainError returns the error in its HTTP-mappable form
func (e *OverReceiptError) DomainError() *shared.DomainError {
	return shared.NewDomainError(shared.ErrOverReceipt.Code, e.Error())
}
