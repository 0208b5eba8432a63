package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors created with NewDomainError match the sentinels below via errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidQuantity     = NewDomainError("INVALID_QUANTITY", "Quantity must be a positive integer")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrFulfillmentFailed   = NewDomainError("FULFILLMENT_FAILED", "Order could not be fully allocated")
	ErrOverReceipt         = NewDomainError("OVER_RECEIPT", "Received quantity would exceed ordered quantity")
	ErrDuplicateRequest    = NewDomainError("DUPLICATE_REQUEST", "Request has already been processed")
	ErrReservedStage       = NewDomainError("RESERVED_STAGE", "Reserved stage cannot be modified")
)
