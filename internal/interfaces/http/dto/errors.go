package dto

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/trade"
)

// Error codes returned in ErrorInfo.Code. Domain codes pass through unchanged.
const (
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeInsufficientStock   = "INSUFFICIENT_STOCK"
	ErrCodeFulfillmentFailed   = "FULFILLMENT_FAILED"
	ErrCodeOverReceipt         = "OVER_RECEIPT"
	ErrCodeDuplicateRequest    = "DUPLICATE_REQUEST"
	ErrCodeReservedStage       = "RESERVED_STAGE"
	ErrCodeRequestTimeout      = "REQUEST_TIMEOUT"
	ErrCodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeNotFound: http.StatusNotFound,

	// Rejections that a retry with the same input will not fix
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeFulfillmentFailed: http.StatusUnprocessableEntity,
	ErrCodeOverReceipt:       http.StatusUnprocessableEntity,
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,

	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,
	ErrCodeReservedStage:       http.StatusConflict,

	ErrCodeRequestTimeout:  http.StatusGatewayTimeout,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the status for code. Unlisted INVALID_* codes are
// input errors; anything else unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// domainErrorer is implemented by the typed engine errors that carry
// structured fields next to their code.
type domainErrorer interface {
	DomainError() *shared.DomainError
}

// ShortageDetails is attached to INSUFFICIENT_STOCK responses.
type ShortageDetails struct {
	OrderID     string `json:"order_id,omitempty"`
	OrderLineID string `json:"order_line_id,omitempty"`
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Requested   int64  `json:"requested"`
	Available   int64  `json:"available"`
	Shortfall   int64  `json:"shortfall"`
}

// OverReceiptDetails is attached to OVER_RECEIPT responses.
type OverReceiptDetails struct {
	POLineID        string `json:"po_line_id"`
	Ordered         int64  `json:"ordered"`
	AlreadyReceived int64  `json:"already_received"`
	Attempted       int64  `json:"attempted"`
	AttemptedTotal  int64  `json:"attempted_total"`
}

// ErrorInfoFromError resolves err into a code, message and optional details.
// ok is false when err carries no domain code.
func ErrorInfoFromError(err error) (info ErrorInfo, ok bool) {
	var typed domainErrorer
	if errors.As(err, &typed) {
		de := typed.DomainError()
		return ErrorInfo{Code: de.Code, Message: de.Message, Details: detailsOf(err)}, true
	}

	var de *shared.DomainError
	if errors.As(err, &de) {
		return ErrorInfo{Code: de.Code, Message: de.Message}, true
	}
	return ErrorInfo{}, false
}

func detailsOf(err error) interface{} {
	var fe *inventory.FulfillmentError
	if errors.As(err, &fe) {
		if ise, ok := fe.Shortage(); ok {
			d := shortageDetails(ise)
			d.OrderID = fe.OrderID.String()
			d.OrderLineID = fe.OrderLineID.String()
			return d
		}
		return map[string]string{
			"order_id":      fe.OrderID.String(),
			"order_line_id": fe.OrderLineID.String(),
		}
	}

	var ise *inventory.InsufficientStockError
	if errors.As(err, &ise) {
		return shortageDetails(ise)
	}

	var ore *trade.OverReceiptError
	if errors.As(err, &ore) {
		return OverReceiptDetails{
			POLineID:        ore.POLineID.String(),
			Ordered:         ore.Ordered,
			AlreadyReceived: ore.AlreadyReceived,
			Attempted:       ore.Attempted,
			AttemptedTotal:  ore.AttemptedTotal(),
		}
	}
	return nil
}

func shortageDetails(e *inventory.InsufficientStockError) ShortageDetails {
	return ShortageDetails{
		ProductID:   e.ProductID.String(),
		WarehouseID: e.WarehouseID.String(),
		Requested:   e.Requested,
		Available:   e.Available,
		Shortfall:   e.Shortfall(),
	}
}
