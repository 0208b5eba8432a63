package persistence

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// BatchSortFields contains allowed sort fields for batches
var BatchSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"batch_number": true,
	"quantity":     true,
	"unit_cost":    true,
	"received_at":  true,
	"expires_at":   true,
	"location":     true,
}

// PurchaseOrderSortFields contains allowed sort fields for purchase orders
var PurchaseOrderSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"order_number":  true,
	"supplier_name": true,
	"status":        true,
	"received_at":   true,
}

// MovementSortFields contains allowed sort fields for inventory movements
var MovementSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"movement_type": true,
	"quantity":      true,
	"stock_after":   true,
}

// applySortAndPage orders by a whitelisted field, falling back to
// defaultOrder, and applies pagination when the filter asks for it
func applySortAndPage(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultOrder string) *gorm.DB {
	if field := ValidateSortField(filter.OrderBy, allowed, ""); field != "" {
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order(defaultOrder)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}
