package persistence

import (
	"strings"

	"github.com/wms/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder normalizes the sort direction to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, otherwise defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"sku":        true,
	"price":      true,
}

// InventorySortFields contains allowed sort fields for inventory rows
var InventorySortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"location":     true,
	"quantity":     true,
	"last_counted": true,
}

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"order_date":   true,
	"status":       true,
	"total_amount": true,
	"fulfilled_at": true,
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]bool{
	"created_at": true,
	"username":   true,
	"email":      true,
	"role":       true,
	"last_login": true,
}

// paginate applies whitelisted ordering plus offset/limit from the filter.
// table qualifies the order columns when the query joins other tables.
// Ties break on id so pages never overlap or skip rows.
func paginate(query *gorm.DB, filter shared.Filter, allowed map[string]bool, table string) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowed, "created_at")
	id := "id"
	if table != "" {
		field = table + "." + field
		id = table + ".id"
	}
	query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir)).Order(id + " ASC")

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}

// likePattern builds a case-insensitive substring pattern that works on
// both PostgreSQL and SQLite when matched against LOWER(column)
func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}
