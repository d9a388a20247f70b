package persistence

import (
	"strings"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "ASC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "DESC" {
		return "DESC"
	}
	return "ASC"
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

// ClientSortFields contains allowed sort fields for clients
var ClientSortFields = map[string]bool{
	"name":       true,
	"cedula":     true,
	"created_at": true,
}

// DentistSortFields contains allowed sort fields for dentists
var DentistSortFields = map[string]bool{
	"name":       true,
	"specialty":  true,
	"created_at": true,
}

// TreatmentSortFields contains allowed sort fields for treatments
var TreatmentSortFields = map[string]bool{
	"name":             true,
	"price":            true,
	"duration_minutes": true,
	"created_at":       true,
}

// likePattern builds a case-insensitive contains pattern for LOWER(col) LIKE ?
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

// paginate applies the normalized limit and offset of a catalog filter
func paginate(query *gorm.DB, filter shared.Filter) *gorm.DB {
	f := filter.Normalize()
	return query.Limit(f.Limit).Offset(f.Offset)
}

// orderBy applies a whitelisted ORDER BY with name as tie-breaker
func orderBy(query *gorm.DB, filter shared.Filter, allowed map[string]bool) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowed, "name")
	query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	if field != "name" {
		query = query.Order("name ASC")
	}
	return query.Order("id ASC")
}
