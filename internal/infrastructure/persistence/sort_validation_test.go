package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns ASC", "", "ASC"},
		{"desc lowercase returns DESC", "desc", "DESC"},
		{"whitespace around DESC", "  DESC ", "DESC"},
		{"invalid value returns ASC", "sideways", "ASC"},
		{"sql injection attempt returns ASC", "DESC; DROP TABLE clients;--", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		allowed  map[string]bool
		expected string
	}{
		{"empty returns default", "", ClientSortFields, "name"},
		{"whitelisted client field", "cedula", ClientSortFields, "cedula"},
		{"field of another table rejected", "price", ClientSortFields, "name"},
		{"treatment price allowed", " price ", TreatmentSortFields, "price"},
		{"injection rejected", "name; DELETE FROM debts", DentistSortFields, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, tt.allowed, "name"))
		})
	}
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%ana p%", likePattern("  Ana P "))
}
