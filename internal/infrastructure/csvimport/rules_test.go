package csvimport

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(line int, data map[string]string) *Row {
	return &Row{LineNumber: line, Data: data}
}

func TestFieldValidator(t *testing.T) {
	errs := NewErrorCollection(10)
	v := NewFieldValidator(errs,
		Field("name").Required().Length(3, 10).Build(),
		Field("cedula").Required().Unique(NormalizeKey).Build(),
		Field("email").Email().Build(),
		Field("phone").Pattern(`^[0-9+() -]+$`, "a phone number").Build(),
		Field("notes").Custom(func(v string) error {
			if strings.Contains(v, "<") {
				return errors.New("markup is not allowed")
			}
			return nil
		}).Build(),
	)

	assert.True(t, v.ValidateRow(row(2, map[string]string{"name": "Ana", "cedula": "V-12.345"})))
	assert.False(t, errs.HasErrors())

	assert.False(t, v.ValidateRow(row(3, map[string]string{"name": "", "cedula": "v12345"})))
	assert.False(t, v.ValidateRow(row(4, map[string]string{
		"name": "An", "cedula": "V-2", "email": "nope", "phone": "abc", "notes": "<b>",
	})))
	assert.False(t, v.ValidateRow(row(5, map[string]string{"name": "Ñandú Pérez", "cedula": "V-3"})))

	codes := make(map[int][]string)
	for _, e := range errs.Errors() {
		codes[e.Row] = append(codes[e.Row], e.Code)
	}
	assert.ElementsMatch(t, []string{ErrCodeRequiredField, ErrCodeDuplicateInFile}, codes[3])
	assert.ElementsMatch(t, []string{
		ErrCodeInvalidLength, ErrCodeInvalidFormat, ErrCodeInvalidFormat, ErrCodeValidation,
	}, codes[4])
	assert.Equal(t, []string{ErrCodeInvalidLength}, codes[5])
	assert.Equal(t, 3, errs.RowCount())
}

func TestErrorCollection_Truncates(t *testing.T) {
	errs := NewErrorCollection(2)
	for i := 0; i < 5; i++ {
		errs.AddRowError(i+2, ErrCodeValidation, "bad")
	}
	require.Len(t, errs.Errors(), 2)
	assert.Equal(t, 5, errs.TotalCount())
	assert.True(t, errs.IsTruncated())
	assert.Equal(t, "row 2: bad", errs.Errors()[0].Error())

	e := RowError{Row: 7, Column: "cedula", Message: "required"}
	assert.Equal(t, "row 7, column 'cedula': required", e.Error())
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "V12345678", NormalizeKey("v-12.345.678"))
	assert.Equal(t, "E99", NormalizeKey(" E 99 "))
}
