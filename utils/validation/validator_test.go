package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rangeRequest struct {
	Min int `json:"min" validate:"required,gte=1"`
	Max int `json:"max" validate:"required,gtfield=Min"`
}

func TestFormatValidationErrorsUsesJSONNames(t *testing.T) {
	v := NewValidator()

	err := v.ValidateStruct(rangeRequest{Min: 5, Max: 3})
	require.Error(t, err)

	fields := FormatValidationErrors(err)
	assert.Contains(t, fields, "max")
	assert.NotContains(t, fields, "min")
}

func TestFormatValidationErrorsRequired(t *testing.T) {
	v := NewValidator()

	fields := FormatValidationErrors(v.ValidateStruct(rangeRequest{}))
	assert.Equal(t, []string{"min is required"}, fields["min"])
	assert.Equal(t, []string{"max is required"}, fields["max"])
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "SCI", SanitizeString("  S\x00CI \n"))
}

type contactRequest struct {
	PhoneNo string `json:"phone_no" validate:"required,mobile"`
}

func TestMobileRule(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateStruct(contactRequest{PhoneNo: "9841234567"}))
	assert.NoError(t, v.ValidateStruct(contactRequest{PhoneNo: "9712345678"}))

	for _, bad := range []string{"9641234567", "984123456", "98412345678", "98-1234567"} {
		err := v.ValidateStruct(contactRequest{PhoneNo: bad})
		require.Error(t, err, bad)
		assert.Contains(t, FormatValidationErrors(err), "phone_no")
	}
}
