package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title  string `json:"title" validate:"required,max=5"`
	Day    string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Points int64  `json:"point_value" validate:"gt=0"`
}

func TestValidateStructPasses(t *testing.T) {
	assert.NoError(t, ValidateStruct(&sample{Title: "Bus", Day: "2024-05-01", Points: 10}))
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(sample{Title: "Too long title", Day: "05/01/2024"})
	require.Error(t, err)

	var ve Errors
	require.True(t, errors.As(err, &ve))

	fields := map[string]string{}
	for _, fe := range ve {
		fields[fe.Field] = fe.Rule
	}
	assert.Equal(t, "max", fields["title"])
	assert.Equal(t, "datetime", fields["start_date"])
	assert.Equal(t, "gt", fields["point_value"])
	assert.Contains(t, err.Error(), "field 'title' failed validation: max")
}

func TestValidateStructRejectsNonStruct(t *testing.T) {
	assert.Error(t, ValidateStruct(42))
	assert.NoError(t, ValidateStruct(nil))
}
