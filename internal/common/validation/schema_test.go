package validation

import (
	"testing"

	"drclean-workers/internal/common/errors"
	"drclean-workers/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *SchemaValidator {
	v, err := NewSchemaValidator(registry.Default())
	require.NoError(t, err)
	return v
}

func TestSchemaValidator_Check(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name       string
		taskType   string
		variables  string
		wantValid  bool
		wantFields []string
	}{
		{
			name:      "valid transition",
			taskType:  "transition-booking",
			variables: `{"bookingId":"b-1","action":"approve","options":{"skipInvoice":true}}`,
			wantValid: true,
		},
		{
			name:       "missing booking id",
			taskType:   "transition-booking",
			variables:  `{"action":"approve"}`,
			wantFields: []string{"(root)"},
		},
		{
			name:       "unknown action",
			taskType:   "transition-booking",
			variables:  `{"bookingId":"b-1","action":"cancel"}`,
			wantFields: []string{"action"},
		},
		{
			name:       "unknown category",
			taskType:   "estimate-price",
			variables:  `{"category":"pool_cleaning"}`,
			wantFields: []string{"category"},
		},
		{
			name:       "negative cleaner expense",
			taskType:   "update-job-expenses",
			variables:  `{"jobId":"j-1","cleanerExpenses":[{"teamMemberId":"t-1","cleanerExpense":-5}]}`,
			wantFields: []string{"cleanerExpenses.0.cleanerExpense"},
		},
		{
			name:      "empty variables on optional schema",
			taskType:  "collect-job-alerts",
			variables: "",
			wantValid: true,
		},
		{
			name:      "task type without schema",
			taskType:  "not-registered",
			variables: `{"anything":1}`,
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.Check(tt.taskType, tt.variables)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			for _, field := range tt.wantFields {
				assert.True(t, result.HasErrors(field), "expected error on %s, got %v", field, result.Errors)
			}
		})
	}
}

func TestSchemaValidator_Validate(t *testing.T) {
	v := newValidator(t)

	require.NoError(t, v.Validate("reassign-jobs", `{"address":"Korunní 12, Praha","clientId":"c-1"}`))

	err := v.Validate("reassign-jobs", `{"address":""}`)
	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeInvalidInput, stdErr.Code)
	violations, ok := stdErr.Metadata["violations"].([]string)
	require.True(t, ok)
	assert.Len(t, violations, 2)

	err = v.Validate("reassign-jobs", `{"address":`)
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeInvalidInput, stdErr.Code)
}

func TestValidateEmailAndPhone(t *testing.T) {
	assert.True(t, ValidateEmail("jana.novakova@seznam.cz"))
	assert.False(t, ValidateEmail("jana@"))
	assert.True(t, ValidatePhone("+420 777 123 456"))
	assert.True(t, ValidatePhone("777123456"))
	assert.False(t, ValidatePhone("12345"))
}
