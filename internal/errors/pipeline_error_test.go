package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *PipelineError
		want string
	}{
		{
			"op only",
			&PipelineError{Op: "Clean"},
			"Clean failed",
		},
		{
			"with table",
			&PipelineError{Op: "Coerce", Table: "customer"},
			"Coerce failed for table 'customer'",
		},
		{
			"with columns and message",
			&PipelineError{Op: "Join", Columns: []string{"sku", "tranid"}, Message: "keys missing"},
			"Join failed on columns [sku, tranid]: keys missing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestPipelineErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewTableError("Consolidate", "vendor", cause)

	assert.ErrorIs(t, err, cause)

	var pe *PipelineError
	wrapped := fmt.Errorf("stage failed: %w", err)
	assert.ErrorAs(t, wrapped, &pe)
	assert.Equal(t, "vendor", pe.Table)
}

func TestPipelineErrorIs(t *testing.T) {
	err := NewInvalidInputError("Filter", "empty predicate")
	same := NewInvalidInputError("Filter", "empty predicate")
	other := NewInvalidInputError("Filter", "nil frame")

	assert.True(t, errors.Is(err, same))
	assert.False(t, errors.Is(err, other))
}

func TestSchemaError(t *testing.T) {
	err := NewSchemaError("item", "display_name")
	assert.Equal(t, "schema error in table 'item': mapped column 'display_name' not present", err.Error())

	var se *SchemaError
	wrapped := fmt.Errorf("repair: %w", err)
	assert.ErrorAs(t, wrapped, &se)
	assert.Equal(t, "item", se.Table)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("customer", []string{"id", "created_date"})
	assert.Equal(t, "the following columns did not pass validation in customer table: [id, created_date]", err.Error())
}

func TestColumnNotFoundError(t *testing.T) {
	err := NewColumnNotFoundError("sum by tranid", "tranid")
	assert.Equal(t, []string{"tranid"}, err.Columns)
	assert.Contains(t, err.Error(), "column does not exist")
}
