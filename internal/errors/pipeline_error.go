// Package errors provides standardized error types for pipeline stages.
// This package defines PipelineError for consistent error handling across
// all stage boundaries, with table/column context and error wrapping support.
package errors

import (
	"fmt"
	"strings"
)

// PipelineError represents standardized errors across all pipeline operations
type PipelineError struct {
	Op      string   // Operation name (e.g., "Coerce", "Clean", "Join")
	Table   string   // Logical table name if applicable
	Columns []string // Offending column names if applicable
	Message string   // Human-readable error description
	Cause   error    // Underlying error cause
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Table != "" {
		fmt.Fprintf(&b, " failed for table '%s'", e.Table)
	} else {
		b.WriteString(" failed")
	}
	if len(e.Columns) > 0 {
		fmt.Fprintf(&b, " on columns [%s]", strings.Join(e.Columns, ", "))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap returns the underlying cause for error wrapping support
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is()
func (e *PipelineError) Is(target error) bool {
	if pe, ok := target.(*PipelineError); ok {
		return e.Op == pe.Op && e.Table == pe.Table && e.Message == pe.Message
	}
	return false
}

// SchemaError reports a field map that references a column absent from the
// input table. It is fatal for that table and aborts its stage.
type SchemaError struct {
	Table  string
	Column string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in table '%s': mapped column '%s' not present", e.Table, e.Column)
}

// NewSchemaError creates an error for a field map naming a missing column
func NewSchemaError(table, column string) *SchemaError {
	return &SchemaError{Table: table, Column: column}
}

// ValidationError reports columns that failed post-coercion type/null checks.
// It is fatal for that table; other tables in the same run continue.
type ValidationError struct {
	Table   string
	Columns []string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("the following columns did not pass validation in %s table: [%s]",
		e.Table, strings.Join(e.Columns, ", "))
}

// NewValidationError creates an error naming the columns that failed validation
func NewValidationError(table string, columns []string) *ValidationError {
	return &ValidationError{Table: table, Columns: columns}
}

// Common error constructors for consistent error creation

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *PipelineError {
	return &PipelineError{
		Op:      op,
		Columns: []string{column},
		Message: "column does not exist",
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *PipelineError {
	return &PipelineError{
		Op:      op,
		Message: message,
	}
}

// NewUnsupportedTypeError creates an error for unsupported data types
func NewUnsupportedTypeError(op, typeName string) *PipelineError {
	return &PipelineError{
		Op:      op,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
	}
}

// NewTableError creates an error for a failed table-level operation
func NewTableError(op, table string, cause error) *PipelineError {
	return &PipelineError{
		Op:      op,
		Table:   table,
		Message: "table processing failed",
		Cause:   cause,
	}
}

// Predefined error variables for common cases
var (
	// ErrEmptyTable indicates operations on empty tables
	ErrEmptyTable = &PipelineError{
		Op:      "validation",
		Message: "operation not supported on empty table",
	}

	// ErrMismatchedLength indicates length mismatches in operations
	ErrMismatchedLength = &PipelineError{
		Op:      "validation",
		Message: "columns must have the same length",
	}
)
