package dataframe

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// ISeries is the type-erased column view a DataFrame holds. Stage code
// that needs typed access asserts back to the concrete series type.
type ISeries interface {
	Name() string
	Len() int
	NullCount() int
	IsNull(index int) bool

	// GetAsString renders one cell for joins on mixed keys, lookups,
	// and report output. Nulls render as "null".
	GetAsString(index int) string

	DataType() arrow.DataType

	// Array retains and returns the backing Arrow array.
	Array() arrow.Array

	Release()
	String() string
}
