package dataframe

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/vsianalytics/lakeetl/internal/errors"
)

// SortBy returns a new DataFrame with rows ordered by the given columns.
// The sort is stable so equal keys keep their input order, which the as-of
// price lookup relies on. Nulls sort first.
func (df *DataFrame) SortBy(columns []string, ascending []bool) (*DataFrame, error) {
	indices, err := df.SortIndices(columns, ascending)
	if err != nil {
		return nil, err
	}
	return df.Take(indices), nil
}

// SortIndices computes the row permutation that SortBy would apply.
func (df *DataFrame) SortIndices(columns []string, ascending []bool) ([]int, error) {
	if len(columns) == 0 {
		return nil, errors.NewInvalidInputError("Sort", "no sort columns given")
	}
	if len(ascending) != 0 && len(ascending) != len(columns) {
		return nil, errors.NewInvalidInputError("Sort", "ascending flags must match sort columns")
	}

	cols := make([]ISeries, len(columns))
	for i, name := range columns {
		s, ok := df.Column(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError("Sort", name)
		}
		cols[i] = s
	}

	asc := func(i int) bool {
		if len(ascending) == 0 {
			return true
		}
		return ascending[i]
	}

	indices := make([]int, df.Len())
	for i := range indices {
		indices[i] = i
	}

	sort.SliceStable(indices, func(a, b int) bool {
		for k, col := range cols {
			c := compareRows(col, indices[a], indices[b])
			if c == 0 {
				continue
			}
			if asc(k) {
				return c < 0
			}
			return c > 0
		}
		return false
	})

	return indices, nil
}

// compareRows compares two rows of a column; nulls order before values.
func compareRows(col ISeries, i, j int) int {
	iNull, jNull := col.IsNull(i), col.IsNull(j)
	switch {
	case iNull && jNull:
		return 0
	case iNull:
		return -1
	case jNull:
		return 1
	}

	arr := col.Array()
	defer arr.Release()

	switch typed := arr.(type) {
	case *array.Int64:
		return compareOrdered(typed.Value(i), typed.Value(j))
	case *array.Float64:
		return compareOrdered(typed.Value(i), typed.Value(j))
	case *array.String:
		return compareOrdered(typed.Value(i), typed.Value(j))
	case *array.Timestamp:
		return compareOrdered(int64(typed.Value(i)), int64(typed.Value(j)))
	case *array.Boolean:
		vi, vj := typed.Value(i), typed.Value(j)
		switch {
		case vi == vj:
			return 0
		case !vi:
			return -1
		default:
			return 1
		}
	default:
		return compareOrdered(col.GetAsString(i), col.GetAsString(j))
	}
}

func compareOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
