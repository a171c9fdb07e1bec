// Package dataframe provides the in-memory table the pipeline stages operate
// on: an ordered collection of Arrow-backed typed columns with the row and
// column operations (select, drop, filter, sort, concat, join) that the
// repair, cleanse, augment and curate stages are built from.
package dataframe

import (
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/vsianalytics/lakeetl/internal/series"
)

// DataFrame represents a table of data with typed columns
type DataFrame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new DataFrame from a slice of ISeries
func New(cols ...ISeries) *DataFrame {
	columns := make(map[string]ISeries)
	order := make([]string, 0, len(cols))

	for _, s := range cols {
		name := s.Name()
		if _, exists := columns[name]; !exists {
			order = append(order, name)
		}
		columns[name] = s
	}

	return &DataFrame{
		columns: columns,
		order:   order,
	}
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	if len(df.order) == 0 {
		return []string{}
	}
	return append([]string(nil), df.order...)
}

// Len returns the number of rows (assumes all columns have same length)
func (df *DataFrame) Len() int {
	if len(df.order) > 0 {
		if s, exists := df.columns[df.order[0]]; exists {
			return s.Len()
		}
	}
	return 0
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.columns)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (ISeries, bool) {
	s, exists := df.columns[name]
	return s, exists
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// Select returns a new DataFrame with only the specified columns
func (df *DataFrame) Select(names ...string) *DataFrame {
	newColumns := make(map[string]ISeries)
	newOrder := make([]string, 0, len(names))

	for _, name := range names {
		if s, exists := df.columns[name]; exists {
			newColumns[name] = s
			newOrder = append(newOrder, name)
		}
	}

	return &DataFrame{
		columns: newColumns,
		order:   newOrder,
	}
}

// Drop returns a new DataFrame without the specified columns
func (df *DataFrame) Drop(names ...string) *DataFrame {
	dropSet := make(map[string]bool)
	for _, name := range names {
		dropSet[name] = true
	}

	newColumns := make(map[string]ISeries)
	newOrder := make([]string, 0, len(df.order))

	for _, name := range df.order {
		if !dropSet[name] {
			newColumns[name] = df.columns[name]
			newOrder = append(newOrder, name)
		}
	}

	return &DataFrame{
		columns: newColumns,
		order:   newOrder,
	}
}

// WithColumn returns a new DataFrame where the given series replaces the
// column of the same name, or is appended if no such column exists.
func (df *DataFrame) WithColumn(s ISeries) *DataFrame {
	newColumns := make(map[string]ISeries, len(df.columns)+1)
	newOrder := make([]string, 0, len(df.order)+1)

	replaced := false
	for _, name := range df.order {
		if name == s.Name() {
			newColumns[name] = s
			replaced = true
		} else {
			newColumns[name] = df.columns[name]
		}
		newOrder = append(newOrder, name)
	}
	if !replaced {
		newColumns[s.Name()] = s
		newOrder = append(newOrder, s.Name())
	}

	return &DataFrame{columns: newColumns, order: newOrder}
}

// Rename returns a new DataFrame with the column renamed in place.
// Renaming a missing column is a no-op.
func (df *DataFrame) Rename(from, to string) *DataFrame {
	newColumns := make(map[string]ISeries, len(df.columns))
	newOrder := make([]string, len(df.order))

	for i, name := range df.order {
		s := df.columns[name]
		if name == from {
			s = renameSeries(s, to)
			name = to
		}
		newColumns[name] = s
		newOrder[i] = name
	}

	return &DataFrame{columns: newColumns, order: newOrder}
}

// Reorder returns a new DataFrame with columns in the requested order.
// Names absent from the DataFrame are an error; columns not named are dropped.
func (df *DataFrame) Reorder(names []string) (*DataFrame, error) {
	for _, name := range names {
		if !df.HasColumn(name) {
			return nil, fmt.Errorf("reordering columns: column %q does not exist", name)
		}
	}
	return df.Select(names...), nil
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}

	for _, name := range df.order {
		s := df.columns[name]
		parts = append(parts, fmt.Sprintf("  %s: %s", name, s.DataType().String()))
	}

	return strings.Join(parts, "\n")
}

// Take returns a new DataFrame containing the rows at the given indices, in
// that order. An index of -1 yields a null row entry in every column; this is
// how left joins introduce missing matches.
func (df *DataFrame) Take(indices []int) *DataFrame {
	mem := memory.NewGoAllocator()

	newSeries := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		newSeries = append(newSeries, takeSeries(df.columns[name], indices, mem))
	}

	return New(newSeries...)
}

// Filter returns a new DataFrame with only the rows for which keep returns true
func (df *DataFrame) Filter(keep func(row int) bool) *DataFrame {
	indices := make([]int, 0, df.Len())
	for i := 0; i < df.Len(); i++ {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	return df.Take(indices)
}

// Concat concatenates multiple DataFrames vertically (row-wise).
// All DataFrames must share this DataFrame's column structure.
func (df *DataFrame) Concat(others ...*DataFrame) (*DataFrame, error) {
	if len(others) == 0 {
		return df, nil
	}

	for _, other := range others {
		if !df.hasSameSchema(other) {
			return nil, fmt.Errorf("concatenating tables: column structures differ")
		}
	}

	mem := memory.NewGoAllocator()
	newSeries := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		parts := make([]ISeries, 0, len(others)+1)
		parts = append(parts, df.columns[name])
		for _, other := range others {
			parts = append(parts, other.columns[name])
		}
		s, err := concatSeries(name, parts, mem)
		if err != nil {
			return nil, fmt.Errorf("concatenating column %s: %w", name, err)
		}
		newSeries = append(newSeries, s)
	}

	return New(newSeries...), nil
}

// hasSameSchema checks if two DataFrames have the same column structure
func (df *DataFrame) hasSameSchema(other *DataFrame) bool {
	if len(df.order) != len(other.order) {
		return false
	}

	for i, name := range df.order {
		if other.order[i] != name {
			return false
		}
		if !arrow.TypeEqual(df.columns[name].DataType(), other.columns[name].DataType()) {
			return false
		}
	}

	return true
}

// Release releases all underlying Arrow memory
func (df *DataFrame) Release() {
	for _, s := range df.columns {
		s.Release()
	}
}

// takeSeries copies the rows at indices into a fresh series, preserving
// nulls. Index -1 appends a null.
func takeSeries(s ISeries, indices []int, mem memory.Allocator) ISeries {
	arr := s.Array()
	defer arr.Release()

	switch typed := arr.(type) {
	case *array.String:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		for _, idx := range indices {
			if idx < 0 || typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return series.FromArrow[string](s.Name(), builder.NewArray())
	case *array.Int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		for _, idx := range indices {
			if idx < 0 || typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return series.FromArrow[int64](s.Name(), builder.NewArray())
	case *array.Float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		for _, idx := range indices {
			if idx < 0 || typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return series.FromArrow[float64](s.Name(), builder.NewArray())
	case *array.Boolean:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		for _, idx := range indices {
			if idx < 0 || typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return series.FromArrow[bool](s.Name(), builder.NewArray())
	case *array.Timestamp:
		builder := array.NewTimestampBuilder(mem, series.TimestampType())
		defer builder.Release()
		for _, idx := range indices {
			if idx < 0 || typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return series.FromArrow[time.Time](s.Name(), builder.NewArray())
	default:
		// Unsupported physical types degrade to an all-null string column.
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		for range indices {
			builder.AppendNull()
		}
		return series.FromArrow[string](s.Name(), builder.NewArray())
	}
}

// concatSeries concatenates same-typed series preserving nulls
func concatSeries(name string, parts []ISeries, mem memory.Allocator) (ISeries, error) {
	first := parts[0].Array()
	defer first.Release()

	switch first.(type) {
	case *array.String:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		for _, p := range parts {
			arr := p.Array()
			typed := arr.(*array.String)
			for i := 0; i < typed.Len(); i++ {
				if typed.IsNull(i) {
					builder.AppendNull()
				} else {
					builder.Append(typed.Value(i))
				}
			}
			arr.Release()
		}
		return series.FromArrow[string](name, builder.NewArray()), nil
	case *array.Int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		for _, p := range parts {
			arr := p.Array()
			typed := arr.(*array.Int64)
			for i := 0; i < typed.Len(); i++ {
				if typed.IsNull(i) {
					builder.AppendNull()
				} else {
					builder.Append(typed.Value(i))
				}
			}
			arr.Release()
		}
		return series.FromArrow[int64](name, builder.NewArray()), nil
	case *array.Float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		for _, p := range parts {
			arr := p.Array()
			typed := arr.(*array.Float64)
			for i := 0; i < typed.Len(); i++ {
				if typed.IsNull(i) {
					builder.AppendNull()
				} else {
					builder.Append(typed.Value(i))
				}
			}
			arr.Release()
		}
		return series.FromArrow[float64](name, builder.NewArray()), nil
	case *array.Boolean:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		for _, p := range parts {
			arr := p.Array()
			typed := arr.(*array.Boolean)
			for i := 0; i < typed.Len(); i++ {
				if typed.IsNull(i) {
					builder.AppendNull()
				} else {
					builder.Append(typed.Value(i))
				}
			}
			arr.Release()
		}
		return series.FromArrow[bool](name, builder.NewArray()), nil
	case *array.Timestamp:
		builder := array.NewTimestampBuilder(mem, series.TimestampType())
		defer builder.Release()
		for _, p := range parts {
			arr := p.Array()
			typed := arr.(*array.Timestamp)
			for i := 0; i < typed.Len(); i++ {
				if typed.IsNull(i) {
					builder.AppendNull()
				} else {
					builder.Append(typed.Value(i))
				}
			}
			arr.Release()
		}
		return series.FromArrow[time.Time](name, builder.NewArray()), nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", first.DataType())
	}
}

// renameSeries rebinds a series under a new name without copying data.
// The reference obtained from Array() transfers to the new series.
func renameSeries(s ISeries, name string) ISeries {
	arr := s.Array()

	switch arr.(type) {
	case *array.String:
		return series.FromArrow[string](name, arr)
	case *array.Int64:
		return series.FromArrow[int64](name, arr)
	case *array.Float64:
		return series.FromArrow[float64](name, arr)
	case *array.Boolean:
		return series.FromArrow[bool](name, arr)
	case *array.Timestamp:
		return series.FromArrow[time.Time](name, arr)
	default:
		arr.Release()
		return s
	}
}
