// Package series provides typed data columns with an Apache Arrow backend.
//
// A Series holds one column of a table. Supported element types are string,
// int64, float64, bool and time.Time (stored as millisecond timestamps in
// UTC). Null entries are tracked through the Arrow validity bitmap so that
// repair stages can detect and substitute them explicitly.
package series

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// timestampType is the Arrow type used for all date/datetime columns.
var timestampType = &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}

// Series represents a typed data column with Apache Arrow backend
type Series[T any] struct {
	name  string
	array arrow.Array
}

// New creates a new Series from a slice of values with no nulls
func New[T any](name string, values []T, mem memory.Allocator) *Series[T] {
	return NewWithNulls(name, values, nil, mem)
}

// NewWithNulls creates a new Series from values plus a validity slice.
// valid may be nil, meaning every entry is non-null; otherwise valid[i]
// false marks values[i] as null (the value itself is ignored).
func NewWithNulls[T any](name string, values []T, valid []bool, mem memory.Allocator) *Series[T] {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	var arr arrow.Array

	switch v := any(values).(type) {
	case []string:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []time.Time:
		builder := array.NewTimestampBuilder(mem, timestampType)
		defer builder.Release()
		ts := make([]arrow.Timestamp, len(v))
		for i, t := range v {
			ts[i] = arrow.Timestamp(t.UnixMilli())
		}
		builder.AppendValues(ts, valid)
		arr = builder.NewArray()
	default:
		panic(fmt.Sprintf("unsupported type: %T", values))
	}

	return &Series[T]{
		name:  name,
		array: arr,
	}
}

// FromArrow wraps an existing Arrow array as a Series, taking ownership of
// the caller's reference.
func FromArrow[T any](name string, arr arrow.Array) *Series[T] {
	return &Series[T]{name: name, array: arr}
}

// Name returns the column name
func (s *Series[T]) Name() string {
	return s.name
}

// Len returns the length of the series
func (s *Series[T]) Len() int {
	return s.array.Len()
}

// NullCount returns the number of null entries
func (s *Series[T]) NullCount() int {
	return s.array.NullN()
}

// Values returns the data as a Go slice. Null entries yield zero values;
// use IsNull to distinguish them.
func (s *Series[T]) Values() []T {
	result := make([]T, s.array.Len())

	switch arr := s.array.(type) {
	case *array.String:
		values := any(result).([]string)
		for i := 0; i < arr.Len(); i++ {
			if !arr.IsNull(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Int64:
		values := any(result).([]int64)
		for i := 0; i < arr.Len(); i++ {
			if !arr.IsNull(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Float64:
		values := any(result).([]float64)
		for i := 0; i < arr.Len(); i++ {
			if !arr.IsNull(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Boolean:
		values := any(result).([]bool)
		for i := 0; i < arr.Len(); i++ {
			if !arr.IsNull(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Timestamp:
		values := any(result).([]time.Time)
		for i := 0; i < arr.Len(); i++ {
			if !arr.IsNull(i) {
				values[i] = time.UnixMilli(int64(arr.Value(i))).UTC()
			}
		}
	default:
		panic(fmt.Sprintf("unsupported array type: %T", arr))
	}

	return result
}

// Value returns the value at the given index
func (s *Series[T]) Value(index int) T {
	var zero T
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return zero
	}

	var result T

	switch arr := s.array.(type) {
	case *array.String:
		if v, ok := any(&result).(*string); ok {
			*v = arr.Value(index)
		}
	case *array.Int64:
		if v, ok := any(&result).(*int64); ok {
			*v = arr.Value(index)
		}
	case *array.Float64:
		if v, ok := any(&result).(*float64); ok {
			*v = arr.Value(index)
		}
	case *array.Boolean:
		if v, ok := any(&result).(*bool); ok {
			*v = arr.Value(index)
		}
	case *array.Timestamp:
		if v, ok := any(&result).(*time.Time); ok {
			*v = time.UnixMilli(int64(arr.Value(index))).UTC()
		}
	}

	return result
}

// DataType returns the Arrow data type
func (s *Series[T]) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull checks if the value at index is null
func (s *Series[T]) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// GetAsString returns a string rendering of the value at index.
// Nulls render as "null", matching the NetSuite export convention.
func (s *Series[T]) GetAsString(index int) string {
	if index < 0 || index >= s.array.Len() {
		return ""
	}
	if s.array.IsNull(index) {
		return "null"
	}

	switch arr := s.array.(type) {
	case *array.String:
		return arr.Value(index)
	case *array.Int64:
		return strconv.FormatInt(arr.Value(index), 10)
	case *array.Float64:
		return strconv.FormatFloat(arr.Value(index), 'g', -1, 64)
	case *array.Boolean:
		return strconv.FormatBool(arr.Value(index))
	case *array.Timestamp:
		return time.UnixMilli(int64(arr.Value(index))).UTC().Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// String returns a string representation of the series
func (s *Series[T]) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)",
		reflect.TypeOf(new(T)).Elem().Name(),
		s.name,
		s.Len())
}

// Array returns the underlying Arrow array (retains a reference)
func (s *Series[T]) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Rename returns a series sharing this one's data under a new name
func (s *Series[T]) Rename(name string) *Series[T] {
	s.array.Retain()
	return &Series[T]{name: name, array: s.array}
}

// Release releases the underlying Arrow memory
func (s *Series[T]) Release() {
	if s.array != nil {
		s.array.Release()
	}
}

// TimestampType returns the Arrow type used for datetime columns
func TimestampType() *arrow.TimestampType {
	return timestampType
}

// IsNaN reports whether a float64 series holds NaN at index. Non-float
// series always report false.
func IsNaN(arr arrow.Array, index int) bool {
	f, ok := arr.(*array.Float64)
	return ok && !f.IsNull(index) && math.IsNaN(f.Value(index))
}
