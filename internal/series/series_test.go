package series

import (
	"math"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStringSeries(t *testing.T) {
	mem := memory.NewGoAllocator()

	s := New("name", []string{"Valcor", "Swagelok", "Asco"}, mem)
	defer s.Release()

	assert.Equal(t, "name", s.Name())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 0, s.NullCount())
	assert.Equal(t, []string{"Valcor", "Swagelok", "Asco"}, s.Values())
	assert.Equal(t, "Swagelok", s.Value(1))
}

func TestNewWithNulls(t *testing.T) {
	mem := memory.NewGoAllocator()

	s := NewWithNulls("net_amount", []float64{10.5, 0, 99.99}, []bool{true, false, true}, mem)
	defer s.Release()

	assert.Equal(t, 1, s.NullCount())
	assert.False(t, s.IsNull(0))
	assert.True(t, s.IsNull(1))
	assert.False(t, s.IsNull(2))
	assert.Equal(t, 99.99, s.Value(2))

	// null entries yield the zero value
	assert.Equal(t, 0.0, s.Value(1))
}

func TestTimestampSeriesRoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()

	dates := []time.Time{
		time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1800, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	s := New("created_date", dates, mem)
	defer s.Release()

	assert.Equal(t, dates, s.Values())
	assert.Equal(t, arrow.TIMESTAMP, s.DataType().ID())
	assert.Equal(t, "2023-06-01 00:00:00", s.GetAsString(0))
}

func TestGetAsString(t *testing.T) {
	mem := memory.NewGoAllocator()

	tests := []struct {
		name   string
		series interface{ GetAsString(int) string }
		want   string
	}{
		{"string", New("c", []string{"hello"}, mem), "hello"},
		{"int64", New("c", []int64{42}, mem), "42"},
		{"float64", New("c", []float64{1.5}, mem), "1.5"},
		{"bool", New("c", []bool{true}, mem), "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.series.GetAsString(0))
		})
	}
}

func TestGetAsStringNull(t *testing.T) {
	mem := memory.NewGoAllocator()

	s := NewWithNulls("c", []string{""}, []bool{false}, mem)
	defer s.Release()

	assert.Equal(t, "null", s.GetAsString(0))
	assert.Equal(t, "", s.GetAsString(5))
}

func TestRenameSharesData(t *testing.T) {
	mem := memory.NewGoAllocator()

	s := New("id", []int64{1, 2, 3}, mem)
	defer s.Release()

	renamed := s.Rename("customer_id")
	defer renamed.Release()

	assert.Equal(t, "customer_id", renamed.Name())
	assert.Equal(t, "id", s.Name())
	assert.Equal(t, s.Values(), renamed.Values())
}

func TestFromArrowTakesOwnership(t *testing.T) {
	mem := memory.NewGoAllocator()

	src := New("a", []int64{7}, mem)
	arr := src.Array()
	src.Release()

	wrapped := FromArrow[int64]("b", arr)
	defer wrapped.Release()

	require.Equal(t, 1, wrapped.Len())
	assert.Equal(t, int64(7), wrapped.Value(0))
}

func TestIsNaN(t *testing.T) {
	mem := memory.NewGoAllocator()

	s := NewWithNulls("pct", []float64{1.0, math.NaN(), 0}, []bool{true, true, false}, mem)
	defer s.Release()

	arr := s.Array()
	defer arr.Release()

	assert.False(t, IsNaN(arr, 0))
	assert.True(t, IsNaN(arr, 1))
	assert.False(t, IsNaN(arr, 2))

	strs := New("s", []string{"NaN"}, mem)
	defer strs.Release()
	strArr := strs.Array()
	defer strArr.Release()
	assert.False(t, IsNaN(strArr, 0))
}
