package augment

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/series"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func priceFrame(mem memory.Allocator, skus []string, dates []time.Time, prices []float64) *dataframe.DataFrame {
	return dataframe.New(
		series.New("sku", skus, mem),
		series.New("created_date", dates, mem),
		series.New("unit_price", prices, mem),
	)
}

func TestAnnotateHighestRecentPrice(t *testing.T) {
	mem := memory.NewGoAllocator()

	prices := priceFrame(mem,
		[]string{"A", "A", "A", "A"},
		[]time.Time{day(2023, 1, 1), day(2023, 6, 1), day(2023, 12, 1), day(2024, 6, 1)},
		[]float64{10, 15, 12, 11},
	)

	targets := dataframe.New(
		series.New("sku", []string{"A", "A", "A"}, mem),
		series.New("created_date", []time.Time{
			day(2023, 7, 1),  // last purchase window covers 10 and 15
			day(2022, 6, 1),  // before any purchase
			day(2024, 11, 1), // the 15 has aged out of the last purchase's window
		}, mem),
	)

	out, err := AnnotateHighestRecentPrice(targets, prices, "sku", "created_date", "unit_price", 365, "highest_recent_cost")
	require.NoError(t, err)

	col, _ := out.Column("highest_recent_cost")
	s := col.(*series.Series[float64])

	assert.Equal(t, 15.0, s.Value(0))
	assert.True(t, s.IsNull(1), "no prior observation yields null")
	assert.Equal(t, 12.0, s.Value(2), "stale maxima age out of the window")
}

func TestAnnotateHighestRecentPricePerSKU(t *testing.T) {
	mem := memory.NewGoAllocator()

	prices := priceFrame(mem,
		[]string{"A", "B"},
		[]time.Time{day(2023, 3, 1), day(2023, 3, 1)},
		[]float64{100, 7},
	)

	targets := dataframe.New(
		series.New("sku", []string{"B", "A", "C"}, mem),
		series.New("created_date", []time.Time{
			day(2023, 4, 1), day(2023, 4, 1), day(2023, 4, 1),
		}, mem),
	)

	out, err := AnnotateHighestRecentPrice(targets, prices, "sku", "created_date", "unit_price", 365, "cost")
	require.NoError(t, err)

	col, _ := out.Column("cost")
	s := col.(*series.Series[float64])
	assert.Equal(t, 7.0, s.Value(0))
	assert.Equal(t, 100.0, s.Value(1))
	assert.True(t, s.IsNull(2), "unknown sku yields null")
}

func TestAnnotateHighestRecentPriceRowOrderInvariant(t *testing.T) {
	mem := memory.NewGoAllocator()

	prices := priceFrame(mem,
		[]string{"A", "A"},
		[]time.Time{day(2023, 2, 1), day(2023, 5, 1)},
		[]float64{20, 8},
	)

	// targets deliberately out of date order
	targets := dataframe.New(
		series.New("sku", []string{"A", "A"}, mem),
		series.New("created_date", []time.Time{day(2023, 6, 1), day(2023, 3, 1)}, mem),
	)

	out, err := AnnotateHighestRecentPrice(targets, prices, "sku", "created_date", "unit_price", 365, "cost")
	require.NoError(t, err)

	col, _ := out.Column("cost")
	s := col.(*series.Series[float64])
	assert.Equal(t, 20.0, s.Value(0), "output stays aligned with input rows")
	assert.Equal(t, 20.0, s.Value(1))
}

func TestAnnotateHighestRecentPriceWindowBoundary(t *testing.T) {
	mem := memory.NewGoAllocator()

	prices := priceFrame(mem,
		[]string{"A", "A"},
		[]time.Time{day(2022, 1, 1), day(2023, 1, 1)},
		[]float64{50, 10},
	)

	// The second purchase's own trailing window is (2022-01-01,
	// 2023-01-01]: the year-old 50 falls exactly on the open bound and
	// is excluded.
	targets := dataframe.New(
		series.New("sku", []string{"A"}, mem),
		series.New("created_date", []time.Time{day(2023, 1, 2)}, mem),
	)

	out, err := AnnotateHighestRecentPrice(targets, prices, "sku", "created_date", "unit_price", 365, "cost")
	require.NoError(t, err)

	col, _ := out.Column("cost")
	assert.Equal(t, 10.0, col.(*series.Series[float64]).Value(0))
}

func TestAnnotateHighestRecentPriceNullTargets(t *testing.T) {
	mem := memory.NewGoAllocator()

	prices := priceFrame(mem, []string{"A"}, []time.Time{day(2023, 1, 1)}, []float64{5})

	targets := dataframe.New(
		series.NewWithNulls("sku", []string{"A", ""}, []bool{true, false}, mem),
		series.NewWithNulls("created_date",
			[]time.Time{{}, day(2023, 2, 1)}, []bool{false, true}, mem),
	)

	out, err := AnnotateHighestRecentPrice(targets, prices, "sku", "created_date", "unit_price", 365, "cost")
	require.NoError(t, err)

	col, _ := out.Column("cost")
	assert.True(t, col.IsNull(0), "null date yields null")
	assert.True(t, col.IsNull(1), "null sku yields null")
}

func TestAnnotateHighestRecentPriceMissingColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	prices := priceFrame(mem, []string{"A"}, []time.Time{day(2023, 1, 1)}, []float64{5})
	targets := dataframe.New(series.New("sku", []string{"A"}, mem))

	_, err := AnnotateHighestRecentPrice(targets, prices, "sku", "created_date", "unit_price", 365, "cost")
	assert.Error(t, err)
}
