// Package testutil provides shared fixtures and assertions for
// pipeline tests: small line item and transaction DataFrames and
// column-level comparisons.
package testutil

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/series"
)

// Alloc returns the allocator used by test fixtures.
func Alloc() memory.Allocator {
	return memory.NewGoAllocator()
}

// Date builds a UTC midnight timestamp for fixture rows.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// LineItemFixture describes one row of a line item fixture table.
type LineItemFixture struct {
	TranID    string
	SKU       string
	Quantity  float64
	UnitPrice float64
	QuoteRate float64
}

// LineItems builds a line item DataFrame from fixture rows.
func LineItems(mem memory.Allocator, rows []LineItemFixture) *dataframe.DataFrame {
	tranIDs := make([]string, len(rows))
	skus := make([]string, len(rows))
	quantities := make([]float64, len(rows))
	prices := make([]float64, len(rows))
	rates := make([]float64, len(rows))
	for i, row := range rows {
		tranIDs[i] = row.TranID
		skus[i] = row.SKU
		quantities[i] = row.Quantity
		prices[i] = row.UnitPrice
		rates[i] = row.QuoteRate
	}

	return dataframe.New(
		series.New("tranid", tranIDs, mem),
		series.New("sku", skus, mem),
		series.New("quantity", quantities, mem),
		series.New("unit_price", prices, mem),
		series.New("quote_po_rate", rates, mem),
	)
}

// StringColumn asserts a string column exists and returns its values,
// with empty strings standing in for nulls.
func StringColumn(t *testing.T, df *dataframe.DataFrame, name string) []string {
	t.Helper()

	col, ok := df.Column(name)
	require.True(t, ok, "column %s should exist", name)

	values := make([]string, df.Len())
	for i := 0; i < df.Len(); i++ {
		if !col.IsNull(i) {
			values[i] = col.GetAsString(i)
		}
	}
	return values
}

// FloatColumn asserts a float64 column exists and returns its values
// together with the validity of each cell.
func FloatColumn(t *testing.T, df *dataframe.DataFrame, name string) ([]float64, []bool) {
	t.Helper()

	col, ok := df.Column(name)
	require.True(t, ok, "column %s should exist", name)
	s, ok := col.(*series.Series[float64])
	require.True(t, ok, "column %s should be float64", name)

	values := make([]float64, s.Len())
	valid := make([]bool, s.Len())
	for i := 0; i < s.Len(); i++ {
		if !s.IsNull(i) {
			values[i] = s.Value(i)
			valid[i] = true
		}
	}
	return values, valid
}

// AssertHasColumns verifies a DataFrame carries exactly the expected
// column set, ignoring order.
func AssertHasColumns(t *testing.T, df *dataframe.DataFrame, expected []string) {
	t.Helper()

	require.NotNil(t, df)
	assert.Len(t, df.Columns(), len(expected))
	for _, name := range expected {
		assert.True(t, df.HasColumn(name), "missing column %s", name)
	}
}

// AssertNotEmpty verifies a DataFrame has rows and columns.
func AssertNotEmpty(t *testing.T, df *dataframe.DataFrame) {
	t.Helper()

	require.NotNil(t, df)
	assert.Positive(t, df.Len())
	assert.Positive(t, df.Width())
}
