package augment

import (
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/errors"
	"github.com/vsianalytics/lakeetl/internal/series"
)

// DefaultPriceWindowDays is the trailing window for recent price
// lookups.
const DefaultPriceWindowDays = 365

// priceObservation is one price row's trailing-window maximum, anchored
// at that row's own date.
type priceObservation struct {
	sku  string
	date time.Time
	max  float64
}

// AnnotateHighestRecentPrice adds outputCol to targets: for each target
// row, the maximum price among price rows sharing its SKU with a date
// in the trailing window (date-windowDays, date]. Rows with no prior
// price observation get a null. The caller's row order is preserved.
func AnnotateHighestRecentPrice(targets, prices *dataframe.DataFrame, skuCol, dateCol, priceCol string, windowDays int, outputCol string) (*dataframe.DataFrame, error) {
	if windowDays <= 0 {
		windowDays = DefaultPriceWindowDays
	}

	observations, err := rollingMaxObservations(prices, skuCol, dateCol, priceCol, windowDays)
	if err != nil {
		return nil, err
	}

	targetSKU, ok := targets.Column(skuCol)
	if !ok {
		return nil, errors.NewColumnNotFoundError("annotate recent price", skuCol)
	}
	targetDateCol, ok := targets.Column(dateCol)
	if !ok {
		return nil, errors.NewColumnNotFoundError("annotate recent price", dateCol)
	}
	targetDate, ok := targetDateCol.(*series.Series[time.Time])
	if !ok {
		return nil, errors.NewUnsupportedTypeError("annotate recent price", targetDateCol.DataType().String())
	}

	n := targets.Len()

	// Visit targets in date order so a single forward sweep over the
	// observations yields the backward as-of value for every row.
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !targetSKU.IsNull(i) && !targetDate.IsNull(i) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return targetDate.Value(order[a]).Before(targetDate.Value(order[b]))
	})

	values := make([]float64, n)
	valid := make([]bool, n)
	lastSeen := make(map[string]float64)

	next := 0
	for _, row := range order {
		d := targetDate.Value(row)
		for next < len(observations) && !observations[next].date.After(d) {
			lastSeen[observations[next].sku] = observations[next].max
			next++
		}
		if v, seen := lastSeen[targetSKU.GetAsString(row)]; seen {
			values[row] = v
			valid[row] = true
		}
	}

	mem := memory.NewGoAllocator()
	return targets.WithColumn(series.NewWithNulls(outputCol, values, valid, mem)), nil
}

// rollingMaxObservations computes, per price row, the maximum price for
// its SKU over the trailing window ending at that row's date. The
// result is sorted by date (stable, so per-SKU date order survives).
func rollingMaxObservations(prices *dataframe.DataFrame, skuCol, dateCol, priceCol string, windowDays int) ([]priceObservation, error) {
	skuSeries, ok := prices.Column(skuCol)
	if !ok {
		return nil, errors.NewColumnNotFoundError("rolling price max", skuCol)
	}
	dateSeriesCol, ok := prices.Column(dateCol)
	if !ok {
		return nil, errors.NewColumnNotFoundError("rolling price max", dateCol)
	}
	dateSeries, ok := dateSeriesCol.(*series.Series[time.Time])
	if !ok {
		return nil, errors.NewUnsupportedTypeError("rolling price max", dateSeriesCol.DataType().String())
	}
	priceSeriesCol, ok := prices.Column(priceCol)
	if !ok {
		return nil, errors.NewColumnNotFoundError("rolling price max", priceCol)
	}
	priceSeries, ok := priceSeriesCol.(*series.Series[float64])
	if !ok {
		return nil, errors.NewUnsupportedTypeError("rolling price max", priceSeriesCol.DataType().String())
	}

	type priceRow struct {
		sku   string
		date  time.Time
		price float64
	}

	rows := make([]priceRow, 0, prices.Len())
	for i := 0; i < prices.Len(); i++ {
		if skuSeries.IsNull(i) || dateSeries.IsNull(i) || priceSeries.IsNull(i) {
			continue
		}
		rows = append(rows, priceRow{
			sku:   skuSeries.GetAsString(i),
			date:  dateSeries.Value(i),
			price: priceSeries.Value(i),
		})
	}

	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].sku != rows[b].sku {
			return rows[a].sku < rows[b].sku
		}
		return rows[a].date.Before(rows[b].date)
	})

	window := time.Duration(windowDays) * 24 * time.Hour
	observations := make([]priceObservation, 0, len(rows))

	// Monotonic decreasing deque of indices into the current SKU
	// group: front holds the window maximum.
	var deque []int
	for i := range rows {
		if i > 0 && rows[i].sku != rows[i-1].sku {
			deque = deque[:0]
		}

		cutoff := rows[i].date.Add(-window)
		for len(deque) > 0 && !rows[deque[0]].date.After(cutoff) {
			deque = deque[1:]
		}
		for len(deque) > 0 && rows[deque[len(deque)-1]].price <= rows[i].price {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)

		observations = append(observations, priceObservation{
			sku:  rows[i].sku,
			date: rows[i].date,
			max:  rows[deque[0]].price,
		})
	}

	sort.SliceStable(observations, func(a, b int) bool {
		return observations[a].date.Before(observations[b].date)
	})

	return observations, nil
}
