// Package curate applies the final presentation filter to enhanced
// line items.
package curate

import (
	"math"

	"github.com/vsianalytics/lakeetl/internal/config"
	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/errors"
	"github.com/vsianalytics/lakeetl/internal/series"
)

// MinGrossProfitPercent is the lowest margin kept in the curated tier.
// Anything below it is treated as a data problem, not a real sale.
const MinGrossProfitPercent = -50

// LineItems keeps rows with a positive total cost, a finite gross
// profit percentage of at least -50, and a resolved subsidiary.
func LineItems(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	cost, err := floatColumn(df, "total_cost")
	if err != nil {
		return nil, err
	}
	profitPercent, err := floatColumn(df, "gross_profit_percent")
	if err != nil {
		return nil, err
	}
	subsidiary, ok := df.Column("subsidiary_name")
	if !ok {
		return nil, errors.NewColumnNotFoundError("curate line items", "subsidiary_name")
	}

	return df.Filter(func(row int) bool {
		if cost.IsNull(row) || cost.Value(row) <= 0 {
			return false
		}
		if profitPercent.IsNull(row) {
			return false
		}
		pct := profitPercent.Value(row)
		if math.IsNaN(pct) || math.IsInf(pct, 0) || pct < MinGrossProfitPercent {
			return false
		}
		if subsidiary.IsNull(row) || subsidiary.GetAsString(row) == config.SentinelString {
			return false
		}
		return true
	}), nil
}

func floatColumn(df *dataframe.DataFrame, name string) (*series.Series[float64], error) {
	col, ok := df.Column(name)
	if !ok {
		return nil, errors.NewColumnNotFoundError("curate line items", name)
	}
	s, ok := col.(*series.Series[float64])
	if !ok {
		return nil, errors.NewUnsupportedTypeError("curate line items", col.DataType().String())
	}
	return s, nil
}
