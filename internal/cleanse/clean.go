// Package cleanse filters and normalizes repaired tables: dropping
// unused columns, scrubbing bad values, restricting rows to the
// reporting window, and resolving conflicting source attributes into
// canonical ones.
package cleanse

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/vsianalytics/lakeetl/internal/config"
	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/errors"
	"github.com/vsianalytics/lakeetl/internal/series"
)

// item_type values that do not describe products or services.
var NonProductItemTypes = []string{"Description", "Markup", "Other Charge", "Payment", "Discount"}

var (
	illegalChars   = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	customItemName = regexp.MustCompile(`(?i)\bcustom\b`)
)

// RemoveIllegalChars strips ASCII control characters from a string.
// They show up in hand-keyed description fields and break Parquet
// readers downstream.
func RemoveIllegalChars(value string) string {
	return illegalChars.ReplaceAllString(value, "")
}

// ScrubIllegalChars rewrites every string column with control
// characters removed.
func ScrubIllegalChars(df *dataframe.DataFrame) *dataframe.DataFrame {
	mem := memory.NewGoAllocator()

	out := df
	for _, name := range df.Columns() {
		col, _ := df.Column(name)
		if col.DataType().ID() != arrow.STRING {
			continue
		}
		s := col.(*series.Series[string])
		values := make([]string, s.Len())
		valid := make([]bool, s.Len())
		changed := false
		for i := 0; i < s.Len(); i++ {
			if s.IsNull(i) {
				continue
			}
			valid[i] = true
			values[i] = RemoveIllegalChars(s.Value(i))
			if values[i] != s.Value(i) {
				changed = true
			}
		}
		if changed {
			out = out.WithColumn(series.NewWithNulls(name, values, valid, mem))
		}
	}
	return out
}

// RoundFloatColumns rounds every float column to the given number of
// decimal places.
func RoundFloatColumns(df *dataframe.DataFrame, decimals int) *dataframe.DataFrame {
	mem := memory.NewGoAllocator()
	factor := math.Pow(10, float64(decimals))

	out := df
	for _, name := range df.Columns() {
		col, _ := df.Column(name)
		if col.DataType().ID() != arrow.FLOAT64 {
			continue
		}
		s := col.(*series.Series[float64])
		values := make([]float64, s.Len())
		valid := make([]bool, s.Len())
		for i := 0; i < s.Len(); i++ {
			if s.IsNull(i) {
				continue
			}
			valid[i] = true
			v := s.Value(i)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				values[i] = v
			} else {
				values[i] = math.Round(v*factor) / factor
			}
		}
		out = out.WithColumn(series.NewWithNulls(name, values, valid, mem))
	}
	return out
}

// DropListedColumns removes the configured drop list for a table.
// Columns already absent are ignored.
func DropListedColumns(df *dataframe.DataFrame, table string, dropLists config.DropLists) *dataframe.DataFrame {
	drops, ok := dropLists[table]
	if !ok || len(drops) == 0 {
		return df
	}
	return df.Drop(drops...)
}

// FilterDateRange keeps rows whose date falls in [start, end]
// inclusive. Rows with a null date are dropped.
func FilterDateRange(df *dataframe.DataFrame, column string, start, end time.Time) (*dataframe.DataFrame, error) {
	col, ok := df.Column(column)
	if !ok {
		return nil, errors.NewColumnNotFoundError("filter date range", column)
	}
	s, ok := col.(*series.Series[time.Time])
	if !ok {
		return nil, errors.NewUnsupportedTypeError("filter date range", col.DataType().String())
	}

	return df.Filter(func(row int) bool {
		if s.IsNull(row) {
			return false
		}
		d := s.Value(row)
		return !d.Before(start) && !d.After(end)
	}), nil
}

// FilterItemNames removes rows whose item_name starts with
// "Inactivated" or contains the standalone word "custom".
func FilterItemNames(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	col, ok := df.Column("item_name")
	if !ok {
		return nil, errors.NewColumnNotFoundError("filter item names", "item_name")
	}

	return df.Filter(func(row int) bool {
		if col.IsNull(row) {
			return true
		}
		name := col.GetAsString(row)
		if strings.HasPrefix(name, "Inactivated") {
			return false
		}
		return !customItemName.MatchString(name)
	}), nil
}

// ExcludeItemTypes removes rows whose item_type is in the excluded
// list.
func ExcludeItemTypes(df *dataframe.DataFrame, excluded []string) (*dataframe.DataFrame, error) {
	col, ok := df.Column("item_type")
	if !ok {
		return nil, errors.NewColumnNotFoundError("exclude item types", "item_type")
	}

	excludedSet := make(map[string]bool, len(excluded))
	for _, v := range excluded {
		excludedSet[v] = true
	}

	return df.Filter(func(row int) bool {
		if col.IsNull(row) {
			return true
		}
		return !excludedSet[col.GetAsString(row)]
	}), nil
}

// FilterValuelessLineItems removes line items where both the cost and
// the unit price are non-positive.
func FilterValuelessLineItems(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	costCol, ok := df.Column("quote_po_rate")
	if !ok {
		return nil, errors.NewColumnNotFoundError("filter valueless line items", "quote_po_rate")
	}
	priceCol, ok := df.Column("unit_price")
	if !ok {
		return nil, errors.NewColumnNotFoundError("filter valueless line items", "unit_price")
	}

	cost, ok := costCol.(*series.Series[float64])
	if !ok {
		return nil, errors.NewUnsupportedTypeError("filter valueless line items", costCol.DataType().String())
	}
	price, ok := priceCol.(*series.Series[float64])
	if !ok {
		return nil, errors.NewUnsupportedTypeError("filter valueless line items", priceCol.DataType().String())
	}

	return df.Filter(func(row int) bool {
		return cost.Value(row) > 0 || price.Value(row) > 0
	}), nil
}

// CleanTable runs the shared cleaning pass for item-bearing tables:
// the configured column drops, manufacturer resolution, item name
// filters, sign normalization for line items, control character
// scrubbing, and rounding.
func CleanTable(df *dataframe.DataFrame, table string, dropLists config.DropLists, nameMap map[string][]string) (*dataframe.DataFrame, error) {
	df = DropListedColumns(df, table, dropLists)

	df, err := ResolveManufacturers(df, nameMap)
	if err != nil {
		return nil, err
	}

	df, err = FilterItemNames(df)
	if err != nil {
		return nil, err
	}

	if table == "line_item" {
		df, err = NegateColumns(df, "quantity")
		if err != nil {
			return nil, err
		}
	}

	df = ScrubIllegalChars(df)
	return RoundFloatColumns(df, 2), nil
}

// newCategoryRenames maps the externally maintained category table's
// headings to lake column names.
var newCategoryRenames = [][2]string{
	{"Internal ID", "sku"},
	{"Type", "item_type"},
	{"Manufacturer", "manufacturer"},
	{"Level 1", "level_1_category"},
	{"Level 2", "level_2_category"},
	{"Level 3", "level_3_category"},
	{"Level 4", "level_4_category"},
	{"Level 5", "level_5_category"},
	{"Level 6", "level_6_category"},
	{"Name", "item_name"},
	{"Description", "description"},
}

// CleanNewItemCategories prepares the landed category-levels table:
// renames headings to lake names, keeps only the mapped columns, and
// fills nulls so every SKU row is usable as a lookup source.
func CleanNewItemCategories(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	mem := memory.NewGoAllocator()

	keep := make([]string, 0, len(newCategoryRenames))
	for _, rename := range newCategoryRenames {
		if df.HasColumn(rename[0]) {
			df = df.Rename(rename[0], rename[1])
		}
		if !df.HasColumn(rename[1]) {
			return nil, errors.NewColumnNotFoundError("clean item categories", rename[1])
		}
		keep = append(keep, rename[1])
	}
	df = df.Select(keep...)

	out := df
	for _, name := range keep {
		col, _ := out.Column(name)
		n := col.Len()
		values := make([]string, n)
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				if name == "sku" {
					values[i] = "0"
				} else {
					values[i] = config.SentinelString
				}
			} else {
				values[i] = strings.TrimSpace(col.GetAsString(i))
			}
		}
		out = out.WithColumn(series.New(name, values, mem))
	}
	return out, nil
}

// NegateColumns flips the sign of the named float columns. The source
// system stores outbound quantities as negatives; reporting wants
// positives.
func NegateColumns(df *dataframe.DataFrame, names ...string) (*dataframe.DataFrame, error) {
	mem := memory.NewGoAllocator()

	out := df
	for _, name := range names {
		col, ok := out.Column(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError("negate columns", name)
		}
		s, ok := col.(*series.Series[float64])
		if !ok {
			return nil, errors.NewUnsupportedTypeError("negate columns", col.DataType().String())
		}
		values := make([]float64, s.Len())
		valid := make([]bool, s.Len())
		for i := 0; i < s.Len(); i++ {
			if s.IsNull(i) {
				continue
			}
			valid[i] = true
			values[i] = -s.Value(i)
		}
		out = out.WithColumn(series.NewWithNulls(name, values, valid, mem))
	}
	return out, nil
}
