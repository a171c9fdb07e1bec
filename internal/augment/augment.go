// Package augment enriches cleaned tables into the enhanced tier:
// joining transaction, customer, item, and vendor attributes onto line
// items and deriving the financial metrics reporting runs on.
package augment

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/vsianalytics/lakeetl/internal/cleanse"
	"github.com/vsianalytics/lakeetl/internal/config"
	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/errors"
	"github.com/vsianalytics/lakeetl/internal/repair"
	"github.com/vsianalytics/lakeetl/internal/series"
)

// ai_order_type values that mark a line item as commission or
// manufacturer-direct business.
var commissionOrderTypes = map[string]bool{
	"Commission Order":    true,
	"Manufacturer Direct": true,
}

// Transactions enriches transaction headers with customer attributes
// and resolves subsidiary by location.
func Transactions(df, customers *dataframe.DataFrame, locationMap map[string]string, logger *slog.Logger) (*dataframe.DataFrame, error) {
	df, err := joinCustomerInfo(df, customers, locationMap, logger)
	if err != nil {
		return nil, err
	}

	// Joins introduce nulls when keys are missing from the customer
	// table.
	return repair.FillNullsWithDefaults(df), nil
}

// LineItems enriches transaction line items: transaction-level fields,
// the date window, customer attributes, the commission flag, item
// master categories, financial metrics, and the two trailing price
// annotations.
func LineItems(lineItems, transactions, items, purchaseOrderLines, customers *dataframe.DataFrame, locationMap map[string]string, start, end time.Time, logger *slog.Logger) (*dataframe.DataFrame, error) {
	transCols := transactions.Select("tranid", "created_date", "commission_only", "ai_order_type", "entered_by")
	df, err := lineItems.Join(transCols, &dataframe.JoinOptions{
		Type:     dataframe.LeftJoin,
		LeftKey:  "tranid",
		RightKey: "tranid",
	})
	if err != nil {
		return nil, err
	}
	df = fillSentinelDates(df, "created_date")

	df, err = cleanse.FilterDateRange(df, "created_date", start, end)
	if err != nil {
		return nil, err
	}

	df, err = joinCustomerInfo(df, customers, locationMap, logger)
	if err != nil {
		return nil, err
	}

	df, err = deriveCommissionFlag(df)
	if err != nil {
		return nil, err
	}

	df, err = AddNewCategoryLevels(df, items)
	if err != nil {
		return nil, err
	}
	df, err = AddVSIItemCategory(df, items)
	if err != nil {
		return nil, err
	}

	df, err = deriveFinancials(df)
	if err != nil {
		return nil, err
	}

	df, err = AnnotateHighestRecentPrice(df, purchaseOrderLines, "sku", "created_date", "unit_price", DefaultPriceWindowDays, "highest_recent_cost")
	if err != nil {
		return nil, err
	}
	df, err = AnnotateHighestRecentPrice(df, df, "sku", "created_date", "quote_po_rate", DefaultPriceWindowDays, "highest_quoted_cost")
	if err != nil {
		return nil, err
	}
	df, err = deriveHighestCost(df)
	if err != nil {
		return nil, err
	}

	df = cleanse.RoundFloatColumns(df, 2)
	df = repair.FillNullsWithDefaults(df)

	// Reporting reads the rate as a cost once the derived metrics
	// exist.
	return df.Rename("quote_po_rate", "unit_cost"), nil
}

// POLineItems enriches purchase order line items with header created
// dates, item master categories, and vendor attributes, and computes
// the line total.
func POLineItems(lineItems, transactions, items, vendors *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	headerCols := transactions.Select("tranid", "created_date")
	df, err := lineItems.Join(headerCols, &dataframe.JoinOptions{
		Type:     dataframe.LeftJoin,
		LeftKey:  "tranid",
		RightKey: "tranid",
	})
	if err != nil {
		return nil, err
	}
	df = fillSentinelDates(df, "created_date")

	df, err = AddNewCategoryLevels(df, items)
	if err != nil {
		return nil, err
	}
	df, err = AddVSIItemCategory(df, items)
	if err != nil {
		return nil, err
	}

	vendorCols := vendors.Rename("id", "vendor_id").Select("vendor_id", "company_name", "category")
	df, err = df.Join(vendorCols, &dataframe.JoinOptions{
		Type:     dataframe.LeftJoin,
		LeftKey:  "vendor_id",
		RightKey: "vendor_id",
	})
	if err != nil {
		return nil, err
	}

	return multiplyColumns(df, "quantity", "unit_price", "total_amount")
}

// EnhanceItems overwrites the item master's category levels from the
// externally maintained category table.
func EnhanceItems(items, levelInfo *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	return AddNewCategoryLevels(items, levelInfo)
}

// AddNewCategoryLevels adds level 4-6 category columns defaulting to
// the sentinel, overwrites levels 1-6 from levelInfo for matching
// SKUs, and remaps the legacy "Valve" top-level name.
func AddNewCategoryLevels(df, levelInfo *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	mem := memory.NewGoAllocator()
	n := df.Len()

	levelCols := []string{
		"level_1_category", "level_2_category", "level_3_category",
		"level_4_category", "level_5_category", "level_6_category",
	}

	for _, name := range levelCols[3:] {
		if !df.HasColumn(name) {
			values := make([]string, n)
			for i := range values {
				values[i] = config.SentinelString
			}
			df = df.WithColumn(series.New(name, values, mem))
		}
	}

	lookup, err := buildSKULookup(levelInfo, levelCols)
	if err != nil {
		return nil, err
	}

	skuCol, ok := df.Column("sku")
	if !ok {
		return nil, errors.NewColumnNotFoundError("add category levels", "sku")
	}

	out := df
	for c, name := range levelCols {
		col, ok := out.Column(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError("add category levels", name)
		}
		values := make([]string, n)
		for i := 0; i < n; i++ {
			if !skuCol.IsNull(i) {
				if levels, found := lookup[skuCol.GetAsString(i)]; found && levels[c] != "" {
					values[i] = levels[c]
					continue
				}
			}
			if col.IsNull(i) {
				values[i] = config.SentinelString
			} else {
				values[i] = col.GetAsString(i)
			}
			if name == "level_1_category" && values[i] == "Valve" {
				values[i] = "Valves"
			}
		}
		out = out.WithColumn(series.New(name, values, mem))
	}

	return out, nil
}

// AddVSIItemCategory copies vsi_item_category from the item master by
// SKU, defaulting to the sentinel for unknown SKUs.
func AddVSIItemCategory(df, itemMaster *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	lookup, err := buildSKULookup(itemMaster, []string{"vsi_item_category"})
	if err != nil {
		return nil, err
	}

	skuCol, ok := df.Column("sku")
	if !ok {
		return nil, errors.NewColumnNotFoundError("add vsi item category", "sku")
	}

	n := df.Len()
	values := make([]string, n)
	for i := 0; i < n; i++ {
		values[i] = config.SentinelString
		if !skuCol.IsNull(i) {
			if v, found := lookup[skuCol.GetAsString(i)]; found && v[0] != "" {
				values[i] = v[0]
			}
		}
	}

	mem := memory.NewGoAllocator()
	return df.WithColumn(series.New("vsi_item_category", values, mem)), nil
}

// buildSKULookup indexes the named columns of a table by SKU. Missing
// columns become empty entries rather than errors so partial masters
// still resolve what they can.
func buildSKULookup(df *dataframe.DataFrame, columns []string) (map[string][]string, error) {
	skuCol, ok := df.Column("sku")
	if !ok {
		return nil, errors.NewColumnNotFoundError("index by sku", "sku")
	}

	cols := make([]dataframe.ISeries, len(columns))
	for c, name := range columns {
		if col, found := df.Column(name); found {
			cols[c] = col
		}
	}

	lookup := make(map[string][]string, df.Len())
	for i := 0; i < df.Len(); i++ {
		if skuCol.IsNull(i) {
			continue
		}
		values := make([]string, len(columns))
		for c, col := range cols {
			if col != nil && !col.IsNull(i) {
				values[c] = col.GetAsString(i)
			}
		}
		lookup[skuCol.GetAsString(i)] = values
	}
	return lookup, nil
}

// joinCustomerInfo left-joins customer attributes by customer_id and
// resolves subsidiary by location. Unmatched customers are logged.
func joinCustomerInfo(df, customers *dataframe.DataFrame, locationMap map[string]string, logger *slog.Logger) (*dataframe.DataFrame, error) {
	cols := []string{"customer_id", "subsidiary_name", "end_market", "sales_rep"}
	if !df.HasColumn("company_name") {
		cols = append(cols, "company_name")
	}

	if logger != nil {
		if unmatched, err := df.UnmatchedLeftRows(customers, "customer_id", "customer_id"); err == nil && unmatched > 0 {
			logger.Warn("rows with no matching customer", "count", unmatched)
		}
	}

	joined, err := df.Join(customers.Select(cols...), &dataframe.JoinOptions{
		Type:     dataframe.LeftJoin,
		LeftKey:  "customer_id",
		RightKey: "customer_id",
	})
	if err != nil {
		return nil, err
	}

	return cleanse.SetSubsidiaryByLocation(joined, locationMap)
}

// deriveCommissionFlag combines commission_only and ai_order_type into
// commission_or_mfr_direct and drops the source flag.
func deriveCommissionFlag(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	commissionCol, ok := df.Column("commission_only")
	if !ok {
		return nil, errors.NewColumnNotFoundError("derive commission flag", "commission_only")
	}
	orderTypeCol, ok := df.Column("ai_order_type")
	if !ok {
		return nil, errors.NewColumnNotFoundError("derive commission flag", "ai_order_type")
	}

	n := df.Len()
	values := make([]bool, n)
	for i := 0; i < n; i++ {
		commission := false
		if !commissionCol.IsNull(i) {
			commission = commissionCol.GetAsString(i) == "true"
		}
		orderType := ""
		if !orderTypeCol.IsNull(i) {
			orderType = orderTypeCol.GetAsString(i)
		}
		values[i] = commission || commissionOrderTypes[orderType]
	}

	mem := memory.NewGoAllocator()
	return df.WithColumn(series.New("commission_or_mfr_direct", values, mem)).Drop("commission_only"), nil
}

// deriveFinancials computes the per-line financial metrics.
func deriveFinancials(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	df, err := multiplyColumns(df, "quantity", "unit_price", "total_amount")
	if err != nil {
		return nil, err
	}
	df, err = multiplyColumns(df, "quantity", "quote_po_rate", "total_cost")
	if err != nil {
		return nil, err
	}

	amount, err := floatColumn(df, "total_amount")
	if err != nil {
		return nil, err
	}
	cost, err := floatColumn(df, "total_cost")
	if err != nil {
		return nil, err
	}

	n := df.Len()
	profit := make([]float64, n)
	percent := make([]float64, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		if amount.IsNull(i) || cost.IsNull(i) {
			continue
		}
		valid[i] = true
		profit[i] = amount.Value(i) - cost.Value(i)
		// A zero total_amount yields Inf or NaN here; curation
		// normalizes those away.
		percent[i] = profit[i] / amount.Value(i) * 100
	}

	mem := memory.NewGoAllocator()
	df = df.WithColumn(series.NewWithNulls("gross_profit", profit, valid, mem))
	return df.WithColumn(series.NewWithNulls("gross_profit_percent", percent, valid, mem)), nil
}

// deriveHighestCost takes the per-row max of the two trailing price
// annotations.
func deriveHighestCost(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	quoted, err := floatColumn(df, "highest_quoted_cost")
	if err != nil {
		return nil, err
	}
	recent, err := floatColumn(df, "highest_recent_cost")
	if err != nil {
		return nil, err
	}

	n := df.Len()
	values := make([]float64, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		switch {
		case quoted.IsNull(i) && recent.IsNull(i):
		case quoted.IsNull(i):
			values[i] = recent.Value(i)
			valid[i] = true
		case recent.IsNull(i):
			values[i] = quoted.Value(i)
			valid[i] = true
		default:
			values[i] = math.Max(quoted.Value(i), recent.Value(i))
			valid[i] = true
		}
	}

	mem := memory.NewGoAllocator()
	return df.WithColumn(series.NewWithNulls("highest_cost", values, valid, mem)), nil
}

// CompareTransactionsAndLineItems reconciles header net_amount against
// the summed line-item total_amount per tranid, sorted by difference
// descending so the worst discrepancies surface first.
func CompareTransactionsAndLineItems(transactions, lineItems *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	headerSums, err := sumByTranID(transactions, "net_amount")
	if err != nil {
		return nil, err
	}
	lineSums, err := sumByTranID(lineItems, "total_amount")
	if err != nil {
		return nil, err
	}

	type comparison struct {
		tranid     string
		netAmount  float64
		lineAmount float64
		difference float64
	}

	rows := make([]comparison, 0, len(headerSums))
	for tranid, net := range headerSums {
		lines, ok := lineSums[tranid]
		if !ok {
			continue
		}
		rows = append(rows, comparison{
			tranid:     tranid,
			netAmount:  net,
			lineAmount: lines,
			difference: net - lines,
		})
	}

	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].difference != rows[b].difference {
			return rows[a].difference > rows[b].difference
		}
		return rows[a].tranid < rows[b].tranid
	})

	tranids := make([]string, len(rows))
	nets := make([]float64, len(rows))
	lines := make([]float64, len(rows))
	diffs := make([]float64, len(rows))
	for i, row := range rows {
		tranids[i] = row.tranid
		nets[i] = row.netAmount
		lines[i] = row.lineAmount
		diffs[i] = row.difference
	}

	mem := memory.NewGoAllocator()
	return dataframe.New(
		series.New("tranid", tranids, mem),
		series.New("transaction_net_amount", nets, mem),
		series.New("line_items_total_amount", lines, mem),
		series.New("difference", diffs, mem),
	), nil
}

func sumByTranID(df *dataframe.DataFrame, amountCol string) (map[string]float64, error) {
	tranCol, ok := df.Column("tranid")
	if !ok {
		return nil, errors.NewColumnNotFoundError("sum by tranid", "tranid")
	}
	amount, err := floatColumn(df, amountCol)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]float64)
	for i := 0; i < df.Len(); i++ {
		if tranCol.IsNull(i) || amount.IsNull(i) {
			continue
		}
		sums[tranCol.GetAsString(i)] += amount.Value(i)
	}
	return sums, nil
}

// multiplyColumns computes out := a * b as a new float column.
func multiplyColumns(df *dataframe.DataFrame, a, b, out string) (*dataframe.DataFrame, error) {
	left, err := floatColumn(df, a)
	if err != nil {
		return nil, err
	}
	right, err := floatColumn(df, b)
	if err != nil {
		return nil, err
	}

	n := df.Len()
	values := make([]float64, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		if left.IsNull(i) || right.IsNull(i) {
			continue
		}
		values[i] = left.Value(i) * right.Value(i)
		valid[i] = true
	}

	mem := memory.NewGoAllocator()
	return df.WithColumn(series.NewWithNulls(out, values, valid, mem)), nil
}

func floatColumn(df *dataframe.DataFrame, name string) (*series.Series[float64], error) {
	col, ok := df.Column(name)
	if !ok {
		return nil, errors.NewColumnNotFoundError("read float column", name)
	}
	s, ok := col.(*series.Series[float64])
	if !ok {
		return nil, errors.NewUnsupportedTypeError("read float column", col.DataType().String())
	}
	return s, nil
}

// fillSentinelDates replaces nulls in a timestamp column introduced by
// a left join with the sentinel date.
func fillSentinelDates(df *dataframe.DataFrame, column string) *dataframe.DataFrame {
	col, ok := df.Column(column)
	if !ok {
		return df
	}
	s, ok := col.(*series.Series[time.Time])
	if !ok || s.NullCount() == 0 {
		return df
	}

	n := s.Len()
	values := make([]time.Time, n)
	for i := 0; i < n; i++ {
		if s.IsNull(i) {
			values[i] = config.SentinelDate
		} else {
			values[i] = s.Value(i)
		}
	}

	mem := memory.NewGoAllocator()
	return df.WithColumn(series.New(column, values, mem))
}
