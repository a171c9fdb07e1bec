// Package repair turns consolidated raw tables into typed, fully
// populated tables: every mapped column is coerced to its declared
// type, nulls are substituted, and the result is validated before it
// is written back to the raw tier.
package repair

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/vsianalytics/lakeetl/internal/config"
	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/errors"
	"github.com/vsianalytics/lakeetl/internal/series"
)

// boolTokens maps the export's boolean renderings. Anything else is
// treated as null and substituted.
var boolTokens = map[string]bool{
	"T":     true,
	"F":     false,
	"True":  true,
	"False": false,
	"true":  true,
	"false": false,
}

// RepairTable drops the web-query artifact column, trims every string
// column, coerces every mapped column to its declared type, and
// validates the result. A column that still contains nulls or NaN
// after coercion fails the table.
func RepairTable(df *dataframe.DataFrame, table string, fieldsMap config.TableFieldsMap) (*dataframe.DataFrame, error) {
	fields, ok := fieldsMap[table]
	if !ok {
		return nil, errors.NewInvalidInputError("repair", "no field map for table "+table)
	}

	// NetSuite web queries insert a 'links' column with no data value.
	if df.HasColumn("links") {
		df = df.Drop("links")
	}

	df = TrimStringColumns(df)

	repaired, err := CoerceTypes(df, table, fields)
	if err != nil {
		return nil, err
	}

	if bad := ValidateColumns(repaired); len(bad) > 0 {
		return nil, errors.NewValidationError(table, bad)
	}

	return repaired, nil
}

// CoerceTypes converts each mapped column to its declared type. Cells
// are trimmed; a literal "null" token (any case) and unparseable
// values become nulls, which are then replaced with the group's
// substitute so no nulls leave this stage.
func CoerceTypes(df *dataframe.DataFrame, table string, fields config.TableFields) (*dataframe.DataFrame, error) {
	mem := memory.NewGoAllocator()

	typeNames := make([]string, 0, len(fields))
	for name := range fields {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)

	out := df
	for _, typeName := range typeNames {
		target, err := config.ParseFieldType(typeName)
		if err != nil {
			return nil, errors.NewUnsupportedTypeError("coerce", typeName)
		}

		group := fields[typeName]
		for _, column := range group.Fields {
			col, ok := out.Column(column)
			if !ok {
				return nil, errors.NewSchemaError(table, column)
			}
			out = out.WithColumn(coerceColumn(col, target, group.NullSubstitute, mem))
		}
	}

	return out, nil
}

// coerceColumn rebuilds one column at the target type with nulls
// substituted.
func coerceColumn(col dataframe.ISeries, target config.FieldType, substitute interface{}, mem memory.Allocator) dataframe.ISeries {
	n := col.Len()

	switch target {
	case config.IntField:
		sub := subAsInt64(substitute)
		values := make([]int64, n)
		for i := 0; i < n; i++ {
			raw, ok := rawCell(col, i)
			if !ok {
				values[i] = sub
				continue
			}
			if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
				values[i] = v
			} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
				values[i] = int64(f)
			} else {
				values[i] = sub
			}
		}
		return series.New(col.Name(), values, mem)

	case config.FloatField:
		sub := subAsFloat64(substitute)
		values := make([]float64, n)
		for i := 0; i < n; i++ {
			raw, ok := rawCell(col, i)
			if !ok {
				values[i] = sub
				continue
			}
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				values[i] = v
			} else {
				values[i] = sub
			}
		}
		return series.New(col.Name(), values, mem)

	case config.BoolField:
		sub := subAsBool(substitute)
		values := make([]bool, n)
		for i := 0; i < n; i++ {
			raw, ok := rawCell(col, i)
			if !ok {
				values[i] = sub
				continue
			}
			if v, mapped := boolTokens[raw]; mapped {
				values[i] = v
			} else {
				values[i] = sub
			}
		}
		return series.New(col.Name(), values, mem)

	case config.DateTimeField:
		sub := subAsTime(substitute)
		values := make([]time.Time, n)
		for i := 0; i < n; i++ {
			raw, ok := rawCell(col, i)
			if !ok {
				values[i] = sub
				continue
			}
			if t, parsed := SafeParseDate(raw); parsed {
				values[i] = t
			} else {
				values[i] = sub
			}
		}
		return series.New(col.Name(), values, mem)

	default:
		sub := subAsString(substitute)
		values := make([]string, n)
		for i := 0; i < n; i++ {
			raw, ok := rawCell(col, i)
			if !ok {
				values[i] = sub
				continue
			}
			values[i] = raw
		}
		return series.New(col.Name(), values, mem)
	}
}

// TrimStringColumns rewrites every string column with surrounding
// whitespace removed, nulls preserved. Unmapped columns carry the
// trimmed text into later stages.
func TrimStringColumns(df *dataframe.DataFrame) *dataframe.DataFrame {
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
			values[i] = strings.TrimSpace(s.Value(i))
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

// rawCell returns the trimmed text of a cell, reporting false for
// nulls and the export's literal "null" token.
func rawCell(col dataframe.ISeries, i int) (string, bool) {
	if col.IsNull(i) {
		return "", false
	}
	raw := strings.TrimSpace(col.GetAsString(i))
	if strings.EqualFold(raw, "null") {
		return "", false
	}
	return raw, true
}

// ValidateColumns returns the names of columns that still contain
// nulls, or NaN for float columns, in column order.
func ValidateColumns(df *dataframe.DataFrame) []string {
	var bad []string
	for _, name := range df.Columns() {
		col, _ := df.Column(name)
		if col.NullCount() > 0 {
			bad = append(bad, name)
			continue
		}
		if col.DataType().ID() == arrow.FLOAT64 {
			arr := col.Array()
			for i := 0; i < arr.Len(); i++ {
				if series.IsNaN(arr, i) {
					bad = append(bad, name)
					break
				}
			}
			arr.Release()
		}
	}
	return bad
}

// FilterAnomalousTranIDs drops rows whose tranid mixes letters and
// digits. Hand-keyed document numbers of that shape collide with the
// generated sequence and break downstream reconciliation.
func FilterAnomalousTranIDs(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	col, ok := df.Column("tranid")
	if !ok {
		return nil, errors.NewColumnNotFoundError("filter tranids", "tranid")
	}

	return df.Filter(func(row int) bool {
		if col.IsNull(row) {
			return true
		}
		return !isMixedAlphanumeric(col.GetAsString(row))
	}), nil
}

// isMixedAlphanumeric reports whether s consists only of letters and
// digits and contains at least one of each.
func isMixedAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}

// FillNullsWithDefaults replaces every null with the sentinel default
// for the column's type. Float NaN entries are treated as nulls.
func FillNullsWithDefaults(df *dataframe.DataFrame) *dataframe.DataFrame {
	mem := memory.NewGoAllocator()

	out := df
	for _, name := range df.Columns() {
		col, _ := df.Column(name)
		if col.NullCount() == 0 && col.DataType().ID() != arrow.FLOAT64 {
			continue
		}
		out = out.WithColumn(fillColumn(col, mem))
	}
	return out
}

func fillColumn(col dataframe.ISeries, mem memory.Allocator) dataframe.ISeries {
	n := col.Len()

	switch col.DataType().ID() {
	case arrow.INT64:
		s := col.(*series.Series[int64])
		values := make([]int64, n)
		for i := 0; i < n; i++ {
			if !s.IsNull(i) {
				values[i] = s.Value(i)
			}
		}
		return series.New(col.Name(), values, mem)

	case arrow.FLOAT64:
		s := col.(*series.Series[float64])
		arr := col.Array()
		values := make([]float64, n)
		for i := 0; i < n; i++ {
			if !s.IsNull(i) && !series.IsNaN(arr, i) {
				values[i] = s.Value(i)
			}
		}
		arr.Release()
		return series.New(col.Name(), values, mem)

	case arrow.BOOL:
		s := col.(*series.Series[bool])
		values := make([]bool, n)
		for i := 0; i < n; i++ {
			if !s.IsNull(i) {
				values[i] = s.Value(i)
			}
		}
		return series.New(col.Name(), values, mem)

	case arrow.TIMESTAMP:
		s := col.(*series.Series[time.Time])
		values := make([]time.Time, n)
		for i := 0; i < n; i++ {
			if s.IsNull(i) {
				values[i] = config.SentinelDate
			} else {
				values[i] = s.Value(i)
			}
		}
		return series.New(col.Name(), values, mem)

	default:
		values := make([]string, n)
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				values[i] = config.SentinelString
			} else {
				values[i] = col.GetAsString(i)
			}
		}
		return series.New(col.Name(), values, mem)
	}
}

// subAsString renders a configured substitute as a string.
func subAsString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return config.SentinelString
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return config.SentinelString
	}
}

func subAsInt64(v interface{}) int64 {
	switch val := v.(type) {
	case float64:
		return int64(val)
	case int64:
		return val
	case int:
		return int64(val)
	case string:
		if parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}

func subAsFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return 0
}

func subAsBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		if mapped, ok := boolTokens[strings.TrimSpace(val)]; ok {
			return mapped
		}
	}
	return false
}

func subAsTime(v interface{}) time.Time {
	if s, ok := v.(string); ok {
		if t, parsed := SafeParseDate(s); parsed {
			return t
		}
	}
	return config.SentinelDate
}
