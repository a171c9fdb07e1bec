package repair

import (
	"math"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsianalytics/lakeetl/internal/config"
	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/errors"
	"github.com/vsianalytics/lakeetl/internal/series"
)

func testFieldsMap() config.TableFieldsMap {
	return config.TableFieldsMap{
		"cust_facing_transaction": {
			"string": {
				Fields:         []string{"tranid", "location"},
				NullSubstitute: "Not Specified",
			},
			"float": {
				Fields:         []string{"net_amount"},
				NullSubstitute: 0.0,
			},
			"bool": {
				Fields:         []string{"commission_only"},
				NullSubstitute: false,
			},
			"datetime": {
				Fields:         []string{"created_date"},
				NullSubstitute: "1800-01-01",
			},
		},
	}
}

func rawTransactionFrame(mem memory.Allocator) *dataframe.DataFrame {
	return dataframe.New(
		series.New("links", []string{"[]", "[]", "[]"}, mem),
		series.New("tranid", []string{"SO-1", "null", " SO-3 "}, mem),
		series.New("location", []string{"Houston", "NULL", "Tulsa"}, mem),
		series.New("net_amount", []string{"100.5", "null", "bogus"}, mem),
		series.New("commission_only", []string{"T", "F", "maybe"}, mem),
		series.New("created_date", []string{"2023-06-01", "1/1/3032", "2024-02-29 10:30:00"}, mem),
	)
}

func TestRepairTable(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := rawTransactionFrame(mem)

	repaired, err := RepairTable(df, "cust_facing_transaction", testFieldsMap())
	require.NoError(t, err)

	assert.False(t, repaired.HasColumn("links"))

	ids, _ := repaired.Column("tranid")
	assert.Equal(t, "SO-1", ids.GetAsString(0))
	assert.Equal(t, "Not Specified", ids.GetAsString(1), `literal "null" token substituted`)
	assert.Equal(t, "SO-3", ids.GetAsString(2), "cells are trimmed")

	locations, _ := repaired.Column("location")
	assert.Equal(t, "Not Specified", locations.GetAsString(1), "null token matching is case insensitive")

	amounts, _ := repaired.Column("net_amount")
	s := amounts.(*series.Series[float64])
	assert.Equal(t, 100.5, s.Value(0))
	assert.Equal(t, 0.0, s.Value(1))
	assert.Equal(t, 0.0, s.Value(2), "unparseable floats substituted")

	flags, _ := repaired.Column("commission_only")
	b := flags.(*series.Series[bool])
	assert.True(t, b.Value(0))
	assert.False(t, b.Value(1))
	assert.False(t, b.Value(2), "unknown bool tokens substituted")

	dates, _ := repaired.Column("created_date")
	d := dates.(*series.Series[time.Time])
	assert.Equal(t, time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), d.Value(0))
	assert.Equal(t, config.SentinelDate, d.Value(1), "out-of-bounds year substituted")
	assert.Equal(t, time.Date(2024, time.February, 29, 10, 30, 0, 0, time.UTC), d.Value(2))

	// no nulls leave the repair stage
	for _, name := range repaired.Columns() {
		col, _ := repaired.Column(name)
		assert.Equal(t, 0, col.NullCount(), "column %s", name)
	}
}

func TestRepairTableTrimsUnmappedStringColumns(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := rawTransactionFrame(mem).
		WithColumn(series.New("memo", []string{" padded ", "ok", "\ttabbed\t"}, mem))

	repaired, err := RepairTable(df, "cust_facing_transaction", testFieldsMap())
	require.NoError(t, err)

	memo, _ := repaired.Column("memo")
	assert.Equal(t, "padded", memo.GetAsString(0))
	assert.Equal(t, "ok", memo.GetAsString(1))
	assert.Equal(t, "tabbed", memo.GetAsString(2))
}

func TestTrimStringColumns(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := dataframe.New(
		series.NewWithNulls("name", []string{" a ", "", "b"}, []bool{true, false, true}, mem),
		series.New("amount", []float64{1, 2, 3}, mem),
	)

	trimmed := TrimStringColumns(df)

	names, _ := trimmed.Column("name")
	assert.Equal(t, "a", names.GetAsString(0))
	assert.True(t, names.IsNull(1), "nulls preserved")
	assert.Equal(t, "b", names.GetAsString(2))

	amounts, _ := trimmed.Column("amount")
	assert.Equal(t, 0, amounts.NullCount())
}

func TestRepairTableUnknownTable(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := dataframe.New(series.New("x", []string{"a"}, mem))

	_, err := RepairTable(df, "nonexistent", testFieldsMap())
	assert.Error(t, err)
}

func TestCoerceTypesMissingColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := dataframe.New(series.New("tranid", []string{"SO-1"}, mem))

	_, err := CoerceTypes(df, "cust_facing_transaction", testFieldsMap()["cust_facing_transaction"])
	require.Error(t, err)

	var schemaErr *errors.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestCoerceTypesIntColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := dataframe.New(series.New("quantity", []string{"3", "2.0", "x"}, mem))

	fields := config.TableFields{
		"int": {Fields: []string{"quantity"}, NullSubstitute: -1.0},
	}
	out, err := CoerceTypes(df, "t", fields)
	require.NoError(t, err)

	col, _ := out.Column("quantity")
	s := col.(*series.Series[int64])
	assert.Equal(t, int64(3), s.Value(0))
	assert.Equal(t, int64(2), s.Value(1), "decimal renderings of integers accepted")
	assert.Equal(t, int64(-1), s.Value(2))
}

func TestValidateColumns(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := dataframe.New(
		series.New("clean", []string{"a", "b"}, mem),
		series.NewWithNulls("holey", []string{"a", ""}, []bool{true, false}, mem),
		series.New("nan", []float64{1, math.NaN()}, mem),
	)

	bad := ValidateColumns(df)
	assert.Equal(t, []string{"holey", "nan"}, bad)
}

func TestFilterAnomalousTranIDs(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := dataframe.New(
		series.NewWithNulls("tranid",
			[]string{"12345", "AB123", "SO-678", "ESTIMATE", ""},
			[]bool{true, true, true, true, false}, mem),
	)

	filtered, err := FilterAnomalousTranIDs(df)
	require.NoError(t, err)
	require.Equal(t, 4, filtered.Len())

	col, _ := filtered.Column("tranid")
	assert.Equal(t, "12345", col.GetAsString(0))
	assert.Equal(t, "SO-678", col.GetAsString(1), "hyphenated ids are not anomalous")
	assert.Equal(t, "ESTIMATE", col.GetAsString(2))
	assert.True(t, col.IsNull(3), "null tranids are kept")
}

func TestFilterAnomalousTranIDsMissingColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := dataframe.New(series.New("other", []string{"x"}, mem))

	_, err := FilterAnomalousTranIDs(df)
	assert.Error(t, err)
}

func TestFillNullsWithDefaults(t *testing.T) {
	mem := memory.NewGoAllocator()
	df := dataframe.New(
		series.NewWithNulls("name", []string{"a", ""}, []bool{true, false}, mem),
		series.NewWithNulls("amount", []float64{1.5, 0}, []bool{true, false}, mem),
		series.New("pct", []float64{2, math.NaN()}, mem),
		series.NewWithNulls("created_date", make([]time.Time, 2), []bool{false, false}, mem),
	)

	filled := FillNullsWithDefaults(df)

	names, _ := filled.Column("name")
	assert.Equal(t, "Not Specified", names.GetAsString(1))

	amounts, _ := filled.Column("amount")
	assert.Equal(t, 0.0, amounts.(*series.Series[float64]).Value(1))

	pct, _ := filled.Column("pct")
	assert.Equal(t, 0.0, pct.(*series.Series[float64]).Value(1), "NaN treated as null")

	dates, _ := filled.Column("created_date")
	assert.Equal(t, config.SentinelDate, dates.(*series.Series[time.Time]).Value(0))
}

func TestSafeParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2023-06-01", time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), true},
		{"2023-06-01 14:30:00", time.Date(2023, time.June, 1, 14, 30, 0, 0, time.UTC), true},
		{"6/1/2023", time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), true},
		{"1/1/3032", time.Time{}, false},
		{"1/1/1500", time.Time{}, false},
		{"not a date", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := SafeParseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
