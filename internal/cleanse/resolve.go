package cleanse

import (
	"regexp"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/vsianalytics/lakeetl/internal/config"
	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/errors"
	"github.com/vsianalytics/lakeetl/internal/series"
)

// SalesRepMultiple marks customers whose two sales rep sources
// disagree.
const SalesRepMultiple = "Multiple"

var (
	mfrPunctuation = regexp.MustCompile(`[,./-]`)
	mfrWhitespace  = regexp.MustCompile(`\s+`)
)

// ResolveManufacturers collapses the three manufacturer source fields
// into one canonical manufacturer column. Precedence runs manufacturer,
// then custom_manufacturer, then vsi_mfr; the survivor is normalized
// and corrected against the misspelling map.
func ResolveManufacturers(df *dataframe.DataFrame, nameMap map[string][]string) (*dataframe.DataFrame, error) {
	cols := make(map[string]dataframe.ISeries, 3)
	for _, name := range []string{"manufacturer", "custom_manufacturer", "vsi_mfr"} {
		col, ok := df.Column(name)
		if !ok {
			return nil, errors.NewColumnNotFoundError("resolve manufacturers", name)
		}
		cols[name] = col
	}

	corrections := invertNameMap(nameMap)

	n := df.Len()
	values := make([]string, n)
	for i := 0; i < n; i++ {
		value := sentinelValue(cols["manufacturer"], i)
		if value == config.SentinelString {
			value = sentinelValue(cols["custom_manufacturer"], i)
		}
		if value == config.SentinelString {
			value = sentinelValue(cols["vsi_mfr"], i)
		}
		values[i] = NormalizeManufacturerName(value, corrections)
	}

	mem := memory.NewGoAllocator()
	return df.WithColumn(series.New("manufacturer", values, mem)), nil
}

// NormalizeManufacturerName strips punctuation, collapses whitespace,
// title-cases, and applies a misspelling-to-canonical correction map.
func NormalizeManufacturerName(value string, corrections map[string]string) string {
	value = mfrPunctuation.ReplaceAllString(value, " ")
	value = mfrWhitespace.ReplaceAllString(strings.TrimSpace(value), " ")
	value = titleCase(value)
	if value == "" {
		return config.SentinelString
	}
	if canonical, ok := corrections[value]; ok {
		return canonical
	}
	return value
}

// invertNameMap turns {canonical: [misspellings]} into a lookup from
// each misspelling to its canonical name.
func invertNameMap(nameMap map[string][]string) map[string]string {
	corrections := make(map[string]string)
	for canonical, misspellings := range nameMap {
		for _, bad := range misspellings {
			corrections[bad] = canonical
		}
	}
	return corrections
}

// sentinelValue reads a cell, normalizing nulls, the literal "null"
// token, and "Unknown" to the sentinel.
func sentinelValue(col dataframe.ISeries, i int) string {
	if col.IsNull(i) {
		return config.SentinelString
	}
	value := strings.TrimSpace(col.GetAsString(i))
	if value == "" || strings.EqualFold(value, "null") || value == "Unknown" {
		return config.SentinelString
	}
	return value
}

// titleCase capitalizes the first letter of each space-separated word
// and lowercases the rest, removing all-caps renderings.
func titleCase(value string) string {
	words := strings.Split(value, " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		runes := []rune(strings.ToLower(word))
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// ResolveSalesReps derives a single sales_rep column from the primary
// and AI-assigned sources. Exactly one non-sentinel value wins; equal
// values win; disagreement is marked "Multiple".
func ResolveSalesReps(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	primaryCol, ok := df.Column("primary_sales_rep")
	if !ok {
		return nil, errors.NewColumnNotFoundError("resolve sales reps", "primary_sales_rep")
	}
	aiCol, ok := df.Column("ai_sales_rep")
	if !ok {
		return nil, errors.NewColumnNotFoundError("resolve sales reps", "ai_sales_rep")
	}

	n := df.Len()
	values := make([]string, n)
	for i := 0; i < n; i++ {
		primary := sentinelValue(primaryCol, i)
		ai := sentinelValue(aiCol, i)
		values[i] = resolveSalesRep(primary, ai)
	}

	mem := memory.NewGoAllocator()
	return df.WithColumn(series.New("sales_rep", values, mem)), nil
}

func resolveSalesRep(primary, ai string) string {
	switch {
	case primary == config.SentinelString && ai == config.SentinelString:
		return config.SentinelString
	case ai == config.SentinelString:
		return primary
	case primary == config.SentinelString:
		return ai
	case primary == ai:
		return primary
	default:
		return SalesRepMultiple
	}
}

// SetSubsidiaryByLocation overwrites subsidiary_name with the mapped
// subsidiary of each row's location. Rows with no usable location keep
// their subsidiary; mapped-but-unknown locations become nulls for the
// caller's null fill to resolve.
func SetSubsidiaryByLocation(df *dataframe.DataFrame, locationMap map[string]string) (*dataframe.DataFrame, error) {
	locationCol, ok := df.Column("location")
	if !ok {
		return nil, errors.NewColumnNotFoundError("set subsidiary", "location")
	}
	subsidiaryCol, ok := df.Column("subsidiary_name")
	if !ok {
		return nil, errors.NewColumnNotFoundError("set subsidiary", "subsidiary_name")
	}

	n := df.Len()
	values := make([]string, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		location := sentinelValue(locationCol, i)
		if location == config.SentinelString {
			if !subsidiaryCol.IsNull(i) {
				values[i] = subsidiaryCol.GetAsString(i)
				valid[i] = true
			}
			continue
		}
		if mapped, found := locationMap[location]; found {
			values[i] = mapped
			valid[i] = true
		}
	}

	mem := memory.NewGoAllocator()
	return df.WithColumn(series.NewWithNulls("subsidiary_name", values, valid, mem)), nil
}
