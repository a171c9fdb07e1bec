package io

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/series"
)

// Record is one landed JSON object's worth of fields.
type Record = map[string]interface{}

// Read reads a landed JSON object and returns a DataFrame. Header objects
// hold a single record; line-item objects hold an array of records.
func (r *JSONReader) Read() (*dataframe.DataFrame, error) {
	records, err := DecodeRecords(r.reader)
	if err != nil {
		return nil, err
	}
	return RecordsToDataFrame(records, r.mem)
}

// DecodeRecords parses a landed JSON object into records, accepting either a
// single top-level object or an array of objects.
func DecodeRecords(reader io.Reader) ([]Record, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading JSON data: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshaling JSON object: %w", err)
	}
	return []Record{record}, nil
}

// RecordsToDataFrame converts JSON records to a DataFrame. Column types are
// inferred from the values present: consistent numbers become float64 (the
// export renders integers and decimals interchangeably), consistent bools
// become bool, everything else becomes a string column. Missing keys and
// JSON nulls become null entries.
func RecordsToDataFrame(records []Record, mem memory.Allocator) (*dataframe.DataFrame, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if len(records) == 0 {
		return dataframe.New(), nil
	}

	columnSet := make(map[string]bool)
	for _, record := range records {
		for key := range record {
			columnSet[key] = true
		}
	}
	columns := make([]string, 0, len(columnSet))
	for col := range columnSet {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	seriesList := make([]dataframe.ISeries, 0, len(columns))
	for _, col := range columns {
		s, err := buildColumn(col, records, mem)
		if err != nil {
			return nil, fmt.Errorf("building column %s: %w", col, err)
		}
		seriesList = append(seriesList, s)
	}

	return dataframe.New(seriesList...), nil
}

// buildColumn infers a column type from the record values and builds a series.
func buildColumn(name string, records []Record, mem memory.Allocator) (dataframe.ISeries, error) {
	allNumbers := true
	allBools := true
	present := 0

	for _, record := range records {
		v, ok := record[name]
		if !ok || v == nil {
			continue
		}
		present++
		switch v.(type) {
		case float64:
			allBools = false
		case bool:
			allNumbers = false
		default:
			allNumbers = false
			allBools = false
		}
	}

	switch {
	case present > 0 && allNumbers:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		for _, record := range records {
			v, ok := record[name]
			if !ok || v == nil {
				builder.AppendNull()
				continue
			}
			builder.Append(v.(float64))
		}
		return series.FromArrow[float64](name, builder.NewArray()), nil

	case present > 0 && allBools:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		for _, record := range records {
			v, ok := record[name]
			if !ok || v == nil {
				builder.AppendNull()
				continue
			}
			builder.Append(v.(bool))
		}
		return series.FromArrow[bool](name, builder.NewArray()), nil

	default:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		for _, record := range records {
			v, ok := record[name]
			if !ok || v == nil {
				builder.AppendNull()
				continue
			}
			builder.Append(stringifyValue(v))
		}
		return series.FromArrow[string](name, builder.NewArray()), nil
	}
}

// stringifyValue renders any JSON scalar (or nested structure) as text the
// coercion stage can work with.
func stringifyValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
