package lake

import (
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/series"
)

// harmonizeSchemas rewrites frames so they share one schema: the union
// of all columns, sorted by name. A column whose type differs between
// frames, or that is missing from some frames, becomes a string column
// with nulls where values are absent. The input frames are consumed.
func harmonizeSchemas(frames []*dataframe.DataFrame) ([]*dataframe.DataFrame, error) {
	columnTypes := make(map[string]arrow.DataType)
	forceString := make(map[string]bool)

	for _, df := range frames {
		for _, name := range df.Columns() {
			col, _ := df.Column(name)
			existing, seen := columnTypes[name]
			if !seen {
				columnTypes[name] = col.DataType()
				continue
			}
			if !arrow.TypeEqual(existing, col.DataType()) {
				forceString[name] = true
			}
		}
	}

	names := make([]string, 0, len(columnTypes))
	for name := range columnTypes {
		names = append(names, name)
		// A column absent from any frame has to admit nulls of a
		// type every frame can produce.
		for _, df := range frames {
			if !df.HasColumn(name) {
				forceString[name] = true
			}
		}
	}
	sort.Strings(names)

	mem := memory.NewGoAllocator()
	out := make([]*dataframe.DataFrame, 0, len(frames))
	for _, df := range frames {
		cols := make([]dataframe.ISeries, 0, len(names))
		for _, name := range names {
			col, ok := df.Column(name)
			switch {
			case !ok:
				cols = append(cols, nullStringColumn(name, df.Len(), mem))
			case forceString[name] && col.DataType().ID() != arrow.STRING:
				cols = append(cols, stringifyColumn(name, col, mem))
			default:
				cols = append(cols, retainColumn(name, col))
			}
		}
		out = append(out, dataframe.New(cols...))
		df.Release()
	}

	return out, nil
}

// retainColumn clones a column reference so it outlives its frame.
func retainColumn(name string, col dataframe.ISeries) dataframe.ISeries {
	arr := col.Array()
	switch arr.DataType().ID() {
	case arrow.INT64:
		return series.FromArrow[int64](name, arr)
	case arrow.FLOAT64:
		return series.FromArrow[float64](name, arr)
	case arrow.BOOL:
		return series.FromArrow[bool](name, arr)
	case arrow.TIMESTAMP:
		return series.FromArrow[time.Time](name, arr)
	default:
		return series.FromArrow[string](name, arr)
	}
}

func nullStringColumn(name string, length int, mem memory.Allocator) dataframe.ISeries {
	builder := array.NewStringBuilder(mem)
	defer builder.Release()
	for i := 0; i < length; i++ {
		builder.AppendNull()
	}
	return series.FromArrow[string](name, builder.NewArray())
}

func stringifyColumn(name string, col dataframe.ISeries, mem memory.Allocator) dataframe.ISeries {
	builder := array.NewStringBuilder(mem)
	defer builder.Release()
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			builder.AppendNull()
		} else {
			builder.Append(col.GetAsString(i))
		}
	}
	return series.FromArrow[string](name, builder.NewArray())
}
