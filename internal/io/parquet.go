package io

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/series"
)

// Read reads Parquet data and returns a DataFrame.
func (r *ParquetReader) Read() (*dataframe.DataFrame, error) {
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}
	readerAt := bytes.NewReader(data)

	pqReader, err := file.NewParquetReader(readerAt)
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, r.mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer table.Release()

	return r.arrowTableToDataFrame(table)
}

// Write writes the DataFrame to Parquet format.
func (w *ParquetWriter) Write(df *dataframe.DataFrame) error {
	table, err := dataFrameToArrowTable(df)
	if err != nil {
		return fmt.Errorf("converting DataFrame to Arrow table: %w", err)
	}
	defer table.Release()

	var compression compress.Compression
	switch w.options.Compression {
	case "gzip":
		compression = compress.Codecs.Gzip
	case "lz4":
		compression = compress.Codecs.Lz4Raw
	case "zstd":
		compression = compress.Codecs.Zstd
	case "uncompressed":
		compression = compress.Codecs.Uncompressed
	default:
		compression = compress.Codecs.Snappy
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compression),
		parquet.WithBatchSize(int64(w.options.BatchSize)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(memory.NewGoAllocator()))

	writer, err := pqarrow.NewFileWriter(table.Schema(), w.writer, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}

	if err := writer.WriteTable(table, int64(df.Len())); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing table: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return nil
}

// arrowTableToDataFrame converts an Arrow table to a DataFrame.
func (r *ParquetReader) arrowTableToDataFrame(table arrow.Table) (*dataframe.DataFrame, error) {
	var seriesList []dataframe.ISeries
	schema := table.Schema()

	for i := range int(table.NumCols()) {
		column := table.Column(i)
		field := schema.Field(i)

		s, err := r.arrowColumnToSeries(field.Name, column)
		if err != nil {
			return nil, fmt.Errorf("converting column %s: %w", field.Name, err)
		}
		seriesList = append(seriesList, s)
	}

	return dataframe.New(seriesList...), nil
}

// arrowColumnToSeries rebuilds a single contiguous series from a possibly
// chunked Arrow column.
func (r *ParquetReader) arrowColumnToSeries(name string, column *arrow.Column) (dataframe.ISeries, error) {
	chunked := column.Data()

	switch column.DataType().ID() {
	case arrow.INT64:
		builder := array.NewInt64Builder(r.mem)
		defer builder.Release()
		for _, chunk := range chunked.Chunks() {
			arr := chunk.(*array.Int64)
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					builder.AppendNull()
				} else {
					builder.Append(arr.Value(i))
				}
			}
		}
		return series.FromArrow[int64](name, builder.NewArray()), nil

	case arrow.INT32:
		// Widen to int64; the pipeline's integer type.
		builder := array.NewInt64Builder(r.mem)
		defer builder.Release()
		for _, chunk := range chunked.Chunks() {
			arr := chunk.(*array.Int32)
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					builder.AppendNull()
				} else {
					builder.Append(int64(arr.Value(i)))
				}
			}
		}
		return series.FromArrow[int64](name, builder.NewArray()), nil

	case arrow.FLOAT64:
		builder := array.NewFloat64Builder(r.mem)
		defer builder.Release()
		for _, chunk := range chunked.Chunks() {
			arr := chunk.(*array.Float64)
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					builder.AppendNull()
				} else {
					builder.Append(arr.Value(i))
				}
			}
		}
		return series.FromArrow[float64](name, builder.NewArray()), nil

	case arrow.STRING:
		builder := array.NewStringBuilder(r.mem)
		defer builder.Release()
		for _, chunk := range chunked.Chunks() {
			arr := chunk.(*array.String)
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					builder.AppendNull()
				} else {
					builder.Append(arr.Value(i))
				}
			}
		}
		return series.FromArrow[string](name, builder.NewArray()), nil

	case arrow.BOOL:
		builder := array.NewBooleanBuilder(r.mem)
		defer builder.Release()
		for _, chunk := range chunked.Chunks() {
			arr := chunk.(*array.Boolean)
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					builder.AppendNull()
				} else {
					builder.Append(arr.Value(i))
				}
			}
		}
		return series.FromArrow[bool](name, builder.NewArray()), nil

	case arrow.TIMESTAMP:
		srcType := column.DataType().(*arrow.TimestampType)
		builder := array.NewTimestampBuilder(r.mem, series.TimestampType())
		defer builder.Release()
		for _, chunk := range chunked.Chunks() {
			arr := chunk.(*array.Timestamp)
			for i := 0; i < arr.Len(); i++ {
				if arr.IsNull(i) {
					builder.AppendNull()
				} else {
					builder.Append(arrow.Timestamp(arr.Value(i).ToTime(srcType.Unit).UnixMilli()))
				}
			}
		}
		return series.FromArrow[time.Time](name, builder.NewArray()), nil

	default:
		return nil, fmt.Errorf("unsupported Arrow type: %s", column.DataType())
	}
}

// dataFrameToArrowTable converts a DataFrame to an Arrow table.
func dataFrameToArrowTable(df *dataframe.DataFrame) (arrow.Table, error) {
	fields := make([]arrow.Field, 0, df.Width())
	columns := make([]arrow.Column, 0, df.Width())

	for _, colName := range df.Columns() {
		col, exists := df.Column(colName)
		if !exists {
			continue
		}

		arr := col.Array()
		field := arrow.Field{Name: colName, Type: arr.DataType(), Nullable: true}
		fields = append(fields, field)

		chunked := arrow.NewChunked(arr.DataType(), []arrow.Array{arr})
		column := arrow.NewColumn(field, chunked)
		columns = append(columns, *column)
		arr.Release()
	}

	schema := arrow.NewSchema(fields, nil)
	return array.NewTable(schema, columns, int64(df.Len())), nil
}
