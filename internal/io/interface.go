// Package io provides readers and writers that move tables between the data
// lake's serialized formats and in-memory DataFrames.
//
// JSON is the landing format of the NetSuite export: objects are either a
// single record (transaction headers, entity masters) or an array of records
// (line items). Parquet is the format of every refined tier. All conversion
// goes through Apache Arrow; datetime columns travel as millisecond
// timestamps.
package io

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/vsianalytics/lakeetl/internal/dataframe"
)

// DefaultBatchSize is the default batch size for I/O operations
const DefaultBatchSize = 1000

// DataReader defines the interface for reading data from various sources
type DataReader interface {
	// Read reads data from the source and returns a DataFrame
	Read() (*dataframe.DataFrame, error)
}

// DataWriter defines the interface for writing data to various destinations
type DataWriter interface {
	// Write writes the DataFrame to the destination
	Write(df *dataframe.DataFrame) error
}

// ParquetOptions contains configuration options for Parquet operations
type ParquetOptions struct {
	// Compression type for Parquet files
	Compression string
	// BatchSize for reading/writing operations
	BatchSize int
}

// DefaultParquetOptions returns default Parquet options
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{
		Compression: "snappy",
		BatchSize:   DefaultBatchSize,
	}
}

// ParquetReader reads Parquet data and converts it to DataFrames
type ParquetReader struct {
	reader  io.Reader
	options ParquetOptions
	mem     memory.Allocator
}

// NewParquetReader creates a new Parquet reader with the specified options
func NewParquetReader(reader io.Reader, options ParquetOptions, mem memory.Allocator) *ParquetReader {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &ParquetReader{
		reader:  reader,
		options: options,
		mem:     mem,
	}
}

// ParquetWriter writes DataFrames to Parquet format
type ParquetWriter struct {
	writer  io.Writer
	options ParquetOptions
}

// NewParquetWriter creates a new Parquet writer with the specified options
func NewParquetWriter(writer io.Writer, options ParquetOptions) *ParquetWriter {
	return &ParquetWriter{
		writer:  writer,
		options: options,
	}
}

// JSONReader reads a landed JSON object and converts it to a DataFrame
type JSONReader struct {
	reader io.Reader
	mem    memory.Allocator
}

// NewJSONReader creates a new JSON reader
func NewJSONReader(reader io.Reader, mem memory.Allocator) *JSONReader {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &JSONReader{reader: reader, mem: mem}
}
