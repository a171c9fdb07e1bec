package io

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/series"
)

func TestParquetRoundTrip(t *testing.T) {
	df := dataframe.New(
		series.New("tranid", []string{"SO-1", "SO-2"}, nil),
		series.New("net_amount", []float64{100.25, 0}, nil),
		series.New("commission_only", []bool{false, true}, nil),
		series.New("created_date", []time.Time{
			time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		}, nil),
	)

	var buf bytes.Buffer
	writer := NewParquetWriter(&buf, DefaultParquetOptions())
	require.NoError(t, writer.Write(df))

	reader := NewParquetReader(bytes.NewReader(buf.Bytes()), DefaultParquetOptions(), nil)
	got, err := reader.Read()
	require.NoError(t, err)

	assert.Equal(t, df.Columns(), got.Columns())
	assert.Equal(t, 2, got.Len())

	ids, _ := got.Column("tranid")
	assert.Equal(t, "SO-2", ids.GetAsString(1))

	dates, _ := got.Column("created_date")
	ds := dates.(*series.Series[time.Time])
	assert.Equal(t, time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), ds.Value(0))
}

func TestParquetRoundTripPreservesNulls(t *testing.T) {
	df := dataframe.New(
		series.NewWithNulls("location", []string{"Houston", ""}, []bool{true, false}, nil),
	)

	var buf bytes.Buffer
	require.NoError(t, NewParquetWriter(&buf, DefaultParquetOptions()).Write(df))

	got, err := NewParquetReader(bytes.NewReader(buf.Bytes()), DefaultParquetOptions(), nil).Read()
	require.NoError(t, err)

	col, _ := got.Column("location")
	assert.False(t, col.IsNull(0))
	assert.True(t, col.IsNull(1))
}

func TestParquetWriterCompressionCodecs(t *testing.T) {
	df := dataframe.New(series.New("v", []float64{1, 2, 3}, nil))

	for _, codec := range []string{"snappy", "gzip", "zstd", "uncompressed"} {
		t.Run(codec, func(t *testing.T) {
			var buf bytes.Buffer
			opts := ParquetOptions{Compression: codec, BatchSize: DefaultBatchSize}
			require.NoError(t, NewParquetWriter(&buf, opts).Write(df))

			got, err := NewParquetReader(bytes.NewReader(buf.Bytes()), opts, nil).Read()
			require.NoError(t, err)
			assert.Equal(t, 3, got.Len())
		})
	}
}

func TestParquetReaderRejectsGarbage(t *testing.T) {
	reader := NewParquetReader(bytes.NewReader([]byte("not parquet")), DefaultParquetOptions(), nil)
	_, err := reader.Read()
	assert.Error(t, err)
}
