package io

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecordsArray(t *testing.T) {
	data := `[{"tranid": "SO-1", "quantity": 2}, {"tranid": "SO-2", "quantity": 1}]`

	records, err := DecodeRecords(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "SO-1", records[0]["tranid"])
}

func TestDecodeRecordsSingleObject(t *testing.T) {
	data := `{"tranid": "SO-1", "net_amount": 100.5}`

	records, err := DecodeRecords(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 100.5, records[0]["net_amount"])
}

func TestDecodeRecordsInvalid(t *testing.T) {
	_, err := DecodeRecords(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestRecordsToDataFrameTypeInference(t *testing.T) {
	records := []Record{
		{"tranid": "SO-1", "net_amount": 100.0, "commission_only": true},
		{"tranid": "SO-2", "net_amount": 50.5, "commission_only": false},
	}

	df, err := RecordsToDataFrame(records, nil)
	require.NoError(t, err)
	require.Equal(t, 2, df.Len())

	// columns come out sorted by name
	assert.Equal(t, []string{"commission_only", "net_amount", "tranid"}, df.Columns())

	amounts, _ := df.Column("net_amount")
	assert.Equal(t, arrow.FLOAT64, amounts.DataType().ID())

	flags, _ := df.Column("commission_only")
	assert.Equal(t, arrow.BOOL, flags.DataType().ID())

	ids, _ := df.Column("tranid")
	assert.Equal(t, arrow.STRING, ids.DataType().ID())
}

func TestRecordsToDataFrameMixedTypesFallBackToString(t *testing.T) {
	records := []Record{
		{"sku": 123.0},
		{"sku": "A-456"},
	}

	df, err := RecordsToDataFrame(records, nil)
	require.NoError(t, err)

	col, _ := df.Column("sku")
	assert.Equal(t, arrow.STRING, col.DataType().ID())
	assert.Equal(t, "123", col.GetAsString(0))
	assert.Equal(t, "A-456", col.GetAsString(1))
}

func TestRecordsToDataFrameMissingKeysBecomeNulls(t *testing.T) {
	records := []Record{
		{"tranid": "SO-1", "location": "Houston"},
		{"tranid": "SO-2"},
		{"tranid": "SO-3", "location": nil},
	}

	df, err := RecordsToDataFrame(records, nil)
	require.NoError(t, err)

	loc, _ := df.Column("location")
	assert.False(t, loc.IsNull(0))
	assert.True(t, loc.IsNull(1))
	assert.True(t, loc.IsNull(2))
}

func TestRecordsToDataFrameNestedValuesStringify(t *testing.T) {
	records := []Record{
		{"links": []interface{}{map[string]interface{}{"rel": "self"}}},
	}

	df, err := RecordsToDataFrame(records, nil)
	require.NoError(t, err)

	col, _ := df.Column("links")
	assert.Equal(t, `[{"rel":"self"}]`, col.GetAsString(0))
}

func TestRecordsToDataFrameEmpty(t *testing.T) {
	df, err := RecordsToDataFrame(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, df.Len())
	assert.Equal(t, 0, df.Width())
}
