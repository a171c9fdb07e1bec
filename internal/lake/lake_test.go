package lake

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsianalytics/lakeetl/internal/dataframe"
	lakeio "github.com/vsianalytics/lakeetl/internal/io"
	"github.com/vsianalytics/lakeetl/internal/series"
	"github.com/vsianalytics/lakeetl/internal/testutil"
)

func TestLayoutPaths(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"supporting table", TablePath(StateCleaned, "item"), "cleaned/netsuite/item_cleaned.parquet"},
		{"repaired stays in raw", TablePath(StateRepaired, "customer"), "raw/netsuite/customer_repaired.parquet"},
		{"transaction header", TransactionPath(StateRaw, TypeSalesOrder), "raw/netsuite/transaction/SalesOrd_raw.parquet"},
		{"repaired header", TransactionPath(StateRepaired, TypeEstimate), "raw/netsuite/transaction/Estimate_repaired.parquet"},
		{"line items", LineItemPath(StateEnhanced, TypeCustInvoice), "enhanced/netsuite/transaction/CustInvcItemLineItems_enhanced.parquet"},
		{"landing dir", LandingDir("customer"), "landing/netsuite/customer"},
		{"landing line items", LandingDir("PurchOrdItemLineItems"), "landing/netsuite/PurchOrdItemLineItems"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestValidTransactionType(t *testing.T) {
	for _, transType := range TransactionTypes {
		assert.True(t, ValidTransactionType(transType))
	}
	assert.False(t, ValidTransactionType("Journal"))
	assert.False(t, ValidTransactionType("salesord"))
}

func lineItemRows(n int) []testutil.LineItemFixture {
	rows := make([]testutil.LineItemFixture, n)
	for i := range rows {
		rows[i] = testutil.LineItemFixture{
			TranID:    fmt.Sprintf("SO-%d", i+1),
			SKU:       fmt.Sprintf("10%d", i+1),
			Quantity:  float64(i + 1),
			UnitPrice: 10,
			QuoteRate: 6,
		}
	}
	return rows
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	df := testutil.LineItems(testutil.Alloc(), lineItemRows(3))

	path := TablePath(StateRaw, "item")
	require.NoError(t, store.WriteTable(path, df, lakeio.DefaultParquetOptions()))
	assert.True(t, store.Exists(path))
	assert.False(t, store.Exists(TablePath(StateCleaned, "item")))

	got, err := store.ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
	testutil.AssertHasColumns(t, got, []string{"tranid", "sku", "quantity", "unit_price", "quote_po_rate"})
}

func TestLocalStoreMissingRoot(t *testing.T) {
	_, err := NewLocalStore(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLocalStoreListObjects(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "landing", "netsuite", "customer")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "subdir"), 0o755))
	for _, name := range []string{"b.json", "a.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}

	store, err := NewLocalStore(root)
	require.NoError(t, err)

	names, err := store.ListObjects("landing/netsuite/customer", ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, names, "sorted, directories and other extensions skipped")
}

func writeLanding(t *testing.T, root, table, name, body string) {
	t.Helper()
	dir := filepath.Join(root, "landing", "netsuite", table)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestBatchReaderReadDir(t *testing.T) {
	root := t.TempDir()
	writeLanding(t, root, "customer", "0001.json",
		`[{"id": "c1", "company_name": "Acme Corp", "is_inactive": false}]`)
	writeLanding(t, root, "customer", "0002.json",
		`[{"id": "c2", "company_name": "Valcor", "end_market": "Refining"}]`)
	writeLanding(t, root, "customer", "0003.json", `{not json`)

	store, err := NewLocalStore(root)
	require.NoError(t, err)

	reader := NewBatchReader(store, 2, 2, nil)
	defer reader.Close()
	reader.SetProgress(false)

	df, err := reader.ReadDir(LandingDir("customer"))
	require.NoError(t, err)

	// The corrupt object is skipped; the two valid ones are stitched
	// under the union schema.
	assert.Equal(t, 2, df.Len())
	testutil.AssertHasColumns(t, df, []string{"company_name", "end_market", "id", "is_inactive"})

	market, _ := df.Column("end_market")
	assert.True(t, market.IsNull(0))
	assert.Equal(t, "Refining", market.GetAsString(1))

	inactive, _ := df.Column("is_inactive")
	assert.Equal(t, "false", inactive.GetAsString(0), "type unions fall back to string")
	assert.True(t, inactive.IsNull(1))
}

func TestBatchReaderEmptyDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "landing", "netsuite", "vendor"), 0o755))

	store, err := NewLocalStore(root)
	require.NoError(t, err)

	reader := NewBatchReader(store, 10, 1, nil)
	defer reader.Close()
	reader.SetProgress(false)

	_, err = reader.ReadDir(LandingDir("vendor"))
	assert.Error(t, err)
}

func TestGetTransactionsAndLineItems(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	headers := testutil.LineItems(testutil.Alloc(), lineItemRows(2))
	lines := testutil.LineItems(testutil.Alloc(), lineItemRows(5))
	opts := lakeio.DefaultParquetOptions()

	require.NoError(t, store.WriteTable(TransactionPath(StateCleaned, TypeSalesOrder), headers, opts))
	require.NoError(t, store.WriteTable(LineItemPath(StateCleaned, TypeSalesOrder), lines, opts))
	require.NoError(t, store.WriteTable(LineItemPath(StateEnhanced, TypeSalesOrder), lines, opts))

	gotHeaders, gotLines, err := GetTransactionsAndLineItems(store, TypeSalesOrder, StateCleaned)
	require.NoError(t, err)
	assert.Equal(t, 2, gotHeaders.Len())
	assert.Equal(t, 5, gotLines.Len())

	// No enhanced header table exists, so the enhanced read falls back
	// to the cleaned headers.
	gotHeaders, gotLines, err = GetTransactionsAndLineItems(store, TypeSalesOrder, StateEnhanced)
	require.NoError(t, err)
	assert.Equal(t, 2, gotHeaders.Len())
	assert.Equal(t, 5, gotLines.Len())

	_, _, err = GetTransactionsAndLineItems(store, "Journal", StateCleaned)
	assert.Error(t, err)

	_, _, err = GetTransactionsAndLineItems(store, TypeEstimate, StateCleaned)
	assert.Error(t, err)
}

func TestHarmonizeSchemas(t *testing.T) {
	mem := memory.NewGoAllocator()

	a := dataframe.New(
		series.New("id", []string{"1"}, mem),
		series.New("amount", []float64{10}, mem),
	)
	b := dataframe.New(
		series.New("id", []string{"2"}, mem),
		series.New("amount", []string{"n/a"}, mem),
		series.New("extra", []bool{true}, mem),
	)

	frames, err := harmonizeSchemas([]*dataframe.DataFrame{a, b})
	require.NoError(t, err)
	require.Len(t, frames, 2)

	for _, df := range frames {
		assert.Equal(t, []string{"amount", "extra", "id"}, df.Columns())
	}

	amount, _ := frames[0].Column("amount")
	assert.Equal(t, "10", amount.GetAsString(0), "conflicting types unify as strings")

	extra, _ := frames[0].Column("extra")
	assert.True(t, extra.IsNull(0), "missing columns become null strings")

	combined, err := frames[0].Concat(frames[1:]...)
	require.NoError(t, err)
	assert.Equal(t, 2, combined.Len())
}
