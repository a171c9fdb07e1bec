package lake

import (
	"fmt"
	"slices"

	"github.com/vsianalytics/lakeetl/internal/dataframe"
)

// Data states, in pipeline order. Each state names a tier directory
// in the lake holding the tables as they leave that stage, except
// repaired tables, which stay in the raw tier under a repaired suffix.
const (
	StateRaw      = "raw"
	StateRepaired = "repaired"
	StateCleaned  = "cleaned"
	StateEnhanced = "enhanced"
	StateCurated  = "curated"
)

// stateDir maps a data state to its tier directory.
func stateDir(state string) string {
	if state == StateRepaired {
		return StateRaw
	}
	return state
}

// Transaction types exported from the source system.
const (
	TypeEstimate      = "Estimate"
	TypeSalesOrder    = "SalesOrd"
	TypeCustInvoice   = "CustInvc"
	TypePurchaseOrder = "PurchOrd"
)

// TransactionTypes lists the supported transaction types.
var TransactionTypes = []string{TypeEstimate, TypeSalesOrder, TypeCustInvoice, TypePurchaseOrder}

// ValidTransactionType reports whether transType is supported.
func ValidTransactionType(transType string) bool {
	return slices.Contains(TransactionTypes, transType)
}

// TablePath returns the lake path of a supporting table in a tier,
// e.g. "cleaned/netsuite/item_cleaned.parquet".
func TablePath(state, table string) string {
	return fmt.Sprintf("%s/netsuite/%s_%s.parquet", stateDir(state), table, state)
}

// TransactionPath returns the lake path of a transaction header table.
func TransactionPath(state, transType string) string {
	return fmt.Sprintf("%s/netsuite/transaction/%s_%s.parquet", stateDir(state), transType, state)
}

// LineItemPath returns the lake path of a transaction line item table.
func LineItemPath(state, transType string) string {
	return fmt.Sprintf("%s/netsuite/transaction/%sItemLineItems_%s.parquet", stateDir(state), transType, state)
}

// LandingDir returns the landing zone directory that holds the JSON
// objects of a source table.
func LandingDir(table string) string {
	return fmt.Sprintf("landing/netsuite/%s", table)
}

// GetTransactionsAndLineItems reads a transaction header table and its
// line item table from a tier. Headers are usually not enhanced, so a
// request for the enhanced state falls back to the cleaned headers
// when no enhanced table exists.
func GetTransactionsAndLineItems(store Store, transType, state string) (*dataframe.DataFrame, *dataframe.DataFrame, error) {
	if !ValidTransactionType(transType) {
		return nil, nil, fmt.Errorf("invalid transaction type %q", transType)
	}

	headerState := state
	if state == StateEnhanced && !store.Exists(TransactionPath(state, transType)) {
		headerState = StateCleaned
	}

	headers, err := store.ReadTable(TransactionPath(headerState, transType))
	if err != nil {
		return nil, nil, err
	}

	lineItems, err := store.ReadTable(LineItemPath(state, transType))
	if err != nil {
		headers.Release()
		return nil, nil, err
	}

	return headers, lineItems, nil
}
