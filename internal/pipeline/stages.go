package pipeline

import (
	"fmt"
	"slices"

	"github.com/vsianalytics/lakeetl/internal/augment"
	"github.com/vsianalytics/lakeetl/internal/cleanse"
	"github.com/vsianalytics/lakeetl/internal/curate"
	"github.com/vsianalytics/lakeetl/internal/dataframe"
	"github.com/vsianalytics/lakeetl/internal/lake"
	"github.com/vsianalytics/lakeetl/internal/repair"
)

// Consolidate reads landed JSON objects and writes one raw Parquet
// table per source table. Transaction types produce a header table and
// a line item table.
func (p *Pipeline) Consolidate(tables []string) error {
	if len(tables) == 0 {
		tables = append(append([]string{}, lake.TransactionTypes...),
			TableCustomer, TableVendor, TableItem, TableNewCategories)
	}

	reader := lake.NewBatchReader(p.store, p.settings.BatchSize, p.settings.Workers, p.logger)
	defer reader.Close()

	return p.runTables("consolidate", tables, func(table string) error {
		if lake.ValidTransactionType(table) {
			headers, err := reader.ReadDir(lake.LandingDir(table))
			if err != nil {
				return err
			}
			if err := p.store.WriteTable(lake.TransactionPath(lake.StateRaw, table), headers, p.parquet); err != nil {
				return err
			}

			lines, err := reader.ReadDir(lake.LandingDir(table + "ItemLineItems"))
			if err != nil {
				return err
			}
			return p.store.WriteTable(lake.LineItemPath(lake.StateRaw, table), lines, p.parquet)
		}

		df, err := reader.ReadDir(lake.LandingDir(table))
		if err != nil {
			return err
		}
		return p.store.WriteTable(lake.TablePath(lake.StateRaw, table), df, p.parquet)
	})
}

// Repair coerces and validates the raw tables, writing them back to
// the raw tier under the repaired suffix.
func (p *Pipeline) Repair(tables []string) error {
	if len(tables) == 0 {
		tables = append(append([]string{}, lake.TransactionTypes...), TableCustomer, TableVendor, TableItem)
	}

	return p.runTables("repair", tables, func(table string) error {
		if lake.ValidTransactionType(table) {
			return p.repairTransactionType(table)
		}
		// The category table is cleaned straight from the landing zone
		// and has no field map.
		if table == TableNewCategories {
			return nil
		}

		df, err := p.store.ReadTable(lake.TablePath(lake.StateRaw, table))
		if err != nil {
			return err
		}
		repaired, err := repair.RepairTable(df, table, p.fieldsMap)
		if err != nil {
			return err
		}
		return p.store.WriteTable(lake.TablePath(lake.StateRepaired, table), repaired, p.parquet)
	})
}

// repairTransactionType repairs a header table and its line items.
// Customer-facing types share one field map and get the tranid anomaly
// filter; purchase orders have their own maps.
func (p *Pipeline) repairTransactionType(transType string) error {
	headers, lines, err := lake.GetTransactionsAndLineItems(p.store, transType, lake.StateRaw)
	if err != nil {
		return err
	}

	headerMap, lineMap := "PurchOrd", "PurchOrd_li"
	if slices.Contains(CustomerFacingTypes, transType) {
		headerMap, lineMap = "cust_facing_transaction", "cust_facing_line_item"

		headers, err = repair.FilterAnomalousTranIDs(headers)
		if err != nil {
			return err
		}
		lines, err = repair.FilterAnomalousTranIDs(lines)
		if err != nil {
			return err
		}
	}

	headers, err = repair.RepairTable(headers, headerMap, p.fieldsMap)
	if err != nil {
		return err
	}
	lines, err = repair.RepairTable(lines, lineMap, p.fieldsMap)
	if err != nil {
		return err
	}

	if err := p.store.WriteTable(lake.TransactionPath(lake.StateRepaired, transType), headers, p.parquet); err != nil {
		return err
	}
	return p.store.WriteTable(lake.LineItemPath(lake.StateRepaired, transType), lines, p.parquet)
}

// Clean filters and normalizes the repaired tables into the cleaned
// tier. The category-levels table goes straight to the enhanced tier
// since it only feeds item enhancement.
func (p *Pipeline) Clean(tables []string) error {
	if len(tables) == 0 {
		tables = append(append([]string{}, TableCustomer, TableVendor, TableItem, TableNewCategories), lake.TransactionTypes...)
	}

	return p.runTables("clean", tables, func(table string) error {
		switch {
		case table == TableCustomer:
			return p.cleanCustomers()
		case table == TableVendor:
			return p.cleanVendors()
		case table == TableItem:
			return p.cleanItems()
		case table == TableNewCategories:
			return p.cleanNewCategories()
		case table == lake.TypePurchaseOrder:
			return p.cleanPurchaseOrders()
		case lake.ValidTransactionType(table):
			return p.cleanTransactionType(table)
		default:
			return fmt.Errorf("unknown table %q", table)
		}
	})
}

// cleanCustomers keeps customers active in the window, resolves the
// sales rep conflict, and renames the id key for joining.
func (p *Pipeline) cleanCustomers() error {
	customers, err := p.store.ReadTable(lake.TablePath(lake.StateRepaired, TableCustomer))
	if err != nil {
		return err
	}

	start, err := p.settings.WindowStartDate()
	if err != nil {
		return err
	}
	end, err := p.settings.WindowEndDate()
	if err != nil {
		return err
	}

	activeIDs := make(map[string]bool)
	for _, transType := range CustomerFacingTypes {
		headers, err := p.store.ReadTable(lake.TransactionPath(lake.StateRepaired, transType))
		if err != nil {
			return err
		}
		windowed, err := cleanse.FilterDateRange(headers, "created_date", start, end)
		if err != nil {
			return err
		}
		idCol, ok := windowed.Column("customer_id")
		if !ok {
			return fmt.Errorf("%s headers missing customer_id", transType)
		}
		for i := 0; i < windowed.Len(); i++ {
			if !idCol.IsNull(i) {
				activeIDs[idCol.GetAsString(i)] = true
			}
		}
	}

	idCol, ok := customers.Column("id")
	if !ok {
		return fmt.Errorf("customer table missing id")
	}
	active := customers.Filter(func(row int) bool {
		return !idCol.IsNull(row) && activeIDs[idCol.GetAsString(row)]
	})

	active, err = cleanse.ResolveSalesReps(active)
	if err != nil {
		return err
	}
	active = active.Rename("id", "customer_id")
	active = cleanse.DropListedColumns(active, TableCustomer, p.dropLists)
	active = cleanse.ScrubIllegalChars(active)
	active = cleanse.RoundFloatColumns(active, 2)

	return p.store.WriteTable(lake.TablePath(lake.StateCleaned, TableCustomer), active, p.parquet)
}

func (p *Pipeline) cleanVendors() error {
	vendors, err := p.store.ReadTable(lake.TablePath(lake.StateRepaired, TableVendor))
	if err != nil {
		return err
	}

	vendors = cleanse.DropListedColumns(vendors, TableVendor, p.dropLists)
	vendors = cleanse.ScrubIllegalChars(vendors)
	vendors = cleanse.RoundFloatColumns(vendors, 2)

	return p.store.WriteTable(lake.TablePath(lake.StateCleaned, TableVendor), vendors, p.parquet)
}

func (p *Pipeline) cleanItems() error {
	items, err := p.store.ReadTable(lake.TablePath(lake.StateRepaired, TableItem))
	if err != nil {
		return err
	}

	items, err = cleanse.CleanTable(items, TableItem, p.dropLists, p.nameMap)
	if err != nil {
		return err
	}

	return p.store.WriteTable(lake.TablePath(lake.StateCleaned, TableItem), items, p.parquet)
}

// cleanNewCategories prepares the externally maintained category table
// for item enhancement.
func (p *Pipeline) cleanNewCategories() error {
	reader := lake.NewBatchReader(p.store, p.settings.BatchSize, p.settings.Workers, p.logger)
	defer reader.Close()

	df, err := reader.ReadDir(lake.LandingDir(TableNewCategories))
	if err != nil {
		return err
	}

	df, err = cleanse.CleanNewItemCategories(df)
	if err != nil {
		return err
	}

	return p.store.WriteTable(lake.TablePath(lake.StateEnhanced, TableNewCategories), df, p.parquet)
}

// cleanTransactionType cleans a customer-facing header table and its
// line items. Line items pick up vsi_mfr from the item master so
// manufacturer resolution sees all three sources.
func (p *Pipeline) cleanTransactionType(transType string) error {
	headers, lines, err := lake.GetTransactionsAndLineItems(p.store, transType, lake.StateRepaired)
	if err != nil {
		return err
	}

	items, err := p.store.ReadTable(lake.TablePath(lake.StateRepaired, TableItem))
	if err != nil {
		return err
	}

	start, err := p.settings.WindowStartDate()
	if err != nil {
		return err
	}
	end, err := p.settings.WindowEndDate()
	if err != nil {
		return err
	}

	headers, err = cleanse.FilterDateRange(headers, "created_date", start, end)
	if err != nil {
		return err
	}
	headers = cleanse.DropListedColumns(headers, "transaction", p.dropLists)
	headers = cleanse.ScrubIllegalChars(headers)
	headers = cleanse.RoundFloatColumns(headers, 2)

	lines, err = lines.Join(items.Select("sku", "vsi_mfr"), &dataframe.JoinOptions{
		Type:     dataframe.LeftJoin,
		LeftKey:  "sku",
		RightKey: "sku",
	})
	if err != nil {
		return err
	}

	lines, err = cleanse.FilterValuelessLineItems(lines)
	if err != nil {
		return err
	}
	lines, err = cleanse.ExcludeItemTypes(lines, cleanse.NonProductItemTypes)
	if err != nil {
		return err
	}
	lines, err = cleanse.CleanTable(lines, "line_item", p.dropLists, p.nameMap)
	if err != nil {
		return err
	}

	if err := p.store.WriteTable(lake.TransactionPath(lake.StateCleaned, transType), headers, p.parquet); err != nil {
		return err
	}
	return p.store.WriteTable(lake.LineItemPath(lake.StateCleaned, transType), lines, p.parquet)
}

// cleanPurchaseOrders opens the window a year early so the trailing
// price lookups still see a year of history at the window start.
func (p *Pipeline) cleanPurchaseOrders() error {
	headers, lines, err := lake.GetTransactionsAndLineItems(p.store, lake.TypePurchaseOrder, lake.StateRepaired)
	if err != nil {
		return err
	}

	start, err := p.settings.PurchaseOrderWindowStart()
	if err != nil {
		return err
	}
	end, err := p.settings.WindowEndDate()
	if err != nil {
		return err
	}

	headers, err = cleanse.FilterDateRange(headers, "created_date", start, end)
	if err != nil {
		return err
	}
	headers = cleanse.DropListedColumns(headers, "po", p.dropLists)
	headers = cleanse.RoundFloatColumns(headers, 2)

	lines = cleanse.DropListedColumns(lines, "po_line_item", p.dropLists)
	lines, err = cleanse.ExcludeItemTypes(lines, cleanse.NonProductItemTypes)
	if err != nil {
		return err
	}
	lines = cleanse.RoundFloatColumns(lines, 2)

	if err := p.store.WriteTable(lake.TransactionPath(lake.StateCleaned, lake.TypePurchaseOrder), headers, p.parquet); err != nil {
		return err
	}
	return p.store.WriteTable(lake.LineItemPath(lake.StateCleaned, lake.TypePurchaseOrder), lines, p.parquet)
}

// Augment enriches the cleaned tables into the enhanced tier. The item
// master is enhanced first, then purchase order lines, then the
// customer-facing types, since each step feeds the next.
func (p *Pipeline) Augment(tables []string) error {
	if len(tables) == 0 {
		tables = append([]string{TableItem, lake.TypePurchaseOrder}, CustomerFacingTypes...)
	}

	return p.runTables("augment", tables, func(table string) error {
		switch {
		case table == TableItem:
			return p.augmentItems()
		case table == lake.TypePurchaseOrder:
			return p.augmentPurchaseOrders()
		case slices.Contains(CustomerFacingTypes, table):
			return p.augmentTransactionType(table)
		default:
			return fmt.Errorf("unknown table %q", table)
		}
	})
}

func (p *Pipeline) augmentItems() error {
	items, err := p.store.ReadTable(lake.TablePath(lake.StateCleaned, TableItem))
	if err != nil {
		return err
	}
	levelInfo, err := p.store.ReadTable(lake.TablePath(lake.StateEnhanced, TableNewCategories))
	if err != nil {
		return err
	}

	items, err = augment.EnhanceItems(items, levelInfo)
	if err != nil {
		return err
	}

	return p.store.WriteTable(lake.TablePath(lake.StateEnhanced, TableItem), items, p.parquet)
}

func (p *Pipeline) augmentPurchaseOrders() error {
	headers, lines, err := lake.GetTransactionsAndLineItems(p.store, lake.TypePurchaseOrder, lake.StateCleaned)
	if err != nil {
		return err
	}
	vendors, err := p.store.ReadTable(lake.TablePath(lake.StateCleaned, TableVendor))
	if err != nil {
		return err
	}
	items, err := p.store.ReadTable(lake.TablePath(lake.StateEnhanced, TableItem))
	if err != nil {
		return err
	}

	lines, err = augment.POLineItems(lines, headers, items, vendors)
	if err != nil {
		return err
	}

	return p.store.WriteTable(lake.LineItemPath(lake.StateEnhanced, lake.TypePurchaseOrder), lines, p.parquet)
}

func (p *Pipeline) augmentTransactionType(transType string) error {
	headers, lines, err := lake.GetTransactionsAndLineItems(p.store, transType, lake.StateCleaned)
	if err != nil {
		return err
	}
	customers, err := p.store.ReadTable(lake.TablePath(lake.StateCleaned, TableCustomer))
	if err != nil {
		return err
	}
	items, err := p.store.ReadTable(lake.TablePath(lake.StateEnhanced, TableItem))
	if err != nil {
		return err
	}
	poLines, err := p.store.ReadTable(lake.LineItemPath(lake.StateEnhanced, lake.TypePurchaseOrder))
	if err != nil {
		return err
	}

	start, err := p.settings.WindowStartDate()
	if err != nil {
		return err
	}
	end, err := p.settings.WindowEndDate()
	if err != nil {
		return err
	}

	headers, err = augment.Transactions(headers, customers, p.locationMap, p.logger)
	if err != nil {
		return err
	}
	lines, err = augment.LineItems(lines, headers, items, poLines, customers, p.locationMap, start, end, p.logger)
	if err != nil {
		return err
	}

	if err := p.store.WriteTable(lake.TransactionPath(lake.StateEnhanced, transType), headers, p.parquet); err != nil {
		return err
	}
	return p.store.WriteTable(lake.LineItemPath(lake.StateEnhanced, transType), lines, p.parquet)
}

// Curate applies the final filter to enhanced line items and writes
// the curated tier.
func (p *Pipeline) Curate(tables []string) error {
	if len(tables) == 0 {
		tables = append([]string{}, CustomerFacingTypes...)
	}

	return p.runTables("curate", tables, func(transType string) error {
		lines, err := p.store.ReadTable(lake.LineItemPath(lake.StateEnhanced, transType))
		if err != nil {
			return err
		}

		lines, err = curate.LineItems(lines)
		if err != nil {
			return err
		}

		return p.store.WriteTable(lake.LineItemPath(lake.StateCurated, transType), lines, p.parquet)
	})
}

// Reconcile compares header net amounts against summed line item
// totals for a transaction type in the enhanced tier.
func (p *Pipeline) Reconcile(transType string) (*dataframe.DataFrame, error) {
	headers, lines, err := lake.GetTransactionsAndLineItems(p.store, transType, lake.StateEnhanced)
	if err != nil {
		return nil, err
	}
	return augment.CompareTransactionsAndLineItems(headers, lines)
}
