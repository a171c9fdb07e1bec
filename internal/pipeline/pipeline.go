// Package pipeline wires the stages together: each stage reads its
// input tier from the lake, transforms the tables, and writes the next
// tier. Tables are processed independently so one bad table never
// blocks the rest of a run.
package pipeline

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	lakeio "github.com/vsianalytics/lakeetl/internal/io"

	"github.com/vsianalytics/lakeetl/internal/config"
	"github.com/vsianalytics/lakeetl/internal/lake"
)

// Supporting tables processed alongside the transaction types.
const (
	TableCustomer      = "customer"
	TableVendor        = "vendor"
	TableItem          = "item"
	TableNewCategories = "new_item_categories"
)

// CustomerFacingTypes are the transaction types that carry customer
// revenue.
var CustomerFacingTypes = []string{lake.TypeEstimate, lake.TypeSalesOrder, lake.TypeCustInvoice}

// Pipeline holds the store, settings, and configuration documents for
// a run.
type Pipeline struct {
	store       lake.Store
	settings    config.Settings
	fieldsMap   config.TableFieldsMap
	dropLists   config.DropLists
	nameMap     map[string][]string
	locationMap map[string]string
	logger      *slog.Logger
	parquet     lakeio.ParquetOptions
}

// New builds a pipeline, loading the configuration documents from the
// settings' config directory.
func New(store lake.Store, settings config.Settings, logger *slog.Logger) (*Pipeline, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	fieldsMap, err := config.LoadTableFieldsMap(filepath.Join(settings.ConfigDir, "table_field_types.json"))
	if err != nil {
		return nil, err
	}
	dropLists, err := config.LoadColumnDropLists(filepath.Join(settings.ConfigDir, "column_drop_lists.json"))
	if err != nil {
		return nil, err
	}
	nameMap, err := config.LoadManufacturerNameMap(filepath.Join(settings.ConfigDir, "manufacturer_name_map.json"))
	if err != nil {
		return nil, err
	}
	locationMap, err := config.LoadLocationSubsidiaryMap(filepath.Join(settings.ConfigDir, "location_subsidiary_map.json"))
	if err != nil {
		return nil, err
	}

	parquet := lakeio.DefaultParquetOptions()
	parquet.Compression = settings.Compression

	return &Pipeline{
		store:       store,
		settings:    settings,
		fieldsMap:   fieldsMap,
		dropLists:   dropLists,
		nameMap:     nameMap,
		locationMap: locationMap,
		logger:      logger,
		parquet:     parquet,
	}, nil
}

// runTables executes fn once per table name, logging failures and
// continuing. The returned error summarizes failed tables, if any.
func (p *Pipeline) runTables(stage string, tables []string, fn func(table string) error) error {
	var failed []string
	for _, table := range tables {
		p.logger.Info("processing table", "stage", stage, "table", table)
		if err := fn(table); err != nil {
			p.logger.Error("table failed", "stage", stage, "table", table, "error", err)
			failed = append(failed, table)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s failed for tables: %s", stage, strings.Join(failed, ", "))
	}
	return nil
}
