package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// FieldGroup names the columns of a table that share a target type,
// together with the value substituted for nulls before coercion.
type FieldGroup struct {
	Fields         []string    `json:"fields"`
	NullSubstitute interface{} `json:"null_substitute"`
}

// TableFields maps a type name ("string", "int", "float", "datetime",
// "bool") to the group of columns coerced to that type.
type TableFields map[string]FieldGroup

// TableFieldsMap maps a table name to its field type groups.
type TableFieldsMap map[string]TableFields

type tableFieldsDoc struct {
	TableFieldsMap TableFieldsMap `json:"table_fields_map"`
}

// LoadTableFieldsMap reads the per-table type conversion document.
func LoadTableFieldsMap(path string) (TableFieldsMap, error) {
	var doc tableFieldsDoc
	if err := loadJSON(path, &doc); err != nil {
		return nil, err
	}
	if len(doc.TableFieldsMap) == 0 {
		return nil, fmt.Errorf("config file %s has no table_fields_map entries", path)
	}
	for table, fields := range doc.TableFieldsMap {
		for typeName := range fields {
			if _, err := ParseFieldType(typeName); err != nil {
				return nil, fmt.Errorf("table %s: %w", table, err)
			}
		}
	}
	return doc.TableFieldsMap, nil
}

// DropLists maps a table name to the columns removed during cleaning.
type DropLists map[string][]string

type dropListsDoc struct {
	ColumnDropLists DropLists `json:"column_drop_lists"`
}

// LoadColumnDropLists reads the per-table column drop document.
func LoadColumnDropLists(path string) (DropLists, error) {
	var doc dropListsDoc
	if err := loadJSON(path, &doc); err != nil {
		return nil, err
	}
	return doc.ColumnDropLists, nil
}

type manufacturerMapDoc struct {
	ManufacturerMap map[string][]string `json:"manufacturer_map"`
}

// LoadManufacturerNameMap reads the canonicalization map applied to
// manufacturer names after normalization: canonical name to its known
// misspellings.
func LoadManufacturerNameMap(path string) (map[string][]string, error) {
	var doc manufacturerMapDoc
	if err := loadJSON(path, &doc); err != nil {
		return nil, err
	}
	return doc.ManufacturerMap, nil
}

type subsidiaryMapDoc struct {
	LocationsSubsidiaryMap map[string]string `json:"locations_subsidiary_map"`
}

// LoadLocationSubsidiaryMap reads the location name to subsidiary name
// assignments.
func LoadLocationSubsidiaryMap(path string) (map[string]string, error) {
	var doc subsidiaryMapDoc
	if err := loadJSON(path, &doc); err != nil {
		return nil, err
	}
	return doc.LocationsSubsidiaryMap, nil
}

func loadJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}
