// Package config holds the pipeline's declarative configuration: the
// per-table field type maps used during repair, the column drop lists
// and name maps used during cleaning, and the runtime settings loaded
// from YAML.
package config

import (
	"fmt"
	"time"
)

// FieldType identifies the target type a raw column is coerced to.
type FieldType int

const (
	StringField FieldType = iota
	IntField
	FloatField
	DateTimeField
	BoolField
)

var fieldTypeNames = map[FieldType]string{
	StringField:   "string",
	IntField:      "int",
	FloatField:    "float",
	DateTimeField: "datetime",
	BoolField:     "bool",
}

// String returns the canonical name used in configuration documents.
func (ft FieldType) String() string {
	if name, ok := fieldTypeNames[ft]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(ft))
}

// ParseFieldType maps a configuration type name to a FieldType.
func ParseFieldType(name string) (FieldType, error) {
	switch name {
	case "string":
		return StringField, nil
	case "int", "integer":
		return IntField, nil
	case "float", "double":
		return FloatField, nil
	case "datetime", "date":
		return DateTimeField, nil
	case "bool", "boolean":
		return BoolField, nil
	default:
		return StringField, fmt.Errorf("unknown field type %q", name)
	}
}

// SentinelDate substitutes for missing or unparseable dates. Far enough
// in the past that no real transaction ever falls inside a window
// anchored on it.
var SentinelDate = time.Date(1800, time.January, 1, 0, 0, 0, 0, time.UTC)

// SentinelString substitutes for missing string values.
const SentinelString = "Not Specified"

// Default returns the substitution value used when a field of this
// type is null after coercion.
func (ft FieldType) Default() interface{} {
	switch ft {
	case IntField:
		return int64(0)
	case FloatField:
		return float64(0)
	case DateTimeField:
		return SentinelDate
	case BoolField:
		return false
	default:
		return SentinelString
	}
}
