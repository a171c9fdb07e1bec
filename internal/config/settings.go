package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default runtime settings.
const (
	DefaultWorkers     = 15
	DefaultBatchSize   = 1000
	DefaultCompression = "snappy"
	DefaultWindowStart = "2022-01-01"
)

// Settings holds the runtime configuration for a pipeline run.
type Settings struct {
	// LakeRoot is the root directory of the data lake.
	LakeRoot string `yaml:"lake_root"`

	// ConfigDir is the directory holding the JSON configuration
	// documents (field maps, drop lists, name maps).
	ConfigDir string `yaml:"config_dir"`

	// Workers is the number of goroutines used for batched object
	// reads and per-table stage execution.
	Workers int `yaml:"workers"`

	// BatchSize is the number of lake objects read per batch.
	BatchSize int `yaml:"batch_size"`

	// Compression is the Parquet codec for written tables.
	Compression string `yaml:"compression"`

	// WindowStart is the inclusive lower bound for transaction
	// dates kept during cleaning, formatted as 2006-01-02.
	WindowStart string `yaml:"window_start"`

	// WindowEnd is the inclusive upper bound. Empty means today.
	WindowEnd string `yaml:"window_end"`
}

// NewSettings returns settings populated with defaults.
func NewSettings() Settings {
	return Settings{
		Workers:     DefaultWorkers,
		BatchSize:   DefaultBatchSize,
		Compression: DefaultCompression,
		WindowStart: DefaultWindowStart,
	}
}

// WithDefaults fills zero values with defaults.
func (s Settings) WithDefaults() Settings {
	defaults := NewSettings()
	if s.Workers == 0 {
		s.Workers = defaults.Workers
	}
	if s.BatchSize == 0 {
		s.BatchSize = defaults.BatchSize
	}
	if s.Compression == "" {
		s.Compression = defaults.Compression
	}
	if s.WindowStart == "" {
		s.WindowStart = defaults.WindowStart
	}
	return s
}

// Validate reports the first invalid setting.
func (s Settings) Validate() error {
	if s.LakeRoot == "" {
		return fmt.Errorf("lake_root must be set")
	}
	if s.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", s.Workers)
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", s.BatchSize)
	}
	if _, err := s.WindowStartDate(); err != nil {
		return err
	}
	if _, err := s.WindowEndDate(); err != nil {
		return err
	}
	return nil
}

// WindowStartDate parses the cleaning window lower bound.
func (s Settings) WindowStartDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", s.WindowStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing window_start %q: %w", s.WindowStart, err)
	}
	return t, nil
}

// WindowEndDate parses the cleaning window upper bound. An empty bound
// means the current day.
func (s Settings) WindowEndDate() (time.Time, error) {
	if s.WindowEnd == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", s.WindowEnd)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing window_end %q: %w", s.WindowEnd, err)
	}
	return t, nil
}

// PurchaseOrderWindowStart is the cleaning window lower bound for
// purchase orders. It opens one year earlier than the transaction
// window so trailing price lookups near the window start still see a
// year of purchase history.
func (s Settings) PurchaseOrderWindowStart() (time.Time, error) {
	start, err := s.WindowStartDate()
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(-1, 0, 0), nil
}

// LoadSettings reads YAML settings from a file and applies defaults.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing settings file %s: %w", path, err)
	}

	return s.WithDefaults(), nil
}
