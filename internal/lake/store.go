// Package lake provides access to the data lake: listing landed JSON
// objects, reading them in parallel batches, and reading and writing
// the Parquet tables of each tier.
package lake

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vsianalytics/lakeetl/internal/dataframe"
	lakeio "github.com/vsianalytics/lakeetl/internal/io"
)

// Store is the access surface the pipeline stages use. Paths are
// relative to the lake root and use forward slashes.
type Store interface {
	// ReadObject returns the raw bytes of a single object.
	ReadObject(path string) ([]byte, error)

	// ListObjects returns the names of objects directly under dir
	// whose names end with ext, sorted.
	ListObjects(dir, ext string) ([]string, error)

	// ReadTable reads a Parquet table.
	ReadTable(path string) (*dataframe.DataFrame, error)

	// WriteTable writes a Parquet table, creating parent
	// directories and overwriting any existing object.
	WriteTable(path string, df *dataframe.DataFrame, opts lakeio.ParquetOptions) error

	// Exists reports whether an object is present.
	Exists(path string) bool
}

// LocalStore is a Store over a filesystem directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening lake root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("lake root %s is not a directory", dir)
	}
	return &LocalStore{root: dir}, nil
}

func (s *LocalStore) resolve(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

// ReadObject returns the raw bytes of a single object.
func (s *LocalStore) ReadObject(path string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", path, err)
	}
	return data, nil
}

// ListObjects returns the names of objects directly under dir whose
// names end with ext, sorted.
func (s *LocalStore) ListObjects(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(s.resolve(dir))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ext) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadTable reads a Parquet table.
func (s *LocalStore) ReadTable(path string) (*dataframe.DataFrame, error) {
	data, err := s.ReadObject(path)
	if err != nil {
		return nil, err
	}
	return lakeio.NewParquetReader(bytes.NewReader(data), lakeio.DefaultParquetOptions(), nil).Read()
}

// WriteTable writes a Parquet table, creating parent directories and
// overwriting any existing object.
func (s *LocalStore) WriteTable(path string, df *dataframe.DataFrame, opts lakeio.ParquetOptions) error {
	target := s.resolve(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := lakeio.NewParquetWriter(&buf, opts).Write(df); err != nil {
		return fmt.Errorf("writing table %s: %w", path, err)
	}

	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing object %s: %w", path, err)
	}
	return nil
}

// Exists reports whether an object is present.
func (s *LocalStore) Exists(path string) bool {
	info, err := os.Stat(s.resolve(path))
	return err == nil && !info.IsDir()
}

var _ Store = (*LocalStore)(nil)
