package lake

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/vsianalytics/lakeetl/internal/dataframe"
	lakeio "github.com/vsianalytics/lakeetl/internal/io"
	"github.com/vsianalytics/lakeetl/internal/parallel"
)

// BatchReader reads landed JSON objects in parallel batches and
// stitches them into a single table. A failed object is logged and
// skipped rather than failing the whole read, so one corrupt export
// never blocks a consolidation run.
type BatchReader struct {
	store     Store
	batchSize int
	pool      *parallel.WorkerPool
	logger    *slog.Logger
	progress  bool
}

// NewBatchReader creates a reader over store. A non-positive batch
// size falls back to the default.
func NewBatchReader(store Store, batchSize, workers int, logger *slog.Logger) *BatchReader {
	if batchSize <= 0 {
		batchSize = lakeio.DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchReader{
		store:     store,
		batchSize: batchSize,
		pool:      parallel.NewWorkerPool(workers),
		logger:    logger,
		progress:  true,
	}
}

// SetProgress enables or disables the terminal progress bar.
func (r *BatchReader) SetProgress(enabled bool) {
	r.progress = enabled
}

// Close releases the reader's worker pool.
func (r *BatchReader) Close() {
	r.pool.Close()
}

// ReadDir reads every JSON object directly under dir into one table.
func (r *BatchReader) ReadDir(dir string) (*dataframe.DataFrame, error) {
	names, err := r.store.ListObjects(dir, ".json")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no JSON objects under %s", dir)
	}
	return r.ReadObjects(dir, names)
}

// ReadObjects reads the named JSON objects under dir into one table.
// Object order is preserved in the result.
func (r *BatchReader) ReadObjects(dir string, names []string) (*dataframe.DataFrame, error) {
	var bar *progressbar.ProgressBar
	if r.progress {
		bar = progressbar.Default(int64(len(names)), fmt.Sprintf("Processing %s", dir))
	}

	var frames []*dataframe.DataFrame
	for start := 0; start < len(names); start += r.batchSize {
		end := min(start+r.batchSize, len(names))
		batch := names[start:end]

		results := parallel.ProcessIndexed(r.pool, batch, func(_ int, name string) *dataframe.DataFrame {
			df := r.readObject(dir, name)
			if bar != nil {
				_ = bar.Add(1)
			}
			return df
		})

		for _, df := range results {
			if df != nil && df.Len() > 0 {
				frames = append(frames, df)
			} else if df != nil {
				df.Release()
			}
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("no readable JSON objects under %s", dir)
	}

	// Objects in the same directory do not always carry identical
	// fields, and sparse objects can infer a different type for the
	// same field. Align schemas before stitching.
	frames, err := harmonizeSchemas(frames)
	if err != nil {
		return nil, fmt.Errorf("aligning schemas under %s: %w", dir, err)
	}

	combined, err := frames[0].Concat(frames[1:]...)
	for _, df := range frames {
		// Concat with no others returns its receiver, so releasing it
		// here would free the arrays combined still references.
		if df != combined {
			df.Release()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("combining objects under %s: %w", dir, err)
	}
	return combined, nil
}

// readObject reads and decodes one object, returning nil on failure.
func (r *BatchReader) readObject(dir, name string) *dataframe.DataFrame {
	path := dir + "/" + name
	data, err := r.store.ReadObject(path)
	if err != nil {
		r.logger.Warn("skipping unreadable object", "path", path, "error", err)
		return nil
	}

	records, err := lakeio.DecodeRecords(bytes.NewReader(data))
	if err != nil {
		r.logger.Warn("skipping undecodable object", "path", path, "error", err)
		return nil
	}

	df, err := lakeio.RecordsToDataFrame(records, nil)
	if err != nil {
		r.logger.Warn("skipping unconvertible object", "path", path, "error", err)
		return nil
	}
	return df
}
