package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roman-dr/drsim/internal/model"
	"github.com/roman-dr/drsim/internal/table"
)

// Write stores t at path in the requested format as a full overwrite.
func Write(t *table.Table, path, format string) error {
	switch format {
	case model.FormatParquet:
		return table.WriteParquet(t, path)
	case model.FormatECSV, "":
		return table.WriteECSV(t, path)
	default:
		return fmt.Errorf("unknown catalog format %q", format)
	}
}

// Read loads a catalog previously stored by Write.
func Read(path, format string) (*table.Table, error) {
	switch format {
	case model.FormatParquet:
		return table.ReadParquet(path)
	case model.FormatECSV, "":
		return table.ReadECSV(path)
	default:
		return nil, fmt.Errorf("unknown catalog format %q", format)
	}
}

// WriteChunked writes t in successive row-count-bounded slices: the
// first slice replaces any existing file, later slices append rows only.
// Re-reading the file yields the identical row set and order as a single
// write. Chunk size <= 0 degrades to one full write.
//
// Only the ECSV form supports row appends; parquet requests fall back to
// a single write.
func WriteChunked(ctx context.Context, t *table.Table, path, format string, chunkSize int) error {
	if chunkSize <= 0 || t.Len() <= chunkSize {
		return Write(t, path, format)
	}
	if format == model.FormatParquet {
		slog.DebugContext(ctx, "parquet has no row-append form, writing in one pass", "path", path)
		return Write(t, path, format)
	}

	for from := 0; from < t.Len(); from += chunkSize {
		to := min(from+chunkSize, t.Len())
		chunk := t.Slice(from, to)
		if from == 0 {
			if err := table.WriteECSV(chunk, path); err != nil {
				return err
			}
		} else if err := table.AppendECSVRows(chunk, path); err != nil {
			return err
		}
		slog.DebugContext(ctx, "chunk written", "path", path, "rows", to-from, "total", to)
	}
	return nil
}
