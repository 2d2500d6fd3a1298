package catalog

import (
	"context"
	"log/slog"
	"os"
)

// Cleanup deletes intermediate files once the merged catalog is written.
// Best effort: a failing path is logged and the rest are still attempted.
// Missing files are not an error, reruns may have cleaned them already.
func Cleanup(ctx context.Context, paths []string) {
	for _, path := range paths {
		err := os.Remove(path)
		switch {
		case err == nil:
			slog.DebugContext(ctx, "intermediate catalog removed", "path", path)
		case os.IsNotExist(err):
			// nothing to do
		default:
			slog.WarnContext(ctx, "could not remove intermediate catalog", "path", path, "error", err)
		}
	}
}
