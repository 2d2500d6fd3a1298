package model_test

import (
	"strings"
	"testing"

	"github.com/roman-dr/drsim/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	yml := `
version: 0
run:
  max_workers: 8
  chunk_size: 5000
  log: stderr
catalog:
  radius: 0.5
  filters: [f062, f087]
  dedup_precision: 4
  format: parquet
images:
  simulator: /opt/romanisim/bin/romanisim-make-image
  level: 2
`
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, 8, cfg.MaxWorkers())
	require.Equal(t, 5000, cfg.ChunkSize())
	require.Equal(t, model.LogStderr, cfg.LogSink())
	require.InDelta(t, 0.5, cfg.Radius(), 1e-12)
	require.Equal(t, []string{"f062", "f087"}, cfg.Filters())
	require.Equal(t, 4, cfg.DedupPrecision())
	require.Equal(t, model.FormatParquet, cfg.Format())
	require.Equal(t, "/opt/romanisim/bin/romanisim-make-image", cfg.Simulator())
	require.Equal(t, 2, cfg.Level())

	r, ok := cfg.RadiusOverride()
	require.True(t, ok)
	require.InDelta(t, 0.5, r, 1e-12)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := model.LoadConfig(strings.NewReader("version: 0\n"))
	require.NoError(t, err)
	require.Equal(t, model.DefaultSeed, cfg.Seed())
	require.InDelta(t, model.DefaultRadius, cfg.Radius(), 1e-12)
	require.Equal(t, model.DefaultFilters(), cfg.Filters())
	require.Equal(t, model.DefaultFillerStars, cfg.FillerStars())
	require.Equal(t, model.DefaultDedupPrecision, cfg.DedupPrecision())
	require.Equal(t, model.FormatECSV, cfg.Format())
	require.Equal(t, 1, cfg.MaxWorkers())
	require.Equal(t, 0, cfg.ChunkSize())
	require.Equal(t, model.DefaultSimulator, cfg.Simulator())
	require.Equal(t, model.DefaultDate, cfg.Date())
	require.Equal(t, model.DefaultMATableNumber, cfg.MATableNumber())

	// an unset radius is not an override; callers fall back to the
	// plan-derived bounding circle
	_, ok := cfg.RadiusOverride()
	require.False(t, ok)
}

func TestLoadConfig_Fail(t *testing.T) {
	var testCases = []struct {
		scenario string
		yml      string
	}{
		{"bad format enum", "version: 0\ncatalog:\n  format: fits\n"},
		{"unknown field", "version: 0\ncatalog:\n  bandwidth: 3\n"},
		{"zero workers", "version: 0\nrun:\n  max_workers: 0\n"},
		{"negative precision", "version: 0\ncatalog:\n  dedup_precision: -1\n"},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			_, err := model.LoadConfig(strings.NewReader(tt.yml))
			require.Error(t, err)
			require.NotEmpty(t, model.CueErrDetails(err))
		})
	}
}
