package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/roman-dr/drsim/internal/catalog"
	"github.com/roman-dr/drsim/internal/model"
	"github.com/roman-dr/drsim/internal/plan"
	"github.com/roman-dr/drsim/internal/service"
	"github.com/roman-dr/drsim/internal/sim"
	"github.com/roman-dr/drsim/internal/synth"
	"github.com/roman-dr/drsim/internal/table"
	"github.com/stretchr/testify/require"
)

const tomlPlan = `
[[pass]]
name = "pass_1"
roll = 0.0

  [[pass.visit]]
  name = "visit_1"
  lon = 270.0
  lat = 66.0

    [[pass.visit.exposure]]
    filter_names = ["f062", "f087"]
    sca_ids = [1, 2]

    [[pass.visit.exposure]]
    filter_names = ["f062", "f087"]
    sca_ids = [1, 2]

  [[pass.visit]]
  name = "visit_2"
  lon = 270.4
  lat = 66.2

    [[pass.visit.exposure]]
    filter_names = ["f062"]
    sca_ids = [1]
`

func testPlan(t *testing.T) *plan.ObservationPlan {
	t.Helper()
	path := filepath.Join(t.TempDir(), "obs_plan.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlPlan), 0644))
	p, err := plan.Read(path)
	require.NoError(t, err)
	return p
}

func assembler() catalog.Assembler {
	return catalog.Assembler{
		Galaxies: synth.Galaxies{},
		RefStars: synth.ReferenceStars{},
		Filler:   synth.FillerStars{N: 25},
		Seed:     model.DefaultSeed,
	}
}

func TestCatalogRun_Master(t *testing.T) {
	t.Chdir(t.TempDir())

	r := service.CatalogRun{
		Plan:           testPlan(t),
		PlanPath:       "obs_plan.toml",
		Output:         "master_cat.ecsv",
		Format:         model.FormatECSV,
		Filters:        []string{"f062"},
		DedupPrecision: 6,
		Assembler:      assembler(),
	}
	require.NoError(t, r.Do(t.Context()))

	tab, err := table.ReadECSV("master_cat.ecsv")
	require.NoError(t, err)
	require.Positive(t, tab.Len())
	require.Equal(t, []string{"ra", "dec", "F062", "label"}, tab.Names())
}

// regionRecorder is a Generator capturing every region it is asked to
// populate, returning a single source at the region center.
type regionRecorder struct {
	regions []catalog.Region
}

func (r *regionRecorder) Generate(_ context.Context, region catalog.Region, bandpasses []string, _ int) (*table.Table, error) {
	r.regions = append(r.regions, region)
	tab := table.New().
		AddFloats("ra", []float64{region.RA}).
		AddFloats("dec", []float64{region.Dec})
	for _, b := range bandpasses {
		tab.AddFloats(b, []float64{1})
	}
	return tab.AddStrings("label", []string{"src_0"}), nil
}

func TestCatalogRun_MasterCoversAllVisits(t *testing.T) {
	t.Chdir(t.TempDir())

	// visits far enough apart that the default radius cannot cover both
	p := testPlan(t)
	p.Passes[0].Visits[0].RA = 260.0
	p.Passes[0].Visits[1].RA = 270.0

	rec := &regionRecorder{}
	r := service.CatalogRun{
		Plan:           p,
		PlanPath:       "obs_plan.toml",
		Output:         "wide_cat.ecsv",
		Format:         model.FormatECSV,
		Filters:        []string{"f062"},
		DedupPrecision: 6,
		Assembler: catalog.Assembler{
			Galaxies: rec,
			RefStars: rec,
			Filler:   rec,
			Seed:     model.DefaultSeed,
		},
	}
	require.NoError(t, r.Do(t.Context()))

	_, _, want := plan.BoundingCircle(p)
	require.NotEmpty(t, rec.regions)
	region := rec.regions[0]
	require.InDelta(t, want, region.Radius, 1e-9)
	require.Greater(t, region.Radius, 2.0, "radius must reach the visits at RA 260 and 270")

	// an explicit radius still wins over the bounding circle
	rec.regions = nil
	r.Output = "narrow_cat.ecsv"
	r.Radius = 0.2
	require.NoError(t, r.Do(t.Context()))
	require.InDelta(t, 0.2, rec.regions[0].Radius, 1e-9)
}

func TestCatalogRun_PerVisitDefaultRadius(t *testing.T) {
	t.Chdir(t.TempDir())

	rec := &regionRecorder{}
	r := service.CatalogRun{
		Plan:           testPlan(t),
		PlanPath:       "obs_plan.toml",
		Format:         model.FormatECSV,
		Filters:        []string{"f062"},
		PerVisit:       true,
		DedupPrecision: 6,
		Assembler: catalog.Assembler{
			Galaxies: rec,
			RefStars: rec,
			Filler:   rec,
			Seed:     model.DefaultSeed,
		},
	}
	require.NoError(t, r.Do(t.Context()))

	require.NotEmpty(t, rec.regions)
	for _, region := range rec.regions {
		require.InDelta(t, model.DefaultRadius, region.Radius, 1e-9)
	}
}

func TestCatalogRun_PerVisit(t *testing.T) {
	t.Chdir(t.TempDir())

	r := service.CatalogRun{
		Plan:           testPlan(t),
		PlanPath:       "obs_plan.toml",
		Format:         model.FormatECSV,
		Filters:        []string{"f062"},
		Radius:         0.2,
		PerVisit:       true,
		MaxWorkers:     4,
		DedupPrecision: 6,
		Assembler:      assembler(),
	}
	require.NoError(t, r.Do(t.Context()))

	// final catalog derived from the plan filename
	tab, err := table.ReadECSV("obs_plan_cat.ecsv")
	require.NoError(t, err)
	require.Positive(t, tab.Len())

	// intermediates are cleaned up after the merge
	leftovers, err := filepath.Glob("pass_1_visit_*")
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestCatalogRun_SequentialMatchesParallel(t *testing.T) {
	t.Chdir(t.TempDir())

	base := service.CatalogRun{
		Plan:           testPlan(t),
		PlanPath:       "obs_plan.toml",
		Format:         model.FormatECSV,
		Filters:        []string{"f062"},
		Radius:         0.2,
		PerVisit:       true,
		DedupPrecision: 6,
		Assembler:      assembler(),
	}

	seq := base
	seq.Output = "seq_cat.ecsv"
	seq.MaxWorkers = 1
	require.NoError(t, seq.Do(t.Context()))

	par := base
	par.Output = "par_cat.ecsv"
	par.MaxWorkers = 4
	require.NoError(t, par.Do(t.Context()))

	a, err := table.ReadECSV("seq_cat.ecsv")
	require.NoError(t, err)
	b, err := table.ReadECSV("par_cat.ecsv")
	require.NoError(t, err)
	require.Equal(t, a.Floats("ra"), b.Floats("ra"))
	require.Equal(t, a.Strings("label"), b.Strings("label"))
}

func TestCatalogRun_ChunkedEquivalent(t *testing.T) {
	t.Chdir(t.TempDir())

	base := service.CatalogRun{
		Plan:           testPlan(t),
		PlanPath:       "obs_plan.toml",
		Format:         model.FormatECSV,
		Filters:        []string{"f062"},
		DedupPrecision: 6,
		Assembler:      assembler(),
	}

	whole := base
	whole.Output = "whole.ecsv"
	require.NoError(t, whole.Do(t.Context()))

	chunked := base
	chunked.Output = "chunked.ecsv"
	chunked.ChunkSize = 10
	require.NoError(t, chunked.Do(t.Context()))

	a, err := table.ReadECSV("whole.ecsv")
	require.NoError(t, err)
	b, err := table.ReadECSV("chunked.ecsv")
	require.NoError(t, err)
	require.Equal(t, a.Floats("ra"), b.Floats("ra"))
	require.Equal(t, a.Floats("dec"), b.Floats("dec"))
}

func fakeSimulator(t *testing.T, script string) sim.Simulator {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-sim")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return sim.New(path)
}

func TestImagesRun(t *testing.T) {
	t.Parallel()

	// visit 1 alone: 2 exposures x 2 detectors x 2 filters = 8 jobs
	p := testPlan(t)
	p.Passes[0].Visits = p.Passes[0].Visits[:1]

	r := service.ImagesRun{
		Plan:       p,
		Catalog:    "input_cat.ecsv",
		MaxWorkers: 4,
		Simulator:  fakeSimulator(t, "exit 0\n"),
	}
	require.NoError(t, r.Do(t.Context()))
}

func TestImagesRun_FailedJobs(t *testing.T) {
	t.Parallel()

	r := service.ImagesRun{
		Plan:      testPlan(t),
		Catalog:   "input_cat.ecsv",
		Simulator: fakeSimulator(t, "exit 2\n"),
	}
	err := r.Do(t.Context())
	require.Error(t, err)
	require.ErrorContains(t, err, "simulation jobs failed")
}

func TestImagesRun_EmptyPlan(t *testing.T) {
	t.Parallel()

	p := &plan.ObservationPlan{Passes: []plan.Pass{{Name: "p", Visits: []plan.Visit{{Name: "v"}}}}}
	r := service.ImagesRun{Plan: p, Simulator: sim.New("unused")}
	require.ErrorIs(t, r.Do(context.Background()), model.ErrEmptyPlan)
}
