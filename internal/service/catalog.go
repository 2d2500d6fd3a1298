package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/roman-dr/drsim/internal/catalog"
	"github.com/roman-dr/drsim/internal/model"
	"github.com/roman-dr/drsim/internal/parallel"
	"github.com/roman-dr/drsim/internal/plan"
	"github.com/roman-dr/drsim/internal/table"
)

// CatalogRun generates the input catalog(s) for an observation plan.
type CatalogRun struct {
	Plan     *plan.ObservationPlan
	PlanPath string

	Output  string // final catalog path; "" derives from the plan filename
	Format  string // "ecsv" | "parquet"
	Filters []string

	// Radius is an explicit per-visit/region radius in degrees. Zero keeps
	// the plan's bounding-circle radius in master mode and the built-in
	// default per visit.
	Radius         float64
	Region         *catalog.Region // explicit center/radius override
	PerVisit       bool            // one catalog job per (pass, visit) with a final dedup merge
	MaxWorkers     int
	ChunkSize      int
	DedupPrecision int
	FluxCatalog    string // optional external flux catalog path

	Assembler catalog.Assembler
}

func (r CatalogRun) output() string {
	if r.Output != "" {
		return r.Output
	}
	name := plan.CatalogName(r.PlanPath)
	if ext := filepath.Ext(name); ext != "."+r.formatExt() {
		name = strings.TrimSuffix(name, ext) + "." + r.formatExt()
	}
	return name
}

func (r CatalogRun) bandpasses() []string {
	filters := r.Filters
	if len(filters) == 0 {
		filters = model.DefaultFilters()
	}
	out := make([]string, len(filters))
	for i, f := range filters {
		out[i] = strings.ToUpper(f)
	}
	return out
}

// Do executes the catalog workflow and writes the final merged catalog.
func (r CatalogRun) Do(ctx context.Context) error {
	if r.PerVisit {
		return r.perVisit(ctx)
	}
	return r.master(ctx)
}

// master builds one catalog covering the whole plan: either the explicit
// region override or the bounding circle over every visit.
func (r CatalogRun) master(ctx context.Context) error {
	region := catalog.Region{Radius: r.Radius}
	if r.Region != nil {
		region = *r.Region
	} else {
		region.RA, region.Dec, region.Radius = plan.BoundingCircle(r.Plan)
		if r.Radius > 0 {
			region.Radius = r.Radius
		}
	}

	slog.InfoContext(ctx, "generating master catalog", "region", region.String())
	_, components, err := r.Assembler.AssembleComponents(ctx, region, r.bandpasses())
	if err != nil {
		return err
	}

	return r.finish(ctx, components, nil)
}

// visitResult is what each per-visit job hands back to the caller; jobs
// never touch shared state while running.
type visitResult struct {
	components    []*table.Table
	intermediates []string
}

// perVisit assembles one catalog per (pass, visit), writes the
// per-component and per-visit intermediates, and merges everything into
// the final deduplicated catalog.
func (r CatalogRun) perVisit(ctx context.Context) error {
	ext := r.Format
	if ext == "" {
		ext = model.FormatECSV
	}
	radius := r.Radius
	if radius <= 0 {
		radius = model.DefaultRadius
	}
	jobs, err := plan.ExpandCatalogs(r.Plan, radius, ext)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "expanded catalog jobs", "jobs", len(jobs), "workers", r.MaxWorkers)

	results, err := parallel.Run(ctx, r.MaxWorkers, jobs, r.visitJob)
	if err != nil {
		return err
	}

	// merge only after every job has joined
	var components []*table.Table
	var intermediates []string
	for _, res := range results {
		components = append(components, res.components...)
		intermediates = append(intermediates, res.intermediates...)
	}
	return r.finish(ctx, components, intermediates)
}

func (r CatalogRun) visitJob(ctx context.Context, job plan.CatalogJob) (visitResult, error) {
	region := catalog.Region{RA: job.RA, Dec: job.Dec, Radius: job.Radius}
	slog.InfoContext(ctx, "generating visit catalog",
		"pass", job.PassName, "visit", job.VisitName, "region", region.String())

	merged, components, err := r.Assembler.AssembleComponents(ctx, region, r.bandpasses())
	if err != nil {
		return visitResult{}, fmt.Errorf("%s/%s: %w", job.PassName, job.VisitName, err)
	}

	res := visitResult{components: components}
	stem := strings.TrimSuffix(job.Output, "."+r.formatExt())
	names := []string{"galaxies", "ref_stars", "filler_stars"}
	for i, c := range components {
		path := fmt.Sprintf("%s_%s.%s", stem, names[i], r.formatExt())
		if err := catalog.Write(c, path, r.Format); err != nil {
			return visitResult{}, err
		}
		res.intermediates = append(res.intermediates, path)
	}

	if err := catalog.Write(merged, job.Output, r.Format); err != nil {
		return visitResult{}, err
	}
	res.intermediates = append(res.intermediates, job.Output)
	slog.InfoContext(ctx, "visit catalog saved", "path", job.Output, "sources", merged.Len())
	return res, nil
}

func (r CatalogRun) formatExt() string {
	if r.Format == model.FormatParquet {
		return "parquet"
	}
	return "ecsv"
}

// finish deduplicates the component tables, applies the optional flux
// correction, writes the final catalog and removes intermediates.
func (r CatalogRun) finish(ctx context.Context, components []*table.Table, intermediates []string) error {
	final, err := catalog.Deduplicate(components, r.DedupPrecision)
	if err != nil {
		return err
	}

	if r.FluxCatalog != "" {
		final, err = r.Assembler.ApplyFluxCatalog(ctx, final, r.FluxCatalog)
		if err != nil {
			return err
		}
	}

	out := r.output()
	if err := catalog.WriteChunked(ctx, final, out, r.Format, r.ChunkSize); err != nil {
		return err
	}
	slog.InfoContext(ctx, "final catalog saved", "path", out, "sources", final.Len())

	catalog.Cleanup(ctx, intermediates)
	return nil
}
