package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roman-dr/drsim/internal/parallel"
	"github.com/roman-dr/drsim/internal/plan"
	"github.com/roman-dr/drsim/internal/sim"
)

// ImagesRun simulates one image per expanded (pass, visit, exposure,
// detector, filter) job.
type ImagesRun struct {
	Plan       *plan.ObservationPlan
	Catalog    string // input catalog path
	SCAIDs     []int  // nil keeps the plan's detector lists
	Program    int
	MaxWorkers int
	Simulator  sim.Simulator
}

// Do expands and runs every simulation job. Individual non-zero exits do
// not abort sibling jobs; the run fails afterwards if any job failed.
func (r ImagesRun) Do(ctx context.Context) error {
	jobs, err := plan.ExpandImages(r.Plan, plan.ImageOptions{
		Program: r.Program,
		Catalog: r.Catalog,
		SCAIDs:  r.SCAIDs,
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "expanded image jobs", "jobs", len(jobs), "workers", r.MaxWorkers)

	results, err := parallel.Run(ctx, r.MaxWorkers, jobs, r.Simulator.Run)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d simulation jobs failed", failed, len(jobs))
	}
	slog.InfoContext(ctx, "all simulations finished", "jobs", len(jobs))
	return nil
}
