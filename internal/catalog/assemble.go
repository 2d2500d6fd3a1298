// Package catalog assembles input catalogs for a sky region out of
// injected source generators and handles merge, dedup and cleanup of the
// resulting tables.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roman-dr/drsim/internal/model"
	"github.com/roman-dr/drsim/internal/table"
)

// Region is a cone on the sky: center coordinates and search radius, all
// in degrees.
type Region struct {
	RA     float64
	Dec    float64
	Radius float64
}

func (r Region) String() string {
	return fmt.Sprintf("ra=%g dec=%g radius=%g", r.RA, r.Dec, r.Radius)
}

// Generator synthesizes one source class for a region. Implementations
// must be deterministic for a fixed seed: identical (region, bandpasses,
// seed) produce identical tables.
type Generator interface {
	Generate(ctx context.Context, region Region, bandpasses []string, seed int) (*table.Table, error)
}

// FluxUpdater is the optional correction capability: overwrite per-band
// fluxes of target rows matched by source label, leaving unmatched rows
// untouched.
type FluxUpdater interface {
	UpdateFluxes(target, corrections *table.Table) (*table.Table, error)
}

// Assembler invokes the three source generators for a region and merges
// their output. Generators run in a fixed order (galaxies, reference
// stars, filler stars) so the concatenated row order is stable.
type Assembler struct {
	Galaxies Generator
	RefStars Generator
	Filler   Generator
	Seed     int
	Flux     FluxUpdater // optional
}

// Assemble generates and concatenates the three component tables. All
// components must agree on their column sets.
func (a Assembler) Assemble(ctx context.Context, region Region, bandpasses []string) (*table.Table, error) {
	type component struct {
		name string
		gen  Generator
	}
	components := []component{
		{"galaxies", a.Galaxies},
		{"ref_stars", a.RefStars},
		{"filler_stars", a.Filler},
	}

	tables := make([]*table.Table, 0, len(components))
	for _, c := range components {
		if c.gen == nil {
			continue
		}
		t, err := c.gen.Generate(ctx, region, bandpasses, a.Seed)
		if err != nil {
			return nil, fmt.Errorf("generating %s: %w", c.name, err)
		}
		slog.DebugContext(ctx, "component generated", "component", c.name, "sources", t.Len())
		tables = append(tables, t)
	}

	merged, err := table.Vstack(tables...)
	if err != nil {
		return nil, fmt.Errorf("merging components: %w", err)
	}
	return merged, nil
}

// AssembleComponents is like Assemble but also returns each component
// table, in generator order, for per-component intermediate writes.
func (a Assembler) AssembleComponents(ctx context.Context, region Region, bandpasses []string) (merged *table.Table, components []*table.Table, err error) {
	gals, err := a.generate(ctx, a.Galaxies, "galaxies", region, bandpasses)
	if err != nil {
		return nil, nil, err
	}
	refs, err := a.generate(ctx, a.RefStars, "ref_stars", region, bandpasses)
	if err != nil {
		return nil, nil, err
	}
	filler, err := a.generate(ctx, a.Filler, "filler_stars", region, bandpasses)
	if err != nil {
		return nil, nil, err
	}

	components = []*table.Table{gals, refs, filler}
	merged, err = table.Vstack(components...)
	if err != nil {
		return nil, nil, fmt.Errorf("merging components: %w", err)
	}
	return merged, components, nil
}

func (a Assembler) generate(ctx context.Context, g Generator, name string, region Region, bandpasses []string) (*table.Table, error) {
	if g == nil {
		return nil, nil
	}
	t, err := g.Generate(ctx, region, bandpasses, a.Seed)
	if err != nil {
		return nil, fmt.Errorf("generating %s: %w", name, err)
	}
	return t, nil
}

// ApplyFluxCatalog reads the externally supplied flux catalog and runs
// the injected correction over the merged table.
func (a Assembler) ApplyFluxCatalog(ctx context.Context, merged *table.Table, path string) (*table.Table, error) {
	if a.Flux == nil {
		return nil, fmt.Errorf("no flux updater configured: %w", model.ErrUpdate)
	}

	corrections, err := ReadFluxCatalog(path)
	if err != nil {
		return nil, err
	}

	updated, err := a.Flux.UpdateFluxes(merged, corrections)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, model.ErrUpdate)
	}
	slog.InfoContext(ctx, "fluxes updated from external catalog", "path", path, "sources", updated.Len())
	return updated, nil
}
