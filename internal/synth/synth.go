// Package synth provides deterministic stand-in source generators. The
// real population synthesis lives in an external package; these produce
// structurally identical tables (positions, per-band fluxes, labels)
// with no astrophysical claims, stable for a fixed seed.
package synth

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/roman-dr/drsim/internal/catalog"
	"github.com/roman-dr/drsim/internal/table"
)

// Per-class stream tags keep the three generators statistically
// independent while sharing one run seed.
const (
	streamGalaxies = 0x67616c61 // "gala"
	streamRefStars = 0x72656673 // "refs"
	streamFiller   = 0x66696c6c // "fill"
)

// Source densities per square degree for the area-scaled classes.
const (
	galaxyDensity  = 2000
	refStarDensity = 800
)

// Galaxies synthesizes the galaxy population for a region.
type Galaxies struct{}

func (Galaxies) Generate(ctx context.Context, region catalog.Region, bandpasses []string, seed int) (*table.Table, error) {
	n := areaCount(region, galaxyDensity)
	return generate(ctx, region, bandpasses, seed, streamGalaxies, "galaxy", n)
}

// ReferenceStars synthesizes stars as a reference-catalog query would
// return them.
type ReferenceStars struct{}

func (ReferenceStars) Generate(ctx context.Context, region catalog.Region, bandpasses []string, seed int) (*table.Table, error) {
	n := areaCount(region, refStarDensity)
	return generate(ctx, region, bandpasses, seed, streamRefStars, "ref_star", n)
}

// FillerStars synthesizes a fixed number of additional faint stars.
type FillerStars struct {
	N int
}

func (f FillerStars) Generate(ctx context.Context, region catalog.Region, bandpasses []string, seed int) (*table.Table, error) {
	n := f.N
	if n <= 0 {
		n = 1000
	}
	return generate(ctx, region, bandpasses, seed, streamFiller, "filler_star", n)
}

func areaCount(region catalog.Region, density int) int {
	area := math.Pi * region.Radius * region.Radius
	n := int(area * float64(density))
	if n < 1 {
		n = 1
	}
	return n
}

func generate(ctx context.Context, region catalog.Region, bandpasses []string, seed int, stream uint64, class string, n int) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bandpasses) == 0 {
		return nil, fmt.Errorf("synth: no bandpasses for %s", class)
	}

	rng := rand.New(rand.NewPCG(uint64(seed), stream))

	ra := make([]float64, n)
	dec := make([]float64, n)
	labels := make([]string, n)
	for i := range n {
		ra[i], dec[i] = uniformInCone(rng, region)
		labels[i] = fmt.Sprintf("%s_%d", class, i+1)
	}

	t := table.New().
		AddFloats("ra", ra).
		AddFloats("dec", dec)
	for _, bp := range bandpasses {
		flux := make([]float64, n)
		for i := range n {
			// maggies-like positive flux, exponential tail
			flux[i] = rng.ExpFloat64() * 1e-7
		}
		t.AddFloats(bp, flux)
	}
	t.AddStrings("label", labels)
	return t, nil
}

// uniformInCone draws a position uniformly over the search circle, in a
// flat-sky approximation adequate for sub-degree radii.
func uniformInCone(rng *rand.Rand, region catalog.Region) (ra, dec float64) {
	r := region.Radius * math.Sqrt(rng.Float64())
	theta := 2 * math.Pi * rng.Float64()

	dec = region.Dec + r*math.Sin(theta)
	dec = math.Max(-90, math.Min(90, dec))

	cosDec := math.Cos(dec * math.Pi / 180)
	if cosDec < 1e-9 {
		cosDec = 1e-9
	}
	ra = region.RA + r*math.Cos(theta)/cosDec
	ra = math.Mod(ra+360, 360)
	return ra, dec
}
