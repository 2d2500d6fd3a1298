// Package plan reads observation plans and expands them into independent
// job descriptors.
package plan

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roman-dr/drsim/internal/model"
)

// ObservationPlan is an ordered, validated sequence of passes. It is read
// once per run and never mutated afterwards.
type ObservationPlan struct {
	Passes []Pass
}

type Pass struct {
	Name   string
	Plan   int // plan number, used in filename encoding
	Number int // pass number within the plan
	Roll   float64
	Visits []Visit
}

type Visit struct {
	Name      string
	Number    int
	RA        float64 // reference right ascension, degrees [0,360)
	Dec       float64 // reference declination, degrees [-90,90]
	Exposures []Exposure
}

type Exposure struct {
	Filters       []string // normalized to uppercase, non-empty
	Detectors     []int    // positive SCA ids
	Duration      int
	MATableNumber int
	Segment       int
	Observation   int
	Exposure      int
}

// Read parses an observation plan file, dispatching on the extension:
// .toml is the nested table-of-tables form, anything else the tabular
// ECSV form.
func Read(path string) (*ObservationPlan, error) {
	var (
		p   *ObservationPlan
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		p, err = ReadTOML(path)
	} else {
		p, err = ReadECSV(path)
	}
	if err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ObservationPlan) validate() error {
	if len(p.Passes) == 0 {
		return fmt.Errorf("no passes: %w", model.ErrEmptyPlan)
	}
	for _, pass := range p.Passes {
		if len(pass.Visits) == 0 {
			return fmt.Errorf("pass %q has no visits: %w", pass.Name, model.ErrEmptyPlan)
		}
		for _, v := range pass.Visits {
			if v.RA < 0 || v.RA >= 360 {
				return fmt.Errorf("visit %q: RA %v out of [0,360): %w", v.Name, v.RA, model.ErrFormat)
			}
			if v.Dec < -90 || v.Dec > 90 {
				return fmt.Errorf("visit %q: Dec %v out of [-90,90]: %w", v.Name, v.Dec, model.ErrFormat)
			}
			for i, e := range v.Exposures {
				if len(e.Filters) == 0 {
					return fmt.Errorf("visit %q exposure %d has no filters: %w", v.Name, i, model.ErrFormat)
				}
				for _, d := range e.Detectors {
					if d <= 0 {
						return fmt.Errorf("visit %q exposure %d: detector id %d not positive: %w",
							v.Name, i, d, model.ErrFormat)
					}
				}
			}
		}
	}
	return nil
}

// Visits iterates over every (pass, visit) pair in plan order.
func (p *ObservationPlan) Visits(yield func(Pass, Visit) bool) {
	for _, pass := range p.Passes {
		for _, v := range pass.Visits {
			if !yield(pass, v) {
				return
			}
		}
	}
}

func normalizeFilters(filters []string) []string {
	out := make([]string, len(filters))
	for i, f := range filters {
		out[i] = strings.ToUpper(f)
	}
	return out
}
