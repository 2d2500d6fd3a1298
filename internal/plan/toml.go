package plan

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/roman-dr/drsim/internal/model"
)

// On-disk TOML form: nested arrays of tables pass -> visit -> exposure.
type tomlPlan struct {
	Passes []tomlPass `toml:"pass"`
}

type tomlPass struct {
	Name   string      `toml:"name"`
	Plan   int         `toml:"plan"`
	Number int         `toml:"number"`
	Roll   float64     `toml:"roll"`
	Visits []tomlVisit `toml:"visit"`
}

type tomlVisit struct {
	Name      string         `toml:"name"`
	Number    int            `toml:"number"`
	Lon       float64        `toml:"lon"`
	Lat       float64        `toml:"lat"`
	Exposures []tomlExposure `toml:"exposure"`
}

type tomlExposure struct {
	FilterNames   []string `toml:"filter_names"`
	SCAIDs        []int    `toml:"sca_ids"`
	Duration      int      `toml:"duration"`
	MATableNumber int      `toml:"ma_table_number"`
	Segment       int      `toml:"segment"`
	Observation   int      `toml:"observation"`
	Exposure      int      `toml:"exposure"`
}

// ReadTOML parses the table-of-tables observation plan form.
func ReadTOML(path string) (*ObservationPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw tomlPlan
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %v: %w", path, err, model.ErrFormat)
	}

	out := &ObservationPlan{}
	for pi, tp := range raw.Passes {
		pass := Pass{
			Name:   tp.Name,
			Plan:   tp.Plan,
			Number: tp.Number,
			Roll:   tp.Roll,
		}
		if pass.Name == "" {
			pass.Name = fmt.Sprintf("pass_%d", pi+1)
		}
		if pass.Plan == 0 {
			pass.Plan = 1
		}
		if pass.Number == 0 {
			pass.Number = pi + 1
		}
		for vi, tv := range tp.Visits {
			v := Visit{
				Name:   tv.Name,
				Number: tv.Number,
				RA:     tv.Lon,
				Dec:    tv.Lat,
			}
			if v.Name == "" {
				v.Name = fmt.Sprintf("visit_%d", vi+1)
			}
			if v.Number == 0 {
				v.Number = vi + 1
			}
			for ei, te := range tv.Exposures {
				e := Exposure{
					Filters:       normalizeFilters(te.FilterNames),
					Detectors:     te.SCAIDs,
					Duration:      te.Duration,
					MATableNumber: te.MATableNumber,
					Segment:       te.Segment,
					Observation:   te.Observation,
					Exposure:      te.Exposure,
				}
				if len(e.Detectors) == 0 {
					e.Detectors = []int{1}
				}
				if e.Segment == 0 {
					e.Segment = 1
				}
				if e.Observation == 0 {
					e.Observation = 1
				}
				if e.Exposure == 0 {
					e.Exposure = ei + 1
				}
				v.Exposures = append(v.Exposures, e)
			}
			pass.Visits = append(pass.Visits, v)
		}
		out.Passes = append(out.Passes, pass)
	}
	return out, nil
}
