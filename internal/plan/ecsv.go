package plan

import (
	"fmt"

	"github.com/roman-dr/drsim/internal/model"
	"github.com/roman-dr/drsim/internal/table"
)

// Columns the tabular plan form must carry, one row per exposure.
var requiredColumns = []string{
	"PLAN", "PASS", "VISIT", "RA", "DEC", "PA", "BANDPASS",
	"DURATION", "MA_TABLE_NUMBER", "SEGMENT", "OBSERVATION", "EXPOSURE",
}

// ReadECSV parses the tabular observation plan form. Rows are grouped
// first by (plan, pass), then by visit, both preserving first-seen order;
// each bandpass row becomes one exposure.
func ReadECSV(path string) (*ObservationPlan, error) {
	tab, err := table.ReadECSV(path)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, model.ErrFormat)
	}
	for _, col := range requiredColumns {
		if !tab.HasColumn(col) {
			return nil, fmt.Errorf("%s: %w: %s", path, model.ErrMissingColumn, col)
		}
	}

	type passKey struct{ plan, pass int }

	out := &ObservationPlan{}
	passIdx := make(map[passKey]int)
	visitIdx := make(map[passKey]map[int]int)

	for row := range tab.Len() {
		planNo, err := intAt(tab, "PLAN", row)
		if err != nil {
			return nil, err
		}
		passNo, err := intAt(tab, "PASS", row)
		if err != nil {
			return nil, err
		}
		visitNo, err := intAt(tab, "VISIT", row)
		if err != nil {
			return nil, err
		}

		pk := passKey{planNo, passNo}
		pi, ok := passIdx[pk]
		if !ok {
			pi = len(out.Passes)
			passIdx[pk] = pi
			visitIdx[pk] = make(map[int]int)
			out.Passes = append(out.Passes, Pass{
				Name:   fmt.Sprintf("plan_%d_pass_%d", planNo, passNo),
				Plan:   planNo,
				Number: passNo,
				Roll:   floatAt(tab, "PA", row),
			})
		}

		vi, ok := visitIdx[pk][visitNo]
		if !ok {
			vi = len(out.Passes[pi].Visits)
			visitIdx[pk][visitNo] = vi
			out.Passes[pi].Visits = append(out.Passes[pi].Visits, Visit{
				Name:   fmt.Sprintf("visit_%d", visitNo),
				Number: visitNo,
				RA:     floatAt(tab, "RA", row),
				Dec:    floatAt(tab, "DEC", row),
			})
		}

		duration, err := intAt(tab, "DURATION", row)
		if err != nil {
			return nil, err
		}
		maTable, err := intAt(tab, "MA_TABLE_NUMBER", row)
		if err != nil {
			return nil, err
		}
		segment, err := intAt(tab, "SEGMENT", row)
		if err != nil {
			return nil, err
		}
		observation, err := intAt(tab, "OBSERVATION", row)
		if err != nil {
			return nil, err
		}
		exposure, err := intAt(tab, "EXPOSURE", row)
		if err != nil {
			return nil, err
		}

		visit := &out.Passes[pi].Visits[vi]
		visit.Exposures = append(visit.Exposures, Exposure{
			Filters:       normalizeFilters([]string{stringAt(tab, "BANDPASS", row)}),
			Detectors:     []int{1},
			Duration:      duration,
			MATableNumber: maTable,
			Segment:       segment,
			Observation:   observation,
			Exposure:      exposure,
		})
	}
	return out, nil
}

func intAt(t *table.Table, name string, row int) (int, error) {
	c, _ := t.Column(name)
	switch c.Kind {
	case table.Int64:
		return int(c.I[row]), nil
	case table.Float64:
		return int(c.F[row]), nil
	default:
		return 0, fmt.Errorf("column %s is not numeric: %w", name, model.ErrFormat)
	}
}

func floatAt(t *table.Table, name string, row int) float64 {
	c, _ := t.Column(name)
	switch c.Kind {
	case table.Float64:
		return c.F[row]
	case table.Int64:
		return float64(c.I[row])
	default:
		return 0
	}
}

func stringAt(t *table.Table, name string, row int) string {
	c, _ := t.Column(name)
	if c.Kind == table.String {
		return c.S[row]
	}
	return ""
}
