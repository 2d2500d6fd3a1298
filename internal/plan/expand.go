package plan

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/roman-dr/drsim/internal/model"
)

// CatalogJob is one independent catalog-assembly unit: a sky region and
// the file the merged catalog ends up in.
type CatalogJob struct {
	PassName  string
	VisitName string
	RA        float64
	Dec       float64
	Radius    float64
	Output    string
}

// ImageJob is one independent image-simulation unit. Jobs are immutable
// once expanded; no job depends on another job's side effects.
type ImageJob struct {
	RA            float64
	Dec           float64
	Roll          float64
	SCA           int
	Bandpass      string
	MATableNumber int
	Catalog       string
	Output        string
}

// ExpandCatalogs produces one job per (pass, visit), writing per-visit
// catalogs named after the pass and visit.
func ExpandCatalogs(p *ObservationPlan, radius float64, ext string) ([]CatalogJob, error) {
	var jobs []CatalogJob
	for pass, v := range p.Visits {
		jobs = append(jobs, CatalogJob{
			PassName:  pass.Name,
			VisitName: v.Name,
			RA:        v.RA,
			Dec:       v.Dec,
			Radius:    radius,
			Output:    fmt.Sprintf("%s_%s_cat.%s", pass.Name, v.Name, ext),
		})
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("catalog expansion: %w", model.ErrEmptyPlan)
	}
	return jobs, nil
}

// BoundingCircleMargin widens the master-catalog radius past the farthest
// visit so detector footprints at the edge stay covered.
const BoundingCircleMargin = 0.3

// BoundingCircle computes the single center/radius covering every visit:
// center is the mean of visit coordinates, radius the maximum angular
// separation from that center to any visit plus the safety margin.
func BoundingCircle(p *ObservationPlan) (ra, dec, radius float64) {
	var n int
	for _, v := range p.Visits {
		ra += v.RA
		dec += v.Dec
		n++
	}
	if n == 0 {
		return 0, 0, BoundingCircleMargin
	}
	ra /= float64(n)
	dec /= float64(n)

	var maxSep float64
	for _, v := range p.Visits {
		maxSep = math.Max(maxSep, angularSeparation(ra, dec, v.RA, v.Dec))
	}
	return ra, dec, maxSep + BoundingCircleMargin
}

// angularSeparation returns the great-circle distance in degrees between
// two sky positions, via the haversine formula.
func angularSeparation(ra1, dec1, ra2, dec2 float64) float64 {
	const d2r = math.Pi / 180
	dRA := (ra2 - ra1) * d2r
	dDec := (dec2 - dec1) * d2r
	a := math.Sin(dDec/2)*math.Sin(dDec/2) +
		math.Cos(dec1*d2r)*math.Cos(dec2*d2r)*math.Sin(dRA/2)*math.Sin(dRA/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(a))) / d2r
}

// ImageOptions carries per-run values shared by every expanded image job.
type ImageOptions struct {
	Program int
	Catalog string // input catalog path
	SCAIDs  []int  // override; nil keeps the plan's detector lists
	Suffix  string // e.g. "uncal"
}

// ExpandImages produces one job per (pass, visit, exposure, detector,
// filter). Filenames are deterministic and collision-free across a plan,
// so concurrently running jobs never write the same file.
func ExpandImages(p *ObservationPlan, opts ImageOptions) ([]ImageJob, error) {
	program := opts.Program
	if program == 0 {
		program = 1
	}
	suffix := opts.Suffix
	if suffix == "" {
		suffix = "uncal"
	}

	var jobs []ImageJob
	for pass, v := range p.Visits {
		for _, e := range v.Exposures {
			detectors := opts.SCAIDs
			if detectors == nil {
				detectors = e.Detectors
			}
			for _, sca := range detectors {
				for _, filt := range e.Filters {
					bandpass := strings.ToUpper(filt)
					jobs = append(jobs, ImageJob{
						RA:            v.RA,
						Dec:           v.Dec,
						Roll:          pass.Roll,
						SCA:           sca,
						Bandpass:      bandpass,
						MATableNumber: e.MATableNumber,
						Catalog:       opts.Catalog,
						Output: Filename(program, pass.Plan, pass.Number,
							e.Segment, e.Observation, v.Number, e.Exposure,
							sca, bandpass, suffix),
					})
				}
			}
		}
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("image expansion: %w", model.ErrEmptyPlan)
	}
	return jobs, nil
}

// Filename encodes the deterministic output name
// r{program}{plan:02}{pass:03}{segment:03}{observation:03}{visit:03}_{exposure:04}_wfi{sca:02}_{bandpass_lower}_{suffix}.asdf
// and must stay bit-exact: downstream pipelines parse it back.
func Filename(program, planNo, passNo, segment, observation, visit, exposure, sca int, bandpass, suffix string) string {
	return fmt.Sprintf("r%d%02d%03d%03d%03d%03d_%04d_wfi%02d_%s_%s.asdf",
		program, planNo, passNo, segment, observation, visit, exposure,
		sca, strings.ToLower(bandpass), suffix)
}

// CatalogName derives the default output catalog name from the plan
// filename by appending _cat to the stem: data/obs_plan.ecsv ->
// data/obs_plan_cat.ecsv.
func CatalogName(planPath string) string {
	ext := filepath.Ext(planPath)
	stem := strings.TrimSuffix(planPath, ext)
	return stem + "_cat" + ext
}

// SCAList resolves a detector id list: nil means detector 1 only, a
// single negative value is the sentinel for all 17 detectors.
func SCAList(ids []int) []int {
	if ids == nil {
		return []int{1}
	}
	if len(ids) == 1 && ids[0] < 0 {
		all := make([]int, 17)
		for i := range all {
			all[i] = i + 1
		}
		return all
	}
	return ids
}
