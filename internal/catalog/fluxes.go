package catalog

import (
	"fmt"
	"strings"

	"github.com/roman-dr/drsim/internal/model"
	"github.com/roman-dr/drsim/internal/table"
)

// ReadFluxCatalog loads an externally produced flux catalog (parquet, or
// ECSV for hand-built fixtures). It must carry a label column.
func ReadFluxCatalog(path string) (*table.Table, error) {
	var (
		t   *table.Table
		err error
	)
	if strings.HasSuffix(path, ".parquet") {
		t, err = table.ReadParquet(path)
	} else {
		t, err = table.ReadECSV(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, model.ErrFluxCatalogRead)
	}
	if t.Strings("label") == nil {
		return nil, fmt.Errorf("%s has no label column: %w", path, model.ErrFluxCatalogRead)
	}
	return t, nil
}

// LabelFluxUpdater matches correction rows to target rows by the label
// column and overwrites the target's per-band flux columns. A band column
// B in the target is corrected from the column segment_<b>_flux in the
// corrections table. Target rows with no matching label keep their
// original fluxes.
type LabelFluxUpdater struct{}

func (LabelFluxUpdater) UpdateFluxes(target, corrections *table.Table) (*table.Table, error) {
	targetLabels := target.Strings("label")
	if targetLabels == nil {
		return nil, fmt.Errorf("target catalog has no label column")
	}
	corrLabels := corrections.Strings("label")
	if corrLabels == nil {
		return nil, fmt.Errorf("flux catalog has no label column")
	}

	byLabel := make(map[string]int, len(corrLabels))
	for i, l := range corrLabels {
		byLabel[l] = i
	}

	for _, name := range target.Names() {
		if !isBandColumn(name) {
			continue
		}
		src := corrections.Floats("segment_" + strings.ToLower(name) + "_flux")
		if src == nil {
			continue
		}
		dst := target.Floats(name)
		updated := make([]float64, len(dst))
		copy(updated, dst)
		for row, label := range targetLabels {
			if i, ok := byLabel[label]; ok {
				updated[row] = src[i]
			}
		}
		if err := target.SetFloats(name, updated); err != nil {
			return nil, err
		}
	}
	return target, nil
}

// isBandColumn recognizes WFI bandpass flux columns: an uppercase F
// followed by the three-digit wavelength code.
func isBandColumn(name string) bool {
	if len(name) != 4 || name[0] != 'F' {
		return false
	}
	for _, r := range name[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
