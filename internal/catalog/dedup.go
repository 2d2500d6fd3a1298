package catalog

import (
	"fmt"

	"github.com/roman-dr/drsim/internal/table"
)

// Deduplicate concatenates the input tables and keeps the first row seen
// for each rounded (ra, dec) coordinate string, ties broken by
// concatenation order.
//
// The key is the decimal string of both coordinates at the given
// precision. This is deliberately NOT a spherical nearest-neighbor
// dedup: two positions that round differently stay distinct even when
// they are astronomically identical. Downstream consumers depend on this
// string equivalence, do not replace it with a distance cut.
func Deduplicate(tables []*table.Table, precision int) (*table.Table, error) {
	merged, err := table.Vstack(tables...)
	if err != nil {
		return nil, err
	}

	ra := merged.Floats("ra")
	dec := merged.Floats("dec")
	if ra == nil || dec == nil {
		return nil, fmt.Errorf("merged catalog lacks ra/dec float columns")
	}

	seen := make(map[string]struct{}, merged.Len())
	keep := make([]int, 0, merged.Len())
	for i := range merged.Len() {
		key := fmt.Sprintf("%.*f_%.*f", precision, ra[i], precision, dec[i])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}
	if len(keep) == merged.Len() {
		return merged, nil
	}
	return merged.Select(keep), nil
}
