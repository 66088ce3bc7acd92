// Package dataset turns enzyme records into labelled yield samples by
// simulating every record over a grid of reaction conditions.
package dataset

import (
	"fmt"

	"enzyflow/internal/model"
)

// Grid is the cartesian set of conditions each record is simulated under.
type Grid struct {
	Temperatures []float64 `json:"temperatures"`
	PHs          []float64 `json:"phs"`
	Substrates   []string  `json:"substrates"`
}

func (g Grid) Size() int {
	return len(g.Temperatures) * len(g.PHs) * len(g.Substrates)
}

func (g Grid) Validate() error {
	if g.Size() == 0 {
		return fmt.Errorf("grid has an empty axis: %d temperatures, %d pHs, %d substrates",
			len(g.Temperatures), len(g.PHs), len(g.Substrates))
	}
	return nil
}

// DefaultActivity is the relative activity for any pairing absent from an
// ActivityMap.
const DefaultActivity = 0.05

// ActivityMap scales kcat by how well an enzyme class acts on a substrate.
type ActivityMap map[model.Specificity]map[string]float64

func DefaultActivityMap() ActivityMap {
	return ActivityMap{
		model.SpecificityCellulase: {"Cellulose": 1.0, "Xylan": 0.1, "Bagasse": 0.70},
		model.SpecificityXylanase:  {"Cellulose": 0.1, "Xylan": 1.0, "Bagasse": 0.40},
	}
}

func (a ActivityMap) Activity(spec model.Specificity, substrate string) float64 {
	if bySub, ok := a[spec]; ok {
		if v, ok := bySub[substrate]; ok {
			return v
		}
	}
	return DefaultActivity
}
