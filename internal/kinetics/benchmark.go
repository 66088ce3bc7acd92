package kinetics

import (
	"errors"
	"fmt"

	"enzyflow/internal/model"
)

var ErrTargetFraction = errors.New("target fraction out of (0,1]")

// TargetMode selects the threshold used by CompareTimeToTarget.
type TargetMode string

const (
	// TargetWildTypeFinal uses a fraction of the wild type's own final
	// concentration. This couples the threshold to one of the two runs
	// being compared.
	TargetWildTypeFinal TargetMode = "wildtype-final"
	// TargetTheoretical uses a fraction of the initial substrate.
	TargetTheoretical TargetMode = "theoretical"
)

// TimeToTarget returns the first sample time at which the species reaches
// target.
func TimeToTarget(trace model.SimulationTrace, species string, target float64) (float64, bool) {
	series := trace.Series(species)
	for i, v := range series {
		if v >= target {
			return trace.Samples[i].Time, true
		}
	}
	return 0, false
}

type Comparison struct {
	Mode     TargetMode `json:"mode"`
	Target   float64    `json:"target"`
	WildType *float64   `json:"wild_type_seconds,omitempty"`
	Mutant   *float64   `json:"mutant_seconds,omitempty"`
	// Reduction is the relative time saved by the mutant, in percent. Only
	// set when both runs reached the target.
	Reduction *float64 `json:"reduction_pct,omitempty"`
}

// CompareTimeToTarget measures how long each trace takes to reach fraction
// of the chosen reference level.
func CompareTimeToTarget(wt, mut model.SimulationTrace, species string, fraction float64, mode TargetMode) (Comparison, error) {
	if fraction <= 0 || fraction > 1 {
		return Comparison{}, fmt.Errorf("%w: %g", ErrTargetFraction, fraction)
	}
	var ref float64
	switch mode {
	case TargetWildTypeFinal:
		final, ok := wt.Final(species)
		if !ok {
			return Comparison{}, fmt.Errorf("wild-type trace has no species %q", species)
		}
		ref = final
	case TargetTheoretical:
		if len(wt.Samples) == 0 || len(wt.Species) == 0 {
			return Comparison{}, fmt.Errorf("wild-type trace is empty")
		}
		// Substrate is always the first species.
		ref = wt.Samples[0].Concentrations[0]
	default:
		return Comparison{}, fmt.Errorf("unknown target mode %q", mode)
	}

	cmp := Comparison{Mode: mode, Target: ref * fraction}
	if t, ok := TimeToTarget(wt, species, cmp.Target); ok {
		cmp.WildType = &t
	}
	if t, ok := TimeToTarget(mut, species, cmp.Target); ok {
		cmp.Mutant = &t
	}
	if cmp.WildType != nil && cmp.Mutant != nil && *cmp.WildType > 0 {
		r := (*cmp.WildType - *cmp.Mutant) / *cmp.WildType * 100
		cmp.Reduction = &r
	}
	return cmp, nil
}
