package design

import (
	"fmt"
	"math"
)

// CandidatePolicy decides how many mutants a round proposes. round counts
// from 0 within one Run call.
type CandidatePolicy interface {
	Name() string
	Candidates(base, round, totalRounds int, best string) int
}

type FixedCandidates struct{}

func (FixedCandidates) Name() string { return "fixed" }

func (FixedCandidates) Candidates(base, _, _ int, _ string) int {
	if base < 0 {
		return 0
	}
	return base
}

// LinearDecayCandidates narrows the search as the run converges.
type LinearDecayCandidates struct {
	MinCandidates int
}

func (LinearDecayCandidates) Name() string { return "linear_decay" }

func (p LinearDecayCandidates) Candidates(base, round, totalRounds int, _ string) int {
	if base <= 0 {
		return 0
	}
	if totalRounds <= 0 {
		return base
	}
	remaining := totalRounds - round
	if remaining < 1 {
		remaining = 1
	}
	n := (base * remaining) / totalRounds
	if n < p.MinCandidates {
		n = p.MinCandidates
	}
	return n
}

// LengthScaledCandidates grows the pool with the sequence length, one
// extra base pool per Scale residues, capped at MaxCandidates when set.
type LengthScaledCandidates struct {
	Scale         float64
	MaxCandidates int
}

func (LengthScaledCandidates) Name() string { return "length_scaled" }

func (p LengthScaledCandidates) Candidates(base, _, _ int, best string) int {
	if base <= 0 {
		return 0
	}
	scale := p.Scale
	if scale <= 0 {
		scale = 500
	}
	n := int(math.Round(float64(base) * (1 + float64(len(best))/scale)))
	if p.MaxCandidates > 0 && n > p.MaxCandidates {
		n = p.MaxCandidates
	}
	return n
}

// CandidatePolicyFromConfig builds a policy by name. param is the minimum
// for linear_decay and the residue scale for length_scaled.
func CandidatePolicyFromConfig(name string, param float64) (CandidatePolicy, error) {
	switch name {
	case "", "fixed", "const":
		return FixedCandidates{}, nil
	case "linear_decay":
		min := int(param)
		if min < 1 {
			min = 1
		}
		return LinearDecayCandidates{MinCandidates: min}, nil
	case "length_scaled":
		return LengthScaledCandidates{Scale: param}, nil
	default:
		return nil, fmt.Errorf("unsupported candidate policy: %s", name)
	}
}
