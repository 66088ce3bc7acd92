package design

import (
	"context"
	"errors"
	"fmt"

	"enzyflow/internal/model"
	"enzyflow/internal/sequence"
)

var ErrNoSurrogate = errors.New("optimization requires a trained surrogate")

const MechanismPredicted = "AI Predicted Structural Improvement"

// Proposal is the best surrogate-ranked single mutant of a base sequence.
type Proposal struct {
	Sequence       string  `json:"sequence"`
	Mutation       string  `json:"mutation"`
	PredictedYield float64 `json:"predicted_yield"`
	BaselineYield  float64 `json:"baseline_yield"`
	Delta          float64 `json:"delta"`
	Mechanism      string  `json:"mechanism"`
}

// Optimizer proposes mutations from surrogate predictions only. It never
// runs the oracle.
type Optimizer struct {
	Mutator *sequence.PointMutator
	Scorer  Scorer
}

// Propose draws attempts independent single mutants of base and returns the
// one with the largest predicted gain over base. The gain may be negative.
func (o *Optimizer) Propose(ctx context.Context, base string, env model.Environment, attempts int) (Proposal, error) {
	if o.Scorer == nil {
		return Proposal{}, ErrNoSurrogate
	}
	if o.Mutator == nil {
		return Proposal{}, errors.New("optimizer needs a mutator")
	}
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	baseline, err := o.Scorer.Score(ctx, base, env)
	if err != nil {
		return Proposal{}, fmt.Errorf("score wild type: %w", err)
	}

	var best Proposal
	found := false
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return Proposal{}, err
		}
		mutant, mut, err := o.Mutator.Propose(base)
		if err != nil {
			return Proposal{}, err
		}
		pred, err := o.Scorer.Score(ctx, mutant, env)
		if err != nil {
			return Proposal{}, fmt.Errorf("score %s: %w", mut, err)
		}
		if delta := pred - baseline; !found || delta > best.Delta {
			best = Proposal{
				Sequence:       mutant,
				Mutation:       mut.String(),
				PredictedYield: pred,
				BaselineYield:  baseline,
				Delta:          delta,
				Mechanism:      MechanismPredicted,
			}
			found = true
		}
	}
	return best, nil
}
