package design

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"enzyflow/internal/model"
	"enzyflow/internal/sequence"
)

var ErrNegativeRounds = errors.New("rounds must be >= 0")

const (
	DefaultCandidates = 10
	DefaultAttempts   = 20
	initialMutation   = "Initial"
	DefaultStartID    = "WT"
)

type RoundObserver interface {
	ObserveDesignRound(kind string)
}

// Loop runs design rounds. A nil Scorer ranks every candidate at zero, so
// the first proposal is tested each round.
type Loop struct {
	Mutator    *sequence.PointMutator
	Scorer     Scorer
	Evaluator  Evaluator
	Candidates int
	// Policy scales Candidates per round. Nil keeps it fixed.
	Policy   CandidatePolicy
	Logger   *zap.Logger
	Observer RoundObserver
	// Store receives every promoted enzyme when non-nil.
	Store Saver
	// Parent is the record the starting sequence belongs to. Its zero value
	// falls back to the session start id.
	Parent model.EnzymeRecord
}

// Run evaluates the starting sequence as round 0 when the session is fresh,
// then performs rounds design rounds. The returned history has one entry
// per round and BestYield never decreases.
func (l *Loop) Run(ctx context.Context, s *Session, env model.Environment, rounds int) (model.DesignHistory, error) {
	if l.Mutator == nil || l.Evaluator == nil {
		return model.DesignHistory{}, errors.New("design loop needs a mutator and an evaluator")
	}
	if rounds < 0 {
		return model.DesignHistory{}, fmt.Errorf("%w: got %d", ErrNegativeRounds, rounds)
	}
	base := l.Candidates
	if base <= 0 {
		base = DefaultCandidates
	}
	policy := l.Policy
	if policy == nil {
		policy = FixedCandidates{}
	}

	s.mu.Lock()
	s.history.Environment = env
	s.mu.Unlock()

	if s.rounds() == 0 {
		start, _ := s.Best()
		m, err := l.Evaluator.Evaluate(ctx, start, env)
		if err != nil {
			return model.DesignHistory{}, err
		}
		l.logFailure(0, m)
		s.record(model.DesignRound{Round: 0, Yield: m.Yield, Kcat: m.Kcat, Mutation: initialMutation, Kind: model.RoundInitial}, nil, start)
		l.observe(0, initialMutation, m.Yield, model.RoundInitial)
	}

	first := s.rounds()
	for r := first; r < first+rounds; r++ {
		if err := ctx.Err(); err != nil {
			return model.DesignHistory{}, err
		}
		best, bestYield := s.Best()
		k := policy.Candidates(base, r-first, rounds, best)
		if k < 1 {
			k = 1
		}

		candidates := make([]model.Candidate, 0, k)
		pick := -1
		for i := 0; i < k; i++ {
			mutant, mut, err := l.Mutator.Propose(best)
			if err != nil {
				return model.DesignHistory{}, err
			}
			var pred float64
			if l.Scorer != nil {
				pred, err = l.Scorer.Score(ctx, mutant, env)
				if err != nil {
					return model.DesignHistory{}, fmt.Errorf("round %d: score %s: %w", r, mut, err)
				}
			}
			candidates = append(candidates, model.Candidate{Sequence: mutant, Mutation: mut.String(), PredictedYield: pred})
			if pick < 0 || pred > candidates[pick].PredictedYield {
				pick = i
			}
		}

		chosen := candidates[pick]
		m, err := l.Evaluator.Evaluate(ctx, chosen.Sequence, env)
		if err != nil {
			return model.DesignHistory{}, err
		}
		l.logFailure(r, m)
		measured := m.Yield
		candidates[pick].MeasuredYield = &measured

		kind := model.RoundExploration
		if m.Yield > bestYield {
			kind = model.RoundNewBest
		}
		s.record(model.DesignRound{Round: r, Yield: m.Yield, Kcat: m.Kcat, Mutation: chosen.Mutation, Kind: kind}, candidates, chosen.Sequence)
		l.observe(r, chosen.Mutation, m.Yield, kind)
		if kind == model.RoundNewBest {
			if _, err := s.Promote(ctx, l.Store, l.parent(s), chosen.Sequence, chosen.Mutation, m.Params); err != nil {
				return model.DesignHistory{}, fmt.Errorf("round %d: promote: %w", r, err)
			}
		}
	}
	return s.History(), nil
}

// parent is the latest promoted enzyme, so each new best extends the chain.
func (l *Loop) parent(s *Session) model.EnzymeRecord {
	if pool := s.Pool(); len(pool) > 0 {
		return pool[len(pool)-1]
	}
	if l.Parent.ID != "" {
		return l.Parent
	}
	id := s.StartID()
	if id == "" {
		id = DefaultStartID
	}
	return model.EnzymeRecord{ID: id, Sequence: s.StartSequence(), Specificity: model.SpecificityCellulase}
}

func (l *Loop) observe(round int, mutation string, yield float64, kind model.RoundKind) {
	l.logger().Info("design round",
		zap.Int("round", round),
		zap.String("mutation", mutation),
		zap.Float64("yield", yield),
		zap.String("kind", string(kind)),
	)
	if l.Observer != nil {
		l.Observer.ObserveDesignRound(string(kind))
	}
}

func (l *Loop) logFailure(round int, m model.Measurement) {
	if m.Failed {
		l.logger().Warn("oracle measurement failed", zap.Int("round", round), zap.String("reason", m.Reason))
	}
}

func (l *Loop) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}
