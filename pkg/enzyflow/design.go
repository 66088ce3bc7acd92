package enzyflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"enzyflow/internal/design"
	"enzyflow/internal/model"
	"enzyflow/internal/sequence"
	"enzyflow/internal/stats"
)

// DesignRequest starts a run from StartSequence, or from the stored
// sequence of StartID when StartSequence is empty. Zero counts select the
// configured defaults.
type DesignRequest struct {
	StartSequence string            `json:"start_sequence,omitempty"`
	StartID       string            `json:"start_id,omitempty"`
	Environment   model.Environment `json:"environment"`
	Rounds        int               `json:"rounds,omitempty"`
	Candidates    int               `json:"candidates,omitempty"`
	Seed          int64             `json:"seed,omitempty"`
}

type DesignSummary struct {
	History      model.DesignHistory   `json:"history"`
	Promoted     []model.EnzymeRecord  `json:"promoted"`
	Lineage      []model.LineageRecord `json:"lineage"`
	ArtifactsDir string                `json:"artifacts_dir,omitempty"`
}

// RunActiveLearning runs the design loop and persists the history, the
// promoted enzymes and their lineage.
func (c *Client) RunActiveLearning(ctx context.Context, req DesignRequest) (DesignSummary, error) {
	if req.Rounds < 0 {
		return DesignSummary{}, fmt.Errorf("%w: rounds must be >= 0, got %d", ErrInvalidRequest, req.Rounds)
	}
	if req.Rounds == 0 {
		req.Rounds = c.cfg.Design.Rounds
	}
	if req.Candidates == 0 {
		req.Candidates = c.cfg.Design.Candidates
	}

	parent := model.EnzymeRecord{}
	seq := sequence.Normalize(req.StartSequence)
	if req.StartID != "" {
		rec, found, err := c.store.GetEnzyme(ctx, req.StartID)
		if err != nil {
			return DesignSummary{}, err
		}
		if found {
			parent = rec
		} else {
			parent = model.EnzymeRecord{ID: req.StartID, Specificity: model.SpecificityCellulase}
		}
		if seq == "" {
			res, err := c.resolve(ctx, req.StartID)
			if err != nil {
				return DesignSummary{}, err
			}
			seq = res.Sequence
		}
		parent.Sequence = seq
	}
	if seq == "" {
		return DesignSummary{}, fmt.Errorf("%w: design run needs a start sequence or a start id", ErrInvalidRequest)
	}

	policy, err := design.CandidatePolicyFromConfig(c.cfg.Design.CandidatePolicy, c.cfg.Design.CandidatePolicyParam)
	if err != nil {
		return DesignSummary{}, err
	}

	runID := uuid.NewString()
	session := design.NewSession(runID, req.StartID, seq)
	loop := &design.Loop{
		Mutator:    c.mutator(req.Seed),
		Scorer:     c.scorer(),
		Evaluator:  c.evaluator(),
		Candidates: req.Candidates,
		Policy:     policy,
		Logger:     c.logger.With(zap.String("run_id", runID)),
		Store:      c.store,
		Parent:     parent,
	}
	if c.metrics != nil {
		loop.Observer = c.metrics
	}

	history, err := loop.Run(ctx, session, req.Environment, req.Rounds)
	if err != nil {
		return DesignSummary{}, err
	}
	out := DesignSummary{History: history, Promoted: session.Pool(), Lineage: session.Lineage()}

	if err := c.store.SaveDesignHistory(ctx, history); err != nil {
		return out, fmt.Errorf("save design history: %w", err)
	}
	if err := c.store.SaveLineage(ctx, runID, out.Lineage); err != nil {
		return out, fmt.Errorf("save lineage: %w", err)
	}
	if c.artifactsDir != "" {
		dir, err := stats.WriteDesignArtifacts(c.artifactsDir, history)
		if err != nil {
			return out, err
		}
		if err := stats.WriteLineage(dir, out.Lineage); err != nil {
			return out, err
		}
		if err := stats.AppendRunIndex(c.artifactsDir, stats.IndexEntry(history)); err != nil {
			return out, err
		}
		out.ArtifactsDir = dir
	}
	c.logger.Info("design run complete",
		zap.String("run_id", runID),
		zap.Int("rounds", len(history.Rounds)),
		zap.Float64("best_yield", history.BestYield),
		zap.Int("promoted", len(out.Promoted)),
	)
	return out, nil
}

// OptimizeRequest names the base by EnzymeID or gives it as Sequence.
type OptimizeRequest struct {
	EnzymeID    string            `json:"enzyme_id,omitempty"`
	Sequence    string            `json:"sequence,omitempty"`
	Environment model.Environment `json:"environment"`
	Attempts    int               `json:"attempts,omitempty"`
	Seed        int64             `json:"seed,omitempty"`
}

// ProposeOptimization ranks single mutants of the base with the surrogate
// alone. It fails with sequence.ErrMissingLineage when neither the record
// nor its parent carries a sequence.
func (c *Client) ProposeOptimization(ctx context.Context, req OptimizeRequest) (design.Proposal, error) {
	seq := sequence.Normalize(req.Sequence)
	if seq == "" {
		if req.EnzymeID == "" {
			return design.Proposal{}, fmt.Errorf("%w: optimization needs a sequence or an enzyme id", ErrInvalidRequest)
		}
		res, err := c.resolve(ctx, req.EnzymeID)
		if err != nil {
			return design.Proposal{}, err
		}
		seq = res.Sequence
	}
	if req.Attempts == 0 {
		req.Attempts = c.cfg.Design.Attempts
	}

	scorer := c.scorer()
	if scorer == nil {
		return design.Proposal{}, design.ErrNoSurrogate
	}
	opt := &design.Optimizer{Mutator: c.mutator(req.Seed), Scorer: scorer}
	return opt.Propose(ctx, seq, req.Environment, req.Attempts)
}

// DesignHistory loads a stored run and its lineage.
func (c *Client) DesignHistory(ctx context.Context, runID string) (model.DesignHistory, []model.LineageRecord, error) {
	h, found, err := c.store.GetDesignHistory(ctx, runID)
	if err != nil {
		return model.DesignHistory{}, nil, err
	}
	if !found {
		return model.DesignHistory{}, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	lineage, _, err := c.store.GetLineage(ctx, runID)
	if err != nil {
		return model.DesignHistory{}, nil, err
	}
	return h, lineage, nil
}

func (c *Client) DesignRuns(ctx context.Context) ([]string, error) {
	return c.store.ListDesignRuns(ctx)
}

func (c *Client) resolve(ctx context.Context, id string) (sequence.Resolution, error) {
	res, err := sequence.ResolveSequence(ctx, func(ctx context.Context, id string) (model.EnzymeRecord, bool, error) {
		return c.store.GetEnzyme(ctx, id)
	}, id)
	if err != nil {
		return res, err
	}
	if res.FromParent {
		c.logger.Info("sequence recovered from parent", zap.String("id", id), zap.String("parent", res.SourceID))
	}
	return res, nil
}

// scorer returns nil when no surrogate is loaded.
func (c *Client) scorer() design.Scorer {
	m := c.Surrogate()
	if m == nil {
		return nil
	}
	s := &design.SurrogateScorer{Model: m, Embedder: c.embedder}
	if c.metrics != nil {
		s.Observer = c.metrics
	}
	return s
}

func (c *Client) evaluator() *design.OracleEvaluator {
	e := design.NewOracleEvaluator(c.oracle, c.simulator, c.cache, c.logger)
	if c.metrics != nil {
		e.Observer = c.metrics
	}
	return e
}
