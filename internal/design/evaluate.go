package design

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"enzyflow/internal/cache"
	"enzyflow/internal/embed"
	"enzyflow/internal/kinetics"
	"enzyflow/internal/model"
	"enzyflow/internal/oracle"
	"enzyflow/internal/surrogate"
)

// Evaluator measures the true yield of a sequence.
type Evaluator interface {
	Evaluate(ctx context.Context, seq string, env model.Environment) (model.Measurement, error)
}

// Scorer predicts the yield of a sequence without running the oracle.
type Scorer interface {
	Score(ctx context.Context, seq string, env model.Environment) (float64, error)
}

type CacheObserver interface {
	ObserveCache(hit bool)
}

type PredictionObserver interface {
	ObservePrediction(err error)
}

// Oracle measurement conditions.
const (
	OracleSubstrate = 100.0
	OracleEnzyme    = 1e-5
	OracleDuration  = 24 * 3600.0
)

// OracleEvaluator maps a sequence to kinetics with the sequence oracle and
// simulates a single-enzyme reaction. Integration failures come back as a
// failed measurement with zero yield, not as an error.
type OracleEvaluator struct {
	Oracle    *oracle.Oracle
	Simulator *kinetics.Simulator
	Cache     cache.Cache
	Observer  CacheObserver
	Logger    *zap.Logger
}

func NewOracleEvaluator(o *oracle.Oracle, sim *kinetics.Simulator, c cache.Cache, logger *zap.Logger) *OracleEvaluator {
	return &OracleEvaluator{Oracle: o, Simulator: sim, Cache: c, Logger: logger}
}

func (e *OracleEvaluator) Evaluate(ctx context.Context, seq string, env model.Environment) (model.Measurement, error) {
	key := cache.Key(seq, env)
	if e.Cache != nil {
		m, ok, err := e.Cache.Get(ctx, key)
		if err != nil {
			e.logger().Warn("measurement cache read failed", zap.Error(err))
		}
		if e.Observer != nil {
			e.Observer.ObserveCache(ok)
		}
		if ok {
			return m, nil
		}
	}

	params, _ := e.Oracle.Evaluate(seq)
	m := model.Measurement{Kcat: params.Kcat, Params: params}
	trace, err := e.Simulator.SimulateSingle(ctx, kinetics.SingleRequest{
		Params:        params,
		Env:           env,
		SubstrateInit: OracleSubstrate,
		EnzymeConc:    OracleEnzyme,
		Duration:      OracleDuration,
	})
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return model.Measurement{}, err
	case err != nil:
		m.Failed = true
		m.Reason = err.Error()
	default:
		p, _ := trace.Final(kinetics.SpeciesProduct)
		m.Yield = p / OracleSubstrate
	}

	if e.Cache != nil {
		if err := e.Cache.Set(ctx, key, m); err != nil {
			e.logger().Warn("measurement cache write failed", zap.Error(err))
		}
	}
	return m, nil
}

func (e *OracleEvaluator) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// SurrogateScorer embeds a sequence and asks the trained model for a yield.
type SurrogateScorer struct {
	Model    *surrogate.Model
	Embedder embed.Embedder
	Observer PredictionObserver
}

func (s *SurrogateScorer) Score(ctx context.Context, seq string, env model.Environment) (float64, error) {
	y, err := s.score(ctx, seq, env)
	if s.Observer != nil {
		s.Observer.ObservePrediction(err)
	}
	return y, err
}

func (s *SurrogateScorer) score(ctx context.Context, seq string, env model.Environment) (float64, error) {
	if s.Model == nil || s.Embedder == nil {
		return 0, errors.New("surrogate scorer needs a model and an embedder")
	}
	vec, err := s.Embedder.Embed(ctx, seq)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	return s.Model.Predict(surrogate.Input{
		Embedding:   vec,
		Temperature: env.Temperature,
		PH:          env.PH,
		Substrate:   env.Substrate,
	})
}
