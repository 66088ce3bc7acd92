package surrogate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

var ErrInsufficientData = errors.New("not enough training examples")

// Example is one labelled training point.
type Example struct {
	Input Input   `json:"input"`
	Yield float64 `json:"yield"`
}

type TrainConfig struct {
	MaxSamples   int
	TestFraction float64
	TopFraction  float64
	Seed         int64
	GP           GPConfig
}

func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		MaxSamples:   1500,
		TestFraction: 0.2,
		TopFraction:  0.2,
		Seed:         42,
		GP:           DefaultGPConfig(),
	}
}

type Report struct {
	Examples    int     `json:"examples"`
	TrainSize   int     `json:"train_size"`
	TestSize    int     `json:"test_size"`
	MSE         float64 `json:"mse"`
	R2          float64 `json:"r2"`
	LengthScale float64 `json:"length_scale"`
	Noise       float64 `json:"noise"`
	LogML       float64 `json:"log_marginal_likelihood"`
}

// Train builds the schema from the examples, holds out a seeded test split,
// subsamples the remainder to MaxSamples keeping the highest yields and fits
// a GP.
func Train(ctx context.Context, examples []Example, cfg TrainConfig) (*Model, Report, error) {
	var report Report
	if len(examples) < 2 {
		return nil, report, fmt.Errorf("%w: have %d", ErrInsufficientData, len(examples))
	}
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = DefaultTrainConfig().MaxSamples
	}
	if cfg.TestFraction < 0 || cfg.TestFraction >= 1 {
		return nil, report, fmt.Errorf("test fraction %g out of [0,1)", cfg.TestFraction)
	}
	if cfg.TopFraction < 0 || cfg.TopFraction > 1 {
		return nil, report, fmt.Errorf("top fraction %g out of [0,1]", cfg.TopFraction)
	}

	dim := len(examples[0].Input.Embedding)
	substrates := make([]string, 0, len(examples))
	for _, ex := range examples {
		substrates = append(substrates, ex.Input.Substrate)
	}
	schema, err := NewSchema(dim, substrates)
	if err != nil {
		return nil, report, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	order := rng.Perm(len(examples))
	nTest := int(math.Ceil(cfg.TestFraction * float64(len(examples))))
	if nTest >= len(examples) {
		nTest = len(examples) - 1
	}
	test := make([]Example, 0, nTest)
	train := make([]Example, 0, len(examples)-nTest)
	for i, idx := range order {
		if i < nTest {
			test = append(test, examples[idx])
		} else {
			train = append(train, examples[idx])
		}
	}
	train = subsample(train, cfg.MaxSamples, cfg.TopFraction, rng)

	x := make([][]float64, len(train))
	y := make([]float64, len(train))
	for i, ex := range train {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		v, err := schema.Vector(ex.Input)
		if err != nil {
			return nil, report, fmt.Errorf("training example %d: %w", i, err)
		}
		x[i], y[i] = v, ex.Yield
	}
	gp, err := FitGP(x, y, cfg.GP)
	if err != nil {
		return nil, report, err
	}
	m := &Model{Schema: schema, Regressor: gp}

	report = Report{
		Examples:    len(examples),
		TrainSize:   len(train),
		TestSize:    len(test),
		LengthScale: gp.LengthScale,
		Noise:       gp.Noise,
		LogML:       gp.LogML,
	}
	if len(test) > 0 {
		pred := make([]float64, len(test))
		truth := make([]float64, len(test))
		var sse float64
		for i, ex := range test {
			p, err := m.Predict(ex.Input)
			if err != nil {
				return nil, report, fmt.Errorf("test example %d: %w", i, err)
			}
			pred[i], truth[i] = p, ex.Yield
			sse += (p - ex.Yield) * (p - ex.Yield)
		}
		report.MSE = sse / float64(len(test))
		report.R2 = stat.RSquaredFrom(pred, truth, nil)
	}
	return m, report, nil
}

// subsample keeps the top fraction of max by yield and fills the rest with
// a seeded random draw from the remainder.
func subsample(train []Example, max int, topFraction float64, rng *rand.Rand) []Example {
	if len(train) <= max {
		return train
	}
	sorted := append([]Example(nil), train...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Yield > sorted[j].Yield })
	nTop := int(float64(max) * topFraction)
	out := make([]Example, 0, max)
	out = append(out, sorted[:nTop]...)
	rest := sorted[nTop:]
	for _, idx := range rng.Perm(len(rest))[:max-nTop] {
		out = append(out, rest[idx])
	}
	return out
}
