package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"enzyflow/internal/kinetics"
	"enzyflow/internal/model"
)

// Sample is one labelled simulation outcome.
type Sample struct {
	ID          string            `json:"id"`
	Temperature float64           `json:"temp"`
	PH          float64           `json:"ph"`
	Substrate   string            `json:"substrate"`
	Yield       float64           `json:"yield"`
	Kcat        float64           `json:"kcat_base"`
	Km          float64           `json:"km_base"`
	Specificity model.Specificity `json:"enzyme_type"`
}

// Failure records a task that produced no sample.
type Failure struct {
	ID          string  `json:"id"`
	Temperature float64 `json:"temp"`
	PH          float64 `json:"ph"`
	Substrate   string  `json:"substrate"`
	Reason      string  `json:"reason"`
}

type Result struct {
	Samples  []Sample  `json:"samples"`
	Failures []Failure `json:"failures"`
	Elapsed  time.Duration
}

// TaskObserver receives one call per finished task.
type TaskObserver interface {
	ObserveDatasetTask(err error)
}

type Generator struct {
	Simulator  *kinetics.Simulator
	Activity   ActivityMap
	Workers    int
	Substrate  float64
	EnzymeConc float64
	Duration   float64
	Logger     *zap.Logger
	Observer   TaskObserver
}

func NewGenerator(sim *kinetics.Simulator, logger *zap.Logger) *Generator {
	return &Generator{
		Simulator:  sim,
		Activity:   DefaultActivityMap(),
		Workers:    runtime.NumCPU(),
		Substrate:  kinetics.DefaultSubstrate,
		EnzymeConc: 1e-5,
		Duration:   kinetics.DefaultDuration,
		Logger:     logger,
	}
}

type task struct {
	idx       int
	record    model.EnzymeRecord
	temp, ph  float64
	substrate string
}

type outcome struct {
	idx     int
	sample  Sample
	failure *Failure
	err     error
}

// Generate runs one simulation per (record, substrate, temperature, pH).
// Every task yields either a sample or a failure; output follows task
// order regardless of worker scheduling. Only cancellation aborts the batch.
func (g *Generator) Generate(ctx context.Context, records []model.EnzymeRecord, grid Grid) (Result, error) {
	if err := grid.Validate(); err != nil {
		return Result{}, err
	}
	start := time.Now()

	tasks := make([]task, 0, len(records)*grid.Size())
	for _, rec := range records {
		for _, sub := range grid.Substrates {
			for _, temp := range grid.Temperatures {
				for _, ph := range grid.PHs {
					tasks = append(tasks, task{idx: len(tasks), record: rec, temp: temp, ph: ph, substrate: sub})
				}
			}
		}
	}
	if len(tasks) == 0 {
		return Result{}, nil
	}

	workerCount := g.Workers
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > len(tasks) {
		workerCount = len(tasks)
	}

	jobs := make(chan task)
	results := make(chan outcome, len(tasks))

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for t := range jobs {
				if err := ctx.Err(); err != nil {
					results <- outcome{idx: t.idx, err: err}
					continue
				}
				results <- g.run(ctx, t)
			}
		}()
	}

feed:
	for _, t := range tasks {
		select {
		case jobs <- t:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)

	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	ordered := make([]outcome, len(tasks))
	for res := range results {
		if res.err != nil {
			return Result{}, res.err
		}
		ordered[res.idx] = res
	}

	var out Result
	for _, res := range ordered {
		if res.failure != nil {
			out.Failures = append(out.Failures, *res.failure)
			continue
		}
		out.Samples = append(out.Samples, res.sample)
	}
	out.Elapsed = time.Since(start)
	g.logger().Info("dataset batch complete",
		zap.Int("total", len(tasks)),
		zap.Int("valid", len(out.Samples)),
		zap.Int("failed", len(out.Failures)),
		zap.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

func (g *Generator) run(ctx context.Context, t task) outcome {
	s0 := g.Substrate
	if s0 <= 0 {
		s0 = kinetics.DefaultSubstrate
	}
	params := t.record.Kinetics
	params.Kcat *= g.Activity.Activity(t.record.Specificity, t.substrate)

	trace, err := g.Simulator.SimulateSingle(ctx, kinetics.SingleRequest{
		Params:        params,
		Env:           model.Environment{Temperature: t.temp, PH: t.ph, Substrate: t.substrate},
		SubstrateInit: s0,
		EnzymeConc:    g.EnzymeConc,
		Duration:      g.Duration,
	})
	if g.Observer != nil {
		g.Observer.ObserveDatasetTask(err)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return outcome{idx: t.idx, err: err}
		}
		return outcome{idx: t.idx, failure: &Failure{
			ID: t.record.ID, Temperature: t.temp, PH: t.ph, Substrate: t.substrate, Reason: err.Error(),
		}}
	}
	p, ok := trace.Final(kinetics.SpeciesProduct)
	if !ok {
		return outcome{idx: t.idx, failure: &Failure{
			ID: t.record.ID, Temperature: t.temp, PH: t.ph, Substrate: t.substrate, Reason: "empty trace",
		}}
	}
	return outcome{idx: t.idx, sample: Sample{
		ID:          t.record.ID,
		Temperature: t.temp,
		PH:          t.ph,
		Substrate:   t.substrate,
		Yield:       roundTo(p/s0, 4),
		Kcat:        t.record.Kinetics.Kcat,
		Km:          t.record.Kinetics.Km,
		Specificity: t.record.Specificity,
	}}
}

func (g *Generator) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func (f Failure) String() string {
	return fmt.Sprintf("%s %s T=%g pH=%g: %s", f.ID, f.Substrate, f.Temperature, f.PH, f.Reason)
}
