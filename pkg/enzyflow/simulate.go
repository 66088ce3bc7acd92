package enzyflow

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"enzyflow/internal/kinetics"
	"enzyflow/internal/model"
	"enzyflow/internal/sequence"
	"enzyflow/internal/stats"
)

// SimulateSingle fills unset request fields from the simulation config.
func (c *Client) SimulateSingle(ctx context.Context, req kinetics.SingleRequest) (model.SimulationTrace, error) {
	sim := c.cfg.Simulation
	if req.SubstrateInit == 0 {
		req.SubstrateInit = sim.Substrate
	}
	if req.EnzymeConc == 0 {
		req.EnzymeConc = sim.Enzyme
	}
	if req.Duration == 0 {
		req.Duration = sim.Duration
	}
	if req.Steps == 0 {
		req.Steps = sim.Steps
	}
	return c.simulator.SimulateSingle(ctx, req)
}

func (c *Client) SimulateCascade(ctx context.Context, req kinetics.CascadeRequest) (model.SimulationTrace, error) {
	sim := c.cfg.Simulation
	if req.SubstrateInit == 0 {
		req.SubstrateInit = sim.Substrate
	}
	if req.Duration == 0 {
		req.Duration = sim.Duration
	}
	if req.Steps == 0 {
		req.Steps = sim.Steps
	}
	return c.simulator.SimulateCascade(ctx, req)
}

type OracleResult struct {
	Params  model.KineticParams       `json:"params"`
	Invalid []sequence.InvalidResidue `json:"invalid_residues,omitempty"`
}

func (c *Client) OracleGroundTruth(seq string) OracleResult {
	params, invalid := c.oracle.Evaluate(sequence.Normalize(seq))
	return OracleResult{Params: params, Invalid: invalid}
}

type MutationResult struct {
	Sequence string `json:"sequence"`
	Mutation string `json:"mutation"`
}

// ProposeMutation draws one point mutant. A zero seed uses the configured
// design seed.
func (c *Client) ProposeMutation(seq string, seed int64) (MutationResult, error) {
	mutant, mut, err := c.mutator(seed).Propose(sequence.Normalize(seq))
	if err != nil {
		return MutationResult{}, err
	}
	return MutationResult{Sequence: mutant, Mutation: mut.String()}, nil
}

func (c *Client) ApplyMutation(seq, desc string) (string, error) {
	return sequence.Apply(sequence.Normalize(seq), desc)
}

func (c *Client) mutator(seed int64) *sequence.PointMutator {
	if seed == 0 {
		seed = c.cfg.Design.Seed
	}
	return sequence.NewPointMutator(rand.New(rand.NewSource(seed)))
}

// BenchmarkRequest compares a wild type and a mutant under one environment.
type BenchmarkRequest struct {
	WildType model.KineticParams `json:"wild_type"`
	Mutant   model.KineticParams `json:"mutant"`
	Env      model.Environment   `json:"environment"`
	// Fraction of the reference level that counts as reaching the target.
	Fraction float64             `json:"fraction,omitempty"`
	Mode     kinetics.TargetMode `json:"mode,omitempty"`
}

type BenchmarkResult struct {
	WildType   model.SimulationTrace `json:"wild_type"`
	Mutant     model.SimulationTrace `json:"mutant"`
	Comparison kinetics.Comparison   `json:"comparison"`
	// RunID and ArtifactsDir are set when the client persists artifacts.
	RunID        string `json:"run_id,omitempty"`
	ArtifactsDir string `json:"artifacts_dir,omitempty"`
}

const defaultTargetFraction = 0.5

// Benchmark runs both enzymes concurrently and compares their time to
// reach the product target.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (BenchmarkResult, error) {
	if req.Fraction == 0 {
		req.Fraction = defaultTargetFraction
	}
	if req.Mode == "" {
		req.Mode = kinetics.TargetTheoretical
	}
	if req.Fraction < 0 || req.Fraction > 1 {
		return BenchmarkResult{}, fmt.Errorf("%w: %w %g", ErrInvalidRequest, kinetics.ErrTargetFraction, req.Fraction)
	}

	var out BenchmarkResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		trace, err := c.SimulateSingle(gctx, kinetics.SingleRequest{Params: req.WildType, Env: req.Env})
		out.WildType = trace
		return err
	})
	g.Go(func() error {
		trace, err := c.SimulateSingle(gctx, kinetics.SingleRequest{Params: req.Mutant, Env: req.Env})
		out.Mutant = trace
		return err
	})
	if err := g.Wait(); err != nil {
		return BenchmarkResult{}, err
	}

	cmp, err := kinetics.CompareTimeToTarget(out.WildType, out.Mutant, kinetics.SpeciesProduct, req.Fraction, req.Mode)
	if err != nil {
		return BenchmarkResult{}, err
	}
	out.Comparison = cmp

	if c.artifactsDir != "" {
		runID := uuid.NewString()
		dir, err := stats.WriteBenchmarkArtifacts(c.artifactsDir, runID, cmp)
		if err != nil {
			return out, err
		}
		if err := stats.AppendRunIndex(c.artifactsDir, stats.BenchmarkIndexEntry(runID, req.Env, time.Now())); err != nil {
			return out, err
		}
		out.RunID, out.ArtifactsDir = runID, dir
		c.logger.Info("benchmark stored", zap.String("run_id", runID), zap.String("dir", dir))
	}
	return out, nil
}
