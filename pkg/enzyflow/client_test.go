package enzyflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"enzyflow/internal/config"
	"enzyflow/internal/dataset"
	"enzyflow/internal/design"
	"enzyflow/internal/kinetics"
	"enzyflow/internal/model"
	"enzyflow/internal/sequence"
	"enzyflow/internal/stats"
)

const (
	seqA = "MKVLLAGSTWYRDEQNHCIPMKVLLAGSTWYRDEQNHCIP"
	seqB = "MWWWLLIIVVAAGGSSTTKKRRDDEEQQNNHHCCPPFFYY"
	seqC = "MSTGGAAKKLLPPEEDDNNQQRRHHWWYYFFCCIIVVMM"
)

var env = model.Environment{Temperature: 50, PH: 5, Substrate: "Cellulose"}

func newTestClient(t *testing.T, mutate func(*config.Config, *Options)) *Client {
	t.Helper()
	opts := Options{Config: config.Default(), Registry: prometheus.NewRegistry()}
	if mutate != nil {
		mutate(&opts.Config, &opts)
	}
	client, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func importFixtures(t *testing.T, c *Client) []model.EnzymeRecord {
	t.Helper()
	records, err := c.ImportEnzymes(context.Background(), []model.EnzymeRecord{
		{ID: "E1", Sequence: seqA, Specificity: model.SpecificityCellulase},
		{ID: "E2", Sequence: seqB, Specificity: model.SpecificityBetaGlucosidase},
		{ID: "E3", Sequence: seqC, Specificity: model.SpecificityCellulase},
		{ID: "E3_v1_AI", Specificity: model.SpecificityCellulase, Kinetics: model.KineticParams{Kcat: 1, Km: 1, Ki: 1, TOpt: 50, PHOpt: 5}},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	return records
}

func TestSimulateSingleUsesConfiguredDefaults(t *testing.T) {
	c := newTestClient(t, nil)
	trace, err := c.SimulateSingle(context.Background(), kinetics.SingleRequest{
		Params: model.KineticParams{Kcat: 10, Km: 1, Ki: 10, TOpt: 50, PHOpt: 5},
		Env:    env,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(trace.Samples) != c.Config().Simulation.Steps+1 {
		t.Fatalf("expected %d samples, got %d", c.Config().Simulation.Steps+1, len(trace.Samples))
	}
	p, _ := trace.Final(kinetics.SpeciesProduct)
	if p <= 0 || p >= 100 {
		t.Fatalf("final product %g out of (0,100)", p)
	}

	_, err = c.SimulateSingle(context.Background(), kinetics.SingleRequest{
		Params: model.KineticParams{Kcat: -1, Km: 1, Ki: 1},
		Env:    env,
	})
	if !errors.Is(err, kinetics.ErrIntegration) {
		t.Fatalf("expected integration error, got %v", err)
	}
}

func TestOracleAndMutations(t *testing.T) {
	c := newTestClient(t, nil)
	a := c.OracleGroundTruth(seqA)
	b := c.OracleGroundTruth(" " + seqA + "\n")
	if a.Params != b.Params {
		t.Fatalf("oracle should ignore whitespace: %+v vs %+v", a.Params, b.Params)
	}
	if len(c.OracleGroundTruth(seqA+"XB").Invalid) != 2 {
		t.Fatal("expected two invalid residues reported")
	}

	m, err := c.ProposeMutation(seqA, 7)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	applied, err := c.ApplyMutation(seqA, m.Mutation)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied != m.Sequence {
		t.Fatalf("apply(%s) mismatch", m.Mutation)
	}
	if _, err := c.ApplyMutation(seqA, "Z1A"); err == nil {
		t.Fatal("expected residue mismatch error")
	}
}

func TestRunActiveLearningPersistsRun(t *testing.T) {
	artifacts := t.TempDir()
	c := newTestClient(t, func(_ *config.Config, o *Options) { o.ArtifactsDir = artifacts })

	summary, err := c.RunActiveLearning(context.Background(), DesignRequest{StartSequence: seqA, Environment: env, Rounds: 3, Seed: 5})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	h := summary.History
	if len(h.Rounds) != 4 || h.RunID == "" {
		t.Fatalf("unexpected history: run=%q rounds=%d", h.RunID, len(h.Rounds))
	}
	for i := 1; i < len(h.Rounds); i++ {
		if h.Rounds[i].BestYield < h.Rounds[i-1].BestYield {
			t.Fatalf("best yield decreased at round %d", i)
		}
	}

	stored, lineage, err := c.DesignHistory(context.Background(), h.RunID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if stored.BestYield != h.BestYield || len(stored.Rounds) != 4 {
		t.Fatalf("stored history differs: %+v", stored)
	}
	if len(lineage) != len(summary.Promoted) {
		t.Fatalf("expected %d lineage records, got %d", len(summary.Promoted), len(lineage))
	}
	runs, err := c.DesignRuns(context.Background())
	if err != nil || len(runs) != 1 || runs[0] != h.RunID {
		t.Fatalf("unexpected runs %v: %v", runs, err)
	}

	if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, "rounds.csv")); err != nil {
		t.Fatalf("expected rounds.csv: %v", err)
	}
	index, err := stats.ListRunIndex(artifacts)
	if err != nil || len(index) != 1 || index[0].RunID != h.RunID {
		t.Fatalf("unexpected run index %+v: %v", index, err)
	}

	if _, _, err := c.DesignHistory(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunActiveLearningFromStoredParent(t *testing.T) {
	c := newTestClient(t, nil)
	importFixtures(t, c)

	summary, err := c.RunActiveLearning(context.Background(), DesignRequest{StartID: "E3_v1_AI", Environment: env, Rounds: 2})
	if err != nil {
		t.Fatalf("run from parent sequence: %v", err)
	}
	if summary.History.StartSequence != seqC {
		t.Fatal("expected the parent's sequence as start")
	}
	for _, p := range summary.Promoted {
		if p.ParentID == "" || sequence.Generation(p.ID) < 2 {
			t.Fatalf("promotion should extend E3_v1_AI lineage: %+v", p)
		}
	}

	if _, err := c.RunActiveLearning(context.Background(), DesignRequest{Environment: env}); err == nil {
		t.Fatal("expected error without start sequence")
	}
}

func TestProposeOptimizationRequiresSurrogateAndLineage(t *testing.T) {
	c := newTestClient(t, nil)
	importFixtures(t, c)

	if _, err := c.ProposeOptimization(context.Background(), OptimizeRequest{EnzymeID: "E1", Environment: env}); !errors.Is(err, design.ErrNoSurrogate) {
		t.Fatalf("expected ErrNoSurrogate, got %v", err)
	}
	if _, err := c.ProposeOptimization(context.Background(), OptimizeRequest{EnzymeID: "ORPHAN_v2_AI", Environment: env}); !errors.Is(err, sequence.ErrMissingLineage) {
		t.Fatalf("expected ErrMissingLineage, got %v", err)
	}
}

func TestDatasetTrainOptimizeRoundTrip(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "models", "surrogate.json")
	c := newTestClient(t, func(cfg *config.Config, _ *Options) { cfg.Surrogate.ModelPath = modelPath })
	importFixtures(t, c)

	grid := dataset.Grid{Temperatures: []float64{40, 50, 60}, PHs: []float64{4, 5, 6}, Substrates: []string{"Cellulose", "Xylan"}}
	result, err := c.GenerateDataset(context.Background(), DatasetRequest{Grid: grid})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := len(result.Samples) + len(result.Failures); got != 4*grid.Size() {
		t.Fatalf("expected %d outcomes, got %d", 4*grid.Size(), got)
	}

	// E3_v1_AI has no sequence of its own and cannot be embedded.
	records, err := c.ListEnzymes(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var withSeq []model.EnzymeRecord
	for _, r := range records {
		if r.Sequence != "" {
			withSeq = append(withSeq, r)
		}
	}
	var samples []dataset.Sample
	for _, s := range result.Samples {
		if s.ID != "E3_v1_AI" {
			samples = append(samples, s)
		}
	}
	report, err := c.TrainSurrogate(context.Background(), TrainRequest{Samples: samples, Records: withSeq})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if report.TrainSize+report.TestSize != len(samples) {
		t.Fatalf("unexpected split %+v", report)
	}
	if _, err := os.Stat(modelPath); err != nil {
		t.Fatalf("expected saved model: %v", err)
	}

	p, err := c.ProposeOptimization(context.Background(), OptimizeRequest{EnzymeID: "E3_v1_AI", Environment: env, Attempts: 10})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if p.Mechanism != design.MechanismPredicted || p.Mutation == "" {
		t.Fatalf("unexpected proposal %+v", p)
	}
	if applied, err := sequence.Apply(seqC, p.Mutation); err != nil || applied != p.Sequence {
		t.Fatalf("proposal is not a mutant of the parent sequence: %v", err)
	}

	reloaded := newTestClient(t, func(cfg *config.Config, _ *Options) { cfg.Surrogate.ModelPath = modelPath })
	if reloaded.Surrogate() == nil {
		t.Fatal("expected surrogate loaded from model path")
	}
}

func TestBenchmarkComparesTimeToTarget(t *testing.T) {
	c := newTestClient(t, nil)
	res, err := c.Benchmark(context.Background(), BenchmarkRequest{
		WildType: model.KineticParams{Kcat: 10, Km: 1, Ki: 10, TOpt: 50, PHOpt: 5},
		Mutant:   model.KineticParams{Kcat: 20, Km: 1, Ki: 10, TOpt: 50, PHOpt: 5},
		Env:      env,
		Fraction: 0.05,
	})
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}
	cmp := res.Comparison
	if cmp.Mode != kinetics.TargetTheoretical || cmp.WildType == nil || cmp.Mutant == nil {
		t.Fatalf("unexpected comparison %+v", cmp)
	}
	if *cmp.Mutant > *cmp.WildType {
		t.Fatalf("faster enzyme took longer: %g > %g", *cmp.Mutant, *cmp.WildType)
	}

	_, err = c.Benchmark(context.Background(), BenchmarkRequest{WildType: model.KineticParams{Kcat: -1}, Mutant: model.KineticParams{Kcat: 1, Km: 1, Ki: 1}, Env: env})
	if !errors.Is(err, kinetics.ErrIntegration) {
		t.Fatalf("expected integration error, got %v", err)
	}
}

func TestScreenPlate(t *testing.T) {
	c := newTestClient(t, nil)
	if _, err := c.ScreenPlate(context.Background(), 4, 1); err == nil {
		t.Fatal("expected error for an empty store")
	}
	importFixtures(t, c)
	plate, err := c.ScreenPlate(context.Background(), 6, 1)
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	if len(plate) != 6 {
		t.Fatalf("expected 6 wells, got %d", len(plate))
	}
	for i := 1; i < len(plate); i++ {
		if plate[i].Score > plate[i-1].Score {
			t.Fatal("plate not sorted by score")
		}
	}
}
