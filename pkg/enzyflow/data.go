package enzyflow

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"enzyflow/internal/dataset"
	"enzyflow/internal/model"
	"enzyflow/internal/screening"
	"enzyflow/internal/storage"
	"enzyflow/internal/surrogate"
)

// ImportEnzymes fills missing kinetics from literature anchors or the
// oracle and stores every record. It returns the stored records.
func (c *Client) ImportEnzymes(ctx context.Context, records []model.EnzymeRecord) ([]model.EnzymeRecord, error) {
	filled, st := dataset.Populate(records, c.oracle, dataset.DefaultAnchors())
	for i := range filled {
		filled[i].VersionedRecord = storage.Versioned()
		if err := c.store.SaveEnzyme(ctx, filled[i]); err != nil {
			return nil, fmt.Errorf("save %s: %w", filled[i].ID, err)
		}
	}
	c.logger.Info("enzymes imported",
		zap.Int("records", len(filled)),
		zap.Int("anchored", st.Anchored),
		zap.Int("from_model", st.FromModel),
		zap.Int("kept", st.Kept),
	)
	return filled, nil
}

func (c *Client) ListEnzymes(ctx context.Context) ([]model.EnzymeRecord, error) {
	return c.store.ListEnzymes(ctx)
}

// DatasetRequest simulates Records, or the stored enzymes when Records is
// nil, over Grid. A zero grid uses the configured grid.
type DatasetRequest struct {
	Records []model.EnzymeRecord
	Grid    dataset.Grid
}

func (c *Client) GenerateDataset(ctx context.Context, req DatasetRequest) (dataset.Result, error) {
	records := req.Records
	if records == nil {
		var err error
		if records, err = c.store.ListEnzymes(ctx); err != nil {
			return dataset.Result{}, err
		}
	}
	grid := req.Grid
	if grid.Size() == 0 {
		grid = dataset.Grid{
			Temperatures: c.cfg.Dataset.Temperatures,
			PHs:          c.cfg.Dataset.PHs,
			Substrates:   c.cfg.Dataset.Substrates,
		}
	}

	gen := dataset.NewGenerator(c.simulator, c.logger)
	gen.Workers = c.cfg.Dataset.Workers
	gen.Substrate = c.cfg.Simulation.Substrate
	gen.EnzymeConc = c.cfg.Simulation.Enzyme
	gen.Duration = c.cfg.Simulation.Duration
	if c.metrics != nil {
		gen.Observer = c.metrics
	}
	return gen.Generate(ctx, records, grid)
}

// TrainRequest labels Samples with the embeddings of Records, or of the
// stored enzymes when Records is nil.
type TrainRequest struct {
	Samples []dataset.Sample
	Records []model.EnzymeRecord
	// SavePath overrides the configured model path. Empty keeps it.
	SavePath string
}

// TrainSurrogate fits a new surrogate, installs it on the client and saves
// it when a model path is known.
func (c *Client) TrainSurrogate(ctx context.Context, req TrainRequest) (surrogate.Report, error) {
	records := req.Records
	if records == nil {
		var err error
		if records, err = c.store.ListEnzymes(ctx); err != nil {
			return surrogate.Report{}, err
		}
	}
	examples, err := dataset.Examples(ctx, req.Samples, records, c.embedder)
	if err != nil {
		return surrogate.Report{}, err
	}

	cfg := surrogate.DefaultTrainConfig()
	cfg.MaxSamples = c.cfg.Surrogate.MaxSamples
	cfg.TestFraction = c.cfg.Surrogate.TestFraction
	cfg.Seed = c.cfg.Surrogate.Seed
	m, report, err := surrogate.Train(ctx, examples, cfg)
	if err != nil {
		return report, err
	}
	c.SetSurrogate(m)

	path := req.SavePath
	if path == "" {
		path = c.cfg.Surrogate.ModelPath
	}
	if path != "" {
		if err := saveModel(path, m); err != nil {
			return report, err
		}
	}
	c.logger.Info("surrogate trained",
		zap.Int("train", report.TrainSize),
		zap.Int("test", report.TestSize),
		zap.Float64("mse", report.MSE),
		zap.Float64("r2", report.R2),
	)
	return report, nil
}

func saveModel(path string, m *surrogate.Model) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Save(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("save surrogate %s: %w", path, err)
	}
	return f.Close()
}

// ScreenPlate pairs stored enzymes into size wells.
func (c *Client) ScreenPlate(ctx context.Context, size int, seed int64) ([]screening.Pair, error) {
	records, err := c.store.ListEnzymes(ctx)
	if err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = c.cfg.Design.Seed
	}
	sampler, err := screening.NewSampler(records, rand.New(rand.NewSource(seed)), c.logger)
	if err != nil {
		return nil, err
	}
	return sampler.SamplePlate(size), nil
}
