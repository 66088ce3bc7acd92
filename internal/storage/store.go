package storage

import (
	"context"

	"enzyflow/internal/model"
)

// Store defines persistence operations for enzyme records, design runs and
// variant lineage.
type Store interface {
	Init(ctx context.Context) error
	SaveEnzyme(ctx context.Context, record model.EnzymeRecord) error
	GetEnzyme(ctx context.Context, id string) (model.EnzymeRecord, bool, error)
	// ListEnzymes returns a snapshot ordered by id.
	ListEnzymes(ctx context.Context) ([]model.EnzymeRecord, error)
	SaveDesignHistory(ctx context.Context, history model.DesignHistory) error
	GetDesignHistory(ctx context.Context, runID string) (model.DesignHistory, bool, error)
	ListDesignRuns(ctx context.Context) ([]string, error)
	SaveLineage(ctx context.Context, runID string, lineage []model.LineageRecord) error
	GetLineage(ctx context.Context, runID string) ([]model.LineageRecord, bool, error)
}
