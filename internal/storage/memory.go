package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"enzyflow/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	enzymes     map[string]model.EnzymeRecord
	histories   map[string]model.DesignHistory
	lineage     map[string][]model.LineageRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.enzymes = make(map[string]model.EnzymeRecord)
	s.histories = make(map[string]model.DesignHistory)
	s.lineage = make(map[string][]model.LineageRecord)
	return nil
}

func (s *MemoryStore) SaveEnzyme(_ context.Context, record model.EnzymeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.enzymes[record.ID] = record
	return nil
}

func (s *MemoryStore) GetEnzyme(_ context.Context, id string) (model.EnzymeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.enzymes[id]
	return record, ok, nil
}

func (s *MemoryStore) ListEnzymes(_ context.Context) ([]model.EnzymeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.EnzymeRecord, 0, len(s.enzymes))
	for _, record := range s.enzymes {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SaveDesignHistory(_ context.Context, history model.DesignHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	history.Rounds = append([]model.DesignRound(nil), history.Rounds...)
	s.histories[history.RunID] = history
	return nil
}

func (s *MemoryStore) GetDesignHistory(_ context.Context, runID string) (model.DesignHistory, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.histories[runID]
	if !ok {
		return model.DesignHistory{}, false, nil
	}
	history.Rounds = append([]model.DesignRound(nil), history.Rounds...)
	return history, true, nil
}

func (s *MemoryStore) ListDesignRuns(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.histories))
	for id := range s.histories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) SaveLineage(_ context.Context, runID string, lineage []model.LineageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.lineage[runID] = append([]model.LineageRecord(nil), lineage...)
	return nil
}

func (s *MemoryStore) GetLineage(_ context.Context, runID string) ([]model.LineageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineage, ok := s.lineage[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.LineageRecord(nil), lineage...), true, nil
}
