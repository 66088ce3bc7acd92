// Package design runs the design-build-test-learn loop that proposes point
// mutants, ranks them with the surrogate and confirms the pick with the
// oracle.
package design

import (
	"context"
	"sync"
	"time"

	"enzyflow/internal/model"
	"enzyflow/internal/sequence"
	"enzyflow/internal/storage"
)

const (
	OrganismEngineered = "AI_Engineered"
	SourceFeedback     = "Digital_Twin_Feedback"
)

// Session is the mutable state of one design run: the current best and the
// pool of enzymes materialized from it.
type Session struct {
	mu      sync.Mutex
	startID string
	history model.DesignHistory
	pool    []promoted
	now     func() time.Time
}

type promoted struct {
	record   model.EnzymeRecord
	mutation string
}

// NewSession starts a run from seq. startID names the record the sequence
// came from and may be empty.
func NewSession(runID, startID, seq string) *Session {
	s := &Session{startID: startID, now: time.Now}
	s.history = model.DesignHistory{
		VersionedRecord: storage.Versioned(),
		RunID:           runID,
		StartSequence:   seq,
		BestSequence:    seq,
		CreatedAt:       s.now().UTC(),
	}
	return s
}

// History returns a copy of the run so far.
func (s *Session) History() model.DesignHistory {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.history
	h.Rounds = append([]model.DesignRound(nil), s.history.Rounds...)
	h.Candidates = make([][]model.Candidate, len(s.history.Candidates))
	for i, c := range s.history.Candidates {
		h.Candidates[i] = append([]model.Candidate(nil), c...)
	}
	return h
}

func (s *Session) StartID() string { return s.startID }

func (s *Session) StartSequence() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.StartSequence
}

func (s *Session) Best() (string, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.BestSequence, s.history.BestYield
}

func (s *Session) Pool() []model.EnzymeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.EnzymeRecord, len(s.pool))
	for i, p := range s.pool {
		out[i] = p.record
	}
	return out
}

func (s *Session) record(r model.DesignRound, candidates []model.Candidate, bestSeq string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Kind == model.RoundInitial || r.Kind == model.RoundNewBest {
		s.history.BestSequence = bestSeq
		s.history.BestYield = r.Yield
	}
	r.BestYield = s.history.BestYield
	s.history.Rounds = append(s.history.Rounds, r)
	s.history.Candidates = append(s.history.Candidates, candidates)
}

func (s *Session) rounds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history.Rounds)
}

// Saver persists promoted enzymes.
type Saver interface {
	SaveEnzyme(ctx context.Context, record model.EnzymeRecord) error
}

// Promote materializes seq as a new enzyme derived from parent, adds it to
// the session pool and saves it when store is non-nil. The id is the next
// free variant id of parent.
func (s *Session) Promote(ctx context.Context, store Saver, parent model.EnzymeRecord, seq, mutation string, params model.KineticParams) (model.EnzymeRecord, error) {
	s.mu.Lock()
	taken := make(map[string]struct{}, len(s.pool))
	for _, p := range s.pool {
		taken[p.record.ID] = struct{}{}
	}
	id := sequence.NextVariantID(parent.ID)
	for {
		if _, ok := taken[id]; !ok {
			break
		}
		id = sequence.NextVariantID(id)
	}
	rec := model.EnzymeRecord{
		VersionedRecord: storage.Versioned(),
		ID:              id,
		Accession:       parent.Accession,
		Sequence:        seq,
		Specificity:     parent.Specificity,
		Kinetics:        params,
		Organism:        OrganismEngineered,
		Source:          SourceFeedback,
		ParentID:        parent.ID,
		Generation:      sequence.Generation(id),
		UpdatedAt:       s.now().UTC(),
	}
	s.pool = append(s.pool, promoted{record: rec, mutation: mutation})
	s.mu.Unlock()

	if store != nil {
		if err := store.SaveEnzyme(ctx, rec); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// Lineage lists the pool as lineage records.
func (s *Session) Lineage() []model.LineageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.LineageRecord, 0, len(s.pool))
	for _, p := range s.pool {
		out = append(out, model.LineageRecord{
			VersionedRecord: storage.Versioned(),
			EnzymeID:        p.record.ID,
			ParentID:        p.record.ParentID,
			Generation:      p.record.Generation,
			Mutation:        p.mutation,
		})
	}
	return out
}
