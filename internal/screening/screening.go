// Package screening builds endoglucanase / beta-glucosidase pairings for a
// high-throughput plate.
package screening

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"enzyflow/internal/model"
)

var ErrNoEnzymes = errors.New("no enzymes to screen")

const (
	ReasonHighPerformance = "High Performance Synergy"
	ReasonExploration     = "Exploration (Random/Diversity)"

	// DefaultRatio is the EG fraction used when kcats are unusable.
	DefaultRatio = 0.7
)

// DefaultBetaGlucosidase stands in when the pool has no BG records.
func DefaultBetaGlucosidase() model.EnzymeRecord {
	return model.EnzymeRecord{
		ID:          "DEFAULT_BG",
		Specificity: model.SpecificityBetaGlucosidase,
		Organism:    "Default",
		Kinetics:    model.KineticParams{Kcat: 66.7, Km: 1.11, Ki: 2.22, TOpt: 50, PHOpt: 5},
	}
}

// Pair is one well on the plate.
type Pair struct {
	EG     string  `json:"eg_id"`
	BG     string  `json:"bg_id"`
	Reason string  `json:"reason"`
	Score  float64 `json:"predicted_score"`
	Ratio  float64 `json:"ratio"`
}

// Score rates an EG/BG pairing from catalytic efficiencies and BG product
// tolerance. The result lies in [0.01, 0.99].
func Score(eg, bg model.KineticParams) float64 {
	egEff := eg.Kcat / math.Max(eg.Km, 0.01)
	bgEff := bg.Kcat / math.Max(bg.Km, 0.01)
	combined := math.Log10(egEff+0.1)*0.6 + math.Log10(bgEff+0.1)*0.25 + math.Log1p(bg.Ki)*0.15
	return clamp((combined+1)/4, 0.01, 0.99)
}

// OptimalRatio is the EG fraction 1/(1+sqrt(kEG/kBG)), held to [0.2, 0.9].
func OptimalRatio(egKcat, bgKcat float64) float64 {
	if egKcat <= 0 || bgKcat <= 0 {
		return DefaultRatio
	}
	return clamp(1/(1+math.Sqrt(egKcat/bgKcat)), 0.2, 0.9)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

type Sampler struct {
	eg, bg, cbh []model.EnzymeRecord
	rng         *rand.Rand
	logger      *zap.Logger
}

// NewSampler splits records by specificity. An empty EG pool falls back to
// the first ten records; an empty BG pool to DefaultBetaGlucosidase.
func NewSampler(records []model.EnzymeRecord, rng *rand.Rand, logger *zap.Logger) (*Sampler, error) {
	if len(records) == 0 {
		return nil, ErrNoEnzymes
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sampler{rng: rng, logger: logger}
	for _, r := range records {
		switch r.Specificity {
		case model.SpecificityCellulase:
			s.eg = append(s.eg, r)
		case model.SpecificityBetaGlucosidase:
			s.bg = append(s.bg, r)
		case model.SpecificityCellobiohydrolase:
			s.cbh = append(s.cbh, r)
		}
	}
	if len(s.eg) == 0 {
		logger.Warn("no endoglucanase records, using first records as EG pool")
		n := len(records)
		if n > 10 {
			n = 10
		}
		s.eg = append(s.eg, records[:n]...)
	}
	if len(s.bg) == 0 {
		logger.Warn("no beta-glucosidase records, using default BG parameters")
		s.bg = []model.EnzymeRecord{DefaultBetaGlucosidase()}
	}
	return s, nil
}

func (s *Sampler) Pools() (eg, bg, cbh int) { return len(s.eg), len(s.bg), len(s.cbh) }

// SamplePlate fills size wells: every pairing of the top 20% EG by kcat with
// the top 20% BG by Ki first, then random pairs. Wells are sorted by score.
func (s *Sampler) SamplePlate(size int) []Pair {
	if size <= 0 {
		return nil
	}
	topEG := top(s.eg, len(s.eg)/5, func(p model.KineticParams) float64 { return p.Kcat })
	topBG := top(s.bg, len(s.bg)/5, func(p model.KineticParams) float64 { return p.Ki })

	plate := make([]Pair, 0, size)
fill:
	for _, eg := range topEG {
		for _, bg := range topBG {
			if len(plate) >= size {
				break fill
			}
			plate = append(plate, pair(eg, bg, ReasonHighPerformance))
		}
	}
	for len(plate) < size {
		eg := s.eg[s.rng.Intn(len(s.eg))]
		bg := s.bg[s.rng.Intn(len(s.bg))]
		plate = append(plate, pair(eg, bg, ReasonExploration))
	}
	sort.SliceStable(plate, func(i, j int) bool { return plate[i].Score > plate[j].Score })
	return plate
}

func pair(eg, bg model.EnzymeRecord, reason string) Pair {
	return Pair{
		EG:     eg.ID,
		BG:     bg.ID,
		Reason: reason,
		Score:  Score(eg.Kinetics, bg.Kinetics),
		Ratio:  math.Round(OptimalRatio(eg.Kinetics.Kcat, bg.Kinetics.Kcat)*100) / 100,
	}
}

func top(records []model.EnzymeRecord, n int, key func(model.KineticParams) float64) []model.EnzymeRecord {
	sorted := append([]model.EnzymeRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i].Kinetics) > key(sorted[j].Kinetics) })
	return sorted[:n]
}
