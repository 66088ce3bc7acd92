package model

import (
	"strings"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// MinConstant is the floor applied to Km and Ki before they enter a rate law.
const MinConstant = 1e-6

type Specificity string

const (
	SpecificityCellulase         Specificity = "Cellulase"
	SpecificityBetaGlucosidase   Specificity = "Beta-glucosidase"
	SpecificityCellobiohydrolase Specificity = "Cellobiohydrolase"
	SpecificityXylanase          Specificity = "Xylanase"
	SpecificityOther             Specificity = "Other"
)

// ParseSpecificity maps a free-form class label onto the known set. Unknown
// labels become SpecificityOther.
func ParseSpecificity(raw string) Specificity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cellulase", "endoglucanase":
		return SpecificityCellulase
	case "beta-glucosidase", "beta_glucosidase", "betaglucosidase":
		return SpecificityBetaGlucosidase
	case "cellobiohydrolase":
		return SpecificityCellobiohydrolase
	case "xylanase":
		return SpecificityXylanase
	default:
		return SpecificityOther
	}
}

type KineticParams struct {
	Kcat  float64 `json:"kcat"`
	Km    float64 `json:"km"`
	Ki    float64 `json:"ki"`
	TOpt  float64 `json:"t_opt"`
	PHOpt float64 `json:"ph_opt"`
}

// Sanitized returns a copy with Km and Ki raised to MinConstant when zero.
func (p KineticParams) Sanitized() KineticParams {
	if p.Km == 0 {
		p.Km = MinConstant
	}
	if p.Ki == 0 {
		p.Ki = MinConstant
	}
	return p
}

type EnzymeRecord struct {
	VersionedRecord
	ID          string        `json:"id"`
	Accession   string        `json:"accession,omitempty"`
	Sequence    string        `json:"sequence,omitempty"`
	Specificity Specificity   `json:"specificity"`
	Kinetics    KineticParams `json:"kinetics"`
	Organism    string        `json:"organism,omitempty"`
	Source      string        `json:"source,omitempty"`
	ParentID    string        `json:"parent_id,omitempty"`
	Generation  int           `json:"generation"`
	UpdatedAt   time.Time     `json:"updated_at,omitempty"`
}

type BiomassType string

const (
	BiomassSoftwood BiomassType = "softwood"
	BiomassHardwood BiomassType = "hardwood"
	BiomassGrass    BiomassType = "grass"
)

// Environment is the fixed set of reaction conditions for one simulation run.
type Environment struct {
	Temperature   float64     `json:"temperature"`
	PH            float64     `json:"ph"`
	Substrate     string      `json:"substrate,omitempty"`
	SolidLoading  float64     `json:"solid_loading,omitempty"`
	ParticleSize  *float64    `json:"particle_size,omitempty"`
	Crystallinity float64     `json:"crystallinity,omitempty"`
	Severity      float64     `json:"severity,omitempty"`
	Lignin        float64     `json:"lignin,omitempty"`
	BiomassType   BiomassType `json:"biomass_type,omitempty"`
	Phenol        float64     `json:"phenol,omitempty"`
	Furfural      float64     `json:"furfural,omitempty"`
}

// WithParticleSize returns a copy of env with the particle size set, which
// enables the accessibility factor.
func (e Environment) WithParticleSize(mm float64) Environment {
	e.ParticleSize = &mm
	return e
}

type Sample struct {
	Time           float64   `json:"time"`
	Concentrations []float64 `json:"concentrations"`
}

// SimulationTrace is the ordered time course of one integration run.
type SimulationTrace struct {
	Species []string `json:"species"`
	Samples []Sample `json:"samples"`
}

func (t SimulationTrace) speciesIndex(name string) int {
	for i, s := range t.Species {
		if s == name {
			return i
		}
	}
	return -1
}

// Final returns the last concentration of the named species.
func (t SimulationTrace) Final(species string) (float64, bool) {
	idx := t.speciesIndex(species)
	if idx < 0 || len(t.Samples) == 0 {
		return 0, false
	}
	return t.Samples[len(t.Samples)-1].Concentrations[idx], true
}

// Series returns the concentration time course of the named species.
func (t SimulationTrace) Series(species string) []float64 {
	idx := t.speciesIndex(species)
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = s.Concentrations[idx]
	}
	return out
}

type Candidate struct {
	Sequence       string   `json:"sequence"`
	Mutation       string   `json:"mutation"`
	PredictedYield float64  `json:"predicted_yield"`
	MeasuredYield  *float64 `json:"measured_yield,omitempty"`
}

type RoundKind string

const (
	RoundInitial     RoundKind = "Initial"
	RoundNewBest     RoundKind = "New Best"
	RoundExploration RoundKind = "Exploration"
)

type DesignRound struct {
	Round     int       `json:"round"`
	Yield     float64   `json:"yield"`
	BestYield float64   `json:"best_yield"`
	Kcat      float64   `json:"kcat"`
	Mutation  string    `json:"mutation"`
	Kind      RoundKind `json:"kind"`
}

type DesignHistory struct {
	VersionedRecord
	RunID         string        `json:"run_id"`
	StartSequence string        `json:"start_sequence"`
	Environment   Environment   `json:"environment"`
	Rounds        []DesignRound `json:"rounds"`
	Candidates    [][]Candidate `json:"candidates,omitempty"`
	BestSequence  string        `json:"best_sequence"`
	BestYield     float64       `json:"best_yield"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Measurement is the oracle's verdict on one sequence under one environment.
type Measurement struct {
	Yield  float64       `json:"yield"`
	Kcat   float64       `json:"kcat"`
	Params KineticParams `json:"params"`
	Failed bool          `json:"failed,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

type LineageRecord struct {
	VersionedRecord
	EnzymeID   string `json:"enzyme_id"`
	ParentID   string `json:"parent_id"`
	Generation int    `json:"generation"`
	Mutation   string `json:"mutation"`
}
