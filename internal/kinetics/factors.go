package kinetics

import (
	"math"

	"enzyflow/internal/model"
)

const (
	temperatureWidth = 10.0
	phWidth          = 1.5

	referenceParticleSize = 0.5
	surfaceExponent       = 1.5

	factorFloor   = 0.01
	factorCeiling = 0.99
)

// InhibitionConstants parameterize the lignin adsorption and soluble
// inhibitor terms. Concentrations are in mM.
type InhibitionConstants struct {
	KAds       float64 `json:"k_ads"`
	KiPhenol   float64 `json:"ki_phenol"`
	KiFurfural float64 `json:"ki_furfural"`
	KiHMF      float64 `json:"ki_hmf"`
}

func DefaultInhibitionConstants() InhibitionConstants {
	return InhibitionConstants{
		KAds:       0.15,
		KiPhenol:   8.0,
		KiFurfural: 2.0,
		KiHMF:      5.0,
	}
}

var ligninHydrophobicity = map[model.BiomassType]float64{
	model.BiomassSoftwood: 0.85,
	model.BiomassHardwood: 0.65,
	model.BiomassGrass:    0.50,
}

const defaultLigninHydrophobicity = 0.65

// LigninHydrophobicity returns the adsorption affinity for a biomass type.
// An unset type is treated as grass; unrecognized types use the hardwood
// value.
func LigninHydrophobicity(t model.BiomassType) float64 {
	if t == "" {
		t = model.BiomassGrass
	}
	if h, ok := ligninHydrophobicity[t]; ok {
		return h
	}
	return defaultLigninHydrophobicity
}

func TemperatureFactor(temp, tOpt float64) float64 {
	d := (temp - tOpt) / temperatureWidth
	return math.Exp(-0.5 * d * d)
}

func PHFactor(ph, phOpt float64) float64 {
	d := (ph - phOpt) / phWidth
	return math.Exp(-0.5 * d * d)
}

// Accessibility is the geometric access factor for a particle of the given
// diameter (mm). Severity 1 fully removes the crystallinity barrier.
func Accessibility(particleSize, crystallinity, severity float64) float64 {
	surface := 1 / (1 + math.Pow(particleSize/referenceParticleSize, surfaceExponent))
	crystal := 1 - crystallinity*(1-severity)
	return clampFactor(surface * crystal)
}

// InhibitionFactor combines Langmuir adsorption onto lignin with
// non-competitive phenol and furfural inhibition.
func InhibitionFactor(lignin float64, biomass model.BiomassType, phenol, furfural float64, c InhibitionConstants) float64 {
	h := LigninHydrophobicity(biomass)
	alpha := 0.0
	if lh := lignin * h; c.KAds+lh > 0 {
		alpha = lh / (c.KAds + lh)
	}
	phenolFactor := 1.0
	if c.KiPhenol > 0 {
		phenolFactor = 1 / (1 + phenol/c.KiPhenol)
	}
	furfuralFactor := 1.0
	if c.KiFurfural > 0 {
		furfuralFactor = 1 / (1 + furfural/c.KiFurfural)
	}
	return clampFactor((1 - alpha) * phenolFactor * furfuralFactor)
}

// EffectiveKcat applies temperature and pH modulation, then accessibility
// when a particle size is present and inhibition when lignin is present.
func EffectiveKcat(p model.KineticParams, env model.Environment, c InhibitionConstants) float64 {
	k := p.Kcat * TemperatureFactor(env.Temperature, p.TOpt) * PHFactor(env.PH, p.PHOpt)
	if env.ParticleSize != nil {
		k *= Accessibility(*env.ParticleSize, env.Crystallinity, env.Severity)
	}
	if env.Lignin > 0 {
		k *= InhibitionFactor(env.Lignin, env.BiomassType, env.Phenol, env.Furfural, c)
	}
	return k
}

func clampFactor(v float64) float64 {
	return math.Max(factorFloor, math.Min(factorCeiling, v))
}
