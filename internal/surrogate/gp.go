package surrogate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrNotPositiveDefinite = errors.New("kernel matrix is not positive definite")

// Regressor maps a laid-out feature vector to a prediction.
type Regressor interface {
	Dim() int
	Predict(x []float64) (float64, error)
}

// GP is a Gaussian process with an RBF kernel plus white noise, fitted on
// standardized features and normalized targets.
type GP struct {
	LengthScale float64     `json:"length_scale"`
	Noise       float64     `json:"noise"`
	FeatureMean []float64   `json:"feature_mean"`
	FeatureStd  []float64   `json:"feature_std"`
	TargetMean  float64     `json:"target_mean"`
	TargetStd   float64     `json:"target_std"`
	Train       [][]float64 `json:"train"`
	Alpha       []float64   `json:"alpha"`
	LogML       float64     `json:"log_marginal_likelihood"`
}

// GPConfig lists the hyperparameter grid searched by FitGP. Length scales
// are multiplied by sqrt(d).
type GPConfig struct {
	LengthScales []float64
	Noises       []float64
}

func DefaultGPConfig() GPConfig {
	return GPConfig{
		LengthScales: []float64{0.25, 0.5, 1, 2, 4},
		Noises:       []float64{1e-5, 1e-3, 1e-2, 1e-1},
	}
}

// FitGP standardizes X, normalizes y and keeps the grid point with the
// highest log marginal likelihood.
func FitGP(x [][]float64, y []float64, cfg GPConfig) (*GP, error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return nil, fmt.Errorf("fit: %d rows for %d targets", n, len(y))
	}
	d := len(x[0])
	if d == 0 {
		return nil, fmt.Errorf("fit: zero-width features")
	}
	if len(cfg.LengthScales) == 0 || len(cfg.Noises) == 0 {
		cfg = DefaultGPConfig()
	}

	gp := &GP{FeatureMean: make([]float64, d), FeatureStd: make([]float64, d)}
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		for i := 0; i < n; i++ {
			if len(x[i]) != d {
				return nil, fmt.Errorf("%w: row %d has width %d, want %d", ErrSchemaMismatch, i, len(x[i]), d)
			}
			col[i] = x[i][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		gp.FeatureMean[j], gp.FeatureStd[j] = mean, std
	}
	gp.TargetMean, gp.TargetStd = stat.PopMeanStdDev(y, nil)
	if gp.TargetStd == 0 || math.IsNaN(gp.TargetStd) {
		gp.TargetStd = 1
	}

	gp.Train = make([][]float64, n)
	for i := range x {
		gp.Train[i] = gp.standardize(x[i])
	}
	yn := make([]float64, n)
	for i, v := range y {
		yn[i] = (v - gp.TargetMean) / gp.TargetStd
	}

	scale := math.Sqrt(float64(d))
	sq := pairwiseSquaredDistances(gp.Train)
	best := math.Inf(-1)
	var bestAlpha []float64
	for _, ls := range cfg.LengthScales {
		for _, noise := range cfg.Noises {
			alpha, lml, err := solveGP(sq, yn, ls*scale, noise)
			if err != nil {
				continue
			}
			if lml > best {
				best = lml
				bestAlpha = alpha
				gp.LengthScale = ls * scale
				gp.Noise = noise
			}
		}
	}
	if bestAlpha == nil {
		return nil, ErrNotPositiveDefinite
	}
	gp.Alpha = bestAlpha
	gp.LogML = best
	return gp, nil
}

func pairwiseSquaredDistances(x [][]float64) *mat.SymDense {
	n := len(x)
	sq := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sq.SetSym(i, j, squaredDistance(x[i], x[j]))
		}
	}
	return sq
}

// solveGP returns α = K⁻¹y and the log marginal likelihood for one
// hyperparameter pair.
func solveGP(sq *mat.SymDense, y []float64, lengthScale, noise float64) ([]float64, float64, error) {
	n := len(y)
	k := mat.NewSymDense(n, nil)
	inv := 1 / (2 * lengthScale * lengthScale)
	for i := 0; i < n; i++ {
		k.SetSym(i, i, 1+noise)
		for j := i + 1; j < n; j++ {
			k.SetSym(i, j, math.Exp(-sq.At(i, j)*inv))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(k); !ok {
		return nil, 0, ErrNotPositiveDefinite
	}
	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, mat.NewVecDense(n, y)); err != nil {
		return nil, 0, err
	}
	lml := -0.5*mat.Dot(mat.NewVecDense(n, y), alpha) - 0.5*chol.LogDet() - 0.5*float64(n)*math.Log(2*math.Pi)
	return alpha.RawVector().Data, lml, nil
}

func (gp *GP) Dim() int { return len(gp.FeatureMean) }

func (gp *GP) Predict(x []float64) (float64, error) {
	if len(x) != gp.Dim() {
		return 0, fmt.Errorf("%w: vector width %d, want %d", ErrSchemaMismatch, len(x), gp.Dim())
	}
	z := gp.standardize(x)
	inv := 1 / (2 * gp.LengthScale * gp.LengthScale)
	var mean float64
	for i, row := range gp.Train {
		mean += math.Exp(-squaredDistance(z, row)*inv) * gp.Alpha[i]
	}
	return mean*gp.TargetStd + gp.TargetMean, nil
}

func (gp *GP) validate() error {
	d := gp.Dim()
	if d == 0 || len(gp.FeatureStd) != d {
		return fmt.Errorf("gp: feature statistics have width %d/%d", len(gp.FeatureMean), len(gp.FeatureStd))
	}
	if len(gp.Train) != len(gp.Alpha) || len(gp.Train) == 0 {
		return fmt.Errorf("gp: %d training rows for %d weights", len(gp.Train), len(gp.Alpha))
	}
	for i, row := range gp.Train {
		if len(row) != d {
			return fmt.Errorf("gp: training row %d has width %d, want %d", i, len(row), d)
		}
	}
	if gp.LengthScale <= 0 {
		return fmt.Errorf("gp: length scale %g", gp.LengthScale)
	}
	return nil
}

func (gp *GP) standardize(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - gp.FeatureMean[j]) / gp.FeatureStd[j]
	}
	return out
}

func squaredDistance(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
