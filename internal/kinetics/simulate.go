package kinetics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"enzyflow/internal/model"
)

var (
	// ErrIntegration covers every case where no trace could be produced.
	ErrIntegration = errors.New("integration failure")
	// ErrInvalidModel is returned for parameter sets that cannot form a
	// valid rate law. It wraps ErrIntegration.
	ErrInvalidModel = fmt.Errorf("%w: invalid model", ErrIntegration)
)

const (
	SpeciesSubstrate  = "S"
	SpeciesProduct    = "P"
	SpeciesCellobiose = "C2"
	SpeciesGlucose    = "G"
)

const (
	KindSingle  = "single"
	KindCascade = "cascade"
)

const (
	DefaultDuration      = 24 * 3600.0
	DefaultSteps         = 100
	DefaultSubstrate     = 100.0
	DefaultEnzyme        = 1e-6
	DefaultCascadeEnzyme = 0.5e-6
)

// Observer receives one call per simulation attempt.
type Observer interface {
	ObserveSimulation(kind string, elapsed time.Duration, err error)
}

type Simulator struct {
	Options   IntegratorOptions
	Constants InhibitionConstants
	Logger    *zap.Logger
	Observer  Observer
}

func NewSimulator(opts IntegratorOptions, logger *zap.Logger) *Simulator {
	return &Simulator{
		Options:   opts,
		Constants: DefaultInhibitionConstants(),
		Logger:    logger,
	}
}

// SingleRequest describes one S -> P run. Zero values for SubstrateInit,
// EnzymeConc, Duration and Steps select the package defaults.
type SingleRequest struct {
	Params        model.KineticParams `json:"params"`
	Env           model.Environment   `json:"environment"`
	SubstrateInit float64             `json:"substrate_init,omitempty"`
	EnzymeConc    float64             `json:"enzyme_conc,omitempty"`
	Duration      float64             `json:"duration,omitempty"`
	Steps         int                 `json:"steps,omitempty"`
}

// CascadeRequest describes an S -> C2 -> G run with two enzymes sharing one
// environment.
type CascadeRequest struct {
	First         model.KineticParams `json:"first"`
	Second        model.KineticParams `json:"second"`
	Env           model.Environment   `json:"environment"`
	SubstrateInit float64             `json:"substrate_init,omitempty"`
	FirstConc     float64             `json:"first_conc,omitempty"`
	SecondConc    float64             `json:"second_conc,omitempty"`
	Duration      float64             `json:"duration,omitempty"`
	Steps         int                 `json:"steps,omitempty"`
}

func (s *Simulator) SimulateSingle(ctx context.Context, req SingleRequest) (model.SimulationTrace, error) {
	start := time.Now()
	trace, err := s.simulateSingle(ctx, req)
	s.finish(KindSingle, start, err)
	return trace, err
}

func (s *Simulator) simulateSingle(ctx context.Context, req SingleRequest) (model.SimulationTrace, error) {
	req = normalizeSingle(req)
	if err := validateParams("enzyme", req.Params); err != nil {
		return model.SimulationTrace{}, err
	}
	if err := validateRun(req.SubstrateInit, req.Duration, req.Steps, req.EnzymeConc); err != nil {
		return model.SimulationTrace{}, err
	}

	p := req.Params.Sanitized()
	kcat := EffectiveKcat(p, req.Env, s.Constants)
	rate := kcat * req.EnzymeConc
	km, ki := p.Km, p.Ki

	rhs := func(_ float64, y, dy []float64) {
		sub := math.Max(y[0], 0)
		prod := math.Max(y[1], 0)
		v := rate * sub / (km*(1+prod/ki) + sub)
		dy[0] = -v
		dy[1] = v
	}
	return s.run(ctx, rhs, []string{SpeciesSubstrate, SpeciesProduct}, []float64{req.SubstrateInit, 0}, req.Duration, req.Steps)
}

func (s *Simulator) SimulateCascade(ctx context.Context, req CascadeRequest) (model.SimulationTrace, error) {
	start := time.Now()
	trace, err := s.simulateCascade(ctx, req)
	s.finish(KindCascade, start, err)
	return trace, err
}

func (s *Simulator) simulateCascade(ctx context.Context, req CascadeRequest) (model.SimulationTrace, error) {
	req = normalizeCascade(req)
	if err := validateParams("first enzyme", req.First); err != nil {
		return model.SimulationTrace{}, err
	}
	if err := validateParams("second enzyme", req.Second); err != nil {
		return model.SimulationTrace{}, err
	}
	if err := validateRun(req.SubstrateInit, req.Duration, req.Steps, req.FirstConc, req.SecondConc); err != nil {
		return model.SimulationTrace{}, err
	}

	a := req.First.Sanitized()
	b := req.Second.Sanitized()
	rateA := EffectiveKcat(a, req.Env, s.Constants) * req.FirstConc
	rateB := EffectiveKcat(b, req.Env, s.Constants) * req.SecondConc

	rhs := func(_ float64, y, dy []float64) {
		sub := math.Max(y[0], 0)
		c2 := math.Max(y[1], 0)
		g := math.Max(y[2], 0)
		v1 := rateA * sub / (a.Km*(1+c2/a.Ki) + sub)
		v2 := rateB * c2 / (b.Km*(1+g/b.Ki) + c2)
		dy[0] = -v1
		dy[1] = v1 - v2
		dy[2] = v2
	}
	return s.run(ctx, rhs,
		[]string{SpeciesSubstrate, SpeciesCellobiose, SpeciesGlucose},
		[]float64{req.SubstrateInit, 0, 0}, req.Duration, req.Steps)
}

func (s *Simulator) run(ctx context.Context, rhs RHS, species []string, y0 []float64, duration float64, steps int) (model.SimulationTrace, error) {
	times := SampleTimes(duration, steps)
	states, stats, err := integrate(ctx, rhs, y0, times, s.Options)
	if err != nil {
		if !errors.Is(err, ErrIntegration) {
			err = fmt.Errorf("%w: %w", ErrIntegration, err)
		}
		return model.SimulationTrace{}, err
	}
	s.logger().Debug("integration complete",
		zap.Int("accepted", stats.Accepted),
		zap.Int("rejected", stats.Rejected),
		zap.Bool("stiff", stats.Stiff),
	)
	samples := make([]model.Sample, len(times))
	for i, t := range times {
		samples[i] = model.Sample{Time: t, Concentrations: states[i]}
	}
	return model.SimulationTrace{Species: species, Samples: samples}, nil
}

func (s *Simulator) finish(kind string, start time.Time, err error) {
	if s.Observer != nil {
		s.Observer.ObserveSimulation(kind, time.Since(start), err)
	}
	if err != nil {
		s.logger().Warn("simulation failed", zap.String("kind", kind), zap.Error(err))
	}
}

func (s *Simulator) logger() *zap.Logger {
	if s == nil || s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// SampleTimes returns steps+1 evenly spaced points on [0, duration].
func SampleTimes(duration float64, steps int) []float64 {
	out := make([]float64, steps+1)
	dt := duration / float64(steps)
	for i := range out {
		out[i] = float64(i) * dt
	}
	out[steps] = duration
	return out
}

func normalizeSingle(req SingleRequest) SingleRequest {
	if req.SubstrateInit == 0 {
		req.SubstrateInit = DefaultSubstrate
	}
	if req.EnzymeConc == 0 {
		req.EnzymeConc = DefaultEnzyme
	}
	if req.Duration == 0 {
		req.Duration = DefaultDuration
	}
	if req.Steps == 0 {
		req.Steps = DefaultSteps
	}
	return req
}

func normalizeCascade(req CascadeRequest) CascadeRequest {
	if req.SubstrateInit == 0 {
		req.SubstrateInit = DefaultSubstrate
	}
	if req.FirstConc == 0 {
		req.FirstConc = DefaultCascadeEnzyme
	}
	if req.SecondConc == 0 {
		req.SecondConc = DefaultCascadeEnzyme
	}
	if req.Duration == 0 {
		req.Duration = DefaultDuration
	}
	if req.Steps == 0 {
		req.Steps = DefaultSteps
	}
	return req
}

func validateParams(label string, p model.KineticParams) error {
	checks := []struct {
		name string
		v    float64
	}{
		{"kcat", p.Kcat},
		{"Km", p.Km},
		{"Ki", p.Ki},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) || c.v < 0 {
			return fmt.Errorf("%w: %s %s=%g", ErrInvalidModel, label, c.name, c.v)
		}
	}
	if math.IsNaN(p.TOpt) || math.IsNaN(p.PHOpt) {
		return fmt.Errorf("%w: %s optimum is NaN", ErrInvalidModel, label)
	}
	return nil
}

func validateRun(substrate, duration float64, steps int, enzymes ...float64) error {
	if math.IsNaN(substrate) || substrate < 0 {
		return fmt.Errorf("%w: initial substrate=%g", ErrInvalidModel, substrate)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return fmt.Errorf("%w: duration=%g", ErrInvalidModel, duration)
	}
	if steps <= 0 {
		return fmt.Errorf("%w: steps=%d", ErrInvalidModel, steps)
	}
	for _, e := range enzymes {
		if math.IsNaN(e) || e < 0 {
			return fmt.Errorf("%w: enzyme concentration=%g", ErrInvalidModel, e)
		}
	}
	return nil
}
