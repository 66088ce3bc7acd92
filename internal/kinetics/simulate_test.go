package kinetics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"enzyflow/internal/model"
)

func optimumEnv(p model.KineticParams) model.Environment {
	return model.Environment{Temperature: p.TOpt, PH: p.PHOpt}
}

func TestSimulateSingleReferenceScenario(t *testing.T) {
	sim := NewSimulator(DefaultIntegratorOptions(), nil)
	p := model.KineticParams{Kcat: 10, Km: 1, Ki: 10, TOpt: 50, PHOpt: 5}

	trace, err := sim.SimulateSingle(context.Background(), SingleRequest{
		Params:        p,
		Env:           optimumEnv(p),
		SubstrateInit: 100,
		EnzymeConc:    1e-5,
		Duration:      24 * 3600,
		Steps:         100,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(trace.Samples) != 101 {
		t.Fatalf("expected 101 samples, got %d", len(trace.Samples))
	}
	if trace.Samples[0].Time != 0 || trace.Samples[100].Time != 24*3600 {
		t.Fatalf("unexpected time axis bounds: %f..%f", trace.Samples[0].Time, trace.Samples[100].Time)
	}
	final, ok := trace.Final(SpeciesProduct)
	if !ok {
		t.Fatal("expected product species in trace")
	}
	if !(final > 0 && final < 100) {
		t.Fatalf("expected 0 < P < 100, got %f", final)
	}
}

func TestSimulateSingleConservesMassAndIsMonotone(t *testing.T) {
	sim := NewSimulator(DefaultIntegratorOptions(), nil)
	cases := []model.KineticParams{
		{Kcat: 10, Km: 1, Ki: 10, TOpt: 50, PHOpt: 5},
		{Kcat: 500, Km: 0.01, Ki: 0.5, TOpt: 50, PHOpt: 5},
		{Kcat: 0.5, Km: 40, Ki: 80, TOpt: 45, PHOpt: 6},
		{Kcat: 2000, Km: 0.001, Ki: 1000, TOpt: 50, PHOpt: 5},
	}
	for _, p := range cases {
		trace, err := sim.SimulateSingle(context.Background(), SingleRequest{
			Params:        p,
			Env:           model.Environment{Temperature: 50, PH: 5},
			SubstrateInit: 100,
			EnzymeConc:    1e-3,
			Duration:      3600,
			Steps:         60,
		})
		if err != nil {
			t.Fatalf("simulate %+v: %v", p, err)
		}
		prev := 0.0
		for i, s := range trace.Samples {
			sub, prod := s.Concentrations[0], s.Concentrations[1]
			if math.Abs(sub+prod-100) > 1e-6 {
				t.Fatalf("mass not conserved at sample %d: S+P=%f", i, sub+prod)
			}
			if prod < prev-1e-7 {
				t.Fatalf("product decreased at sample %d: %f < %f", i, prod, prev)
			}
			if prod > 100+1e-6 {
				t.Fatalf("product exceeded S0 at sample %d: %f", i, prod)
			}
			prev = prod
		}
	}
}

func TestSimulateSingleMatchesFirstOrderSolution(t *testing.T) {
	sim := NewSimulator(DefaultIntegratorOptions(), nil)
	// S << Km and negligible product inhibition reduce the rate law to
	// dS/dt = -(kcat*E/Km)*S.
	p := model.KineticParams{Kcat: 1e4, Km: 1000, Ki: 1e12, TOpt: 50, PHOpt: 5}
	trace, err := sim.SimulateSingle(context.Background(), SingleRequest{
		Params:        p,
		Env:           optimumEnv(p),
		SubstrateInit: 1e-3,
		EnzymeConc:    1e-3,
		Duration:      200,
		Steps:         20,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	k := 1e4 * 1e-3 / 1000
	for _, s := range trace.Samples {
		want := 1e-3 * math.Exp(-k*s.Time)
		if math.Abs(s.Concentrations[0]-want) > 1e-4*1e-3 {
			t.Fatalf("t=%f: S=%g want %g", s.Time, s.Concentrations[0], want)
		}
	}
}

func TestSimulateSingleDefaultsZeroValues(t *testing.T) {
	sim := NewSimulator(IntegratorOptions{}, nil)
	p := model.KineticParams{Kcat: 1, Km: 1, Ki: 1, TOpt: 50, PHOpt: 5}
	trace, err := sim.SimulateSingle(context.Background(), SingleRequest{Params: p, Env: optimumEnv(p)})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(trace.Samples) != DefaultSteps+1 {
		t.Fatalf("expected %d samples, got %d", DefaultSteps+1, len(trace.Samples))
	}
	if trace.Samples[0].Concentrations[0] != DefaultSubstrate {
		t.Fatalf("expected default substrate %f, got %f", DefaultSubstrate, trace.Samples[0].Concentrations[0])
	}
}

func TestSimulateSingleClampsZeroConstants(t *testing.T) {
	sim := NewSimulator(DefaultIntegratorOptions(), nil)
	p := model.KineticParams{Kcat: 1, Km: 0, Ki: 0, TOpt: 50, PHOpt: 5}
	trace, err := sim.SimulateSingle(context.Background(), SingleRequest{Params: p, Env: optimumEnv(p), Duration: 600, Steps: 10})
	if err != nil {
		t.Fatalf("expected zero Km/Ki to be clamped, got %v", err)
	}
	for _, s := range trace.Samples {
		for _, c := range s.Concentrations {
			if math.IsNaN(c) {
				t.Fatal("unexpected NaN concentration")
			}
		}
	}
}

func TestSimulateSingleRejectsInvalidModel(t *testing.T) {
	sim := NewSimulator(DefaultIntegratorOptions(), nil)
	valid := model.KineticParams{Kcat: 1, Km: 1, Ki: 1, TOpt: 50, PHOpt: 5}
	cases := []SingleRequest{
		{Params: model.KineticParams{Kcat: -1, Km: 1, Ki: 1}},
		{Params: model.KineticParams{Kcat: 1, Km: -1, Ki: 1}},
		{Params: model.KineticParams{Kcat: 1, Km: math.NaN(), Ki: 1}},
		{Params: valid, Duration: -5},
		{Params: valid, Steps: -1},
		{Params: valid, EnzymeConc: -1e-6},
		{Params: valid, SubstrateInit: -1},
	}
	for i, req := range cases {
		_, err := sim.SimulateSingle(context.Background(), req)
		if !errors.Is(err, ErrInvalidModel) {
			t.Fatalf("case %d: expected ErrInvalidModel, got %v", i, err)
		}
		if !errors.Is(err, ErrIntegration) {
			t.Fatalf("case %d: expected invalid model to wrap ErrIntegration", i)
		}
	}
}

func TestSimulateStepBudgetExhausted(t *testing.T) {
	sim := NewSimulator(IntegratorOptions{MaxSteps: 3}, nil)
	p := model.KineticParams{Kcat: 1000, Km: 0.01, Ki: 10, TOpt: 50, PHOpt: 5}
	_, err := sim.SimulateSingle(context.Background(), SingleRequest{Params: p, Env: optimumEnv(p), EnzymeConc: 1})
	if !errors.Is(err, ErrIntegration) {
		t.Fatalf("expected ErrIntegration, got %v", err)
	}
}

func TestSimulateHonoursCancellation(t *testing.T) {
	sim := NewSimulator(DefaultIntegratorOptions(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := model.KineticParams{Kcat: 10, Km: 1, Ki: 10, TOpt: 50, PHOpt: 5}
	_, err := sim.SimulateSingle(ctx, SingleRequest{Params: p, Env: optimumEnv(p)})
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrIntegration) {
		t.Fatalf("expected cancelled integration failure, got %v", err)
	}
}

type recordingObserver struct {
	kinds []string
	errs  []error
}

func (r *recordingObserver) ObserveSimulation(kind string, _ time.Duration, err error) {
	r.kinds = append(r.kinds, kind)
	r.errs = append(r.errs, err)
}

func TestSimulatorReportsToObserver(t *testing.T) {
	obs := &recordingObserver{}
	sim := NewSimulator(DefaultIntegratorOptions(), nil)
	sim.Observer = obs
	p := model.KineticParams{Kcat: 10, Km: 1, Ki: 10, TOpt: 50, PHOpt: 5}

	if _, err := sim.SimulateSingle(context.Background(), SingleRequest{Params: p, Env: optimumEnv(p), Duration: 60, Steps: 2}); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	_, _ = sim.SimulateCascade(context.Background(), CascadeRequest{First: p, Second: p, Env: optimumEnv(p), Duration: -1})

	if len(obs.kinds) != 2 || obs.kinds[0] != KindSingle || obs.kinds[1] != KindCascade {
		t.Fatalf("unexpected observed kinds: %v", obs.kinds)
	}
	if obs.errs[0] != nil || obs.errs[1] == nil {
		t.Fatalf("unexpected observed errors: %v", obs.errs)
	}
}

func TestSimulateCascadeConservesMass(t *testing.T) {
	sim := NewSimulator(DefaultIntegratorOptions(), nil)
	eg := model.KineticParams{Kcat: 20, Km: 2, Ki: 5, TOpt: 50, PHOpt: 5}
	bg := model.KineticParams{Kcat: 60, Km: 1, Ki: 2, TOpt: 50, PHOpt: 5}
	trace, err := sim.SimulateCascade(context.Background(), CascadeRequest{
		First: eg, Second: bg,
		Env:       model.Environment{Temperature: 50, PH: 5},
		FirstConc: 1e-4, SecondConc: 1e-4,
		Duration: 12 * 3600, Steps: 48,
	})
	if err != nil {
		t.Fatalf("simulate cascade: %v", err)
	}
	if got := trace.Species; len(got) != 3 || got[0] != SpeciesSubstrate || got[1] != SpeciesCellobiose || got[2] != SpeciesGlucose {
		t.Fatalf("unexpected species: %v", got)
	}
	for i, s := range trace.Samples {
		total := s.Concentrations[0] + s.Concentrations[1] + s.Concentrations[2]
		if math.Abs(total-100) > 1e-6 {
			t.Fatalf("mass not conserved at sample %d: %f", i, total)
		}
	}
	if g, _ := trace.Final(SpeciesGlucose); g <= 0 {
		t.Fatalf("expected glucose to accumulate, got %f", g)
	}
}

func TestSimulateCascadeLessProductInhibitionMoreGlucose(t *testing.T) {
	sim := NewSimulator(DefaultIntegratorOptions(), nil)
	eg := model.KineticParams{Kcat: 20, Km: 2, Ki: 5, TOpt: 50, PHOpt: 5}
	env := model.Environment{Temperature: 50, PH: 5}

	prev := -1.0
	for _, ki := range []float64{0.5, 1, 2, 5, 20} {
		bg := model.KineticParams{Kcat: 30, Km: 1, Ki: ki, TOpt: 50, PHOpt: 5}
		trace, err := sim.SimulateCascade(context.Background(), CascadeRequest{
			First: eg, Second: bg, Env: env,
			FirstConc: 1e-4, SecondConc: 1e-4,
			Duration: 24 * 3600, Steps: 24,
		})
		if err != nil {
			t.Fatalf("simulate cascade Ki_BG=%f: %v", ki, err)
		}
		g, _ := trace.Final(SpeciesGlucose)
		if g <= prev {
			t.Fatalf("expected glucose to increase with Ki_BG=%f: %f <= %f", ki, g, prev)
		}
		prev = g
	}
}

func TestSampleTimesEvenlySpaced(t *testing.T) {
	times := SampleTimes(10, 4)
	want := []float64{0, 2.5, 5, 7.5, 10}
	for i := range want {
		if math.Abs(times[i]-want[i]) > 1e-12 {
			t.Fatalf("sample %d: got %f want %f", i, times[i], want[i])
		}
	}
}
