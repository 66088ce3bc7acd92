package kinetics

import (
	"context"
	"fmt"
	"math"
)

// RHS evaluates dy/dt at (t, y) into dy.
type RHS func(t float64, y, dy []float64)

// Method selects the stepping scheme.
type Method string

const (
	// MethodAuto starts with Dormand–Prince and switches to Rosenbrock once
	// the problem is detected as stiff.
	MethodAuto          Method = "auto"
	MethodDormandPrince Method = "dopri5"
	MethodRosenbrock    Method = "rosenbrock"
)

type IntegratorOptions struct {
	Method      Method  `json:"method,omitempty"`
	RelTol      float64 `json:"rtol,omitempty"`
	AbsTol      float64 `json:"atol,omitempty"`
	InitialStep float64 `json:"initial_step,omitempty"`
	MaxSteps    int     `json:"max_steps,omitempty"`
}

func DefaultIntegratorOptions() IntegratorOptions {
	return IntegratorOptions{
		Method:   MethodAuto,
		RelTol:   1e-6,
		AbsTol:   1e-9,
		MaxSteps: 200000,
	}
}

func normalizeIntegratorOptions(opts IntegratorOptions) IntegratorOptions {
	def := DefaultIntegratorOptions()
	if opts.Method == "" {
		opts.Method = def.Method
	}
	if opts.RelTol <= 0 {
		opts.RelTol = def.RelTol
	}
	if opts.AbsTol <= 0 {
		opts.AbsTol = def.AbsTol
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = def.MaxSteps
	}
	return opts
}

// IntegrationStats summarizes one integrate call.
type IntegrationStats struct {
	Accepted int
	Rejected int
	Stiff    bool
}

type stepper interface {
	// reset prepares the stepper to start from an accepted state.
	reset(t float64, y []float64)
	// attempt computes a trial step into result() and returns its scaled
	// error norm.
	attempt(t, h float64, y []float64) float64
	result() []float64
	// accept commits the last trial step.
	accept(t, h float64, y []float64)
	order() float64
}

const (
	stepSafety    = 0.9
	stepMinFactor = 0.2
	stepMaxFactor = 5.0
)

// integrate advances y0 from times[0] through every requested output time and
// returns the state at each one. times must be strictly increasing.
func integrate(ctx context.Context, f RHS, y0 []float64, times []float64, opts IntegratorOptions) ([][]float64, IntegrationStats, error) {
	var stats IntegrationStats
	if len(times) == 0 {
		return nil, stats, nil
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return nil, stats, fmt.Errorf("%w: output times must be strictly increasing", ErrIntegration)
		}
	}
	opts = normalizeIntegratorOptions(opts)

	n := len(y0)
	y := append([]float64(nil), y0...)
	out := make([][]float64, 0, len(times))
	out = append(out, append([]float64(nil), y...))

	dp := newDormandPrince(f, n, opts)
	var st stepper
	switch opts.Method {
	case MethodAuto, MethodDormandPrince:
		st = dp
	case MethodRosenbrock:
		st = newRosenbrock(f, n, opts)
		stats.Stiff = true
	default:
		return nil, stats, fmt.Errorf("%w: unknown method %q", ErrIntegration, opts.Method)
	}

	t := times[0]
	h := opts.InitialStep
	if h <= 0 {
		h = initialStep(f, opts, t, y, times[len(times)-1]-t)
		if math.IsNaN(h) || h <= 0 {
			h = (times[len(times)-1] - t) * 1e-6
		}
	}
	st.reset(t, y)

	for _, target := range times[1:] {
		for t < target {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
			if stats.Accepted+stats.Rejected >= opts.MaxSteps {
				return nil, stats, fmt.Errorf("%w: step budget %d exhausted at t=%g", ErrIntegration, opts.MaxSteps, t)
			}
			step := h
			landing := false
			if t+step >= target || target-(t+step) < 1e-10*math.Max(1, math.Abs(target)) {
				step = target - t
				landing = true
			}

			errNorm := st.attempt(t, step, y)
			if math.IsNaN(errNorm) {
				return nil, stats, fmt.Errorf("%w: non-finite state at t=%g", ErrIntegration, t)
			}

			// An infinite norm (singular Rosenbrock matrix, overflow) is a
			// rejected step; a smaller step may still succeed.
			factor := stepMaxFactor
			if math.IsInf(errNorm, 1) {
				factor = stepMinFactor
			} else if errNorm > 0 {
				factor = math.Min(stepMaxFactor, math.Max(stepMinFactor, stepSafety*math.Pow(errNorm, -1/st.order())))
			}

			if errNorm > 1 {
				stats.Rejected++
				h = step * factor
				if h < 1e-14*math.Max(1, math.Abs(t)) {
					return nil, stats, fmt.Errorf("%w: step size underflow at t=%g (err=%g)", ErrIntegration, t, errNorm)
				}
				continue
			}

			stats.Accepted++
			next := t + step
			if landing {
				next = target
			}
			copy(y, st.result())
			st.accept(next, step, y)
			t = next
			// A step shortened to land on an output time says nothing about
			// the achievable step size.
			if !landing || step*factor > h {
				h = step * factor
			}

			if opts.Method == MethodAuto && st == stepper(dp) && dp.stiff() {
				st = newRosenbrock(f, n, opts)
				st.reset(t, y)
				stats.Stiff = true
			}
		}
		for _, v := range y {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, stats, fmt.Errorf("%w: non-finite state at t=%g", ErrIntegration, t)
			}
		}
		out = append(out, append([]float64(nil), y...))
	}
	return out, stats, nil
}

// errorNorm is the RMS of err scaled by atol + rtol*max(|y|,|ynew|).
func errorNorm(opts IntegratorOptions, errv, y, ynew []float64) float64 {
	var sum float64
	for i := range errv {
		scale := opts.AbsTol + opts.RelTol*math.Max(math.Abs(y[i]), math.Abs(ynew[i]))
		r := errv[i] / scale
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(errv)))
}

// initialStep follows the Hairer–Wanner starting-step heuristic.
func initialStep(f RHS, opts IntegratorOptions, t float64, y []float64, span float64) float64 {
	n := len(y)
	f0 := make([]float64, n)
	f(t, y, f0)

	var d0, d1 float64
	for i := 0; i < n; i++ {
		scale := opts.AbsTol + opts.RelTol*math.Abs(y[i])
		d0 += (y[i] / scale) * (y[i] / scale)
		d1 += (f0[i] / scale) * (f0[i] / scale)
	}
	d0 = math.Sqrt(d0 / float64(n))
	d1 = math.Sqrt(d1 / float64(n))

	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	h0 = math.Min(h0, span)

	y1 := make([]float64, n)
	f1 := make([]float64, n)
	for i := range y1 {
		y1[i] = y[i] + h0*f0[i]
	}
	f(t+h0, y1, f1)
	var d2 float64
	for i := 0; i < n; i++ {
		scale := opts.AbsTol + opts.RelTol*math.Abs(y[i])
		diff := (f1[i] - f0[i]) / scale
		d2 += diff * diff
	}
	d2 = math.Sqrt(d2/float64(n)) / h0

	var h1 float64
	if math.Max(d1, d2) <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 0.2)
	}
	return math.Min(math.Min(100*h0, h1), span)
}
