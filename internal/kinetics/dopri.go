package kinetics

import "math"

// Dormand–Prince 5(4) tableau.
const (
	dpC2 = 1.0 / 5
	dpC3 = 3.0 / 10
	dpC4 = 4.0 / 5
	dpC5 = 8.0 / 9

	dpA21 = 1.0 / 5
	dpA31 = 3.0 / 40
	dpA32 = 9.0 / 40
	dpA41 = 44.0 / 45
	dpA42 = -56.0 / 15
	dpA43 = 32.0 / 9
	dpA51 = 19372.0 / 6561
	dpA52 = -25360.0 / 2187
	dpA53 = 64448.0 / 6561
	dpA54 = -212.0 / 729
	dpA61 = 9017.0 / 3168
	dpA62 = -355.0 / 33
	dpA63 = 46732.0 / 5247
	dpA64 = 49.0 / 176
	dpA65 = -5103.0 / 18656
	dpA71 = 35.0 / 384
	dpA73 = 500.0 / 1113
	dpA74 = 125.0 / 192
	dpA75 = -2187.0 / 6784
	dpA76 = 11.0 / 84

	dpE1 = 71.0 / 57600
	dpE3 = -71.0 / 16695
	dpE4 = 71.0 / 1920
	dpE5 = -17253.0 / 339200
	dpE6 = 22.0 / 525
	dpE7 = -1.0 / 40
)

const (
	// stiffnessBound is the h·|λ| estimate past the edge of the stability
	// region on the negative real axis.
	stiffnessBound = 3.25
	stiffnessHits  = 15
	stiffnessMiss  = 6
)

type dormandPrince struct {
	f    RHS
	opts IntegratorOptions
	n    int

	k1, k2, k3, k4, k5, k6, k7 []float64
	stage6, next, errv         []float64

	stiffHits, stiffMisses int
}

func newDormandPrince(f RHS, n int, opts IntegratorOptions) *dormandPrince {
	alloc := func() []float64 { return make([]float64, n) }
	return &dormandPrince{
		f: f, opts: opts, n: n,
		k1: alloc(), k2: alloc(), k3: alloc(), k4: alloc(), k5: alloc(), k6: alloc(), k7: alloc(),
		stage6: alloc(), next: alloc(), errv: alloc(),
	}
}

func (dp *dormandPrince) order() float64 { return 5 }

func (dp *dormandPrince) result() []float64 { return dp.next }

func (dp *dormandPrince) reset(t float64, y []float64) {
	dp.f(t, y, dp.k1)
	dp.stiffHits, dp.stiffMisses = 0, 0
}

func (dp *dormandPrince) attempt(t, h float64, y []float64) float64 {
	n := dp.n
	tmp := dp.stage6
	for i := 0; i < n; i++ {
		tmp[i] = y[i] + h*dpA21*dp.k1[i]
	}
	dp.f(t+dpC2*h, tmp, dp.k2)
	for i := 0; i < n; i++ {
		tmp[i] = y[i] + h*(dpA31*dp.k1[i]+dpA32*dp.k2[i])
	}
	dp.f(t+dpC3*h, tmp, dp.k3)
	for i := 0; i < n; i++ {
		tmp[i] = y[i] + h*(dpA41*dp.k1[i]+dpA42*dp.k2[i]+dpA43*dp.k3[i])
	}
	dp.f(t+dpC4*h, tmp, dp.k4)
	for i := 0; i < n; i++ {
		tmp[i] = y[i] + h*(dpA51*dp.k1[i]+dpA52*dp.k2[i]+dpA53*dp.k3[i]+dpA54*dp.k4[i])
	}
	dp.f(t+dpC5*h, tmp, dp.k5)
	for i := 0; i < n; i++ {
		tmp[i] = y[i] + h*(dpA61*dp.k1[i]+dpA62*dp.k2[i]+dpA63*dp.k3[i]+dpA64*dp.k4[i]+dpA65*dp.k5[i])
	}
	dp.f(t+h, tmp, dp.k6)
	for i := 0; i < n; i++ {
		dp.next[i] = y[i] + h*(dpA71*dp.k1[i]+dpA73*dp.k3[i]+dpA74*dp.k4[i]+dpA75*dp.k5[i]+dpA76*dp.k6[i])
	}
	dp.f(t+h, dp.next, dp.k7)

	for i := 0; i < n; i++ {
		dp.errv[i] = h * (dpE1*dp.k1[i] + dpE3*dp.k3[i] + dpE4*dp.k4[i] + dpE5*dp.k5[i] + dpE6*dp.k6[i] + dpE7*dp.k7[i])
	}
	return errorNorm(dp.opts, dp.errv, y, dp.next)
}

// accept advances the FSAL stage and updates the stiffness counters using
// h·|λ| ≈ h·‖k7-k6‖/‖y₁-y₆‖.
func (dp *dormandPrince) accept(_, h float64, _ []float64) {
	var num, den float64
	for i := 0; i < dp.n; i++ {
		dk := dp.k7[i] - dp.k6[i]
		dy := dp.next[i] - dp.stage6[i]
		num += dk * dk
		den += dy * dy
	}
	if den > 0 && h*math.Sqrt(num/den) > stiffnessBound {
		dp.stiffHits++
		dp.stiffMisses = 0
	} else {
		dp.stiffMisses++
		if dp.stiffMisses >= stiffnessMiss {
			dp.stiffHits = 0
		}
	}
	copy(dp.k1, dp.k7)
}

func (dp *dormandPrince) stiff() bool {
	return dp.stiffHits >= stiffnessHits
}
