package kinetics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// rosenbrock is the modified Rosenbrock 2(3) pair of Shampine and Reichelt
// with a finite-difference Jacobian refreshed at every accepted state.
type rosenbrock struct {
	f    RHS
	opts IntegratorOptions
	n    int

	d, e32 float64

	f0, f1, f2, dfdt []float64
	k1, k2, k3       []float64
	tmp, next, errv  []float64
	probe            []float64

	jac *mat.Dense
	w   *mat.Dense
	lu  mat.LU
}

func newRosenbrock(f RHS, n int, opts IntegratorOptions) *rosenbrock {
	alloc := func() []float64 { return make([]float64, n) }
	return &rosenbrock{
		f: f, opts: opts, n: n,
		d:   1 / (2 + math.Sqrt2),
		e32: 6 + math.Sqrt2,
		f0:  alloc(), f1: alloc(), f2: alloc(), dfdt: alloc(),
		k1: alloc(), k2: alloc(), k3: alloc(),
		tmp: alloc(), next: alloc(), errv: alloc(), probe: alloc(),
		jac: mat.NewDense(n, n, nil),
		w:   mat.NewDense(n, n, nil),
	}
}

func (r *rosenbrock) order() float64 { return 3 }

func (r *rosenbrock) result() []float64 { return r.next }

func (r *rosenbrock) reset(t float64, y []float64) {
	r.f(t, y, r.f0)
	r.linearize(t, y)
}

func (r *rosenbrock) accept(t, _ float64, y []float64) {
	copy(r.f0, r.f2)
	r.linearize(t, y)
}

// linearize refreshes the Jacobian and the time derivative at (t, y); f0
// must already hold f(t, y).
func (r *rosenbrock) linearize(t float64, y []float64) {
	const sqrtEps = 1.4901161193847656e-08
	copy(r.tmp, y)
	for j := 0; j < r.n; j++ {
		delta := sqrtEps * math.Max(math.Abs(y[j]), 1e-6)
		r.tmp[j] = y[j] + delta
		r.f(t, r.tmp, r.probe)
		for i := 0; i < r.n; i++ {
			r.jac.Set(i, j, (r.probe[i]-r.f0[i])/delta)
		}
		r.tmp[j] = y[j]
	}
	dt := sqrtEps * math.Max(math.Abs(t), 1)
	r.f(t+dt, y, r.probe)
	for i := range r.dfdt {
		r.dfdt[i] = (r.probe[i] - r.f0[i]) / dt
	}
}

func (r *rosenbrock) attempt(t, h float64, y []float64) float64 {
	n := r.n
	hd := h * r.d
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -hd * r.jac.At(i, j)
			if i == j {
				v++
			}
			r.w.Set(i, j, v)
		}
	}
	r.lu.Factorize(r.w)
	if r.lu.Det() == 0 {
		return math.Inf(1)
	}

	for i := 0; i < n; i++ {
		r.tmp[i] = r.f0[i] + hd*r.dfdt[i]
	}
	if !r.solve(r.k1, r.tmp) {
		return math.Inf(1)
	}

	for i := 0; i < n; i++ {
		r.tmp[i] = y[i] + 0.5*h*r.k1[i]
	}
	r.f(t+0.5*h, r.tmp, r.f1)
	for i := 0; i < n; i++ {
		r.tmp[i] = r.f1[i] - r.k1[i]
	}
	if !r.solve(r.k2, r.tmp) {
		return math.Inf(1)
	}
	for i := 0; i < n; i++ {
		r.k2[i] += r.k1[i]
		r.next[i] = y[i] + h*r.k2[i]
	}

	r.f(t+h, r.next, r.f2)
	for i := 0; i < n; i++ {
		r.tmp[i] = r.f2[i] - r.e32*(r.k2[i]-r.f1[i]) - 2*(r.k1[i]-r.f0[i]) + hd*r.dfdt[i]
	}
	if !r.solve(r.k3, r.tmp) {
		return math.Inf(1)
	}
	for i := 0; i < n; i++ {
		r.errv[i] = h / 6 * (r.k1[i] - 2*r.k2[i] + r.k3[i])
	}
	return errorNorm(r.opts, r.errv, y, r.next)
}

func (r *rosenbrock) solve(dst, rhs []float64) bool {
	x := mat.NewVecDense(r.n, dst)
	if err := r.lu.SolveVecTo(x, false, mat.NewVecDense(r.n, rhs)); err != nil {
		return false
	}
	return true
}
