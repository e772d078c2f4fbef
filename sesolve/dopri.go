package sesolve

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"

	"github.com/fumin/qoptics/mat"
)

// Dormand-Prince 5(4) Butcher tableau.
var (
	dpA = [7][]float64{
		{},
		{1. / 5},
		{3. / 40, 9. / 40},
		{44. / 45, -56. / 15, 32. / 9},
		{19372. / 6561, -25360. / 2187, 64448. / 6561, -212. / 729},
		{9017. / 3168, -355. / 33, 46732. / 5247, 49. / 176, -5103. / 18656},
		{35. / 384, 0, 500. / 1113, 125. / 192, -2187. / 6784, 11. / 84},
	}
	// dpE is the difference between the fifth and fourth order weights.
	dpE = [7]float64{71. / 57600, 0, -71. / 16695, 71. / 1920, -17253. / 339200, 22. / 525, -1. / 40}
)

const (
	safety    = 0.9
	minFactor = 0.2
	maxFactor = 10
)

// dopri integrates dy/dt = -iHy with the Dormand-Prince 5(4) pair.
// The last stage of an accepted step is the first stage of the next.
type dopri struct {
	h        *mat.Dense
	atol     float64
	rtol     float64
	maxSteps int

	y    []complex128
	ynew []complex128
	yerr []complex128
	k    [7][]complex128

	step   float64
	nsteps int
}

func newDopri(h *mat.Dense, psi []complex128, opt Options, tlist []float64) *dopri {
	n := len(psi)
	d := &dopri{h: h, atol: opt.atol, rtol: opt.rtol, maxSteps: opt.maxSteps}
	d.y = append([]complex128(nil), psi...)
	d.ynew = make([]complex128, n)
	d.yerr = make([]complex128, n)
	for i := range d.k {
		d.k[i] = make([]complex128, n)
	}
	d.f(d.k[0], d.y)

	d.step = opt.firstStep
	if d.step == 0 {
		d.step = initialStep(h, tlist)
	}
	return d
}

// initialStep is a fraction of the shortest period allowed by the spectral radius bound.
func initialStep(h *mat.Dense, tlist []float64) float64 {
	span := 1.0
	if len(tlist) > 1 {
		span = tlist[len(tlist)-1] - tlist[0]
	}
	lo, hi := h.Gerschgorin()
	r := max(math.Abs(lo), math.Abs(hi))
	if r == 0 {
		return span
	}
	return min(span, 0.1/r)
}

func (d *dopri) f(dst, y []complex128) {
	d.h.MulVecTo(dst, y)
	cmplxs.Scale(-1i, dst)
}

func (d *dopri) steps() int { return d.nsteps }

func (d *dopri) advance(t0, t1 float64) ([]complex128, error) {
	t := t0
	for t < t1 {
		if d.nsteps >= d.maxSteps {
			return nil, errors.Wrapf(ErrMaxSteps, "%d steps at t %f", d.nsteps, t)
		}
		d.nsteps++

		h := d.step
		last := false
		if t+1.01*h >= t1 {
			h = t1 - t
			last = true
		}
		if ulp := math.Nextafter(math.Abs(t), math.Inf(1)) - math.Abs(t); h <= 10*ulp {
			return nil, errors.Wrapf(ErrIntegrationDivergence, "step size %g underflows at t %f", h, t)
		}

		errNorm := d.try(h)
		if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
			return nil, errors.Wrapf(ErrIntegrationDivergence, "error norm %f at t %f", errNorm, t)
		}
		if errNorm > 1 {
			d.step = h * max(minFactor, safety*math.Pow(errNorm, -0.2))
			continue
		}

		if last {
			t = t1
		} else {
			t += h
		}
		d.y, d.ynew = d.ynew, d.y
		d.k[0], d.k[6] = d.k[6], d.k[0]
		factor := float64(maxFactor)
		if errNorm > 0 {
			factor = min(maxFactor, max(minFactor, safety*math.Pow(errNorm, -0.2)))
		}
		// A step truncated to land on t1 only ever shrinks the next one.
		if !last || h*factor < d.step {
			d.step = h * factor
		}
	}
	return d.y, nil
}

// try computes a step of size h from d.y into d.ynew and d.k[6], and returns the scaled RMS error.
func (d *dopri) try(h float64) float64 {
	for s := 1; s < 7; s++ {
		copy(d.ynew, d.y)
		for j, a := range dpA[s] {
			if a == 0 {
				continue
			}
			cmplxs.AddScaled(d.ynew, complex(h*a, 0), d.k[j])
		}
		d.f(d.k[s], d.ynew)
	}

	for i := range d.yerr {
		d.yerr[i] = 0
	}
	for j, e := range dpE {
		if e == 0 {
			continue
		}
		cmplxs.AddScaled(d.yerr, complex(h*e, 0), d.k[j])
	}

	var sum float64
	for i, e := range d.yerr {
		sc := d.atol + d.rtol*max(cmplx.Abs(d.y[i]), cmplx.Abs(d.ynew[i]))
		r := cmplx.Abs(e) / sc
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(d.yerr)))
}
