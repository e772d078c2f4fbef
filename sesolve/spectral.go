package sesolve

import (
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"

	"github.com/fumin/qoptics/mat"
)

// spectral propagates exactly, psi(t) = sum_k c_k exp(-i E_k (t-t0)) |v_k>, where c_k = <v_k|psi0>.
type spectral struct {
	eig  []mat.ValVec
	coef []complex128
	t0   float64
	psi  []complex128
	n    int
}

// newSpectral factorizes the Hermitian part (h+h^H)/2 of h.
func newSpectral(h *mat.Dense, psi []complex128, t0 float64) (*spectral, error) {
	sum, err := h.Add(h.H())
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	eig, err := sum.Scale(0.5).EigenH()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	s := &spectral{eig: eig, t0: t0, psi: make([]complex128, len(psi))}
	s.coef = make([]complex128, len(eig))
	for k, e := range eig {
		s.coef[k] = cmplxs.Dot(e.Vec, psi)
	}
	return s, nil
}

func (s *spectral) steps() int { return s.n }

func (s *spectral) advance(_, t1 float64) ([]complex128, error) {
	s.n++
	for i := range s.psi {
		s.psi[i] = 0
	}
	dt := t1 - s.t0
	for k, e := range s.eig {
		c := s.coef[k] * cmplx.Exp(complex(0, -e.Val*dt))
		cmplxs.AddScaled(s.psi, c, e.Vec)
	}
	return s.psi, nil
}
