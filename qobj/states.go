package qobj

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Basis returns the n-th basis ket of an N dimensional Hilbert space.
func Basis(N, n int) (*Qobj, error) {
	if N <= 0 {
		return nil, errors.Wrapf(ErrInvalidShape, "dimension %d", N)
	}
	if n < 0 || n >= N {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "%d not in [0, %d)", n, N)
	}
	vec := make([]complex128, N)
	vec[n] = 1
	return NewKet(vec)
}

// Fock is an alias of Basis, the n photon state in a Fock space truncated at N levels.
func Fock(N, n int) (*Qobj, error) {
	return Basis(N, n)
}

// Coherent returns the coherent state |alpha> truncated to the lowest N Fock states.
//
// The amplitudes are exp(-|alpha|^2/2) alpha^n / sqrt(n!), renormalized over the retained levels.
// They are computed in log space, since exp(-|alpha|^2/2) underflows for large |alpha|.
// The truncation error grows as |alpha|^2 approaches N.
func Coherent(N int, alpha complex128) (*Qobj, error) {
	if N <= 0 {
		return nil, errors.Wrapf(ErrInvalidShape, "dimension %d", N)
	}
	if alpha == 0 {
		return Basis(N, 0)
	}

	logAbs, phase := math.Log(cmplx.Abs(alpha)), cmplx.Phase(alpha)
	logc := make([]float64, N)
	for n := range N {
		lg, _ := math.Lgamma(float64(n + 1))
		logc[n] = float64(n)*logAbs - lg/2
	}
	maxLog := floats.Max(logc)
	vec := make([]complex128, N)
	for n, l := range logc {
		vec[n] = cmplx.Rect(math.Exp(l-maxLog), float64(n)*phase)
	}

	ket, err := NewKet(vec)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	ket, err = ket.Unit()
	if err != nil {
		return nil, errors.Wrapf(err, "%d %v", N, alpha)
	}
	return ket, nil
}

// QubitState returns cos(theta/2)|0> + exp(i phi) sin(theta/2)|1>.
func QubitState(theta, phi float64) *Qobj {
	vec := []complex128{
		complex(math.Cos(theta/2), 0),
		cmplx.Exp(complex(0, phi)) * complex(math.Sin(theta/2), 0),
	}
	return Must(NewKet(vec))
}
