package sesolve

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Method is the integration method.
type Method int

const (
	// DormandPrince is the adaptive explicit Runge-Kutta 5(4) pair of Dormand and Prince.
	DormandPrince Method = iota
	// Spectral propagates exactly in the eigenbasis of the Hamiltonian.
	Spectral
)

func (m Method) String() string {
	switch m {
	case DormandPrince:
		return "dopri5"
	case Spectral:
		return "spectral"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod parses the String form of a Method.
func ParseMethod(s string) (Method, error) {
	for _, m := range []Method{DormandPrince, Spectral} {
		if m.String() == s {
			return m, nil
		}
	}
	return -1, errors.Wrapf(ErrInvalidOptions, "unknown method %q", s)
}

// Options are options of the Schrodinger equation solver.
type Options struct {
	method      Method
	atol        float64
	rtol        float64
	normTol     float64
	maxSteps    int
	firstStep   float64
	storeStates bool
	logger      zerolog.Logger
}

// NewOptions returns the default solver options.
func NewOptions() Options {
	opt := Options{}
	opt.method = DormandPrince
	opt.atol = 1e-8
	opt.rtol = 1e-8
	opt.normTol = 1e-4
	opt.maxSteps = 1_000_000
	opt.logger = zerolog.Nop()
	return opt
}

// Method sets the integration method.
func (opt Options) Method(m Method) Options {
	opt.method = m
	return opt
}

// Atol sets the absolute error tolerance of a step.
func (opt Options) Atol(tol float64) Options {
	opt.atol = tol
	return opt
}

// Rtol sets the relative error tolerance of a step.
func (opt Options) Rtol(tol float64) Options {
	opt.rtol = tol
	return opt
}

// NormTol sets the largest tolerated deviation of the state norm from 1 at a requested time.
func (opt Options) NormTol(tol float64) Options {
	opt.normTol = tol
	return opt
}

// MaxSteps sets the maximum number of steps, accepted or rejected, of one run.
func (opt Options) MaxSteps(n int) Options {
	opt.maxSteps = n
	return opt
}

// FirstStep sets the initial step size. Zero means estimate it from the Hamiltonian.
func (opt Options) FirstStep(h float64) Options {
	opt.firstStep = h
	return opt
}

// StoreStates sets whether the state at every requested time is kept in the result.
// States are always kept when there are no observables.
func (opt Options) StoreStates(store bool) Options {
	opt.storeStates = store
	return opt
}

// Logger sets the logger receiving progress records.
func (opt Options) Logger(l zerolog.Logger) Options {
	opt.logger = l
	return opt
}

func (opt Options) validate() error {
	switch {
	case opt.method != DormandPrince && opt.method != Spectral:
		return errors.Wrapf(ErrInvalidOptions, "method %v", opt.method)
	case !(opt.atol > 0) || !(opt.rtol > 0):
		return errors.Wrapf(ErrInvalidOptions, "atol %g rtol %g", opt.atol, opt.rtol)
	case !(opt.normTol > 0):
		return errors.Wrapf(ErrInvalidOptions, "normTol %g", opt.normTol)
	case opt.maxSteps <= 0:
		return errors.Wrapf(ErrInvalidOptions, "maxSteps %d", opt.maxSteps)
	case opt.firstStep < 0:
		return errors.Wrapf(ErrInvalidOptions, "firstStep %g", opt.firstStep)
	}
	return nil
}
