// Package qoptics runs the two level atom scenarios of an introductory quantum optics course.
package qoptics

import (
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/fumin/qoptics/bloch"
	"github.com/fumin/qoptics/mat"
	"github.com/fumin/qoptics/qobj"
	"github.com/fumin/qoptics/sesolve"
)

var (
	// RabiLabels names the observables of a Rabi run.
	RabiLabels = []string{"ground", "excited"}
)

// Ground returns the ground state |g> = |0> of a two level atom.
func Ground() *qobj.Qobj { return qobj.Must(qobj.Basis(2, 0)) }

// Excited returns the excited state |e> = |1> of a two level atom.
func Excited() *qobj.Qobj { return qobj.Must(qobj.Basis(2, 1)) }

// RabiHamiltonian returns omega(|g><e| + |e><g|) + detuning/2 (|e><e| - |g><g|).
func RabiHamiltonian(omega, detuning float64) (*qobj.Hamiltonian, error) {
	g, e := Ground(), Excited()
	w, d := complex(omega, 0), complex(detuning/2, 0)
	h, err := qobj.HamiltonianFromTerms(mat.DefaultTol,
		qobj.Term{Weight: w, Ket: g, Bra: e.Dagger()},
		qobj.Term{Weight: w, Ket: e, Bra: g.Dagger()},
		qobj.Term{Weight: d, Ket: e, Bra: e.Dagger()},
		qobj.Term{Weight: -d, Ket: g, Bra: g.Dagger()},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "%f %f", omega, detuning)
	}
	return h, nil
}

// RabiProbability returns the excited state population at time t of an atom starting in |e>, evolving under RabiHamiltonian(omega, detuning).
func RabiProbability(omega, detuning, t float64) float64 {
	w := math.Hypot(omega, detuning/2)
	if w == 0 {
		return 1
	}
	s := math.Sin(w * t)
	return 1 - (omega*omega)/(w*w)*s*s
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, stop)
}

// RabiConfig is a Rabi oscillation experiment.
type RabiConfig struct {
	Omega    float64
	Detuning float64
	// Points is the number of evenly spaced time points.
	Points int
	// Periods is the duration in units of 2pi/Omega.
	Periods float64
	Options sesolve.Options
}

// NewRabiConfig returns the resonant experiment of 500 points over one period 2pi/omega.
func NewRabiConfig(omega float64) RabiConfig {
	return RabiConfig{Omega: omega, Points: 500, Periods: 1, Options: sesolve.NewOptions()}
}

// Times returns the time grid of the experiment.
func (cfg RabiConfig) Times() []float64 {
	return Linspace(0, cfg.Periods*2*math.Pi/cfg.Omega, cfg.Points)
}

// Rabi evolves |e> and returns the populations of |g> and |e> over time.
func Rabi(cfg RabiConfig) (*sesolve.Result, error) {
	if !(cfg.Omega > 0) || cfg.Points <= 0 || !(cfg.Periods > 0) {
		return nil, errors.Wrapf(sesolve.ErrInvalidOptions, "%#v", cfg)
	}
	h, err := RabiHamiltonian(cfg.Omega, cfg.Detuning)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	g, e := Ground(), Excited()
	eOps := make([]*qobj.Qobj, 0, 2)
	for _, ket := range []*qobj.Qobj{g, e} {
		p, err := qobj.Projector(ket)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		eOps = append(eOps, p)
	}

	res, err := sesolve.Solve(h, e, cfg.Times(), eOps, cfg.Options)
	if err != nil {
		return nil, errors.Wrapf(err, "%f %f", cfg.Omega, cfg.Detuning)
	}
	return res, nil
}

// TourStates are the qubit states (theta, phi) placed on the Bloch sphere by Tour.
var TourStates = [][2]float64{{math.Pi, 0}, {math.Pi / 2, math.Pi / 2}}

// Tour prints the quantum objects of the introduction, and adds each of TourStates and its antipode to sphere.
func Tour(w io.Writer, sphere *bloch.Sphere) error {
	objs := []struct {
		name string
		q    func() (*qobj.Qobj, error)
	}{
		{name: "identity", q: func() (*qobj.Qobj, error) { return qobj.New([][]complex128{{1, 0}, {0, 1}}) }},
		{name: "column", q: func() (*qobj.Qobj, error) { return qobj.New([][]complex128{{1}, {0}}) }},
		{name: "column dagger", q: func() (*qobj.Qobj, error) {
			q, err := qobj.New([][]complex128{{1}, {0}})
			if err != nil {
				return nil, err
			}
			return q.Dagger(), nil
		}},
		{name: "basis(4, 1)", q: func() (*qobj.Qobj, error) { return qobj.Basis(4, 1) }},
		{name: "coherent(10, 1)", q: func() (*qobj.Qobj, error) { return qobj.Coherent(10, 1) }},
		{name: "|0>", q: func() (*qobj.Qobj, error) { return Ground(), nil }},
		{name: "|1>", q: func() (*qobj.Qobj, error) { return Excited(), nil }},
	}
	for _, o := range objs {
		q, err := o.q()
		if err != nil {
			return errors.Wrap(err, o.name)
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n\n", o.name, q); err != nil {
			return errors.Wrap(err, "")
		}
	}

	for _, ang := range TourStates {
		psi := qobj.QubitState(ang[0], ang[1])
		anti, err := bloch.Antipode(psi)
		if err != nil {
			return errors.Wrap(err, "")
		}
		overlap, err := qobj.Overlap(psi, anti)
		if err != nil {
			return errors.Wrap(err, "")
		}
		if err := sphere.AddStates(psi, anti); err != nil {
			return errors.Wrap(err, "")
		}
		c, err := bloch.ToCoordinates(psi)
		if err != nil {
			return errors.Wrap(err, "")
		}
		if _, err := fmt.Fprintf(w, "theta %f phi %f bloch %v antipode overlap %.3g\n", ang[0], ang[1], c, overlap); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}
