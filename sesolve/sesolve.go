// Package sesolve solves the Schrodinger equation i d/dt |psi> = H |psi> for a time independent Hamiltonian, with hbar = 1.
//
// References:
//   - Solving Ordinary Differential Equations I, Hairer, Norsett and Wanner, Section II.4 and II.5.
package sesolve

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"

	"github.com/fumin/qoptics/mat"
	"github.com/fumin/qoptics/qobj"
	"github.com/fumin/qoptics/util"
)

var (
	// ErrInvalidState is returned when the initial state has zero norm.
	ErrInvalidState = errors.New("invalid state")
	// ErrIntegrationDivergence is returned when the norm of the state drifts beyond tolerance, or the step size underflows.
	ErrIntegrationDivergence = errors.New("integration divergence")
	// ErrInvalidTimes is returned when the requested times are empty, not finite or not strictly increasing.
	ErrInvalidTimes = errors.New("invalid times")
	// ErrMaxSteps is returned when the step budget is exhausted.
	ErrMaxSteps = errors.New("maximum number of steps exceeded")
	// ErrInvalidOptions is returned for out of range options.
	ErrInvalidOptions = errors.New("invalid options")
	// ErrSolverState is returned when running a solver that is not freshly configured.
	ErrSolverState = errors.New("solver already run")
)

// Status is the lifecycle state of a Solver.
type Status int

const (
	Configured Status = iota
	Running
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Solver evolves states under a fixed Hamiltonian.
// A Solver runs once, moving from Configured to Running and then to Completed or Failed.
type Solver struct {
	h   *qobj.Hamiltonian
	opt Options

	mu     sync.Mutex
	status Status
	err    error
}

// NewSolver returns a configured solver.
func NewSolver(h *qobj.Hamiltonian, options ...Options) *Solver {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	return &Solver{h: h, opt: opt, status: Configured}
}

func (s *Solver) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the error of a failed run.
func (s *Solver) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Solve evolves psi0 under h and returns the expectation values of eOps at each of tlist.
func Solve(h *qobj.Hamiltonian, psi0 *qobj.Qobj, tlist []float64, eOps []*qobj.Qobj, options ...Options) (*Result, error) {
	res, err := NewSolver(h, options...).Run(psi0, tlist, eOps)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return res, nil
}

// Run evolves psi0 from tlist[0] and records, at every time in tlist, the real part of <psi(t)|O|psi(t)> for each O in eOps.
// psi0 is normalized before evolution.
func (s *Solver) Run(psi0 *qobj.Qobj, tlist []float64, eOps []*qobj.Qobj) (*Result, error) {
	s.mu.Lock()
	if s.status != Configured {
		status := s.status
		s.mu.Unlock()
		return nil, errors.Wrapf(ErrSolverState, "%v", status)
	}
	s.status = Running
	s.mu.Unlock()

	res, err := s.run(psi0, tlist, eOps)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = Failed
		s.err = err
		return nil, err
	}
	s.status = Completed
	return res, nil
}

func (s *Solver) run(psi0 *qobj.Qobj, tlist []float64, eOps []*qobj.Qobj) (*Result, error) {
	if err := s.opt.validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := s.validate(psi0, tlist, eOps); err != nil {
		return nil, errors.Wrap(err, "")
	}

	psi := psi0.Amplitudes()
	norm := cmplxs.Norm(psi, 2)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, errors.Wrapf(ErrInvalidState, "norm %f", norm)
	}
	cmplxs.Scale(complex(1/norm, 0), psi)

	rec := newRecorder(s.opt, tlist, eOps)
	var prop propagator
	switch s.opt.method {
	case Spectral:
		sp, err := newSpectral(s.h.Operator().Data(), psi, tlist[0])
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		prop = sp
	default:
		prop = newDopri(s.h.Operator().Data(), psi, s.opt, tlist)
	}

	throttler := util.NewSkipThrottler(time.Second)
	log := s.opt.logger
	start := time.Now()
	if err := rec.record(0, psi); err != nil {
		return nil, errors.Wrap(err, "")
	}
	for i := 1; i < len(tlist); i++ {
		var err error
		psi, err = prop.advance(tlist[i-1], tlist[i])
		if err != nil {
			return nil, errors.Wrapf(err, "t %f", tlist[i])
		}
		if err := rec.record(i, psi); err != nil {
			return nil, errors.Wrap(err, "")
		}

		if throttler.Ok() {
			log.Debug().Int("i", i).Int("n", len(tlist)).Float64("t", tlist[i]).Int("steps", prop.steps()).Msg("sesolve progress")
		}
	}
	log.Info().Str("method", s.opt.method.String()).Int("points", len(tlist)).Int("steps", prop.steps()).Float64("normDrift", rec.maxNormDrift).Dur("elapsed", time.Since(start)).Msg("sesolve done")

	return rec.result(prop.steps()), nil
}

func (s *Solver) validate(psi0 *qobj.Qobj, tlist []float64, eOps []*qobj.Qobj) error {
	n := s.h.Dims()
	if psi0.Kind() != qobj.Ket {
		return errors.Wrapf(qobj.ErrTypeMismatch, "initial state is a %v", psi0.Kind())
	}
	if psi0.Dims() != n {
		return errors.Wrapf(mat.ErrDimensionMismatch, "initial state %d, Hamiltonian %d", psi0.Dims(), n)
	}
	for j, op := range eOps {
		if op.Kind() != qobj.Operator {
			return errors.Wrapf(qobj.ErrTypeMismatch, "observable %d is a %v", j, op.Kind())
		}
		if op.Dims() != n {
			return errors.Wrapf(mat.ErrDimensionMismatch, "observable %d %d, Hamiltonian %d", j, op.Dims(), n)
		}
	}

	if len(tlist) == 0 {
		return errors.Wrap(ErrInvalidTimes, "empty")
	}
	for i, t := range tlist {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return errors.Wrapf(ErrInvalidTimes, "%d %f", i, t)
		}
		if i > 0 && !(t > tlist[i-1]) {
			return errors.Wrapf(ErrInvalidTimes, "%d %f <= %f", i, t, tlist[i-1])
		}
	}
	return nil
}

// propagator advances the state between consecutive requested times.
type propagator interface {
	// advance evolves the state from t0 to t1 and returns it.
	// The returned slice is owned by the propagator.
	advance(t0, t1 float64) ([]complex128, error)
	steps() int
}

// recorder computes expectation values and checks the norm at requested times.
type recorder struct {
	normTol float64
	eOps    []*mat.Dense

	times        []float64
	expect       [][]float64
	states       [][]complex128
	storeStates  bool
	maxNormDrift float64

	buf []complex128
}

func newRecorder(opt Options, tlist []float64, eOps []*qobj.Qobj) *recorder {
	r := &recorder{normTol: opt.normTol}
	r.times = append([]float64(nil), tlist...)
	r.expect = make([][]float64, len(eOps))
	for j, op := range eOps {
		r.eOps = append(r.eOps, op.Data())
		r.expect[j] = make([]float64, len(tlist))
	}
	r.storeStates = opt.storeStates || len(eOps) == 0
	if r.storeStates {
		r.states = make([][]complex128, 0, len(tlist))
	}
	return r
}

func (r *recorder) record(i int, psi []complex128) error {
	drift := math.Abs(cmplxs.Norm(psi, 2) - 1)
	if math.IsNaN(drift) {
		drift = math.Inf(1)
	}
	r.maxNormDrift = max(r.maxNormDrift, drift)
	if drift > r.normTol {
		return errors.Wrapf(ErrIntegrationDivergence, "norm drift %g at t %f exceeds %g", drift, r.times[i], r.normTol)
	}

	if len(r.buf) != len(psi) {
		r.buf = make([]complex128, len(psi))
	}
	for j, op := range r.eOps {
		op.MulVecTo(r.buf, psi)
		r.expect[j][i] = real(cmplxs.Dot(psi, r.buf))
	}
	if r.storeStates {
		r.states = append(r.states, append([]complex128(nil), psi...))
	}
	return nil
}

func (r *recorder) result(steps int) *Result {
	return &Result{
		times:        r.times,
		expect:       r.expect,
		states:       r.states,
		steps:        steps,
		maxNormDrift: r.maxNormDrift,
	}
}
