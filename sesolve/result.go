package sesolve

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/fumin/qoptics/mat"
	"github.com/fumin/qoptics/qobj"
)

// Result is the outcome of a completed run.
// It has one row per requested time, and within a row one expectation value per observable, in the order given.
type Result struct {
	times        []float64
	expect       [][]float64
	states       [][]complex128
	steps        int
	maxNormDrift float64
}

// NewResult returns a result with the given times and expectation values, where expect[j][i] is observable j at times[i].
func NewResult(times []float64, expect [][]float64) (*Result, error) {
	for j, e := range expect {
		if len(e) != len(times) {
			return nil, errors.Wrapf(mat.ErrDimensionMismatch, "observable %d has %d values, %d times", j, len(e), len(times))
		}
	}
	r := &Result{times: append([]float64(nil), times...)}
	r.expect = make([][]float64, 0, len(expect))
	for _, e := range expect {
		r.expect = append(r.expect, append([]float64(nil), e...))
	}
	return r, nil
}

func (r *Result) Len() int { return len(r.times) }

func (r *Result) NumObservables() int { return len(r.expect) }

func (r *Result) Times() []float64 { return append([]float64(nil), r.times...) }

// Expect returns the expectation values of observable j over time.
func (r *Result) Expect(j int) []float64 { return append([]float64(nil), r.expect[j]...) }

// Row returns the expectation values of all observables at the i-th time.
func (r *Result) Row(i int) []float64 {
	row := make([]float64, len(r.expect))
	for j := range r.expect {
		row[j] = r.expect[j][i]
	}
	return row
}

// States returns the state at every time, or nil if states were not stored.
func (r *Result) States() []*qobj.Qobj {
	if r.states == nil {
		return nil
	}
	kets := make([]*qobj.Qobj, 0, len(r.states))
	for _, s := range r.states {
		kets = append(kets, qobj.Must(qobj.NewKet(s)))
	}
	return kets
}

// Steps returns the number of integration steps taken, including rejected ones.
func (r *Result) Steps() int { return r.steps }

// MaxNormDrift returns the largest deviation of the state norm from 1 seen at the requested times.
func (r *Result) MaxNormDrift() float64 { return r.maxNormDrift }

// WriteCSV writes a header "t,<label>..." followed by one record per time.
// Missing labels default to e0, e1 and so on.
func (r *Result) WriteCSV(w io.Writer, labels ...string) error {
	header := []string{"t"}
	for j := range r.expect {
		label := fmt.Sprintf("e%d", j)
		if j < len(labels) {
			label = labels[j]
		}
		header = append(header, label)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "")
	}
	for i, t := range r.times {
		rec := []string{strconv.FormatFloat(t, 'g', -1, 64)}
		for _, v := range r.Row(i) {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
