// Package bloch maps single qubit pure states to points on the Bloch sphere.
package bloch

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"strconv"

	"github.com/pkg/errors"

	"github.com/fumin/qoptics/mat"
	"github.com/fumin/qoptics/qobj"
)

const (
	// imagTol is the largest imaginary residue tolerated in a Pauli expectation value.
	imagTol = 1e-9
	// normTol is how far beyond the unit sphere a vector may lie.
	normTol = 1e-9
)

// ErrNumericalInconsistency is returned when a quantity that must be real is not.
var ErrNumericalInconsistency = errors.New("numerical inconsistency")

var (
	sigmas = [3]*qobj.Qobj{qobj.Sigmax(), qobj.Sigmay(), qobj.Sigmaz()}
)

// Coordinate is a point in or on the unit ball.
type Coordinate struct {
	X float64
	Y float64
	Z float64
}

// Norm returns the distance from the origin.
func (c Coordinate) Norm() float64 {
	return math.Sqrt(c.X*c.X + c.Y*c.Y + c.Z*c.Z)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", c.X, c.Y, c.Z)
}

// ToCoordinates returns (<sigma_x>, <sigma_y>, <sigma_z>) of a two dimensional ket.
// The ket is expected to be normalized.
func ToCoordinates(ket *qobj.Qobj) (Coordinate, error) {
	if ket.Kind() != qobj.Ket {
		return Coordinate{}, errors.Wrapf(qobj.ErrTypeMismatch, "%v", ket.Kind())
	}
	if ket.Dims() != 2 {
		return Coordinate{}, errors.Wrapf(mat.ErrDimensionMismatch, "dimension %d", ket.Dims())
	}

	var xyz [3]float64
	for i, s := range sigmas {
		v, err := qobj.Expect(s, ket)
		if err != nil {
			return Coordinate{}, errors.Wrap(err, "")
		}
		if math.Abs(imag(v)) > imagTol {
			return Coordinate{}, errors.Wrapf(ErrNumericalInconsistency, "axis %d %v", i, v)
		}
		xyz[i] = real(v)
	}
	return Coordinate{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// FromAngles returns the point (sin(theta)cos(phi), sin(theta)sin(phi), cos(theta)).
func FromAngles(theta, phi float64) Coordinate {
	return Coordinate{
		X: math.Sin(theta) * math.Cos(phi),
		Y: math.Sin(theta) * math.Sin(phi),
		Z: math.Cos(theta),
	}
}

// Angles returns the polar angle theta in [0, pi] and azimuth phi in (-pi, pi] of c.
func Angles(c Coordinate) (float64, float64) {
	r := c.Norm()
	if r == 0 {
		return 0, 0
	}
	theta := math.Acos(max(-1, min(1, c.Z/r)))
	phi := math.Atan2(c.Y, c.X)
	return theta, phi
}

// Antipode returns the state diametrically opposite to ket on the Bloch sphere, which is orthogonal to ket.
func Antipode(ket *qobj.Qobj) (*qobj.Qobj, error) {
	if ket.Kind() != qobj.Ket {
		return nil, errors.Wrapf(qobj.ErrTypeMismatch, "%v", ket.Kind())
	}
	if ket.Dims() != 2 {
		return nil, errors.Wrapf(mat.ErrDimensionMismatch, "dimension %d", ket.Dims())
	}
	// For a|0> + b|1>, the orthogonal state is -conj(b)|0> + conj(a)|1>.
	amps := ket.Amplitudes()
	return qobj.NewKet([]complex128{-cmplx.Conj(amps[1]), cmplx.Conj(amps[0])})
}

// Sphere collects states, vectors and points for an external renderer.
type Sphere struct {
	vectors []Coordinate
	points  []Coordinate
}

// AddStates adds the Bloch vectors of kets.
func (s *Sphere) AddStates(kets ...*qobj.Qobj) error {
	vs := make([]Coordinate, 0, len(kets))
	for i, ket := range kets {
		c, err := ToCoordinates(ket)
		if err != nil {
			return errors.Wrapf(err, "state %d", i)
		}
		vs = append(vs, c)
	}
	return s.AddVectors(vs...)
}

// AddVectors adds vectors, each of which must lie in the unit ball.
func (s *Sphere) AddVectors(vs ...Coordinate) error {
	if err := checkBall(vs); err != nil {
		return errors.Wrap(err, "")
	}
	s.vectors = append(s.vectors, vs...)
	return nil
}

// AddPoints adds points, each of which must lie in the unit ball.
func (s *Sphere) AddPoints(ps ...Coordinate) error {
	if err := checkBall(ps); err != nil {
		return errors.Wrap(err, "")
	}
	s.points = append(s.points, ps...)
	return nil
}

// Clear removes everything.
func (s *Sphere) Clear() {
	s.vectors = s.vectors[:0]
	s.points = s.points[:0]
}

func (s *Sphere) Vectors() []Coordinate { return append([]Coordinate(nil), s.vectors...) }
func (s *Sphere) Points() []Coordinate  { return append([]Coordinate(nil), s.points...) }

// WriteCSV writes one "kind,x,y,z" record per vector and point.
func (s *Sphere) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"kind", "x", "y", "z"}); err != nil {
		return errors.Wrap(err, "")
	}
	write := func(kind string, cs []Coordinate) error {
		for _, c := range cs {
			rec := []string{kind, formatFloat(c.X), formatFloat(c.Y), formatFloat(c.Z)}
			if err := cw.Write(rec); err != nil {
				return errors.Wrap(err, "")
			}
		}
		return nil
	}
	if err := write("vector", s.vectors); err != nil {
		return errors.Wrap(err, "")
	}
	if err := write("point", s.points); err != nil {
		return errors.Wrap(err, "")
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func checkBall(cs []Coordinate) error {
	for i, c := range cs {
		if n := c.Norm(); n > 1+normTol || math.IsNaN(n) {
			return errors.Wrapf(ErrNumericalInconsistency, "%d %v has norm %f", i, c, n)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
