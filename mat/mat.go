// Package mat implements small dense complex matrices.
//
// Matrices are immutable: every operation returns a new matrix.
package mat

import (
	"fmt"
	"math"
	"math/cmplx"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"
)

// DefaultTol is the default tolerance of approximate comparisons.
const DefaultTol = 1e-9

var (
	// ErrDimensionMismatch is returned when operand shapes are incompatible.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidShape is returned when construction input is malformed.
	ErrInvalidShape = errors.New("invalid shape")
	// ErrNotHermitian is returned when a Hermitian matrix is required.
	ErrNotHermitian = errors.New("not Hermitian")
)

var (
	PauliX = [][]complex128{
		{0, 1},
		{1, 0},
	}
	PauliY = [][]complex128{
		{0, -1i},
		{1i, 0},
	}
	PauliZ = [][]complex128{
		{1, 0},
		{0, -1},
	}
)

// Dense is a row major dense complex matrix.
type Dense struct {
	rows int
	cols int
	data []complex128
}

// New returns a rows x cols matrix holding a copy of data.
// A nil data gives the zero matrix.
func New(rows, cols int, data []complex128) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(ErrInvalidShape, "%d %d", rows, cols)
	}
	m := &Dense{rows: rows, cols: cols, data: make([]complex128, rows*cols)}
	if data == nil {
		return m, nil
	}
	if len(data) != rows*cols {
		return nil, errors.Wrapf(ErrInvalidShape, "%d %d %d", rows, cols, len(data))
	}
	copy(m.data, data)
	return m, nil
}

// FromRows builds a matrix from nested rows.
func FromRows(dense [][]complex128) (*Dense, error) {
	if len(dense) == 0 || len(dense[0]) == 0 {
		return nil, errors.Wrapf(ErrInvalidShape, "%#v", dense)
	}
	m := &Dense{rows: len(dense), cols: len(dense[0])}
	m.data = make([]complex128, 0, m.rows*m.cols)
	for i, row := range dense {
		if len(row) != m.cols {
			return nil, errors.Wrapf(ErrInvalidShape, "row %d has %d columns, expected %d", i, len(row), m.cols)
		}
		m.data = append(m.data, row...)
	}
	return m, nil
}

// M is like FromRows but panics on malformed input.
func M(dense [][]complex128) *Dense {
	m, err := FromRows(dense)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return m
}

// Zeros returns the rows x cols zero matrix.
func Zeros(rows, cols int) *Dense {
	m, err := New(rows, cols, nil)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return m
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Dense {
	m := Zeros(n, n)
	for i := range n {
		m.data[i*n+i] = 1
	}
	return m
}

func (m *Dense) Rows() int { return m.rows }
func (m *Dense) Cols() int { return m.cols }

// IsSquare reports whether the matrix is square.
func (m *Dense) IsSquare() bool { return m.rows == m.cols }

func (m *Dense) At(i, j int) complex128 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("index (%d, %d) out of shape (%d, %d)", i, j, m.rows, m.cols))
	}
	return m.data[i*m.cols+j]
}

// RawData returns a copy of the row major elements.
func (m *Dense) RawData() []complex128 {
	return append([]complex128(nil), m.data...)
}

// Dense returns the elements as nested rows.
func (m *Dense) Dense() [][]complex128 {
	dense := make([][]complex128, m.rows)
	for i := range dense {
		dense[i] = append([]complex128(nil), m.data[i*m.cols:(i+1)*m.cols]...)
	}
	return dense
}

func (a *Dense) sameShape(b *Dense) error {
	if a.rows != b.rows || a.cols != b.cols {
		return errors.Wrapf(ErrDimensionMismatch, "(%d, %d) (%d, %d)", a.rows, a.cols, b.rows, b.cols)
	}
	return nil
}

// Add returns a + b.
func (a *Dense) Add(b *Dense) (*Dense, error) {
	if err := a.sameShape(b); err != nil {
		return nil, err
	}
	c := &Dense{rows: a.rows, cols: a.cols}
	c.data = cmplxs.AddTo(make([]complex128, len(a.data)), a.data, b.data)
	return c, nil
}

// Sub returns a - b.
func (a *Dense) Sub(b *Dense) (*Dense, error) {
	if err := a.sameShape(b); err != nil {
		return nil, err
	}
	c := &Dense{rows: a.rows, cols: a.cols}
	c.data = cmplxs.SubTo(make([]complex128, len(a.data)), a.data, b.data)
	return c, nil
}

// Scale returns s*a.
func (a *Dense) Scale(s complex128) *Dense {
	c := &Dense{rows: a.rows, cols: a.cols}
	c.data = cmplxs.ScaleTo(make([]complex128, len(a.data)), s, a.data)
	return c
}

// Mul returns the matrix product a @ b.
func (a *Dense) Mul(b *Dense) (*Dense, error) {
	if a.cols != b.rows {
		return nil, errors.Wrapf(ErrDimensionMismatch, "(%d, %d) @ (%d, %d)", a.rows, a.cols, b.rows, b.cols)
	}
	c := Zeros(a.rows, b.cols)
	for i := range a.rows {
		ci := c.data[i*c.cols : (i+1)*c.cols]
		for k := range a.cols {
			aik := a.data[i*a.cols+k]
			if aik == 0 {
				continue
			}
			cmplxs.AddScaled(ci, aik, b.data[k*b.cols:(k+1)*b.cols])
		}
	}
	return c, nil
}

// MulVecTo stores m @ x into dst.
// It panics if the lengths do not match the shape of m.
func (m *Dense) MulVecTo(dst, x []complex128) []complex128 {
	if len(x) != m.cols || len(dst) != m.rows {
		panic(fmt.Sprintf("(%d, %d) @ %d -> %d", m.rows, m.cols, len(x), len(dst)))
	}
	for i := range m.rows {
		var s complex128
		for j, v := range m.data[i*m.cols : (i+1)*m.cols] {
			s += v * x[j]
		}
		dst[i] = s
	}
	return dst
}

// H returns the conjugate transpose.
func (a *Dense) H() *Dense {
	c := &Dense{rows: a.cols, cols: a.rows, data: make([]complex128, len(a.data))}
	for i := range a.rows {
		for j := range a.cols {
			c.data[j*c.cols+i] = cmplx.Conj(a.data[i*a.cols+j])
		}
	}
	return c
}

// Trace returns the sum of the diagonal of a square matrix.
func (a *Dense) Trace() (complex128, error) {
	if !a.IsSquare() {
		return 0, errors.Wrapf(ErrDimensionMismatch, "(%d, %d) not square", a.rows, a.cols)
	}
	var t complex128
	for i := range a.rows {
		t += a.data[i*a.cols+i]
	}
	return t, nil
}

// IsHermitian reports whether a equals its conjugate transpose element wise within tol.
// Non square matrices and matrices holding NaN are never Hermitian.
func (a *Dense) IsHermitian(tol float64) bool {
	if !a.IsSquare() {
		return false
	}
	for i := range a.rows {
		for j := i; j < a.cols; j++ {
			if !(cmplx.Abs(a.data[i*a.cols+j]-cmplx.Conj(a.data[j*a.cols+i])) <= tol) {
				return false
			}
		}
	}
	return true
}

func (a *Dense) Equal(b *Dense) bool {
	return a.rows == b.rows && a.cols == b.cols && cmplxs.Equal(a.data, b.data)
}

// EqualApprox reports whether a and b have the same shape and all elements within tol.
func (a *Dense) EqualApprox(b *Dense, tol float64) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	for i, v := range a.data {
		if !(cmplx.Abs(v-b.data[i]) <= tol) {
			return false
		}
	}
	return true
}

func (m *Dense) String() string {
	lines := make([]string, 0, m.rows)
	for i := range m.rows {
		cs := make([]string, 0, m.cols)
		for _, v := range m.data[i*m.cols : (i+1)*m.cols] {
			switch {
			case imag(v) == 0:
				cs = append(cs, format(real(v)))
			case real(v) == 0:
				cs = append(cs, format(imag(v))+"i")
			default:
				sign := "+"
				if imag(v) < 0 {
					sign = "-"
				}
				cs = append(cs, format(real(v))+sign+strings.TrimSpace(format(math.Abs(imag(v))))+"i")
			}
		}
		lines = append(lines, strings.Join(cs, "\t"))
	}
	return strings.Join(lines, "\n")
}

func format(v float64) string {
	// If v is 0 or -0, return "0" immediately to avoid returning "-0".
	if v == 0 {
		return " 0"
	}

	s := strconv.FormatFloat(v, 'g', 6, 64)

	// Add a space before non-negative numbers to align with other negative numbers in the same column.
	if v >= 0 {
		s = " " + s
	}

	return s
}

// FormatNumpy formats v the way numpy prints complex numbers.
func FormatNumpy(v complex128) string {
	switch {
	case imag(v) == 0:
		return strconv.FormatFloat(real(v), 'g', -1, 64)
	default:
		s := strconv.FormatComplex(v, 'g', -1, 128)
		s = strings.ReplaceAll(s, "i", "j")
		return s
	}
}
