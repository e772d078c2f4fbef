// Package qobj implements quantum objects: kets, bras and operators of a finite dimensional Hilbert space.
//
// A Qobj is immutable, every operation returns a new Qobj.
// The kind of a Qobj is fixed at construction, where its shape is validated:
// a ket is a column, a bra is a row and an operator is square.
package qobj

import (
	"fmt"
	"math/cmplx"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"

	"github.com/fumin/qoptics/mat"
)

var (
	// ErrTypeMismatch is returned when an operation is not defined for the kinds of its operands.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrIndexOutOfRange is returned when a basis index is out of bounds.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrZeroNorm is returned when normalizing a zero vector.
	ErrZeroNorm = errors.New("zero norm")

	ErrDimensionMismatch = mat.ErrDimensionMismatch
	ErrInvalidShape      = mat.ErrInvalidShape
	ErrNotHermitian      = mat.ErrNotHermitian
)

// Kind classifies a quantum object.
type Kind int

const (
	Ket Kind = iota
	Bra
	Operator
)

func (k Kind) String() string {
	switch k {
	case Ket:
		return "ket"
	case Bra:
		return "bra"
	case Operator:
		return "oper"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Qobj is a quantum object.
type Qobj struct {
	kind Kind
	data *mat.Dense
}

// FromMatrix tags m with kind after checking that the shape of m is valid for kind.
func FromMatrix(kind Kind, m *mat.Dense) (*Qobj, error) {
	switch kind {
	case Ket:
		if m.Cols() != 1 {
			return nil, errors.Wrapf(ErrInvalidShape, "ket of shape (%d, %d)", m.Rows(), m.Cols())
		}
	case Bra:
		if m.Rows() != 1 {
			return nil, errors.Wrapf(ErrInvalidShape, "bra of shape (%d, %d)", m.Rows(), m.Cols())
		}
	case Operator:
		if !m.IsSquare() {
			return nil, errors.Wrapf(ErrInvalidShape, "operator of shape (%d, %d)", m.Rows(), m.Cols())
		}
	default:
		return nil, errors.Wrapf(ErrTypeMismatch, "%v", kind)
	}
	return &Qobj{kind: kind, data: m}, nil
}

// New builds a quantum object from nested rows, inferring its kind from the shape.
// Columns are kets, rows are bras and square matrices, including 1x1, are operators.
func New(dense [][]complex128) (*Qobj, error) {
	m, err := mat.FromRows(dense)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	var kind Kind
	switch {
	case m.IsSquare():
		kind = Operator
	case m.Cols() == 1:
		kind = Ket
	case m.Rows() == 1:
		kind = Bra
	default:
		return nil, errors.Wrapf(ErrInvalidShape, "(%d, %d)", m.Rows(), m.Cols())
	}
	return FromMatrix(kind, m)
}

// NewKet returns the ket with amplitudes vec.
func NewKet(vec []complex128) (*Qobj, error) {
	m, err := mat.New(len(vec), 1, vec)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return FromMatrix(Ket, m)
}

// NewBra returns the bra with amplitudes vec.
// The amplitudes are taken as given, they are not conjugated.
func NewBra(vec []complex128) (*Qobj, error) {
	m, err := mat.New(1, len(vec), vec)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return FromMatrix(Bra, m)
}

// NewOperator returns the operator with elements dense.
func NewOperator(dense [][]complex128) (*Qobj, error) {
	m, err := mat.FromRows(dense)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return FromMatrix(Operator, m)
}

// Must panics if err is not nil.
func Must(q *Qobj, err error) *Qobj {
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return q
}

func (q *Qobj) Kind() Kind { return q.kind }

// Data returns the underlying matrix.
func (q *Qobj) Data() *mat.Dense { return q.data }

// Shape returns the number of rows and columns.
func (q *Qobj) Shape() (int, int) { return q.data.Rows(), q.data.Cols() }

// Dims returns the dimension of the Hilbert space q lives in.
func (q *Qobj) Dims() int {
	if q.kind == Bra {
		return q.data.Cols()
	}
	return q.data.Rows()
}

// Amplitudes returns a copy of the elements in row major order.
// For kets and bras these are the amplitudes.
func (q *Qobj) Amplitudes() []complex128 {
	return q.data.RawData()
}

// Dagger returns the Hermitian conjugate.
// A ket becomes a bra and vice versa, an operator stays an operator.
func (q *Qobj) Dagger() *Qobj {
	kind := q.kind
	switch q.kind {
	case Ket:
		kind = Bra
	case Bra:
		kind = Ket
	}
	return &Qobj{kind: kind, data: q.data.H()}
}

// Scale returns c*q.
func (q *Qobj) Scale(c complex128) *Qobj {
	return &Qobj{kind: q.kind, data: q.data.Scale(c)}
}

// Sum returns a + b.
func Sum(a, b *Qobj) (*Qobj, error) {
	return a.Add(b)
}

// Add returns q + b.
func (q *Qobj) Add(b *Qobj) (*Qobj, error) {
	if q.kind != b.kind {
		return nil, errors.Wrapf(ErrTypeMismatch, "%v + %v", q.kind, b.kind)
	}
	c, err := q.data.Add(b.data)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return &Qobj{kind: q.kind, data: c}, nil
}

// Sub returns q - b.
func (q *Qobj) Sub(b *Qobj) (*Qobj, error) {
	if q.kind != b.kind {
		return nil, errors.Wrapf(ErrTypeMismatch, "%v - %v", q.kind, b.kind)
	}
	c, err := q.data.Sub(b.data)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return &Qobj{kind: q.kind, data: c}, nil
}

// Mul returns the product q b.
// The defined products are
//
//	oper oper -> oper
//	oper ket  -> ket
//	bra  oper -> bra
//	bra  ket  -> 1x1 oper
//	ket  bra  -> oper
func (q *Qobj) Mul(b *Qobj) (*Qobj, error) {
	var kind Kind
	switch [2]Kind{q.kind, b.kind} {
	case [2]Kind{Operator, Operator}, [2]Kind{Bra, Ket}, [2]Kind{Ket, Bra}:
		kind = Operator
	case [2]Kind{Operator, Ket}:
		kind = Ket
	case [2]Kind{Bra, Operator}:
		kind = Bra
	default:
		return nil, errors.Wrapf(ErrTypeMismatch, "%v * %v", q.kind, b.kind)
	}
	if q.Dims() != b.Dims() {
		return nil, errors.Wrapf(ErrDimensionMismatch, "%d %d", q.Dims(), b.Dims())
	}
	c, err := q.data.Mul(b.data)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return FromMatrix(kind, c)
}

// OuterProduct returns |ket><bra|.
func OuterProduct(ket, bra *Qobj) (*Qobj, error) {
	if ket.kind != Ket || bra.kind != Bra {
		return nil, errors.Wrapf(ErrTypeMismatch, "%v %v", ket.kind, bra.kind)
	}
	return ket.Mul(bra)
}

// InnerProduct returns <bra|ket>.
func InnerProduct(bra, ket *Qobj) (complex128, error) {
	if bra.kind != Bra || ket.kind != Ket {
		return 0, errors.Wrapf(ErrTypeMismatch, "%v %v", bra.kind, ket.kind)
	}
	if bra.Dims() != ket.Dims() {
		return 0, errors.Wrapf(ErrDimensionMismatch, "%d %d", bra.Dims(), ket.Dims())
	}
	b, k := bra.data.RawData(), ket.data.RawData()
	return cmplxs.Sum(cmplxs.MulTo(make([]complex128, len(b)), b, k)), nil
}

// Expect returns <ket|op|ket>.
func Expect(op, ket *Qobj) (complex128, error) {
	if op.kind != Operator || ket.kind != Ket {
		return 0, errors.Wrapf(ErrTypeMismatch, "%v %v", op.kind, ket.kind)
	}
	if op.Dims() != ket.Dims() {
		return 0, errors.Wrapf(ErrDimensionMismatch, "%d %d", op.Dims(), ket.Dims())
	}
	psi := ket.data.RawData()
	opPsi := op.data.MulVecTo(make([]complex128, len(psi)), psi)
	return cmplxs.Dot(psi, opPsi), nil
}

// Norm returns the 2-norm of a ket or bra, and the Frobenius norm of an operator.
func (q *Qobj) Norm() float64 {
	return cmplxs.Norm(q.data.RawData(), 2)
}

// Unit returns q divided by its norm.
func (q *Qobj) Unit() (*Qobj, error) {
	norm := q.Norm()
	if norm == 0 {
		return nil, errors.Wrapf(ErrZeroNorm, "%v", q.kind)
	}
	return q.Scale(complex(1/norm, 0)), nil
}

// IsHerm reports whether q is an operator equal to its Hermitian conjugate within tol.
func (q *Qobj) IsHerm(tol float64) bool {
	return q.kind == Operator && q.data.IsHermitian(tol)
}

// Tr returns the trace of an operator.
func (q *Qobj) Tr() (complex128, error) {
	if q.kind != Operator {
		return 0, errors.Wrapf(ErrTypeMismatch, "%v", q.kind)
	}
	tr, err := q.data.Trace()
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	return tr, nil
}

// Equal reports whether q and b have the same kind and elements within tol.
func (q *Qobj) Equal(b *Qobj, tol float64) bool {
	return q.kind == b.kind && q.data.EqualApprox(b.data, tol)
}

// Overlap returns |<a|b>| for two kets.
func Overlap(a, b *Qobj) (float64, error) {
	ip, err := InnerProduct(a.Dagger(), b)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	return cmplx.Abs(ip), nil
}

func (q *Qobj) String() string {
	rows, cols := q.Shape()
	dims := fmt.Sprintf("[[%d], [%d]]", rows, cols)
	header := fmt.Sprintf("Quantum object: dims = %s, shape = (%d, %d), type = %v", dims, rows, cols, q.kind)
	if q.kind == Operator {
		header += fmt.Sprintf(", isherm = %v", q.IsHerm(mat.DefaultTol))
	}
	return strings.Join([]string{header, "Qobj data =", q.data.String()}, "\n")
}
