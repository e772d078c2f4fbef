package qobj

import (
	"github.com/pkg/errors"
)

// Hamiltonian is a Hermitian operator.
type Hamiltonian struct {
	op *Qobj
}

// NewHamiltonian checks that op is a Hermitian operator within tol.
func NewHamiltonian(op *Qobj, tol float64) (*Hamiltonian, error) {
	if op.kind != Operator {
		return nil, errors.Wrapf(ErrTypeMismatch, "%v", op.kind)
	}
	if !op.IsHerm(tol) {
		return nil, errors.Wrapf(ErrNotHermitian, "\n%s", op.data)
	}
	return &Hamiltonian{op: op}, nil
}

// Term is the weighted outer product Weight |Ket><Bra|.
type Term struct {
	Weight complex128
	Ket    *Qobj
	Bra    *Qobj
}

// HamiltonianFromTerms builds the Hamiltonian sum_k Weight_k |Ket_k><Bra_k|.
func HamiltonianFromTerms(tol float64, terms ...Term) (*Hamiltonian, error) {
	if len(terms) == 0 {
		return nil, errors.Wrap(ErrInvalidShape, "no terms")
	}
	var sum *Qobj
	for i, t := range terms {
		op, err := OuterProduct(t.Ket, t.Bra)
		if err != nil {
			return nil, errors.Wrapf(err, "term %d", i)
		}
		op = op.Scale(t.Weight)
		if sum == nil {
			sum = op
			continue
		}
		if sum, err = sum.Add(op); err != nil {
			return nil, errors.Wrapf(err, "term %d", i)
		}
	}
	return NewHamiltonian(sum, tol)
}

// Operator returns the Hamiltonian as a quantum object.
func (h *Hamiltonian) Operator() *Qobj { return h.op }

func (h *Hamiltonian) Dims() int { return h.op.Dims() }

func (h *Hamiltonian) String() string { return h.op.String() }
