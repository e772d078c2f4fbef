package qobj

import (
	"math"

	"github.com/pkg/errors"

	"github.com/fumin/qoptics/mat"
)

func Sigmax() *Qobj { return Must(NewOperator(mat.PauliX)) }
func Sigmay() *Qobj { return Must(NewOperator(mat.PauliY)) }
func Sigmaz() *Qobj { return Must(NewOperator(mat.PauliZ)) }

// Qeye returns the identity operator on an N dimensional space.
func Qeye(N int) (*Qobj, error) {
	if N <= 0 {
		return nil, errors.Wrapf(ErrInvalidShape, "dimension %d", N)
	}
	return FromMatrix(Operator, mat.Identity(N))
}

// Destroy returns the annihilation operator a on a Fock space truncated at N levels.
// a|n> = sqrt(n)|n-1>.
func Destroy(N int) (*Qobj, error) {
	if N <= 0 {
		return nil, errors.Wrapf(ErrInvalidShape, "dimension %d", N)
	}
	data := make([]complex128, N*N)
	for n := 1; n < N; n++ {
		data[(n-1)*N+n] = complex(math.Sqrt(float64(n)), 0)
	}
	m, err := mat.New(N, N, data)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return FromMatrix(Operator, m)
}

// Create returns the creation operator, the Hermitian conjugate of Destroy.
func Create(N int) (*Qobj, error) {
	a, err := Destroy(N)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return a.Dagger(), nil
}

// Num returns the number operator a^dagger a.
func Num(N int) (*Qobj, error) {
	if N <= 0 {
		return nil, errors.Wrapf(ErrInvalidShape, "dimension %d", N)
	}
	data := make([]complex128, N*N)
	for n := range N {
		data[n*N+n] = complex(float64(n), 0)
	}
	m, err := mat.New(N, N, data)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return FromMatrix(Operator, m)
}

// Projector returns |ket><ket|.
func Projector(ket *Qobj) (*Qobj, error) {
	return OuterProduct(ket, ket.Dagger())
}
