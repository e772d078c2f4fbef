package mat

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"
)

// ValVec is an eigenvalue and its unit eigenvector.
type ValVec struct {
	Val float64
	Vec []complex128
}

// EigenH returns the eigenvalues of a Hermitian matrix in ascending order together with orthonormal eigenvectors.
//
// The n x n Hermitian matrix A + iB is factorized through the 2n x 2n real symmetric matrix
//
//	[A -B]
//	[B  A]
//
// whose spectrum is that of A + iB with every eigenvalue doubled.
// An eigenvector [u; v] of the real matrix is the eigenvector u + iv of A + iB.
func (m *Dense) EigenH() ([]ValVec, error) {
	if !m.IsHermitian(DefaultTol) {
		return nil, errors.Wrapf(ErrNotHermitian, "\n%s", m)
	}
	n := m.rows
	sym := mat.NewSymDense(2*n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			v := m.data[i*n+j]
			sym.SetSym(i, j, real(v))
			sym.SetSym(n+i, n+j, real(v))
			sym.SetSym(i, n+j, -imag(v))
			sym.SetSym(j, n+i, imag(v))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, errors.Errorf("eig.Factorize failed\n%s", m)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Each eigenvalue appears twice, with eigenvectors [u; v] and [-v; u] mapping to u+iv and i(u+iv).
	// Keep the candidates that are independent of the ones already kept.
	vvs := make([]ValVec, 0, n)
	for k := 0; k < 2*n && len(vvs) < n; k++ {
		vec := make([]complex128, n)
		for i := range n {
			vec[i] = complex(vecs.At(i, k), vecs.At(n+i, k))
		}
		for _, vv := range vvs {
			cmplxs.AddScaled(vec, -cmplxs.Dot(vv.Vec, vec), vv.Vec)
		}
		norm := cmplxs.Norm(vec, 2)
		if norm < 1e-3 {
			continue
		}
		cmplxs.Scale(complex(1/norm, 0), vec)
		fixPhase(vec)
		vvs = append(vvs, ValVec{Val: vals[k], Vec: vec})
	}
	if len(vvs) != n {
		return nil, errors.Errorf("found %d eigenvectors, expected %d", len(vvs), n)
	}
	return vvs, nil
}

// fixPhase makes the first non negligible entry of vec real and positive.
func fixPhase(vec []complex128) {
	for _, v := range vec {
		if cmplx.Abs(v) > 1e-6 {
			p := cmplx.Conj(v) / complex(cmplx.Abs(v), 0)
			cmplxs.Scale(p, vec)
			return
		}
	}
}

// Gerschgorin returns bounds of the real parts of the eigenvalues of a square matrix.
// Theorem A3, Bounds for the eigenvalues of a matrix, Kenneth R. Garren.
func (m *Dense) Gerschgorin() (float64, float64) {
	if !m.IsSquare() {
		panic(fmt.Sprintf("%d %d", m.rows, m.cols))
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range m.rows {
		var radius float64
		for j, v := range m.data[i*m.cols : (i+1)*m.cols] {
			if j != i {
				radius += cmplx.Abs(v)
			}
		}
		center := real(m.data[i*m.cols+i])
		lo = min(lo, center-radius)
		hi = max(hi, center+radius)
	}
	return lo, hi
}
