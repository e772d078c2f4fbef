package qoptics

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/fumin/qoptics/bloch"
	"github.com/fumin/qoptics/mat"
	"github.com/fumin/qoptics/sesolve"
)

func TestRabiHamiltonian(t *testing.T) {
	t.Parallel()
	h, err := RabiHamiltonian(2, 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	expected := mat.M([][]complex128{{-1.5, 2}, {2, 1.5}})
	if !h.Operator().Data().EqualApprox(expected, 1e-15) {
		t.Fatalf("%v, expected %v", h.Operator().Data(), expected)
	}
}

func TestRabi(t *testing.T) {
	t.Parallel()
	tests := []struct {
		omega    float64
		detuning float64
		method   sesolve.Method
	}{
		{omega: 1, detuning: 0, method: sesolve.DormandPrince},
		{omega: 1, detuning: 0, method: sesolve.Spectral},
		{omega: 2, detuning: 0, method: sesolve.DormandPrince},
		{omega: 1, detuning: 1.5, method: sesolve.DormandPrince},
		{omega: 0.5, detuning: -3, method: sesolve.Spectral},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%f %f %v", test.omega, test.detuning, test.method), func(t *testing.T) {
			t.Parallel()
			cfg := NewRabiConfig(test.omega)
			cfg.Detuning = test.detuning
			cfg.Options = cfg.Options.Method(test.method)
			res, err := Rabi(cfg)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			require.Equal(t, 500, res.Len())

			for i, ti := range res.Times() {
				row := res.Row(i)
				if math.Abs(row[0]+row[1]-1) > 1e-6 {
					t.Fatalf("t %f, %v", ti, row)
				}
				expected := RabiProbability(test.omega, test.detuning, ti)
				if math.Abs(row[1]-expected) > 1e-6 {
					t.Fatalf("t %f, %f, expected %f", ti, row[1], expected)
				}
			}
			require.InDelta(t, 1, res.Expect(1)[0], 1e-12)
		})
	}
}

func TestRabiInvalid(t *testing.T) {
	t.Parallel()
	for _, cfg := range []RabiConfig{
		NewRabiConfig(0),
		{Omega: 1, Points: 0, Periods: 1, Options: sesolve.NewOptions()},
		{Omega: 1, Points: 10, Periods: -1, Options: sesolve.NewOptions()},
	} {
		if _, err := Rabi(cfg); !errors.Is(err, sesolve.ErrInvalidOptions) {
			t.Fatalf("%+v", err)
		}
	}
}

func TestRabiProbability(t *testing.T) {
	t.Parallel()
	require.InDelta(t, 0, RabiProbability(1, 0, math.Pi/2), 1e-15)
	require.InDelta(t, 1, RabiProbability(1, 0, math.Pi), 1e-15)
	require.Equal(t, 1.0, RabiProbability(0, 0, 3))
	// Far off resonance the atom stays excited.
	require.Greater(t, RabiProbability(1, 100, math.Pi/2), 0.99)
}

func TestLinspace(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n        int
		expected []float64
	}{
		{n: 0, expected: nil},
		{n: 1, expected: []float64{1}},
		{n: 2, expected: []float64{1, 3}},
		{n: 5, expected: []float64{1, 1.5, 2, 2.5, 3}},
	}
	for _, test := range tests {
		if xs := Linspace(1, 3, test.n); !slicesEqual(xs, test.expected) {
			t.Fatalf("%d: %v, expected %v", test.n, xs, test.expected)
		}
	}
}

func TestTour(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	var sphere bloch.Sphere
	if err := Tour(&buf, &sphere); err != nil {
		t.Fatalf("%+v", err)
	}
	out := buf.String()
	for _, s := range []string{"type = oper", "type = ket", "type = bra", "coherent(10, 1)", "theta"} {
		if !strings.Contains(out, s) {
			t.Fatalf("%q not in %s", s, out)
		}
	}
	vs := sphere.Vectors()
	require.Len(t, vs, 2*len(TourStates))
	for i := 0; i < len(vs); i += 2 {
		require.InDelta(t, 0, vs[i].X+vs[i+1].X, 1e-12)
		require.InDelta(t, 0, vs[i].Y+vs[i+1].Y, 1e-12)
		require.InDelta(t, 0, vs[i].Z+vs[i+1].Z, 1e-12)
	}
}

func slicesEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-15 {
			return false
		}
	}
	return true
}
