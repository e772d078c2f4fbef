package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/fumin/qoptics/sesolve"
)

func TestSaveLoad(t *testing.T) {
	t.Parallel()
	s, cleanup := newStore(t)
	defer cleanup()
	ctx := context.Background()

	res, err := sesolve.NewResult([]float64{0, 0.5, 1}, [][]float64{{0, 0.2, 0.7}, {1, 0.8, 0.3}})
	require.NoError(t, err)
	run := &Run{Name: "rabi", Params: map[string]float64{"omega": 1, "detuning": 0.5}, Labels: []string{"ground", "excited"}, Result: res}
	require.NoError(t, s.SaveRun(ctx, run))
	require.NotEmpty(t, run.ID)
	require.False(t, run.CreatedAt.IsZero())

	loaded, err := s.LoadRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, run.ID, loaded.ID)
	require.Equal(t, run.Name, loaded.Name)
	require.True(t, run.CreatedAt.Equal(loaded.CreatedAt), "%v, expected %v", loaded.CreatedAt, run.CreatedAt)
	require.Equal(t, run.Params, loaded.Params)
	require.Equal(t, run.Labels, loaded.Labels)
	require.Equal(t, res.Times(), loaded.Result.Times())
	require.Equal(t, res.NumObservables(), loaded.Result.NumObservables())
	for j := 0; j < res.NumObservables(); j++ {
		require.Equal(t, res.Expect(j), loaded.Result.Expect(j))
	}

	// Duplicate ids are rejected.
	dup := &Run{ID: run.ID, Name: "dup", Result: res}
	require.Error(t, s.SaveRun(ctx, dup))
}

func TestNoObservables(t *testing.T) {
	t.Parallel()
	s, cleanup := newStore(t)
	defer cleanup()
	ctx := context.Background()

	res, err := sesolve.NewResult([]float64{0, 1}, nil)
	require.NoError(t, err)
	run := &Run{Name: "states", Result: res}
	require.NoError(t, s.SaveRun(ctx, run))

	loaded, err := s.LoadRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1}, loaded.Result.Times())
	require.Equal(t, 0, loaded.Result.NumObservables())
	require.Nil(t, loaded.Params)
}

func TestListDelete(t *testing.T) {
	t.Parallel()
	s, cleanup := newStore(t)
	defer cleanup()
	ctx := context.Background()

	res, err := sesolve.NewResult([]float64{0}, [][]float64{{1}})
	require.NoError(t, err)
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	names := []string{"a", "b", "c"}
	ids := make([]string, 0, len(names))
	for i, name := range names {
		run := &Run{Name: name, CreatedAt: base.Add(time.Duration(i) * time.Hour), Result: res}
		require.NoError(t, s.SaveRun(ctx, run))
		ids = append(ids, run.ID)
	}

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, run := range runs {
		require.Equal(t, names[len(names)-1-i], run.Name)
		require.Nil(t, run.Result)
	}

	require.NoError(t, s.DeleteRun(ctx, ids[1]))
	if err := s.DeleteRun(ctx, ids[1]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("%+v", err)
	}
	if _, err := s.LoadRun(ctx, ids[1]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("%+v", err)
	}
	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestReopen(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)
	dbPath := filepath.Join(dir, "runs.db")
	ctx := context.Background()

	s, err := Open(dbPath)
	require.NoError(t, err)
	res, err := sesolve.NewResult([]float64{0, 1}, [][]float64{{1, 0}})
	require.NoError(t, err)
	run := &Run{Name: "persist", Result: res}
	require.NoError(t, s.SaveRun(ctx, run))
	require.NoError(t, s.Close())

	s, err = Open(dbPath)
	require.NoError(t, err)
	defer s.Close()
	loaded, err := s.LoadRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 0}, loaded.Result.Expect(0))
}

func TestSaveWithoutResult(t *testing.T) {
	t.Parallel()
	s, cleanup := newStore(t)
	defer cleanup()
	if err := s.SaveRun(context.Background(), &Run{Name: "empty"}); err == nil {
		t.Fatalf("expected error")
	}
}

func newStore(t *testing.T) (*Store, func()) {
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	s, err := Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("%+v", err)
	}
	return s, func() {
		s.Close()
		os.RemoveAll(dir)
	}
}
