// Package store persists simulation runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/fumin/qoptics/sesolve"
)

const (
	tableRun    = "run"
	tableTime   = "run_time"
	tableExpect = "run_expect"

	defaultTimeout = 3 * time.Second
)

var (
	// ErrNotFound is returned when no run has the requested id.
	ErrNotFound = errors.New("not found")
)

// Run is a stored simulation.
type Run struct {
	ID        string
	Name      string
	CreatedAt time.Time
	// Params are the scalar parameters of the simulation, such as the Rabi frequency.
	Params map[string]float64
	// Labels names the observables of Result.
	Labels []string
	Result *sesolve.Result
}

// Store is a SQLite database of runs.
type Store struct {
	Path    string
	Timeout time.Duration

	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	s := &Store{Path: path, Timeout: defaultTimeout, db: db}
	if err := s.prepare(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, path)
	}
	return s, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func (s *Store) prepare() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, name TEXT NOT NULL, created_at INTEGER NOT NULL, params BLOB, labels BLOB) STRICT`, tableRun),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (run_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE, i INTEGER, t REAL, PRIMARY KEY (run_id, i)) STRICT`, tableTime, tableRun),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (run_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE, i INTEGER, j INTEGER, v REAL, PRIMARY KEY (run_id, i, j)) STRICT`, tableExpect, tableRun),
	}
	for _, sqlStr := range stmts {
		if _, err := s.db.ExecContext(ctx, sqlStr); err != nil {
			return errors.Wrap(err, sqlStr)
		}
	}
	return nil
}

// SaveRun inserts run, assigning an id and creation time when they are empty.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.Result == nil {
		return errors.Errorf("run %q has no result", run.Name)
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	params, err := msgpack.Marshal(run.Params)
	if err != nil {
		return errors.Wrap(err, "")
	}
	labels, err := msgpack.Marshal(run.Labels)
	if err != nil {
		return errors.Wrap(err, "")
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer tx.Rollback()

	sqlStr := fmt.Sprintf(`INSERT INTO %s (id, name, created_at, params, labels) VALUES (?, ?, ?, ?, ?)`, tableRun)
	args := []any{run.ID, run.Name, run.CreatedAt.UnixNano(), params, labels}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%s %#v", sqlStr, args))
	}

	timeStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (run_id, i, t) VALUES (?, ?, ?)`, tableTime))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer timeStmt.Close()
	expectStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (run_id, i, j, v) VALUES (?, ?, ?, ?)`, tableExpect))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer expectStmt.Close()

	res := run.Result
	for i, t := range res.Times() {
		if _, err := timeStmt.ExecContext(ctx, run.ID, i, t); err != nil {
			return errors.Wrapf(err, "%d %f", i, t)
		}
		for j, v := range res.Row(i) {
			if _, err := expectStmt.ExecContext(ctx, run.ID, i, j, v); err != nil {
				return errors.Wrapf(err, "%d %d %f", i, j, v)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// LoadRun returns the run with id, including its result.
func (s *Store) LoadRun(ctx context.Context, id string) (*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	sqlStr := fmt.Sprintf(`SELECT id, name, created_at, params, labels FROM %s WHERE id=?`, tableRun)
	run, err := scanRun(s.db.QueryRowContext(ctx, sqlStr, id))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, id)
	}

	times, err := s.times(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	expect, err := s.expect(ctx, id, len(times))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	run.Result, err = sesolve.NewResult(times, expect)
	if err != nil {
		return nil, errors.Wrap(err, id)
	}
	return run, nil
}

// ListRuns returns all runs, newest first, without their results.
func (s *Store) ListRuns(ctx context.Context) ([]*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	sqlStr := fmt.Sprintf(`SELECT id, name, created_at, params, labels FROM %s ORDER BY created_at DESC, id`, tableRun)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return runs, nil
}

// DeleteRun deletes the run with id.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	sqlStr := fmt.Sprintf(`DELETE FROM %s WHERE id=?`, tableRun)
	res, err := s.db.ExecContext(ctx, sqlStr, id)
	if err != nil {
		return errors.Wrap(err, "")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}

func (s *Store) times(ctx context.Context, id string) ([]float64, error) {
	sqlStr := fmt.Sprintf(`SELECT t FROM %s WHERE run_id=? ORDER BY i`, tableTime)
	rows, err := s.db.QueryContext(ctx, sqlStr, id)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	times := make([]float64, 0)
	for rows.Next() {
		var t float64
		if err := rows.Scan(&t); err != nil {
			return nil, errors.Wrap(err, "")
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return times, nil
}

// expect returns the expectation values indexed by observable and then time.
func (s *Store) expect(ctx context.Context, id string, numTimes int) ([][]float64, error) {
	sqlStr := fmt.Sprintf(`SELECT i, j, v FROM %s WHERE run_id=? ORDER BY j, i`, tableExpect)
	rows, err := s.db.QueryContext(ctx, sqlStr, id)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	expect := make([][]float64, 0)
	for rows.Next() {
		var i, j int
		var v float64
		if err := rows.Scan(&i, &j, &v); err != nil {
			return nil, errors.Wrap(err, "")
		}
		if i < 0 || i >= numTimes {
			return nil, errors.Errorf("time index %d out of %d", i, numTimes)
		}
		for len(expect) <= j {
			expect = append(expect, make([]float64, numTimes))
		}
		expect[j][i] = v
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return expect, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var createdAt int64
	var params, labels []byte
	if err := row.Scan(&run.ID, &run.Name, &createdAt, &params, &labels); err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := msgpack.Unmarshal(params, &run.Params); err != nil {
		return nil, errors.Wrap(err, "params")
	}
	if err := msgpack.Unmarshal(labels, &run.Labels); err != nil {
		return nil, errors.Wrap(err, "labels")
	}
	return run, nil
}
