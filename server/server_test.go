package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumin/qoptics/sesolve"
	"github.com/fumin/qoptics/store"
)

func newTestServer(t *testing.T) (*Server, *bytes.Buffer) {
	dir, err := os.MkdirTemp("", "")
	require.NoError(t, err)
	st, err := store.Open(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		st.Close()
		os.RemoveAll(dir)
	})

	var logs bytes.Buffer
	s := New(Config{Log: zerolog.New(&logs), Store: st, MaxPoints: 1000})
	return s, &logs
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s, logs := newTestServer(t)
	w := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Contains(t, logs.String(), `"path":"/health"`)
	assert.Contains(t, logs.String(), `"request_id"`)
}

func TestRunLifecycle(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/rabi", `{"name": "resonant", "omega": 1, "points": 5}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created runJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "resonant", created.Name)
	assert.Equal(t, []string{"ground", "excited"}, created.Labels)
	require.Len(t, created.Times, 5)
	require.Len(t, created.Expect, 5)
	assert.InDelta(t, 1, created.Expect[0][1], 1e-9)
	assert.InDelta(t, 0, created.Expect[1][1], 1e-6)
	assert.InDelta(t, 1, created.Expect[1][0], 1e-6)

	w = do(t, s, http.MethodGet, "/api/runs/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var loaded runJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loaded))
	assert.Equal(t, created.Times, loaded.Times)
	assert.Equal(t, created.Expect, loaded.Expect)
	assert.Equal(t, 1.0, loaded.Params["omega"])

	w = do(t, s, http.MethodGet, "/api/runs/", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []runJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Expect)

	w = do(t, s, http.MethodDelete, "/api/runs/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, s, http.MethodGet, "/api/runs/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, s, http.MethodDelete, "/api/runs/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRabiBadRequest(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	tests := []string{
		`{"omega": `,
		`{"omega": 0}`,
		`{"omega": 1, "periods": -1}`,
		`{"omega": 1, "method": "euler"}`,
		`{"omega": 1, "points": 1000000}`,
	}
	for _, body := range tests {
		w := do(t, s, http.MethodPost, "/api/rabi", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: %d %s, expected %d", body, w.Code, w.Body.String(), http.StatusBadRequest)
		}
	}
}

func TestWriteErr(t *testing.T) {
	t.Parallel()
	s, logs := newTestServer(t)
	tests := []struct {
		err    error
		status int
	}{
		{err: errors.Wrap(store.ErrNotFound, "id"), status: http.StatusNotFound},
		{err: errors.Wrap(sesolve.ErrInvalidOptions, ""), status: http.StatusBadRequest},
		{err: errors.Wrap(sesolve.ErrInvalidTimes, ""), status: http.StatusBadRequest},
		{err: errors.Wrap(sesolve.ErrMaxSteps, "1000000"), status: http.StatusBadRequest},
		{err: errors.New("disk full"), status: http.StatusInternalServerError},
	}
	for _, test := range tests {
		w := httptest.NewRecorder()
		s.writeErr(w, test.err)
		if w.Code != test.status {
			t.Fatalf("%v: %d, expected %d", test.err, w.Code, test.status)
		}
	}
	// Only server faults are logged as errors.
	assert.Equal(t, 1, bytes.Count(logs.Bytes(), []byte(`"level":"error"`)))
}

func TestBloch(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	tests := []struct {
		theta    float64
		phi      float64
		expected blochJSON
	}{
		{theta: 0, phi: 0, expected: blochJSON{Z: 1}},
		{theta: math.Pi, phi: 0, expected: blochJSON{Z: -1}},
		{theta: math.Pi / 2, phi: math.Pi / 2, expected: blochJSON{Y: 1}},
	}
	for _, test := range tests {
		w := do(t, s, http.MethodGet, fmt.Sprintf("/api/bloch?theta=%v&phi=%v", test.theta, test.phi), "")
		require.Equal(t, http.StatusOK, w.Code)
		var c blochJSON
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
		assert.InDelta(t, test.expected.X, c.X, 1e-12)
		assert.InDelta(t, test.expected.Y, c.Y, 1e-12)
		assert.InDelta(t, test.expected.Z, c.Z, 1e-12)
	}

	w := do(t, s, http.MethodGet, "/api/bloch?phi=1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORS(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/runs/", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
