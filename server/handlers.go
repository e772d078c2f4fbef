package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/fumin/qoptics"
	"github.com/fumin/qoptics/bloch"
	"github.com/fumin/qoptics/qobj"
	"github.com/fumin/qoptics/sesolve"
	"github.com/fumin/qoptics/store"
)

type runJSON struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	CreatedAt time.Time          `json:"created_at"`
	Params    map[string]float64 `json:"params"`
	Labels    []string           `json:"labels"`
	Times     []float64          `json:"times,omitempty"`
	// Expect holds one row per time, and one value per observable within a row.
	Expect [][]float64 `json:"expect,omitempty"`
}

func toRunJSON(run *store.Run) runJSON {
	rj := runJSON{ID: run.ID, Name: run.Name, CreatedAt: run.CreatedAt, Params: run.Params, Labels: run.Labels}
	if res := run.Result; res != nil {
		rj.Times = res.Times()
		rj.Expect = make([][]float64, 0, res.Len())
		for i := 0; i < res.Len(); i++ {
			rj.Expect = append(rj.Expect, res.Row(i))
		}
	}
	return rj
}

type rabiRequest struct {
	Name     string  `json:"name"`
	Omega    float64 `json:"omega"`
	Detuning float64 `json:"detuning"`
	Points   int     `json:"points"`
	Periods  float64 `json:"periods"`
	Method   string  `json:"method"`
}

type blochJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "qoptics",
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	resp := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunJSON(run))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.LoadRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toRunJSON(run))
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRun(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRabi(w http.ResponseWriter, r *http.Request) {
	req := rabiRequest{Omega: 1, Points: 500, Periods: 1}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Points > s.maxPoints {
		s.writeError(w, http.StatusBadRequest, "too many points: "+strconv.Itoa(req.Points))
		return
	}
	opt := sesolve.NewOptions().Logger(s.log)
	if req.Method != "" {
		method, err := sesolve.ParseMethod(req.Method)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		opt = opt.Method(method)
	}

	cfg := qoptics.NewRabiConfig(req.Omega)
	cfg.Detuning = req.Detuning
	cfg.Points = req.Points
	cfg.Periods = req.Periods
	cfg.Options = opt
	res, err := qoptics.Rabi(cfg)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	name := req.Name
	if name == "" {
		name = "rabi"
	}
	run := &store.Run{
		Name:   name,
		Params: map[string]float64{"omega": req.Omega, "detuning": req.Detuning, "periods": req.Periods},
		Labels: qoptics.RabiLabels,
		Result: res,
	}
	if err := s.store.SaveRun(r.Context(), run); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toRunJSON(run))
}

func (s *Server) handleBloch(w http.ResponseWriter, r *http.Request) {
	var angles [2]float64
	for i, key := range []string{"theta", "phi"} {
		v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid "+key)
			return
		}
		angles[i] = v
	}
	c, err := bloch.ToCoordinates(qobj.QubitState(angles[0], angles[1]))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, blochJSON{X: c.X, Y: c.Y, Z: c.Z})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeErr maps library errors to HTTP statuses.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sesolve.ErrInvalidOptions), errors.Is(err, sesolve.ErrInvalidTimes), errors.Is(err, sesolve.ErrMaxSteps), errors.Is(err, qobj.ErrInvalidShape):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.writeError(w, status, errors.Cause(err).Error())
}
