package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetplan/internal/model"
	"fleetplan/internal/opt"
	"fleetplan/internal/store"
)

// ScenariosHandler handles POST/GET /v1/scenarios
func (s *Server) ScenariosHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/scenarios" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var in model.ScenarioIn
		if err := decodeJSON(w, r, &in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if strings.TrimSpace(in.Name) == "" {
			writeProblem(w, http.StatusBadRequest, "Invalid scenario", "name is required", r.URL.Path)
			return
		}
		if err := in.Problem.Validate(); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid scenario", err.Error(), r.URL.Path)
			return
		}
		sc, err := s.Store.CreateScenario(r.Context(), in)
		if err != nil {
			writeError(w, r, "Create scenario failed", err)
			return
		}
		writeJSON(w, http.StatusCreated, sc)
	case http.MethodGet:
		cursor, limit := pageParams(r)
		items, next, err := s.Store.ListScenarios(r.Context(), cursor, limit)
		if err != nil {
			writeError(w, r, "List scenarios failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ScenarioByIDHandler handles GET/DELETE /v1/scenarios/{id},
// GET /v1/scenarios/{id}/zones?t= and GET /v1/scenarios/{id}/latest
func (s *Server) ScenarioByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/scenarios/")
	if rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	id, sub, _ := strings.Cut(rest, "/")

	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			sc, err := s.Store.GetScenario(r.Context(), id)
			if err != nil {
				writeError(w, r, "Get scenario failed", err)
				return
			}
			writeJSON(w, http.StatusOK, sc)
		case http.MethodDelete:
			if err := s.Store.DeleteScenario(r.Context(), id); err != nil {
				writeError(w, r, "Delete scenario failed", err)
				return
			}
			opt.ForgetResults(id)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "zones":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t := 0.0
		if v := r.URL.Query().Get("t"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				writeProblem(w, http.StatusBadRequest, "Invalid time", "t must be a non-negative number", r.URL.Path)
				return
			}
			t = f
		}
		sc, err := s.Store.GetScenario(r.Context(), id)
		if err != nil {
			writeError(w, r, "Get scenario failed", err)
			return
		}
		type zoneAt struct {
			ID       int         `json:"id"`
			Active   bool        `json:"active"`
			Vertices []opt.Point `json:"vertices"`
		}
		zones := make([]zoneAt, 0, len(sc.Problem.Zones))
		for _, z := range sc.Problem.Zones {
			zones = append(zones, zoneAt{ID: z.ID, Active: z.Active.Contains(t), Vertices: opt.ZoneVerticesAt(z, t)})
		}
		writeJSON(w, http.StatusOK, map[string]any{"t": t, "zones": zones})
	case "latest":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, err := s.Store.GetScenario(r.Context(), id); err != nil {
			writeError(w, r, "Get scenario failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": opt.LatestResults(id)})
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
	}
}

// RunsIndexHandler handles GET /v1/runs?scenarioId=&batchId=&algorithm=
func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	f := store.RunFilter{ScenarioID: q.Get("scenarioId"), BatchID: q.Get("batchId"), Algorithm: q.Get("algorithm")}
	if f.Algorithm != "" && !validAlgorithm(f.Algorithm) {
		writeProblem(w, http.StatusBadRequest, "Invalid algorithm", f.Algorithm, r.URL.Path)
		return
	}
	cursor, limit := pageParams(r)
	items, next, err := s.Store.ListRuns(r.Context(), f, cursor, limit)
	if err != nil {
		writeError(w, r, "List runs failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id} and GET /v1/runs/{id}/analysis
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, sub, _ := strings.Cut(rest, "/")
	run, err := s.Store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, r, "Get run failed", err)
		return
	}
	switch sub {
	case "":
		writeJSON(w, http.StatusOK, run)
	case "analysis":
		a, err := opt.Analyze(run.Problem, run.Result)
		if err != nil {
			writeError(w, r, "Analyze run failed", err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
	}
}

// RunStatsHandler handles GET /v1/admin/runs/stats?scenarioId=
func (s *Server) RunStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	st, err := s.Store.RunStats(r.Context(), r.URL.Query().Get("scenarioId"))
	if err != nil {
		writeError(w, r, "Run stats failed", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	if p, ok := s.Broker.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func pageParams(r *http.Request) (string, int) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	return r.URL.Query().Get("cursor"), limit
}
