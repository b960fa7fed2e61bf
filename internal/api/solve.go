package api

import (
	"context"
	"net/http"

	"fleetplan/internal/metrics"
	"fleetplan/internal/model"
	"fleetplan/internal/obs"
	"fleetplan/internal/opt"

	"github.com/google/uuid"
)

// SolveHandler handles POST /v1/solve
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.SolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	p, err := s.problemFor(r.Context(), req.ScenarioID, req.Problem)
	if err != nil {
		writeError(w, r, "Load problem failed", err)
		return
	}

	res, err := s.solve(r.Context(), req.Algorithm, p, s.solverOptions(req.Options))
	if err != nil {
		writeError(w, r, "Solve failed", err)
		return
	}
	run, err := s.recordRun(r.Context(), model.Run{ScenarioID: req.ScenarioID, Algorithm: req.Algorithm, Problem: p, Result: res})
	if err != nil {
		writeError(w, r, "Save run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// CompareHandler handles POST /v1/compare
func (s *Server) CompareHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.CompareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateCompareRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid compare request", err.Error(), r.URL.Path)
		return
	}
	p, err := s.problemFor(r.Context(), req.ScenarioID, req.Problem)
	if err != nil {
		writeError(w, r, "Load problem failed", err)
		return
	}

	results, err := s.compare(r.Context(), p, s.solverOptions(req.Options))
	if err != nil {
		writeError(w, r, "Compare failed", err)
		return
	}
	resp := model.CompareResponse{BatchID: uuid.New().String()}
	for _, res := range results {
		run, err := s.recordRun(r.Context(), model.Run{
			ScenarioID: req.ScenarioID,
			BatchID:    resp.BatchID,
			Algorithm:  res.Algorithm,
			Problem:    p,
			Result:     res,
		})
		if err != nil {
			writeError(w, r, "Save run failed", err)
			return
		}
		resp.Runs = append(resp.Runs, run)
	}
	publishRun(s.Broker, req.ScenarioID, Event{Type: EventCompareCompleted, Data: map[string]any{
		"batchId":    resp.BatchID,
		"scenarioId": req.ScenarioID,
		"runs":       len(resp.Runs),
	}})
	writeJSON(w, http.StatusOK, resp)
}

// problemFor resolves a request's problem from a stored scenario or the
// inline body.
func (s *Server) problemFor(ctx context.Context, scenarioID string, inline *opt.Problem) (opt.Problem, error) {
	if inline != nil {
		if err := inline.Validate(); err != nil {
			return opt.Problem{}, err
		}
		return *inline, nil
	}
	sc, err := s.Store.GetScenario(ctx, scenarioID)
	if err != nil {
		return opt.Problem{}, err
	}
	return sc.Problem, nil
}

func (s *Server) solve(ctx context.Context, algorithm string, p opt.Problem, o opt.CompareOptions) (res opt.Result, err error) {
	defer obs.Time(ctx, "solve."+algorithm)(&err)
	switch algorithm {
	case opt.AlgoCSP:
		res, err = opt.SolveCSP(ctx, p, o.CSP)
	case opt.AlgoGenetic:
		res, err = opt.SolveGenetic(p, o.Genetic)
	default:
		res, err = opt.SolveGreedy(p)
	}
	metrics.ObserveSolve(algorithm, res, err)
	return res, err
}

func (s *Server) compare(ctx context.Context, p opt.Problem, o opt.CompareOptions) (results []opt.Result, err error) {
	defer obs.Time(ctx, "compare")(&err)
	results, err = opt.Compare(ctx, p, o)
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		metrics.ObserveSolve(res.Algorithm, res, nil)
	}
	return results, nil
}

// recordRun persists run, remembers it as the scenario's latest result for
// its algorithm and announces it to stream subscribers.
func (s *Server) recordRun(ctx context.Context, run model.Run) (model.Run, error) {
	saved, err := s.Store.SaveRun(ctx, run)
	if err != nil {
		return model.Run{}, err
	}
	if saved.ScenarioID != "" {
		opt.RecordResult(saved.ScenarioID, saved.Result)
	}
	publishRun(s.Broker, saved.ScenarioID, Event{Type: EventRunCompleted, Data: map[string]any{
		"runId":      saved.ID,
		"scenarioId": saved.ScenarioID,
		"batchId":    saved.BatchID,
		"algorithm":  saved.Algorithm,
		"completed":  saved.Result.CompletedDeliveries,
		"timedOut":   saved.Result.TimedOut,
	}})
	return saved, nil
}
