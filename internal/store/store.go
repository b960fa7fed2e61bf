package store

import (
	"context"
	"errors"

	"fleetplan/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Scenarios
	CreateScenario(ctx context.Context, in model.ScenarioIn) (model.Scenario, error)
	GetScenario(ctx context.Context, id string) (model.Scenario, error)
	ListScenarios(ctx context.Context, cursor string, limit int) ([]model.Scenario, string, error)
	DeleteScenario(ctx context.Context, id string) error

	// Runs
	SaveRun(ctx context.Context, run model.Run) (model.Run, error)
	GetRun(ctx context.Context, id string) (model.Run, error)
	ListRuns(ctx context.Context, f RunFilter, cursor string, limit int) ([]model.Run, string, error)
	RunStats(ctx context.Context, scenarioID string) (model.RunStats, error)

	Ping(ctx context.Context) error
}

// RunFilter narrows ListRuns; empty fields match everything.
type RunFilter struct {
	ScenarioID string
	BatchID    string
	Algorithm  string
}

func (f RunFilter) match(r model.Run) bool {
	return (f.ScenarioID == "" || f.ScenarioID == r.ScenarioID) &&
		(f.BatchID == "" || f.BatchID == r.BatchID) &&
		(f.Algorithm == "" || f.Algorithm == r.Algorithm)
}

var ErrNotFound = errors.New("not found")

const (
	defaultLimit = 100
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}

// summarize folds runs into per-algorithm averages.
func summarize(runs []model.Run) model.RunStats {
	st := model.RunStats{ByAlgorithm: map[string]model.AlgoStats{}}
	for _, r := range runs {
		a := st.ByAlgorithm[r.Algorithm]
		a.Runs++
		a.AvgCompleted += float64(r.Result.CompletedDeliveries)
		a.AvgDistance += r.Result.TotalDistance
		a.AvgEnergy += r.Result.EnergyConsumption
		a.AvgExecutionMs += r.Result.ExecutionTimeMs
		if r.Result.TimedOut {
			a.TimedOut++
		}
		st.ByAlgorithm[r.Algorithm] = a
		st.Runs++
	}
	for k, a := range st.ByAlgorithm {
		n := float64(a.Runs)
		a.AvgCompleted /= n
		a.AvgDistance /= n
		a.AvgEnergy /= n
		a.AvgExecutionMs /= n
		st.ByAlgorithm[k] = a
	}
	return st
}
