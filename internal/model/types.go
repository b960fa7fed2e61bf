package model

import (
	"time"

	"fleetplan/internal/opt"
)

// Transport and persistence shapes for the planning service.

type ScenarioIn struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Problem     opt.Problem `json:"problem"`
}

type Scenario struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Problem     opt.Problem `json:"problem"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// SolveOptions overrides the service defaults for one request. Zero fields
// keep the configured defaults; the rates are pointers so an explicit 0
// switches the operator off.
type SolveOptions struct {
	TimeLimitMs    int      `json:"timeLimitMs,omitempty"`
	MaxDeliveries  int      `json:"maxDeliveries,omitempty"`
	ValueOrder     string   `json:"valueOrder,omitempty"`
	PopulationSize int      `json:"populationSize,omitempty"`
	Generations    int      `json:"generations,omitempty"`
	MutationRate   *float64 `json:"mutationRate,omitempty"`
	ElitismRate    *float64 `json:"elitismRate,omitempty"`
	Selection      string   `json:"selection,omitempty"`
	Seed           int64    `json:"seed,omitempty"`
}

// SolveRequest names either a stored scenario or an inline problem.
type SolveRequest struct {
	ScenarioID string        `json:"scenarioId,omitempty"`
	Problem    *opt.Problem  `json:"problem,omitempty"`
	Algorithm  string        `json:"algorithm"`
	Options    *SolveOptions `json:"options,omitempty"`
}

type CompareRequest struct {
	ScenarioID string        `json:"scenarioId,omitempty"`
	Problem    *opt.Problem  `json:"problem,omitempty"`
	Options    *SolveOptions `json:"options,omitempty"`
}

// Run is one persisted solver execution. Runs from one comparison share a BatchID.
type Run struct {
	ID         string      `json:"id"`
	ScenarioID string      `json:"scenarioId,omitempty"`
	BatchID    string      `json:"batchId,omitempty"`
	Algorithm  string      `json:"algorithm"`
	Problem    opt.Problem `json:"problem"`
	Result     opt.Result  `json:"result"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type CompareResponse struct {
	BatchID string `json:"batchId"`
	Runs    []Run  `json:"runs"`
}

type AlgoStats struct {
	Runs           int     `json:"runs"`
	AvgCompleted   float64 `json:"avgCompleted"`
	AvgDistance    float64 `json:"avgDistance"`
	AvgEnergy      float64 `json:"avgEnergy"`
	AvgExecutionMs float64 `json:"avgExecutionMs"`
	TimedOut       int     `json:"timedOut"`
}

type RunStats struct {
	Runs        int                  `json:"runs"`
	ByAlgorithm map[string]AlgoStats `json:"byAlgorithm"`
}
