package api

import (
	"fmt"
	"strings"
	"time"

	"fleetplan/internal/model"
	"fleetplan/internal/opt"
)

// Upper bounds on per-request solver work.
const (
	maxTimeLimitMs    = 60000
	maxPopulationSize = 1000
	maxGenerations    = 5000
	maxCSPDeliveries  = 200
)

func validAlgorithm(a string) bool {
	switch a {
	case opt.AlgoGreedy, opt.AlgoCSP, opt.AlgoGenetic:
		return true
	}
	return false
}

func validateSource(scenarioID string, p *opt.Problem) error {
	if (strings.TrimSpace(scenarioID) == "") == (p == nil) {
		return fmt.Errorf("exactly one of scenarioId or problem is required")
	}
	return nil
}

func validateSolveRequest(req *model.SolveRequest) error {
	if !validAlgorithm(req.Algorithm) {
		return fmt.Errorf("invalid algorithm: %q (allowed: greedy,csp,genetic)", req.Algorithm)
	}
	if err := validateSource(req.ScenarioID, req.Problem); err != nil {
		return err
	}
	return validateOptions(req.Options)
}

func validateCompareRequest(req *model.CompareRequest) error {
	if err := validateSource(req.ScenarioID, req.Problem); err != nil {
		return err
	}
	return validateOptions(req.Options)
}

func validateOptions(o *model.SolveOptions) error {
	if o == nil {
		return nil
	}
	if o.TimeLimitMs < 0 || o.TimeLimitMs > maxTimeLimitMs {
		return fmt.Errorf("timeLimitMs must be in [0,%d]", maxTimeLimitMs)
	}
	if o.MaxDeliveries < 0 || o.MaxDeliveries > maxCSPDeliveries {
		return fmt.Errorf("maxDeliveries must be in [0,%d]", maxCSPDeliveries)
	}
	if o.PopulationSize < 0 || o.PopulationSize > maxPopulationSize {
		return fmt.Errorf("populationSize must be in [0,%d]", maxPopulationSize)
	}
	if o.Generations < 0 || o.Generations > maxGenerations {
		return fmt.Errorf("generations must be in [0,%d]", maxGenerations)
	}
	if r := o.MutationRate; r != nil && (*r < 0 || *r > 1) {
		return fmt.Errorf("mutationRate must be in [0,1]")
	}
	if r := o.ElitismRate; r != nil && (*r < 0 || *r > 1) {
		return fmt.Errorf("elitismRate must be in [0,1]")
	}
	if _, err := parseValueOrder(o.ValueOrder); err != nil {
		return err
	}
	if _, err := parseSelection(o.Selection); err != nil {
		return err
	}
	return nil
}

func parseValueOrder(s string) (opt.ValueOrder, error) {
	switch strings.ToLower(s) {
	case "", "least-constraining", "lcv":
		return opt.LeastConstrainingFirst, nil
	case "most-constraining":
		return opt.MostConstrainingFirst, nil
	}
	return 0, fmt.Errorf("invalid valueOrder: %q (allowed: least-constraining,most-constraining)", s)
}

func parseSelection(s string) (opt.Selection, error) {
	switch strings.ToLower(s) {
	case "", "truncation":
		return opt.SelectTruncation, nil
	case "tournament":
		return opt.SelectTournament, nil
	}
	return 0, fmt.Errorf("invalid selection: %q (allowed: truncation,tournament)", s)
}

// solverOptions overlays request options on the server defaults. o must
// already have passed validateOptions.
func (s *Server) solverOptions(o *model.SolveOptions) opt.CompareOptions {
	out := opt.CompareOptions{CSP: s.CSP, Genetic: s.Genetic}
	if o == nil {
		return out
	}
	if o.TimeLimitMs > 0 {
		out.CSP.TimeLimit = time.Duration(o.TimeLimitMs) * time.Millisecond
	}
	if o.MaxDeliveries != 0 {
		out.CSP.MaxDeliveries = o.MaxDeliveries
	}
	out.CSP.ValueOrder, _ = parseValueOrder(o.ValueOrder)
	if o.PopulationSize > 0 {
		out.Genetic.PopulationSize = o.PopulationSize
	}
	if o.Generations > 0 {
		out.Genetic.Generations = o.Generations
	}
	if o.MutationRate != nil {
		out.Genetic.MutationRate = rateOrOff(*o.MutationRate)
	}
	if o.ElitismRate != nil {
		out.Genetic.ElitismRate = rateOrOff(*o.ElitismRate)
	}
	out.Genetic.Selection, _ = parseSelection(o.Selection)
	if o.Seed != 0 {
		out.Genetic.Seed = o.Seed
	}
	return out
}

// rateOrOff maps an explicit 0 onto the solver's "off" value.
func rateOrOff(r float64) float64 {
	if r == 0 {
		return -1
	}
	return r
}
