package opt

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// CompareOptions carries the tunables of the solvers run by Compare.
type CompareOptions struct {
	CSP     CSPOptions
	Genetic GeneticOptions
}

// Compare runs the greedy, CSP and genetic solvers concurrently, each on its
// own clone of p, and returns their results in that order. Cancelling ctx
// stops the CSP search; the other solvers run to completion.
func Compare(ctx context.Context, p Problem, o CompareOptions) ([]Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := make([]Result, 3)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := SolveGreedy(p.Clone())
		out[0] = r
		return err
	})
	g.Go(func() error {
		r, err := SolveCSP(ctx, p.Clone(), o.CSP)
		out[1] = r
		return err
	})
	g.Go(func() error {
		r, err := SolveGenetic(p.Clone(), o.Genetic)
		out[2] = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
