package metrics

import (
	"errors"
	"testing"

	"fleetplan/internal/opt"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSolve(t *testing.T) {
	RegisterDefault()
	RegisterDefault()

	before := testutil.ToFloat64(SolverRuns.WithLabelValues(opt.AlgoCSP, "timed_out"))
	ObserveSolve(opt.AlgoCSP, opt.Result{Algorithm: opt.AlgoCSP, TimedOut: true, CompletedDeliveries: 4}, nil)
	assert.Equal(t, before+1, testutil.ToFloat64(SolverRuns.WithLabelValues(opt.AlgoCSP, "timed_out")))

	errBefore := testutil.ToFloat64(SolverRuns.WithLabelValues(opt.AlgoGreedy, "error"))
	ObserveSolve(opt.AlgoGreedy, opt.Result{}, errors.New("bad"))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(SolverRuns.WithLabelValues(opt.AlgoGreedy, "error")))

	n, err := testutil.GatherAndCount(Registry, "solver_completed_deliveries")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
