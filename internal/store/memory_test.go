package store

import (
	"context"
	"testing"

	"fleetplan/internal/model"
	"fleetplan/internal/opt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProblem() opt.Problem {
	return opt.Problem{
		Vehicles:   []opt.Vehicle{{ID: 1, MaxWeight: 3, Battery: 1000, Speed: 10}},
		Deliveries: []opt.Delivery{{ID: 1, Pos: opt.Point{X: 3, Y: 4}, Weight: 1, Priority: 3, Window: opt.Window{End: 60}}},
	}
}

func TestMemoryScenarios(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a, err := m.CreateScenario(ctx, model.ScenarioIn{Name: "a", Problem: sampleProblem()})
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	b, err := m.CreateScenario(ctx, model.ScenarioIn{Name: "b", Problem: sampleProblem()})
	require.NoError(t, err)

	got, err := m.GetScenario(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)

	items, next, err := m.ListScenarios(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, next)
	items, next, err = m.ListScenarios(ctx, next, 1)
	require.NoError(t, err)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Empty(t, next)

	require.NoError(t, m.DeleteScenario(ctx, a.ID))
	_, err = m.GetScenario(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteScenario(ctx, a.ID), ErrNotFound)
}

func TestMemoryRuns(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	sc, err := m.CreateScenario(ctx, model.ScenarioIn{Name: "s", Problem: sampleProblem()})
	require.NoError(t, err)

	_, err = m.SaveRun(ctx, model.Run{ScenarioID: "missing", Algorithm: opt.AlgoGreedy})
	assert.ErrorIs(t, err, ErrNotFound)

	save := func(algo string, completed int, timedOut bool) model.Run {
		r, err := m.SaveRun(ctx, model.Run{
			ScenarioID: sc.ID,
			BatchID:    "b1",
			Algorithm:  algo,
			Problem:    sc.Problem,
			Result:     opt.Result{Algorithm: algo, CompletedDeliveries: completed, TotalDistance: 10, TimedOut: timedOut},
		})
		require.NoError(t, err)
		return r
	}
	g := save(opt.AlgoGreedy, 1, false)
	save(opt.AlgoCSP, 1, true)
	save(opt.AlgoCSP, 0, false)

	got, err := m.GetRun(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, opt.AlgoGreedy, got.Algorithm)
	assert.False(t, got.CreatedAt.IsZero())

	runs, _, err := m.ListRuns(ctx, RunFilter{Algorithm: opt.AlgoCSP}, "", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	st, err := m.RunStats(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Runs)
	csp := st.ByAlgorithm[opt.AlgoCSP]
	assert.Equal(t, 2, csp.Runs)
	assert.Equal(t, 1, csp.TimedOut)
	assert.InDelta(t, 0.5, csp.AvgCompleted, 1e-9)

	// runs survive their scenario
	require.NoError(t, m.DeleteScenario(ctx, sc.ID))
	got, err = m.GetRun(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ScenarioID)

	_, err = m.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
