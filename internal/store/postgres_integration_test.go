//go:build postgres_integration

package store

import (
	"context"
	"os"
	"testing"

	"fleetplan/internal/model"
	"fleetplan/internal/opt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresScenarioRunLifecycle(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	require.NoError(t, err)
	defer p.Close()
	ctx := context.Background()
	require.NoError(t, p.Ping(ctx))
	require.NoError(t, p.MigrateDir("../../db/migrations"))

	sc, err := p.CreateScenario(ctx, model.ScenarioIn{Name: "it", Problem: sampleProblem()})
	require.NoError(t, err)
	got, err := p.GetScenario(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.Problem, got.Problem)

	res, err := opt.SolveGreedy(sc.Problem)
	require.NoError(t, err)
	run, err := p.SaveRun(ctx, model.Run{ScenarioID: sc.ID, Algorithm: res.Algorithm, Problem: sc.Problem, Result: res})
	require.NoError(t, err)
	back, err := p.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Routes, back.Result.Routes)

	runs, _, err := p.ListRuns(ctx, RunFilter{ScenarioID: sc.ID}, "", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	st, err := p.RunStats(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Runs)

	require.NoError(t, p.DeleteScenario(ctx, sc.ID))
	_, err = p.GetScenario(ctx, sc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
