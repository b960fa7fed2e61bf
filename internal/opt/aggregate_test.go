package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	p := Problem{
		Vehicles: []Vehicle{
			{ID: 1, MaxWeight: 5, Battery: 100, Speed: 10},
			{ID: 2, MaxWeight: 5, Battery: 100, Speed: 10, Start: Point{X: 10, Y: 10}},
		},
		Deliveries: []Delivery{
			{ID: 10, Pos: Point{X: 3, Y: 4}, Weight: 1, Priority: 1, Window: Window{End: 100}},
			{ID: 11, Pos: Point{X: 3, Y: 10}, Weight: 2, Priority: 1, Window: Window{End: 100}},
			{ID: 12, Pos: Point{X: 10, Y: 20}, Weight: 1, Priority: 1, Window: Window{End: 100}},
			{ID: 13, Pos: Point{X: 50, Y: 50}, Weight: 1, Priority: 1, Window: Window{End: 100}},
		},
	}
	r, err := Aggregate(p, "manual", map[int][]int{1: {10, 11}, 2: {12}})
	require.NoError(t, err)

	assert.Equal(t, "manual", r.Algorithm)
	assert.Equal(t, 3, r.CompletedDeliveries)
	// 5 + 6 for vehicle 1, 10 for vehicle 2
	assert.InDelta(t, 21, r.TotalDistance, 1e-9)
	assert.InDelta(t, 5*1*0.1+6*2*0.1+10*1*0.1, r.EnergyConsumption, 1e-9)
	assert.Equal(t, []int{13}, r.Unassigned)
}

func TestAggregateErrors(t *testing.T) {
	p := twoVehicles()

	_, err := Aggregate(p, AlgoGreedy, map[int][]int{9: {1}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Aggregate(p, AlgoGreedy, map[int][]int{1: {99}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Aggregate(p, AlgoGreedy, map[int][]int{1: {1}, 2: {1}})
	assert.ErrorIs(t, err, ErrInvalidAssignment)

	r, err := Aggregate(p, AlgoGreedy, nil)
	require.NoError(t, err)
	assert.Zero(t, r.CompletedDeliveries)
	assert.Equal(t, []int{1}, r.Unassigned)
}

func TestAggregateErrorsAreReproducible(t *testing.T) {
	p := Problem{
		Vehicles: []Vehicle{
			{ID: 1, MaxWeight: 5, Speed: 10},
			{ID: 2, MaxWeight: 5, Speed: 10},
			{ID: 3, MaxWeight: 5, Speed: 10},
		},
		Deliveries: []Delivery{
			{ID: 10, Weight: 1, Priority: 1, Window: Window{End: 100}},
			{ID: 11, Weight: 1, Priority: 1, Window: Window{End: 100}},
		},
	}
	for i := 0; i < 20; i++ {
		_, err := Aggregate(p, AlgoGreedy, map[int][]int{3: {10}, 2: {10, 98}, 1: {99}, 8: {11}, 7: {11}})
		require.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, "vehicle 7: not found", err.Error())

		_, err = Aggregate(p, AlgoGreedy, map[int][]int{3: {11}, 2: {10, 98}, 1: {99}})
		require.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, "delivery 99: not found", err.Error())

		_, err = Aggregate(p, AlgoGreedy, map[int][]int{3: {10, 11}, 2: {11}, 1: {10}})
		require.ErrorIs(t, err, ErrInvalidAssignment)
		assert.Contains(t, err.Error(), "delivery 10 held by vehicles 1 and 3")
	}
}

func TestAnalyze(t *testing.T) {
	p := Problem{
		Vehicles: []Vehicle{
			{ID: 1, MaxWeight: 4, Battery: 10, Speed: 10},
			{ID: 2, MaxWeight: 2, Battery: 0, Speed: 10},
		},
		Deliveries: []Delivery{
			{ID: 1, Pos: Point{X: 6, Y: 8}, Weight: 2, Priority: 5, Window: Window{Start: 0, End: 20}},
			{ID: 2, Pos: Point{X: 25, Y: 25}, Weight: 1, Priority: 2, Window: Window{Start: 0, End: 60}},
		},
		Zones: []Zone{
			{ID: 1, Vertices: []Point{{20, 20}, {30, 20}, {30, 30}, {20, 30}}, Active: Window{End: 100}},
		},
	}
	r := Result{Algorithm: AlgoGreedy, Routes: map[int][]int{1: {1}}}

	a, err := Analyze(p, r)
	require.NoError(t, err)

	require.Len(t, a.Vehicles, 2)
	v := a.Vehicles[0]
	assert.Equal(t, 1, v.Deliveries)
	assert.InDelta(t, 2, v.UsedWeight, 1e-9)
	assert.InDelta(t, 50, v.Utilization, 1e-9)
	assert.InDelta(t, 10, v.Distance, 1e-9)
	assert.InDelta(t, 2, v.Energy, 1e-9)
	assert.InDelta(t, 20, v.BatteryShare, 1e-9)
	assert.Zero(t, a.Vehicles[1].BatteryShare)
	assert.InDelta(t, 25, a.AvgUtilization, 1e-9)

	require.Len(t, a.Zones, 1)
	z := a.Zones[0]
	assert.InDelta(t, 100, z.Area, 1e-9)
	assert.InDelta(t, 25, z.Centroid.X, 1e-9)
	assert.InDelta(t, 25, z.Centroid.Y, 1e-9)
	assert.Equal(t, []int{2}, z.Nearby)
	assert.Equal(t, 1, a.AffectedDeliveries)
	assert.InDelta(t, 1, a.MapCoverage, 1e-9)

	assert.Equal(t, 1, a.TightWindows)
	assert.Equal(t, 1, a.UrgentDeliveries)
	assert.InDelta(t, 40, a.AvgWindow, 1e-9)

	_, err = Analyze(p, Result{Routes: map[int][]int{7: {1}}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestResults(t *testing.T) {
	RecordResult("s1", Result{Algorithm: AlgoGreedy, CompletedDeliveries: 1})
	RecordResult("s1", Result{Algorithm: AlgoGreedy, CompletedDeliveries: 2})
	RecordResult("s1", Result{Algorithm: AlgoCSP, CompletedDeliveries: 3})
	RecordResult("s2", Result{Algorithm: AlgoCSP})

	got := LatestResults("s1")
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[AlgoGreedy].CompletedDeliveries)
	assert.Equal(t, 3, got[AlgoCSP].CompletedDeliveries)

	ForgetResults("s1")
	assert.Empty(t, LatestResults("s1"))
	assert.Len(t, LatestResults("s2"), 1)
}
