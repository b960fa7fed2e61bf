package opt

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoVehicles has equal greedy scores on both vehicles; only arrival differs.
func twoVehicles() Problem {
	return Problem{
		Vehicles: []Vehicle{
			{ID: 1, MaxWeight: 4, Battery: 12000, Speed: 8},
			{ID: 2, MaxWeight: 3, Battery: 10000, Speed: 10},
		},
		Deliveries: []Delivery{
			{ID: 1, Pos: Point{X: 10, Y: 0}, Weight: 2, Priority: 3, Window: Window{Start: 0, End: 60}},
		},
	}
}

// blocked puts a wall between the only vehicle and one delivery and adds a
// second delivery nobody can lift.
func blocked() Problem {
	return Problem{
		Vehicles: []Vehicle{{ID: 1, MaxWeight: 5, Battery: 10000, Speed: 10, Start: Point{X: 10, Y: 50}}},
		Deliveries: []Delivery{
			{ID: 1, Pos: Point{X: 90, Y: 50}, Weight: 1, Priority: 5, Window: Window{End: 100}},
			{ID: 2, Pos: Point{X: 20, Y: 50}, Weight: 10, Priority: 5, Window: Window{End: 100}},
			{ID: 3, Pos: Point{X: 20, Y: 60}, Weight: 1, Priority: 1, Window: Window{End: 100}},
		},
		Zones: []Zone{{ID: 1, Vertices: []Point{{40, 0}, {60, 0}, {60, 100}, {40, 100}}, Active: Window{End: 1000}}},
	}
}

func randomProblem(seed int64, vehicles, deliveries int) Problem {
	rng := rand.New(rand.NewSource(seed))
	var p Problem
	for i := 0; i < vehicles; i++ {
		p.Vehicles = append(p.Vehicles, Vehicle{
			ID:        i + 1,
			MaxWeight: 2 + rng.Float64()*4,
			Battery:   10000,
			Speed:     5 + rng.Float64()*7,
			Start:     Point{X: rng.Float64() * 100, Y: rng.Float64() * 100},
		})
	}
	for i := 0; i < deliveries; i++ {
		start := rng.Float64() * 60
		p.Deliveries = append(p.Deliveries, Delivery{
			ID:       i + 1,
			Pos:      Point{X: rng.Float64() * 100, Y: rng.Float64() * 100},
			Weight:   0.5 + rng.Float64()*2.5,
			Priority: 1 + rng.Intn(5),
			Window:   Window{Start: start, End: start + 30 + rng.Float64()*60},
		})
	}
	p.Zones = []Zone{
		{ID: 1, Vertices: square(30, 30, 6), Active: Window{End: 120}},
		{ID: 2, Vertices: square(70, 60, 5), Active: Window{Start: 20, End: 80}},
	}
	return p
}

func assertCapacity(t *testing.T, p Problem, r Result) {
	t.Helper()
	ix := newIndex(p)
	for vid, ids := range r.Routes {
		vi, err := ix.vehicle(vid)
		require.NoError(t, err)
		load := 0.0
		for _, did := range ids {
			di, err := ix.delivery(did)
			require.NoError(t, err)
			load += p.Deliveries[di].Weight
		}
		assert.LessOrEqual(t, load, p.Vehicles[vi].MaxWeight+1e-9, "vehicle %d", vid)
	}
}

func TestGreedyPrefersFasterVehicleOnTie(t *testing.T) {
	r, err := SolveGreedy(twoVehicles())
	require.NoError(t, err)

	assert.Equal(t, AlgoGreedy, r.Algorithm)
	assert.Equal(t, map[int][]int{2: {1}}, r.Routes)
	assert.Equal(t, 1, r.CompletedDeliveries)
	assert.InDelta(t, 10, r.TotalDistance, 1e-9)
	assert.InDelta(t, 2, r.EnergyConsumption, 1e-9)
	assert.Empty(t, r.Unassigned)
}

func TestGreedyIsDeterministic(t *testing.T) {
	p := randomProblem(7, 5, 20)
	a, err := SolveGreedy(p)
	require.NoError(t, err)
	b, err := SolveGreedy(p)
	require.NoError(t, err)

	assert.Equal(t, a.Routes, b.Routes)
	assert.Equal(t, a.TotalDistance, b.TotalDistance)
	assertCapacity(t, p, a)
}

func TestGreedyRespectsWindows(t *testing.T) {
	p := twoVehicles()
	p.Deliveries[0].Window = Window{Start: 0, End: 0.5}
	r, err := SolveGreedy(p)
	require.NoError(t, err)
	assert.Zero(t, r.CompletedDeliveries)
	assert.Equal(t, []int{1}, r.Unassigned)
}

func TestSolversSkipBlockedAndOverweight(t *testing.T) {
	solvers := map[string]func(Problem) (Result, error){
		AlgoGreedy: SolveGreedy,
		AlgoCSP: func(p Problem) (Result, error) {
			return SolveCSP(context.Background(), p, CSPOptions{})
		},
		AlgoGenetic: func(p Problem) (Result, error) {
			return SolveGenetic(p, GeneticOptions{Seed: 3, Generations: 20})
		},
	}
	for name, solve := range solvers {
		t.Run(name, func(t *testing.T) {
			r, err := solve(blocked())
			require.NoError(t, err)
			assert.Equal(t, map[int][]int{1: {3}}, r.Routes)
			assert.ElementsMatch(t, []int{1, 2}, r.Unassigned)
		})
	}
}

func TestSolversRejectInvalidProblem(t *testing.T) {
	p := twoVehicles()
	p.Vehicles[0].Speed = -1

	_, err := SolveGreedy(p)
	assert.ErrorIs(t, err, ErrInvalidProblem)
	_, err = SolveCSP(context.Background(), p, CSPOptions{})
	assert.ErrorIs(t, err, ErrInvalidProblem)
	_, err = SolveGenetic(p, GeneticOptions{Seed: 1})
	assert.ErrorIs(t, err, ErrInvalidProblem)
}

func TestDeliveryInsideZoneIsSkipped(t *testing.T) {
	p := twoVehicles()
	p.Deliveries[0].Pos = Point{X: 50, Y: 50}
	p.Zones = []Zone{{ID: 1, Vertices: square(50, 50, 5), Active: Window{End: 100}}}

	r, err := SolveGreedy(p)
	require.NoError(t, err)
	assert.Zero(t, r.CompletedDeliveries)

	r, err = SolveCSP(context.Background(), p, CSPOptions{})
	require.NoError(t, err)
	assert.Zero(t, r.CompletedDeliveries)
}

// pigeonhole has more unit deliveries than the fleet can carry, so the search
// must exhaust every assignment before giving up.
func pigeonhole(deliveries, vehicles int) Problem {
	var p Problem
	for i := 0; i < vehicles; i++ {
		p.Vehicles = append(p.Vehicles, Vehicle{ID: i + 1, MaxWeight: 3.9, Battery: 10000, Speed: 10})
	}
	for i := 0; i < deliveries; i++ {
		p.Deliveries = append(p.Deliveries, Delivery{
			ID:       i + 1,
			Pos:      Point{X: 10 + float64(i), Y: 10},
			Weight:   1,
			Priority: 3,
			Window:   Window{End: 1000},
		})
	}
	return p
}

func TestCSPHonoursTimeLimit(t *testing.T) {
	p := pigeonhole(20, 4)
	started := time.Now()
	r, err := SolveCSP(context.Background(), p, CSPOptions{TimeLimit: 50 * time.Millisecond})
	require.NoError(t, err)

	assert.Less(t, time.Since(started), time.Second)
	assert.True(t, r.TimedOut)
	// the deepest partial assignment fills every vehicle
	assert.Equal(t, 12, r.CompletedDeliveries)
	assertCapacity(t, p, r)
}

func TestCSPStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := SolveCSP(ctx, pigeonhole(20, 4), CSPOptions{})
	require.NoError(t, err)
	assert.True(t, r.TimedOut)
	assert.Zero(t, r.CompletedDeliveries)
}

func TestCSPExhaustsSmallInstance(t *testing.T) {
	p := pigeonhole(5, 1)
	r, err := SolveCSP(context.Background(), p, CSPOptions{})
	require.NoError(t, err)
	assert.False(t, r.TimedOut)
	assert.Equal(t, 3, r.CompletedDeliveries)
	assert.Len(t, r.Unassigned, 2)
}

func TestCSPLeavesOutUnreachableDelivery(t *testing.T) {
	// delivery 3 passes the start filter but its window closes before any arrival
	p := Problem{
		Vehicles: []Vehicle{{ID: 1, MaxWeight: 10, Battery: 1000, Speed: 10}},
		Deliveries: []Delivery{
			{ID: 1, Pos: Point{X: 10}, Weight: 1, Priority: 3, Window: Window{End: 100}},
			{ID: 2, Pos: Point{X: 20}, Weight: 1, Priority: 3, Window: Window{End: 100}},
			{ID: 3, Pos: Point{X: 90}, Weight: 1, Priority: 3, Window: Window{End: 1}},
		},
	}
	g, err := SolveGreedy(p)
	require.NoError(t, err)
	r, err := SolveCSP(context.Background(), p, CSPOptions{})
	require.NoError(t, err)

	assert.False(t, r.TimedOut)
	assert.Equal(t, 2, r.CompletedDeliveries)
	assert.Equal(t, g.CompletedDeliveries, r.CompletedDeliveries)
	assert.ElementsMatch(t, []int{1, 2}, r.Routes[1])
	assert.Equal(t, []int{3}, r.Unassigned)
}

func TestCSPValueOrders(t *testing.T) {
	// only one split works: the small vehicle takes one parcel, the big one two
	p := Problem{
		Vehicles: []Vehicle{
			{ID: 1, MaxWeight: 1, Battery: 1000, Speed: 10},
			{ID: 2, MaxWeight: 2, Battery: 1000, Speed: 10},
		},
		Deliveries: []Delivery{
			{ID: 1, Pos: Point{X: 5, Y: 5}, Weight: 1, Priority: 3, Window: Window{End: 100}},
			{ID: 2, Pos: Point{X: 6, Y: 5}, Weight: 1, Priority: 3, Window: Window{End: 100}},
			{ID: 3, Pos: Point{X: 7, Y: 5}, Weight: 1, Priority: 3, Window: Window{End: 100}},
		},
	}
	for _, order := range []ValueOrder{LeastConstrainingFirst, MostConstrainingFirst} {
		t.Run(order.String(), func(t *testing.T) {
			r, err := SolveCSP(context.Background(), p, CSPOptions{ValueOrder: order})
			require.NoError(t, err)
			assert.Equal(t, 3, r.CompletedDeliveries)
			assert.Len(t, r.Routes[1], 1)
			assert.Len(t, r.Routes[2], 2)
			assert.False(t, r.TimedOut)
		})
	}
}

func TestCSPCapsVariables(t *testing.T) {
	p := pigeonhole(10, 4)
	r, err := SolveCSP(context.Background(), p, CSPOptions{MaxDeliveries: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, r.CompletedDeliveries)
	assert.Len(t, r.Unassigned, 6)
}

func TestGeneticSeededRunsMatch(t *testing.T) {
	p := randomProblem(11, 5, 20)
	o := GeneticOptions{Seed: 42, PopulationSize: 30, Generations: 40}
	a, err := SolveGenetic(p, o)
	require.NoError(t, err)
	b, err := SolveGenetic(p, o)
	require.NoError(t, err)

	assert.Equal(t, AlgoGenetic, a.Algorithm)
	assert.Equal(t, a.Routes, b.Routes)
	assert.Equal(t, a.TotalDistance, b.TotalDistance)
}

func TestGeneticCapacityInvariant(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		p := randomProblem(seed, 4, 25)
		for _, sel := range []Selection{SelectTruncation, SelectTournament} {
			r, err := SolveGenetic(p, GeneticOptions{Seed: seed, Generations: 30, Selection: sel})
			require.NoError(t, err)
			assertCapacity(t, p, r)
			assert.Equal(t, len(p.Deliveries), r.CompletedDeliveries+len(r.Unassigned))
		}
	}
}

func TestGeneticRatesCanBeSwitchedOff(t *testing.T) {
	o := GeneticOptions{}.withDefaults()
	assert.Equal(t, DefaultMutationRate, o.MutationRate)
	assert.Equal(t, DefaultElitismRate, o.ElitismRate)

	o = GeneticOptions{MutationRate: -1, ElitismRate: -1}.withDefaults()
	assert.Zero(t, o.MutationRate)
	assert.Zero(t, o.ElitismRate)

	p := randomProblem(3, 3, 12)
	r, err := SolveGenetic(p, GeneticOptions{Seed: 5, Generations: 10, MutationRate: -1, ElitismRate: -1})
	require.NoError(t, err)
	assertCapacity(t, p, r)
}

func TestGeneticNoDeliveries(t *testing.T) {
	p := twoVehicles()
	p.Deliveries = nil
	r, err := SolveGenetic(p, GeneticOptions{Seed: 1})
	require.NoError(t, err)
	assert.Zero(t, r.CompletedDeliveries)
	assert.Empty(t, r.Routes)
}

func TestSolversKeepCapacityOnRandomInstances(t *testing.T) {
	for seed := int64(20); seed < 25; seed++ {
		p := randomProblem(seed, 5, 20)
		g, err := SolveGreedy(p)
		require.NoError(t, err)
		assertCapacity(t, p, g)

		c, err := SolveCSP(context.Background(), p, CSPOptions{TimeLimit: 200 * time.Millisecond})
		require.NoError(t, err)
		assertCapacity(t, p, c)
	}
}

func TestCompare(t *testing.T) {
	p := randomProblem(5, 4, 15)
	before := p.Clone()
	rs, err := Compare(context.Background(), p, CompareOptions{
		CSP:     CSPOptions{TimeLimit: 200 * time.Millisecond},
		Genetic: GeneticOptions{Seed: 9, Generations: 20},
	})
	require.NoError(t, err)
	require.Len(t, rs, 3)
	assert.Equal(t, AlgoGreedy, rs[0].Algorithm)
	assert.Equal(t, AlgoCSP, rs[1].Algorithm)
	assert.Equal(t, AlgoGenetic, rs[2].Algorithm)
	assert.Equal(t, before, p)

	_, err = Compare(context.Background(), Problem{}, CompareOptions{})
	assert.ErrorIs(t, err, ErrInvalidProblem)
}
