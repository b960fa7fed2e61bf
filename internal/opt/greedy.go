package opt

import (
	"math"
	"sort"
	"time"
)

const (
	priorityWeight = 10.0
	latenessWeight = 50.0
)

// greedyCost scores a candidate vehicle for a delivery. The lateness term is
// zero whenever the hard window filter already passed.
func greedyCost(dist float64, priority int, arrival, latest float64) float64 {
	return dist + float64(6-priority)*priorityWeight + math.Max(0, arrival-latest)*latenessWeight
}

// byPriority returns delivery indexes ordered by descending priority, keeping
// input order among equal priorities.
func byPriority(ds []Delivery) []int {
	order := make([]int, len(ds))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return ds[order[a]].Priority > ds[order[b]].Priority })
	return order
}

// SolveGreedy assigns deliveries in priority order, each to the cheapest
// vehicle that can still carry it, reach it before its window closes and fly
// there without crossing an active zone. Nothing is retried or undone.
func SolveGreedy(p Problem) (Result, error) {
	started := time.Now()
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	fleet := newFleetState(p.Vehicles)
	pl := newPlan(len(p.Vehicles))

	for _, di := range byPriority(p.Deliveries) {
		d := p.Deliveries[di]
		if InAnyZone(d.Pos, d.Window.Start, p.Zones) {
			continue
		}
		best := -1
		bestCost, bestArrival := math.Inf(1), math.Inf(1)
		for vi, v := range p.Vehicles {
			st := fleet[vi]
			if st.load+d.Weight > v.MaxWeight {
				continue
			}
			dist := Distance(st.pos, d.Pos)
			arrival := st.time + dist/v.Speed
			if arrival > d.Window.End {
				continue
			}
			if !RouteValid(st.pos, d.Pos, st.time, v.Speed, p.Zones) {
				continue
			}
			cost := greedyCost(dist, d.Priority, arrival, d.Window.End)
			// Equal scores go to the vehicle that gets there first, then to fleet order.
			if cost < bestCost || (cost == bestCost && arrival < bestArrival) {
				best, bestCost, bestArrival = vi, cost, arrival
			}
		}
		if best < 0 {
			continue
		}
		pl.add(best, di)
		fleet[best] = vehicleState{pos: d.Pos, load: fleet[best].load + d.Weight, time: bestArrival}
	}
	return pl.finish(p, AlgoGreedy, started)
}
