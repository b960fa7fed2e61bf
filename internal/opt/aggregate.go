package opt

import (
	"fmt"
	"sort"
	"time"
)

// index resolves vehicle and delivery IDs to positions in a Problem.
type index struct {
	vehicles   map[int]int
	deliveries map[int]int
}

func newIndex(p Problem) index {
	ix := index{vehicles: make(map[int]int, len(p.Vehicles)), deliveries: make(map[int]int, len(p.Deliveries))}
	for i, v := range p.Vehicles {
		ix.vehicles[v.ID] = i
	}
	for i, d := range p.Deliveries {
		ix.deliveries[d.ID] = i
	}
	return ix
}

func (ix index) vehicle(id int) (int, error) {
	i, ok := ix.vehicles[id]
	if !ok {
		return 0, fmt.Errorf("vehicle %d: %w", id, ErrNotFound)
	}
	return i, nil
}

func (ix index) delivery(id int) (int, error) {
	i, ok := ix.deliveries[id]
	if !ok {
		return 0, fmt.Errorf("delivery %d: %w", id, ErrNotFound)
	}
	return i, nil
}

// knownVehicles fails with the lowest route vehicle ID missing from the fleet.
func (ix index) knownVehicles(routes map[int][]int) error {
	var unknown []int
	for vid := range routes {
		if _, ok := ix.vehicles[vid]; !ok {
			unknown = append(unknown, vid)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Ints(unknown)
	_, err := ix.vehicle(unknown[0])
	return err
}

// Aggregate converts per-vehicle delivery sequences into a Result. Each route
// is replayed from its vehicle's start position; distance and energy are summed
// in fleet order so the totals are reproducible.
func Aggregate(p Problem, algorithm string, routes map[int][]int) (Result, error) {
	ix := newIndex(p)
	if err := ix.knownVehicles(routes); err != nil {
		return Result{}, err
	}
	// fleet order keeps the reported error stable
	held := map[int]int{}
	for _, v := range p.Vehicles {
		vid := v.ID
		for _, did := range routes[vid] {
			if _, err := ix.delivery(did); err != nil {
				return Result{}, err
			}
			if other, ok := held[did]; ok {
				return Result{}, fmt.Errorf("%w: delivery %d held by vehicles %d and %d", ErrInvalidAssignment, did, other, vid)
			}
			held[did] = vid
		}
	}

	res := Result{Algorithm: algorithm, Routes: map[int][]int{}}
	for _, v := range p.Vehicles {
		ids := routes[v.ID]
		if len(ids) == 0 {
			continue
		}
		res.Routes[v.ID] = append([]int(nil), ids...)
		cur := v.Start
		for _, did := range ids {
			d := p.Deliveries[ix.deliveries[did]]
			dist := Distance(cur, d.Pos)
			res.TotalDistance += dist
			res.EnergyConsumption += energy(dist, d.Weight)
			cur = d.Pos
		}
		res.CompletedDeliveries += len(ids)
	}
	for _, d := range p.Deliveries {
		if _, ok := held[d.ID]; !ok {
			res.Unassigned = append(res.Unassigned, d.ID)
		}
	}
	return res, nil
}

// plan collects routes by vehicle index while a solver runs.
type plan [][]int

func newPlan(vehicles int) plan { return make(plan, vehicles) }

func (pl plan) add(vehicle, delivery int) { pl[vehicle] = append(pl[vehicle], delivery) }

// finish maps the index-based plan to IDs and aggregates it.
func (pl plan) finish(p Problem, algorithm string, started time.Time) (Result, error) {
	routes := map[int][]int{}
	for vi, ds := range pl {
		if len(ds) == 0 {
			continue
		}
		ids := make([]int, len(ds))
		for k, di := range ds {
			ids[k] = p.Deliveries[di].ID
		}
		routes[p.Vehicles[vi].ID] = ids
	}
	res, err := Aggregate(p, algorithm, routes)
	if err != nil {
		return Result{}, err
	}
	res.ExecutionTimeMs = float64(time.Since(started).Microseconds()) / 1000
	return res, nil
}
