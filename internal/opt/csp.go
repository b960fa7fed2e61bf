package opt

import (
	"context"
	"sort"
	"time"
)

// ValueOrder selects how the CSP solver orders candidate vehicles.
type ValueOrder int

const (
	// LeastConstrainingFirst tries the vehicle appearing in the fewest other
	// domains first.
	LeastConstrainingFirst ValueOrder = iota
	// MostConstrainingFirst tries the vehicle appearing in the most other
	// domains first.
	MostConstrainingFirst
)

func (o ValueOrder) String() string {
	if o == MostConstrainingFirst {
		return "most-constraining"
	}
	return "least-constraining"
}

const (
	DefaultCSPMaxDeliveries = 30
	DefaultCSPTimeLimit     = 10 * time.Second
)

type CSPOptions struct {
	// MaxDeliveries caps the number of variables searched; 0 means the
	// default, a negative value disables the cap.
	MaxDeliveries int
	// TimeLimit bounds the wall clock spent searching; 0 means the default.
	TimeLimit  time.Duration
	ValueOrder ValueOrder
}

func (o CSPOptions) withDefaults() CSPOptions {
	if o.MaxDeliveries == 0 {
		o.MaxDeliveries = DefaultCSPMaxDeliveries
	}
	if o.TimeLimit <= 0 {
		o.TimeLimit = DefaultCSPTimeLimit
	}
	return o
}

type commitment struct{ delivery, vehicle int }

// undo restores one vehicle's state after a rejected branch.
type undo struct {
	vehicle int
	prev    vehicleState
}

type cspSearch struct {
	ctx      context.Context
	p        Problem
	order    ValueOrder
	domains  map[int][]int // delivery index -> vehicle indexes
	fleet    []vehicleState
	path     []commitment
	best     []commitment
	started  time.Time
	limit    time.Duration
	timedOut bool
}

// SolveCSP runs a backtracking search over delivery -> vehicle assignments
// with most-constrained-variable and least-constraining-value ordering. The
// search polls the time limit and ctx at every recursive entry; when it stops
// without a full assignment, the largest partial assignment reached is
// reported instead. Deliveries no vehicle can serve on a path are left
// unassigned rather than failing the search.
func SolveCSP(ctx context.Context, p Problem, o CSPOptions) (Result, error) {
	started := time.Now()
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	o = o.withDefaults()

	var vars []int
	for _, di := range byPriority(p.Deliveries) {
		if !InAnyZone(p.Deliveries[di].Pos, p.Deliveries[di].Window.Start, p.Zones) {
			vars = append(vars, di)
		}
	}
	if o.MaxDeliveries > 0 && len(vars) > o.MaxDeliveries {
		vars = vars[:o.MaxDeliveries]
	}

	s := &cspSearch{
		ctx:     ctx,
		p:       p,
		order:   o.ValueOrder,
		domains: make(map[int][]int, len(vars)),
		fleet:   newFleetState(p.Vehicles),
		started: started,
		limit:   o.TimeLimit,
	}
	var solvable []int
	for _, di := range vars {
		if dom := s.staticDomain(di); len(dom) > 0 {
			s.domains[di] = dom
			solvable = append(solvable, di)
		}
	}

	final := s.path
	if len(solvable) > 0 && !s.backtrack(solvable, 0) {
		final = s.best
	}
	pl := newPlan(len(p.Vehicles))
	for _, c := range final {
		pl.add(c.vehicle, c.delivery)
	}
	res, err := pl.finish(p, AlgoCSP, started)
	if err != nil {
		return Result{}, err
	}
	res.TimedOut = s.timedOut
	return res, nil
}

// staticDomain lists vehicles able to carry the delivery and reach it from
// their start at time 0, nearest first.
func (s *cspSearch) staticDomain(di int) []int {
	d := s.p.Deliveries[di]
	var dom []int
	for vi, v := range s.p.Vehicles {
		if v.MaxWeight < d.Weight {
			continue
		}
		if !RouteValid(v.Start, d.Pos, 0, v.Speed, s.p.Zones) {
			continue
		}
		dom = append(dom, vi)
	}
	sort.SliceStable(dom, func(a, b int) bool {
		return Distance(s.p.Vehicles[dom[a]].Start, d.Pos) < Distance(s.p.Vehicles[dom[b]].Start, d.Pos)
	})
	return dom
}

func (s *cspSearch) expired() bool {
	if time.Since(s.started) > s.limit {
		return true
	}
	return s.ctx != nil && s.ctx.Err() != nil
}

// consistent checks a candidate against the vehicle state left by the
// commitments on the current search path.
func (s *cspSearch) consistent(di, vi int) bool {
	d := s.p.Deliveries[di]
	v := s.p.Vehicles[vi]
	st := s.fleet[vi]
	if st.load+d.Weight > v.MaxWeight {
		return false
	}
	arrival := st.time + Distance(st.pos, d.Pos)/v.Speed
	if arrival > d.Window.End {
		return false
	}
	return !InAnyZone(d.Pos, arrival, s.p.Zones)
}

func (s *cspSearch) consistentValues(di int) []int {
	var out []int
	for _, vi := range s.domains[di] {
		if s.consistent(di, vi) {
			out = append(out, vi)
		}
	}
	return out
}

// selectVariable picks the unassigned delivery with the fewest consistent
// vehicles; the earliest one in list order wins ties.
func (s *cspSearch) selectVariable(unassigned []int) int {
	best, bestSize := unassigned[0], len(s.consistentValues(unassigned[0]))
	for _, di := range unassigned[1:] {
		if n := len(s.consistentValues(di)); n < bestSize {
			best, bestSize = di, n
		}
	}
	return best
}

// orderValues sorts the consistent vehicles for di by how many of the
// remaining deliveries also list them.
func (s *cspSearch) orderValues(di int, rest []int) []int {
	values := s.consistentValues(di)
	impact := make(map[int]int, len(values))
	for _, vi := range values {
		for _, other := range rest {
			for _, cand := range s.domains[other] {
				if cand == vi {
					impact[vi]++
					break
				}
			}
		}
	}
	sort.SliceStable(values, func(a, b int) bool {
		if s.order == MostConstrainingFirst {
			return impact[values[a]] > impact[values[b]]
		}
		return impact[values[a]] < impact[values[b]]
	})
	return values
}

func (s *cspSearch) commit(di, vi int) undo {
	u := undo{vehicle: vi, prev: s.fleet[vi]}
	d := s.p.Deliveries[di]
	st := s.fleet[vi]
	s.fleet[vi] = vehicleState{
		pos:  d.Pos,
		load: st.load + d.Weight,
		time: st.time + Distance(st.pos, d.Pos)/s.p.Vehicles[vi].Speed,
	}
	s.path = append(s.path, commitment{delivery: di, vehicle: vi})
	if len(s.path) > len(s.best) {
		s.best = append(s.best[:0:0], s.path...)
	}
	return u
}

func (s *cspSearch) rollback(u undo) {
	s.fleet[u.vehicle] = u.prev
	s.path = s.path[:len(s.path)-1]
}

// backtrack searches for a full assignment of unassigned. A delivery with no
// workable vehicle on the current path is left out instead of failing the
// branch, so the deepest path still carries every other delivery; skipped
// counts those left out. Branches that cannot beat the best path are pruned.
func (s *cspSearch) backtrack(unassigned []int, skipped int) bool {
	if s.expired() {
		s.timedOut = true
		return false
	}
	if len(unassigned) == 0 {
		return skipped == 0
	}
	if len(s.path)+len(unassigned) <= len(s.best) {
		return false
	}
	di := s.selectVariable(unassigned)
	rest := make([]int, 0, len(unassigned)-1)
	for _, id := range unassigned {
		if id != di {
			rest = append(rest, id)
		}
	}
	for _, vi := range s.orderValues(di, rest) {
		u := s.commit(di, vi)
		if s.backtrack(rest, skipped) {
			return true
		}
		s.rollback(u)
		if s.timedOut {
			return false
		}
	}
	return s.backtrack(rest, skipped+1)
}
