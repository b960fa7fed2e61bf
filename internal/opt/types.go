package opt

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a vehicle or delivery ID does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrInvalidProblem marks a problem instance that breaks the data model contract.
	ErrInvalidProblem = errors.New("invalid problem")
	// ErrInvalidAssignment marks routes that hand one delivery to several vehicles.
	ErrInvalidAssignment = errors.New("invalid assignment")
)

// Point is a position on the planning plane.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Window is a closed time interval [Start, End].
type Window struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Contains reports whether t lies inside the window.
func (w Window) Contains(t float64) bool { return t >= w.Start && t <= w.End }

type Vehicle struct {
	ID        int     `json:"id" yaml:"id"`
	MaxWeight float64 `json:"maxWeight" yaml:"maxWeight"`
	Battery   float64 `json:"battery" yaml:"battery"`
	Speed     float64 `json:"speed" yaml:"speed"`
	Start     Point   `json:"start" yaml:"start"`
}

type Delivery struct {
	ID       int     `json:"id" yaml:"id"`
	Pos      Point   `json:"pos" yaml:"pos"`
	Weight   float64 `json:"weight" yaml:"weight"`
	Priority int     `json:"priority" yaml:"priority"`
	Window   Window  `json:"window" yaml:"window"`
}

// MovementKind names a zone displacement rule.
type MovementKind string

const (
	Circular MovementKind = "circular"
	Linear   MovementKind = "linear"
	Random   MovementKind = "random"
)

// Movement describes how a dynamic zone drifts over time. Center/Radius apply
// to circular motion, Direction to linear motion; Speed is shared.
type Movement struct {
	Kind      MovementKind `json:"type" yaml:"type"`
	Speed     float64      `json:"speed" yaml:"speed"`
	Center    *Point       `json:"center,omitempty" yaml:"center,omitempty"`
	Radius    float64      `json:"radius,omitempty" yaml:"radius,omitempty"`
	Direction *Point       `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Zone is an exclusion polygon, enforced only while Active contains the query time.
type Zone struct {
	ID       int       `json:"id" yaml:"id"`
	Vertices []Point   `json:"vertices" yaml:"vertices"`
	Active   Window    `json:"active" yaml:"active"`
	Dynamic  bool      `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
	Movement *Movement `json:"movement,omitempty" yaml:"movement,omitempty"`
}

// Problem is one planning instance. Solvers treat it as read-only.
type Problem struct {
	Vehicles   []Vehicle  `json:"vehicles" yaml:"vehicles"`
	Deliveries []Delivery `json:"deliveries" yaml:"deliveries"`
	Zones      []Zone     `json:"zones" yaml:"zones"`
}

// Validate checks the structural contract every solver relies on.
func (p Problem) Validate() error {
	if len(p.Vehicles) == 0 {
		return fmt.Errorf("%w: no vehicles", ErrInvalidProblem)
	}
	seenV := map[int]bool{}
	for _, v := range p.Vehicles {
		if seenV[v.ID] {
			return fmt.Errorf("%w: duplicate vehicle id %d", ErrInvalidProblem, v.ID)
		}
		seenV[v.ID] = true
		if v.Speed <= 0 {
			return fmt.Errorf("%w: vehicle %d speed must be > 0", ErrInvalidProblem, v.ID)
		}
		if v.MaxWeight < 0 {
			return fmt.Errorf("%w: vehicle %d maxWeight must be >= 0", ErrInvalidProblem, v.ID)
		}
	}
	seenD := map[int]bool{}
	for _, d := range p.Deliveries {
		if seenD[d.ID] {
			return fmt.Errorf("%w: duplicate delivery id %d", ErrInvalidProblem, d.ID)
		}
		seenD[d.ID] = true
		if d.Priority < 1 || d.Priority > 5 {
			return fmt.Errorf("%w: delivery %d priority %d outside 1..5", ErrInvalidProblem, d.ID, d.Priority)
		}
		if d.Weight < 0 {
			return fmt.Errorf("%w: delivery %d weight must be >= 0", ErrInvalidProblem, d.ID)
		}
		if d.Window.End < d.Window.Start {
			return fmt.Errorf("%w: delivery %d window end before start", ErrInvalidProblem, d.ID)
		}
	}
	seenZ := map[int]bool{}
	for _, z := range p.Zones {
		if seenZ[z.ID] {
			return fmt.Errorf("%w: duplicate zone id %d", ErrInvalidProblem, z.ID)
		}
		seenZ[z.ID] = true
		if len(z.Vertices) < 3 {
			return fmt.Errorf("%w: zone %d needs at least 3 vertices", ErrInvalidProblem, z.ID)
		}
		if z.Active.End < z.Active.Start {
			return fmt.Errorf("%w: zone %d active window end before start", ErrInvalidProblem, z.ID)
		}
	}
	return nil
}

// Clone returns a deep copy so concurrent solver runs never alias input slices.
func (p Problem) Clone() Problem {
	out := Problem{
		Vehicles:   append([]Vehicle(nil), p.Vehicles...),
		Deliveries: append([]Delivery(nil), p.Deliveries...),
		Zones:      make([]Zone, len(p.Zones)),
	}
	for i, z := range p.Zones {
		cz := z
		cz.Vertices = append([]Point(nil), z.Vertices...)
		if z.Movement != nil {
			m := *z.Movement
			if m.Center != nil {
				c := *m.Center
				m.Center = &c
			}
			if m.Direction != nil {
				d := *m.Direction
				m.Direction = &d
			}
			cz.Movement = &m
		}
		out.Zones[i] = cz
	}
	return out
}

// Result is the common output shape of every solver.
type Result struct {
	Algorithm           string        `json:"algorithm"`
	Routes              map[int][]int `json:"routes"`
	TotalDistance       float64       `json:"totalDistance"`
	CompletedDeliveries int           `json:"completedDeliveries"`
	EnergyConsumption   float64       `json:"energyConsumption"`
	ExecutionTimeMs     float64       `json:"executionTimeMs"`
	Unassigned          []int         `json:"unassigned,omitempty"`
	TimedOut            bool          `json:"timedOut,omitempty"`
}

// Algorithm names reported in Result.Algorithm.
const (
	AlgoGreedy  = "greedy"
	AlgoCSP     = "csp"
	AlgoGenetic = "genetic"
)

// vehicleState is the per-run working state of one vehicle.
type vehicleState struct {
	pos  Point
	load float64
	time float64
}

func newFleetState(vs []Vehicle) []vehicleState {
	out := make([]vehicleState, len(vs))
	for i, v := range vs {
		out[i] = vehicleState{pos: v.Start}
	}
	return out
}

// energyFactor scales distance × weight into energy units.
const energyFactor = 0.1

func energy(dist, weight float64) float64 { return dist * weight * energyFactor }
