package opt

import "math"

const (
	// CycleLength is the period of every dynamic zone motion.
	CycleLength = 120.0
	// MapMin and MapMax clamp displaced zone vertices to the map.
	MapMin = 5.0
	MapMax = 95.0

	circularPeriod  = 30.0
	linearHalfCycle = 40.0
	linearReach     = 25.0
	randomStep      = 8.0
)

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// ZoneVerticesAt returns the polygon of z at time t. Static zones and
// unrecognised or incomplete movement descriptors yield the base polygon.
func ZoneVerticesAt(z Zone, t float64) []Point {
	if !z.Dynamic || z.Movement == nil {
		return z.Vertices
	}
	m := z.Movement
	tc := math.Mod(t, CycleLength)
	switch m.Kind {
	case Circular:
		if m.Center != nil && m.Radius != 0 {
			angle := (tc / circularPeriod) * 2 * math.Pi * m.Speed
			return displace(z.Vertices, math.Cos(angle)*m.Radius, math.Sin(angle)*m.Radius)
		}
	case Linear:
		if m.Direction != nil {
			progress := math.Mod(tc/linearHalfCycle, 2)
			if progress > 1 {
				progress = 2 - progress
			}
			return displace(z.Vertices, m.Direction.X*progress*linearReach, m.Direction.Y*progress*linearReach)
		}
	case Random:
		// Same t always gives the same wobble; the step changes every 8 time units.
		step := math.Floor(tc / randomStep)
		dx := math.Mod(math.Sin(step*2.1)*m.Speed*20, 20) - 10
		dy := math.Mod(math.Cos(step*1.9)*m.Speed*20, 20) - 10
		return displace(z.Vertices, dx, dy)
	}
	return z.Vertices
}

func displace(vs []Point, dx, dy float64) []Point {
	out := make([]Point, len(vs))
	for i, v := range vs {
		out[i] = Point{X: clamp(v.X + dx), Y: clamp(v.Y + dy)}
	}
	return out
}

func clamp(v float64) float64 { return math.Max(MapMin, math.Min(MapMax, v)) }

// PointInZoneAt reports whether p is inside z at time t. Zones outside their
// active window never contain anything.
func PointInZoneAt(p Point, t float64, z Zone) bool {
	if !z.Active.Contains(t) {
		return false
	}
	return pointInPolygon(p, ZoneVerticesAt(z, t))
}

// InAnyZone reports whether p is inside any zone active at t.
func InAnyZone(p Point, t float64, zones []Zone) bool {
	for _, z := range zones {
		if PointInZoneAt(p, t, z) {
			return true
		}
	}
	return false
}

// pointInPolygon is the even-odd ray casting test; the ring is closed implicitly.
func pointInPolygon(p Point, poly []Point) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}
