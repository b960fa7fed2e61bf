package opt

import "math"

// SampleStep is the spacing, in distance units, between route validity samples.
const SampleStep = 2.0

// RouteValid walks the straight segment from -> to departing at startTime and
// rejects it if any sample lies inside an active zone at the time the vehicle
// passes it. Obstacles thinner than SampleStep can slip between samples.
func RouteValid(from, to Point, startTime, speed float64, zones []Zone) bool {
	if len(zones) == 0 {
		return true
	}
	d := Distance(from, to)
	travel := 0.0
	if speed > 0 {
		travel = d / speed
	}
	steps := int(math.Ceil(d / SampleStep))
	if steps < 1 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		progress := float64(i) / float64(steps)
		at := Point{
			X: from.X + (to.X-from.X)*progress,
			Y: from.Y + (to.Y-from.Y)*progress,
		}
		if InAnyZone(at, startTime+travel*progress, zones) {
			return false
		}
	}
	return true
}
