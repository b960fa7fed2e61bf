package opt

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	// MapArea is the nominal 100x100 planning map.
	MapArea = 100 * 100
	// ZoneProximity is the distance to a zone vertex under which a delivery
	// counts as affected by that zone.
	ZoneProximity = 10.0
	// TightWindow is the window length under which a delivery is tight.
	TightWindow = 30.0
	// UrgentPriority is the lowest priority counted as urgent.
	UrgentPriority = 4
)

type VehicleUsage struct {
	VehicleID   int     `json:"vehicleId"`
	MaxWeight   float64 `json:"maxWeight"`
	UsedWeight  float64 `json:"usedWeight"`
	Utilization float64 `json:"utilization"`
	Deliveries  int     `json:"deliveries"`
	Distance    float64 `json:"distance"`
	Energy      float64 `json:"energy"`
	// BatteryShare is Energy as a percentage of Battery; 0 with no battery.
	BatteryShare float64 `json:"batteryShare"`
	Overloaded   bool    `json:"overloaded,omitempty"`
}

type ZoneImpact struct {
	ZoneID   int     `json:"zoneId"`
	Area     float64 `json:"area"`
	Centroid Point   `json:"centroid"`
	// Nearby lists deliveries within ZoneProximity of one of the zone's base vertices.
	Nearby []int `json:"nearby"`
}

// Analysis summarises how a result sits against the problem's constraints.
type Analysis struct {
	Vehicles           []VehicleUsage `json:"vehicles"`
	Zones              []ZoneImpact   `json:"zones"`
	AffectedDeliveries int            `json:"affectedDeliveries"`
	ZoneArea           float64        `json:"zoneArea"`
	MapCoverage        float64        `json:"mapCoverage"`
	AvgUtilization     float64        `json:"avgUtilization"`
	AvgBatteryShare    float64        `json:"avgBatteryShare"`
	TightWindows       int            `json:"tightWindows"`
	UrgentDeliveries   int            `json:"urgentDeliveries"`
	AvgWindow          float64        `json:"avgWindow"`
}

// Analyze computes capacity, energy, zone and time-window figures for r
// against p. Routes naming unknown IDs fail with ErrNotFound.
func Analyze(p Problem, r Result) (Analysis, error) {
	ix := newIndex(p)
	var a Analysis
	if err := ix.knownVehicles(r.Routes); err != nil {
		return Analysis{}, err
	}

	for _, v := range p.Vehicles {
		u := VehicleUsage{VehicleID: v.ID, MaxWeight: v.MaxWeight}
		cur := v.Start
		for _, did := range r.Routes[v.ID] {
			di, err := ix.delivery(did)
			if err != nil {
				return Analysis{}, err
			}
			d := p.Deliveries[di]
			dist := Distance(cur, d.Pos)
			u.UsedWeight += d.Weight
			u.Distance += dist
			u.Energy += energy(dist, d.Weight)
			u.Deliveries++
			cur = d.Pos
		}
		if v.MaxWeight > 0 {
			u.Utilization = u.UsedWeight / v.MaxWeight * 100
		}
		if v.Battery > 0 {
			u.BatteryShare = u.Energy / v.Battery * 100
		}
		u.Overloaded = u.UsedWeight > v.MaxWeight
		a.AvgUtilization += u.Utilization
		a.AvgBatteryShare += u.BatteryShare
		a.Vehicles = append(a.Vehicles, u)
	}
	if n := float64(len(p.Vehicles)); n > 0 {
		a.AvgUtilization /= n
		a.AvgBatteryShare /= n
	}

	affected := map[int]bool{}
	for _, z := range p.Zones {
		zi := zoneImpact(z, p.Deliveries)
		for _, id := range zi.Nearby {
			affected[id] = true
		}
		a.ZoneArea += zi.Area
		a.Zones = append(a.Zones, zi)
	}
	a.AffectedDeliveries = len(affected)
	a.MapCoverage = a.ZoneArea / MapArea * 100

	for _, d := range p.Deliveries {
		w := d.Window.End - d.Window.Start
		a.AvgWindow += w
		if w < TightWindow {
			a.TightWindows++
		}
		if d.Priority >= UrgentPriority {
			a.UrgentDeliveries++
		}
	}
	if n := float64(len(p.Deliveries)); n > 0 {
		a.AvgWindow /= n
	}
	return a, nil
}

func zoneImpact(z Zone, ds []Delivery) ZoneImpact {
	poly := orb.Polygon{ring(z.Vertices)}
	c, area := planar.CentroidArea(poly)
	zi := ZoneImpact{
		ZoneID:   z.ID,
		Area:     math.Abs(area),
		Centroid: Point{X: c[0], Y: c[1]},
		Nearby:   []int{},
	}
	for _, d := range ds {
		for _, v := range z.Vertices {
			if Distance(d.Pos, v) < ZoneProximity {
				zi.Nearby = append(zi.Nearby, d.ID)
				break
			}
		}
	}
	return zi
}

// ring converts vertices to a closed orb ring.
func ring(vs []Point) orb.Ring {
	r := make(orb.Ring, 0, len(vs)+1)
	for _, v := range vs {
		r = append(r, orb.Point{v.X, v.Y})
	}
	if len(r) > 0 && !r.Closed() {
		r = append(r, r[0])
	}
	return r
}
