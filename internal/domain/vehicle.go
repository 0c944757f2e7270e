package domain

// VehicleState is the lifecycle stage of a simulated vehicle:
// SCHEDULED -> ACTIVE -> ARRIVED.
type VehicleState int

const (
	VehicleScheduled VehicleState = iota
	VehicleActive
	VehicleArrived
)

// Vehicle is a single simulated trip. Created once during
// demand generation; never re-routed.
type Vehicle struct {
	ID string
	Route []EdgeID
	RouteCoordinates []Coordinate // densified polyline, step 5m
	RouteLengthM float64
	DepartTimeS int
	ArrivalTimeS *int

	SpeedKmh float64
	CurrentEdgeProgress float64 // [0, 0.95]
	DistanceTraveledM float64
	EmissionsG float64

	lastEmissionTickS int // internal bookkeeping for the 10s emission cadence
}

// State derives the vehicle's lifecycle stage at simulated time t.
func (v *Vehicle) State(t int) VehicleState {
	if v.ArrivalTimeS != nil {
		return VehicleArrived
	}
	if v.DepartTimeS <= t {
		return VehicleActive
	}
	return VehicleScheduled
}

// CurrentEdge returns the edge id the vehicle currently occupies, or ""
// if the route is exhausted.
func (v *Vehicle) CurrentEdge() EdgeID {
	if len(v.Route) == 0 {
		return ""
	}
	return v.Route[0]
}

// AccumulateEmissions adds gramsPerTick to the vehicle's running
// emissions total once per 10 simulated seconds,
// tracking the cadence internally so callers never need to reason
// about the vehicle's last-accumulated tick.
func (v *Vehicle) AccumulateEmissions(t int, gramsPerTick float64) {
	if t-v.lastEmissionTickS < 10 {
		return
	}
	v.EmissionsG += gramsPerTick
	v.lastEmissionTickS = t
}

// Progress is distance_traveled / route_length, clamped to [0, 1].
func (v *Vehicle) Progress() float64 {
	if v.RouteLengthM <= 0 {
		return 0
	}
	p := v.DistanceTraveledM / v.RouteLengthM
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}
