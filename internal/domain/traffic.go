package domain

import "github.com/paulmach/orb"

// CongestionLevel is the coarse global traffic label described in the
// GLOSSARY: LOW, MEDIUM, HIGH, SEVERE.
type CongestionLevel string

const (
	CongestionLow CongestionLevel = "LOW"
	CongestionMedium CongestionLevel = "MEDIUM"
	CongestionHigh CongestionLevel = "HIGH"
	CongestionSevere CongestionLevel = "SEVERE"
)

// TrafficMultiplier is the demand multiplier for each congestion level
//.
func (c CongestionLevel) TrafficMultiplier() float64 {
	switch c {
	case CongestionSevere:
		return 1.3
	case CongestionHigh:
		return 1.2
	case CongestionMedium:
		return 1.1
	default:
		return 1.0
	}
}

// Incident represents a road event (accident, roadwork, police) inside
// the bounding box fetched from the traffic upstream.
type Incident struct {
	Coordinate orb.Point `json:"coordinate"`
	Type string `json:"type"`
	Description string `json:"description"`
}

// Flow represents the real-time speed reading for a named road segment.
type Flow struct {
	RoadName string `json:"road_name"`
	CurrentSpeed float64 `json:"current_speed_kmh"`
	FreeFlowSpeed float64 `json:"free_flow_speed_kmh"`
	Confidence float64 `json:"confidence"`
	Coordinates []orb.Point `json:"coordinates"`
}

// TrafficSnapshot is the read-only external traffic input.
type TrafficSnapshot struct {
	Incidents []Incident `json:"incidents"`
	Flows []Flow `json:"flows"`
	AverageDelay float64 `json:"average_delay_s"`
	CongestionLevel CongestionLevel `json:"congestion_level"`
	IsFallback bool `json:"is_fallback"`
}
