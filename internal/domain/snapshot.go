package domain

// VehiclePosition is one vehicle's interpolated state within a
// LiveSnapshot.
type VehiclePosition struct {
	ID string `json:"id"`
	Coordinate Coordinate `json:"coordinate"`
	SpeedKmh float64 `json:"speed_kmh"`
	BearingDeg float64 `json:"bearing_deg"`
	Progress float64 `json:"progress"`

	// EdgeTrail and Polyline are both emitted on the wire for
	// backward compatibility (tagged record with explicit
	// edge_trail and polyline fields).
	EdgeTrail []EdgeID `json:"edge_trail"`
	Polyline []Coordinate `json:"polyline"`
}

// CongestionLevelLabel classifies a congested edge segment for display.
type CongestionLevelLabel string

const (
	CongestionSegmentHigh CongestionLevelLabel = "high"
	CongestionSegmentMedium CongestionLevelLabel = "medium"
	CongestionSegmentLow CongestionLevelLabel = "low"
)

// CongestionSegment is one congested edge, enumerated for the live map
// overlay.
type CongestionSegment struct {
	Coordinates []Coordinate `json:"coordinates"`
	Level CongestionLevelLabel `json:"level"`
}

// LiveSnapshot is a periodic picture of active vehicles and congested
// segments, sized for cheap network transport.
type LiveSnapshot struct {
	TimestampS int `json:"timestamp_s"`
	Vehicles []VehiclePosition `json:"vehicles"`
	CongestionSegments []CongestionSegment `json:"congestion_segments"`
	TotalVehicles int `json:"total_vehicles"`
	AverageSpeed float64 `json:"average_speed"`
}
