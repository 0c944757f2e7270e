package domain

import (
	"context"
	"time"
)

// AnalysisRequest is what gets POSTed to the narrative-analysis upstream
// (internal/service.AnalysisBridge), enriched with the metrics the Go
// backend already computed.
type AnalysisRequest struct {
	Metrics FinalMetrics `json:"metrics"`
	Markers []Marker `json:"markers"`
}

// DataRepository defines the interface for persisting markers and
// simulation results ("a small key/value-like storage with
// two collections suffices"). Domain owns the interface; postgres and
// mock implementations live in internal/repository.
type DataRepository interface {
	// SaveMarker persists a newly created marker.
	SaveMarker(ctx context.Context, m Marker) error

	// ListMarkers returns all stored markers in insertion order.
	ListMarkers(ctx context.Context) ([]Marker, error)

	// ClearMarkers deletes all stored markers.
	ClearMarkers(ctx context.Context) error

	// SaveSimulationResult persists a completed run's result.
	SaveSimulationResult(ctx context.Context, r SimulationResult) error

	// ListSimulationResults retrieves results created within the window.
	ListSimulationResults(ctx context.Context, from, to time.Time) ([]SimulationResult, error)

	// Health checks storage connectivity.
	Health(ctx context.Context) error
}
