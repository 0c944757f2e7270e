package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/smartcity/trafficsim/internal/domain"
)

// MockRepository implements domain.DataRepository entirely in memory,
// used when no database is configured (demo mode still
// round-trips markers and results within a process's lifetime).
type MockRepository struct {
	mu sync.Mutex
	markers []domain.Marker
	results []domain.SimulationResult
}

// NewMockRepository creates a new in-memory repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SaveMarker appends a marker to the in-memory store.
func (r *MockRepository) SaveMarker(ctx context.Context, m domain.Marker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = append(r.markers, m)
	return nil
}

// ListMarkers returns every marker saved so far, in insertion order.
func (r *MockRepository) ListMarkers(ctx context.Context) ([]domain.Marker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Marker, len(r.markers))
	copy(out, r.markers)
	return out, nil
}

// ClearMarkers empties the in-memory marker store.
func (r *MockRepository) ClearMarkers(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = nil
	return nil
}

// SaveSimulationResult appends a result to the in-memory store.
func (r *MockRepository) SaveSimulationResult(ctx context.Context, res domain.SimulationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

// ListSimulationResults returns saved results created within [from, to].
func (r *MockRepository) ListSimulationResults(ctx context.Context, from, to time.Time) ([]domain.SimulationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SimulationResult
	for _, res := range r.results {
		if res.CreatedAt.Before(from) || res.CreatedAt.After(to) {
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

// Health always returns nil in mock mode.
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
