package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smartcity/trafficsim/internal/domain"
)

// MarkerService owns the markers collection: validation plus simple
// CRUD against the repository.
type MarkerService struct {
	repo domain.DataRepository
}

// NewMarkerService creates a new marker service over repo.
func NewMarkerService(repo domain.DataRepository) *MarkerService {
	return &MarkerService{repo: repo}
}

// Create validates and persists a new marker, assigning its id and
// creation time.
func (s *MarkerService) Create(ctx context.Context, markerType domain.MarkerType, coordinate domain.Coordinate) (domain.Marker, error) {
	m := domain.Marker{
		ID:         uuid.New().String(),
		Type:       markerType,
		Coordinate: coordinate,
		CreatedAt:  time.Now(),
	}
	if !m.Valid() {
		return domain.Marker{}, domain.ErrInvalidMarker
	}
	if err := s.repo.SaveMarker(ctx, m); err != nil {
		return domain.Marker{}, err
	}
	return m, nil
}

// List returns every stored marker.
func (s *MarkerService) List(ctx context.Context) ([]domain.Marker, error) {
	return s.repo.ListMarkers(ctx)
}

// Clear deletes every stored marker.
func (s *MarkerService) Clear(ctx context.Context) error {
	return s.repo.ClearMarkers(ctx)
}
