package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/smartcity/trafficsim/internal/domain"
)

const defaultHistoryHours = 24
const maxHistoryHours = 720

// ResultService owns the simulation_results collection: background
// persistence of completed runs and bounded-window historical queries.
// A wgBg sync.WaitGroup tracks in-flight async Postgres writes so
// shutdown can drain them before the process exits.
type ResultService struct {
	repo domain.DataRepository

	wgBg sync.WaitGroup // tracks background save goroutines for graceful shutdown
}

// NewResultService creates a new result service over repo.
func NewResultService(repo domain.DataRepository) *ResultService {
	return &ResultService{repo: repo}
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *ResultService) WaitBackground() {
	s.wgBg.Wait()
}

// SaveAsync persists a completed run's result without blocking the
// request that produced it (persistence is fire-and-forget
// from the handler's point of view).
func (s *ResultService) SaveAsync(result domain.SimulationResult) {
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SaveSimulationResult(ctx, result); err != nil {
			log.Printf("Failed to save simulation result %s: %v", result.ID, err)
		}
	}()
}

// List returns simulation results created within the last hours
// (1..720, default 24).
func (s *ResultService) List(ctx context.Context, hours int) ([]domain.SimulationResult, error) {
	if hours <= 0 {
		hours = defaultHistoryHours
	}
	if hours > maxHistoryHours {
		hours = maxHistoryHours
	}
	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)
	return s.repo.ListSimulationResults(ctx, from, to)
}
