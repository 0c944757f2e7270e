package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smartcity/trafficsim/internal/domain"
)

// PostgresRepository implements domain.DataRepository over the two
// collections calls for: markers and simulation_results.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SaveMarker persists a newly created marker.
func (r *PostgresRepository) SaveMarker(ctx context.Context, m domain.Marker) error {
	query := `
		INSERT INTO markers (id, type, lng, lat, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, m.ID, m.Type, m.Coordinate[0], m.Coordinate[1], m.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to save marker: %w", err)
	}
	return nil
}

// ListMarkers returns all stored markers in insertion order.
func (r *PostgresRepository) ListMarkers(ctx context.Context) ([]domain.Marker, error) {
	query := `SELECT id, type, lng, lat, created_at FROM markers ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query markers: %w", err)
	}
	defer rows.Close()

	var results []domain.Marker
	for rows.Next() {
		var m domain.Marker
		var lng, lat float64
		if err := rows.Scan(&m.ID, &m.Type, &lng, &lat, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan marker row: %w", err)
		}
		m.Coordinate = domain.Coordinate{lng, lat}
		results = append(results, m)
	}
	return results, nil
}

// ClearMarkers deletes all stored markers.
func (r *PostgresRepository) ClearMarkers(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM markers`); err != nil {
		return fmt.Errorf("postgres: failed to clear markers: %w", err)
	}
	return nil
}

// SaveSimulationResult persists a completed run's result. Metrics,
// analysis and markers are stored as JSONB since their shape is owned
// by domain.FinalMetrics/AnalysisResult, not by the schema.
func (r *PostgresRepository) SaveSimulationResult(ctx context.Context, res domain.SimulationResult) error {
	metricsJSON, err := json.Marshal(res.Metrics)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal metrics: %w", err)
	}
	analysisJSON, err := json.Marshal(res.Analysis)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal analysis: %w", err)
	}
	markersJSON, err := json.Marshal(res.Markers)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal markers: %w", err)
	}

	query := `
		INSERT INTO simulation_results (
			id, metrics, analysis, markers, duration_minutes, radius_km, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		res.ID, metricsJSON, analysisJSON, markersJSON, res.Duration, res.Radius, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save simulation result: %w", err)
	}
	return nil
}

// ListSimulationResults retrieves results created within [from, to].
func (r *PostgresRepository) ListSimulationResults(ctx context.Context, from, to time.Time) ([]domain.SimulationResult, error) {
	query := `
		SELECT id, metrics, analysis, markers, duration_minutes, radius_km, created_at
		FROM simulation_results
		WHERE created_at BETWEEN $1 AND $2
		ORDER BY created_at DESC
		LIMIT 100
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query simulation results: %w", err)
	}
	defer rows.Close()

	var results []domain.SimulationResult
	for rows.Next() {
		var res domain.SimulationResult
		var metricsJSON, analysisJSON, markersJSON []byte
		if err := rows.Scan(&res.ID, &metricsJSON, &analysisJSON, &markersJSON, &res.Duration, &res.Radius, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan simulation result row: %w", err)
		}
		if err := json.Unmarshal(metricsJSON, &res.Metrics); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal metrics: %w", err)
		}
		if err := json.Unmarshal(analysisJSON, &res.Analysis); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal analysis: %w", err)
		}
		if err := json.Unmarshal(markersJSON, &res.Markers); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal markers: %w", err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Health checks database connectivity.
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
