package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/routewatch/backend/internal/domain"
)

// Store implements domain.MonitorRepository on PostgreSQL. All tables are
// insert-only; rows are never updated or deleted here.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the monitoring tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS route_snapshots (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			route_id VARCHAR(255) NOT NULL,
			route_data JSONB,
			duration_seconds DOUBLE PRECISION NOT NULL,
			distance_meters DOUBLE PRECISION NOT NULL,
			avg_speed_kmh DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_route_snapshots_route_time
			ON route_snapshots (route_id, timestamp DESC)`,
		`CREATE TABLE IF NOT EXISTS route_changes (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			route_id VARCHAR(255) NOT NULL,
			change_type VARCHAR(100) NOT NULL,
			old_value DOUBLE PRECISION NOT NULL,
			new_value DOUBLE PRECISION NOT NULL,
			percentage_change DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_route_changes_route_time
			ON route_changes (route_id, timestamp DESC)`,
		`CREATE TABLE IF NOT EXISTS traffic_history (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			traffic_data JSONB,
			sample_count INTEGER NOT NULL DEFAULT 0,
			processed BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: failed to ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRouteSnapshot appends one route snapshot.
func (s *Store) SaveRouteSnapshot(ctx context.Context, snapshot domain.RouteSnapshot) error {
	query := `
		INSERT INTO route_snapshots
			(timestamp, route_id, route_data, duration_seconds, distance_meters, avg_speed_kmh)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		snapshot.Timestamp, snapshot.RouteID, rawOrNil(snapshot.RouteData),
		snapshot.DurationS, snapshot.DistanceM, snapshot.AvgSpeedKmh,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save route snapshot: %w", err)
	}

	return nil
}

// LatestSnapshots returns up to limit snapshots for the route, newest first.
// A non-positive limit returns all of them.
func (s *Store) LatestSnapshots(ctx context.Context, routeID string, limit int) ([]domain.RouteSnapshot, error) {
	query := `
		SELECT id, timestamp, route_id, route_data, duration_seconds, distance_meters, avg_speed_kmh
		FROM route_snapshots
		WHERE route_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, routeID, pgLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var results []domain.RouteSnapshot
	for rows.Next() {
		var snap domain.RouteSnapshot
		var routeData []byte
		err := rows.Scan(
			&snap.ID, &snap.Timestamp, &snap.RouteID, &routeData,
			&snap.DurationS, &snap.DistanceM, &snap.AvgSpeedKmh,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan snapshot row: %w", err)
		}
		snap.RouteData = routeData
		results = append(results, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read snapshot rows: %w", err)
	}

	return results, nil
}

// SaveChangeEvent appends one detected change.
func (s *Store) SaveChangeEvent(ctx context.Context, event domain.ChangeEvent) error {
	query := `
		INSERT INTO route_changes
			(timestamp, route_id, change_type, old_value, new_value, percentage_change)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		event.Timestamp, event.RouteID, event.ChangeType,
		event.OldValue, event.NewValue, event.PercentageChange,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save change event: %w", err)
	}

	return nil
}

// ListChangeEvents returns up to limit change events for the route, newest
// first. A non-positive limit returns all of them.
func (s *Store) ListChangeEvents(ctx context.Context, routeID string, limit int) ([]domain.ChangeEvent, error) {
	query := `
		SELECT id, timestamp, route_id, change_type, old_value, new_value, percentage_change
		FROM route_changes
		WHERE route_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, routeID, pgLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query change events: %w", err)
	}
	defer rows.Close()

	var results []domain.ChangeEvent
	for rows.Next() {
		var event domain.ChangeEvent
		err := rows.Scan(
			&event.ID, &event.Timestamp, &event.RouteID, &event.ChangeType,
			&event.OldValue, &event.NewValue, &event.PercentageChange,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan change event row: %w", err)
		}
		results = append(results, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read change event rows: %w", err)
	}

	return results, nil
}

// SaveTrafficBatch stores one raw provider payload.
func (s *Store) SaveTrafficBatch(ctx context.Context, batch domain.TrafficBatch) error {
	query := `
		INSERT INTO traffic_history (timestamp, traffic_data, sample_count)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, batch.Timestamp, rawOrNil(batch.Payload), batch.SampleCount)
	if err != nil {
		return fmt.Errorf("postgres: failed to save traffic batch: %w", err)
	}

	return nil
}

// Health checks database connectivity.
func (s *Store) Health(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

// rawOrNil maps an empty raw message to SQL NULL; JSONB rejects empty input.
func rawOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// pgLimit maps a non-positive limit to NULL, PostgreSQL's "no limit".
func pgLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
