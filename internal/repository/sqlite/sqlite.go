package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/routewatch/backend/internal/domain"
)

// Store implements domain.MonitorRepository on an embedded SQLite database.
// Timestamps are stored as RFC3339Nano strings; JSON payloads as TEXT.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path with WAL mode enabled.
func NewStore(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY between the monitor loop and request handlers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the monitoring tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS route_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			route_id TEXT NOT NULL,
			route_data TEXT,
			duration_seconds REAL NOT NULL,
			distance_meters REAL NOT NULL,
			avg_speed_kmh REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_route_snapshots_route_time
			ON route_snapshots (route_id, timestamp DESC);
		CREATE TABLE IF NOT EXISTS route_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			route_id TEXT NOT NULL,
			change_type TEXT NOT NULL,
			old_value REAL NOT NULL,
			new_value REAL NOT NULL,
			percentage_change REAL
		);
		CREATE INDEX IF NOT EXISTS idx_route_changes_route_time
			ON route_changes (route_id, timestamp DESC);
		CREATE TABLE IF NOT EXISTS traffic_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			traffic_data TEXT,
			sample_count INTEGER NOT NULL DEFAULT 0,
			processed INTEGER NOT NULL DEFAULT 0
		);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: failed to ensure schema: %w", err)
	}
	return nil
}

// SaveRouteSnapshot appends one route snapshot.
func (s *Store) SaveRouteSnapshot(ctx context.Context, snapshot domain.RouteSnapshot) error {
	query := `
		INSERT INTO route_snapshots
			(timestamp, route_id, route_data, duration_seconds, distance_meters, avg_speed_kmh)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		snapshot.Timestamp.Format(time.RFC3339Nano), snapshot.RouteID, textOrNil(snapshot.RouteData),
		snapshot.DurationS, snapshot.DistanceM, snapshot.AvgSpeedKmh,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save route snapshot: %w", err)
	}

	return nil
}

// LatestSnapshots returns up to limit snapshots for the route, newest first.
// A non-positive limit returns all of them.
func (s *Store) LatestSnapshots(ctx context.Context, routeID string, limit int) ([]domain.RouteSnapshot, error) {
	query := `
		SELECT id, timestamp, route_id, route_data, duration_seconds, distance_meters, avg_speed_kmh
		FROM route_snapshots
		WHERE route_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, routeID, sqliteLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var results []domain.RouteSnapshot
	for rows.Next() {
		var snap domain.RouteSnapshot
		var timestamp string
		var routeData sql.NullString
		err := rows.Scan(
			&snap.ID, &timestamp, &snap.RouteID, &routeData,
			&snap.DurationS, &snap.DistanceM, &snap.AvgSpeedKmh,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan snapshot row: %w", err)
		}
		snap.Timestamp = parseTime(timestamp)
		if routeData.Valid {
			snap.RouteData = []byte(routeData.String)
		}
		results = append(results, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to read snapshot rows: %w", err)
	}

	return results, nil
}

// SaveChangeEvent appends one detected change.
func (s *Store) SaveChangeEvent(ctx context.Context, event domain.ChangeEvent) error {
	query := `
		INSERT INTO route_changes
			(timestamp, route_id, change_type, old_value, new_value, percentage_change)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var pct sql.NullFloat64
	if event.PercentageChange != nil {
		pct = sql.NullFloat64{Float64: *event.PercentageChange, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		event.Timestamp.Format(time.RFC3339Nano), event.RouteID, event.ChangeType,
		event.OldValue, event.NewValue, pct,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save change event: %w", err)
	}

	return nil
}

// ListChangeEvents returns up to limit change events for the route, newest
// first. A non-positive limit returns all of them.
func (s *Store) ListChangeEvents(ctx context.Context, routeID string, limit int) ([]domain.ChangeEvent, error) {
	query := `
		SELECT id, timestamp, route_id, change_type, old_value, new_value, percentage_change
		FROM route_changes
		WHERE route_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, routeID, sqliteLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query change events: %w", err)
	}
	defer rows.Close()

	var results []domain.ChangeEvent
	for rows.Next() {
		var event domain.ChangeEvent
		var timestamp string
		var pct sql.NullFloat64
		err := rows.Scan(
			&event.ID, &timestamp, &event.RouteID, &event.ChangeType,
			&event.OldValue, &event.NewValue, &pct,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan change event row: %w", err)
		}
		event.Timestamp = parseTime(timestamp)
		if pct.Valid {
			value := pct.Float64
			event.PercentageChange = &value
		}
		results = append(results, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to read change event rows: %w", err)
	}

	return results, nil
}

// SaveTrafficBatch stores one raw provider payload.
func (s *Store) SaveTrafficBatch(ctx context.Context, batch domain.TrafficBatch) error {
	query := `
		INSERT INTO traffic_history (timestamp, traffic_data, sample_count)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		batch.Timestamp.Format(time.RFC3339Nano), textOrNil(batch.Payload), batch.SampleCount,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save traffic batch: %w", err)
	}

	return nil
}

// Health checks database connectivity.
func (s *Store) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}

func textOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// sqliteLimit maps a non-positive limit to -1, SQLite's "no limit".
func sqliteLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
