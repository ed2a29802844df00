package domain

import (
	"context"
)

// MonitorRepository defines the interface for monitoring persistence.
// The domain owns the interface; storage adapters implement it. Every write
// is an independent append, so implementations need no cross-row transactions.
type MonitorRepository interface {
	// SaveRouteSnapshot appends one snapshot to the log.
	SaveRouteSnapshot(ctx context.Context, snapshot RouteSnapshot) error

	// LatestSnapshots returns up to limit snapshots for the route, newest
	// first. A non-positive limit returns all of them.
	LatestSnapshots(ctx context.Context, routeID string, limit int) ([]RouteSnapshot, error)

	// SaveChangeEvent appends one detected change.
	SaveChangeEvent(ctx context.Context, event ChangeEvent) error

	// ListChangeEvents returns up to limit change events for the route,
	// newest first. A non-positive limit returns all of them.
	ListChangeEvents(ctx context.Context, routeID string, limit int) ([]ChangeEvent, error)

	// SaveTrafficBatch stores one raw provider payload.
	SaveTrafficBatch(ctx context.Context, batch TrafficBatch) error

	// Health checks store connectivity.
	Health(ctx context.Context) error
}
