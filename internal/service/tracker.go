package service

import (
	"context"
	"fmt"
	"time"

	"github.com/routewatch/backend/internal/domain"
)

// ChangeTracker records route snapshots and flags threshold-crossing shifts
// between the two most recent ones.
type ChangeTracker struct {
	repo MonitorRepository
}

// NewChangeTracker creates a new change tracker.
func NewChangeTracker(repo MonitorRepository) *ChangeTracker {
	return &ChangeTracker{repo: repo}
}

// Record appends a snapshot of the route's current metrics.
func (t *ChangeTracker) Record(ctx context.Context, routeID string, route *domain.Route) error {
	snapshot := domain.NewRouteSnapshot(routeID, route, time.Now())
	if err := t.repo.SaveRouteSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("tracker: failed to save snapshot: %w", err)
	}
	return nil
}

// DetectChanges diffs the two most recent snapshots for the route and
// returns one persisted event per metric that moved by at least its
// threshold. Fewer than two snapshots yields no events and no error.
func (t *ChangeTracker) DetectChanges(ctx context.Context, routeID string) ([]domain.ChangeEvent, error) {
	snapshots, err := t.repo.LatestSnapshots(ctx, routeID, 2)
	if err != nil {
		return nil, fmt.Errorf("tracker: failed to load snapshots: %w", err)
	}
	if len(snapshots) < 2 {
		return nil, nil
	}

	current, previous := snapshots[0], snapshots[1]
	now := time.Now()

	var changes []domain.ChangeEvent
	if event, ok := diffMetric(routeID, domain.ChangeTypeDuration,
		previous.DurationS, current.DurationS, domain.DurationChangeThresholdS, now); ok {
		changes = append(changes, event)
	}
	if event, ok := diffMetric(routeID, domain.ChangeTypeAvgSpeed,
		previous.AvgSpeedKmh, current.AvgSpeedKmh, domain.SpeedChangeThresholdKmh, now); ok {
		changes = append(changes, event)
	}

	for _, event := range changes {
		if err := t.repo.SaveChangeEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("tracker: failed to save change event: %w", err)
		}
	}
	return changes, nil
}

// diffMetric builds a change event when the metric moved by at least the
// threshold. The percentage is relative to the older value and left nil when
// that value is 0, where the ratio is undefined.
func diffMetric(routeID, changeType string, oldValue, newValue, threshold float64, at time.Time) (domain.ChangeEvent, bool) {
	delta := newValue - oldValue
	if delta < 0 {
		delta = -delta
	}
	if delta < threshold {
		return domain.ChangeEvent{}, false
	}

	event := domain.ChangeEvent{
		RouteID:    routeID,
		ChangeType: changeType,
		OldValue:   oldValue,
		NewValue:   newValue,
		Timestamp:  at,
	}
	if oldValue != 0 {
		pct := (newValue - oldValue) / oldValue * 100
		event.PercentageChange = &pct
	}
	return event, true
}
