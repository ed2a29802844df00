package service

import (
	"context"
	"testing"
	"time"

	"github.com/routewatch/backend/internal/domain"
	"github.com/routewatch/backend/internal/repository/memory"
)

func seedSnapshot(t *testing.T, store *memory.Store, routeID string, at time.Time, durationS, avgSpeedKmh float64) {
	t.Helper()
	err := store.SaveRouteSnapshot(context.Background(), domain.RouteSnapshot{
		RouteID:     routeID,
		Timestamp:   at,
		DurationS:   durationS,
		AvgSpeedKmh: avgSpeedKmh,
	})
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
}

func TestDetectChangesNeedsTwoSnapshots(t *testing.T) {
	store := memory.NewStore()
	tracker := NewChangeTracker(store)
	seedSnapshot(t, store, "r1", time.Now(), 600, 40)

	changes, err := tracker.DetectChanges(context.Background(), "r1")
	if err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("changes = %v, want none with a single snapshot", changes)
	}
}

func TestDetectChangesBelowThreshold(t *testing.T) {
	store := memory.NewStore()
	tracker := NewChangeTracker(store)
	base := time.Now()
	seedSnapshot(t, store, "r1", base, 600, 40)
	seedSnapshot(t, store, "r1", base.Add(time.Minute), 629.9, 41.9)

	changes, err := tracker.DetectChanges(context.Background(), "r1")
	if err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("changes = %v, want none below both thresholds", changes)
	}

	persisted, err := store.ListChangeEvents(context.Background(), "r1", 0)
	if err != nil {
		t.Fatalf("ListChangeEvents: %v", err)
	}
	if len(persisted) != 0 {
		t.Errorf("persisted %d events, want 0", len(persisted))
	}
}

func TestDetectChangesAtThreshold(t *testing.T) {
	store := memory.NewStore()
	tracker := NewChangeTracker(store)
	base := time.Now()
	seedSnapshot(t, store, "r1", base, 600, 40)
	seedSnapshot(t, store, "r1", base.Add(time.Minute), 630, 38)

	changes, err := tracker.DetectChanges(context.Background(), "r1")
	if err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("changes = %v, want exactly one per metric at the threshold", changes)
	}
	if changes[0].ChangeType != domain.ChangeTypeDuration || changes[1].ChangeType != domain.ChangeTypeAvgSpeed {
		t.Errorf("change types = %q, %q", changes[0].ChangeType, changes[1].ChangeType)
	}
}

func TestDetectChangesDurationIncrease(t *testing.T) {
	store := memory.NewStore()
	tracker := NewChangeTracker(store)
	base := time.Now()
	// an old outlier must not take part in the diff
	seedSnapshot(t, store, "r1", base.Add(-time.Hour), 10000, 1)
	seedSnapshot(t, store, "r1", base, 500, 40)
	seedSnapshot(t, store, "r1", base.Add(time.Minute), 560, 40)

	changes, err := tracker.DetectChanges(context.Background(), "r1")
	if err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("changes = %v, want one duration event", changes)
	}
	event := changes[0]
	if event.ChangeType != domain.ChangeTypeDuration {
		t.Errorf("ChangeType = %q", event.ChangeType)
	}
	if event.OldValue != 500 || event.NewValue != 560 {
		t.Errorf("values = %f -> %f, want 500 -> 560", event.OldValue, event.NewValue)
	}
	if event.PercentageChange == nil || !almostEqual(*event.PercentageChange, 12.0) {
		t.Errorf("PercentageChange = %v, want 12.0", event.PercentageChange)
	}

	persisted, err := store.ListChangeEvents(context.Background(), "r1", 0)
	if err != nil {
		t.Fatalf("ListChangeEvents: %v", err)
	}
	if len(persisted) != 1 {
		t.Errorf("persisted %d events, want 1", len(persisted))
	}
}

func TestDetectChangesZeroBaseline(t *testing.T) {
	store := memory.NewStore()
	tracker := NewChangeTracker(store)
	base := time.Now()
	seedSnapshot(t, store, "r1", base, 0, 0)
	seedSnapshot(t, store, "r1", base.Add(time.Minute), 100, 30)

	changes, err := tracker.DetectChanges(context.Background(), "r1")
	if err != nil {
		t.Fatalf("DetectChanges: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("changes = %v, want duration and avg_speed events", changes)
	}
	for _, event := range changes {
		if event.PercentageChange != nil {
			t.Errorf("%s PercentageChange = %f, want nil on a zero baseline",
				event.ChangeType, *event.PercentageChange)
		}
	}
}

func TestRecordSavesSnapshot(t *testing.T) {
	store := memory.NewStore()
	tracker := NewChangeTracker(store)
	route := &domain.Route{DurationS: 600, DistanceM: 10000}

	if err := tracker.Record(context.Background(), "r1", route); err != nil {
		t.Fatalf("Record: %v", err)
	}

	snapshots, err := store.LatestSnapshots(context.Background(), "r1", 0)
	if err != nil {
		t.Fatalf("LatestSnapshots: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snapshots))
	}
	snap := snapshots[0]
	if snap.DurationS != 600 || snap.DistanceM != 10000 {
		t.Errorf("snapshot metrics = %f s / %f m", snap.DurationS, snap.DistanceM)
	}
	if !almostEqual(snap.AvgSpeedKmh, 60) {
		t.Errorf("AvgSpeedKmh = %f, want 60 for 10 km in 10 min", snap.AvgSpeedKmh)
	}
}
