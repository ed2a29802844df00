package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/routewatch/backend/internal/domain"
)

// Store implements domain.MonitorRepository in memory. It backs tests and
// the no-database mode; contents vanish with the process.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	snapshots []domain.RouteSnapshot
	changes   []domain.ChangeEvent
	batches   []domain.TrafficBatch
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// SaveRouteSnapshot appends one route snapshot.
func (s *Store) SaveRouteSnapshot(ctx context.Context, snapshot domain.RouteSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	snapshot.ID = s.nextID
	s.snapshots = append(s.snapshots, snapshot)
	return nil
}

// LatestSnapshots returns up to limit snapshots for the route, newest first.
// Ties on timestamp order by insertion, newest first.
func (s *Store) LatestSnapshots(ctx context.Context, routeID string, limit int) ([]domain.RouteSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.RouteSnapshot
	for _, snap := range s.snapshots {
		if snap.RouteID == routeID {
			results = append(results, snap)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].Timestamp.Equal(results[j].Timestamp) {
			return results[i].Timestamp.After(results[j].Timestamp)
		}
		return results[i].ID > results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SaveChangeEvent appends one detected change.
func (s *Store) SaveChangeEvent(ctx context.Context, event domain.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	event.ID = s.nextID
	s.changes = append(s.changes, event)
	return nil
}

// ListChangeEvents returns up to limit change events for the route, newest
// first.
func (s *Store) ListChangeEvents(ctx context.Context, routeID string, limit int) ([]domain.ChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.ChangeEvent
	for _, event := range s.changes {
		if event.RouteID == routeID {
			results = append(results, event)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].Timestamp.Equal(results[j].Timestamp) {
			return results[i].Timestamp.After(results[j].Timestamp)
		}
		return results[i].ID > results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SaveTrafficBatch stores one raw provider payload.
func (s *Store) SaveTrafficBatch(ctx context.Context, batch domain.TrafficBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	batch.ID = s.nextID
	s.batches = append(s.batches, batch)
	return nil
}

// TrafficBatches returns all stored batches in insertion order.
func (s *Store) TrafficBatches() []domain.TrafficBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.TrafficBatch(nil), s.batches...)
}

// Health always succeeds.
func (s *Store) Health(ctx context.Context) error {
	return nil
}
