package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/routewatch/backend/internal/domain"
)

// MonitoredRoute is one registry entry. Origin, Destination, and BBox are
// fixed at registration; LastRoute and UpdatedAt are guarded by the
// monitor's lock.
type MonitoredRoute struct {
	RouteID     string
	Origin      domain.Coordinate
	Destination domain.Coordinate
	BBox        domain.BoundingBox
	LastRoute   *domain.Route
	UpdatedAt   time.Time
}

// RouteSummary is the read-only view of a monitored route exposed over the
// API.
type RouteSummary struct {
	RouteID       string             `json:"route_id"`
	Start         domain.Coordinate  `json:"start"`
	End           domain.Coordinate  `json:"end"`
	BBox          domain.BoundingBox `json:"bbox"`
	LastDurationS float64            `json:"last_duration_seconds"`
	LastDistanceM float64            `json:"last_distance_meters"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Monitor owns the set of monitored routes and drives the periodic
// traffic-versus-plan comparison. The registry is constructor-initialized;
// independent monitors do not share state.
type Monitor struct {
	routeSvc   *RouteService
	trafficSvc *TrafficService
	matcher    Matcher
	estimator  *Estimator
	tracker    *ChangeTracker
	repo       MonitorRepository

	mu     sync.RWMutex
	routes map[string]*MonitoredRoute

	wgBg sync.WaitGroup // tracks background saves for graceful shutdown
}

// NewMonitor creates a new route monitor.
func NewMonitor(
	routeSvc *RouteService,
	trafficSvc *TrafficService,
	matcher Matcher,
	estimator *Estimator,
	tracker *ChangeTracker,
	repo MonitorRepository,
) *Monitor {
	return &Monitor{
		routeSvc:   routeSvc,
		trafficSvc: trafficSvc,
		matcher:    matcher,
		estimator:  estimator,
		tracker:    tracker,
		repo:       repo,
		routes:     make(map[string]*MonitoredRoute),
	}
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (m *Monitor) WaitBackground() {
	m.wgBg.Wait()
}

// AddRoute resolves an initial route between the two points, derives a
// traffic query scope from its geometry unless a valid one is supplied,
// registers the route, and records its first snapshot. An empty id gets a
// generated one. Re-adding an existing id replaces the entry.
func (m *Monitor) AddRoute(ctx context.Context, routeID string, origin, destination domain.Coordinate, bbox *domain.BoundingBox) (RouteSummary, error) {
	if routeID == "" {
		routeID = uuid.NewString()
	}

	route, err := m.routeSvc.FetchRoute(ctx, origin, destination)
	if err != nil {
		return RouteSummary{}, fmt.Errorf("monitor: failed to fetch initial route for %s: %w", routeID, err)
	}

	var box domain.BoundingBox
	if bbox != nil && bbox.Valid() {
		box = *bbox
	} else if derived, ok := domain.BoundingBoxFromGeometry(route.Geometry, domain.GeometryBBoxBuffer); ok {
		box = derived
	} else {
		box = domain.BoundingBoxFromEndpoints(origin, destination, domain.EndpointBBoxBuffer)
	}

	entry := &MonitoredRoute{
		RouteID:     routeID,
		Origin:      origin,
		Destination: destination,
		BBox:        box,
		LastRoute:   route,
		UpdatedAt:   time.Now(),
	}

	m.mu.Lock()
	m.routes[routeID] = entry
	m.mu.Unlock()

	if err := m.tracker.Record(ctx, routeID, route); err != nil {
		log.Printf("monitor: route %s: initial snapshot failed: %v", routeID, err)
	}

	log.Printf("monitor: added route %s with bbox %+v", routeID, box)
	return m.summarize(entry), nil
}

// UpdateAll refreshes every monitored route once: current traffic for its
// bbox, a fresh route, a new snapshot, and change detection. A failure on
// one route never aborts the others.
func (m *Monitor) UpdateAll(ctx context.Context) {
	monitored := m.monitored()
	log.Printf("monitor: updating %d routes", len(monitored))

	for _, entry := range monitored {
		m.updateRoute(ctx, entry)
	}
}

func (m *Monitor) updateRoute(ctx context.Context, entry *MonitoredRoute) {
	samples, raw, err := m.trafficSvc.FetchSamples(ctx, entry.BBox)
	if err != nil {
		log.Printf("monitor: route %s: traffic fetch failed: %v", entry.RouteID, err)
		return
	}

	batch := domain.TrafficBatch{Timestamp: time.Now(), Payload: raw, SampleCount: len(samples)}
	if err := m.repo.SaveTrafficBatch(ctx, batch); err != nil {
		log.Printf("monitor: route %s: traffic batch save failed: %v", entry.RouteID, err)
	}

	route, err := m.routeSvc.FetchRoute(ctx, entry.Origin, entry.Destination)
	if err != nil {
		log.Printf("monitor: route %s: route fetch failed: %v", entry.RouteID, err)
		return
	}

	if err := m.tracker.Record(ctx, entry.RouteID, route); err != nil {
		log.Printf("monitor: route %s: %v", entry.RouteID, err)
		return
	}

	changes, err := m.tracker.DetectChanges(ctx, entry.RouteID)
	if err != nil {
		log.Printf("monitor: route %s: %v", entry.RouteID, err)
	}
	for _, change := range changes {
		if change.PercentageChange != nil {
			log.Printf("monitor: route %s: %s changed %.2f -> %.2f (%+.1f%%)",
				entry.RouteID, change.ChangeType, change.OldValue, change.NewValue, *change.PercentageChange)
		} else {
			log.Printf("monitor: route %s: %s changed %.2f -> %.2f",
				entry.RouteID, change.ChangeType, change.OldValue, change.NewValue)
		}
	}

	m.mu.Lock()
	entry.LastRoute = route
	entry.UpdatedAt = time.Now()
	m.mu.Unlock()
}

// Analyze runs one ad-hoc analysis for a route that is not necessarily
// monitored: fetch traffic for the bbox, attribute samples, estimate. The
// registry is not touched. The raw provider payload is persisted in the
// background.
func (m *Monitor) Analyze(ctx context.Context, route *domain.Route, bbox domain.BoundingBox, label string) (*domain.AnalysisResult, error) {
	samples, raw, err := m.trafficSvc.FetchSamples(ctx, bbox)
	if err != nil {
		return nil, fmt.Errorf("monitor: failed to fetch traffic for %s: %w", label, err)
	}

	batch := domain.TrafficBatch{Timestamp: time.Now(), Payload: raw, SampleCount: len(samples)}
	m.wgBg.Add(1)
	go func() {
		defer m.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.repo.SaveTrafficBatch(bgCtx, batch); err != nil {
			log.Printf("monitor: failed to save traffic batch for %s: %v", label, err)
		}
	}()

	match := m.matcher.Match(route, samples)
	estimate := m.estimator.Estimate(route, match)

	return &domain.AnalysisResult{
		RouteName: label,
		Timestamp: time.Now(),
		Route:     route,
		Samples:   samples,
		BBox:      bbox,
		Estimate:  estimate,
	}, nil
}

// Run updates all routes once, then on every interval tick until the
// context is cancelled. Ticks never overlap: each update runs to completion
// in this goroutine before the next is taken.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	log.Printf("monitor: update loop started (every %v)", interval)
	m.UpdateAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.UpdateAll(ctx)
		case <-ctx.Done():
			log.Println("monitor: update loop stopped")
			return
		}
	}
}

// Routes returns summaries of all monitored routes, ordered by id.
func (m *Monitor) Routes() []RouteSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]RouteSummary, 0, len(m.routes))
	for _, entry := range m.routes {
		summaries = append(summaries, m.summarizeLocked(entry))
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].RouteID < summaries[j].RouteID })
	return summaries
}

func (m *Monitor) summarize(entry *MonitoredRoute) RouteSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summarizeLocked(entry)
}

func (m *Monitor) summarizeLocked(entry *MonitoredRoute) RouteSummary {
	summary := RouteSummary{
		RouteID:   entry.RouteID,
		Start:     entry.Origin,
		End:       entry.Destination,
		BBox:      entry.BBox,
		UpdatedAt: entry.UpdatedAt,
	}
	if entry.LastRoute != nil {
		summary.LastDurationS = entry.LastRoute.DurationS
		summary.LastDistanceM = entry.LastRoute.DistanceM
	}
	return summary
}

func (m *Monitor) monitored() []*MonitoredRoute {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*MonitoredRoute, 0, len(m.routes))
	for _, entry := range m.routes {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RouteID < entries[j].RouteID })
	return entries
}

// seedRoute is one entry of the optional routes file: a JSON array of
// {route_id, start, end, bbox?} objects registered at startup.
type seedRoute struct {
	RouteID string              `json:"route_id"`
	Start   domain.Coordinate   `json:"start"`
	End     domain.Coordinate   `json:"end"`
	BBox    *domain.BoundingBox `json:"bbox,omitempty"`
}

// LoadRoutesFile registers every route listed in the JSON file at path.
// Routes that fail to resolve are logged and skipped.
func (m *Monitor) LoadRoutesFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("monitor: failed to read routes file: %w", err)
	}

	var seeds []seedRoute
	if err := json.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("monitor: failed to parse routes file: %w", err)
	}

	added := 0
	for _, seed := range seeds {
		if _, err := m.AddRoute(ctx, seed.RouteID, seed.Start, seed.End, seed.BBox); err != nil {
			log.Printf("monitor: skipping route %q from %s: %v", seed.RouteID, path, err)
			continue
		}
		added++
	}
	log.Printf("monitor: loaded %d of %d routes from %s", added, len(seeds), path)
	return nil
}
