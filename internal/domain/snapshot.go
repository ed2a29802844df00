package domain

import (
	"encoding/json"
	"time"
)

// Thresholds a metric must move by between two consecutive snapshots before
// a change event is recorded. Changes at exactly the threshold fire.
const (
	DurationChangeThresholdS = 30.0
	SpeedChangeThresholdKmh  = 2.0
)

// Change types recorded by the tracker.
const (
	ChangeTypeDuration = "duration"
	ChangeTypeAvgSpeed = "avg_speed"
)

// RouteSnapshot is one recorded state of a monitored route. Snapshots are
// append-only; retention is an external concern.
type RouteSnapshot struct {
	ID          int64           `json:"id,omitempty"`
	RouteID     string          `json:"route_id"`
	Timestamp   time.Time       `json:"timestamp"`
	DurationS   float64         `json:"duration_seconds"`
	DistanceM   float64         `json:"distance_meters"`
	AvgSpeedKmh float64         `json:"avg_speed_kmh"`
	RouteData   json.RawMessage `json:"route_data,omitempty"`
}

// NewRouteSnapshot captures a route's key metrics at a point in time.
func NewRouteSnapshot(routeID string, route *Route, at time.Time) RouteSnapshot {
	return RouteSnapshot{
		RouteID:     routeID,
		Timestamp:   at,
		DurationS:   route.DurationS,
		DistanceM:   route.DistanceM,
		AvgSpeedKmh: route.AverageSpeedKmh(),
		RouteData:   route.Raw,
	}
}

// ChangeEvent records a threshold-crossing difference between the two most
// recent snapshots of a route.
type ChangeEvent struct {
	ID         int64   `json:"id,omitempty"`
	RouteID    string  `json:"route_id"`
	ChangeType string  `json:"change_type"`
	OldValue   float64 `json:"old_value"`
	NewValue   float64 `json:"new_value"`
	// PercentageChange is relative to the older value and nil when that
	// value is 0 (the ratio is undefined).
	PercentageChange *float64  `json:"percentage_change"`
	Timestamp        time.Time `json:"timestamp"`
}

// TrafficBatch is one raw provider payload as fetched, kept for reprocessing.
type TrafficBatch struct {
	ID          int64           `json:"id,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Payload     json.RawMessage `json:"traffic_data"`
	SampleCount int             `json:"sample_count"`
	Processed   bool            `json:"processed"`
}
