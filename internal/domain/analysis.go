package domain

import "time"

// TrafficEstimate is the estimator's output for one route: the adjusted
// duration, the deltas against the plan, and both classification views.
type TrafficEstimate struct {
	AdjustedDurationS float64 `json:"duration_seconds"`
	TimeDifferenceS   float64 `json:"time_difference_seconds"`
	TimeDifferencePct float64 `json:"time_difference_percent"`
	AvgSpeedKmh       float64 `json:"average_speed_kmh"`
	MinSpeedKmh       float64 `json:"min_speed_kmh"`
	MaxSpeedKmh       float64 `json:"max_speed_kmh"`

	// Matched is the attributed sample multiset. A sample matching several
	// segments appears once per segment. Under the vicinity fallback it
	// holds every fetched sample.
	Matched      []SpeedSample `json:"matched,omitempty"`
	UsedFallback bool          `json:"used_vicinity_fallback,omitempty"`

	TrafficCondition string   `json:"traffic_condition"`
	CongestionLevel  string   `json:"congestion_level"`
	Recommendations  []string `json:"recommendations,omitempty"`
}

// AnalysisResult is the product of one analysis pass. Ephemeral: its parts
// are persisted separately (snapshots, events, raw traffic batches).
type AnalysisResult struct {
	RouteName string          `json:"route_name"`
	Timestamp time.Time       `json:"timestamp"`
	Route     *Route          `json:"route"`
	Samples   []SpeedSample   `json:"samples,omitempty"`
	BBox      BoundingBox     `json:"bbox"`
	Estimate  TrafficEstimate `json:"estimate"`
}
