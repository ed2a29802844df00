package domain

import (
	"encoding/json"
	"errors"
)

// ErrInvalidRouteData marks an engine payload that fails structural validation.
var ErrInvalidRouteData = errors.New("domain: invalid route data structure")

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Waypoint is one route endpoint or via point in the engine payload format.
type Waypoint struct {
	Type     string     `json:"waypointType"`
	Name     string     `json:"name"`
	Location Coordinate `json:"location"`
}

// RouteSegment is one named stretch of a route with its own distance and
// duration. Segments are ordered; their sums approximate the route totals.
type RouteSegment struct {
	Name      string  `json:"name"`
	DistanceM float64 `json:"distance_m"`
	DurationS float64 `json:"duration_s"`
}

// Route is the planned route under analysis, reduced to what the matcher and
// estimator need. Always the first candidate route; alternates are ignored.
type Route struct {
	DurationS float64         `json:"duration_s"`
	DistanceM float64         `json:"distance_m"`
	Geometry  json.RawMessage `json:"geometry,omitempty"`
	Segments  []RouteSegment  `json:"segments"`
	Waypoints []Waypoint      `json:"waypoints,omitempty"`

	// Raw holds the engine's first-route object as received, persisted
	// verbatim with snapshots.
	Raw json.RawMessage `json:"-"`
}

// AverageSpeedKmh derives the planned average speed, 0 for a zero duration.
func (r *Route) AverageSpeedKmh() float64 {
	if r.DurationS <= 0 {
		return 0
	}
	return (r.DistanceM / 1000) / (r.DurationS / 3600)
}

// EngineRouteData is the route payload accepted by the analysis API:
// {"resultCode": "Ok", "result": [{"waypoints": [...], "routes": [...]}]}.
// Route objects are kept raw so unknown engine fields survive persistence.
type EngineRouteData struct {
	ResultCode string         `json:"resultCode"`
	Result     []EngineResult `json:"result"`
}

// EngineResult is one result entry of the engine payload.
type EngineResult struct {
	Waypoints []Waypoint        `json:"waypoints"`
	Routes    []json.RawMessage `json:"routes"`
	Code      string            `json:"code,omitempty"`
}

// EngineRoute is the routing engine's route object: totals, geometry, and a
// leg/step breakdown.
type EngineRoute struct {
	Duration   float64         `json:"duration"`
	Distance   float64         `json:"distance"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	Legs       []EngineLeg     `json:"legs,omitempty"`
	WeightName string          `json:"weight_name,omitempty"`
	Weight     float64         `json:"weight,omitempty"`
}

// EngineLeg is one leg of an engine route.
type EngineLeg struct {
	Summary  string       `json:"summary"`
	Duration float64      `json:"duration"`
	Distance float64      `json:"distance"`
	Steps    []EngineStep `json:"steps,omitempty"`
}

// EngineStep is one named maneuver stretch within a leg.
type EngineStep struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
	Distance float64 `json:"distance"`
}

// SegmentBreakdown flattens the leg/step structure into ordered segments.
// Legs without steps contribute one segment named by the leg summary.
func (r EngineRoute) SegmentBreakdown() []RouteSegment {
	var segments []RouteSegment
	for _, leg := range r.Legs {
		if len(leg.Steps) == 0 {
			segments = append(segments, RouteSegment{
				Name:      leg.Summary,
				DistanceM: leg.Distance,
				DurationS: leg.Duration,
			})
			continue
		}
		for _, step := range leg.Steps {
			segments = append(segments, RouteSegment{
				Name:      step.Name,
				DistanceM: step.Distance,
				DurationS: step.Duration,
			})
		}
	}
	return segments
}

// routeDataProbe mirrors the engine payload with pointer fields so missing
// keys are distinguishable from zero values during validation.
type routeDataProbe struct {
	Result []struct {
		Waypoints []struct {
			Location *struct {
				Latitude  *float64 `json:"latitude"`
				Longitude *float64 `json:"longitude"`
			} `json:"location"`
		} `json:"waypoints"`
		Routes []struct {
			Duration *float64 `json:"duration"`
			Distance *float64 `json:"distance"`
		} `json:"routes"`
	} `json:"result"`
}

// ParseEngineRouteData validates and decodes an engine payload. Requirements:
// at least one result entry holding two or more waypoints, each with a
// location carrying latitude and longitude, and at least one route carrying
// duration and distance. Anything else returns ErrInvalidRouteData.
func ParseEngineRouteData(raw json.RawMessage) (*EngineRouteData, error) {
	var probe routeDataProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, ErrInvalidRouteData
	}
	if len(probe.Result) == 0 {
		return nil, ErrInvalidRouteData
	}

	first := probe.Result[0]
	if len(first.Waypoints) < 2 {
		return nil, ErrInvalidRouteData
	}
	for _, waypoint := range first.Waypoints {
		if waypoint.Location == nil || waypoint.Location.Latitude == nil || waypoint.Location.Longitude == nil {
			return nil, ErrInvalidRouteData
		}
	}
	if len(first.Routes) == 0 {
		return nil, ErrInvalidRouteData
	}
	if first.Routes[0].Duration == nil || first.Routes[0].Distance == nil {
		return nil, ErrInvalidRouteData
	}

	var data EngineRouteData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, ErrInvalidRouteData
	}
	return &data, nil
}
