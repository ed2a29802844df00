package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/routewatch/backend/internal/domain"
)

// RouteService queries the routing engine for planned driving routes.
type RouteService struct {
	baseURL    string
	httpClient *http.Client
}

// NewRouteService creates a new routing engine client.
func NewRouteService(baseURL string) *RouteService {
	return &RouteService{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// engineResponse is the routing engine's top-level answer. Routes are kept
// raw so the first one can be persisted exactly as received.
type engineResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Routes    []json.RawMessage `json:"routes"`
	Waypoints []engineWaypoint  `json:"waypoints"`
}

// engineWaypoint carries its location as a [lng, lat] pair.
type engineWaypoint struct {
	Name     string     `json:"name"`
	Location [2]float64 `json:"location"`
}

// FetchRoute asks the routing engine for a driving route between two points
// and returns the first candidate with full geometry and a step breakdown.
func (s *RouteService) FetchRoute(ctx context.Context, origin, destination domain.Coordinate) (*domain.Route, error) {
	endpoint := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f",
		s.baseURL, origin.Longitude, origin.Latitude, destination.Longitude, destination.Latitude)

	params := url.Values{}
	params.Set("overview", "full")
	params.Set("geometries", "geojson")
	params.Set("steps", "true")
	params.Set("annotations", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("route: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route: failed to reach routing engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("route: routing engine returned status %d", resp.StatusCode)
	}

	var decoded engineResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("route: failed to decode response: %w", err)
	}

	if decoded.Code != "Ok" {
		return nil, fmt.Errorf("route: routing engine returned code %q: %s", decoded.Code, decoded.Message)
	}
	if len(decoded.Routes) == 0 {
		return nil, fmt.Errorf("route: routing engine returned no routes")
	}

	var first domain.EngineRoute
	if err := json.Unmarshal(decoded.Routes[0], &first); err != nil {
		return nil, fmt.Errorf("route: failed to decode route: %w", err)
	}

	return &domain.Route{
		DurationS: first.Duration,
		DistanceM: first.Distance,
		Geometry:  first.Geometry,
		Segments:  first.SegmentBreakdown(),
		Waypoints: waypointsFromEngine(decoded.Waypoints),
		Raw:       decoded.Routes[0],
	}, nil
}

// RouteFromEngineData maps an externally supplied, already validated engine
// payload onto a Route. Only the first result and first route are used.
func RouteFromEngineData(data *domain.EngineRouteData) (*domain.Route, error) {
	if len(data.Result) == 0 || len(data.Result[0].Routes) == 0 {
		return nil, fmt.Errorf("route: engine data carries no routes")
	}

	result := data.Result[0]
	var first domain.EngineRoute
	if err := json.Unmarshal(result.Routes[0], &first); err != nil {
		return nil, fmt.Errorf("route: failed to decode route: %w", err)
	}

	return &domain.Route{
		DurationS: first.Duration,
		DistanceM: first.Distance,
		Geometry:  first.Geometry,
		Segments:  first.SegmentBreakdown(),
		Waypoints: result.Waypoints,
		Raw:       result.Routes[0],
	}, nil
}

func waypointsFromEngine(waypoints []engineWaypoint) []domain.Waypoint {
	out := make([]domain.Waypoint, 0, len(waypoints))
	for i, wp := range waypoints {
		wpType := "via"
		switch i {
		case 0:
			wpType = "break"
		case len(waypoints) - 1:
			wpType = "last"
		}
		out = append(out, domain.Waypoint{
			Type: wpType,
			Name: wp.Name,
			Location: domain.Coordinate{
				Latitude:  wp.Location[1],
				Longitude: wp.Location[0],
			},
		})
	}
	return out
}
