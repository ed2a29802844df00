package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/routewatch/backend/internal/domain"
)

const engineRouteBody = `{
	"code": "Ok",
	"routes": [
		{
			"duration": 600.3,
			"distance": 9703.7,
			"geometry": {"type": "LineString", "coordinates": [[126.81, 37.57], [126.89, 37.53]]},
			"legs": [
				{
					"summary": "Gonghang-daero",
					"duration": 600.3,
					"distance": 9703.7,
					"steps": [
						{"name": "Magok-ro", "duration": 200.1, "distance": 3100.5},
						{"name": "Gonghang-daero", "duration": 400.2, "distance": 6603.2}
					]
				}
			]
		}
	],
	"waypoints": [
		{"name": "Magok-ro", "location": [126.812902, 37.577833]},
		{"name": "Gonghang-daero", "location": [126.895589, 37.538431]}
	]
}`

func TestFetchRoute(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"overview":    r.URL.Query().Get("overview"),
			"geometries":  r.URL.Query().Get("geometries"),
			"steps":       r.URL.Query().Get("steps"),
			"annotations": r.URL.Query().Get("annotations"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(engineRouteBody))
	}))
	defer server.Close()

	svc := NewRouteService(server.URL)
	route, err := svc.FetchRoute(context.Background(),
		domain.Coordinate{Latitude: 37.577833, Longitude: 126.812902},
		domain.Coordinate{Latitude: 37.538431, Longitude: 126.895589})
	if err != nil {
		t.Fatalf("FetchRoute: %v", err)
	}

	wantPath := "/route/v1/driving/126.812902,37.577833;126.895589,37.538431"
	if gotPath != wantPath {
		t.Errorf("path = %q, want %q", gotPath, wantPath)
	}
	want := map[string]string{"overview": "full", "geometries": "geojson", "steps": "true", "annotations": "true"}
	for key, value := range want {
		if gotQuery[key] != value {
			t.Errorf("query %s = %q, want %q", key, gotQuery[key], value)
		}
	}

	if route.DurationS != 600.3 || route.DistanceM != 9703.7 {
		t.Errorf("route totals = %f s / %f m", route.DurationS, route.DistanceM)
	}
	if len(route.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(route.Segments))
	}
	if route.Segments[0].Name != "Magok-ro" || route.Segments[1].Name != "Gonghang-daero" {
		t.Errorf("segment names = %q, %q", route.Segments[0].Name, route.Segments[1].Name)
	}
	if len(route.Waypoints) != 2 {
		t.Fatalf("waypoints = %d, want 2", len(route.Waypoints))
	}
	if route.Waypoints[0].Type != "break" || route.Waypoints[1].Type != "last" {
		t.Errorf("waypoint types = %q, %q", route.Waypoints[0].Type, route.Waypoints[1].Type)
	}
	if route.Waypoints[0].Location.Latitude != 37.577833 || route.Waypoints[0].Location.Longitude != 126.812902 {
		t.Errorf("waypoint 0 location = %+v", route.Waypoints[0].Location)
	}
	if !strings.Contains(string(route.Geometry), "LineString") {
		t.Errorf("geometry = %s", route.Geometry)
	}

	var raw domain.EngineRoute
	if err := json.Unmarshal(route.Raw, &raw); err != nil {
		t.Fatalf("raw route does not decode: %v", err)
	}
	if raw.Duration != 600.3 {
		t.Errorf("raw duration = %f", raw.Duration)
	}
}

func TestFetchRouteEngineCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code": "NoRoute", "message": "Impossible route between points"}`))
	}))
	defer server.Close()

	svc := NewRouteService(server.URL)
	_, err := svc.FetchRoute(context.Background(), domain.Coordinate{}, domain.Coordinate{})
	if err == nil {
		t.Fatal("expected error for non-Ok engine code")
	}
	if !strings.Contains(err.Error(), "NoRoute") {
		t.Errorf("error = %v, want the engine code mentioned", err)
	}
}

func TestFetchRouteHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewRouteService(server.URL)
	_, err := svc.FetchRoute(context.Background(), domain.Coordinate{}, domain.Coordinate{})
	if err == nil {
		t.Fatal("expected error for HTTP 502")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error = %v, want the status mentioned", err)
	}
}

func TestFetchRouteEmptyRoutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code": "Ok", "routes": [], "waypoints": []}`))
	}))
	defer server.Close()

	svc := NewRouteService(server.URL)
	_, err := svc.FetchRoute(context.Background(), domain.Coordinate{}, domain.Coordinate{})
	if err == nil {
		t.Fatal("expected error for empty route list")
	}
}

func TestRouteFromEngineData(t *testing.T) {
	payload := `{
		"resultCode": "Ok",
		"result": [
			{
				"waypoints": [
					{"waypointType": "break", "name": "A", "location": {"latitude": 37.5, "longitude": 126.8}},
					{"waypointType": "last", "name": "B", "location": {"latitude": 37.4, "longitude": 126.9}}
				],
				"routes": [
					{
						"duration": 450,
						"distance": 7200,
						"legs": [{"summary": "Seongsan-ro", "duration": 450, "distance": 7200}]
					}
				]
			}
		]
	}`
	data, err := domain.ParseEngineRouteData(json.RawMessage(payload))
	if err != nil {
		t.Fatalf("ParseEngineRouteData: %v", err)
	}

	route, err := RouteFromEngineData(data)
	if err != nil {
		t.Fatalf("RouteFromEngineData: %v", err)
	}
	if route.DurationS != 450 || route.DistanceM != 7200 {
		t.Errorf("route totals = %f s / %f m", route.DurationS, route.DistanceM)
	}
	// leg without steps collapses to one summary-named segment
	if len(route.Segments) != 1 || route.Segments[0].Name != "Seongsan-ro" {
		t.Errorf("segments = %+v", route.Segments)
	}
	if len(route.Waypoints) != 2 || route.Waypoints[0].Name != "A" {
		t.Errorf("waypoints = %+v", route.Waypoints)
	}
	if len(route.Raw) == 0 {
		t.Error("raw route not carried through")
	}
}

func TestRouteFromEngineDataNoRoutes(t *testing.T) {
	_, err := RouteFromEngineData(&domain.EngineRouteData{ResultCode: "Ok"})
	if err == nil {
		t.Fatal("expected error for engine data without routes")
	}
}
