package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/routewatch/backend/internal/domain"
)

func trafficStub(t *testing.T, body string, gotQuery *map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotQuery != nil {
			query := map[string]string{}
			for key := range r.URL.Query() {
				query[key] = r.URL.Query().Get(key)
			}
			*gotQuery = query
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestFetchSamplesQueryParams(t *testing.T) {
	var gotQuery map[string]string
	server := trafficStub(t, `{"data": []}`, &gotQuery)
	defer server.Close()

	svc := NewTrafficService(server.URL, "secret-key")
	bbox := domain.BoundingBox{MinLng: 126.8, MaxLng: 126.9, MinLat: 37.53, MaxLat: 37.58}
	_, _, err := svc.FetchSamples(context.Background(), bbox)
	if err != nil {
		t.Fatalf("FetchSamples: %v", err)
	}

	want := map[string]string{
		"apiKey":  "secret-key",
		"type":    "all",
		"getType": "json",
		"minX":    "126.8",
		"maxX":    "126.9",
		"minY":    "37.53",
		"maxY":    "37.58",
	}
	for key, value := range want {
		if gotQuery[key] != value {
			t.Errorf("query %s = %q, want %q", key, gotQuery[key], value)
		}
	}
}

func TestFetchSamplesPayloadShapes(t *testing.T) {
	records := `[
		{"linkId": "L1", "roadName": "Mapo-daero", "speed": 42.5, "travelTime": 120, "createdDate": "202508251200"},
		{"link_id": 77, "road_name": "Olympic-daero", "speed_kmh": "35.5", "travel_time": null}
	]`
	wantSamples := []domain.SpeedSample{
		{LinkID: "L1", RoadName: "Mapo-daero", SpeedKmh: 42.5, TravelTimeS: 120, ObservedAt: "202508251200"},
		{LinkID: "77", RoadName: "Olympic-daero", SpeedKmh: 35.5},
	}

	shapes := []struct {
		name string
		body string
	}{
		{"body.items", fmt.Sprintf(`{"body": {"items": %s}}`, records)},
		{"data", fmt.Sprintf(`{"data": %s}`, records)},
		{"response.data", fmt.Sprintf(`{"response": {"data": %s}}`, records)},
		{"result", fmt.Sprintf(`{"result": %s}`, records)},
		{"bare list", records},
	}

	for _, tt := range shapes {
		t.Run(tt.name, func(t *testing.T) {
			server := trafficStub(t, tt.body, nil)
			defer server.Close()

			svc := NewTrafficService(server.URL, "k")
			samples, raw, err := svc.FetchSamples(context.Background(), domain.BoundingBox{})
			if err != nil {
				t.Fatalf("FetchSamples: %v", err)
			}
			if !reflect.DeepEqual(samples, wantSamples) {
				t.Errorf("samples = %+v, want %+v", samples, wantSamples)
			}
			if string(raw) != tt.body {
				t.Errorf("raw body not preserved verbatim")
			}
		})
	}
}

func TestFetchSamplesCoercion(t *testing.T) {
	server := trafficStub(t, `{"data": [
		{"linkId": "L1", "roadName": "Teheran-ro", "speed": "slow", "travelTime": true},
		{"linkId": "L2"}
	]}`, nil)
	defer server.Close()

	svc := NewTrafficService(server.URL, "k")
	samples, _, err := svc.FetchSamples(context.Background(), domain.BoundingBox{})
	if err != nil {
		t.Fatalf("FetchSamples: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(samples))
	}
	if samples[0].SpeedKmh != 0 || samples[0].TravelTimeS != 0 {
		t.Errorf("unparseable numerics = %f / %f, want 0/0", samples[0].SpeedKmh, samples[0].TravelTimeS)
	}
	if samples[1].RoadName != "" || samples[1].SpeedKmh != 0 {
		t.Errorf("absent fields = %q / %f, want empty/0", samples[1].RoadName, samples[1].SpeedKmh)
	}
}

func TestFetchSamplesUnrecognizedShape(t *testing.T) {
	body := `{"totalCount": 12}`
	server := trafficStub(t, body, nil)
	defer server.Close()

	svc := NewTrafficService(server.URL, "k")
	samples, raw, err := svc.FetchSamples(context.Background(), domain.BoundingBox{})
	if err != nil {
		t.Fatalf("FetchSamples: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("samples = %+v, want none for an unknown shape", samples)
	}
	if string(raw) != body {
		t.Errorf("raw = %s, want the body preserved", raw)
	}
}

func TestFetchSamplesMalformedBody(t *testing.T) {
	server := trafficStub(t, `<html>gateway error</html>`, nil)
	defer server.Close()

	svc := NewTrafficService(server.URL, "k")
	_, raw, err := svc.FetchSamples(context.Background(), domain.BoundingBox{})
	if err == nil {
		t.Fatal("expected error for a non-JSON body")
	}
	if len(raw) == 0 {
		t.Error("raw body dropped on decode failure")
	}
}

func TestFetchSamplesProviderStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := NewTrafficService(server.URL, "k")
	_, _, err := svc.FetchSamples(context.Background(), domain.BoundingBox{})
	if err == nil {
		t.Fatal("expected error for HTTP 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want the status mentioned", err)
	}
}
