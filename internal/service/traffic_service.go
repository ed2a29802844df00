package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/routewatch/backend/internal/domain"
)

// TrafficService queries the traffic provider for road-link speed samples
// inside a bounding box.
type TrafficService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewTrafficService creates a new traffic provider client.
func NewTrafficService(baseURL, apiKey string) *TrafficService {
	return &TrafficService{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchSamples issues one bbox query and normalizes the provider payload
// into flat speed samples. The raw body is returned alongside so callers can
// persist it verbatim. Single best-effort call: no retry, no pagination.
func (s *TrafficService) FetchSamples(ctx context.Context, bbox domain.BoundingBox) ([]domain.SpeedSample, json.RawMessage, error) {
	params := url.Values{}
	params.Set("apiKey", s.apiKey)
	params.Set("type", "all")
	params.Set("getType", "json")
	params.Set("minX", formatCoord(bbox.MinLng))
	params.Set("maxX", formatCoord(bbox.MaxLng))
	params.Set("minY", formatCoord(bbox.MinLat))
	params.Set("maxY", formatCoord(bbox.MaxLat))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("traffic: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("traffic: failed to reach provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("traffic: provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("traffic: failed to read response: %w", err)
	}

	samples, err := normalizeSamples(body)
	if err != nil {
		return nil, body, fmt.Errorf("traffic: failed to decode response: %w", err)
	}
	return samples, body, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// shapeDetector extracts the record list from one known payload layout.
// Detectors run in order and the first hit wins; supporting another provider
// variant means appending one more entry.
type shapeDetector struct {
	name    string
	extract func(payload any) ([]any, bool)
}

var shapeDetectors = []shapeDetector{
	{"body.items", func(payload any) ([]any, bool) {
		obj, ok := payload.(map[string]any)
		if !ok {
			return nil, false
		}
		body, ok := obj["body"].(map[string]any)
		if !ok {
			return nil, false
		}
		return asList(body["items"])
	}},
	{"data", func(payload any) ([]any, bool) {
		obj, ok := payload.(map[string]any)
		if !ok {
			return nil, false
		}
		return asList(obj["data"])
	}},
	{"response.data", func(payload any) ([]any, bool) {
		obj, ok := payload.(map[string]any)
		if !ok {
			return nil, false
		}
		response, ok := obj["response"].(map[string]any)
		if !ok {
			return nil, false
		}
		return asList(response["data"])
	}},
	{"result", func(payload any) ([]any, bool) {
		obj, ok := payload.(map[string]any)
		if !ok {
			return nil, false
		}
		return asList(obj["result"])
	}},
	{"bare list", func(payload any) ([]any, bool) {
		return asList(payload)
	}},
}

func asList(v any) ([]any, bool) {
	list, ok := v.([]any)
	return list, ok
}

// normalizeSamples flattens any of the known provider payload shapes into
// speed samples. A record's missing or unparseable numeric fields coerce to
// 0; a bad record never fails the batch. An unrecognized shape yields zero
// samples rather than an error.
func normalizeSamples(payload []byte) ([]domain.SpeedSample, error) {
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, err
	}

	for _, detector := range shapeDetectors {
		items, ok := detector.extract(decoded)
		if !ok {
			continue
		}

		samples := make([]domain.SpeedSample, 0, len(items))
		for _, item := range items {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}
			samples = append(samples, domain.SpeedSample{
				LinkID:      pickString(record, "linkId", "link_id"),
				RoadName:    pickString(record, "roadName", "road_name"),
				SpeedKmh:    pickFloat(record, "speed", "speed_kmh"),
				TravelTimeS: pickFloat(record, "travelTime", "travel_time"),
				ObservedAt:  pickString(record, "createdDate", "created_date", "observed_at"),
			})
		}
		return samples, nil
	}

	return nil, nil
}

// pickString returns the first present key as a string; numeric values are
// formatted (link ids arrive as numbers from some deployments).
func pickString(record map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := record[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// pickFloat returns the first present key coerced to a float; null, absent,
// or unparseable values become 0.
func pickFloat(record map[string]any, keys ...string) float64 {
	for _, key := range keys {
		v, ok := record[key]
		if !ok || v == nil {
			continue
		}
		return coerceFloat(v)
	}
	return 0
}

func coerceFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
