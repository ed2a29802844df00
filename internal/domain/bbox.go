package domain

import (
	"encoding/json"

	"github.com/routewatch/backend/pkg/utils"
)

// Buffer widths in degrees applied when deriving a traffic query scope.
// Geometry-derived boxes hug the polyline, endpoint-derived boxes need more
// slack to cover the unknown path between the points.
const (
	GeometryBBoxBuffer = 0.005
	EndpointBBoxBuffer = 0.01
)

// BoundingBox is a lat/lng rectangle scoping a traffic query.
type BoundingBox struct {
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

// Valid reports whether the box spans a non-empty area.
func (b BoundingBox) Valid() bool {
	return b.MinLng < b.MaxLng && b.MinLat < b.MaxLat
}

// geoJSONLine matches the geometry object returned with geometries=geojson.
type geoJSONLine struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// BoundingBoxFromGeometry derives a box from a GeoJSON LineString geometry,
// expanded by buffer degrees. Returns false when the geometry is absent or
// not a coordinate line (e.g. an encoded polyline string).
func BoundingBoxFromGeometry(geometry json.RawMessage, buffer float64) (BoundingBox, bool) {
	if len(geometry) == 0 {
		return BoundingBox{}, false
	}

	var line geoJSONLine
	if err := json.Unmarshal(geometry, &line); err != nil || len(line.Coordinates) == 0 {
		return BoundingBox{}, false
	}

	var minLng, maxLng, minLat, maxLat float64
	seen := false
	for _, pair := range line.Coordinates {
		if len(pair) < 2 {
			continue
		}
		lng, lat := pair[0], pair[1]
		if !seen {
			minLng, maxLng = lng, lng
			minLat, maxLat = lat, lat
			seen = true
			continue
		}
		if lng < minLng {
			minLng = lng
		}
		if lng > maxLng {
			maxLng = lng
		}
		if lat < minLat {
			minLat = lat
		}
		if lat > maxLat {
			maxLat = lat
		}
	}
	if !seen {
		return BoundingBox{}, false
	}

	return newBoundingBox(minLng, maxLng, minLat, maxLat, buffer), true
}

// BoundingBoxFromEndpoints derives a box from just the two route endpoints,
// expanded by buffer degrees. Fallback for routes without usable geometry.
func BoundingBoxFromEndpoints(origin, destination Coordinate, buffer float64) BoundingBox {
	minLng, maxLng := origin.Longitude, destination.Longitude
	if minLng > maxLng {
		minLng, maxLng = maxLng, minLng
	}
	minLat, maxLat := origin.Latitude, destination.Latitude
	if minLat > maxLat {
		minLat, maxLat = maxLat, minLat
	}
	return newBoundingBox(minLng, maxLng, minLat, maxLat, buffer)
}

// RouteBoundingBox picks the traffic query scope for a route: geometry bounds
// when available, endpoint bounds otherwise.
func RouteBoundingBox(route *Route) BoundingBox {
	if box, ok := BoundingBoxFromGeometry(route.Geometry, GeometryBBoxBuffer); ok {
		return box
	}

	var origin, destination Coordinate
	if n := len(route.Waypoints); n > 0 {
		origin = route.Waypoints[0].Location
		destination = route.Waypoints[n-1].Location
	}
	return BoundingBoxFromEndpoints(origin, destination, EndpointBBoxBuffer)
}

func newBoundingBox(minLng, maxLng, minLat, maxLat, buffer float64) BoundingBox {
	return BoundingBox{
		MinLng: utils.Clamp(minLng-buffer, -180, 180),
		MaxLng: utils.Clamp(maxLng+buffer, -180, 180),
		MinLat: utils.Clamp(minLat-buffer, -90, 90),
		MaxLat: utils.Clamp(maxLat+buffer, -90, 90),
	}
}
