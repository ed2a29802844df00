package http

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/routewatch/backend/internal/domain"
	"github.com/routewatch/backend/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	monitor  *service.Monitor
	routeSvc *service.RouteService
	repo     service.MonitorRepository
}

// NewHandler creates a new handler
func NewHandler(monitor *service.Monitor, routeSvc *service.RouteService, repo service.MonitorRepository) *Handler {
	return &Handler{
		monitor:  monitor,
		routeSvc: routeSvc,
		repo:     repo,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "traffic-route-monitor",
	})
}

type analyzeRouteRequest struct {
	RouteName string          `json:"route_name"`
	RouteData json.RawMessage `json:"route_data"`
}

// AnalyzeRoute analyzes traffic for a caller-supplied routing engine payload
func (h *Handler) AnalyzeRoute(c *fiber.Ctx) error {
	var req analyzeRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "No JSON data provided")
	}
	if len(req.RouteData) == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "route_data is required")
	}

	data, err := domain.ParseEngineRouteData(req.RouteData)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":           "Invalid route_data structure",
			"status":          "error",
			"expected_format": expectedRouteDataFormat(),
		})
	}

	name := req.RouteName
	if name == "" {
		name = "route_" + time.Now().Format("20060102_150405")
	}

	route, err := service.RouteFromEngineData(data)
	if err != nil {
		return analysisError(c, name)
	}

	result, err := h.monitor.Analyze(c.Context(), route, domain.RouteBoundingBox(route), name)
	if err != nil {
		return analysisError(c, name)
	}

	return c.JSON(fiber.Map{
		"status":     "success",
		"route_name": name,
		"timestamp":  result.Timestamp.Format(time.RFC3339),
		"analysis": fiber.Map{
			"original_route": fiber.Map{
				"duration_seconds":  route.DurationS,
				"distance_meters":   route.DistanceM,
				"average_speed_kmh": route.AverageSpeedKmh(),
			},
			"traffic_data": fiber.Map{
				"segments_analyzed": len(result.Estimate.Matched),
				"bbox_used":         result.BBox,
			},
		},
		"traffic_adjusted_route":                 trafficAdjustedRoute(result),
		"traffic_adjusted_route_original_format": originalFormatRoute(result),
		"recommendations":                        result.Estimate.Recommendations,
	})
}

type simpleWaypoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}

type analyzeSimpleRequest struct {
	RouteName string           `json:"route_name"`
	Waypoints []simpleWaypoint `json:"waypoints"`
}

// AnalyzeRouteSimple resolves a route between the given waypoints and
// returns a reduced analysis payload
func (h *Handler) AnalyzeRouteSimple(c *fiber.Ctx) error {
	var req analyzeSimpleRequest
	if err := c.BodyParser(&req); err != nil || len(req.Waypoints) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":           "waypoints array is required",
			"status":          "error",
			"expected_format": expectedWaypointsFormat(),
		})
	}
	if len(req.Waypoints) < 2 {
		return errorJSON(c, fiber.StatusBadRequest, "At least 2 waypoints are required")
	}

	name := req.RouteName
	if name == "" {
		name = "simple_route_" + time.Now().Format("20060102_150405")
	}

	first := req.Waypoints[0]
	last := req.Waypoints[len(req.Waypoints)-1]
	origin := domain.Coordinate{Latitude: first.Latitude, Longitude: first.Longitude}
	destination := domain.Coordinate{Latitude: last.Latitude, Longitude: last.Longitude}

	ctx := c.Context()
	route, err := h.routeSvc.FetchRoute(ctx, origin, destination)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Could not calculate route between waypoints")
	}

	result, err := h.monitor.Analyze(ctx, route, domain.RouteBoundingBox(route), name)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to analyze route traffic")
	}

	return c.JSON(fiber.Map{
		"status":                    "success",
		"route_name":                name,
		"original_duration_seconds": route.DurationS,
		"original_distance_meters":  route.DistanceM,
		"traffic_segments_found":    len(result.Estimate.Matched),
		"traffic_adjusted_route":    simpleAdjustedRoute(result),
		"traffic_adjusted_route_original_format": originalFormatRoute(result),
	})
}

type addRouteRequest struct {
	RouteID string              `json:"route_id"`
	Start   *domain.Coordinate  `json:"start"`
	End     *domain.Coordinate  `json:"end"`
	BBox    *domain.BoundingBox `json:"bbox"`
}

// AddRoute registers a route with the monitor
func (h *Handler) AddRoute(c *fiber.Ctx) error {
	var req addRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "No JSON data provided")
	}
	if req.Start == nil || req.End == nil {
		return errorJSON(c, fiber.StatusBadRequest, "start and end coordinates are required")
	}

	summary, err := h.monitor.AddRoute(c.Context(), req.RouteID, *req.Start, *req.End, req.BBox)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to resolve route between start and end")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":   "success",
		"route_id": summary.RouteID,
		"bbox":     summary.BBox,
	})
}

// ListRoutes returns summaries of all monitored routes
func (h *Handler) ListRoutes(c *fiber.Ctx) error {
	routes := h.monitor.Routes()
	return c.JSON(fiber.Map{
		"status": "success",
		"count":  len(routes),
		"routes": routes,
	})
}

// RouteChanges returns recorded change events for one route
func (h *Handler) RouteChanges(c *fiber.Ctx) error {
	routeID := c.Params("routeID")

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	changes, err := h.repo.ListChangeEvents(c.Context(), routeID, limit)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to fetch route changes")
	}
	if changes == nil {
		changes = []domain.ChangeEvent{}
	}

	return c.JSON(fiber.Map{
		"status":   "success",
		"route_id": routeID,
		"count":    len(changes),
		"changes":  changes,
	})
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":  message,
		"status": "error",
	})
}

func analysisError(c *fiber.Ctx, routeName string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":      "Failed to analyze route traffic",
		"status":     "error",
		"route_name": routeName,
	})
}

// trafficAdjustedRoute is the full adjusted-route block, null when nothing
// matched.
func trafficAdjustedRoute(result *domain.AnalysisResult) fiber.Map {
	est := result.Estimate
	if len(est.Matched) == 0 {
		return nil
	}
	return fiber.Map{
		"duration_seconds":        est.AdjustedDurationS,
		"distance_meters":         result.Route.DistanceM,
		"average_speed_kmh":       est.AvgSpeedKmh,
		"time_difference_seconds": est.TimeDifferenceS,
		"time_difference_percent": est.TimeDifferencePct,
		"traffic_segments":        len(est.Matched),
		"speed_range": fiber.Map{
			"min_kmh": est.MinSpeedKmh,
			"max_kmh": est.MaxSpeedKmh,
		},
	}
}

// simpleAdjustedRoute is the reduced adjusted-route block for the simple
// endpoint; without matches it reports the plan unchanged under no_data.
func simpleAdjustedRoute(result *domain.AnalysisResult) fiber.Map {
	est := result.Estimate
	if len(est.Matched) == 0 {
		return fiber.Map{
			"duration_seconds":        result.Route.DurationS,
			"time_difference_seconds": 0,
			"traffic_condition":       domain.ConditionNoData,
		}
	}
	return fiber.Map{
		"duration_seconds":        est.AdjustedDurationS,
		"time_difference_seconds": est.TimeDifferenceS,
		"time_difference_minutes": est.TimeDifferenceS / 60,
		"traffic_condition":       est.TrafficCondition,
		"average_speed_kmh":       est.AvgSpeedKmh,
	}
}

// originalFormatRoute rebuilds the routing engine envelope around the
// adjusted totals, with adjustment metadata alongside.
func originalFormatRoute(result *domain.AnalysisResult) fiber.Map {
	route := result.Route
	est := result.Estimate

	waypoints := route.Waypoints
	if len(waypoints) == 0 {
		waypoints = []domain.Waypoint{
			{Type: "break", Name: "Start Location"},
			{Type: "last", Name: "End Location"},
		}
	}

	var geometry any = ""
	if len(route.Geometry) > 0 {
		geometry = route.Geometry
	}

	return fiber.Map{
		"resultCode": "Ok",
		"result": []fiber.Map{{
			"waypoints": waypoints,
			"routes": []fiber.Map{{
				"weight_name": "",
				"weight":      0,
				"legs": []fiber.Map{{
					"summary":  "Traffic-adjusted route",
					"steps":    []fiber.Map{},
					"duration": est.AdjustedDurationS,
					"distance": route.DistanceM,
				}},
				"geometry": geometry,
				"duration": est.AdjustedDurationS,
				"distance": route.DistanceM,
			}},
			"code": "Ok",
		}},
		"traffic_metadata": fiber.Map{
			"original_duration":         route.DurationS,
			"traffic_adjusted_duration": est.AdjustedDurationS,
			"time_difference_seconds":   est.TimeDifferenceS,
			"time_difference_percent":   est.TimeDifferencePct,
			"traffic_segments_used":     len(est.Matched),
			"average_traffic_speed_kmh": est.AvgSpeedKmh,
			"timestamp":                 result.Timestamp.Format(time.RFC3339),
		},
	}
}

func expectedRouteDataFormat() fiber.Map {
	return fiber.Map{
		"resultCode": "Ok",
		"result": []fiber.Map{{
			"waypoints": []fiber.Map{{
				"waypointType": "break|last",
				"name":         "location_name",
				"location": fiber.Map{
					"longitude": 126.812902,
					"latitude":  37.577833,
				},
			}},
			"routes": []fiber.Map{{
				"legs":     []fiber.Map{},
				"geometry": "...",
				"duration": 600.3,
				"distance": 9703.7,
			}},
		}},
	}
}

func expectedWaypointsFormat() fiber.Map {
	return fiber.Map{
		"waypoints": []fiber.Map{
			{
				"latitude":  37.577833,
				"longitude": 126.812902,
				"name":      "Start Location",
			},
			{
				"latitude":  37.538431,
				"longitude": 126.895589,
				"name":      "End Location",
			},
		},
	}
}
