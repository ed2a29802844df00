package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/routewatch/backend/internal/service"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, monitor *service.Monitor, routeSvc *service.RouteService, repo service.MonitorRepository) {
	handler := NewHandler(monitor, routeSvc, repo)

	// Health check
	app.Get("/health", handler.HealthCheck)

	// Analysis endpoints
	app.Post("/analyze-route", handler.AnalyzeRoute)
	app.Post("/analyze-route-simple", handler.AnalyzeRouteSimple)

	// Monitored-route registry
	app.Post("/routes", handler.AddRoute)
	app.Get("/routes", handler.ListRoutes)
	app.Get("/routes/:routeID/changes", handler.RouteChanges)
}
