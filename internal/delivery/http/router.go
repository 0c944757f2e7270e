package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures every HTTP route the service exposes.
func SetupRoutes(app *fiber.App, handler *Handler) {
	app.Get("/health", handler.HealthCheck)

	app.Get("/markers", handler.ListMarkers)
	app.Post("/markers", handler.CreateMarker)
	app.Delete("/markers", handler.ClearMarkers)

	app.Post("/simulate", handler.Simulate)
	app.Get("/simulate/stream", handler.StreamSimulate)
	app.Get("/simulate/live", handler.LiveSimulate)

	app.Get("/simulations", handler.ListSimulations)
	app.Get("/debug/graph", handler.DebugGraph)
}
