package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/graph"
	"github.com/smartcity/trafficsim/internal/orchestrator"
	"github.com/smartcity/trafficsim/internal/service"
	"github.com/smartcity/trafficsim/internal/stream"
)

const (
	defaultDurationMinutes = 60
	defaultRadiusKm        = 3.0
)

// Handler contains all HTTP handlers for the simulation service.
type Handler struct {
	orch      *orchestrator.Orchestrator
	markerSvc *service.MarkerService
	resultSvc *service.ResultService
	analysis  *service.AnalysisBridge
	repo      domain.DataRepository
}

// NewHandler creates a new handler.
func NewHandler(orch *orchestrator.Orchestrator, markerSvc *service.MarkerService, resultSvc *service.ResultService, analysis *service.AnalysisBridge, repo domain.DataRepository) *Handler {
	return &Handler{orch: orch, markerSvc: markerSvc, resultSvc: resultSvc, analysis: analysis, repo: repo}
}

// HealthCheck returns service health status.
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	ctx := c.Context()
	status := "ok"
	if err := h.repo.Health(ctx); err != nil {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status":  status,
		"service": "trafficsim-backend",
		"version": "1.0.0",
	})
}

type createMarkerRequest struct {
	Type        domain.MarkerType `json:"type"`
	Coordinates [2]float64        `json:"coordinates"`
}

// CreateMarker handles POST /markers.
func (h *Handler) CreateMarker(c *fiber.Ctx) error {
	var req createMarkerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	coord := domain.Coordinate{req.Coordinates[0], req.Coordinates[1]}
	m, err := h.markerSvc.Create(c.Context(), req.Type, coord)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidMarker) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid marker")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to save marker")
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

// ListMarkers handles GET /markers.
func (h *Handler) ListMarkers(c *fiber.Ctx) error {
	markers, err := h.markerSvc.List(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to list markers")
	}
	return c.JSON(markers)
}

// ClearMarkers handles DELETE /markers.
func (h *Handler) ClearMarkers(c *fiber.Ctx) error {
	if err := h.markerSvc.Clear(c.Context()); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to clear markers")
	}
	return c.JSON(fiber.Map{"message": "markers cleared"})
}

type simulateRequest struct {
	Duration int     `json:"duration"`
	Radius   float64 `json:"radius"`
}

type simulateResponse struct {
	Metrics         domain.FinalMetrics `json:"metrics"`
	AISummary       string              `json:"ai_summary"`
	RiskAssessment  string              `json:"risk_assessment"`
	Recommendations []string            `json:"recommendations"`
}

// Simulate handles POST /simulate: runs one full simulation synchronously
// and returns its metrics plus a narrative analysis.
func (h *Handler) Simulate(c *fiber.Ctx) error {
	ctx := c.Context()
	var req simulateRequest
	_ = c.BodyParser(&req) // absent/malformed body falls through to defaults
	duration, radius := simulationParams(req.Duration, req.Radius)

	markers, err := h.markerSvc.List(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load markers")
	}

	result, err := h.orch.Run(ctx, markers, duration, radius, nil)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyInput) {
			return fiber.NewError(fiber.StatusBadRequest, "No markers placed for simulation")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Simulation failed")
	}

	analysis, err := h.analysis.Analyze(ctx, domain.AnalysisRequest{Metrics: result.Metrics, Markers: markers})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Analysis failed")
	}
	result.Analysis = analysis

	h.resultSvc.SaveAsync(result)

	return c.JSON(simulateResponse{
		Metrics:         result.Metrics,
		AISummary:       analysis.AISummary,
		RiskAssessment:  analysis.RiskAssessment,
		Recommendations: analysis.Recommendations,
	})
}

// StreamSimulate handles GET /simulate/stream: runs one simulation while
// pushing status lines and a final complete frame over SSE.
func (h *Handler) StreamSimulate(c *fiber.Ctx) error {
	return h.serveSSE(c, func(e stream.Event) interface{} {
		if e.Type == stream.EventLiveData {
			return nil // /simulate/stream omits the high-frequency live_data frames
		}
		return e.Frame()
	})
}

// LiveSimulate handles GET /simulate/live: runs one simulation streaming
// every tagged frame, including the high-frequency live_data ticks.
func (h *Handler) LiveSimulate(c *fiber.Ctx) error {
	return h.serveSSE(c, func(e stream.Event) interface{} {
		return e.Frame()
	})
}

// serveSSE wires up a hub-backed orchestrator run and streams its events
// as `data: <json>\n\n` SSE frames, each shaped by frame. frame
// returning nil skips that event.
func (h *Handler) serveSSE(c *fiber.Ctx, frame func(stream.Event) interface{}) error {
	ctx := c.Context()
	duration, radius := simulationParams(c.QueryInt("duration", 0), c.QueryFloat("radius", 0))

	markers, err := h.markerSvc.List(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load markers")
	}

	hub := stream.New()
	streamCtx, cancel := context.WithCancel(context.Background())
	events := hub.Subscribe(streamCtx)

	// The run itself is detached from the request context: fasthttp may
	// recycle c.Context() once the handler returns, but the body stream
	// writer below keeps running past that point.
	go func() {
		result, runErr := h.orch.Run(context.Background(), markers, duration, radius, hub)
		if runErr == nil {
			h.resultSvc.SaveAsync(result)
		}
	}()

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for e := range events {
			body := frame(e)
			if body == nil {
				continue
			}
			encoded, marshalErr := json.Marshal(body)
			if marshalErr != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", encoded)
			if flushErr := w.Flush(); flushErr != nil {
				return
			}
		}
	})
	return nil
}

// ListSimulations handles GET /simulations?hours=.
func (h *Handler) ListSimulations(c *fiber.Ctx) error {
	hoursStr := c.Query("hours", "")
	hours, _ := strconv.Atoi(hoursStr)
	results, err := h.resultSvc.List(c.Context(), hours)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to list simulation results")
	}
	return c.JSON(fiber.Map{"results": results, "count": len(results)})
}

// DebugGraph handles GET /debug/graph: dumps the most recently built road
// graph as GeoJSON, for local inspection.
func (h *Handler) DebugGraph(c *fiber.Ctx) error {
	g := h.orch.LastGraph()
	if g == nil {
		return fiber.NewError(fiber.StatusNotFound, "No simulation has run yet")
	}
	return c.JSON(graph.ExportGeoJSON(g))
}

func simulationParams(duration int, radius float64) (int, float64) {
	if duration <= 0 {
		duration = defaultDurationMinutes
	}
	if radius <= 0 {
		radius = defaultRadiusKm
	}
	return duration, radius
}
