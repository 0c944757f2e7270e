package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/geo"
	"github.com/smartcity/trafficsim/internal/orchestrator"
	"github.com/smartcity/trafficsim/internal/providers"
	"github.com/smartcity/trafficsim/internal/repository/postgres"
	"github.com/smartcity/trafficsim/internal/service"
)

type stubRoadProvider struct{ data providers.NetworkData }

func (s stubRoadProvider) FetchRoadNetwork(ctx context.Context, center domain.Coordinate, radiusKm float64) (providers.NetworkData, error) {
	return s.data, nil
}

type stubTrafficProvider struct{}

func (stubTrafficProvider) FetchTraffic(ctx context.Context, bbox geo.BBox) (domain.TrafficSnapshot, error) {
	return domain.TrafficSnapshot{CongestionLevel: domain.CongestionLow, IsFallback: true}, nil
}

type stubPopulationProvider struct{}

func (stubPopulationProvider) FetchPopulation(ctx context.Context, bbox geo.BBox) (domain.PopulationData, error) {
	return domain.PopulationData{
		Total: 1000, DensityPerKm2: 500, EstimatedVehicles: 20,
		PeakHourFactor: 1.0, Source: domain.PopulationEstimate,
	}, nil
}

func gridRoads() []domain.Road {
	var roads []domain.Road
	for i := 0; i < 6; i++ {
		lng0 := float64(i) * 0.01
		lng1 := float64(i+1) * 0.01
		roads = append(roads, domain.Road{
			ID:       string(rune('a' + i)),
			NodeIDs:  []int64{int64(i + 1), int64(i + 2)},
			Tags:     map[string]string{"highway": "primary"},
			Geometry: []domain.Coordinate{{lng0, 0}, {lng1, 0}},
		})
	}
	return roads
}

func newTestApp() *fiber.App {
	repo := postgres.NewMockRepository()
	orch := orchestrator.New(
		stubRoadProvider{data: providers.NetworkData{Roads: gridRoads()}},
		stubTrafficProvider{},
		stubPopulationProvider{},
		rand.New(rand.NewSource(7)),
	)
	handler := NewHandler(
		orch,
		service.NewMarkerService(repo),
		service.NewResultService(repo),
		service.NewAnalysisBridge(""),
		repo,
	)

	app := fiber.New()
	SetupRoutes(app, handler)
	return app
}

func decodeJSON(t *testing.T, body io.Reader, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestSimulateWithoutMarkersReturns400(t *testing.T) {
	app := newTestApp()
	resp, err := app.Test(httptest.NewRequest("POST", "/simulate", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 with no markers, got %d", resp.StatusCode)
	}
}

func TestCreateListClearMarkers(t *testing.T) {
	app := newTestApp()

	createBody, _ := json.Marshal(map[string]interface{}{
		"type":        "construction",
		"coordinates": [2]float64{0.0, 0.0},
	})
	req := httptest.NewRequest("POST", "/markers", bytes.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created domain.Marker
	decodeJSON(t, resp.Body, &created)
	if created.ID == "" {
		t.Fatal("expected a generated marker id")
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/markers", nil))
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	var markers []domain.Marker
	decodeJSON(t, resp.Body, &markers)
	if len(markers) != 1 {
		t.Fatalf("expected one marker, got %d", len(markers))
	}

	resp, err = app.Test(httptest.NewRequest("DELETE", "/markers", nil))
	if err != nil {
		t.Fatalf("clear request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 clearing markers, got %d", resp.StatusCode)
	}
}

func TestSimulateRunsWithAMarkerPresent(t *testing.T) {
	app := newTestApp()

	createBody, _ := json.Marshal(map[string]interface{}{
		"type":        "facility",
		"coordinates": [2]float64{0.005, 0.0},
	})
	req := httptest.NewRequest("POST", "/markers", bytes.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	if _, err := app.Test(req); err != nil {
		t.Fatalf("create request: %v", err)
	}

	simReq := httptest.NewRequest("POST", "/simulate", nil)
	resp, err := app.Test(simReq, -1)
	if err != nil {
		t.Fatalf("simulate request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out simulateResponse
	decodeJSON(t, resp.Body, &out)
	if out.Metrics.DrivingDistanceLabel == "" {
		t.Fatal("expected a populated driving distance label")
	}
	if out.RiskAssessment == "" {
		t.Fatal("expected a risk assessment from the fallback analysis bridge")
	}
}

// sseFrames splits a raw SSE body into its decoded `data:` frames,
// failing the test if any line doesn't follow the `data: <json>\n\n`
// shape required of every frame.
func sseFrames(t *testing.T, raw string) []map[string]interface{} {
	t.Helper()
	if strings.Contains(raw, "event: ") {
		t.Fatalf("expected no SSE 'event:' lines, only 'data:' frames, got body: %q", raw)
	}
	var frames []map[string]interface{}
	for _, chunk := range strings.Split(strings.TrimSpace(raw), "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		if !strings.HasPrefix(chunk, "data: ") {
			t.Fatalf("expected frame to start with 'data: ', got %q", chunk)
		}
		var frame map[string]interface{}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &frame); err != nil {
			t.Fatalf("decode frame %q: %v", chunk, err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func createFacilityMarker(t *testing.T, app *fiber.App) {
	t.Helper()
	createBody, _ := json.Marshal(map[string]interface{}{
		"type":        "facility",
		"coordinates": [2]float64{0.005, 0.0},
	})
	req := httptest.NewRequest("POST", "/markers", bytes.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	if _, err := app.Test(req); err != nil {
		t.Fatalf("create request: %v", err)
	}
}

func TestStreamSimulateEmitsDataOnlyFramesWithTypeField(t *testing.T) {
	app := newTestApp()
	createFacilityMarker(t, app)

	resp, err := app.Test(httptest.NewRequest("GET", "/simulate/stream?duration=1&radius=1", nil), -1)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream body: %v", err)
	}

	frames := sseFrames(t, string(body))
	if len(frames) == 0 {
		t.Fatal("expected at least one SSE frame")
	}

	var sawComplete bool
	for _, frame := range frames {
		typ, _ := frame["type"].(string)
		if typ == "" {
			t.Fatalf("frame missing top-level type field: %v", frame)
		}
		if typ == "live_data" {
			t.Fatal("/simulate/stream must not emit live_data frames")
		}
		if typ == "status" {
			if msg, _ := frame["message"].(string); msg == "" {
				t.Fatalf("status frame missing top-level message field: %v", frame)
			}
		}
		if typ == "complete" {
			sawComplete = true
			if frame["done"] != true {
				t.Fatalf("expected complete frame's done field to be true: %v", frame)
			}
			if frame["response"] == nil {
				t.Fatalf("expected complete frame to carry a response: %v", frame)
			}
		}
	}
	if !sawComplete {
		t.Fatal("expected a terminal complete frame")
	}
}

func TestLiveSimulateEmitsLiveDataFrames(t *testing.T) {
	app := newTestApp()
	createFacilityMarker(t, app)

	resp, err := app.Test(httptest.NewRequest("GET", "/simulate/live?duration=1&radius=1", nil), -1)
	if err != nil {
		t.Fatalf("live request: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream body: %v", err)
	}

	frames := sseFrames(t, string(body))
	var sawLiveData, sawComplete bool
	for _, frame := range frames {
		switch frame["type"] {
		case "live_data":
			sawLiveData = true
			if _, ok := frame["snapshot"]; !ok {
				t.Fatalf("live_data frame missing snapshot field: %v", frame)
			}
		case "complete":
			sawComplete = true
		}
	}
	if !sawLiveData {
		t.Fatal("expected at least one live_data frame from /simulate/live")
	}
	if !sawComplete {
		t.Fatal("expected a terminal complete frame")
	}
}

func TestDebugGraphBeforeAnySimulationIs404(t *testing.T) {
	app := newTestApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/debug/graph", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 before any simulation has run, got %d", resp.StatusCode)
	}
}
