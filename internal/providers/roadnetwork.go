package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/paulmach/go.geojson"
	"github.com/smartcity/trafficsim/internal/domain"
	"github.com/smartcity/trafficsim/internal/graph"
)

// OverpassRoadNetworkProvider fetches road topology from an
// Overpass-shaped endpoint (already returning GeoJSON LineStrings — the
// actual Overpass-QL / OSM XML translation is the out-of-scope upstream
// named in) and caches results On any
// failure it falls back to a deterministic synthetic grid.
type OverpassRoadNetworkProvider struct {
	endpoint string
	httpClient *http.Client
	cache *RoadNetworkCache
}

// NewOverpassRoadNetworkProvider creates a road-network provider backed
// by the given cache (default TTL 10 minutes).
func NewOverpassRoadNetworkProvider(endpoint string, cache *RoadNetworkCache) *OverpassRoadNetworkProvider {
	return &OverpassRoadNetworkProvider{
		endpoint: endpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache: cache,
	}
}

func (p *OverpassRoadNetworkProvider) FetchRoadNetwork(ctx context.Context, center domain.Coordinate, radiusKm float64) (NetworkData, error) {
	if cached, ok := p.cache.Lookup(center, radiusKm); ok {
		return cached, nil
	}

	data, err := p.fetch(ctx, center, radiusKm)
	if err != nil || len(data.Roads) == 0 {
		data = syntheticGrid(center, radiusKm)
	}
	p.cache.Set(center, radiusKm, data)
	return data, nil
}

func (p *OverpassRoadNetworkProvider) fetch(ctx context.Context, center domain.Coordinate, radiusKm float64) (NetworkData, error) {
	if p.endpoint == "" {
		return NetworkData{}, fmt.Errorf("road network: no endpoint configured")
	}
	url := fmt.Sprintf("%s?lat=%f&lng=%f&radius_km=%f", p.endpoint, center[1], center[0], radiusKm)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NetworkData{}, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return NetworkData{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return NetworkData{}, fmt.Errorf("road network: upstream returned %d", resp.StatusCode)
	}

	var fc geojson.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return NetworkData{}, err
	}
	roads, err := graph.RoadsFromGeoJSON(&fc)
	if err != nil {
		return NetworkData{}, err
	}
	return NetworkData{Roads: roads}, nil
}

// syntheticGrid builds a deterministic Manhattan grid of roads around
// center, sized to radiusKm, and routes it through the same GeoJSON
// parser a real upstream response uses — so the fallback and the real
// path are never two independently-maintained ingestion routines.
func syntheticGrid(center domain.Coordinate, radiusKm float64) NetworkData {
	fc := geojson.NewFeatureCollection()

	const cells = 6
	degPerKm := 1.0 / 111.0
	span := radiusKm * degPerKm
	step := span * 2 / cells
	classes := []string{"primary", "secondary", "tertiary", "residential"}

	lineID := 0
	// East-west lines.
	for row := 0; row <= cells; row++ {
		lat := center[1] - span + float64(row)*step
		coords := [][]float64{
			{center[0] - span, lat},
			{center[0], lat},
			{center[0] + span, lat},
		}
		addGridFeature(fc, &lineID, coords, classes[row%len(classes)])
	}
	// North-south lines.
	for col := 0; col <= cells; col++ {
		lng := center[0] - span + float64(col)*step
		coords := [][]float64{
			{lng, center[1] - span},
			{lng, center[1]},
			{lng, center[1] + span},
		}
		addGridFeature(fc, &lineID, coords, classes[(col+1)%len(classes)])
	}

	roads, err := graph.RoadsFromGeoJSON(fc)
	if err != nil {
		return NetworkData{}
	}
	return NetworkData{Roads: roads}
}

func addGridFeature(fc *geojson.FeatureCollection, lineID *int, coords [][]float64, highway string) {
	f := geojson.NewLineStringFeature(coords)
	f.ID = fmt.Sprintf("synthetic-%d", *lineID)
	f.SetProperty("highway", highway)
	f.SetProperty("lanes", lanesForClass(highway))
	fc.AddFeature(f)
	*lineID++
}

func lanesForClass(highway string) int {
	switch highway {
	case "primary":
		return 3
	case "secondary":
		return 2
	default:
		return 1
	}
}
