package graph

import (
	"strconv"

	"github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
	"github.com/smartcity/trafficsim/internal/domain"
)

// ExportGeoJSON renders the graph's edges as a GeoJSON FeatureCollection
// of LineStrings, one feature per edge, carrying speed/capacity/lanes as
// feature properties. Backs the diagnostic GET /debug/graph route.
func ExportGeoJSON(g *Graph) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range g.Edges() {
		coords := make([][]float64, 0, len(e.Geometry))
		for _, c := range e.Geometry {
			coords = append(coords, []float64{c[0], c[1]})
		}
		f := geojson.NewLineStringFeature(coords)
		f.ID = string(e.ID)
		f.SetProperty("highway", e.Highway)
		f.SetProperty("free_flow_speed", e.FreeFlowSpeed)
		f.SetProperty("capacity", e.Capacity)
		f.SetProperty("lanes", e.Lanes)
		f.SetProperty("length_m", e.LengthM)
		f.SetProperty("from_node", int64(e.FromNode))
		f.SetProperty("to_node", int64(e.ToNode))
		fc.AddFeature(f)
	}
	return fc
}

// RoadsFromGeoJSON converts a FeatureCollection of LineString features
// back into Road values. Used to ingest both a real Overpass-derived
// response (once translated to GeoJSON by the caller) and the
// deterministic fallback grid built by internal/providers, so both
// paths share one parser.
func RoadsFromGeoJSON(fc *geojson.FeatureCollection) ([]domain.Road, error) {
	if fc == nil {
		return nil, errors.New("graph: nil feature collection")
	}
	roads := make([]domain.Road, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil || f.Geometry.Type != geojson.GeometryLineString {
			continue
		}
		geomCoords := f.Geometry.LineString
		if len(geomCoords) < 2 {
			continue
		}
		pts := make([]domain.Coordinate, 0, len(geomCoords))
		for _, c := range geomCoords {
			if len(c) < 2 {
				return nil, errors.Errorf("graph: malformed coordinate in feature %d", i)
			}
			pts = append(pts, domain.Coordinate{c[0], c[1]})
		}
		id, _ := f.ID.(string)
		if id == "" {
			id = strconv.Itoa(i)
		}
		tags := map[string]string{}
		if hw, ok := f.Properties["highway"].(string); ok {
			tags["highway"] = hw
		}
		if lanes, ok := f.Properties["lanes"]; ok {
			tags["lanes"] = stringFromAny(lanes)
		}
		roads = append(roads, domain.Road{
			ID:       id,
			Tags:     tags,
			Geometry: pts,
		})
	}
	return roads, nil
}

func stringFromAny(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.Itoa(int(t))
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}
