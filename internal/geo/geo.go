// Package geo provides the great-circle geometry primitives the rest of
// the simulation builds on: distance, bounding boxes, polyline
// densification, point-at-distance, and bearing.
//
// Grounded on LdDl-osm2ch/geomath.go (haversine distance, point-on-
// segment, centroid) and pkg/utils/helpers.go's
// Haversine/Clamp/RoundTo/Lerp, generalized to operate on
// github.com/paulmach/orb points so the same type flows through
// internal/domain, internal/graph, and internal/simulation.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

const earthRadiusM = 6371000.0

// Distance returns the great-circle distance between two points, in
// meters.
func Distance(a, b orb.Point) float64 {
	lat1 := degToRad(a[1])
	lat2 := degToRad(b[1])
	dLat := degToRad(b[1] - a[1])
	dLng := degToRad(b[0] - a[0])

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// PolylineLength sums the great-circle distance between consecutive
// points, in meters.
func PolylineLength(coords []orb.Point) float64 {
	total := 0.0
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}

// BBox is an axis-aligned WGS84 bounding box.
type BBox struct {
	MinLng, MinLat, MaxLng, MaxLat float64
}

// Center returns the bounding box's midpoint.
func (b BBox) Center() orb.Point {
	return orb.Point{(b.MinLng + b.MaxLng) / 2, (b.MinLat + b.MaxLat) / 2}
}

// AreaKm2 approximates the bbox area in square kilometers using the
// great-circle width at its mid-latitude and its north-south extent.
func (b BBox) AreaKm2() float64 {
	midLat := (b.MinLat + b.MaxLat) / 2
	width := Distance(orb.Point{b.MinLng, midLat}, orb.Point{b.MaxLng, midLat})
	height := Distance(orb.Point{b.MinLng, b.MinLat}, orb.Point{b.MinLng, b.MaxLat})
	return (width / 1000) * (height / 1000)
}

// BoundingBox computes a bbox around the given points with a uniform
// degree margin (marginDeg) applied on every side.
func BoundingBox(points []orb.Point, marginDeg float64) BBox {
	if len(points) == 0 {
		return BBox{}
	}
	b := BBox{MinLng: points[0][0], MaxLng: points[0][0], MinLat: points[0][1], MaxLat: points[0][1]}
	for _, p := range points[1:] {
		if p[0] < b.MinLng {
			b.MinLng = p[0]
		}
		if p[0] > b.MaxLng {
			b.MaxLng = p[0]
		}
		if p[1] < b.MinLat {
			b.MinLat = p[1]
		}
		if p[1] > b.MaxLat {
			b.MaxLat = p[1]
		}
	}
	b.MinLng -= marginDeg
	b.MaxLng += marginDeg
	b.MinLat -= marginDeg
	b.MaxLat += marginDeg
	return b
}

// Densify resamples a polyline to a fixed step (meters), emitting the
// point at distance i*step along the piecewise-linear path for
// i = 0..ceil(total/step). Each interior vertex of the input is also
// kept, in order, so corners are not cut and the resampled polyline has
// the same length as the input. Polylines shorter than two points are
// returned unchanged.
func Densify(coords []orb.Point, stepM float64) []orb.Point {
	if len(coords) < 2 {
		return coords
	}
	total := PolylineLength(coords)
	if total == 0 {
		return []orb.Point{coords[0]}
	}
	n := int(math.Ceil(total / stepM))
	out := make([]orb.Point, 0, n+len(coords))
	vertexDist := 0.0 // distance along the polyline to coords[next-1]
	next := 1
	for i := 0; i <= n; i++ {
		d := float64(i) * stepM
		if d > total {
			d = total
		}
		for next < len(coords)-1 {
			vd := vertexDist + Distance(coords[next-1], coords[next])
			if vd >= d {
				break
			}
			out = append(out, coords[next])
			vertexDist = vd
			next++
		}
		out = append(out, PointAtDistance(coords, d))
	}
	return out
}

// PointAtDistance returns the point at the given distance (meters) along
// a piecewise-linear polyline, clamped to the polyline's endpoints.
func PointAtDistance(coords []orb.Point, distM float64) orb.Point {
	if len(coords) == 0 {
		return orb.Point{}
	}
	if len(coords) == 1 || distM <= 0 {
		return coords[0]
	}
	remaining := distM
	for i := 1; i < len(coords); i++ {
		segLen := Distance(coords[i-1], coords[i])
		if remaining <= segLen || i == len(coords)-1 {
			if segLen == 0 {
				return coords[i]
			}
			frac := remaining / segLen
			if frac > 1 {
				frac = 1
			}
			return lerpPoint(coords[i-1], coords[i], frac)
		}
		remaining -= segLen
	}
	return coords[len(coords)-1]
}

func lerpPoint(a, b orb.Point, t float64) orb.Point {
	return orb.Point{
		a[0] + t*(b[0]-a[0]),
		a[1] + t*(b[1]-a[1]),
	}
}

// Bearing returns the initial great-circle bearing from a to b, in
// degrees, where 0 == north and the angle increases clockwise.
func Bearing(a, b orb.Point) float64 {
	lat1 := degToRad(a[1])
	lat2 := degToRad(b[1])
	dLng := degToRad(b[0] - a[0])

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	theta := math.Atan2(y, x)
	deg := radToDeg(theta)
	return math.Mod(deg+360, 360)
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }
