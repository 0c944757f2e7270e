package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestDensifyPreservesLength(t *testing.T) {
	coords := []orb.Point{{0, 0}, {0, 0.01}, {0.01, 0.01}}
	original := PolylineLength(coords)
	for _, step := range []float64{1, 5, 25} {
		densified := Densify(coords, step)
		got := PolylineLength(densified)
		if math.Abs(got-original) > 1.0 {
			t.Errorf("step=%v: densified length %v, want ~%v", step, got, original)
		}
	}
}

func TestDensifyEndpoints(t *testing.T) {
	coords := []orb.Point{{0, 0}, {0, 0.02}}
	out := Densify(coords, 5)
	if Distance(out[0], coords[0]) > 1 {
		t.Errorf("first point drifted: %v vs %v", out[0], coords[0])
	}
	last := out[len(out)-1]
	if Distance(last, coords[len(coords)-1]) > 1 {
		t.Errorf("last point drifted: %v vs %v", last, coords[len(coords)-1])
	}
}

func TestBearingStableUnderSmallStep(t *testing.T) {
	a := orb.Point{0, 0}
	b := orb.Point{0.01, 0.01}
	b1 := Bearing(a, b)

	coords := []orb.Point{a, b}
	near := PointAtDistance(coords, 0.001*PolylineLength(coords))
	b2 := Bearing(a, near)

	diff := math.Abs(b1 - b2)
	if diff > 180 {
		diff = 360 - diff
	}
	if diff > 1 {
		t.Errorf("bearing drifted by %v degrees", diff)
	}
}

func TestBoundingBoxMargin(t *testing.T) {
	b := BoundingBox([]orb.Point{{10, 20}}, 0.01)
	if b.MinLng != 9.99 || b.MaxLng != 10.01 {
		t.Errorf("unexpected lng bounds: %+v", b)
	}
	if b.MinLat != 19.99 || b.MaxLat != 20.01 {
		t.Errorf("unexpected lat bounds: %+v", b)
	}
}

func TestPointAtDistanceClampsToEnds(t *testing.T) {
	coords := []orb.Point{{0, 0}, {0, 0.01}}
	total := PolylineLength(coords)
	p := PointAtDistance(coords, total*10)
	if Distance(p, coords[len(coords)-1]) > 1 {
		t.Errorf("expected clamp to last point, got %v", p)
	}
}
