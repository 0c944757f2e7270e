package domain

import "github.com/paulmach/orb"

// Coordinate is a (lng, lat) pair in WGS84 degrees. orb.Point stores
// [x, y] == [lng, lat], matching this ordering.
type Coordinate = orb.Point

// Road is the raw road record ingested from the mapping upstream.
// Immutable after ingestion.
type Road struct {
	ID       string
	NodeIDs  []int64
	Tags     map[string]string
	Geometry []Coordinate
}

// Highway returns the road's highway classification tag, or "" if unset.
func (r Road) Highway() string {
	return r.Tags["highway"]
}

// Lanes parses the road's lane tag, defaulting to 1 when absent or
// unparseable.
func (r Road) Lanes() int {
	return parseLanes(r.Tags["lanes"])
}

// excludedHighways lists road classes skipped entirely at ingestion
//.
var excludedHighways = map[string]bool{
	"footway": true,
	"cycleway": true,
	"path": true,
	"steps": true,
	"service": true,
}

// Excluded reports whether this road's highway class is never ingested
// into the graph.
func (r Road) Excluded() bool {
	return excludedHighways[r.Highway()]
}

func parseLanes(tag string) int {
	if tag == "" {
		return 1
	}
	n := 0
	for _, c := range tag {
		if c < '0' || c > '9' {
			return 1
		}
		n = n*10 + int(c-'0')
	}
	if n < 1 {
		return 1
	}
	return n
}
