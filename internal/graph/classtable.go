package graph

// classProfile is the authoritative free-flow speed / base capacity
// table from 
type classProfile struct {
	speedKmh float64
	baseCapacity float64
}

var classTable = map[string]classProfile{
	"motorway": {110, 2000},
	"trunk": {90, 1500},
	"primary": {70, 1200},
	"secondary": {60, 800},
	"tertiary": {50, 600},
	"residential": {30, 400},
	"unclassified": {40, 300},
}

var defaultProfile = classProfile{40, 300}

func profileFor(highway string) classProfile {
	if p, ok := classTable[highway]; ok {
		return p
	}
	return defaultProfile
}
