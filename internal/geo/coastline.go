package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

const earthRadiusKM = 6371.0

// CoastlineIndex answers nearest-coast distance queries against a fixed set
// of reference points kept sorted ascending by latitude. Candidate selection
// is latitude-only: the reference points are dense enough along the latitude
// axis that longitude never changes which candidate wins. Downstream
// analysis depends on this exact approximation, so it must not be replaced
// with a true 2D nearest-neighbor search.
//
// The index is immutable after Build and safe for concurrent use.
type CoastlineIndex struct {
	points    [][2]float64 // (lat, lon), ascending by lat
	latitudes []float64
}

// Build constructs the index from (lat, lon) pairs, sorting them by
// latitude. An empty point set is a configuration error.
func Build(points [][2]float64) (*CoastlineIndex, error) {
	if len(points) == 0 {
		return nil, errors.New("coastline: no reference points")
	}
	sorted := make([][2]float64, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i][0] < sorted[j][0] })

	lats := make([]float64, len(sorted))
	for i, p := range sorted {
		lats[i] = p[0]
	}
	return &CoastlineIndex{points: sorted, latitudes: lats}, nil
}

// LoadFile builds the index from a JSON file holding an array of
// [latitude, longitude] pairs.
func LoadFile(path string) (*CoastlineIndex, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("coastline: read %s: %w", path, err)
	}
	var points [][2]float64
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, fmt.Errorf("coastline: parse %s: %w", path, err)
	}
	return Build(points)
}

// NearestDistanceMeters returns the great-circle distance from the query
// point to the reference point whose latitude is closest to the query's,
// ties broken toward the lower index. Truncated to whole meters.
func (ci *CoastlineIndex) NearestDistanceMeters(lat, lon float64) int {
	p := ci.points[ci.nearestIndex(lat)]
	return HaversineMeters(lat, lon, p[0], p[1])
}

func (ci *CoastlineIndex) nearestIndex(lat float64) int {
	// insertion position of lat in the sorted latitude slice
	i := sort.SearchFloat64s(ci.latitudes, lat)
	switch {
	case i == 0:
		return 0
	case i == len(ci.latitudes):
		return len(ci.latitudes) - 1
	}
	// successor wins only when strictly closer
	if ci.latitudes[i]-lat < lat-ci.latitudes[i-1] {
		return i
	}
	return i - 1
}

// HaversineMeters computes the great-circle distance between two points,
// truncated (not rounded) to an integer number of meters.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) int {
	rlat1 := lat1 * math.Pi / 180
	rlon1 := lon1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	rlon2 := lon2 * math.Pi / 180

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return int(earthRadiusKM * c * 1000)
}
