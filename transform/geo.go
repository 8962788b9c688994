package transform

import (
	"math"

	"github.com/thecloudseeker/activity-files-sub000/activity"
)

const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b activity.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// CumulativeDistance sums pairwise great-circle distances across ordered
// points, yielding one sample per point. Fewer than two points yields a single
// zero-valued sample; no points yields nil.
func CumulativeDistance(points []activity.GeoPoint) []activity.Sample {
	if len(points) == 0 {
		return nil
	}
	out := make([]activity.Sample, len(points))
	out[0] = activity.Sample{Time: points[0].Time, Value: 0}
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += HaversineMeters(points[i-1], points[i])
		out[i] = activity.Sample{Time: points[i].Time, Value: total}
	}
	return out
}

func validCoordinate(p activity.GeoPoint) bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
