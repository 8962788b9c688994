package transform

import (
	"math"
	"testing"
	"time"

	"github.com/thecloudseeker/activity-files-sub000/activity"
)

func TestHaversineMeters(t *testing.T) {
	a := activity.GeoPoint{Lat: 0, Lon: 0}
	b := activity.GeoPoint{Lat: 0, Lon: 1}
	// One degree of longitude on the equator.
	want := earthRadiusMeters * math.Pi / 180
	if got := HaversineMeters(a, b); math.Abs(got-want) > 1 {
		t.Fatalf("got %f, want %f", got, want)
	}
	if got := HaversineMeters(a, a); got != 0 {
		t.Fatalf("identical points: got %f, want 0", got)
	}
}

func TestCumulativeDistance(t *testing.T) {
	if got := CumulativeDistance(nil); got != nil {
		t.Fatalf("no points: got %v, want nil", got)
	}

	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	single := CumulativeDistance([]activity.GeoPoint{{Lat: 1, Lon: 1, Time: start}})
	if len(single) != 1 || single[0].Value != 0 {
		t.Fatalf("single point: got %v, want one zero sample", single)
	}

	points := []activity.GeoPoint{
		{Lat: 0, Lon: 0, Time: start},
		{Lat: 0, Lon: 0.001, Time: start.Add(10 * time.Second)},
		{Lat: 0, Lon: 0.002, Time: start.Add(20 * time.Second)},
	}
	got := CumulativeDistance(points)
	if len(got) != 3 {
		t.Fatalf("got %d samples, want 3", len(got))
	}
	if got[0].Value != 0 {
		t.Fatalf("first sample: got %f, want 0", got[0].Value)
	}
	step := HaversineMeters(points[0], points[1])
	if math.Abs(got[1].Value-step) > 1e-9 || math.Abs(got[2].Value-2*step) > 1e-9 {
		t.Fatalf("accumulation wrong: %f, %f (step %f)", got[1].Value, got[2].Value, step)
	}
	if !got[2].Time.Equal(points[2].Time) {
		t.Fatalf("sample time drifted: %v", got[2].Time)
	}
}
