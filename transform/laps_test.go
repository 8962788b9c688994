package transform

import (
	"testing"
	"time"

	"github.com/thecloudseeker/activity-files-sub000/activity"
)

func distanceChannelActivity(values []float64) *activity.RawActivity {
	start := baseTime()
	samples := make([]activity.Sample, len(values))
	for i, v := range values {
		samples[i] = activity.Sample{Time: start.Add(time.Duration(i) * time.Second), Value: v}
	}
	return &activity.RawActivity{
		Channels: map[activity.Channel][]activity.Sample{activity.ChannelDistance: samples},
	}
}

func TestMarkLapsByDistance(t *testing.T) {
	a := distanceChannelActivity([]float64{0, 250, 500, 750, 1000})

	got, err := MarkLapsByDistance(a, 250)
	if err != nil {
		t.Fatalf("MarkLapsByDistance error: %v", err)
	}
	if len(got.Laps) != 4 {
		t.Fatalf("laps: got %d, want 4", len(got.Laps))
	}
	for i, lap := range got.Laps {
		if lap.Distance == nil || *lap.Distance != 250 {
			t.Fatalf("lap %d distance: got %v, want 250", i, lap.Distance)
		}
	}
	if !got.Laps[0].Start.Equal(baseTime()) {
		t.Fatalf("first lap start: got %v", got.Laps[0].Start)
	}
	if !got.Laps[3].End.Equal(baseTime().Add(4 * time.Second)) {
		t.Fatalf("last lap end: got %v", got.Laps[3].End)
	}
	if lapDistanceSum(got.Laps) != 1000 {
		t.Fatalf("total distance: got %f, want 1000", lapDistanceSum(got.Laps))
	}
}

func TestMarkLapsByDistanceTrailingRemainder(t *testing.T) {
	a := distanceChannelActivity([]float64{0, 300, 650, 800})

	got, err := MarkLapsByDistance(a, 300)
	if err != nil {
		t.Fatalf("MarkLapsByDistance error: %v", err)
	}
	if len(got.Laps) != 3 {
		t.Fatalf("laps: got %d, want 2 full plus a remainder", len(got.Laps))
	}
	last := got.Laps[2]
	if last.Distance == nil || *last.Distance != 200 {
		t.Fatalf("remainder lap: got %v, want 200", last.Distance)
	}
	if lapDistanceSum(got.Laps) != 800 {
		t.Fatalf("total distance: got %f, want 800", lapDistanceSum(got.Laps))
	}
}

func TestMarkLapsByDistanceToleratesResets(t *testing.T) {
	// The device reset its odometer mid-ride; the negative jump must not
	// subtract from the running total.
	a := distanceChannelActivity([]float64{0, 100, 200, 0, 100, 200})

	got, err := MarkLapsByDistance(a, 150)
	if err != nil {
		t.Fatalf("MarkLapsByDistance error: %v", err)
	}
	if len(got.Laps) != 3 {
		t.Fatalf("laps: got %d, want 3", len(got.Laps))
	}
	if lapDistanceSum(got.Laps) != 400 {
		t.Fatalf("total distance: got %f, want 400 (resets ignored)", lapDistanceSum(got.Laps))
	}
}

func TestMarkLapsByDistanceWithoutDistanceChannel(t *testing.T) {
	a := lineActivity(5)
	got, err := MarkLapsByDistance(a, 100)
	if err != nil {
		t.Fatalf("MarkLapsByDistance error: %v", err)
	}
	if len(got.Laps) != 1 {
		t.Fatalf("laps: got %d, want one whole-activity lap", len(got.Laps))
	}
	lap := got.Laps[0]
	if !lap.Start.Equal(a.Points[0].Time) || !lap.End.Equal(a.Points[4].Time) {
		t.Fatalf("whole-activity lap window: [%v, %v]", lap.Start, lap.End)
	}

	empty := &activity.RawActivity{}
	got, err = MarkLapsByDistance(empty, 100)
	if err != nil {
		t.Fatalf("MarkLapsByDistance error: %v", err)
	}
	if len(got.Laps) != 0 {
		t.Fatalf("empty activity produced laps: %v", got.Laps)
	}

	if _, err := MarkLapsByDistance(a, 0); err == nil {
		t.Fatal("non-positive lap distance accepted")
	}
}
