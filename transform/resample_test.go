package transform

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/thecloudseeker/activity-files-sub000/activity"
)

func TestResampleInterpolatesOnGrid(t *testing.T) {
	start := baseTime()
	a := &activity.RawActivity{
		Points: []activity.GeoPoint{
			{Lat: 40.000, Lon: -105.000, Elevation: activity.FloatPtr(1600), Time: start},
			{Lat: 40.001, Lon: -105.001, Elevation: activity.FloatPtr(1610), Time: start.Add(10 * time.Second)},
		},
		Channels: map[activity.Channel][]activity.Sample{
			activity.ChannelCadence: {
				{Time: start, Value: 0},
				{Time: start.Add(10 * time.Second), Value: 100},
			},
		},
	}

	got, err := Resample(a, 4*time.Second)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}

	// Grid 0s, 4s, 8s plus the forced exact end.
	if len(got.Points) != 4 {
		t.Fatalf("points: got %d, want 4", len(got.Points))
	}
	if !got.Points[3].Time.Equal(start.Add(10 * time.Second)) {
		t.Fatal("exact end timestamp missing")
	}

	mid := got.Points[1]
	if math.Abs(mid.Lat-40.0004) > 1e-9 || math.Abs(mid.Lon-(-105.0004)) > 1e-9 {
		t.Fatalf("4s position: got (%f, %f), want (40.0004, -105.0004)", mid.Lat, mid.Lon)
	}
	if mid.Elevation == nil || math.Abs(*mid.Elevation-1604) > 1e-9 {
		t.Fatalf("4s elevation: got %v, want 1604", mid.Elevation)
	}

	cad := got.Channels[activity.ChannelCadence]
	if len(cad) != 4 {
		t.Fatalf("cadence samples: got %d, want 4", len(cad))
	}
	if math.Abs(cad[1].Value-40) > 1e-9 {
		t.Fatalf("4s cadence: got %f, want 40", cad[1].Value)
	}
	if cad[0].Value != 0 || cad[3].Value != 100 {
		t.Fatalf("exact hits drifted: %v", cad)
	}
}

func TestResampleSnapsHeartRate(t *testing.T) {
	start := baseTime()
	a := &activity.RawActivity{
		Points: []activity.GeoPoint{
			{Lat: 40, Lon: -105, Time: start},
			{Lat: 40.001, Lon: -105, Time: start.Add(10 * time.Second)},
		},
		Channels: map[activity.Channel][]activity.Sample{
			activity.ChannelHeartRate: {
				{Time: start, Value: 140},
				{Time: start.Add(10 * time.Second), Value: 150},
			},
		},
	}

	got, err := Resample(a, 4*time.Second)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}

	// Heart rate never interpolates: 0s and 10s hit exactly, 8s snaps to the
	// 10s sample at the 2s tolerance edge, 4s has nothing within 2s.
	hr := got.Channels[activity.ChannelHeartRate]
	if len(hr) != 3 {
		t.Fatalf("heart rate samples: got %v, want 3", hr)
	}
	if hr[0].Value != 140 || hr[1].Value != 150 || hr[2].Value != 150 {
		t.Fatalf("heart rate values: got %v", hr)
	}
	if !hr[1].Time.Equal(start.Add(8 * time.Second)) {
		t.Fatalf("snapped sample carries the grid timestamp, got %v", hr[1].Time)
	}
}

func TestResampleClampsOutsideSampledRange(t *testing.T) {
	start := baseTime()
	a := &activity.RawActivity{
		Points: []activity.GeoPoint{
			{Lat: 40, Lon: -105, Time: start},
			{Lat: 40.001, Lon: -105, Time: start.Add(10 * time.Second)},
		},
		Channels: map[activity.Channel][]activity.Sample{
			// Samples cover only the middle of the point timeline.
			activity.ChannelPower: {
				{Time: start.Add(4 * time.Second), Value: 200},
				{Time: start.Add(6 * time.Second), Value: 220},
			},
		},
	}

	got, err := Resample(a, 5*time.Second)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	power := got.Channels[activity.ChannelPower]
	if len(power) != 3 {
		t.Fatalf("power samples: got %d, want 3", len(power))
	}
	if power[0].Value != 200 {
		t.Fatalf("value before the sampled range must clamp to the first sample, got %f", power[0].Value)
	}
	if power[2].Value != 220 {
		t.Fatalf("value after the sampled range must clamp to the last sample, got %f", power[2].Value)
	}
	if power[1].Value != 210 {
		t.Fatalf("5s power: got %f, want 210", power[1].Value)
	}
}

func TestResampleDegenerateInputs(t *testing.T) {
	a := lineActivity(1)
	got, err := Resample(a, time.Second)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	if diff := cmp.Diff(a, got, cmpOpts...); diff != "" {
		t.Fatalf("single-point activity should round-trip unchanged:\n%s", diff)
	}

	if _, err := Resample(a, 0); err == nil {
		t.Fatal("non-positive step accepted")
	}
}
