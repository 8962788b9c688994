package align

import (
	"testing"
	"time"

	"github.com/thecloudseeker/activity-files-sub000/activity"
)

func testChannels(start time.Time) map[activity.Channel][]activity.Sample {
	return map[activity.Channel][]activity.Sample{
		activity.ChannelHeartRate: {
			{Time: start, Value: 120},
			{Time: start.Add(10 * time.Second), Value: 130},
			{Time: start.Add(20 * time.Second), Value: 140},
		},
		activity.ChannelSpeed: {
			{Time: start.Add(5 * time.Second), Value: 2.0},
			{Time: start.Add(15 * time.Second), Value: 4.0},
		},
	}
}

func TestResolveExactHit(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	eng := New(testChannels(start), Tolerances{})

	r, ok := eng.Resolve(activity.ChannelHeartRate, start.Add(10*time.Second))
	if !ok {
		t.Fatal("exact hit not resolved")
	}
	if r.Value != 130 || r.Delta != 0 {
		t.Fatalf("got value=%f delta=%v, want 130 at delta 0", r.Value, r.Delta)
	}
}

func TestResolvePicksNearerNeighbor(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	eng := New(testChannels(start), Tolerances{})

	// 12s sits between the 10s and 20s samples, closer to 10s.
	r, ok := eng.Resolve(activity.ChannelHeartRate, start.Add(12*time.Second))
	if !ok {
		t.Fatal("query inside tolerance not resolved")
	}
	if r.Value != 130 {
		t.Fatalf("got %f, want the nearer sample 130", r.Value)
	}
	if r.Delta != 2*time.Second {
		t.Fatalf("got delta %v, want 2s", r.Delta)
	}

	r, ok = eng.Resolve(activity.ChannelHeartRate, start.Add(16*time.Second))
	if !ok || r.Value != 140 {
		t.Fatalf("got %v/%v, want the 20s sample 140", r, ok)
	}
}

func TestResolveToleranceExcludes(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	eng := New(testChannels(start), Tolerances{Default: time.Second})

	if _, ok := eng.Resolve(activity.ChannelHeartRate, start.Add(13*time.Second)); ok {
		t.Fatal("sample 3s away resolved under a 1s tolerance")
	}
	if _, ok := eng.Resolve(activity.ChannelHeartRate, start.Add(10500*time.Millisecond)); !ok {
		t.Fatal("sample 500ms away not resolved under a 1s tolerance")
	}
}

func TestResolvePerChannelTolerance(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	eng := New(testChannels(start), Tolerances{
		Default: time.Second,
		PerChannel: map[activity.Channel]time.Duration{
			activity.ChannelSpeed: 10 * time.Second,
		},
	})

	if _, ok := eng.Resolve(activity.ChannelHeartRate, start.Add(13*time.Second)); ok {
		t.Fatal("default tolerance not applied")
	}
	if _, ok := eng.Resolve(activity.ChannelSpeed, start.Add(13*time.Second)); !ok {
		t.Fatal("per-channel tolerance not applied")
	}
}

func TestResolveMonotoneThenBackward(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	eng := New(testChannels(start), Tolerances{})

	// Forward walk across the whole series, then jump back.
	for i, want := range []float64{120, 130, 140} {
		ts := start.Add(time.Duration(i*10) * time.Second)
		r, ok := eng.Resolve(activity.ChannelHeartRate, ts)
		if !ok || r.Value != want {
			t.Fatalf("forward query %d: got %v/%v, want %f", i, r, ok, want)
		}
	}
	r, ok := eng.Resolve(activity.ChannelHeartRate, start.Add(time.Second))
	if !ok || r.Value != 120 {
		t.Fatalf("backward query: got %v/%v, want 120", r, ok)
	}
}

func TestSnapshot(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	eng := New(testChannels(start), Tolerances{})

	snap := eng.Snapshot(start.Add(5 * time.Second))
	if len(snap) != 2 {
		t.Fatalf("snapshot size: got %d, want 2", len(snap))
	}
	if snap[activity.ChannelSpeed].Value != 2.0 {
		t.Fatalf("speed: got %f, want 2.0", snap[activity.ChannelSpeed].Value)
	}
	// 5s is equidistant from the 0s and 10s samples; ties go to the
	// at-or-after sample.
	if snap[activity.ChannelHeartRate].Value != 130 {
		t.Fatalf("heart rate: got %f, want 130", snap[activity.ChannelHeartRate].Value)
	}
}

func TestPaceSecondsPerKM(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	eng := New(testChannels(start), Tolerances{})

	pace, ok := eng.PaceSecondsPerKM(start.Add(5 * time.Second))
	if !ok {
		t.Fatal("pace not derived from a positive speed reading")
	}
	if pace != 500 {
		t.Fatalf("pace: got %f, want 500 (2 m/s)", pace)
	}

	zeroSpeed := New(map[activity.Channel][]activity.Sample{
		activity.ChannelSpeed: {{Time: start, Value: 0}},
	}, Tolerances{})
	if _, ok := zeroSpeed.PaceSecondsPerKM(start); ok {
		t.Fatal("pace defined for zero speed")
	}
}

func TestResolveUnknownAndEmptyChannels(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	eng := New(map[activity.Channel][]activity.Sample{
		activity.ChannelCadence: nil,
	}, Tolerances{})

	if _, ok := eng.Resolve(activity.ChannelCadence, start); ok {
		t.Fatal("empty series resolved")
	}
	if _, ok := eng.Resolve(activity.ChannelPower, start); ok {
		t.Fatal("absent channel resolved")
	}
}
