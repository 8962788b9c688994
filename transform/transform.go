// Package transform provides the pure editing pipeline over RawActivity
// aggregates. Every function takes an aggregate and returns a new one; inputs
// are never mutated. Precondition violations (non-positive steps, inverted
// windows) are argument errors raised synchronously, never diagnostics.
package transform

import (
	"fmt"
	"sort"
	"time"

	"github.com/thecloudseeker/activity-files-sub000/activity"
	"github.com/thecloudseeker/activity-files-sub000/align"
)

// SortAndDedup stable-sorts points, channel samples and laps by time. On
// duplicate timestamps the last occurrence wins.
func SortAndDedup(a *activity.RawActivity) *activity.RawActivity {
	out := a.Clone()

	sort.SliceStable(out.Points, func(i, j int) bool {
		return out.Points[i].Time.Before(out.Points[j].Time)
	})
	out.Points = dedupPoints(out.Points)

	for ch, samples := range out.Channels {
		sort.SliceStable(samples, func(i, j int) bool {
			return samples[i].Time.Before(samples[j].Time)
		})
		out.Channels[ch] = dedupSamples(samples)
	}

	sort.SliceStable(out.Laps, func(i, j int) bool {
		return out.Laps[i].Start.Before(out.Laps[j].Start)
	})
	out.Laps = dedupLaps(out.Laps)

	return out
}

func dedupPoints(points []activity.GeoPoint) []activity.GeoPoint {
	if len(points) < 2 {
		return points
	}
	kept := points[:0]
	for i, p := range points {
		if i+1 < len(points) && points[i+1].Time.Equal(p.Time) {
			continue // a later occurrence with the same timestamp wins
		}
		kept = append(kept, p)
	}
	return kept
}

func dedupSamples(samples []activity.Sample) []activity.Sample {
	if len(samples) < 2 {
		return samples
	}
	kept := samples[:0]
	for i, s := range samples {
		if i+1 < len(samples) && samples[i+1].Time.Equal(s.Time) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

func dedupLaps(laps []activity.Lap) []activity.Lap {
	if len(laps) < 2 {
		return laps
	}
	kept := laps[:0]
	for i, l := range laps {
		if i+1 < len(laps) && laps[i+1].Start.Equal(l.Start) {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

// TrimInvalid drops points with out-of-range or non-finite coordinates. If
// every point is dropped, channels and laps survive unchanged (sensor-only
// activity); otherwise channels and laps are clipped to the surviving points'
// time window, with laps clamped into the window rather than dropped.
func TrimInvalid(a *activity.RawActivity) *activity.RawActivity {
	out := a.Clone()
	if len(out.Points) == 0 {
		return out
	}

	kept := make([]activity.GeoPoint, 0, len(out.Points))
	for _, p := range out.Points {
		if validCoordinate(p) {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		out.Points = nil
		return out
	}
	out.Points = kept

	start, end, _ := out.TimeBounds()
	for ch, samples := range out.Channels {
		out.Channels[ch] = clipSamples(samples, start, end)
	}
	for i := range out.Laps {
		out.Laps[i] = clampLap(out.Laps[i], start, end)
	}
	return out
}

// Crop keeps points and channel samples inside the inclusive [start, end]
// window; laps overlapping the window are clamped to it, non-overlapping laps
// are dropped. end must not precede start.
func Crop(a *activity.RawActivity, start, end time.Time) (*activity.RawActivity, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("crop: end %v precedes start %v", end, start)
	}
	out := a.Clone()

	kept := make([]activity.GeoPoint, 0, len(out.Points))
	for _, p := range out.Points {
		if inWindow(p.Time, start, end) {
			kept = append(kept, p)
		}
	}
	out.Points = kept

	for ch, samples := range out.Channels {
		out.Channels[ch] = clipSamples(samples, start, end)
	}

	laps := make([]activity.Lap, 0, len(out.Laps))
	for _, l := range out.Laps {
		if l.End.Before(start) || l.Start.After(end) {
			continue
		}
		laps = append(laps, clampLap(l, start, end))
	}
	out.Laps = laps
	return out, nil
}

// ShiftTime translates every timestamp (points, samples, laps) by delta.
func ShiftTime(a *activity.RawActivity, delta time.Duration) *activity.RawActivity {
	out := a.Clone()
	for i := range out.Points {
		out.Points[i].Time = out.Points[i].Time.Add(delta)
	}
	for _, samples := range out.Channels {
		for i := range samples {
			samples[i].Time = samples[i].Time.Add(delta)
		}
	}
	for i := range out.Laps {
		out.Laps[i].Start = out.Laps[i].Start.Add(delta)
		out.Laps[i].End = out.Laps[i].End.Add(delta)
	}
	return out
}

// DownsampleTime greedily keeps a point once at least step has elapsed since
// the last kept point, always force-retaining the final point. Channel samples
// survive when they fall within step/2 of a retained timestamp. Assumes
// time-ordered points.
func DownsampleTime(a *activity.RawActivity, step time.Duration) (*activity.RawActivity, error) {
	if step <= 0 {
		return nil, fmt.Errorf("downsample time: step must be positive, got %v", step)
	}
	out := a.Clone()
	if len(out.Points) == 0 {
		return out, nil
	}

	kept := make([]activity.GeoPoint, 0, len(out.Points))
	kept = append(kept, out.Points[0])
	lastKept := out.Points[0].Time
	lastKeptIdx := 0
	for i, p := range out.Points[1:] {
		if p.Time.Sub(lastKept) >= step {
			kept = append(kept, p)
			lastKept = p.Time
			lastKeptIdx = i + 1
		}
	}
	if lastKeptIdx != len(out.Points)-1 {
		kept = append(kept, out.Points[len(out.Points)-1])
	}
	out.Points = kept

	keptTimes := pointTimes(kept)
	for ch, samples := range out.Channels {
		filtered := samples[:0]
		for _, s := range samples {
			if nearestDelta(keptTimes, s.Time) <= step/2 {
				filtered = append(filtered, s)
			}
		}
		out.Channels[ch] = filtered
	}
	return out, nil
}

// DownsampleDistance greedily keeps a point once the cumulative great-circle
// distance since the last kept point reaches meters, always force-retaining
// the final point even when its timestamp duplicates the previous one. Channel
// samples are re-resolved at the retained timestamps via nearest-match with a
// tolerance derived from the average retained spacing, clamped to [200ms, 10s].
// Assumes time-ordered points.
func DownsampleDistance(a *activity.RawActivity, meters float64) (*activity.RawActivity, error) {
	if meters <= 0 {
		return nil, fmt.Errorf("downsample distance: meters must be positive, got %v", meters)
	}
	out := a.Clone()
	if len(out.Points) == 0 {
		return out, nil
	}

	kept := make([]activity.GeoPoint, 0, len(out.Points))
	kept = append(kept, out.Points[0])
	lastKeptIdx := 0
	accumulated := 0.0
	for i := 1; i < len(out.Points); i++ {
		accumulated += HaversineMeters(out.Points[i-1], out.Points[i])
		if accumulated >= meters {
			kept = append(kept, out.Points[i])
			lastKeptIdx = i
			accumulated = 0
		}
	}
	if lastKeptIdx != len(out.Points)-1 {
		kept = append(kept, out.Points[len(out.Points)-1])
	}
	out.Points = kept

	tolerance := retainedSpacingTolerance(kept)
	engine := align.New(a.Channels, align.Tolerances{Default: tolerance})
	for ch := range out.Channels {
		resampled := make([]activity.Sample, 0, len(kept))
		for _, p := range kept {
			if r, ok := engine.Resolve(ch, p.Time); ok {
				resampled = append(resampled, activity.Sample{Time: p.Time, Value: r.Value})
			}
		}
		out.Channels[ch] = resampled
	}
	return out, nil
}

// retainedSpacingTolerance halves the average spacing between retained
// timestamps and clamps the result to [200ms, 10s].
func retainedSpacingTolerance(points []activity.GeoPoint) time.Duration {
	const (
		minTolerance = 200 * time.Millisecond
		maxTolerance = 10 * time.Second
	)
	if len(points) < 2 {
		return maxTolerance
	}
	span := points[len(points)-1].Time.Sub(points[0].Time)
	avg := span / time.Duration(len(points)-1)
	tol := avg / 2
	if tol < minTolerance {
		return minTolerance
	}
	if tol > maxTolerance {
		return maxTolerance
	}
	return tol
}

// SmoothHeartRate applies a centered moving average to the heart-rate channel.
// window <= 1 is a no-op. For even windows the extra sample falls on the
// right. Implemented with a prefix sum, so cost is O(n) regardless of window.
func SmoothHeartRate(a *activity.RawActivity, window int) *activity.RawActivity {
	out := a.Clone()
	if window <= 1 {
		return out
	}
	samples := out.Channels[activity.ChannelHeartRate]
	n := len(samples)
	if n == 0 {
		return out
	}

	prefix := make([]float64, n+1)
	for i, s := range samples {
		prefix[i+1] = prefix[i] + s.Value
	}

	left := (window - 1) / 2
	right := window - left - 1
	smoothed := make([]activity.Sample, n)
	for i := range samples {
		lo := i - left
		if lo < 0 {
			lo = 0
		}
		hi := i + right
		if hi > n-1 {
			hi = n - 1
		}
		smoothed[i] = activity.Sample{
			Time:  samples[i].Time,
			Value: (prefix[hi+1] - prefix[lo]) / float64(hi-lo+1),
		}
	}
	out.Channels[activity.ChannelHeartRate] = smoothed
	return out
}

// RecomputeDistanceAndSpeed rebuilds the distance and speed channels from the
// point timeline: cumulative great-circle distance, and instantaneous speed
// delta-distance over delta-time (zero whenever delta-time is not positive).
// If the points are not strictly time-increasing a SortAndDedup pass runs
// first.
func RecomputeDistanceAndSpeed(a *activity.RawActivity) *activity.RawActivity {
	out := a
	if !strictlyIncreasing(a.Points) {
		out = SortAndDedup(a)
	} else {
		out = a.Clone()
	}
	if len(out.Points) == 0 {
		return out
	}

	distance := CumulativeDistance(out.Points)
	speed := make([]activity.Sample, len(out.Points))
	speed[0] = activity.Sample{Time: out.Points[0].Time, Value: 0}
	for i := 1; i < len(out.Points); i++ {
		dt := out.Points[i].Time.Sub(out.Points[i-1].Time).Seconds()
		v := 0.0
		if dt > 0 {
			v = (distance[i].Value - distance[i-1].Value) / dt
		}
		speed[i] = activity.Sample{Time: out.Points[i].Time, Value: v}
	}

	if out.Channels == nil {
		out.Channels = make(map[activity.Channel][]activity.Sample, 2)
	}
	out.Channels[activity.ChannelDistance] = distance
	out.Channels[activity.ChannelSpeed] = speed
	return out
}

func strictlyIncreasing(points []activity.GeoPoint) bool {
	for i := 1; i < len(points); i++ {
		if !points[i].Time.After(points[i-1].Time) {
			return false
		}
	}
	return true
}

func clipSamples(samples []activity.Sample, start, end time.Time) []activity.Sample {
	kept := make([]activity.Sample, 0, len(samples))
	for _, s := range samples {
		if inWindow(s.Time, start, end) {
			kept = append(kept, s)
		}
	}
	return kept
}

func clampLap(l activity.Lap, start, end time.Time) activity.Lap {
	if l.Start.Before(start) {
		l.Start = start
	}
	if l.Start.After(end) {
		l.Start = end
	}
	if l.End.After(end) {
		l.End = end
	}
	if l.End.Before(start) {
		l.End = start
	}
	return l
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func pointTimes(points []activity.GeoPoint) []time.Time {
	out := make([]time.Time, len(points))
	for i, p := range points {
		out[i] = p.Time
	}
	return out
}

// nearestDelta returns the absolute distance from ts to the nearest entry of
// the sorted times slice.
func nearestDelta(times []time.Time, ts time.Time) time.Duration {
	n := len(times)
	if n == 0 {
		return time.Duration(1<<63 - 1)
	}
	i := sort.Search(n, func(i int) bool { return !times[i].Before(ts) })
	best := time.Duration(1<<63 - 1)
	if i < n {
		best = times[i].Sub(ts)
	}
	if i > 0 {
		if d := ts.Sub(times[i-1]); d < best {
			best = d
		}
	}
	return best
}
