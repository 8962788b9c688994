package transform

import (
	"fmt"
	"sort"
	"time"

	"github.com/thecloudseeker/activity-files-sub000/activity"
)

// Resample rebuilds the activity on a regular timestamp grid from the first to
// the last point inclusive; the exact end timestamp is always included even
// when it falls off-grid. Position, elevation and non-heart-rate channels are
// linearly interpolated between bounding original samples and clamped (never
// extrapolated) outside the sampled range; heart rate is snapped to the
// nearest original sample within a step/2 tolerance. Exact-timestamp hits
// bypass interpolation entirely. Assumes time-ordered points and samples.
func Resample(a *activity.RawActivity, step time.Duration) (*activity.RawActivity, error) {
	if step <= 0 {
		return nil, fmt.Errorf("resample: step must be positive, got %v", step)
	}
	out := a.Clone()
	if len(out.Points) < 2 {
		return out, nil
	}

	first := out.Points[0].Time
	last := out.Points[len(out.Points)-1].Time
	targets := make([]time.Time, 0, int(last.Sub(first)/step)+2)
	for t := first; t.Before(last); t = t.Add(step) {
		targets = append(targets, t)
	}
	targets = append(targets, last)

	points := make([]activity.GeoPoint, len(targets))
	for i, t := range targets {
		points[i] = interpolatePoint(out.Points, t)
	}

	channels := make(map[activity.Channel][]activity.Sample, len(out.Channels))
	for ch, samples := range out.Channels {
		if len(samples) == 0 {
			channels[ch] = nil
			continue
		}
		resampled := make([]activity.Sample, 0, len(targets))
		if ch == activity.ChannelHeartRate {
			for _, t := range targets {
				if v, ok := snapNearest(samples, t, step/2); ok {
					resampled = append(resampled, activity.Sample{Time: t, Value: v})
				}
			}
		} else {
			for _, t := range targets {
				resampled = append(resampled, activity.Sample{Time: t, Value: interpolateValue(samples, t)})
			}
		}
		channels[ch] = resampled
	}

	out.Points = points
	out.Channels = channels
	return out, nil
}

// interpolatePoint resolves the position at t from the bounding original
// points, clamping outside the recorded range.
func interpolatePoint(points []activity.GeoPoint, t time.Time) activity.GeoPoint {
	n := len(points)
	i := sort.Search(n, func(i int) bool { return !points[i].Time.Before(t) })
	if i < n && points[i].Time.Equal(t) {
		return copyPoint(points[i])
	}
	if i == 0 {
		p := copyPoint(points[0])
		p.Time = t
		return p
	}
	if i == n {
		p := copyPoint(points[n-1])
		p.Time = t
		return p
	}

	prev, next := points[i-1], points[i]
	span := next.Time.Sub(prev.Time).Seconds()
	if span <= 0 {
		p := copyPoint(next)
		p.Time = t
		return p
	}
	frac := t.Sub(prev.Time).Seconds() / span
	out := activity.GeoPoint{
		Lat:  prev.Lat + (next.Lat-prev.Lat)*frac,
		Lon:  prev.Lon + (next.Lon-prev.Lon)*frac,
		Time: t,
	}
	switch {
	case prev.Elevation != nil && next.Elevation != nil:
		out.Elevation = activity.FloatPtr(*prev.Elevation + (*next.Elevation-*prev.Elevation)*frac)
	case prev.Elevation != nil:
		out.Elevation = activity.FloatPtr(*prev.Elevation)
	case next.Elevation != nil:
		out.Elevation = activity.FloatPtr(*next.Elevation)
	}
	return out
}

// interpolateValue resolves a channel value at t, linearly between bounding
// samples, clamped to the first/last sample outside the range. Exact hits
// return the stored value untouched to avoid floating-point drift.
func interpolateValue(samples []activity.Sample, t time.Time) float64 {
	n := len(samples)
	i := sort.Search(n, func(i int) bool { return !samples[i].Time.Before(t) })
	if i < n && samples[i].Time.Equal(t) {
		return samples[i].Value
	}
	if i == 0 {
		return samples[0].Value
	}
	if i == n {
		return samples[n-1].Value
	}
	prev, next := samples[i-1], samples[i]
	span := next.Time.Sub(prev.Time).Seconds()
	if span <= 0 {
		return next.Value
	}
	frac := t.Sub(prev.Time).Seconds() / span
	return prev.Value + (next.Value-prev.Value)*frac
}

// snapNearest returns the value of the sample nearest to t when it lies within
// tolerance.
func snapNearest(samples []activity.Sample, t time.Time, tolerance time.Duration) (float64, bool) {
	n := len(samples)
	i := sort.Search(n, func(i int) bool { return !samples[i].Time.Before(t) })
	best := -1
	var bestDelta time.Duration
	if i < n {
		best = i
		bestDelta = samples[i].Time.Sub(t)
	}
	if i > 0 {
		if d := t.Sub(samples[i-1].Time); best < 0 || d < bestDelta {
			best = i - 1
			bestDelta = d
		}
	}
	if best < 0 || bestDelta > tolerance {
		return 0, false
	}
	return samples[best].Value, true
}

func copyPoint(p activity.GeoPoint) activity.GeoPoint {
	if p.Elevation != nil {
		p.Elevation = activity.FloatPtr(*p.Elevation)
	}
	return p
}
