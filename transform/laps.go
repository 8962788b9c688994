package transform

import (
	"fmt"
	"math"

	"github.com/thecloudseeker/activity-files-sub000/activity"
)

// MarkLapsByDistance rebuilds the lap list by walking the distance channel
// with a normalized running total that accumulates only non-negative deltas,
// tolerating resets and pauses that make the raw channel non-monotonic. A lap
// is emitted each time the normalized total crosses a multiple of meters, plus
// a trailing partial lap for any positive remainder. With no distance channel
// but a point timeline present, the result degenerates to one whole-activity
// lap. Assumes time-ordered samples.
func MarkLapsByDistance(a *activity.RawActivity, meters float64) (*activity.RawActivity, error) {
	if meters <= 0 {
		return nil, fmt.Errorf("mark laps: meters must be positive, got %v", meters)
	}
	out := a.Clone()

	samples := out.Channels[activity.ChannelDistance]
	if len(samples) == 0 {
		start, end, ok := out.TimeBounds()
		if !ok {
			out.Laps = nil
			return out, nil
		}
		out.Laps = []activity.Lap{{Start: start, End: end}}
		return out, nil
	}

	laps := make([]activity.Lap, 0, 4)
	lapStart := samples[0].Time
	lapStartTotal := 0.0
	normalized := 0.0
	prevRaw := samples[0].Value
	nextBoundary := meters

	for _, s := range samples {
		if delta := s.Value - prevRaw; delta > 0 {
			normalized += delta
		}
		prevRaw = s.Value

		for normalized >= nextBoundary {
			laps = append(laps, activity.Lap{
				Start:    lapStart,
				End:      s.Time,
				Distance: activity.FloatPtr(nextBoundary - lapStartTotal),
			})
			lapStart = s.Time
			lapStartTotal = nextBoundary
			nextBoundary += meters
		}
	}

	if remainder := normalized - lapStartTotal; remainder > 0 {
		last := samples[len(samples)-1]
		laps = append(laps, activity.Lap{
			Start:    lapStart,
			End:      last.Time,
			Distance: activity.FloatPtr(remainder),
		})
	}

	out.Laps = laps
	return out, nil
}

// lapDistanceSum is shared by tests to check reset-tolerant accumulation.
func lapDistanceSum(laps []activity.Lap) float64 {
	total := 0.0
	for _, l := range laps {
		if l.Distance != nil {
			total += *l.Distance
		}
	}
	return math.Round(total*1e6) / 1e6
}
