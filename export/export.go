// Package export flattens an activity into per-timestamp rows and writes them
// out as CSV or Parquet alongside a JSON manifest describing the export.
package export

import (
	"time"

	"github.com/thecloudseeker/activity-files-sub000/activity"
	"github.com/thecloudseeker/activity-files-sub000/align"
)

// Row is one flattened sample: everything known about the activity at a single
// instant, with channel values resolved through the alignment engine. Nil
// means no sample inside tolerance at that instant.
type Row struct {
	TSUTCISO  string    `json:"ts_utc_iso"`
	Timestamp time.Time `json:"-"`
	ElapsedS  float64   `json:"elapsed_s"`

	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	ElevationM *float64 `json:"elevation_m,omitempty"`

	HRBPM        *float64 `json:"hr_bpm,omitempty"`
	CadenceRPM   *float64 `json:"cadence_rpm,omitempty"`
	PowerW       *float64 `json:"power_w,omitempty"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	SpeedMPS     *float64 `json:"speed_mps,omitempty"`
	DistanceM    *float64 `json:"distance_m,omitempty"`
	PaceSPerKM   *float64 `json:"pace_s_per_km,omitempty"`
}

// Flatten projects an activity onto its point timeline (or, without points,
// the union of channel timestamps) and resolves every built-in channel at each
// instant. Rows come back in timeline order.
func Flatten(a *activity.RawActivity, tolerances align.Tolerances) []Row {
	if a == nil {
		return nil
	}

	var timeline []time.Time
	usePoints := len(a.Points) > 0
	if usePoints {
		timeline = make([]time.Time, len(a.Points))
		for i, p := range a.Points {
			timeline[i] = p.Time
		}
	} else {
		timeline = a.ChannelTimeline()
	}
	if len(timeline) == 0 {
		return nil
	}

	eng := align.New(a.Channels, tolerances)
	first := timeline[0]

	rows := make([]Row, 0, len(timeline))
	for i, ts := range timeline {
		row := Row{
			TSUTCISO:  ts.UTC().Format(time.RFC3339),
			Timestamp: ts,
			ElapsedS:  ts.Sub(first).Seconds(),
		}
		if usePoints {
			p := a.Points[i]
			lat, lon := p.Lat, p.Lon
			row.Lat = &lat
			row.Lon = &lon
			if p.Elevation != nil {
				e := *p.Elevation
				row.ElevationM = &e
			}
		}
		row.HRBPM = resolved(eng, activity.ChannelHeartRate, ts)
		row.CadenceRPM = resolved(eng, activity.ChannelCadence, ts)
		row.PowerW = resolved(eng, activity.ChannelPower, ts)
		row.TemperatureC = resolved(eng, activity.ChannelTemperature, ts)
		row.SpeedMPS = resolved(eng, activity.ChannelSpeed, ts)
		row.DistanceM = resolved(eng, activity.ChannelDistance, ts)
		if pace, ok := eng.PaceSecondsPerKM(ts); ok {
			row.PaceSPerKM = &pace
		}
		rows = append(rows, row)
	}
	return rows
}

func resolved(eng *align.Engine, ch activity.Channel, ts time.Time) *float64 {
	r, ok := eng.Resolve(ch, ts)
	if !ok {
		return nil
	}
	v := r.Value
	return &v
}
