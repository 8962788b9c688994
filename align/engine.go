// Package align resolves nearest-in-time multi-channel readings against query
// timestamps. Each channel keeps an independent cursor so that querying in
// increasing time order, the common case while walking a sorted point
// timeline, costs amortized O(1) per query; backward queries reposition via
// binary search.
package align

import (
	"sort"
	"time"

	"github.com/thecloudseeker/activity-files-sub000/activity"
)

// DefaultTolerance is the matching window used for channels without an
// explicit per-channel tolerance.
const DefaultTolerance = 5 * time.Second

// Tolerances configures per-channel matching windows with a shared default.
type Tolerances struct {
	Default    time.Duration
	PerChannel map[activity.Channel]time.Duration
}

// For returns the tolerance for ch, falling back to Default, falling back to
// DefaultTolerance.
func (t Tolerances) For(ch activity.Channel) time.Duration {
	if d, ok := t.PerChannel[ch]; ok && d > 0 {
		return d
	}
	if t.Default > 0 {
		return t.Default
	}
	return DefaultTolerance
}

// Reading is one resolved channel value: the sample value and the absolute
// time distance between the sample and the query timestamp.
type Reading struct {
	Value float64
	Delta time.Duration
}

// Engine resolves nearest samples per channel. An Engine owns its cursors and
// must not be shared across concurrent queries; build one per consumer.
type Engine struct {
	tolerances Tolerances
	series     map[activity.Channel]*cursor
}

type cursor struct {
	samples []activity.Sample
	idx     int
	last    time.Time
	primed  bool
}

// New builds an engine over a fixed channel map. The sample slices must be
// time-ordered; they are referenced, not copied, and must not be mutated while
// the engine is in use.
func New(channels map[activity.Channel][]activity.Sample, tolerances Tolerances) *Engine {
	series := make(map[activity.Channel]*cursor, len(channels))
	for ch, samples := range channels {
		if len(samples) == 0 {
			continue
		}
		series[ch] = &cursor{samples: samples}
	}
	return &Engine{tolerances: tolerances, series: series}
}

// Snapshot resolves the nearest reading per channel at ts. Channels whose
// nearest sample falls outside their tolerance are absent from the result.
func (e *Engine) Snapshot(ts time.Time) map[activity.Channel]Reading {
	out := make(map[activity.Channel]Reading, len(e.series))
	for ch, cur := range e.series {
		if r, ok := cur.resolve(ts, e.tolerances.For(ch)); ok {
			out[ch] = r
		}
	}
	return out
}

// Resolve returns the nearest reading for a single channel at ts.
func (e *Engine) Resolve(ch activity.Channel, ts time.Time) (Reading, bool) {
	cur, ok := e.series[ch]
	if !ok {
		return Reading{}, false
	}
	return cur.resolve(ts, e.tolerances.For(ch))
}

// PaceSecondsPerKM derives pace from the speed channel at ts. It is defined
// only when a speed reading is present, positive and within tolerance.
func (e *Engine) PaceSecondsPerKM(ts time.Time) (float64, bool) {
	r, ok := e.Resolve(activity.ChannelSpeed, ts)
	if !ok || r.Value <= 0 {
		return 0, false
	}
	return 1000.0 / r.Value, true
}

func (c *cursor) resolve(ts time.Time, tolerance time.Duration) (Reading, bool) {
	n := len(c.samples)

	if c.primed && !ts.Before(c.last) {
		// Monotone query: walk the cursor forward while the next sample is
		// still earlier than the query.
		for c.idx < n && c.samples[c.idx].Time.Before(ts) {
			c.idx++
		}
	} else {
		// Backward (or first) query: lower bound via binary search.
		c.idx = sort.Search(n, func(i int) bool {
			return !c.samples[i].Time.Before(ts)
		})
	}
	c.last = ts
	c.primed = true

	// Candidate at the cursor and the one just before it; keep the closer.
	best := -1
	var bestDelta time.Duration
	if c.idx < n {
		best = c.idx
		bestDelta = absDuration(c.samples[c.idx].Time.Sub(ts))
	}
	if c.idx > 0 {
		d := absDuration(c.samples[c.idx-1].Time.Sub(ts))
		if best < 0 || d < bestDelta {
			best = c.idx - 1
			bestDelta = d
		}
	}
	if best < 0 || bestDelta > tolerance {
		return Reading{}, false
	}
	return Reading{Value: c.samples[best].Value, Delta: bestDelta}, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
