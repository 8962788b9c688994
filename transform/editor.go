package transform

import (
	"time"

	"github.com/thecloudseeker/activity-files-sub000/activity"
)

// Editor chains transforms over a single current aggregate. Each step replaces
// the wrapped reference wholesale; no partial mutation of shared
// substructures ever happens. The first failing step latches its error and
// turns the remaining steps into no-ops; Result surfaces it.
type Editor struct {
	current *activity.RawActivity
	err     error
}

// NewEditor starts an editing chain from a. The input aggregate is never
// mutated; the first transform applied operates on a defensive copy.
func NewEditor(a *activity.RawActivity) *Editor {
	return &Editor{current: a}
}

// Result returns the current aggregate and the first error raised by any step.
func (e *Editor) Result() (*activity.RawActivity, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.current, nil
}

// SortAndDedup applies SortAndDedup.
func (e *Editor) SortAndDedup() *Editor {
	if e.err == nil {
		e.current = SortAndDedup(e.current)
	}
	return e
}

// TrimInvalid applies TrimInvalid.
func (e *Editor) TrimInvalid() *Editor {
	if e.err == nil {
		e.current = TrimInvalid(e.current)
	}
	return e
}

// Crop applies Crop.
func (e *Editor) Crop(start, end time.Time) *Editor {
	if e.err == nil {
		e.current, e.err = Crop(e.current, start, end)
	}
	return e
}

// ShiftTime applies ShiftTime.
func (e *Editor) ShiftTime(delta time.Duration) *Editor {
	if e.err == nil {
		e.current = ShiftTime(e.current, delta)
	}
	return e
}

// DownsampleTime applies DownsampleTime.
func (e *Editor) DownsampleTime(step time.Duration) *Editor {
	if e.err == nil {
		e.current, e.err = DownsampleTime(e.current, step)
	}
	return e
}

// DownsampleDistance applies DownsampleDistance.
func (e *Editor) DownsampleDistance(meters float64) *Editor {
	if e.err == nil {
		e.current, e.err = DownsampleDistance(e.current, meters)
	}
	return e
}

// SmoothHeartRate applies SmoothHeartRate.
func (e *Editor) SmoothHeartRate(window int) *Editor {
	if e.err == nil {
		e.current = SmoothHeartRate(e.current, window)
	}
	return e
}

// RecomputeDistanceAndSpeed applies RecomputeDistanceAndSpeed.
func (e *Editor) RecomputeDistanceAndSpeed() *Editor {
	if e.err == nil {
		e.current = RecomputeDistanceAndSpeed(e.current)
	}
	return e
}

// MarkLapsByDistance applies MarkLapsByDistance.
func (e *Editor) MarkLapsByDistance(meters float64) *Editor {
	if e.err == nil {
		e.current, e.err = MarkLapsByDistance(e.current, meters)
	}
	return e
}

// Resample applies Resample.
func (e *Editor) Resample(step time.Duration) *Editor {
	if e.err == nil {
		e.current, e.err = Resample(e.current, step)
	}
	return e
}
