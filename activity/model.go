// Package activity defines the unified in-memory representation of a GPS/sensor
// workout recording. A RawActivity is immutable by contract: codecs and
// transforms always hand back a fresh aggregate and never mutate one that has
// been given to a caller.
package activity

import (
	"sort"
	"strings"
	"time"
)

// GeoPoint is one geographic sample on the point timeline. Latitude and
// longitude are degrees; no range check happens at construction, validity is a
// transform-time concern.
type GeoPoint struct {
	Lat       float64
	Lon       float64
	Elevation *float64
	Time      time.Time
}

// Sample is a scalar sensor reading at an instant, belonging to exactly one
// channel.
type Sample struct {
	Time  time.Time
	Value float64
}

// Channel identifies a named time series of sensor readings. Equality and map
// hashing go by the normalized key only, so a Custom("Heart_Rate") never
// collides with the built-in heart rate channel but Custom("POWER") equals
// Custom("power").
type Channel struct {
	key string
}

// Built-in channels.
var (
	ChannelHeartRate   = Channel{key: "heart_rate"}
	ChannelCadence     = Channel{key: "cadence"}
	ChannelPower       = Channel{key: "power"}
	ChannelTemperature = Channel{key: "temperature"}
	ChannelSpeed       = Channel{key: "speed"}
	ChannelDistance    = Channel{key: "distance"}
)

// CustomChannel builds a channel from a free-form name, normalized to a
// trimmed lowercase key.
func CustomChannel(name string) Channel {
	return Channel{key: strings.ToLower(strings.TrimSpace(name))}
}

// Key returns the normalized identifier.
func (c Channel) Key() string { return c.key }

// IsZero reports whether the channel has an empty identifier.
func (c Channel) IsZero() bool { return c.key == "" }

func (c Channel) String() string { return c.key }

// Lap is a sub-interval of the activity. End > Start is a validation-time
// invariant, not enforced at construction.
type Lap struct {
	Start    time.Time
	End      time.Time
	Distance *float64
	Name     string
}

// DeviceMetadata describes the recording device. When the explicit FIT numeric
// identifiers are set they take precedence over name-based lookup during
// encoding.
type DeviceMetadata struct {
	Manufacturer string
	Model        string
	Product      string
	Serial       string
	Firmware     string

	FITManufacturerID *uint16
	FITProductID      *uint16
}

// ExtensionNode is an opaque namespaced tree carried through for round-tripping
// format-specific extensions. The core never interprets it.
type ExtensionNode struct {
	Name         string
	Prefix       string
	NamespaceURI string
	Text         string
	Attributes   map[string]string
	Children     []ExtensionNode
}

// RawActivity is the aggregate root: an ordered point sequence, per-channel
// ordered sample sequences, laps, classification and descriptive metadata.
// Points and samples are conventionally time-ordered; each transform documents
// whether it requires, assumes, or restores that order.
type RawActivity struct {
	Points   []GeoPoint
	Channels map[Channel][]Sample
	Laps     []Lap

	Sport   string
	Creator string
	Device  *DeviceMetadata

	// GPX-oriented descriptive fields.
	Name        string
	Description string

	Extensions []ExtensionNode
}

// Clone returns a deep copy. Every nested collection is copied so the clone
// shares no mutable state with the receiver.
func (a *RawActivity) Clone() *RawActivity {
	if a == nil {
		return nil
	}
	out := &RawActivity{
		Sport:       a.Sport,
		Creator:     a.Creator,
		Name:        a.Name,
		Description: a.Description,
	}
	if a.Points != nil {
		out.Points = make([]GeoPoint, len(a.Points))
		for i, p := range a.Points {
			out.Points[i] = p.clone()
		}
	}
	if a.Channels != nil {
		out.Channels = make(map[Channel][]Sample, len(a.Channels))
		for ch, samples := range a.Channels {
			out.Channels[ch] = append([]Sample(nil), samples...)
		}
	}
	if a.Laps != nil {
		out.Laps = make([]Lap, len(a.Laps))
		for i, l := range a.Laps {
			out.Laps[i] = l.clone()
		}
	}
	if a.Device != nil {
		out.Device = a.Device.clone()
	}
	if a.Extensions != nil {
		out.Extensions = make([]ExtensionNode, len(a.Extensions))
		for i, n := range a.Extensions {
			out.Extensions[i] = n.Clone()
		}
	}
	return out
}

func (p GeoPoint) clone() GeoPoint {
	if p.Elevation != nil {
		e := *p.Elevation
		p.Elevation = &e
	}
	return p
}

func (l Lap) clone() Lap {
	if l.Distance != nil {
		d := *l.Distance
		l.Distance = &d
	}
	return l
}

func (d *DeviceMetadata) clone() *DeviceMetadata {
	out := *d
	if d.FITManufacturerID != nil {
		v := *d.FITManufacturerID
		out.FITManufacturerID = &v
	}
	if d.FITProductID != nil {
		v := *d.FITProductID
		out.FITProductID = &v
	}
	return &out
}

// Clone deep-copies the node, its attribute map and children.
func (n ExtensionNode) Clone() ExtensionNode {
	out := n
	if n.Attributes != nil {
		out.Attributes = make(map[string]string, len(n.Attributes))
		for k, v := range n.Attributes {
			out.Attributes[k] = v
		}
	}
	if n.Children != nil {
		out.Children = make([]ExtensionNode, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// TimeBounds returns the first and last point timestamps. ok is false when the
// activity has no points.
func (a *RawActivity) TimeBounds() (start, end time.Time, ok bool) {
	if a == nil || len(a.Points) == 0 {
		return time.Time{}, time.Time{}, false
	}
	start = a.Points[0].Time
	end = a.Points[0].Time
	for _, p := range a.Points[1:] {
		if p.Time.Before(start) {
			start = p.Time
		}
		if p.Time.After(end) {
			end = p.Time
		}
	}
	return start, end, true
}

// ChannelTimeline returns the sorted union of all channel sample timestamps.
// Used as a synthetic point timeline for sensor-only activities.
func (a *RawActivity) ChannelTimeline() []time.Time {
	if a == nil || len(a.Channels) == 0 {
		return nil
	}
	seen := make(map[int64]time.Time)
	for _, samples := range a.Channels {
		for _, s := range samples {
			seen[s.Time.UnixNano()] = s.Time
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// FloatPtr is a convenience for building optional numeric fields.
func FloatPtr(v float64) *float64 { return &v }
