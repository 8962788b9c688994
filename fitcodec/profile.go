package fitcodec

import (
	"math"
	"time"
)

// Global message numbers the codec interprets. Anything else is consumed by
// declared byte length and skipped.
const (
	mesgFileID  = 0
	mesgSession = 18
	mesgLap     = 19
	mesgRecord  = 20
)

// file_id fields.
const (
	fieldFileIDType         = 0
	fieldFileIDManufacturer = 1
	fieldFileIDProduct      = 2
	fieldFileIDSerial       = 3
	fieldFileIDTimeCreated  = 4
)

// session fields.
const fieldSessionSport = 5

// lap fields.
const (
	fieldLapStartTime     = 2
	fieldLapElapsedTime   = 7
	fieldLapTotalDistance = 9
)

// record fields.
const (
	fieldRecordPositionLat  = 0
	fieldRecordPositionLong = 1
	fieldRecordAltitude     = 2
	fieldRecordHeartRate    = 3
	fieldRecordCadence      = 4
	fieldRecordDistance     = 5
	fieldRecordSpeed        = 6
	fieldRecordPower        = 7
	fieldRecordTemperature  = 13
	fieldRecordTimestamp    = 253
)

const fileTypeActivity = 4

var fitEpoch = time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)

const invalidUint32 = 0xFFFFFFFF

// toFITTime converts a UTC instant to seconds since the FIT epoch, returning
// the uint32 sentinel for instants the format cannot carry.
func toFITTime(t time.Time) uint32 {
	if t.IsZero() || t.Before(fitEpoch) {
		return invalidUint32
	}
	s := t.Sub(fitEpoch) / time.Second
	if s >= invalidUint32 {
		return invalidUint32
	}
	return uint32(s)
}

// fromFITTime converts seconds since the FIT epoch to a UTC instant.
func fromFITTime(ts uint32) time.Time {
	return fitEpoch.Add(time.Duration(ts) * time.Second)
}

const semicirclesPerDegree = float64(1<<31) / 180.0

func semicirclesToDegrees(v int32) float64 {
	return float64(v) / semicirclesPerDegree
}

func degreesToSemicircles(deg float64) int32 {
	s := math.Round(deg * semicirclesPerDegree)
	if s > math.MaxInt32 {
		return math.MaxInt32
	}
	if s < math.MinInt32 {
		return math.MinInt32
	}
	return int32(s)
}

// Altitude wire scale: stored = (meters + 500) * 5, sentinel 0xFFFF.
func altitudeToWire(meters float64) (uint16, bool) {
	v := math.Round((meters + 500) * 5)
	if v < 0 || v >= 0xFFFF {
		return 0, false
	}
	return uint16(v), true
}

func altitudeFromWire(v uint16) float64 {
	return float64(v)/5.0 - 500.0
}

// Sport enum values understood on both paths; anything else round-trips as
// "generic".
var sportNames = map[int64]string{
	0:  "generic",
	1:  "running",
	2:  "cycling",
	5:  "swimming",
	11: "walking",
	17: "hiking",
}

var sportCodes = func() map[string]byte {
	out := make(map[string]byte, len(sportNames))
	for code, name := range sportNames {
		out[name] = byte(code)
	}
	return out
}()

func sportName(code int64) string {
	if name, ok := sportNames[code]; ok {
		return name
	}
	return "generic"
}

func sportCode(name string) byte {
	if code, ok := sportCodes[name]; ok {
		return code
	}
	return 0
}

// Manufacturer ids from the FIT profile, the subset this codec names. Explicit
// numeric ids on DeviceMetadata take precedence over this lookup.
var manufacturerNames = map[uint16]string{
	1:   "garmin",
	23:  "suunto",
	32:  "wahoo_fitness",
	260: "zwift",
	265: "strava",
}

var manufacturerIDs = func() map[string]uint16 {
	out := make(map[string]uint16, len(manufacturerNames))
	for id, name := range manufacturerNames {
		out[name] = id
	}
	return out
}()

func manufacturerName(id uint16) string {
	if name, ok := manufacturerNames[id]; ok {
		return name
	}
	return ""
}

func manufacturerID(name string) (uint16, bool) {
	id, ok := manufacturerIDs[name]
	return id, ok
}
