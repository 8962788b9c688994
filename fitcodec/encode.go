package fitcodec

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/thecloudseeker/activity-files-sub000/activity"
	"github.com/thecloudseeker/activity-files-sub000/align"
	"github.com/thecloudseeker/activity-files-sub000/diag"
)

// Local message slots assigned by the encoder. The decoder is slot-agnostic;
// these are an internal convention, one slot per message kind.
const (
	localFileID  byte = 0
	localSession byte = 1
	localLap     byte = 2
	localRecord  byte = 3
)

// EncodeOptions configures an encode call.
type EncodeOptions struct {
	// Tolerances drives nearest-sample resolution when projecting channel
	// series onto the record timeline. Zero value means align.DefaultTolerance.
	Tolerances align.Tolerances
}

// Wire scales and sentinels for the record fields the encoder emits.
const (
	sentinelUint8      = 0xFF
	sentinelSint8      = 0x7F
	sentinelUint16     = 0xFFFF
	sentinelSint32     = 0x7FFFFFFF
	protocolVersion20  = 0x20
	profileVersion     = 2132
	distanceScaleCM    = 100.0
	speedScaleMMPerSec = 1000.0
	lapTimeScaleMS     = 1000.0
)

var builtinChannels = map[activity.Channel]bool{
	activity.ChannelHeartRate:   true,
	activity.ChannelCadence:     true,
	activity.ChannelPower:       true,
	activity.ChannelTemperature: true,
	activity.ChannelSpeed:       true,
	activity.ChannelDistance:    true,
}

// Encode serializes an activity to a FIT byte buffer: a 14-byte header, a
// file_id message, an optional session, one lap message per lap, one record
// message per timeline instant and a trailing CRC. Channel series are
// projected onto the record timeline through an align.Engine; an instant with
// no sample inside tolerance gets that field's sentinel. Activities without
// points emit records on the union of channel timestamps with position
// sentinels. Custom channels have no FIT field and are reported as info
// diagnostics, never an error.
func Encode(a *activity.RawActivity, opts EncodeOptions) ([]byte, []diag.Diagnostic, error) {
	if a == nil {
		return nil, nil, formatErrorf(0, "nil activity")
	}
	sink := &diag.Sink{}

	for ch := range a.Channels {
		if !builtinChannels[ch] && len(a.Channels[ch]) > 0 {
			sink.Addf(diag.SeverityInfo, "channel_not_representable",
				"channel %q has no record field and was not encoded", ch.Key())
		}
	}

	w := &wireWriter{}
	timeline, points := encodeTimeline(a)

	writeFileID(w, a, timeline)
	writeSession(w, a)
	writeLaps(w, a, sink)
	writeRecords(w, a, opts, timeline, points, sink)

	body := w.buf.Bytes()
	header := make([]byte, headerSizeCRC)
	header[0] = headerSizeCRC
	header[1] = protocolVersion20
	binary.LittleEndian.PutUint16(header[2:4], profileVersion)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(body)))
	copy(header[8:12], ".FIT")
	binary.LittleEndian.PutUint16(header[12:14], Checksum(header[:12]))

	out := make([]byte, 0, len(header)+len(body)+trailerSize)
	out = append(out, header...)
	out = append(out, body...)
	crc := Checksum(out)
	out = append(out, byte(crc), byte(crc>>8))
	return out, sink.Items(), nil
}

// encodeTimeline picks the record timeline: point timestamps when the activity
// has points, otherwise the sorted union of channel timestamps. points is nil
// in the sensor-only case.
func encodeTimeline(a *activity.RawActivity) ([]time.Time, []activity.GeoPoint) {
	if len(a.Points) > 0 {
		ts := make([]time.Time, len(a.Points))
		for i, p := range a.Points {
			ts[i] = p.Time
		}
		return ts, a.Points
	}
	return a.ChannelTimeline(), nil
}

func writeFileID(w *wireWriter, a *activity.RawActivity, timeline []time.Time) {
	fields := []fieldDef{
		{number: fieldFileIDType, size: 1, base: baseEnum},
		{number: fieldFileIDManufacturer, size: 2, base: baseUint16},
		{number: fieldFileIDProduct, size: 2, base: baseUint16},
		{number: fieldFileIDSerial, size: 4, base: baseUint32z},
		{number: fieldFileIDTimeCreated, size: 4, base: baseUint32},
	}
	w.definition(localFileID, mesgFileID, fields)

	manufacturer := uint16(sentinelUint16)
	product := uint16(sentinelUint16)
	var serial uint32
	if dev := a.Device; dev != nil {
		switch {
		case dev.FITManufacturerID != nil:
			manufacturer = *dev.FITManufacturerID
		case dev.Manufacturer != "":
			if id, ok := manufacturerID(dev.Manufacturer); ok {
				manufacturer = id
			}
		}
		if dev.FITProductID != nil {
			product = *dev.FITProductID
		}
		if dev.Serial != "" {
			if v, err := strconv.ParseUint(dev.Serial, 10, 32); err == nil {
				serial = uint32(v)
			}
		}
	}
	if manufacturer == sentinelUint16 && a.Creator != "" {
		if id, ok := manufacturerID(a.Creator); ok {
			manufacturer = id
		}
	}
	created := uint32(invalidUint32)
	if len(timeline) > 0 {
		created = toFITTime(timeline[0])
	}

	w.u8(localFileID)
	w.u8(fileTypeActivity)
	w.u16(manufacturer)
	w.u16(product)
	w.u32(serial)
	w.u32(created)
}

func writeSession(w *wireWriter, a *activity.RawActivity) {
	if a.Sport == "" {
		return
	}
	w.definition(localSession, mesgSession, []fieldDef{
		{number: fieldSessionSport, size: 1, base: baseEnum},
	})
	w.u8(localSession)
	w.u8(sportCode(a.Sport))
}

func writeLaps(w *wireWriter, a *activity.RawActivity, sink *diag.Sink) {
	if len(a.Laps) == 0 {
		return
	}
	w.definition(localLap, mesgLap, []fieldDef{
		{number: fieldLapStartTime, size: 4, base: baseUint32},
		{number: fieldLapElapsedTime, size: 4, base: baseUint32},
		{number: fieldLapTotalDistance, size: 4, base: baseUint32},
	})
	for i, lap := range a.Laps {
		elapsed := lap.End.Sub(lap.Start)
		if elapsed < 0 {
			sink.AddRef(diag.SeverityWarning, "lap_negative_duration",
				"lap ends before it starts; elapsed clamped to zero", "lap", i, "")
			elapsed = 0
		}
		distance := uint32(invalidUint32)
		if lap.Distance != nil && *lap.Distance >= 0 {
			distance = clampUint32(math.Round(*lap.Distance * distanceScaleCM))
		}
		w.u8(localLap)
		w.u32(toFITTime(lap.Start))
		w.u32(clampUint32(math.Round(elapsed.Seconds() * lapTimeScaleMS)))
		w.u32(distance)
	}
}

func writeRecords(w *wireWriter, a *activity.RawActivity, opts EncodeOptions,
	timeline []time.Time, points []activity.GeoPoint, sink *diag.Sink) {
	if len(timeline) == 0 {
		return
	}

	hasElevation := false
	for _, p := range points {
		if p.Elevation != nil {
			hasElevation = true
			break
		}
	}
	hasChannel := func(ch activity.Channel) bool { return len(a.Channels[ch]) > 0 }

	fields := []fieldDef{
		{number: fieldRecordTimestamp, size: 4, base: baseUint32},
		{number: fieldRecordPositionLat, size: 4, base: baseSint32},
		{number: fieldRecordPositionLong, size: 4, base: baseSint32},
	}
	if hasElevation {
		fields = append(fields, fieldDef{number: fieldRecordAltitude, size: 2, base: baseUint16})
	}
	if hasChannel(activity.ChannelHeartRate) {
		fields = append(fields, fieldDef{number: fieldRecordHeartRate, size: 1, base: baseUint8})
	}
	if hasChannel(activity.ChannelCadence) {
		fields = append(fields, fieldDef{number: fieldRecordCadence, size: 1, base: baseUint8})
	}
	if hasChannel(activity.ChannelDistance) {
		fields = append(fields, fieldDef{number: fieldRecordDistance, size: 4, base: baseUint32})
	}
	if hasChannel(activity.ChannelSpeed) {
		fields = append(fields, fieldDef{number: fieldRecordSpeed, size: 2, base: baseUint16})
	}
	if hasChannel(activity.ChannelPower) {
		fields = append(fields, fieldDef{number: fieldRecordPower, size: 2, base: baseUint16})
	}
	if hasChannel(activity.ChannelTemperature) {
		fields = append(fields, fieldDef{number: fieldRecordTemperature, size: 1, base: baseSint8})
	}
	w.definition(localRecord, mesgRecord, fields)

	eng := align.New(a.Channels, opts.Tolerances)
	for i, ts := range timeline {
		wire := toFITTime(ts)
		if wire == invalidUint32 {
			sink.AddRef(diag.SeverityWarning, "timestamp_unrepresentable",
				"instant precedes the FIT epoch; record skipped", "record", i, ts.UTC().String())
			continue
		}
		w.u8(localRecord)
		for _, f := range fields {
			switch f.number {
			case fieldRecordTimestamp:
				w.u32(wire)
			case fieldRecordPositionLat:
				if points != nil {
					w.i32(degreesToSemicircles(points[i].Lat))
				} else {
					w.i32(sentinelSint32)
				}
			case fieldRecordPositionLong:
				if points != nil {
					w.i32(degreesToSemicircles(points[i].Lon))
				} else {
					w.i32(sentinelSint32)
				}
			case fieldRecordAltitude:
				alt := uint16(sentinelUint16)
				if points != nil && points[i].Elevation != nil {
					if v, ok := altitudeToWire(*points[i].Elevation); ok {
						alt = v
					} else {
						sink.AddRef(diag.SeverityWarning, "altitude_out_of_range",
							"elevation outside the encodable range; sentinel written", "record", i, "")
					}
				}
				w.u16(alt)
			case fieldRecordHeartRate:
				w.u8(resolveUint8(eng, activity.ChannelHeartRate, ts))
			case fieldRecordCadence:
				w.u8(resolveUint8(eng, activity.ChannelCadence, ts))
			case fieldRecordDistance:
				if r, ok := eng.Resolve(activity.ChannelDistance, ts); ok && r.Value >= 0 {
					w.u32(clampUint32(math.Round(r.Value * distanceScaleCM)))
				} else {
					w.u32(invalidUint32)
				}
			case fieldRecordSpeed:
				if r, ok := eng.Resolve(activity.ChannelSpeed, ts); ok && r.Value >= 0 {
					w.u16(clampUint16(math.Round(r.Value * speedScaleMMPerSec)))
				} else {
					w.u16(sentinelUint16)
				}
			case fieldRecordPower:
				if r, ok := eng.Resolve(activity.ChannelPower, ts); ok && r.Value >= 0 {
					w.u16(clampUint16(math.Round(r.Value)))
				} else {
					w.u16(sentinelUint16)
				}
			case fieldRecordTemperature:
				if r, ok := eng.Resolve(activity.ChannelTemperature, ts); ok {
					w.u8(byte(clampSint8(math.Round(r.Value))))
				} else {
					w.u8(sentinelSint8)
				}
			}
		}
	}
}

func resolveUint8(eng *align.Engine, ch activity.Channel, ts time.Time) byte {
	r, ok := eng.Resolve(ch, ts)
	if !ok || r.Value < 0 {
		return sentinelUint8
	}
	v := math.Round(r.Value)
	if v > 0xFE {
		return 0xFE
	}
	return byte(v)
}

func clampUint32(v float64) uint32 {
	if v < 0 {
		return 0
	}
	if v >= float64(invalidUint32) {
		return invalidUint32 - 1
	}
	return uint32(v)
}

func clampUint16(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v >= sentinelUint16 {
		return sentinelUint16 - 1
	}
	return uint16(v)
}

func clampSint8(v float64) int8 {
	if v < math.MinInt8 {
		return math.MinInt8
	}
	if v >= sentinelSint8 {
		return sentinelSint8 - 1
	}
	return int8(v)
}

// wireWriter emits the little-endian record stream. All encoder output goes
// through it so byte order lives in one place.
type wireWriter struct {
	buf bytes.Buffer
}

func (w *wireWriter) u8(v byte) { w.buf.WriteByte(v) }

func (w *wireWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *wireWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *wireWriter) i32(v int32) { w.u32(uint32(v)) }

// definition writes a little-endian definition record for the given slot.
func (w *wireWriter) definition(local byte, global uint16, fields []fieldDef) {
	w.u8(headerDefinitionMask | local)
	w.u8(0) // reserved
	w.u8(0) // little-endian
	w.u16(global)
	w.u8(byte(len(fields)))
	for _, f := range fields {
		w.u8(f.number)
		w.u8(f.size)
		w.u8(byte(f.base))
	}
}
