// Package fitcodec decodes and encodes the FIT binary activity format: a
// self-describing, CRC-protected record stream with per-session message
// definitions and sentinel-encoded optional fields. The codec works over fully
// materialized byte buffers, performs no I/O, and reports recoverable
// anomalies through the diag package while raising typed FormatErrors for
// input too malformed to establish structure.
package fitcodec

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/thecloudseeker/activity-files-sub000/activity"
	"github.com/thecloudseeker/activity-files-sub000/diag"
)

// Record header bit layout.
const (
	headerCompressedMask     = 0x80
	headerDefinitionMask     = 0x40
	headerDevDataMask        = 0x20
	headerLocalMask          = 0x0F
	compressedLocalMask      = 0x60
	compressedTimeOffsetMask = 0x1F
	headerSizeNoCRC          = 12
	headerSizeCRC            = 14
	trailerSize              = 2
)

// DecodeOptions configures a decode call.
type DecodeOptions struct {
	// Strict promotes CRC-mismatch and truncation diagnostics to fatal
	// FormatErrors.
	Strict bool
}

type fieldDef struct {
	number uint8
	size   uint8
	base   baseType
}

type definition struct {
	global   uint16
	arch     binary.ByteOrder
	fields   []fieldDef
	devBytes int
}

type decoder struct {
	body     []byte
	sink     *diag.Sink
	defs     map[uint8]*definition
	lastTS   uint32
	lastTSOK bool
	lastOff  int32

	act      *activity.RawActivity
	channels map[activity.Channel][]activity.Sample
}

// Decode parses a FIT byte buffer into an activity plus accumulated
// diagnostics. Structural failures (short header, wrong tag) return a
// *FormatError and no model; recoverable anomalies (unknown messages,
// non-strict CRC mismatches, records without a prior definition) become
// diagnostics on a best-effort result. A data record whose local slot has no
// definition cannot be sized; the decoder notes it and resumes at the next
// byte, which can desynchronize the remainder of the stream.
func Decode(data []byte, opts DecodeOptions) (*activity.RawActivity, []diag.Diagnostic, error) {
	sink := &diag.Sink{}

	if len(data) == 0 {
		return nil, nil, formatErrorf(0, "empty buffer")
	}
	headerSize := int(data[0])
	if headerSize < headerSizeNoCRC {
		return nil, nil, formatErrorf(0, "header size %d below minimum %d", headerSize, headerSizeNoCRC)
	}
	if len(data) < headerSize {
		return nil, nil, formatErrorf(0, "buffer shorter than declared header (%d < %d)", len(data), headerSize)
	}
	if tag := string(data[8:12]); tag != ".FIT" {
		return nil, nil, formatErrorf(8, "bad data-type tag %q", tag)
	}
	dataSize := int(binary.LittleEndian.Uint32(data[4:8]))

	if headerSize >= headerSizeCRC {
		stored := binary.LittleEndian.Uint16(data[12:14])
		if stored != 0 && stored != Checksum(data[:12]) {
			if opts.Strict {
				return nil, nil, formatErrorf(12, "header crc mismatch")
			}
			sink.AddRef(diag.SeverityWarning, "header_crc_mismatch",
				"header CRC does not match its first 12 bytes", "header", -1, "")
		}
	}

	required := headerSize + dataSize + trailerSize
	truncated := len(data) < required
	if truncated {
		if opts.Strict {
			return nil, nil, formatErrorf(len(data), "truncated: have %d bytes, need %d", len(data), required)
		}
		sink.AddRef(diag.SeverityError, "truncated",
			fmt.Sprintf("buffer holds %d bytes but header declares %d", len(data), required), "trailer", -1, "")
	} else {
		stored := binary.LittleEndian.Uint16(data[headerSize+dataSize:])
		if stored != Checksum(data[:headerSize+dataSize]) {
			if opts.Strict {
				return nil, nil, formatErrorf(headerSize+dataSize, "file crc mismatch")
			}
			sink.AddRef(diag.SeverityError, "crc_mismatch",
				"trailer CRC does not match header+data", "trailer", -1, "")
		}
	}

	bodyEnd := headerSize + dataSize
	if bodyEnd > len(data) {
		bodyEnd = len(data)
	}

	d := &decoder{
		body:     data[headerSize:bodyEnd],
		sink:     sink,
		defs:     make(map[uint8]*definition),
		act:      &activity.RawActivity{},
		channels: make(map[activity.Channel][]activity.Sample),
	}
	d.parseRecords()

	if len(d.channels) > 0 {
		d.act.Channels = d.channels
	}
	return d.act, sink.Items(), nil
}

func (d *decoder) parseRecords() {
	pos := 0
	recordIndex := 0
	for pos < len(d.body) {
		recordIndex++
		hdr := d.body[pos]
		pos++

		switch {
		case hdr&headerCompressedMask != 0:
			local := (hdr & compressedLocalMask) >> 5
			def, ok := d.defs[local]
			if !ok {
				d.sink.AddRef(diag.SeverityError, "missing_definition",
					"compressed data record has no definition for its local slot",
					"record", recordIndex, "local slot "+strconv.Itoa(int(local)))
				continue
			}
			next, ok := d.parseData(recordIndex, pos, def, true, hdr&compressedTimeOffsetMask)
			if !ok {
				return
			}
			pos = next
		case hdr&headerDefinitionMask != 0:
			next, ok := d.parseDefinition(recordIndex, pos, hdr)
			if !ok {
				return
			}
			pos = next
		default:
			local := hdr & headerLocalMask
			def, ok := d.defs[local]
			if !ok {
				// Without a definition the record length is unknown; resume at
				// the next byte and accept the desync risk.
				d.sink.AddRef(diag.SeverityError, "missing_definition",
					"data record has no definition for its local slot",
					"record", recordIndex, "local slot "+strconv.Itoa(int(local)))
				continue
			}
			next, ok := d.parseData(recordIndex, pos, def, false, 0)
			if !ok {
				return
			}
			pos = next
		}
	}
}

// parseDefinition consumes a definition record, registering (or silently
// redefining) the local slot. Returns ok=false when the body ends mid-record.
func (d *decoder) parseDefinition(recordIndex, pos int, hdr byte) (int, bool) {
	local := hdr & headerLocalMask

	// reserved byte + architecture byte + global id + field count
	if pos+5 > len(d.body) {
		d.truncatedRecord(recordIndex)
		return 0, false
	}
	archByte := d.body[pos+1]
	var arch binary.ByteOrder
	switch archByte {
	case 0:
		arch = binary.LittleEndian
	case 1:
		arch = binary.BigEndian
	default:
		d.sink.AddRef(diag.SeverityError, "invalid_architecture",
			"definition declares an unknown architecture byte",
			"record", recordIndex, fmt.Sprintf("architecture 0x%02X", archByte))
		return 0, false
	}
	global := arch.Uint16(d.body[pos+2 : pos+4])
	numFields := int(d.body[pos+4])
	pos += 5

	if pos+numFields*3 > len(d.body) {
		d.truncatedRecord(recordIndex)
		return 0, false
	}
	fields := make([]fieldDef, numFields)
	for i := 0; i < numFields; i++ {
		raw := d.body[pos : pos+3]
		fields[i] = fieldDef{
			number: raw[0],
			size:   raw[1],
			base:   canonicalBaseType(raw[2]),
		}
		pos += 3
	}

	devBytes := 0
	if hdr&headerDevDataMask != 0 {
		if pos >= len(d.body) {
			d.truncatedRecord(recordIndex)
			return 0, false
		}
		devCount := int(d.body[pos])
		pos++
		if pos+devCount*3 > len(d.body) {
			d.truncatedRecord(recordIndex)
			return 0, false
		}
		// Developer fields are carried for byte alignment only: record their
		// total data length and skip the declarations.
		for i := 0; i < devCount; i++ {
			devBytes += int(d.body[pos+1])
			pos += 3
		}
	}

	d.defs[local] = &definition{global: global, arch: arch, fields: fields, devBytes: devBytes}
	return pos, true
}

// parseData consumes a data record using the slot's current definition.
// Returns ok=false when the body ends mid-record.
func (d *decoder) parseData(recordIndex, pos int, def *definition, compressed bool, timeOffset byte) (int, bool) {
	total := def.devBytes
	for _, f := range def.fields {
		total += int(f.size)
	}
	if pos+total > len(d.body) {
		d.truncatedRecord(recordIndex)
		return 0, false
	}

	var recordTS uint32
	recordTSOK := false
	if compressed {
		if d.lastTSOK {
			offset := int32(timeOffset)
			d.lastTS += uint32((offset - d.lastOff) & compressedTimeOffsetMask)
			d.lastOff = offset
			recordTS = d.lastTS
			recordTSOK = true
		} else {
			d.sink.AddRef(diag.SeverityWarning, "compressed_timestamp_unanchored",
				"compressed-timestamp record precedes any absolute timestamp",
				"record", recordIndex, "")
		}
	}

	values := make(map[uint8]int64, len(def.fields))
	for _, f := range def.fields {
		raw := d.body[pos : pos+int(f.size)]
		pos += int(f.size)
		v, ok := decodeScalar(raw, f.base, def.arch)
		if !ok {
			continue
		}
		if f.number == fieldRecordTimestamp {
			d.lastTS = uint32(v)
			d.lastOff = int32(d.lastTS & compressedTimeOffsetMask)
			d.lastTSOK = true
			recordTS = d.lastTS
			recordTSOK = true
		}
		values[f.number] = v
	}
	pos += def.devBytes

	switch def.global {
	case mesgFileID:
		d.applyFileID(values)
	case mesgSession:
		d.applySession(values)
	case mesgLap:
		d.applyLap(recordIndex, values)
	case mesgRecord:
		d.applyRecord(recordIndex, values, recordTS, recordTSOK)
	default:
		// Unknown global ids are expected; the declared field bytes were
		// consumed exactly, so the stream stays aligned.
	}
	return pos, true
}

func (d *decoder) applyFileID(values map[uint8]int64) {
	dev := &activity.DeviceMetadata{}
	if v, ok := values[fieldFileIDManufacturer]; ok {
		id := uint16(v)
		dev.FITManufacturerID = &id
		dev.Manufacturer = manufacturerName(id)
	}
	if v, ok := values[fieldFileIDProduct]; ok {
		id := uint16(v)
		dev.FITProductID = &id
	}
	if v, ok := values[fieldFileIDSerial]; ok {
		dev.Serial = strconv.FormatInt(v, 10)
	}
	d.act.Device = dev
	if dev.Manufacturer != "" {
		d.act.Creator = dev.Manufacturer
	}
}

func (d *decoder) applySession(values map[uint8]int64) {
	if v, ok := values[fieldSessionSport]; ok {
		d.act.Sport = sportName(v)
	}
}

func (d *decoder) applyLap(recordIndex int, values map[uint8]int64) {
	startRaw, ok := values[fieldLapStartTime]
	if !ok {
		d.sink.AddRef(diag.SeverityWarning, "lap_missing_start",
			"lap message carries no start_time; lap dropped", "record", recordIndex, "")
		return
	}
	lap := activity.Lap{Start: fromFITTime(uint32(startRaw))}
	lap.End = lap.Start
	if v, ok := values[fieldLapElapsedTime]; ok {
		// total_elapsed_time travels as milliseconds (x1000 scale).
		lap.End = lap.Start.Add(time.Duration(v) * time.Millisecond)
	}
	if v, ok := values[fieldLapTotalDistance]; ok {
		lap.Distance = activity.FloatPtr(float64(v) / 100.0)
	}
	d.act.Laps = append(d.act.Laps, lap)
}

func (d *decoder) applyRecord(recordIndex int, values map[uint8]int64, ts uint32, tsOK bool) {
	if !tsOK {
		d.sink.AddRef(diag.SeverityWarning, "record_missing_timestamp",
			"record message has no resolvable timestamp; skipped", "record", recordIndex, "")
		return
	}
	when := fromFITTime(ts)

	latRaw, latOK := values[fieldRecordPositionLat]
	lonRaw, lonOK := values[fieldRecordPositionLong]
	if latOK && lonOK {
		p := activity.GeoPoint{
			Lat:  semicirclesToDegrees(int32(latRaw)),
			Lon:  semicirclesToDegrees(int32(lonRaw)),
			Time: when,
		}
		if v, ok := values[fieldRecordAltitude]; ok {
			p.Elevation = activity.FloatPtr(altitudeFromWire(uint16(v)))
		}
		d.act.Points = append(d.act.Points, p)
	}

	if v, ok := values[fieldRecordHeartRate]; ok {
		d.addSample(activity.ChannelHeartRate, when, float64(v))
	}
	if v, ok := values[fieldRecordCadence]; ok {
		d.addSample(activity.ChannelCadence, when, float64(v))
	}
	if v, ok := values[fieldRecordPower]; ok {
		d.addSample(activity.ChannelPower, when, float64(v))
	}
	if v, ok := values[fieldRecordTemperature]; ok {
		d.addSample(activity.ChannelTemperature, when, float64(v))
	}
	if v, ok := values[fieldRecordDistance]; ok {
		d.addSample(activity.ChannelDistance, when, float64(v)/100.0)
	}
	if v, ok := values[fieldRecordSpeed]; ok {
		d.addSample(activity.ChannelSpeed, when, float64(v)/1000.0)
	}
}

func (d *decoder) addSample(ch activity.Channel, when time.Time, value float64) {
	d.channels[ch] = append(d.channels[ch], activity.Sample{Time: when, Value: value})
}

func (d *decoder) truncatedRecord(recordIndex int) {
	d.sink.AddRef(diag.SeverityError, "truncated",
		"record stream ends mid-record", "record", recordIndex, "")
}
