package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/thecloudseeker/activity-files-sub000/activity"
	"github.com/thecloudseeker/activity-files-sub000/align"
	"github.com/thecloudseeker/activity-files-sub000/diag"
)

func testActivity() *activity.RawActivity {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return &activity.RawActivity{
		Sport: "cycling",
		Points: []activity.GeoPoint{
			{Lat: 40.000, Lon: -105.000, Elevation: activity.FloatPtr(1600), Time: start},
			{Lat: 40.001, Lon: -105.001, Elevation: activity.FloatPtr(1605), Time: start.Add(5 * time.Second)},
		},
		Channels: map[activity.Channel][]activity.Sample{
			activity.ChannelHeartRate: {
				{Time: start, Value: 140},
				{Time: start.Add(5 * time.Second), Value: 145},
			},
			activity.ChannelSpeed: {
				{Time: start.Add(5 * time.Second), Value: 2.5},
			},
		},
		Laps: []activity.Lap{{Start: start, End: start.Add(5 * time.Second)}},
	}
}

func TestFlatten(t *testing.T) {
	rows := Flatten(testActivity(), align.Tolerances{})
	if len(rows) != 2 {
		t.Fatalf("rows: got %d, want 2", len(rows))
	}

	first := rows[0]
	if first.ElapsedS != 0 {
		t.Fatalf("elapsed: got %f, want 0", first.ElapsedS)
	}
	if first.Lat == nil || *first.Lat != 40.0 || first.ElevationM == nil || *first.ElevationM != 1600 {
		t.Fatalf("position not carried: %+v", first)
	}
	if first.HRBPM == nil || *first.HRBPM != 140 {
		t.Fatalf("heart rate not resolved: %+v", first)
	}

	second := rows[1]
	if second.ElapsedS != 5 {
		t.Fatalf("elapsed: got %f, want 5", second.ElapsedS)
	}
	if second.SpeedMPS == nil || *second.SpeedMPS != 2.5 {
		t.Fatalf("speed not resolved: %+v", second)
	}
	if second.PaceSPerKM == nil || *second.PaceSPerKM != 400 {
		t.Fatalf("pace: got %v, want 400 s/km", second.PaceSPerKM)
	}
}

func TestFlattenSensorOnly(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	a := &activity.RawActivity{
		Channels: map[activity.Channel][]activity.Sample{
			activity.ChannelPower: {
				{Time: start, Value: 200},
				{Time: start.Add(time.Second), Value: 205},
			},
		},
	}
	rows := Flatten(a, align.Tolerances{})
	if len(rows) != 2 {
		t.Fatalf("rows: got %d, want 2", len(rows))
	}
	if rows[0].Lat != nil || rows[0].Lon != nil {
		t.Fatal("sensor-only rows must carry no position")
	}
	if rows[1].PowerW == nil || *rows[1].PowerW != 205 {
		t.Fatalf("power not resolved: %+v", rows[1])
	}

	if rows := Flatten(nil, align.Tolerances{}); rows != nil {
		t.Fatalf("nil activity flattened to %v", rows)
	}
}

func TestWriteCSV(t *testing.T) {
	rows := Flatten(testActivity(), align.Tolerances{})
	path := filepath.Join(t.TempDir(), "rows.csv")
	if err := WriteCSV(path, rows); err != nil {
		t.Fatalf("WriteCSV error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("csv rows: got %d, want header plus 2", len(records))
	}
	if records[0][0] != "ts_utc_iso" {
		t.Fatalf("header: got %v", records[0])
	}
	if !strings.HasPrefix(records[1][5], "140") {
		t.Fatalf("hr cell: got %q", records[1][5])
	}
}

func TestWriteBundle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bundle")
	diags := []diag.Diagnostic{{Severity: diag.SeverityWarning, Code: "crc_mismatch", Message: "trailer CRC does not match"}}

	result, err := WriteBundle(testActivity(), dir, diags, BundleOptions{Format: "csv"})
	if err != nil {
		t.Fatalf("WriteBundle error: %v", err)
	}
	if result.RowCount != 2 {
		t.Fatalf("row count: got %d, want 2", result.RowCount)
	}
	if _, err := os.Stat(result.RowsPath); err != nil {
		t.Fatalf("rows file missing: %v", err)
	}

	data, err := os.ReadFile(result.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if manifest.ExportID == "" {
		t.Fatal("manifest missing export id")
	}
	if manifest.Sport != "cycling" || manifest.PointCount != 2 || manifest.LapCount != 1 {
		t.Fatalf("manifest metadata: %+v", manifest)
	}
	if len(manifest.Channels) != 2 || manifest.Channels[0] != "heart_rate" {
		t.Fatalf("manifest channels: %v", manifest.Channels)
	}
	if len(manifest.Diagnostics) != 1 || manifest.Diagnostics[0].Code != "crc_mismatch" {
		t.Fatalf("manifest diagnostics: %v", manifest.Diagnostics)
	}

	// A second write into the same non-empty directory must be refused without
	// the overwrite flag.
	if _, err := WriteBundle(testActivity(), dir, nil, BundleOptions{Format: "csv"}); err == nil {
		t.Fatal("non-empty output directory accepted without overwrite")
	}
	if _, err := WriteBundle(testActivity(), dir, nil, BundleOptions{Format: "csv", Overwrite: true}); err != nil {
		t.Fatalf("overwrite rejected: %v", err)
	}

	if _, err := WriteBundle(testActivity(), dir, nil, BundleOptions{Format: "xml", Overwrite: true}); err == nil {
		t.Fatal("unknown format accepted")
	}
}

func TestWriteParquet(t *testing.T) {
	rows := Flatten(testActivity(), align.Tolerances{})
	path := filepath.Join(t.TempDir(), "rows.parquet")
	if err := WriteParquet(path, rows); err != nil {
		t.Fatalf("WriteParquet error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("parquet file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("parquet file empty")
	}
}
