package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thecloudseeker/activity-files-sub000/activity"
	"github.com/thecloudseeker/activity-files-sub000/align"
	"github.com/thecloudseeker/activity-files-sub000/diag"
)

// BundleOptions configures a bundle export.
type BundleOptions struct {
	// Format selects the rows file format, "parquet" (default) or "csv".
	Format string
	// Tolerances drives channel resolution during flattening.
	Tolerances align.Tolerances
	// Overwrite allows writing into a non-empty directory.
	Overwrite bool
}

// Manifest describes one export bundle.
type Manifest struct {
	ExportID    string    `json:"export_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Sport      string   `json:"sport,omitempty"`
	Creator    string   `json:"creator,omitempty"`
	StartTS    string   `json:"start_ts,omitempty"`
	EndTS      string   `json:"end_ts,omitempty"`
	PointCount int      `json:"point_count"`
	RowCount   int      `json:"row_count"`
	LapCount   int      `json:"lap_count"`
	Channels   []string `json:"channels,omitempty"`

	RowsPath    string            `json:"rows_path"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
}

// BundleResult returns the written bundle paths.
type BundleResult struct {
	OutputDir    string `json:"output_dir"`
	ManifestPath string `json:"manifest_path"`
	RowsPath     string `json:"rows_path"`
	RowCount     int    `json:"row_count"`
}

// WriteBundle flattens the activity and writes a rows file plus manifest.json
// into dir, creating it when missing. Diagnostics accumulated upstream (for
// example by the decoder) travel into the manifest untouched.
func WriteBundle(a *activity.RawActivity, dir string, diagnostics []diag.Diagnostic, opts BundleOptions) (*BundleResult, error) {
	if a == nil {
		return nil, fmt.Errorf("nil activity")
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "parquet"
	}
	if format != "parquet" && format != "csv" {
		return nil, fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}
	if err := ensureOutputDir(dir, opts.Overwrite); err != nil {
		return nil, err
	}

	rows := Flatten(a, opts.Tolerances)
	rowsPath := filepath.Join(dir, "rows."+format)
	switch format {
	case "csv":
		if err := WriteCSV(rowsPath, rows); err != nil {
			return nil, fmt.Errorf("write rows csv: %w", err)
		}
	case "parquet":
		if err := WriteParquet(rowsPath, rows); err != nil {
			return nil, fmt.Errorf("write rows parquet: %w", err)
		}
	}

	manifest := Manifest{
		ExportID:    uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Sport:       a.Sport,
		Creator:     a.Creator,
		PointCount:  len(a.Points),
		RowCount:    len(rows),
		LapCount:    len(a.Laps),
		RowsPath:    filepath.Base(rowsPath),
		Diagnostics: diagnostics,
	}
	if start, end, ok := a.TimeBounds(); ok {
		manifest.StartTS = start.UTC().Format(time.RFC3339)
		manifest.EndTS = end.UTC().Format(time.RFC3339)
	}
	for ch := range a.Channels {
		if len(a.Channels[ch]) > 0 {
			manifest.Channels = append(manifest.Channels, ch.Key())
		}
	}
	sort.Strings(manifest.Channels)

	manifestPath := filepath.Join(dir, "manifest.json")
	if err := writeJSON(manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("write manifest.json: %w", err)
	}

	return &BundleResult{
		OutputDir:    dir,
		ManifestPath: manifestPath,
		RowsPath:     rowsPath,
		RowCount:     len(rows),
	}, nil
}

func ensureOutputDir(dir string, overwrite bool) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %q is not a directory", dir)
	}
	if overwrite {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("output directory %q is not empty (use overwrite)", dir)
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
