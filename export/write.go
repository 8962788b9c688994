package export

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// WriteCSV writes flattened rows as a headered CSV file. Absent values become
// empty cells.
func WriteCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"ts_utc_iso", "elapsed_s", "lat", "lon", "elevation_m",
		"hr_bpm", "cadence_rpm", "power_w", "temperature_c",
		"speed_mps", "distance_m", "pace_s_per_km",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			r.TSUTCISO,
			formatFloat(r.ElapsedS),
			formatFloatPtr(r.Lat),
			formatFloatPtr(r.Lon),
			formatFloatPtr(r.ElevationM),
			formatFloatPtr(r.HRBPM),
			formatFloatPtr(r.CadenceRPM),
			formatFloatPtr(r.PowerW),
			formatFloatPtr(r.TemperatureC),
			formatFloatPtr(r.SpeedMPS),
			formatFloatPtr(r.DistanceM),
			formatFloatPtr(r.PaceSPerKM),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type parquetRow struct {
	TSUTCISO     string  `parquet:"name=ts_utc_iso, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ElapsedS     float64 `parquet:"name=elapsed_s, type=DOUBLE"`
	Lat          float64 `parquet:"name=lat, type=DOUBLE"`
	Lon          float64 `parquet:"name=lon, type=DOUBLE"`
	ElevationM   float64 `parquet:"name=elevation_m, type=DOUBLE"`
	HRBPM        float64 `parquet:"name=hr_bpm, type=DOUBLE"`
	CadenceRPM   float64 `parquet:"name=cadence_rpm, type=DOUBLE"`
	PowerW       float64 `parquet:"name=power_w, type=DOUBLE"`
	TemperatureC float64 `parquet:"name=temperature_c, type=DOUBLE"`
	SpeedMPS     float64 `parquet:"name=speed_mps, type=DOUBLE"`
	DistanceM    float64 `parquet:"name=distance_m, type=DOUBLE"`
	PaceSPerKM   float64 `parquet:"name=pace_s_per_km, type=DOUBLE"`
}

// WriteParquet writes flattened rows as a SNAPPY-compressed Parquet file.
// Absent values become NaN so the column stays DOUBLE.
func WriteParquet(path string, rows []Row) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range rows {
		row := parquetRow{
			TSUTCISO:     r.TSUTCISO,
			ElapsedS:     r.ElapsedS,
			Lat:          valueOrNaN(r.Lat),
			Lon:          valueOrNaN(r.Lon),
			ElevationM:   valueOrNaN(r.ElevationM),
			HRBPM:        valueOrNaN(r.HRBPM),
			CadenceRPM:   valueOrNaN(r.CadenceRPM),
			PowerW:       valueOrNaN(r.PowerW),
			TemperatureC: valueOrNaN(r.TemperatureC),
			SpeedMPS:     valueOrNaN(r.SpeedMPS),
			DistanceM:    valueOrNaN(r.DistanceM),
			PaceSPerKM:   valueOrNaN(r.PaceSPerKM),
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
