package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thecloudseeker/activity-files-sub000/align"
	"github.com/thecloudseeker/activity-files-sub000/export"
	"github.com/thecloudseeker/activity-files-sub000/fitcodec"
)

func main() {
	var (
		inPath    = flag.String("in", "", "Path to input .fit file")
		outDir    = flag.String("out", "", "Output directory")
		format    = flag.String("format", "parquet", "Rows file format: parquet|csv")
		tolerance = flag.Duration("tolerance", 0, "Channel matching window (default 5s)")
		strict    = flag.Bool("strict", false, "Treat CRC mismatches and truncation as fatal")
		overwrite = flag.Bool("overwrite", true, "Allow writing into non-empty output directories")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --in input.fit --out outdir [--format parquet|csv] [--tolerance 5s]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(*inPath) == "" || strings.TrimSpace(*outDir) == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*inPath)
	if err != nil {
		fatalf("read input: %v", err)
	}

	act, diags, err := fitcodec.Decode(data, fitcodec.DecodeOptions{Strict: *strict})
	if err != nil {
		fatalf("decode: %v", err)
	}

	var tolerances align.Tolerances
	if *tolerance > 0 {
		tolerances.Default = *tolerance
	}

	result, err := export.WriteBundle(act, *outDir, diags, export.BundleOptions{
		Format:     *format,
		Tolerances: tolerances,
		Overwrite:  *overwrite,
	})
	if err != nil {
		fatalf("export: %v", err)
	}

	fmt.Printf("fitexport complete\n")
	fmt.Printf("output dir:  %s\n", result.OutputDir)
	fmt.Printf("rows:        %s (%d rows)\n", result.RowsPath, result.RowCount)
	fmt.Printf("manifest:    %s\n", result.ManifestPath)
	if len(diags) > 0 {
		fmt.Printf("diagnostics: %d (see manifest)\n", len(diags))
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fitexport failed: "+format+"\n", args...)
	os.Exit(1)
}
