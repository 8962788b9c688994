package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thecloudseeker/activity-files-sub000/diag"
	"github.com/thecloudseeker/activity-files-sub000/fitcodec"
	"github.com/thecloudseeker/activity-files-sub000/transform"
)

func main() {
	var (
		inPath      = flag.String("in", "", "Path to input .fit file")
		outPath     = flag.String("out", "", "Path to output .fit file")
		strict      = flag.Bool("strict", false, "Treat CRC mismatches and truncation as fatal")
		noSort      = flag.Bool("no-sort", false, "Skip time-sorting and de-duplication")
		trim        = flag.Bool("trim", false, "Drop leading/trailing points with invalid coordinates")
		shift       = flag.Duration("shift", 0, "Shift all timestamps by this duration")
		downsample  = flag.Duration("downsample", 0, "Keep at most one point per interval, e.g. 5s")
		downsampleM = flag.Float64("downsample-m", 0, "Keep at most one point per distance in meters")
		smoothHR    = flag.Int("smooth-hr", 0, "Moving-average window for the heart rate channel")
		resample    = flag.Duration("resample", 0, "Rebuild the timeline on a uniform grid, e.g. 1s")
		lapsEvery   = flag.Float64("laps-every", 0, "Replace laps with one lap per distance in meters")
		recompute   = flag.Bool("recompute", false, "Recompute distance and speed channels from coordinates")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --in input.fit --out output.fit [transform flags]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(*inPath) == "" || strings.TrimSpace(*outPath) == "" {
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
	printDiags("decode", diags)

	ed := transform.NewEditor(act)
	if !*noSort {
		ed = ed.SortAndDedup()
	}
	if *trim {
		ed = ed.TrimInvalid()
	}
	if *shift != 0 {
		ed = ed.ShiftTime(*shift)
	}
	if *downsample > 0 {
		ed = ed.DownsampleTime(*downsample)
	}
	if *downsampleM > 0 {
		ed = ed.DownsampleDistance(*downsampleM)
	}
	if *smoothHR > 1 {
		ed = ed.SmoothHeartRate(*smoothHR)
	}
	if *resample > 0 {
		ed = ed.Resample(*resample)
	}
	if *recompute {
		ed = ed.RecomputeDistanceAndSpeed()
	}
	if *lapsEvery > 0 {
		ed = ed.MarkLapsByDistance(*lapsEvery)
	}
	edited, err := ed.Result()
	if err != nil {
		fatalf("transform: %v", err)
	}

	out, encDiags, err := fitcodec.Encode(edited, fitcodec.EncodeOptions{})
	if err != nil {
		fatalf("encode: %v", err)
	}
	printDiags("encode", encDiags)

	if err := os.WriteFile(*outPath, out, 0o644); err != nil {
		fatalf("write output: %v", err)
	}

	fmt.Printf("fitconvert complete\n")
	fmt.Printf("points:  %d\n", len(edited.Points))
	fmt.Printf("laps:    %d\n", len(edited.Laps))
	fmt.Printf("output:  %s (%d bytes)\n", *outPath, len(out))
}

func printDiags(stage string, diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "%s: %s\n", stage, d)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fitconvert failed: "+format+"\n", args...)
	os.Exit(1)
}
