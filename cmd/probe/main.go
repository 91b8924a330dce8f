package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"vidmatch/internal/ffmpeg"
	"vidmatch/internal/imageproc"
	"vidmatch/internal/video"
	_ "vidmatch/internal/video/imagedir"
)

type Result struct {
	Path     string     `json:"path"`
	Backend  string     `json:"backend"`
	Info     video.Info `json:"info"`
	Duration float64    `json:"duration_seconds"`
}

func main() {
	backend := flag.String("backend", "ffmpeg", fmt.Sprintf("Video backend %v", video.Backends()))
	frameRate := flag.Float64("fps", 25, "Frame rate of a frame directory")
	timeout := flag.Duration("timeout", 30*time.Second, "Probe timeout")
	flag.Parse()

	// Get arguments
	if flag.NArg() != 1 {
		fmt.Println("Usage: probe [-backend name] <video_path>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		source video.Source
		err    error
	)
	if *backend == "ffmpeg" {
		source = ffmpeg.NewSource(imageproc.GrayLuma, nil)
	} else {
		source, err = video.NewSource(*backend, video.Options{FrameRate: *frameRate})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating source: %v\n", err)
		os.Exit(1)
	}

	info, err := source.Probe(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error probing video: %v\n", err)
		os.Exit(1)
	}

	result := Result{Path: path, Backend: *backend, Info: info}
	if info.FrameRate > 0 {
		result.Duration = float64(info.TotalFrames) / info.FrameRate
	}

	// Output as JSON
	jsonResult, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(jsonResult))
}
