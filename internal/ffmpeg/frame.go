// Package ffmpeg decodes videos by running ffprobe and ffmpeg as child
// processes and reading raw frames from ffmpeg's stdout.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"vidmatch/internal/video"
)

// FrameOptions describes one frame extraction process.
type FrameOptions struct {
	URL        string
	StartFrame int
	// PixFmt is the rawvideo pixel format written to stdout, "gray" or "rgb24".
	PixFmt string
}

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetVideoInfo reads dimensions, frame rate and frame count of the first
// video stream. When the container does not record a frame count it is
// estimated from the duration, so it may be approximate.
func GetVideoInfo(ctx context.Context, videoURL string) (video.Info, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate,r_frame_rate,nb_frames,duration:format=duration",
		"-of", "json",
		videoURL,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return video.Info{}, fmt.Errorf("ffprobe error: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (video.Info, error) {
	var data probeOutput
	if err := json.Unmarshal(output, &data); err != nil {
		return video.Info{}, fmt.Errorf("error parsing ffprobe output: %w", err)
	}
	if len(data.Streams) == 0 {
		return video.Info{}, fmt.Errorf("no video streams found")
	}
	stream := data.Streams[0]

	if stream.Width <= 0 || stream.Height <= 0 {
		return video.Info{}, fmt.Errorf("invalid dimensions %dx%d", stream.Width, stream.Height)
	}

	framerate, err := parseFrameRate(stream.AvgFrameRate)
	if err != nil || framerate <= 0 {
		framerate, err = parseFrameRate(stream.RFrameRate)
		if err != nil {
			return video.Info{}, err
		}
	}
	if framerate <= 0 {
		return video.Info{}, fmt.Errorf("invalid framerate data")
	}

	info := video.Info{
		FrameRate: framerate,
		Width:     stream.Width,
		Height:    stream.Height,
	}

	if n, err := strconv.Atoi(stream.NbFrames); err == nil && n > 0 {
		info.TotalFrames = n
		return info, nil
	}
	for _, d := range []string{stream.Duration, data.Format.Duration} {
		if secs, err := strconv.ParseFloat(d, 64); err == nil && secs > 0 {
			info.TotalFrames = int(math.Round(secs * framerate))
			return info, nil
		}
	}
	return video.Info{}, fmt.Errorf("cannot determine frame count")
}

// parseFrameRate parses ffprobe rates such as "24000/1001" or "25".
func parseFrameRate(framerateStr string) (float64, error) {
	if strings.Contains(framerateStr, "/") {
		parts := strings.Split(framerateStr, "/")
		if len(parts) != 2 {
			return 0, fmt.Errorf("invalid framerate format")
		}
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("invalid framerate format")
		}
		if den == 0 {
			return 0, nil
		}
		return num / den, nil
	}
	framerate, err := strconv.ParseFloat(framerateStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid framerate: %w", err)
	}
	return framerate, nil
}

// frameArgs builds the ffmpeg command line for opts. Frames before
// StartFrame are dropped by the select filter, which counts decoded frames
// and is therefore frame accurate.
func frameArgs(opts FrameOptions) []string {
	args := []string{
		"-v", "error",
		"-nostdin",
		"-i", opts.URL,
		"-an",
	}
	if opts.StartFrame > 0 {
		args = append(args, "-vf", fmt.Sprintf("select=gte(n\\,%d)", opts.StartFrame))
	}
	args = append(args,
		"-vsync", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", opts.PixFmt,
		"pipe:1",
	)
	return args
}

// CreateFrameExtractionProcess starts ffmpeg writing raw frames to stdout.
// The process is killed when ctx is done.
func CreateFrameExtractionProcess(ctx context.Context, opts FrameOptions) (*exec.Cmd, io.ReadCloser, *bytes.Buffer, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, nil, nil, fmt.Errorf("ffmpeg not found in $PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", frameArgs(opts)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error creating stdout pipe: %w", err)
	}

	stderrBuf := &bytes.Buffer{}
	cmd.Stderr = stderrBuf

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("error starting ffmpeg: %w", err)
	}
	return cmd, stdout, stderrBuf, nil
}
