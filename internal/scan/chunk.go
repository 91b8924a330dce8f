package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"vidmatch/internal/correlate"
	"vidmatch/internal/video"
)

// Match is a frame whose correlation peak met the threshold.
type Match struct {
	Frame  int     `json:"frame"`
	Offset float64 `json:"offset"` // seconds from the start of the video
}

// ChunkTask is everything one worker needs to scan its chunk. Template is
// shared between tasks and must be treated as read-only.
type ChunkTask struct {
	Source     video.Source
	Path       string
	Template   *image.Gray
	Chunk      video.Chunk
	FrameRate  float64
	Threshold  float64
	Correlator correlate.Correlator
	Logger     *slog.Logger
}

// RunChunk scans the frames of task.Chunk with a reader it opens and closes
// itself. sink is called once per attempted frame.
//
// A stream that ends before the chunk does is not an error: the matches
// found so far are returned.
func RunChunk(ctx context.Context, task ChunkTask, sink func()) ([]Match, error) {
	if sink == nil {
		sink = func() {}
	}
	logger := task.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r, err := task.Source.Open(ctx, task.Path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer r.Close()

	if err := r.Seek(task.Chunk.Start); err != nil {
		if !errors.Is(err, video.ErrSeek) {
			err = fmt.Errorf("%w: %v", video.ErrSeek, err)
		}
		return nil, err
	}

	var matches []Match
	for i := task.Chunk.Start; i < task.Chunk.End; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := r.Next()
		if err != nil {
			if errors.Is(err, video.ErrSeek) {
				return nil, err
			}
			sink()
			logger.Debug("stream ended before chunk end",
				"chunk", task.Chunk.Index, "frame", i, "end", task.Chunk.End, "error", err)
			break
		}

		surface, err := task.Correlator.Score(frame, task.Template)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if correlate.PeakMeets(surface, task.Threshold) {
			matches = append(matches, Match{Frame: i, Offset: float64(i) / task.FrameRate})
		}
		sink()
	}
	return matches, nil
}
