// Package scan finds the timestamps at which a template image appears in a
// video by correlating every frame against it, splitting the frame range
// into chunks that are matched in parallel.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"

	"vidmatch/internal/correlate"
	"vidmatch/internal/imageproc"
	"vidmatch/internal/progress"
	"vidmatch/internal/video"
	"vidmatch/internal/worker"
)

// DefaultThreshold is the correlation score a frame must reach to match
// when Options.Threshold is zero.
const DefaultThreshold = 0.8

// Options tunes a single scan.
type Options struct {
	// ID identifies the scan in logs and persisted records. A random ID is
	// generated when it is the zero UUID.
	ID uuid.UUID

	// Threshold in (0, 1]; zero selects DefaultThreshold.
	Threshold float64

	// Workers is the number of chunks scanned concurrently; zero or less
	// selects runtime.NumCPU().
	Workers int

	// Range limits the scan to part of the video.
	Range *video.TimeRange

	// GrayMode is used when loading templates from files.
	GrayMode imageproc.GrayMode

	OnProgress progress.Observer
}

// Result is the outcome of a completed scan.
type Result struct {
	ID        uuid.UUID     `json:"id"`
	Video     string        `json:"video"`
	Info      video.Info    `json:"info"`
	Threshold float64       `json:"threshold"`
	Workers   int           `json:"workers"`
	Chunks    []video.Chunk `json:"chunks"`
	Matches   []Match       `json:"matches"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Offsets returns the match times in seconds, ascending.
func (r *Result) Offsets() []float64 {
	out := make([]float64, len(r.Matches))
	for i, m := range r.Matches {
		out[i] = m.Offset
	}
	return out
}

// Coordinator partitions videos into chunks and runs one worker per chunk.
type Coordinator struct {
	source     video.Source
	correlator correlate.Correlator
	logger     *slog.Logger
}

// NewCoordinator returns a Coordinator reading from source. A nil
// correlator selects the pure Go NCC implementation.
func NewCoordinator(source video.Source, correlator correlate.Correlator, logger *slog.Logger) *Coordinator {
	if correlator == nil {
		correlator = correlate.NCC{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{source: source, correlator: correlator, logger: logger}
}

// FindInVideo loads the template at templatePath and returns the offsets in
// seconds at which it appears in the video.
func (c *Coordinator) FindInVideo(ctx context.Context, videoPath, templatePath string, opts Options) ([]float64, error) {
	tmpl, err := imageproc.LoadTemplate(templatePath, opts.GrayMode)
	if err != nil {
		return nil, err
	}
	res, err := c.Scan(ctx, videoPath, tmpl, opts)
	if err != nil {
		return nil, err
	}
	return res.Offsets(), nil
}

// Scan matches tmpl against every frame of the video at videoPath.
//
// Any chunk failure aborts the scan: the remaining workers are cancelled
// and a *WorkerFailure is returned without partial results. Matches are
// ordered by chunk start, then by frame, independent of which worker
// finished first.
func (c *Coordinator) Scan(ctx context.Context, videoPath string, tmpl *image.Gray, opts Options) (*Result, error) {
	if tmpl == nil || tmpl.Rect.Empty() {
		return nil, fmt.Errorf("%w: template is empty", ErrInvalidTemplate)
	}

	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}

	info, err := c.source.Probe(ctx, videoPath)
	if err != nil {
		if !errors.Is(err, ErrProbe) {
			err = fmt.Errorf("%w: %v", ErrProbe, err)
		}
		return nil, err
	}
	if info.FrameRate <= 0 {
		return nil, fmt.Errorf("%w: invalid frame rate %v", ErrProbe, info.FrameRate)
	}

	first, last := 0, info.TotalFrames
	if opts.Range != nil {
		if first, last, err = opts.Range.Frames(info); err != nil {
			return nil, err
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	chunks := video.Partition(first, last, workers)

	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	logger := c.logger.With("scan", id.String())
	logger.Info("scan started",
		"video", videoPath,
		"fps", info.FrameRate,
		"frames", last-first,
		"chunks", len(chunks),
		"threshold", threshold)

	started := time.Now()
	tasks := make([]ChunkTask, len(chunks))
	for i, ch := range chunks {
		tasks[i] = ChunkTask{
			Source:     c.source,
			Path:       videoPath,
			Template:   tmpl,
			Chunk:      ch,
			FrameRate:  info.FrameRate,
			Threshold:  threshold,
			Correlator: c.correlator,
			Logger:     logger,
		}
	}

	agg := progress.NewAggregator(last-first, opts.OnProgress)
	perChunk, err := worker.Run(ctx, tasks, len(tasks), func(ctx context.Context, t ChunkTask) ([]Match, error) {
		m, err := RunChunk(ctx, t, agg.Sink())
		if err != nil {
			return nil, &WorkerFailure{Chunk: t.Chunk, Err: err}
		}
		logger.Debug("chunk finished", "chunk", t.Chunk.Index, "start", t.Chunk.Start,
			"end", t.Chunk.End, "matches", len(m))
		return m, nil
	})
	agg.Close(err == nil)
	if err != nil {
		logger.Error("scan failed", "error", err)
		return nil, err
	}

	res := &Result{
		ID:        id,
		Video:     videoPath,
		Info:      info,
		Threshold: threshold,
		Workers:   len(chunks),
		Chunks:    chunks,
		Matches:   merge(chunks, perChunk),
		StartedAt: started,
		Elapsed:   time.Since(started),
	}
	logger.Info("scan complete", "matches", len(res.Matches), "elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// merge concatenates per-chunk matches ordered by chunk start index.
func merge(chunks []video.Chunk, perChunk [][]Match) []Match {
	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return chunks[order[a]].Start < chunks[order[b]].Start
	})

	merged := make([]Match, 0)
	for _, i := range order {
		merged = append(merged, perChunk[i]...)
	}
	return merged
}
