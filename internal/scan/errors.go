package scan

import (
	"errors"
	"fmt"

	"vidmatch/internal/correlate"
	"vidmatch/internal/imageproc"
	"vidmatch/internal/video"
)

var (
	ErrInvalidTemplate   = imageproc.ErrInvalidTemplate
	ErrSeekFailure       = video.ErrSeek
	ErrDimensionMismatch = correlate.ErrDimensionMismatch
	ErrProbe             = video.ErrProbe
	ErrInvalidThreshold  = errors.New("threshold must be in (0, 1]")
)

// WorkerFailure reports the chunk whose worker aborted the scan.
type WorkerFailure struct {
	Chunk video.Chunk
	Err   error
}

func (e *WorkerFailure) Error() string {
	return fmt.Sprintf("chunk %d [%d, %d): %v", e.Chunk.Index, e.Chunk.Start, e.Chunk.End, e.Err)
}

func (e *WorkerFailure) Unwrap() error {
	return e.Err
}
