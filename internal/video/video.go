// Package video defines the frame source the scanner reads from, the
// partitioning of a frame range into chunks, and a registry of decoding
// backends.
package video

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrSeek is returned when a reader cannot be positioned at the requested frame.
	ErrSeek = errors.New("seek failed")

	// ErrProbe is returned when a video's metadata cannot be read.
	ErrProbe = errors.New("probe failed")
)

// Info holds the stream properties needed to scan a video.
type Info struct {
	FrameRate   float64 `json:"frame_rate"`
	TotalFrames int     `json:"total_frames"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

// Offset converts a frame index into elapsed seconds.
func (i Info) Offset(frame int) float64 {
	return float64(frame) / i.FrameRate
}

// Reader is a sequential, exclusively owned view over one video.
type Reader interface {
	// Seek positions the reader so that the next call to Next returns frame n.
	Seek(n int) error

	// Next returns the next decoded grayscale frame, or io.EOF once the
	// stream is exhausted. The returned image may be reused by the following
	// call and must not be retained.
	Next() (*image.Gray, error)

	Close() error
}

// Source opens videos by path.
type Source interface {
	// Probe opens the video, reads its metadata and closes it again.
	Probe(ctx context.Context, path string) (Info, error)

	// Open returns a new Reader. Every call yields an independent reader.
	Open(ctx context.Context, path string) (Reader, error)
}
