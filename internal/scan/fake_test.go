package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"vidmatch/internal/video"
)

// memSource serves frames from memory. It reports declared frames in Probe,
// which may exceed len(frames) to simulate a stream that ends early.
type memSource struct {
	frames   []*image.Gray
	fps      float64
	declared int

	seekErr  error // returned by Seek when non-nil
	probeErr error

	mu     sync.Mutex
	opened int
	closed int
}

func newMemSource(fps float64, frames ...*image.Gray) *memSource {
	return &memSource{frames: frames, fps: fps, declared: len(frames)}
}

func (s *memSource) Probe(ctx context.Context, path string) (video.Info, error) {
	if s.probeErr != nil {
		return video.Info{}, s.probeErr
	}
	w, h := 0, 0
	if len(s.frames) > 0 {
		w, h = s.frames[0].Rect.Dx(), s.frames[0].Rect.Dy()
	}
	return video.Info{FrameRate: s.fps, TotalFrames: s.declared, Width: w, Height: h}, nil
}

func (s *memSource) Open(ctx context.Context, path string) (video.Reader, error) {
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	return &memReader{src: s}, nil
}

func (s *memSource) balanced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened == s.closed
}

type memReader struct {
	src *memSource
	pos int
}

func (r *memReader) Seek(n int) error {
	if r.src.seekErr != nil {
		return r.src.seekErr
	}
	if n < 0 || n > len(r.src.frames) {
		return fmt.Errorf("%w: frame %d out of range", ErrSeekFailure, n)
	}
	r.pos = n
	return nil
}

func (r *memReader) Next() (*image.Gray, error) {
	if r.pos >= len(r.src.frames) {
		return nil, io.EOF
	}
	f := r.src.frames[r.pos]
	r.pos++
	return f, nil
}

func (r *memReader) Close() error {
	r.src.mu.Lock()
	r.src.closed++
	r.src.mu.Unlock()
	return nil
}

// horizontal returns a w×h image whose pixels grow left to right.
func horizontal(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 16)})
		}
	}
	return img
}

// vertical returns a w×h image whose pixels grow top to bottom. Over a
// square area it is uncorrelated with horizontal.
func vertical(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(y * 16)})
		}
	}
	return img
}

var errBoom = errors.New("boom")
