//go:build gocv

// Package gocvsrc decodes videos through OpenCV's VideoCapture.
package gocvsrc

import (
	"context"
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"

	"vidmatch/internal/imageproc"
	"vidmatch/internal/video"
)

func init() {
	video.Register("gocv", func(opts video.Options) (video.Source, error) {
		return &Source{GrayMode: opts.GrayMode}, nil
	})
}

// Source implements video.Source with gocv.
type Source struct {
	GrayMode imageproc.GrayMode
}

// Probe implements video.Source.
func (s *Source) Probe(ctx context.Context, path string) (video.Info, error) {
	vc, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return video.Info{}, fmt.Errorf("%w: %v", video.ErrProbe, err)
	}
	defer vc.Close()

	if !vc.IsOpened() {
		return video.Info{}, fmt.Errorf("%w: cannot open %s", video.ErrProbe, path)
	}
	return video.Info{
		FrameRate:   vc.Get(gocv.VideoCaptureFPS),
		TotalFrames: int(vc.Get(gocv.VideoCaptureFrameCount)),
		Width:       int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height:      int(vc.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

// Open implements video.Source.
func (s *Source) Open(ctx context.Context, path string) (video.Reader, error) {
	vc, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &reader{vc: vc, img: gocv.NewMat(), gray: gocv.NewMat(), mode: s.GrayMode}, nil
}

type reader struct {
	vc   *gocv.VideoCapture
	img  gocv.Mat
	gray gocv.Mat
	mode imageproc.GrayMode
}

func (r *reader) Seek(n int) error {
	if n < 0 || !r.vc.IsOpened() {
		return fmt.Errorf("%w: frame %d", video.ErrSeek, n)
	}
	r.vc.Set(gocv.VideoCapturePosFrames, float64(n))
	return nil
}

func (r *reader) Next() (*image.Gray, error) {
	if ok := r.vc.Read(&r.img); !ok || r.img.Empty() {
		return nil, io.EOF
	}

	if r.mode == imageproc.GrayLightness {
		img, err := r.img.ToImage()
		if err != nil {
			return nil, fmt.Errorf("convert frame: %w", err)
		}
		return imageproc.ToGray(img, r.mode), nil
	}

	gocv.CvtColor(r.img, &r.gray, gocv.ColorBGRToGray)
	img, err := r.gray.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	g, ok := img.(*image.Gray)
	if !ok {
		return imageproc.ToGray(img, r.mode), nil
	}
	return g, nil
}

func (r *reader) Close() error {
	r.img.Close()
	r.gray.Close()
	return r.vc.Close()
}
