// Package imagedir treats a directory of still frames (frame_0001.png,
// frame_0002.png, ...) as a video played back at a fixed frame rate.
// Files are ordered by name.
package imagedir

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vidmatch/internal/imageproc"
	"vidmatch/internal/video"
)

// DefaultFrameRate is used when no frame rate is configured.
const DefaultFrameRate = 25

var extensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

func init() {
	video.Register("imagedir", func(opts video.Options) (video.Source, error) {
		return &Source{FrameRate: opts.FrameRate, GrayMode: opts.GrayMode}, nil
	})
}

// Source implements video.Source over image directories.
type Source struct {
	FrameRate float64
	GrayMode  imageproc.GrayMode
}

// Probe implements video.Source.
func (s *Source) Probe(ctx context.Context, dir string) (video.Info, error) {
	files, err := listFrames(dir)
	if err != nil {
		return video.Info{}, fmt.Errorf("%w: %v", video.ErrProbe, err)
	}

	fps := s.FrameRate
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	info := video.Info{FrameRate: fps, TotalFrames: len(files)}
	if len(files) > 0 {
		info.Width, info.Height, err = imageproc.DecodeSize(files[0])
		if err != nil {
			return video.Info{}, fmt.Errorf("%w: %v", video.ErrProbe, err)
		}
	}
	return info, nil
}

// Open implements video.Source.
func (s *Source) Open(ctx context.Context, dir string) (video.Reader, error) {
	files, err := listFrames(dir)
	if err != nil {
		return nil, err
	}
	return &reader{files: files, mode: s.GrayMode}, nil
}

func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory '%s': %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

type reader struct {
	files []string
	mode  imageproc.GrayMode
	pos   int
}

func (r *reader) Seek(n int) error {
	if n < 0 || n > len(r.files) {
		return fmt.Errorf("%w: frame %d outside [0, %d]", video.ErrSeek, n, len(r.files))
	}
	r.pos = n
	return nil
}

func (r *reader) Next() (*image.Gray, error) {
	if r.pos >= len(r.files) {
		return nil, io.EOF
	}
	img, err := imageproc.DecodeGray(r.files[r.pos], r.mode)
	if err != nil {
		return nil, err
	}
	r.pos++
	return img, nil
}

func (r *reader) Close() error {
	return nil
}
