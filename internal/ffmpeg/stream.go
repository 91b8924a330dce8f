package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"vidmatch/internal/imageproc"
	"vidmatch/internal/video"
)

func init() {
	video.Register("ffmpeg", func(opts video.Options) (video.Source, error) {
		return NewSource(opts.GrayMode, opts.Logger), nil
	})
}

// Source decodes videos with ffmpeg. Probe results are cached per path so
// that workers opening the same file do not each run ffprobe.
type Source struct {
	grayMode imageproc.GrayMode
	logger   *slog.Logger
	infos    sync.Map // path -> video.Info
}

// NewSource returns an ffmpeg-backed video.Source.
func NewSource(mode imageproc.GrayMode, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{grayMode: mode, logger: logger}
}

// Probe implements video.Source.
func (s *Source) Probe(ctx context.Context, path string) (video.Info, error) {
	if cached, ok := s.infos.Load(path); ok {
		return cached.(video.Info), nil
	}
	if _, err := os.Stat(path); err != nil && !strings.Contains(path, "://") {
		return video.Info{}, fmt.Errorf("%w: cannot access video file '%s': %v", video.ErrProbe, path, err)
	}
	info, err := GetVideoInfo(ctx, path)
	if err != nil {
		return video.Info{}, fmt.Errorf("%w: %v", video.ErrProbe, err)
	}
	s.logger.Debug("probed video", "path", path, "fps", info.FrameRate,
		"frames", info.TotalFrames, "width", info.Width, "height", info.Height)
	s.infos.Store(path, info)
	return info, nil
}

// Open implements video.Source.
func (s *Source) Open(ctx context.Context, path string) (video.Reader, error) {
	info, err := s.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	pixFmt, bpp := "gray", 1
	if s.grayMode == imageproc.GrayLightness {
		pixFmt, bpp = "rgb24", 3
	}
	return &reader{
		ctx:    ctx,
		url:    path,
		info:   info,
		mode:   s.grayMode,
		pixFmt: pixFmt,
		buf:    make([]byte, info.Width*info.Height*bpp),
		frame:  image.NewGray(image.Rect(0, 0, info.Width, info.Height)),
		logger: s.logger,
	}, nil
}

// reader streams frames from one ffmpeg process. Seeking restarts the
// process at the requested frame.
type reader struct {
	ctx    context.Context
	url    string
	info   video.Info
	mode   imageproc.GrayMode
	pixFmt string
	logger *slog.Logger

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	waited bool
	start  int
	read   int

	buf   []byte
	frame *image.Gray
}

func (r *reader) Seek(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative frame %d", video.ErrSeek, n)
	}
	r.stop()

	cmd, stdout, stderr, err := CreateFrameExtractionProcess(r.ctx, FrameOptions{
		URL:        r.url,
		StartFrame: n,
		PixFmt:     r.pixFmt,
	})
	if err != nil {
		return fmt.Errorf("%w: frame %d: %v", video.ErrSeek, n, err)
	}
	r.cmd, r.stdout, r.stderr = cmd, stdout, stderr
	r.waited = false
	r.start, r.read = n, 0
	return nil
}

func (r *reader) Next() (*image.Gray, error) {
	if r.stdout == nil {
		if err := r.Seek(0); err != nil {
			return nil, err
		}
	}

	if _, err := io.ReadFull(r.stdout, r.buf); err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("error reading frame: %w", err)
		}
		waitErr := r.wait()
		if waitErr != nil && r.read == 0 && r.ctx.Err() == nil {
			return nil, fmt.Errorf("%w: frame %d: ffmpeg error: %v - stderr: %s",
				video.ErrSeek, r.start, waitErr, strings.TrimSpace(r.stderr.String()))
		}
		if waitErr != nil {
			r.logger.Debug("ffmpeg exited early", "path", r.url, "frame", r.start+r.read, "error", waitErr)
		}
		return nil, io.EOF
	}
	r.read++

	if r.pixFmt == "gray" {
		copy(r.frame.Pix, r.buf)
		return r.frame, nil
	}
	return imageproc.GrayFromRGB24(r.buf, r.info.Width, r.info.Height, r.mode, r.frame), nil
}

func (r *reader) Close() error {
	r.stop()
	return nil
}

func (r *reader) wait() error {
	if r.cmd == nil || r.waited {
		return nil
	}
	r.waited = true
	return r.cmd.Wait()
}

func (r *reader) stop() {
	if r.cmd == nil {
		return
	}
	if !r.waited && r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	_ = r.wait()
	r.cmd, r.stdout = nil, nil
}
