package imagedir_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"vidmatch/internal/scan"
	"vidmatch/internal/video"
	"vidmatch/internal/video/imagedir"
)

func gradient(horizontal bool) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := y
			if horizontal {
				v = x
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v * 16)})
		}
	}
	return img
}

func writeFrames(t *testing.T, n int, match ...int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i)))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, gradient(slices.Contains(match, i))); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	// Ignored entries.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestProbe(t *testing.T) {
	dir := writeFrames(t, 4)
	src, err := video.NewSource("imagedir", video.Options{FrameRate: 12})
	if err != nil {
		t.Fatal(err)
	}
	info, err := src.Probe(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	want := video.Info{FrameRate: 12, TotalFrames: 4, Width: 16, Height: 16}
	if info != want {
		t.Errorf("Probe() = %+v, want %+v", info, want)
	}

	info, err = (&imagedir.Source{}).Probe(context.Background(), dir)
	if err != nil || info.FrameRate != imagedir.DefaultFrameRate {
		t.Errorf("default frame rate: %+v, %v", info, err)
	}

	if _, err := src.Probe(context.Background(), filepath.Join(dir, "missing")); !errors.Is(err, video.ErrProbe) {
		t.Errorf("missing dir: error = %v, want ErrProbe", err)
	}
}

func TestReader(t *testing.T) {
	dir := writeFrames(t, 5, 2)
	r, err := (&imagedir.Source{}).Open(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if err := r.Seek(2); err != nil {
		t.Fatal(err)
	}
	f, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if f.GrayAt(15, 0).Y != 240 {
		t.Errorf("frame 2 is not the horizontal gradient")
	}
	for i := 3; i < 5; i++ {
		if _, err := r.Next(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("past end: error = %v, want io.EOF", err)
	}

	if err := r.Seek(6); !errors.Is(err, video.ErrSeek) {
		t.Errorf("Seek(6) error = %v, want ErrSeek", err)
	}
}

func TestScanFrameDirectory(t *testing.T) {
	dir := writeFrames(t, 10, 3, 7)
	src, err := video.NewSource("imagedir", video.Options{FrameRate: 10})
	if err != nil {
		t.Fatal(err)
	}

	for _, workers := range []int{1, 2, 10} {
		c := scan.NewCoordinator(src, nil, nil)
		res, err := c.Scan(context.Background(), dir, gradient(true), scan.Options{Threshold: 0.99, Workers: workers})
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if got := res.Offsets(); !slices.Equal(got, []float64{0.3, 0.7}) {
			t.Errorf("workers=%d: offsets = %v, want [0.3 0.7]", workers, got)
		}
	}
}
