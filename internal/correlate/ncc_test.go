package correlate

import (
	"errors"
	"image"
	"math"
	"math/rand"
	"slices"
	"testing"
)

func noise(w, h int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

func flat(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNCCIdentity(t *testing.T) {
	img := noise(20, 15, 1)
	s, err := NCC{}.Score(img, img)
	if err != nil {
		t.Fatal(err)
	}
	if s.Width != 1 || s.Height != 1 {
		t.Fatalf("surface is %dx%d, want 1x1", s.Width, s.Height)
	}
	if !approx(s.At(0, 0), 1) {
		t.Errorf("self correlation = %v, want 1", s.At(0, 0))
	}
}

func TestNCCLocatesPatch(t *testing.T) {
	frame := noise(32, 24, 2)
	tmpl := frame.SubImage(image.Rect(5, 3, 13, 11)).(*image.Gray)

	s, err := NCC{}.Score(frame, tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if s.Width != 25 || s.Height != 17 {
		t.Fatalf("surface is %dx%d, want 25x17", s.Width, s.Height)
	}
	v, x, y := s.Max()
	if x != 5 || y != 3 || !approx(v, 1) {
		t.Errorf("Max() = %v at (%d, %d), want 1 at (5, 3)", v, x, y)
	}
	for _, val := range s.Values {
		if val < -1 || val > 1 {
			t.Fatalf("score %v outside [-1, 1]", val)
		}
	}
}

func TestNCCInverted(t *testing.T) {
	img := noise(10, 10, 3)
	inv := image.NewGray(img.Rect)
	for i, p := range img.Pix {
		inv.Pix[i] = 255 - p
	}
	s, err := NCC{}.Score(img, inv)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(s.At(0, 0), -1) {
		t.Errorf("inverted correlation = %v, want -1", s.At(0, 0))
	}
}

func TestNCCBrightnessInvariant(t *testing.T) {
	img := noise(12, 12, 4)
	scaled := image.NewGray(img.Rect)
	for i, p := range img.Pix {
		scaled.Pix[i] = p/2 + 40
	}
	s, err := NCC{}.Score(scaled, img)
	if err != nil {
		t.Fatal(err)
	}
	if s.At(0, 0) < 0.99 {
		t.Errorf("correlation with rescaled copy = %v, want close to 1", s.At(0, 0))
	}
}

func TestNCCFlatImages(t *testing.T) {
	tests := []struct {
		name        string
		frame, tmpl *image.Gray
		want        float64
	}{
		{"equal flats", flat(8, 8, 100), flat(4, 4, 100), 1},
		{"different flats", flat(8, 8, 100), flat(4, 4, 50), 0},
		{"flat template", noise(8, 8, 5), flat(4, 4, 100), 0},
		{"flat frame", flat(8, 8, 100), noise(4, 4, 6), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NCC{}.Score(tt.frame, tt.tmpl)
			if err != nil {
				t.Fatal(err)
			}
			for _, v := range s.Values {
				if v != tt.want {
					t.Fatalf("score = %v, want %v", v, tt.want)
				}
			}
		})
	}
}

func TestNCCDimensionMismatch(t *testing.T) {
	frame := noise(10, 10, 7)
	for _, tmpl := range []*image.Gray{noise(11, 5, 8), noise(5, 11, 8), image.NewGray(image.Rect(0, 0, 0, 0))} {
		_, err := NCC{}.Score(frame, tmpl)
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("template %v: error = %v, want ErrDimensionMismatch", tmpl.Rect, err)
		}
	}
}

func TestPeakMeetsMonotonic(t *testing.T) {
	frame := noise(24, 24, 9)
	tmpl := noise(6, 6, 10)
	s, err := NCC{}.Score(frame, tmpl)
	if err != nil {
		t.Fatal(err)
	}
	peak, _, _ := s.Max()

	prev := true
	for th := -1.0; th <= 1.0; th += 0.05 {
		got := PeakMeets(s, th)
		if got != (peak >= th) {
			t.Fatalf("PeakMeets(%v) = %v with peak %v", th, got, peak)
		}
		if got && !prev {
			t.Fatalf("PeakMeets became true again at %v", th)
		}
		prev = got
	}
	if PeakMeets(nil, 0) {
		t.Error("PeakMeets(nil) = true")
	}
}

func TestRegistry(t *testing.T) {
	c, err := New("ncc")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(NCC); !ok {
		t.Errorf("New(ncc) = %T", c)
	}
	if _, err := New("sad"); err == nil {
		t.Error("unknown correlator accepted")
	}
	if !slices.Contains(Names(), "ncc") {
		t.Errorf("Names() = %v", Names())
	}
}
