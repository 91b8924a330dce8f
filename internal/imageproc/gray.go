package imageproc

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// GrayMode selects how color pixels are reduced to a single channel.
type GrayMode string

const (
	// GrayLuma uses ITU-R BT.601 luma, the conversion ffmpeg and OpenCV apply.
	GrayLuma GrayMode = "luma"

	// GrayLightness uses CIE L*, which tracks perceived brightness more
	// closely on saturated colors.
	GrayLightness GrayMode = "lightness"
)

// ParseGrayMode validates a mode name. An empty name selects GrayLuma.
func ParseGrayMode(s string) (GrayMode, error) {
	switch GrayMode(s) {
	case "", GrayLuma:
		return GrayLuma, nil
	case GrayLightness:
		return GrayLightness, nil
	}
	return "", fmt.Errorf("unknown gray mode %q", s)
}

// ToGray converts img to a single-channel image whose bounds start at the origin.
func ToGray(img image.Image, mode GrayMode) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	if src, ok := img.(*image.Gray); ok && mode != GrayLightness {
		for y := 0; y < b.Dy(); y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], row[:b.Dx()])
		}
		return dst
	}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Pix[y*dst.Stride+x] = grayOf(img.At(b.Min.X+x, b.Min.Y+y), mode)
		}
	}
	return dst
}

// GrayFromRGB24 converts packed rgb24 pixel data into dst, which must be
// w by h. If dst is nil a new image is allocated.
func GrayFromRGB24(buf []byte, w, h int, mode GrayMode, dst *image.Gray) *image.Gray {
	if dst == nil {
		dst = image.NewGray(image.Rect(0, 0, w, h))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := (y*w + x) * 3
			c := color.RGBA{R: buf[idx], G: buf[idx+1], B: buf[idx+2], A: 255}
			dst.Pix[y*dst.Stride+x] = grayOf(c, mode)
		}
	}
	return dst
}

func grayOf(c color.Color, mode GrayMode) uint8 {
	if mode == GrayLightness {
		cf, _ := colorful.MakeColor(c)
		l, _, _ := cf.Lab()
		return clampByte(l*255 + 0.5)
	}
	r, g, b, _ := c.RGBA()
	// BT.601 weights in 16.16 fixed point, same as color.GrayModel.
	y := (19595*r + 38470*g + 7471*b + 1<<15) >> 24
	return uint8(y)
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
