package imageproc

import (
	"image"
	"math"
)

// SignatureSide is the edge length of the thumbnail a signature is built from.
const SignatureSide = 8

// SignatureDims is the length of the vector returned by Signature.
const SignatureDims = SignatureSide * SignatureSide

// Signature reduces img to a SignatureSide x SignatureSide block average and
// returns it as a zero-mean, unit-length vector, so that the cosine distance
// between two signatures approximates how alike two templates look. A flat
// image yields the zero vector.
func Signature(img *image.Gray) []float32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	cells := make([]float64, SignatureDims)
	if w == 0 || h == 0 {
		return make([]float32, SignatureDims)
	}

	for cy := 0; cy < SignatureSide; cy++ {
		y0 := cy * h / SignatureSide
		y1 := max((cy+1)*h/SignatureSide, y0+1)
		for cx := 0; cx < SignatureSide; cx++ {
			x0 := cx * w / SignatureSide
			x1 := max((cx+1)*w/SignatureSide, x0+1)

			var sum, n float64
			for y := y0; y < y1 && y < h; y++ {
				for x := x0; x < x1 && x < w; x++ {
					sum += float64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
					n++
				}
			}
			cells[cy*SignatureSide+cx] = sum / n
		}
	}

	var mean float64
	for _, v := range cells {
		mean += v
	}
	mean /= SignatureDims

	var norm float64
	for i := range cells {
		cells[i] -= mean
		norm += cells[i] * cells[i]
	}
	norm = math.Sqrt(norm)

	sig := make([]float32, SignatureDims)
	if norm == 0 {
		return sig
	}
	for i, v := range cells {
		sig[i] = float32(v / norm)
	}
	return sig
}
