package correlate

import (
	"image"
	"math"
)

// NCC implements the zero-mean normalized cross-correlation coefficient
// (OpenCV's TM_CCOEFF_NORMED) in pure Go.
//
// For a placement with window W and template T of n pixels the score is
//
//	(n·ΣTW − ΣT·ΣW) / sqrt((n·ΣT² − (ΣT)²) · (n·ΣW² − (ΣW)²))
//
// All sums are exact integers. A flat template against a flat window scores
// 1 when both have the same level and 0 otherwise; a flat image against a
// textured one scores 0.
type NCC struct{}

// Score implements Correlator.
func (NCC) Score(frame, tmpl *image.Gray) (*Surface, error) {
	if err := CheckDimensions(frame, tmpl); err != nil {
		return nil, err
	}

	fw, fh := frame.Rect.Dx(), frame.Rect.Dy()
	tw, th := tmpl.Rect.Dx(), tmpl.Rect.Dy()
	ow, oh := fw-tw+1, fh-th+1
	n := int64(tw * th)

	fpix := packed(frame)
	tpix := packed(tmpl)

	var tSum, tSq int64
	for _, p := range tpix {
		v := int64(p)
		tSum += v
		tSq += v * v
	}
	tVar := n*tSq - tSum*tSum

	sum, sq := integral(fpix, fw, fh)
	stride := fw + 1
	rect := func(tab []int64, x, y int) int64 {
		return tab[(y+th)*stride+x+tw] - tab[y*stride+x+tw] - tab[(y+th)*stride+x] + tab[y*stride+x]
	}

	s := &Surface{Width: ow, Height: oh, Values: make([]float64, ow*oh)}
	for y := 0; y < oh; y++ {
		for x := 0; x < ow; x++ {
			wSum := rect(sum, x, y)
			wVar := n*rect(sq, x, y) - wSum*wSum

			var v float64
			switch {
			case tVar == 0 && wVar == 0:
				if wSum == tSum {
					v = 1
				}
			case tVar == 0 || wVar == 0:
				v = 0
			default:
				var cross int64
				for j := 0; j < th; j++ {
					frow := fpix[(y+j)*fw+x : (y+j)*fw+x+tw]
					trow := tpix[j*tw : (j+1)*tw]
					for i, t := range trow {
						cross += int64(t) * int64(frow[i])
					}
				}
				num := float64(n*cross - tSum*wSum)
				v = clamp(num / math.Sqrt(float64(tVar)*float64(wVar)))
			}
			s.Values[y*ow+x] = v
		}
	}
	return s, nil
}

// packed returns the pixels of img as a contiguous row-major slice.
func packed(img *image.Gray) []uint8 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride == w && len(img.Pix) >= w*h {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y)
		return img.Pix[off : off+w*h]
	}
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(out[y*w:(y+1)*w], img.Pix[off:off+w])
	}
	return out
}

// integral builds summed-area tables of pixel values and squared values,
// each (w+1)*(h+1) with a zero first row and column.
func integral(pix []uint8, w, h int) (sum, sq []int64) {
	stride := w + 1
	sum = make([]int64, stride*(h+1))
	sq = make([]int64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rowSum, rowSq int64
		for x := 0; x < w; x++ {
			v := int64(pix[y*w+x])
			rowSum += v
			rowSq += v * v
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + rowSum
			sq[(y+1)*stride+x+1] = sq[y*stride+x+1] + rowSq
		}
	}
	return sum, sq
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
