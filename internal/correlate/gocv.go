//go:build gocv

package correlate

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// OpenCV delegates to cv::matchTemplate with TM_CCOEFF_NORMED. Scores agree
// with NCC up to floating point rounding.
type OpenCV struct{}

func init() {
	Register("gocv", func() Correlator { return OpenCV{} })
}

// Score implements Correlator.
func (OpenCV) Score(frame, tmpl *image.Gray) (*Surface, error) {
	if err := CheckDimensions(frame, tmpl); err != nil {
		return nil, err
	}

	fm, err := gocv.ImageGrayToMatGray(frame)
	if err != nil {
		return nil, fmt.Errorf("frame to mat: %w", err)
	}
	defer fm.Close()

	tm, err := gocv.ImageGrayToMatGray(tmpl)
	if err != nil {
		return nil, fmt.Errorf("template to mat: %w", err)
	}
	defer tm.Close()

	res := gocv.NewMat()
	defer res.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(fm, tm, &res, gocv.TmCcoeffNormed, mask)
	if res.Empty() {
		return nil, errors.New("opencv: matchTemplate produced no result")
	}

	data, err := res.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read match result: %w", err)
	}

	s := &Surface{Width: res.Cols(), Height: res.Rows(), Values: make([]float64, len(data))}
	for i, v := range data {
		s.Values[i] = clamp(float64(v))
	}
	return s, nil
}
