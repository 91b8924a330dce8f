package video

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TimeRange restricts a scan to part of a video. Empty fields mean the
// beginning and the end of the stream respectively.
type TimeRange struct {
	Start string
	End   string
}

// ParseTimestamp converts "SS", "SS.sss", "MM:SS" or "HH:MM:SS" to seconds.
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if seconds, err := strconv.ParseFloat(s, 64); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("negative time: %s", s)
		}
		return seconds, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %s", s)
	}

	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid time format: %s", s)
		}
		total = total*60 + v
	}
	return total, nil
}

// Frames converts the range into the frame interval [first, last) for a
// video with the given properties. Bounds are clamped to the stream.
func (r TimeRange) Frames(info Info) (first, last int, err error) {
	first, last = 0, info.TotalFrames

	if r.Start != "" {
		s, err := ParseTimestamp(r.Start)
		if err != nil {
			return 0, 0, err
		}
		first = min(int(math.Round(s*info.FrameRate)), info.TotalFrames)
	}
	if r.End != "" {
		e, err := ParseTimestamp(r.End)
		if err != nil {
			return 0, 0, err
		}
		last = min(int(math.Round(e*info.FrameRate)), info.TotalFrames)
	}

	if last < first {
		return 0, 0, fmt.Errorf("time range end %q precedes start %q", r.End, r.Start)
	}
	return first, last, nil
}
