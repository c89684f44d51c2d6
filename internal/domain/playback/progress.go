package playback

import (
	"fmt"
	"math"

	"github.com/forPelevin/clipmark/internal/types"
)

// Reduce derives the scrubber state for player position t.
func Reduce(t float64, w types.TrimWindow) types.Progress {
	dur := w.Duration()
	switch {
	case t < w.Start || math.IsNaN(t):
		return types.Progress{}
	case t > w.End:
		if dur <= 0 {
			return types.Progress{Percent: 100}
		}
		return types.Progress{Elapsed: dur, Percent: 100}
	}

	elapsed := t - w.Start
	if dur <= 0 {
		return types.Progress{Elapsed: elapsed}
	}
	return types.Progress{Elapsed: elapsed, Percent: elapsed / dur * 100}
}

// Tick enforces the hard stop at the end of the trim window. While playing,
// a position at or past w.End is clamped to w.End and pause is true.
func Tick(t float64, playing bool, w types.TrimWindow) (float64, bool) {
	if playing && t >= w.End {
		return w.End, true
	}
	return t, false
}

// FormatClock renders seconds as MM:SS, rounding down.
func FormatClock(sec float64) string {
	if math.IsNaN(sec) || sec < 0 {
		return "00:00"
	}
	if math.IsInf(sec, 1) {
		sec = math.MaxInt32
	}
	s := int64(math.Floor(sec))
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
