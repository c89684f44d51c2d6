package phrases

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/clipmark/internal/types"
)

type Boundary int

const (
	Start Boundary = iota
	End
)

func (b Boundary) String() string {
	if b == End {
		return "end"
	}
	return "start"
}

// Locate returns the character offset of phrase in tr. For Start it is the
// offset of the first occurrence, for End the offset right after it.
//
// A missing phrase is not an error. The offset then comes from prevTime
// (the boundary's previous timestamp) scaled back onto the transcript, or
// from the transcript edge when there is no previous timestamp. The result
// is always within [0, tr.Len()].
func Locate(tr types.Transcript, phrase string, b Boundary, prevTime, totalDuration float64) float64 {
	n := float64(tr.Len())
	if phrase != "" {
		if i := strings.Index(tr.Text(), phrase); i >= 0 {
			off := utf8.RuneCountInString(tr.Text()[:i])
			if b == End {
				off += utf8.RuneCountInString(phrase)
			}
			return float64(off)
		}
	}

	// The previous time is only a hint when it is a usable positive number;
	// a zero timestamp counts as "no hint", same as the edge fallback.
	if prevTime > 0 && totalDuration > 0 && !math.IsInf(prevTime, 0) && !math.IsInf(totalDuration, 0) {
		return clamp(prevTime/totalDuration*n, 0, n)
	}
	if b == End {
		return n
	}
	return 0
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
