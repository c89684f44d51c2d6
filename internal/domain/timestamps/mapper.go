package timestamps

import "math"

// MinSegmentDuration is the length given to a segment whose end phrase
// maps at or before its start phrase.
const MinSegmentDuration = 5.0

// Map converts two transcript offsets into playback times, treating the
// transcript as a uniform proxy for speaking time. The result satisfies
// 0 <= start < end <= totalDuration for any totalDuration > 0.
func Map(startOffset, endOffset float64, transcriptLength int, totalDuration float64) (float64, float64) {
	if !(totalDuration > 0) || math.IsInf(totalDuration, 0) {
		return 0, 0
	}

	start := toTime(startOffset, transcriptLength, totalDuration)
	end := toTime(endOffset, transcriptLength, totalDuration)

	start = math.Max(0, start)
	if start >= totalDuration {
		// start phrase sits at the very end of the transcript
		start = math.Max(0, totalDuration-MinSegmentDuration)
	}
	if !(end > start) {
		end = start + MinSegmentDuration
	}
	end = math.Min(totalDuration, end)
	return start, end
}

func toTime(offset float64, length int, duration float64) float64 {
	if length <= 0 || math.IsNaN(offset) {
		return 0
	}
	return offset / float64(length) * duration
}
