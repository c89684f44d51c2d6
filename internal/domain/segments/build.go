package segments

import (
	"github.com/forPelevin/clipmark/internal/domain/phrases"
	"github.com/forPelevin/clipmark/internal/domain/timestamps"
	"github.com/forPelevin/clipmark/internal/types"
)

// Build merges a freshly generated candidate with its mapped timestamps.
func Build(c types.SegmentCandidate, tr types.Transcript, totalDuration float64) types.Segment {
	return assemble(c, tr, totalDuration, 0, 0)
}

// BuildAll keeps the order the candidates came in.
func BuildAll(cands []types.SegmentCandidate, tr types.Transcript, totalDuration float64) []types.Segment {
	out := make([]types.Segment, 0, len(cands))
	for _, c := range cands {
		out = append(out, Build(c, tr, totalDuration))
	}
	return out
}

// Rebuild returns a new segment for edited phrases. prev's timestamps act
// as the fallback for a phrase that no longer matches the transcript.
func Rebuild(prev types.Segment, startPhrase, endPhrase string, tr types.Transcript, totalDuration float64) types.Segment {
	c := Candidate(prev)
	c.StartPhrase = startPhrase
	c.EndPhrase = endPhrase
	return assemble(c, tr, totalDuration, prev.StartTime, prev.EndTime)
}

// Candidate strips the derived timestamps off a segment.
func Candidate(s types.Segment) types.SegmentCandidate {
	return types.SegmentCandidate{
		Title:         s.Title,
		Description:   s.Description,
		ViralityScore: s.ViralityScore,
		StartPhrase:   s.StartPhrase,
		EndPhrase:     s.EndPhrase,
	}
}

func assemble(c types.SegmentCandidate, tr types.Transcript, totalDuration, prevStart, prevEnd float64) types.Segment {
	so := phrases.Locate(tr, c.StartPhrase, phrases.Start, prevStart, totalDuration)
	eo := phrases.Locate(tr, c.EndPhrase, phrases.End, prevEnd, totalDuration)
	start, end := timestamps.Map(so, eo, tr.Len(), totalDuration)

	return types.Segment{
		Title:         c.Title,
		Description:   c.Description,
		ViralityScore: c.ViralityScore,
		StartPhrase:   c.StartPhrase,
		EndPhrase:     c.EndPhrase,
		StartTime:     start,
		EndTime:       end,
	}
}
