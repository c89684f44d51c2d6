package types

import "unicode/utf8"

// Transcript is the text the segments are cut from. Offsets into it are
// counted in runes, not bytes.
type Transcript struct {
	text   string
	length int
}

func NewTranscript(text string) Transcript {
	return Transcript{text: text, length: utf8.RuneCountInString(text)}
}

func (t Transcript) Text() string { return t.text }

// Len returns the character count.
func (t Transcript) Len() int { return t.length }

// SegmentCandidate is one item as returned by the segmentation service.
type SegmentCandidate struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	ViralityScore int    `json:"viralityScore"`
	StartPhrase   string `json:"startPhrase"`
	EndPhrase     string `json:"endPhrase"`
}

// Segment is a candidate with its phrases mapped onto the media timeline.
// StartTime and EndTime are seconds and are only ever produced by the
// timestamp mapper.
type Segment struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	ViralityScore int     `json:"viralityScore"`
	StartPhrase   string  `json:"startPhrase"`
	EndPhrase     string  `json:"endPhrase"`
	StartTime     float64 `json:"startTime"`
	EndTime       float64 `json:"endTime"`
}

func (s Segment) Duration() float64 { return s.EndTime - s.StartTime }

// TrimWindow is the user-selected playable range inside a segment.
type TrimWindow struct {
	Start float64 `json:"trimmedStart"`
	End   float64 `json:"trimmedEnd"`
}

func (w TrimWindow) Duration() float64 { return w.End - w.Start }

type Progress struct {
	Elapsed float64 `json:"elapsed"`
	Percent float64 `json:"percent"`
}

type Manifest struct {
	Input    string            `json:"input"`
	Duration float64           `json:"duration_sec"`
	Segments []ManifestSegment `json:"segments"`
}

type ManifestSegment struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	ViralityScore int     `json:"virality_score"`
	StartPhrase   string  `json:"start_phrase"`
	EndPhrase     string  `json:"end_phrase"`
	StartSec      float64 `json:"start_sec"`
	EndSec        float64 `json:"end_sec"`
}
