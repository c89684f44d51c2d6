package session

import (
	"github.com/forPelevin/clipmark/internal/domain/playback"
	"github.com/forPelevin/clipmark/internal/types"
)

// View is a read-only copy of the session for the presentation layer.
type View struct {
	Phase    string     `json:"phase"`
	Error    string     `json:"error,omitempty"`
	Duration float64    `json:"duration"`
	Volume   float64    `json:"volume"`
	Cards    []CardView `json:"segments"`
}

type CardView struct {
	Index       int              `json:"index"`
	Segment     types.Segment    `json:"segment"`
	Trim        types.TrimWindow `json:"trim"`
	Drag        string           `json:"drag"`
	Progress    types.Progress   `json:"progress"`
	Position    float64          `json:"position"`
	Playing     bool             `json:"playing"`
	StartPct    float64          `json:"start_percent"`
	EndPct      float64          `json:"end_percent"`
	ElapsedText string           `json:"elapsed_text"`
	TotalText   string           `json:"total_text"`
}

func (s *Session) View() View {
	v := View{
		Phase:    s.phase.String(),
		Error:    s.errMsg,
		Duration: s.duration,
		Volume:   s.volume,
		Cards:    make([]CardView, 0, len(s.cards)),
	}
	for i := range s.cards {
		v.Cards = append(v.Cards, s.cardView(i))
	}
	return v
}

// CardView returns the view of card i.
func (s *Session) CardView(i int) (CardView, error) {
	if _, err := s.card(i); err != nil {
		return CardView{}, err
	}
	return s.cardView(i), nil
}

func (s *Session) cardView(i int) CardView {
	c := s.cards[i]
	lo, hi := c.trim.HandlePercents()
	return CardView{
		Index:       i,
		Segment:     c.trim.Segment,
		Trim:        c.trim.Window,
		Drag:        c.trim.Drag.String(),
		Progress:    c.progress,
		Position:    c.player.Position(),
		Playing:     c.player.Playing(),
		StartPct:    lo,
		EndPct:      hi,
		ElapsedText: playback.FormatClock(c.progress.Elapsed),
		TotalText:   playback.FormatClock(c.trim.Window.Duration()),
	}
}
