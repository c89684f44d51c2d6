package trim

import (
	"math"

	"github.com/forPelevin/clipmark/internal/types"
)

// MinGap is the smallest trim window the handles can produce, in seconds.
const MinGap = 0.5

type Drag int

const (
	Idle Drag = iota
	DraggingStart
	DraggingEnd
)

func (d Drag) String() string {
	switch d {
	case DraggingStart:
		return "dragging_start"
	case DraggingEnd:
		return "dragging_end"
	default:
		return "idle"
	}
}

type Handle int

const (
	StartHandle Handle = iota
	EndHandle
)

// ParseHandle accepts "start" or "end".
func ParseHandle(s string) (Handle, bool) {
	switch s {
	case "start":
		return StartHandle, true
	case "end":
		return EndHandle, true
	default:
		return 0, false
	}
}

// State is the trim state of one segment. Methods return new values and
// never modify the receiver.
type State struct {
	Segment types.Segment
	Window  types.TrimWindow
	Drag    Drag
}

// New starts with the window covering the whole segment.
func New(seg types.Segment) State {
	return State{
		Segment: seg,
		Window:  types.TrimWindow{Start: seg.StartTime, End: seg.EndTime},
		Drag:    Idle,
	}
}

func (s State) Press(h Handle) State {
	if h == EndHandle {
		s.Drag = DraggingEnd
	} else {
		s.Drag = DraggingStart
	}
	return s
}

func (s State) Release() State {
	s.Drag = Idle
	return s
}

// Move applies a pointer position, given as a fraction of the scrub bar
// width, to the handle being dragged. It returns the new state, the time the
// player should seek to and whether anything moved.
func (s State) Move(ratio float64) (State, float64, bool) {
	if s.Drag == Idle || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return s, 0, false
	}
	seg := s.Segment
	if seg.Duration() < MinGap {
		return s, 0, false
	}
	t := seg.StartTime + ratio*seg.Duration()

	switch s.Drag {
	case DraggingStart:
		s.Window.Start = math.Max(seg.StartTime, math.Min(t, s.Window.End-MinGap))
		return s, s.Window.Start, true
	default:
		s.Window.End = math.Min(seg.EndTime, math.Max(t, s.Window.Start+MinGap))
		return s, s.Window.End, true
	}
}

// PlayFrom returns where playback should start for the current position:
// positions outside [Window.Start, Window.End) snap to Window.Start.
func (s State) PlayFrom(position float64) float64 {
	if math.IsNaN(position) || position < s.Window.Start || position >= s.Window.End {
		return s.Window.Start
	}
	return position
}

// SeekRatio maps a click on the scrub bar onto the trim window. It reports
// false while a handle is being dragged.
func (s State) SeekRatio(ratio float64) (float64, bool) {
	if s.Drag != Idle || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, false
	}
	t := s.Window.Start + ratio*s.Window.Duration()
	return math.Max(s.Window.Start, math.Min(t, s.Window.End)), true
}

// HandlePercents returns where the handles sit on the scrub bar, as
// percentages of the full segment.
func (s State) HandlePercents() (float64, float64) {
	full := s.Segment.Duration()
	if full <= 0 {
		return 0, 0
	}
	return (s.Window.Start - s.Segment.StartTime) / full * 100,
		(s.Window.End - s.Segment.StartTime) / full * 100
}
