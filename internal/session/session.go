package session

import (
	"errors"
	"math"
	"strings"

	"github.com/forPelevin/clipmark/internal/domain/playback"
	"github.com/forPelevin/clipmark/internal/domain/segments"
	"github.com/forPelevin/clipmark/internal/domain/trim"
	"github.com/forPelevin/clipmark/internal/ports"
	"github.com/forPelevin/clipmark/internal/types"
)

var (
	// ErrStale is returned by Complete when the session was reset or
	// restarted after the ticket was issued. The result is dropped.
	ErrStale     = errors.New("stale generation result")
	ErrNoSegment = errors.New("segment not found")
)

const defaultVolume = 0.75

type Phase int

const (
	PhaseInput Phase = iota
	PhaseProcessing
	PhaseResults
)

func (p Phase) String() string {
	switch p {
	case PhaseProcessing:
		return "processing"
	case PhaseResults:
		return "results"
	default:
		return "input"
	}
}

// PlayerFactory opens a player on the session's media asset.
type PlayerFactory func(duration float64) ports.Player

type card struct {
	trim     trim.State
	player   ports.Player
	progress types.Progress
}

// Ticket identifies one generation request.
type Ticket struct{ gen uint64 }

// Session owns every per-segment record of one generate -> results cycle.
// It is not safe for concurrent use; callers serialize access.
type Session struct {
	duration  float64
	newPlayer PlayerFactory

	phase      Phase
	gen        uint64
	transcript types.Transcript
	cards      []*card
	errMsg     string

	volume     float64
	lastVolume float64
}

func New(duration float64, newPlayer PlayerFactory) *Session {
	return &Session{
		duration:   duration,
		newPlayer:  newPlayer,
		volume:     defaultVolume,
		lastVolume: defaultVolume,
	}
}

func (s *Session) Phase() Phase { return s.phase }

func (s *Session) Duration() float64 { return s.duration }

func (s *Session) Transcript() types.Transcript { return s.transcript }

func (s *Session) Len() int { return len(s.cards) }

// Begin starts a generation for transcript. Blank input is rejected
// without touching the session.
func (s *Session) Begin(transcript string) (Ticket, error) {
	if strings.TrimSpace(transcript) == "" {
		return Ticket{}, ports.ErrEmptyInput
	}
	s.gen++
	s.phase = PhaseProcessing
	s.transcript = types.NewTranscript(transcript)
	s.cards = nil
	s.errMsg = ""
	return Ticket{gen: s.gen}, nil
}

// Complete applies the outcome of the generation started with t. A failed
// generation sends the session back to input with no segments.
func (s *Session) Complete(t Ticket, segs []types.Segment, err error) error {
	if t.gen != s.gen || s.phase != PhaseProcessing {
		return ErrStale
	}
	if err != nil {
		s.phase = PhaseInput
		s.cards = nil
		s.errMsg = UserMessage(err)
		return err
	}

	cards := make([]*card, 0, len(segs))
	for _, seg := range segs {
		p := s.newPlayer(s.duration)
		p.SetVolume(s.volume)
		c := &card{trim: trim.New(seg), player: p}
		c.refresh()
		cards = append(cards, c)
	}
	s.cards = cards
	s.phase = PhaseResults
	return nil
}

// Reset drops the current results and invalidates any outstanding ticket.
func (s *Session) Reset() {
	s.gen++
	s.phase = PhaseInput
	s.transcript = types.Transcript{}
	s.cards = nil
	s.errMsg = ""
}

// Segment returns the current segment at index i.
func (s *Session) Segment(i int) (types.Segment, error) {
	c, err := s.card(i)
	if err != nil {
		return types.Segment{}, err
	}
	return c.trim.Segment, nil
}

// Player returns the player behind card i.
func (s *Session) Player(i int) (ports.Player, error) {
	c, err := s.card(i)
	if err != nil {
		return nil, err
	}
	return c.player, nil
}

// CommitPhrases re-maps segment i when either phrase changed and reports
// whether it did. A re-mapped segment gets a fresh trim window.
func (s *Session) CommitPhrases(i int, startPhrase, endPhrase string) (bool, error) {
	c, err := s.card(i)
	if err != nil {
		return false, err
	}
	prev := c.trim.Segment
	if startPhrase == prev.StartPhrase && endPhrase == prev.EndPhrase {
		return false, nil
	}
	next := segments.Rebuild(prev, startPhrase, endPhrase, s.transcript, s.duration)
	c.trim = trim.New(next)
	c.refresh()
	return true, nil
}

func (s *Session) PressHandle(i int, h trim.Handle) error {
	c, err := s.card(i)
	if err != nil {
		return err
	}
	c.trim = c.trim.Press(h)
	return nil
}

// MoveHandle drags the pressed handle of card i and seeks its player to the
// new handle position for live preview.
func (s *Session) MoveHandle(i int, ratio float64) (bool, error) {
	c, err := s.card(i)
	if err != nil {
		return false, err
	}
	next, seek, moved := c.trim.Move(ratio)
	if !moved {
		return false, nil
	}
	c.trim = next
	c.player.Seek(seek)
	c.refresh()
	return true, nil
}

// ReleaseHandles ends any drag in progress. A release can happen anywhere
// on the page, so it applies to every card.
func (s *Session) ReleaseHandles() {
	for _, c := range s.cards {
		c.trim = c.trim.Release()
	}
}

// Play starts card i, snapping to the trim start when the playhead is
// outside the trim window.
func (s *Session) Play(i int) error {
	c, err := s.card(i)
	if err != nil {
		return err
	}
	pos := c.player.Position()
	if from := c.trim.PlayFrom(pos); from != pos {
		c.player.Seek(from)
	}
	c.player.Play()
	c.refresh()
	return nil
}

func (s *Session) Pause(i int) error {
	c, err := s.card(i)
	if err != nil {
		return err
	}
	c.player.Pause()
	c.refresh()
	return nil
}

func (s *Session) TogglePlay(i int) error {
	c, err := s.card(i)
	if err != nil {
		return err
	}
	if c.player.Playing() {
		return s.Pause(i)
	}
	return s.Play(i)
}

// SeekRatio handles a click on the scrub bar of card i.
func (s *Session) SeekRatio(i int, ratio float64) (bool, error) {
	c, err := s.card(i)
	if err != nil {
		return false, err
	}
	t, ok := c.trim.SeekRatio(ratio)
	if !ok {
		return false, nil
	}
	c.player.Seek(t)
	c.refresh()
	return true, nil
}

// OnPosition processes a position update from the player of card i. A
// playing player that reached the trim end is paused and clamped there.
func (s *Session) OnPosition(i int) error {
	c, err := s.card(i)
	if err != nil {
		return err
	}
	if c.trim.Drag == trim.Idle {
		if pos, stop := playback.Tick(c.player.Position(), c.player.Playing(), c.trim.Window); stop {
			c.player.Pause()
			c.player.Seek(pos)
		}
	}
	c.refresh()
	return nil
}

func (s *Session) Volume() float64 { return s.volume }

func (s *Session) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	s.volume = math.Max(0, math.Min(1, v))
	s.applyVolume()
}

// ToggleMute mutes, or restores the level in use before muting.
func (s *Session) ToggleMute() {
	if s.volume > 0 {
		s.lastVolume = s.volume
		s.volume = 0
	} else if s.lastVolume > 0 {
		s.volume = s.lastVolume
	} else {
		s.volume = defaultVolume
	}
	s.applyVolume()
}

func (s *Session) applyVolume() {
	for _, c := range s.cards {
		c.player.SetVolume(s.volume)
	}
}

func (s *Session) card(i int) (*card, error) {
	if i < 0 || i >= len(s.cards) {
		return nil, ErrNoSegment
	}
	return s.cards[i], nil
}

func (c *card) refresh() {
	c.progress = playback.Reduce(c.player.Position(), c.trim.Window)
}

// UserMessage is the text shown for a failed request.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ports.ErrEmptyInput):
		return "Transcript cannot be empty."
	default:
		return "An error occurred while generating clips. Please try again."
	}
}
