package headless

import "math"

// Player is an in-memory player for a fixed-duration asset. It holds the
// state a real player would report and only moves when told to.
type Player struct {
	duration float64
	position float64
	playing  bool
	volume   float64
}

func New(duration float64) *Player {
	if !(duration > 0) || math.IsInf(duration, 0) {
		duration = 0
	}
	return &Player{duration: duration, volume: 1}
}

func (p *Player) Position() float64 { return p.position }

func (p *Player) Seek(sec float64) { p.position = p.clamp(sec) }

func (p *Player) Play() {
	if p.position >= p.duration {
		return
	}
	p.playing = true
}

func (p *Player) Pause() { p.playing = false }

func (p *Player) Playing() bool { return p.playing }

func (p *Player) Duration() float64 { return p.duration }

func (p *Player) Volume() float64 { return p.volume }

func (p *Player) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	p.volume = math.Max(0, math.Min(1, v))
}

// Advance moves the playhead by dt seconds if playing. Reaching the end of
// the asset stops playback, like the "ended" event of a real player.
//
// Nothing in the server drives the clock; remote playheads arrive through
// Report. Advance is the simulated clock for tests and offline runs.
func (p *Player) Advance(dt float64) {
	if !p.playing || !(dt > 0) {
		return
	}
	p.position = p.clamp(p.position + dt)
	if p.position >= p.duration {
		p.playing = false
	}
}

// Report overwrites the mirrored state with what a remote player observed.
func (p *Player) Report(position float64, playing bool) {
	p.position = p.clamp(position)
	p.playing = playing && p.position < p.duration
}

func (p *Player) clamp(sec float64) float64 {
	if math.IsNaN(sec) || sec < 0 {
		return 0
	}
	if sec > p.duration {
		return p.duration
	}
	return sec
}
