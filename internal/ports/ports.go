package ports

import (
	"context"
	"errors"
	"time"

	"github.com/forPelevin/clipmark/internal/types"
)

var (
	// ErrEmptyInput rejects a blank transcript before any request is made.
	ErrEmptyInput = errors.New("transcript is empty")
	// ErrMalformedResponse marks a segmentation reply that does not parse
	// into a list of well-formed candidates.
	ErrMalformedResponse = errors.New("malformed segmentation response")
	// ErrNetworkFailure marks transport errors and non-success statuses.
	ErrNetworkFailure = errors.New("segmentation service unavailable")
)

type Segmenter interface {
	Generate(ctx context.Context, transcript string) ([]types.SegmentCandidate, error)
}

// Player is the media surface behind one segment card. Positions are
// seconds on the shared asset timeline.
type Player interface {
	Position() float64
	Seek(sec float64)
	Play()
	Pause()
	Playing() bool
	Duration() float64
	SetVolume(v float64)
}

type MediaProber interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}
