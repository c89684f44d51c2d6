package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/forPelevin/clipmark/internal/domain/segments"
	"github.com/forPelevin/clipmark/internal/ports"
	"github.com/forPelevin/clipmark/internal/types"
)

type Deps struct {
	Segmenter ports.Segmenter
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	Transcript string
	Duration   float64
	// Source names the transcript origin in the manifest.
	Source string
}

type Result struct {
	Segments []types.Segment
	Manifest types.Manifest
}

// Generate asks the segmenter for candidates and maps each onto the media
// timeline. Either every candidate is mapped or an error is returned.
func (u Usecase) Generate(ctx context.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.Transcript) == "" {
		return Result{}, ports.ErrEmptyInput
	}

	cands, err := u.d.Segmenter.Generate(ctx, in.Transcript)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	tr := types.NewTranscript(in.Transcript)
	segs := segments.BuildAll(cands, tr, in.Duration)

	m := types.Manifest{Input: in.Source, Duration: in.Duration, Segments: make([]types.ManifestSegment, 0, len(segs))}
	for i, s := range segs {
		m.Segments = append(m.Segments, types.ManifestSegment{
			ID:            fmt.Sprintf("%03d", i+1),
			Title:         s.Title,
			Description:   s.Description,
			ViralityScore: s.ViralityScore,
			StartPhrase:   s.StartPhrase,
			EndPhrase:     s.EndPhrase,
			StartSec:      s.StartTime,
			EndSec:        s.EndTime,
		})
	}

	return Result{Segments: segs, Manifest: m}, nil
}
