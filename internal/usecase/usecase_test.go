package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/forPelevin/clipmark/internal/ports"
	"github.com/forPelevin/clipmark/internal/types"
)

type fakeSegmenter struct {
	cands []types.SegmentCandidate
	err   error
	calls int
	got   string
}

func (f *fakeSegmenter) Generate(_ context.Context, transcript string) ([]types.SegmentCandidate, error) {
	f.calls++
	f.got = transcript
	return f.cands, f.err
}

func testTranscript() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("a", 100))
	b.WriteString("black holes")
	b.WriteString(strings.Repeat("b", 300-100-len("black holes")-len("no coming back")))
	b.WriteString("no coming back")
	b.WriteString(strings.Repeat("c", 700))
	return b.String()
}

func TestGenerate_MapsCandidatesInOrder(t *testing.T) {
	t.Parallel()

	seg := &fakeSegmenter{cands: []types.SegmentCandidate{
		{Title: "second in text", ViralityScore: 70, StartPhrase: "no coming back", EndPhrase: "missing"},
		{Title: "first in text", ViralityScore: 91, StartPhrase: "black holes", EndPhrase: "no coming back"},
	}}
	uc := New(Deps{Segmenter: seg})

	res, err := uc.Generate(context.Background(), Input{Transcript: testTranscript(), Duration: 153, Source: "talk.txt"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if seg.calls != 1 || seg.got != testTranscript() {
		t.Fatalf("segmenter called %d times", seg.calls)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(res.Segments))
	}
	if res.Segments[0].Title != "second in text" || res.Segments[1].Title != "first in text" {
		t.Fatalf("order not preserved: %+v", res.Segments)
	}
	got := res.Segments[1]
	if math.Abs(got.StartTime-15.3) > 1e-9 || math.Abs(got.EndTime-45.9) > 1e-9 {
		t.Fatalf("got %v -> %v, want 15.3 -> 45.9", got.StartTime, got.EndTime)
	}
	for _, s := range res.Segments {
		if s.EndTime-s.StartTime < 5 || s.StartTime < 0 || s.EndTime > 153 {
			t.Fatalf("segment out of bounds: %+v", s)
		}
	}

	m := res.Manifest
	if m.Input != "talk.txt" || m.Duration != 153 || len(m.Segments) != 2 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	if m.Segments[0].ID != "001" || m.Segments[1].ID != "002" {
		t.Fatalf("expected sequential ids, got %s and %s", m.Segments[0].ID, m.Segments[1].ID)
	}
	if m.Segments[1].StartSec != got.StartTime || m.Segments[1].ViralityScore != 91 {
		t.Fatalf("manifest does not mirror segments: %+v", m.Segments[1])
	}
}

func TestGenerate_EmptyTranscriptSkipsSegmenter(t *testing.T) {
	t.Parallel()

	seg := &fakeSegmenter{}
	uc := New(Deps{Segmenter: seg})

	for _, in := range []string{"", "  \n"} {
		_, err := uc.Generate(context.Background(), Input{Transcript: in, Duration: 10})
		if !errors.Is(err, ports.ErrEmptyInput) {
			t.Fatalf("err = %v, want ErrEmptyInput", err)
		}
	}
	if seg.calls != 0 {
		t.Fatalf("segmenter must not be called, got %d calls", seg.calls)
	}
}

func TestGenerate_SegmenterErrorsPassThrough(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
	}{
		{name: "malformed", err: ports.ErrMalformedResponse},
		{name: "network", err: ports.ErrNetworkFailure},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			uc := New(Deps{Segmenter: &fakeSegmenter{
				cands: []types.SegmentCandidate{{Title: "partial"}},
				err:   tc.err,
			}})
			res, err := uc.Generate(context.Background(), Input{Transcript: "text", Duration: 10})
			if !errors.Is(err, tc.err) {
				t.Fatalf("err = %v, want %v", err, tc.err)
			}
			if len(res.Segments) != 0 || len(res.Manifest.Segments) != 0 {
				t.Fatalf("partial result leaked: %+v", res)
			}
		})
	}
}

func TestGenerate_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uc := New(Deps{Segmenter: &fakeSegmenter{cands: []types.SegmentCandidate{{Title: "x"}}}})
	if _, err := uc.Generate(ctx, Input{Transcript: "text", Duration: 10}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
