package ports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/forPelevin/clipmark/internal/types"
)

type wireCandidate struct {
	Title         *string         `json:"title"`
	Description   *string         `json:"description"`
	ViralityScore json.RawMessage `json:"viralityScore"`
	StartPhrase   *string         `json:"startPhrase"`
	EndPhrase     *string         `json:"endPhrase"`
}

// DecodeCandidates parses a segmentation reply. The payload is either a
// JSON array of candidates or an object holding that array under
// "segments" or "clips". Every item must carry all five fields with the
// right JSON types; anything else is ErrMalformedResponse.
func DecodeCandidates(b []byte) ([]types.SegmentCandidate, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedResponse)
	}

	if b[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(b, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		inner, ok := env["segments"]
		if !ok {
			inner, ok = env["clips"]
		}
		if !ok {
			return nil, fmt.Errorf("%w: object has no segments array", ErrMalformedResponse)
		}
		b = bytes.TrimSpace(inner)
	}
	if len(b) == 0 || b[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedResponse)
	}

	var raw []wireCandidate
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := make([]types.SegmentCandidate, 0, len(raw))
	for i, w := range raw {
		c, err := w.candidate()
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformedResponse, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (w wireCandidate) candidate() (types.SegmentCandidate, error) {
	fields := []struct {
		name string
		v    *string
	}{
		{"title", w.Title},
		{"description", w.Description},
		{"startPhrase", w.StartPhrase},
		{"endPhrase", w.EndPhrase},
	}
	var missing []string
	for _, f := range fields {
		if f.v == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return types.SegmentCandidate{}, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	score, err := parseScore(w.ViralityScore)
	if err != nil {
		return types.SegmentCandidate{}, err
	}

	return types.SegmentCandidate{
		Title:         *w.Title,
		Description:   *w.Description,
		ViralityScore: score,
		StartPhrase:   *w.StartPhrase,
		EndPhrase:     *w.EndPhrase,
	}, nil
}

// parseScore accepts a JSON number with an integral value.
func parseScore(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("missing viralityScore")
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return 0, fmt.Errorf("viralityScore is not a number: %s", raw)
	}
	f, err := json.Number(raw).Float64()
	if err != nil {
		return 0, fmt.Errorf("viralityScore: %v", err)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("viralityScore is not an integer: %s", raw)
	}
	return int(f), nil
}
