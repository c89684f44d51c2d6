package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/forPelevin/clipmark/internal/ports"
	"github.com/forPelevin/clipmark/internal/types"
)

type fakeSegmenter struct {
	cands   []types.SegmentCandidate
	err     error
	release chan struct{}
	calls   atomic.Int32
}

func (f *fakeSegmenter) Generate(ctx context.Context, _ string) ([]types.SegmentCandidate, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
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

func oneCandidate() []types.SegmentCandidate {
	return []types.SegmentCandidate{{
		Title:         "Point of no return",
		Description:   "d",
		ViralityScore: 91,
		StartPhrase:   "black holes",
		EndPhrase:     "no coming back",
	}}
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func data(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	d, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("no data in %v", env)
	}
	return d
}

func newSession(t *testing.T, s *Server, duration float64) string {
	t.Helper()
	status, env := doJSON(t, s, http.MethodPost, "/api/v1/sessions", map[string]any{"duration": duration})
	if status != http.StatusCreated {
		t.Fatalf("create session: %d %v", status, env)
	}
	return data(t, env)["id"].(string)
}

func TestHealth(t *testing.T) {
	s := New(Deps{Segmenter: &fakeSegmenter{}})
	status, env := doJSON(t, s, http.MethodGet, "/health", nil)
	if status != http.StatusOK || env["status"] != "ok" {
		t.Fatalf("health: %d %v", status, env)
	}
}

func TestGenerateClips(t *testing.T) {
	for name, body := range map[string]map[string]any{
		"missing transcript": {},
		"blank transcript":   {"transcript": "  \n\t "},
	} {
		t.Run(name, func(t *testing.T) {
			seg := &fakeSegmenter{cands: oneCandidate()}
			s := New(Deps{Segmenter: seg})
			status, env := doJSON(t, s, http.MethodPost, "/api/generate-clips", body)
			if status != http.StatusBadRequest || env["error"] != "Transcript is required" {
				t.Fatalf("got %d %v", status, env)
			}
			if n := seg.calls.Load(); n != 0 {
				t.Fatalf("segmenter called %d times", n)
			}
		})
	}

	t.Run("success", func(t *testing.T) {
		s := New(Deps{Segmenter: &fakeSegmenter{cands: oneCandidate()}})
		req := httptest.NewRequest(http.MethodPost, "/api/generate-clips", strings.NewReader(`{"transcript":"hello"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.App().Test(req, -1)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var got []types.SegmentCandidate
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.StatusCode != http.StatusOK || len(got) != 1 || got[0].ViralityScore != 91 {
			t.Fatalf("got %d %+v", resp.StatusCode, got)
		}
	})

	t.Run("segmenter failure", func(t *testing.T) {
		s := New(Deps{Segmenter: &fakeSegmenter{err: ports.ErrMalformedResponse}})
		status, env := doJSON(t, s, http.MethodPost, "/api/generate-clips", map[string]any{"transcript": "hello"})
		if status != http.StatusInternalServerError {
			t.Fatalf("status = %d", status)
		}
		if env["error"] != "Failed to generate clips from transcript." || !strings.Contains(env["details"].(string), "malformed") {
			t.Fatalf("unexpected body %v", env)
		}
	})
}

func TestSession_GenerateEditPlay(t *testing.T) {
	s := New(Deps{Segmenter: &fakeSegmenter{cands: oneCandidate()}})
	id := newSession(t, s, 100)
	base := "/api/v1/sessions/" + id

	status, env := doJSON(t, s, http.MethodPost, base+"/generate", map[string]any{"transcript": testTranscript()})
	if status != http.StatusAccepted || data(t, env)["phase"] != "processing" {
		t.Fatalf("generate: %d %v", status, env)
	}
	s.Wait()

	_, env = doJSON(t, s, http.MethodGet, base, nil)
	d := data(t, env)
	segs, _ := d["segments"].([]any)
	if d["phase"] != "results" || len(segs) != 1 {
		t.Fatalf("unexpected session %v", d)
	}
	seg := segs[0].(map[string]any)["segment"].(map[string]any)
	if seg["startTime"] != float64(10) || seg["endTime"] != float64(30) {
		t.Fatalf("unexpected segment %v", seg)
	}

	if status, env := doJSON(t, s, http.MethodPost, base+"/segments/0/handles/start/press", nil); status != http.StatusOK {
		t.Fatalf("press: %d %v", status, env)
	}
	status, env = doJSON(t, s, http.MethodPost, base+"/segments/0/handles/move", map[string]any{"ratio": 0.5})
	card := data(t, env)
	if status != http.StatusOK || card["changed"] != true {
		t.Fatalf("move: %d %v", status, env)
	}
	if tr := card["trim"].(map[string]any); tr["trimmedStart"] != float64(20) || tr["trimmedEnd"] != float64(30) {
		t.Fatalf("trim after move: %v", tr)
	}
	if card["position"] != float64(20) {
		t.Fatalf("player not seeked to handle: %v", card["position"])
	}
	if status, _ := doJSON(t, s, http.MethodPost, base+"/release", nil); status != http.StatusOK {
		t.Fatalf("release: %d", status)
	}

	status, env = doJSON(t, s, http.MethodPost, base+"/segments/0/play", nil)
	if status != http.StatusOK || data(t, env)["playing"] != true {
		t.Fatalf("play: %d %v", status, env)
	}

	status, env = doJSON(t, s, http.MethodPost, base+"/segments/0/position", map[string]any{"position": 31})
	card = data(t, env)
	if status != http.StatusOK || card["playing"] != false || card["position"] != float64(30) {
		t.Fatalf("hard stop not applied: %d %v", status, card)
	}
	if p := card["progress"].(map[string]any); p["percent"] != float64(100) {
		t.Fatalf("progress = %v", p)
	}

	status, env = doJSON(t, s, http.MethodPatch, base+"/segments/0/phrases", map[string]any{
		"startPhrase": "black holes",
		"endPhrase":   "no coming back",
	})
	if status != http.StatusOK || data(t, env)["changed"] != false {
		t.Fatalf("unchanged phrases must be a no-op: %d %v", status, env)
	}
}

func TestSession_ResetDropsInFlightGeneration(t *testing.T) {
	seg := &fakeSegmenter{cands: oneCandidate(), release: make(chan struct{})}
	s := New(Deps{Segmenter: seg})
	id := newSession(t, s, 100)
	base := "/api/v1/sessions/" + id

	if status, env := doJSON(t, s, http.MethodPost, base+"/generate", map[string]any{"transcript": testTranscript()}); status != http.StatusAccepted {
		t.Fatalf("generate: %d %v", status, env)
	}
	status, env := doJSON(t, s, http.MethodPost, base+"/reset", nil)
	if status != http.StatusOK || data(t, env)["phase"] != "input" {
		t.Fatalf("reset: %d %v", status, env)
	}
	close(seg.release)
	s.Wait()

	_, env = doJSON(t, s, http.MethodGet, base, nil)
	d := data(t, env)
	if d["phase"] != "input" || len(d["segments"].([]any)) != 0 {
		t.Fatalf("stale result applied: %v", d)
	}
}

func TestSession_GenerationFailure(t *testing.T) {
	s := New(Deps{Segmenter: &fakeSegmenter{err: errors.New("boom")}})
	id := newSession(t, s, 100)
	base := "/api/v1/sessions/" + id

	doJSON(t, s, http.MethodPost, base+"/generate", map[string]any{"transcript": "text"})
	s.Wait()

	_, env := doJSON(t, s, http.MethodGet, base, nil)
	d := data(t, env)
	if d["phase"] != "input" || d["error"] != "An error occurred while generating clips. Please try again." {
		t.Fatalf("unexpected session %v", d)
	}
}

func TestSession_VolumeAndMute(t *testing.T) {
	s := New(Deps{Segmenter: &fakeSegmenter{}})
	base := "/api/v1/sessions/" + newSession(t, s, 100)

	_, env := doJSON(t, s, http.MethodPut, base+"/volume", map[string]any{"volume": 0.4})
	if data(t, env)["volume"] != 0.4 {
		t.Fatalf("volume: %v", env)
	}
	_, env = doJSON(t, s, http.MethodPost, base+"/mute", nil)
	if data(t, env)["volume"] != float64(0) {
		t.Fatalf("mute: %v", env)
	}
	_, env = doJSON(t, s, http.MethodPost, base+"/mute", nil)
	if data(t, env)["volume"] != 0.4 {
		t.Fatalf("unmute: %v", env)
	}
	if status, _ := doJSON(t, s, http.MethodPut, base+"/volume", map[string]any{"volume": 2}); status != http.StatusBadRequest {
		t.Fatalf("out of range volume accepted: %d", status)
	}
}

func TestErrors(t *testing.T) {
	s := New(Deps{Segmenter: &fakeSegmenter{cands: oneCandidate()}})
	id := newSession(t, s, 100)
	base := "/api/v1/sessions/" + id

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "zero duration", method: http.MethodPost, path: "/api/v1/sessions", body: map[string]any{"duration": 0}, want: http.StatusBadRequest},
		{name: "bad id", method: http.MethodGet, path: "/api/v1/sessions/not-a-uuid", want: http.StatusBadRequest},
		{name: "unknown id", method: http.MethodGet, path: "/api/v1/sessions/00000000-0000-0000-0000-000000000000", want: http.StatusNotFound},
		{name: "empty transcript", method: http.MethodPost, path: base + "/generate", body: map[string]any{"transcript": "   "}, want: http.StatusBadRequest},
		{name: "no such segment", method: http.MethodPost, path: base + "/segments/3/play", want: http.StatusNotFound},
		{name: "bad index", method: http.MethodPost, path: base + "/segments/x/play", want: http.StatusBadRequest},
		{name: "bad handle", method: http.MethodPost, path: base + "/segments/0/handles/middle/press", want: http.StatusBadRequest},
		{name: "missing ratio", method: http.MethodPost, path: base + "/segments/0/seek", body: map[string]any{}, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := doJSON(t, s, tt.method, tt.path, tt.body)
			if status != tt.want {
				t.Fatalf("status = %d, want %d (%v)", status, tt.want, env)
			}
			if env["status"] != "error" || env["message"] == "" {
				t.Fatalf("expected error envelope, got %v", env)
			}
		})
	}

	_, env := doJSON(t, s, http.MethodGet, base, nil)
	if data(t, env)["phase"] != "input" {
		t.Fatalf("empty transcript changed the session: %v", env)
	}
}

func TestDeleteSession(t *testing.T) {
	s := New(Deps{Segmenter: &fakeSegmenter{}})
	base := "/api/v1/sessions/" + newSession(t, s, 100)

	if status, _ := doJSON(t, s, http.MethodDelete, base, nil); status != http.StatusNoContent {
		t.Fatalf("delete status = %d", status)
	}
	if status, _ := doJSON(t, s, http.MethodGet, base, nil); status != http.StatusNotFound {
		t.Fatalf("deleted session still served: %d", status)
	}
}
