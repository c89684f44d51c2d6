package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/clipmark/internal/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRoot()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeTranscript(t *testing.T) string {
	t.Helper()
	text := strings.Repeat("x", 100) + "black holes" + strings.Repeat("y", 175) + "no coming back" + strings.Repeat("z", 700)
	p := filepath.Join(t.TempDir(), "talk.txt")
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return p
}

func TestRemap(t *testing.T) {
	out, err := execute(t, "remap", writeTranscript(t), "--start", "black holes", "--end", "no coming back", "--duration", "153")
	if err != nil {
		t.Fatalf("remap: %v", err)
	}
	var got struct {
		StartTime float64 `json:"startTime"`
		EndTime   float64 `json:"endTime"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.StartTime < 15.29 || got.StartTime > 15.31 || got.EndTime < 45.89 || got.EndTime > 45.91 {
		t.Fatalf("got %+v", got)
	}
}

func TestRemap_PreviousTimesAsFallback(t *testing.T) {
	out, err := execute(t, "remap", writeTranscript(t),
		"--start", "black holes", "--end", "edited away",
		"--duration", "153", "--prev-end", "76.5")
	if err != nil {
		t.Fatalf("remap: %v", err)
	}
	var got struct {
		EndTime float64 `json:"endTime"`
	}
	_ = json.Unmarshal([]byte(out), &got)
	if got.EndTime < 76.49 || got.EndTime > 76.51 {
		t.Fatalf("end = %v, want about 76.5", got.EndTime)
	}
}

func TestGenerate_RemoteSegmenter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]types.SegmentCandidate{{
			Title: "t", Description: "d", ViralityScore: 90,
			StartPhrase: "black holes", EndPhrase: "no coming back",
		}})
	}))
	defer srv.Close()

	t.Setenv("CLIPMARK_SEGMENTER_URL", srv.URL)
	t.Setenv("CLIPMARK_LOG_LEVEL", "error")
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "generate", writeTranscript(t), "--duration", "153", "--out", outDir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := strings.TrimSpace(out)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest %q: %v", path, err)
	}
	var m types.Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(m.Segments) != 1 || m.Segments[0].ViralityScore != 90 {
		t.Fatalf("unexpected manifest %+v", m)
	}
}

func TestGenerate_RequiresDuration(t *testing.T) {
	t.Setenv("CLIPMARK_SEGMENTER_URL", "http://127.0.0.1:1")
	_, err := execute(t, "generate", writeTranscript(t))
	if err == nil || !strings.Contains(err.Error(), "--duration or --media") {
		t.Fatalf("err = %v", err)
	}
}
