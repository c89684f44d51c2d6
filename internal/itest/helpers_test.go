//go:build integration

package itest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/clipmark/internal/ports/adapters/ffmpeg"
)

// mustRepoRoot walks up from the test's working directory to the module root.
func mustRepoRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		up := filepath.Dir(dir)
		if up == dir {
			t.Fatalf("no go.mod above %s", dir)
		}
		dir = up
	}
}

// makeMediaFixture renders a silent black clip of the given length with ffmpeg.
func makeMediaFixture(t *testing.T, dir string, seconds int) string {
	t.Helper()

	path := filepath.Join(dir, "input.mp4")
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=320x240:d=%d", seconds),
		"-f", "lavfi",
		"-i", "anullsrc=r=16000:cl=mono",
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		path,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, b)
	}
	return path
}

func probeSeconds(t *testing.T, path string) float64 {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	d, err := ffmpeg.New("ffprobe").ProbeDuration(ctx, path)
	if err != nil {
		t.Fatalf("probe %s: %v", path, err)
	}
	return d.Seconds()
}
