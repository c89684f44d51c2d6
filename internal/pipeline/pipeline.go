package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/atotto/clipboard"

	"github.com/forPelevin/clipmark/internal/ports"
	"github.com/forPelevin/clipmark/internal/ports/adapters/clipsapi"
	"github.com/forPelevin/clipmark/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/clipmark/internal/ports/adapters/openrouter"
	"github.com/forPelevin/clipmark/internal/usecase"
)

const (
	stdinName     = "stdin"
	clipboardName = "clipboard"
)

type Config struct {
	// TranscriptPath is a text file, or "-" for stdin.
	TranscriptPath string
	FromClipboard  bool

	// Duration is the media length in seconds. When zero it is probed
	// from MediaPath.
	Duration  float64
	MediaPath string

	OutDir string
	Logf   func(format string, args ...any)

	FFprobePath string

	SegmenterURL           string
	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string

	// Overrides for the adapters built from the fields above.
	Segmenter     ports.Segmenter
	Prober        ports.MediaProber
	Stdin         io.Reader
	ReadClipboard func() (string, error)
	Now           func() time.Time
}

func (c Config) Validate() error {
	switch {
	case c.FromClipboard && c.TranscriptPath != "":
		return errors.New("pass a transcript file or --clipboard, not both")
	case !c.FromClipboard && c.TranscriptPath == "":
		return errors.New("transcript is required (file, - for stdin, or --clipboard)")
	}
	if c.TranscriptPath != "" && c.TranscriptPath != "-" {
		if _, err := os.Stat(c.TranscriptPath); err != nil {
			return fmt.Errorf("stat transcript: %w", err)
		}
	}

	if c.Duration < 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if c.Duration == 0 {
		if c.MediaPath == "" {
			return errors.New("either --duration or --media is required")
		}
		if _, err := os.Stat(c.MediaPath); err != nil {
			return fmt.Errorf("stat media: %w", err)
		}
	}

	if c.Segmenter != nil || c.SegmenterURL != "" {
		return nil
	}
	if c.OpenRouterAPIKey == "" {
		return errors.New("OPENROUTER_API_KEY is required (set it in .env)")
	}
	return openrouter.ValidateBaseURL(c.OpenRouterBaseURL, c.OpenRouterAllowedHosts)
}

// NewSegmenter picks the remote clip service when configured and the
// OpenRouter client otherwise.
func NewSegmenter(c Config) ports.Segmenter {
	if c.Segmenter != nil {
		return c.Segmenter
	}
	if c.SegmenterURL != "" {
		return clipsapi.New(c.SegmenterURL, &http.Client{Timeout: 2 * time.Minute})
	}
	return openrouter.New(c.OpenRouterAPIKey, c.OpenRouterModel, c.OpenRouterBaseURL)
}

// Run generates segments for one transcript and writes manifest.json into
// a fresh run directory. It returns the manifest path.
func Run(ctx context.Context, cfg Config) (string, error) {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	text, source, err := readTranscript(cfg)
	if err != nil {
		return "", err
	}
	logf("transcript: %s (%d chars)", source, len([]rune(text)))

	duration, err := resolveDuration(ctx, cfg)
	if err != nil {
		return "", err
	}
	logf("media duration: %.2fs", duration)

	uc := usecase.New(usecase.Deps{Segmenter: NewSegmenter(cfg)})

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, source, now().UTC())
	logf("preparing workspace")
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return "", err
	}
	logf("output run dir: %s", runOutDir)

	logf("requesting segments")
	res, err := uc.Generate(ctx, usecase.Input{
		Transcript: text,
		Duration:   duration,
		Source:     source,
	})
	if err != nil {
		return "", err
	}

	b, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return "", err
	}
	logf("manifest written (%d segments): %s", len(res.Manifest.Segments), manifestPath)
	return manifestPath, nil
}

func readTranscript(cfg Config) (string, string, error) {
	switch {
	case cfg.FromClipboard:
		read := cfg.ReadClipboard
		if read == nil {
			read = clipboard.ReadAll
		}
		s, err := read()
		if err != nil {
			return "", "", fmt.Errorf("read clipboard: %w", err)
		}
		return s, clipboardName, nil
	case cfg.TranscriptPath == "-":
		in := cfg.Stdin
		if in == nil {
			in = os.Stdin
		}
		b, err := io.ReadAll(in)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), stdinName, nil
	default:
		b, err := os.ReadFile(cfg.TranscriptPath)
		if err != nil {
			return "", "", fmt.Errorf("read transcript: %w", err)
		}
		return string(b), cfg.TranscriptPath, nil
	}
}

func resolveDuration(ctx context.Context, cfg Config) (float64, error) {
	if cfg.Duration > 0 {
		return cfg.Duration, nil
	}
	prober := cfg.Prober
	if prober == nil {
		prober = ffmpeg.New(cfg.FFprobePath)
	}
	d, err := prober.ProbeDuration(ctx, cfg.MediaPath)
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}

func buildRunOutDir(outRoot, source string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	name = normalizePathSegment(name)
	if name == "" {
		name = "transcript"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", source, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.Segmenter   = (*openrouter.Adapter)(nil)
	_ ports.Segmenter   = (*clipsapi.Client)(nil)
	_ ports.MediaProber = (*ffmpeg.Adapter)(nil)
)
