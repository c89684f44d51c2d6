package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/forPelevin/clipmark/internal/ports"
	"github.com/forPelevin/clipmark/internal/types"
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
	timeout time.Duration
}

const (
	defaultModel   = "google/gemini-2.5-flash"
	requestTimeout = 90 * time.Second
)

const systemInstruction = "You are an expert viral video editor for platforms like TikTok, Reels, and YouTube Shorts. " +
	"Your task is to analyze a video transcript and identify the 3 to 5 most engaging, shareable, and impactful segments. " +
	"For each segment, create a catchy title, a compelling description, a virality score, and identify the start and end phrases. " +
	"Focus on moments with strong emotional hooks, valuable insights, humor, or controversy. " +
	"Start and end phrases must be copied verbatim from the transcript. " +
	"Return strictly valid JSON (no markdown, no code fences) matching the provided schema."

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = defaultModel
	}
	baseURL = normalizeBaseURL(baseURL)
	return &Adapter{key: apiKey, model: model, baseURL: baseURL, client: &http.Client{Timeout: 5 * time.Minute}, timeout: requestTimeout}
}

func (a *Adapter) Model() string { return a.model }

// Generate asks the model for segment candidates. The reply is accepted
// whole or not at all.
func (a *Adapter) Generate(ctx context.Context, transcript string) ([]types.SegmentCandidate, error) {
	body, err := json.Marshal(a.requestPayload(transcript))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	reply, err := a.complete(ctx, body)
	if err != nil {
		return nil, err
	}

	var c completion
	if err := json.Unmarshal(reply, &c); err != nil {
		return nil, fmt.Errorf("%w: decode completion: %v", ports.ErrMalformedResponse, err)
	}
	if len(c.Choices) == 0 {
		return nil, fmt.Errorf("%w: openrouter returned no choices", ports.ErrMalformedResponse)
	}
	text, err := contentText(c.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrMalformedResponse, err)
	}
	doc, err := extractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrMalformedResponse, err)
	}
	return ports.DecodeCandidates([]byte(doc))
}

type completion struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete posts one chat completion request and returns the raw 2xx body.
// Everything short of a readable 2xx reply is a network failure, except a
// cancel by the caller, which is returned as is.
func (a *Adapter) complete(ctx context.Context, body []byte) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.baseURL+"/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: openrouter timeout after %s (model=%s)", ports.ErrNetworkFailure, a.timeout, a.model)
	default:
		return nil, fmt.Errorf("%w: %s", ports.ErrNetworkFailure, redactSecrets(err.Error(), a.key))
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read openrouter reply (status %d): %v", ports.ErrNetworkFailure, resp.StatusCode, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: openrouter status %d: %s", ports.ErrNetworkFailure, resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}
	return rb, nil
}

func (a *Adapter) requestPayload(transcript string) map[string]any {
	str := func(desc string) map[string]any { return map[string]any{"type": "string", "description": desc} }
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":         str("A catchy, clickbait-style title (max 10 words)."),
			"description":   str("A brief, compelling description of why this clip is engaging (1-2 sentences)."),
			"viralityScore": map[string]any{"type": "integer", "description": "A virality score from 70 to 100, where 100 is a guaranteed viral hit."},
			"startPhrase":   str("The starting phrase from the transcript that marks the clip's beginning."),
			"endPhrase":     str("The ending phrase from the transcript that marks the clip's end."),
		},
		"required":             []string{"title", "description", "viralityScore", "startPhrase", "endPhrase"},
		"additionalProperties": false,
	}

	return map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]any{
			{"role": "system", "content": systemInstruction},
			{"role": "user", "content": "Here is the transcript: " + transcript},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "clipmark_segments",
				"strict": true,
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"segments": map[string]any{"type": "array", "items": item},
					},
					"required":             []string{"segments"},
					"additionalProperties": false,
				},
			},
		},
	}
}

// contentText flattens message content. Providers send either a string or
// a list of typed parts.
func contentText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("content is neither text nor parts: %q", truncate(string(raw), 80))
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Text)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("content parts carry no text")
	}
	return b.String(), nil
}

// extractJSON returns the outermost JSON array or object in s, whichever
// opens first, after dropping markdown fences and surrounding prose.
func extractJSON(s string) (string, error) {
	t := unfence(strings.TrimSpace(s))
	if t == "" {
		return "", errors.New("empty content")
	}
	i := strings.IndexAny(t, "[{")
	if i < 0 {
		return "", fmt.Errorf("no JSON in reply: %q", truncate(t, 200))
	}
	closer := "}"
	if t[i] == '[' {
		closer = "]"
	}
	j := strings.LastIndex(t, closer)
	if j <= i {
		return "", fmt.Errorf("unterminated JSON in reply: %q", truncate(t, 200))
	}
	return t[i : j+1], nil
}

func unfence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var secretPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\bbearer\s+[\w.-]+`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)[^\n\r,;]+`), "${1}[REDACTED]"},
	{regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)[^\n\r,;]+`), "${1}[REDACTED]"},
}

// redactSecrets masks the API key and anything shaped like a credential.
func redactSecrets(s, apiKey string) string {
	if apiKey != "" {
		s = strings.ReplaceAll(s, apiKey, "[REDACTED]")
	}
	for _, p := range secretPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}
