// Package commentary generates the DJ's spoken lines by calling a local
// Ollama instance. Callers must treat every result as best-effort: a failed
// or slow call degrades to a canned fallback at the call site, never a crash.
package commentary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Source produces commentary text and mood-directed track suggestions.
type Source interface {
	// Commentary returns a short DJ line for the given album and track.
	Commentary(ctx context.Context, album, track string) (string, error)
	// SuggestTrack returns a free-text answer naming a track that fits the
	// mood. The answer's format is not guaranteed; callers fuzzy-match it
	// against known track names.
	SuggestTrack(ctx context.Context, mood, album, track string) (string, error)
}

// Client talks to a local Ollama API.
type Client struct {
	baseURL    string
	model      string
	persona    string
	httpClient *http.Client
}

// NewClient creates an Ollama-backed commentary client. persona is used as
// the system prompt; empty means no system prompt.
func NewClient(baseURL, model, persona string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		persona: persona,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// generateRequest is the Ollama /api/generate request body.
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// generateResponse is the Ollama /api/generate response.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Available checks if Ollama is reachable. Used for a startup log line only.
func (c *Client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == 200
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Commentary asks the model for a one-liner on the current track.
func (c *Client) Commentary(ctx context.Context, album, track string) (string, error) {
	prompt := fmt.Sprintf("Give one short DJ-style line of commentary on %q from the album %q. One or two sentences, no preamble.", track, album)
	return c.generate(ctx, prompt)
}

// SuggestTrack asks the model for a single track title fitting the mood.
func (c *Client) SuggestTrack(ctx context.Context, mood, album, track string) (string, error) {
	prompt := fmt.Sprintf("The listener wants %q. We just played %q from %q. Name one track title that fits the mood. Answer with the title only.", mood, track, album)
	return c.generate(ctx, prompt)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: c.persona,
		Stream: false,
		Options: map[string]any{
			"temperature":    0.9,
			"top_p":          0.95,
			"num_predict":    96, // on-air lines are short, cap output
			"repeat_penalty": 1.1,
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != 200 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	return strings.TrimSpace(result.Response), nil
}
