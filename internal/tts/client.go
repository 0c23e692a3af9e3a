// Package tts is the speech-synthesis client: the one remote capability this
// service calls, invoked through the rate-limited wrapper.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"smart-quiz-service/internal/domain"
	"smart-quiz-service/internal/ratelimit"
)

// voices is the closed set the remote capability accepts.
var voices = map[string]bool{
	"alloy":   true,
	"echo":    true,
	"fable":   true,
	"onyx":    true,
	"nova":    true,
	"shimmer": true,
}

// Options configures the client.
type Options struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Client synthesizes speech over HTTP. It keeps no audio after a call
// returns; a cancelled or timed-out call yields no bytes and no side effects.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

func NewClient(opts Options, limiter *ratelimit.Limiter) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := opts.Model
	if model == "" {
		model = "tts-1"
	}
	return &Client{
		endpoint:   opts.Endpoint,
		apiKey:     opts.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

type synthesizeRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// Synthesize renders text as audio bytes using the given voice. The text is
// capped and the call throttled by the wrapper; exceeding the window fails
// fast with ErrRateLimited before the remote capability is touched.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if !voices[voice] {
		return nil, fmt.Errorf("%w: unknown voice %q", domain.ErrValidation, voice)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrValidation)
	}
	return c.limiter.Invoke(ctx, text, func(ctx context.Context, payload string) ([]byte, error) {
		return c.post(ctx, payload, voice)
	})
}

func (c *Client) post(ctx context.Context, text, voice string) ([]byte, error) {
	body, err := json.Marshal(synthesizeRequest{Model: c.model, Input: text, Voice: voice})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: synthesis returned status %d", domain.ErrExternalService, resp.StatusCode)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read audio: %v", domain.ErrExternalService, err)
	}
	return audio, nil
}
