// Package speech implements the narration provider contract on top of the
// OpenAI text-to-speech API.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelforge/internal/providers"
)

const (
	defaultTimeout = 120 * time.Second
	defaultModel   = "gpt-4o-mini-tts"
	defaultVoice   = "alloy"
	defaultBaseURL = "https://api.openai.com/v1"
	providerName   = "openai-tts"
)

// Options configures the narration client.
type Options struct {
	APIKey     string
	Model      string
	Voice      string
	BaseURL    string
	HTTPClient *http.Client
}

// Client synthesizes narration audio. Any non-success response is terminal:
// the pipeline never retries narration.
type Client struct {
	apiKey  string
	model   string
	voice   string
	baseURL string
	client  *http.Client
}

type speechRequest struct {
	Model  string `json:"model"`
	Voice  string `json:"voice"`
	Input  string `json:"input"`
	Format string `json:"format"`
}

// NewClient constructs a narration client with sane defaults.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	voice := strings.TrimSpace(opts.Voice)
	if voice == "" {
		voice = defaultVoice
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		voice:   voice,
		baseURL: baseURL,
		client:  client,
	}
}

// Synthesize converts text into mp3 audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, providers.ErrMissingCredentials
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("narration text is empty")
	}
	payload := speechRequest{
		Model:  c.model,
		Voice:  c.voice,
		Input:  text,
		Format: "mp3",
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode speech request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", &buf)
	if err != nil {
		return nil, fmt.Errorf("build speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", providerName, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &providers.StatusError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("speech response is empty")
	}
	return audio, nil
}
