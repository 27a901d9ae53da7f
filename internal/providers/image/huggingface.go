// Package image implements the image provider contract on top of the Hugging
// Face inference API (SDXL).
package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelforge/internal/providers"
)

const (
	defaultTimeout = 120 * time.Second
	defaultModel   = "stabilityai/stable-diffusion-xl-base-1.0"
	defaultBaseURL = "https://router.huggingface.co/hf-inference/models"
	providerName   = "hf-inference"
)

// Options configures the Hugging Face image client.
type Options struct {
	Token      string
	Model      string
	BaseURL    string
	Width      int
	Height     int
	HTTPClient *http.Client
}

// Client renders one image per request with fixed parameters. Non-success
// responses surface as providers.StatusError so the pipeline's retry policy
// can distinguish transient overload from terminal faults.
type Client struct {
	token   string
	model   string
	baseURL string
	width   int
	height  int
	client  *http.Client
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	GuidanceScale     float64 `json:"guidance_scale"`
	NumInferenceSteps int     `json:"num_inference_steps"`
}

// NewClient constructs an image client with sane defaults. The 1024x1536
// default matches the 9:16 reel format.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1536
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		token:   strings.TrimSpace(opts.Token),
		model:   model,
		baseURL: baseURL,
		width:   width,
		height:  height,
		client:  client,
	}
}

// Render generates raw PNG bytes for the prompt.
func (c *Client) Render(ctx context.Context, prompt string) ([]byte, error) {
	if c.token == "" {
		return nil, providers.ErrMissingCredentials
	}
	payload := inferenceRequest{
		Inputs: prompt,
		Parameters: inferenceParameters{
			Width:             c.width,
			Height:            c.height,
			GuidanceScale:     7.5,
			NumInferenceSteps: 30,
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode inference request: %w", err)
	}
	endpoint := c.baseURL + "/" + escapeModelPath(c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")

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

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s returned an empty image", providerName)
	}
	return data, nil
}

// escapeModelPath escapes each segment of an owner/model identifier while
// keeping the separating slash.
func escapeModelPath(model string) string {
	parts := strings.Split(model, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
