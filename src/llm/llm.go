package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// AnswerInstruction prefixes every prompt sent by Answer.
const AnswerInstruction = "Provide a concise and clear answer: "

const (
	visionPrompt = "Perform OCR on this image. Return ONLY the raw extracted text with:\n" +
		"- No formatting\n" +
		"- No markdown\n" +
		"- No explanations\n" +
		"- Preserve line breaks accurately from the visual layout.\n" +
		"If no text found, return 'NO_TEXT_FOUND'"
	noTextMarker = "NO_TEXT_FOUND"
	retryDelay   = 1 * time.Second
)

var (
	ErrEmptyPrompt   = errors.New("prompt is empty")
	ErrNoChoices     = errors.New("no choices in API response")
	ErrEmptyResponse = errors.New("empty completion content")
)

type Config struct {
	APIKey      string
	URL         string
	Model       string
	VisionModel string
	Providers   []string
	// MaxAttempts bounds the number of requests per call; <=0 means one.
	MaxAttempts int
	// Referer and Title are sent as HTTP-Referer/X-Title, which OpenRouter
	// uses for attribution. Ignored by OpenAI.
	Referer string
	Title   string
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a client. A nil httpClient uses http.DefaultClient; callers bound
// request time through the context.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	if cfg.URL == "" {
		return nil, errors.New("API URL is required")
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

// Model returns the text model identifier.
func (c *Client) Model() string { return c.cfg.Model }

// Answer asks the text model for a concise answer to prompt and returns the
// trimmed content of the first choice.
func (c *Client) Answer(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	req := ChatRequest{
		Model: c.cfg.Model,
		Messages: []Message{{
			Role:    "user",
			Content: []Content{{Type: "text", Text: AnswerInstruction + prompt}},
		}},
		Provider: c.providerPreferences(),
	}
	log.Printf("Sending %d chars to %s", len(prompt), c.cfg.Model)
	text, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	log.Printf("Received answer (%d chars)", len(text))
	return text, nil
}

// QueryVision asks the vision model to transcribe the text in a PNG image.
func (c *Client) QueryVision(ctx context.Context, imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", errors.New("image data is empty")
	}
	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageData)

	req := ChatRequest{
		Model: c.cfg.VisionModel,
		Messages: []Message{{
			Role: "user",
			Content: []Content{
				{Type: "text", Text: visionPrompt},
				{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}},
			},
		}},
		Temperature: 0.1,
		MaxTokens:   2000,
		Provider:    c.providerPreferences(),
	}
	text, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	if text == noTextMarker {
		return "", nil
	}
	return text, nil
}

// Ping performs a minimal completion to verify the key, model and network.
func (c *Client) Ping(ctx context.Context) error {
	req := ChatRequest{
		Model: c.cfg.Model,
		Messages: []Message{{
			Role:    "user",
			Content: []Content{{Type: "text", Text: "ping"}},
		}},
		MaxTokens: 1,
		Provider:  c.providerPreferences(),
	}
	_, err := c.doWithRetry(ctx, req)
	return err
}

func (c *Client) complete(ctx context.Context, req ChatRequest) (string, error) {
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *Client) doWithRetry(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(retryDelay) * (1.5 * float64(attempt)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.do(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		var apiErr *APIError
		if ctx.Err() != nil || (errors.As(err, &apiErr) && !apiErr.Retryable()) {
			break
		}
	}
	if c.cfg.MaxAttempts > 1 {
		return nil, fmt.Errorf("failed after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var response ChatResponse
	decodeErr := json.Unmarshal(raw, &response)
	if response.Error != nil {
		response.Error.Status = resp.StatusCode
		return nil, response.Error
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	return &response, nil
}

func (c *Client) providerPreferences() *ProviderPreferences {
	if len(c.cfg.Providers) == 0 {
		return nil
	}
	allowFallbacks := false
	return &ProviderPreferences{
		Order:          c.cfg.Providers,
		AllowFallbacks: &allowFallbacks,
	}
}
