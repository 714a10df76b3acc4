package ai

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

	"golang.org/x/time/rate"

	"enricher/internal/logger"
)

var ErrNotConfigured = errors.New("AI provider API key not configured")

// OpenAI-compatible API structures. OpenRouter accepts the same shapes.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type ChatResponse struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message Message `json:"message"`
}

type EmbeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type EmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %d - %s", e.Provider, e.StatusCode, e.Body)
}

// Client talks to one OpenAI-compatible endpoint. Calls share a token
// bucket so the fan-out of concurrent products stays under the provider's
// request quota.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logger.Logger
}

type ClientConfig struct {
	Name              string
	BaseURL           string
	APIKey            string
	RequestsPerMinute int
	Timeout           time.Duration
}

func NewClient(cfg ClientConfig, logger *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}
	return &Client{
		name:       cfg.Name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		logger:     logger,
	}
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Chat returns the content of the first choice.
func (c *Client) Chat(ctx context.Context, request ChatRequest) (string, error) {
	var chatResp ChatResponse
	if err := c.post(ctx, "/chat/completions", request, &chatResp); err != nil {
		return "", err
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", c.name)
	}
	return chatResp.Choices[0].Message.Content, nil
}

// Embed returns the embedding of input.
func (c *Client) Embed(ctx context.Context, model, input string, dimensions int) ([]float64, error) {
	var embResp EmbeddingResponse
	request := EmbeddingRequest{Model: model, Input: input, Dimensions: dimensions}
	if err := c.post(ctx, "/embeddings", request, &embResp); err != nil {
		return nil, err
	}
	if len(embResp.Data) == 0 || len(embResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding from %s", c.name)
	}
	vec := embResp.Data[0].Embedding
	if dimensions > 0 && len(vec) != dimensions {
		return nil, fmt.Errorf("%s returned %d dimensions, want %d", c.name, len(vec), dimensions)
	}
	return vec, nil
}

func (c *Client) post(ctx context.Context, path string, request, out interface{}) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Provider: c.name, StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
