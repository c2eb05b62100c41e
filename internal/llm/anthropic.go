package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/faceless-truth/mcs-platform/internal/common"
)

const classifierSystemPrompt = "You are an accounting transaction classifier. " +
	"Choose an account code and tax type only from the lists provided. " +
	"Respond only with JSON in the exact format requested."

// anthropicClient implements the Client interface for Anthropic API.
type anthropicClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &anthropicClient{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Classify sends a classification request to Anthropic.
func (c *anthropicClient) Classify(ctx context.Context, prompt string) (ClassificationResponse, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"system":      classifierSystemPrompt,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return ClassificationResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", strings.NewReader(string(jsonBody)))
	if err != nil {
		return ClassificationResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ClassificationResponse{}, &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ClassificationResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return ClassificationResponse{}, fmt.Errorf("anthropic: %w", common.ErrRateLimit)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return ClassificationResponse{}, &common.RetryableError{
			Err:       fmt.Errorf("anthropic API error (status %d)", resp.StatusCode),
			Retryable: true,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return ClassificationResponse{}, &common.RetryableError{
			Err:       fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body)),
			Retryable: false,
		}
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ClassificationResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Content) == 0 {
		return ClassificationResponse{}, fmt.Errorf("no content in response")
	}

	return parseClassification(response.Content[0].Text)
}

// parseClassification extracts the structured classification from the model's
// text output.
func parseClassification(content string) (ClassificationResponse, error) {
	var jsonResp ClassificationResponse

	content = cleanMarkdownWrapper(content)

	if err := json.Unmarshal([]byte(content), &jsonResp); err != nil {
		return ClassificationResponse{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if jsonResp.AccountCode == "" {
		return ClassificationResponse{}, fmt.Errorf("no account code found in response")
	}

	return jsonResp, nil
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Role       string `json:"role"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
