/**
 * Model Client - OpenAI-compatible chat completions
 *
 * Backs the structured parser with any endpoint speaking the chat
 * completions protocol (Ollama, OpenRouter, vLLM). The client never picks
 * fields out of the reply itself; it returns the raw completion text and
 * leaves schema coercion to the parser.
 */

package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	pipeerrors "github.com/veridoc/docverify/internal/errors"
	"github.com/veridoc/docverify/internal/logging"
)

// ChatCompleter produces one completion for one prompt. Satisfied by
// ModelClient in production and by stubs in tests.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelClient handles communication with the model endpoint
type ModelClient struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	retry      RetryConfig
	logger     *logging.Logger
}

// RetryConfig bounds the retry-with-backoff loop around model calls.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// chatRequest represents the API request structure
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents the API response structure
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewModelClient creates a new model client
func NewModelClient(baseURL, model, apiKey string) *ModelClient {
	return &ModelClient{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		retry:  DefaultRetryConfig(),
		logger: logging.NewLogger("ModelClient"),
	}
}

// Complete sends one user prompt and returns the completion text.
func (c *ModelClient) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/chat/completions", c.baseURL)

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		httpReq.Header.Set("X-Source", "docverify")
		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", pipeerrors.NewAPICallFailedError(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	content := chatResp.Choices[0].Message.Content
	c.logger.Debug("Completion received", "model", c.model, "length", len(content))
	return content, nil
}

// shouldRetry determines if a status code is retryable
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// calculateBackoff calculates exponential backoff duration
func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	return time.Duration(backoff)
}

// retryWithBackoff wraps an HTTP request with retry logic
func (c *ModelClient) retryWithBackoff(ctx context.Context, reqFunc func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := reqFunc()
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			if !shouldRetry(resp.StatusCode) {
				// Non-retryable status: hand it back for error reporting.
				return resp, nil
			}
			resp.Body.Close()
		}

		if attempt == c.retry.MaxRetries {
			break
		}

		backoff := calculateBackoff(attempt, c.retry)
		c.logger.Warn("Model request failed, retrying",
			"attempt", attempt+1, "maxRetries", c.retry.MaxRetries, "backoff", backoff, "error", lastErr)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("model request failed after %d retries: %w", c.retry.MaxRetries, lastErr)
}
