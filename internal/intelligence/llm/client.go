// Package llm is the OpenAI-compatible chat-completions client used by
// every pipeline stage that needs a language model.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patentlens/patentlens/internal/application/analysis"
	"github.com/patentlens/patentlens/internal/config"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// Client calls a chat-completions backend.  Each call gets its own timeout
// and a bounded retry with backoff; callers treat a final error as a
// degraded unit of work.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	model        string
	temperature  float64
	maxTokens    int
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	logger       logging.Logger
}

var _ analysis.LanguageModel = (*Client)(nil)

func NewClient(cfg config.LLMConfig, log logging.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Client{
		httpClient:   &http.Client{},
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		timeout:      timeout,
		maxRetries:   retries,
		retryBackoff: backoff,
		logger:       log,
	}
}

type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []analysis.Message `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends the conversation and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, messages []analysis.Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "marshal chat request")
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("model call failed, retrying",
				logging.Int("attempt", attempt), logging.Err(lastErr))
			select {
			case <-ctx.Done():
				return "", apperrors.Wrap(ctx.Err(), apperrors.ErrCodeLLMTimeout, "model call canceled")
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
		}

		content, retryable, err := c.attempt(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return "", lastErr
}

// attempt performs one HTTP round trip under its own timeout.  retryable is
// false for client-side errors the backend will reject again.
func (c *Client) attempt(ctx context.Context, body []byte) (content string, retryable bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "build chat request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", true, apperrors.New(apperrors.ErrCodeLLMTimeout, "model call timed out")
		}
		return "", true, apperrors.Wrap(err, apperrors.ErrCodeLLMUnavailable, "model backend unreachable")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", true, apperrors.Wrap(err, apperrors.ErrCodeLLMUnavailable, "read model response")
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("model backend returned status %d", resp.StatusCode)
		// Overload and server-side errors are worth retrying; the rest are not.
		retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, apperrors.New(apperrors.ErrCodeLLMUnavailable, msg).
			WithDetail(strings.TrimSpace(string(data)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", false, apperrors.Wrap(err, apperrors.ErrCodeLLMBadResponse, "decode model response")
	}
	if parsed.Error != nil {
		return "", false, apperrors.New(apperrors.ErrCodeLLMBadResponse, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", false, apperrors.New(apperrors.ErrCodeLLMBadResponse, "model returned no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}
