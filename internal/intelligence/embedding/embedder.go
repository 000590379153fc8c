// Package embedding is the OpenAI-compatible embeddings client backing the
// passage vector index.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/patentlens/patentlens/internal/application/analysis"
	"github.com/patentlens/patentlens/internal/config"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// Embedder calls the embeddings endpoint of the same backend the chat
// client uses, with the same timeout and retry discipline.
type Embedder struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	model        string
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	logger       logging.Logger
}

var _ analysis.TextEmbedder = (*Embedder)(nil)

func NewEmbedder(cfg config.LLMConfig, log logging.Logger) *Embedder {
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
	return &Embedder{
		httpClient:   &http.Client{},
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.EmbeddingModel,
		timeout:      timeout,
		maxRetries:   retries,
		retryBackoff: backoff,
		logger:       log,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "marshal embeddings request")
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			e.logger.Warn("embeddings call failed, retrying",
				logging.Int("attempt", attempt), logging.Err(lastErr))
			select {
			case <-ctx.Done():
				return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeEmbedding, "embeddings call canceled")
			case <-time.After(e.retryBackoff * time.Duration(attempt)):
			}
		}

		vectors, retryable, err := e.attempt(ctx, body, len(texts))
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (e *Embedder) attempt(ctx context.Context, body []byte, want int) (vectors [][]float32, retryable bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "build embeddings request")
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, true, apperrors.Wrap(err, apperrors.ErrCodeEmbedding, "embeddings backend unreachable")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 100<<20))
	if err != nil {
		return nil, true, apperrors.Wrap(err, apperrors.ErrCodeEmbedding, "read embeddings response")
	}
	if resp.StatusCode != http.StatusOK {
		retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, apperrors.New(apperrors.ErrCodeEmbedding,
			fmt.Sprintf("embeddings backend returned status %d", resp.StatusCode))
	}

	var parsed embedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeEmbedding, "decode embeddings response")
	}
	if len(parsed.Data) != want {
		return nil, false, apperrors.New(apperrors.ErrCodeEmbedding,
			fmt.Sprintf("embeddings backend returned %d vectors for %d inputs", len(parsed.Data), want))
	}

	// The API does not guarantee response order; the index field does.
	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })
	vectors = make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		vectors[i] = d.Embedding
	}
	return vectors, false, nil
}
