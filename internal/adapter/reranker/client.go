package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"minirag/backend/internal/rag"
)

type provider struct {
	url   string
	model string
	topN  bool
}

var providers = map[string]provider{
	"jina":   {url: "https://api.jina.ai/v1/rerank", model: "jina-reranker-v1-base-en"},
	"cohere": {url: "https://api.cohere.ai/v1/rerank", model: "rerank-english-v3.0", topN: true},
}

// Client scores passages with a hosted cross-encoder.
type Client struct {
	apiKey   string
	provider string
	client   *http.Client
	baseURL  string
}

func NewClient(provider, apiKey string) *Client {
	return &Client{
		provider: provider,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Score returns one relevance score per passage, in passage order. Passages
// the provider leaves out of its results score 0.
func (c *Client) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	scores := make([]float64, len(passages))
	if len(passages) == 0 {
		return scores, nil
	}

	p, ok := providers[c.provider]
	if !ok {
		return nil, rag.NewServiceError(c.provider, "rerank", fmt.Errorf("unknown rerank provider %q", c.provider))
	}
	url := p.url
	if c.baseURL != "" {
		url = c.baseURL
	}

	reqBody := map[string]interface{}{
		"model":     p.model,
		"query":     query,
		"documents": passages,
	}
	if p.topN {
		reqBody["top_n"] = len(passages)
		reqBody["return_documents"] = false
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, rag.NewServiceError(c.provider, "rerank", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, rag.NewServiceError(c.provider, "rerank", fmt.Errorf("%s api error: %d %s", c.provider, resp.StatusCode, string(body)))
	}

	var result struct {
		Results []struct {
			Index int     `json:"index"`
			Score float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, rag.NewServiceError(c.provider, "rerank", err)
	}

	for _, r := range result.Results {
		if r.Index >= 0 && r.Index < len(passages) {
			scores[r.Index] = r.Score
		}
	}

	slog.DebugContext(ctx, "reranked passages", "provider", c.provider, "count", len(passages))
	return scores, nil
}
