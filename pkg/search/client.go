// Package search provides web search used to gather context while drafting comments.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Searcher executes a single search query and returns scored documents.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.Document, error)
}

type Config struct {
	BaseURL    string
	APIKey     string
	MaxResults int
	Timeout    time.Duration
}

type Client struct {
	http   *httpclient.Client
	config Config
	logger ectologger.Logger
}

func NewClient(http *httpclient.Client, config Config, logger ectologger.Logger) *Client {
	if config.MaxResults <= 0 {
		config.MaxResults = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		http:   http,
		config: config,
		logger: logger,
	}
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Search runs one query against the provider. Results with empty content are dropped.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.Document, error) {
	if maxResults <= 0 || maxResults > c.config.MaxResults {
		maxResults = c.config.MaxResults
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(searchRequest{
		APIKey:      c.config.APIKey,
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal search request: %s", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(ctx, httpReq)
	metrics.CapabilityCallDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CapabilityCallsTotal.WithLabelValues("search", "error").Inc()
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.CapabilityCallsTotal.WithLabelValues("search", "error").Inc()
		return nil, httperror.NewHTTPError(resp.StatusCode, fmt.Sprintf("search provider returned status %d", resp.StatusCode))
	}

	var parsed searchResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		metrics.CapabilityCallsTotal.WithLabelValues("search", "error").Inc()
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	metrics.CapabilityCallsTotal.WithLabelValues("search", "success").Inc()

	docs := make([]models.Document, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		if result.Content == "" {
			continue
		}
		docs = append(docs, models.Document{
			Title:   result.Title,
			URL:     result.URL,
			Content: result.Content,
			Score:   result.Score,
		})
	}

	c.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"query":   query,
		"results": len(docs),
	}).Debug("search completed")

	return docs, nil
}
