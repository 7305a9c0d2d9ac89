// Package scrape fetches a profile's recent posts from the enrichment
// API.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Feed returns the recent posts for a profile.
type Feed interface {
	FetchPosts(ctx context.Context, username string) ([]models.Post, error)
}

// Config holds the enrichment API connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	APIHost string
}

// Client fetches posts through the enrichment API.
type Client struct {
	config Config
	http   *httpclient.Client
	logger ectologger.Logger
}

func NewClient(config Config, http *httpclient.Client, logger ectologger.Logger) *Client {
	return &Client{
		config: config,
		http:   http,
		logger: logger,
	}
}

type feedEnvelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    []feedPost `json:"data"`
}

type feedPost struct {
	URN                 string `json:"urn"`
	Text                string `json:"text"`
	PostedDate          string `json:"postedDate"`
	PostedDateTimestamp int64  `json:"postedDateTimestamp"`
	Reposted            bool   `json:"reposted"`
	LikeCount           int    `json:"likeCount"`
	CommentsCount       int    `json:"commentsCount"`
}

// FetchPosts retrieves the profile's recent posts. Posts with no URN are
// dropped.
func (c *Client) FetchPosts(ctx context.Context, username string) ([]models.Post, error) {
	ctx, span := tracing.StartSpan(ctx, "scrape.Client.FetchPosts")
	defer span.End()

	start := time.Now()
	posts, err := c.fetch(ctx, username)
	metrics.CapabilityCallDuration.WithLabelValues("scrape").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CapabilityCallsTotal.WithLabelValues("scrape", "error").Inc()
		return nil, err
	}
	metrics.CapabilityCallsTotal.WithLabelValues("scrape", "success").Inc()
	return posts, nil
}

func (c *Client) fetch(ctx context.Context, username string) ([]models.Post, error) {
	endpoint := fmt.Sprintf("%s/get-profile-posts?%s", c.config.BaseURL, url.Values{
		"username": {username},
		"start":    {"0"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.config.APIKey)
	req.Header.Set("x-rapidapi-host", c.config.APIHost)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, string(resp.Body))
	}

	var envelope feedEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("feed request unsuccessful: %s", envelope.Message)
	}

	posts := make([]models.Post, 0, len(envelope.Data))
	for _, raw := range envelope.Data {
		if raw.URN == "" {
			c.logger.WithContext(ctx).WithFields(map[string]any{"username": username}).Warn("Skipping feed post without URN")
			continue
		}
		posts = append(posts, models.Post{
			URN:          raw.URN,
			Text:         raw.Text,
			PostedDate:   postedDate(raw),
			Reposted:     raw.Reposted,
			LikeCount:    raw.LikeCount,
			CommentCount: raw.CommentsCount,
		})
	}
	return posts, nil
}

// postedDate prefers the millisecond timestamp and falls back to the
// formatted date string.
func postedDate(raw feedPost) time.Time {
	if raw.PostedDateTimestamp > 0 {
		return time.UnixMilli(raw.PostedDateTimestamp).UTC()
	}
	if t, err := time.Parse("2006-01-02 15:04:05", raw.PostedDate); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
