// Package social posts likes and comments to the platform's v2 social
// actions API.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/metrics"
)

// MaxCommentLength is the platform's comment character limit.
const MaxCommentLength = 1250

type Config struct {
	BaseURL     string
	AccessToken string
	UserID      string
}

// ActionResult reports a successful like or comment.
type ActionResult struct {
	ID          string
	URNUsed     string
	AlreadyDone bool
}

type Client struct {
	http   *httpclient.Client
	config Config
	logger ectologger.Logger
}

func NewClient(cfg Config, http *httpclient.Client, logger ectologger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.linkedin.com/v2"
	}
	return &Client{
		http:   http,
		config: cfg,
		logger: logger,
	}
}

type likePayload struct {
	Actor  string `json:"actor"`
	Object string `json:"object"`
}

type commentPayload struct {
	Actor   string `json:"actor"`
	Object  string `json:"object"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// Like likes the post identified by urnOrID. A 409 conflict means the
// post was already liked and is reported as success. A thread URN
// mismatch is retried exactly once with the URN named in the error.
func (c *Client) Like(ctx context.Context, urnOrID string) (*ActionResult, error) {
	formattedURN := FormatURN(urnOrID)

	result, err := c.likeOnce(ctx, formattedURN)
	if err == nil {
		metrics.SocialActionsTotal.WithLabelValues("like", "success").Inc()
		return result, nil
	}

	mismatch, ok := asMismatch(err, formattedURN)
	if !ok {
		metrics.SocialActionsTotal.WithLabelValues("like", "error").Inc()
		return nil, err
	}

	c.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"provided_urn": formattedURN,
		"actual_urn":   mismatch.Correct,
	}).Warn("thread urn mismatch, retrying with corrected urn")

	result, err = c.likeOnce(ctx, mismatch.Correct)
	if err != nil {
		metrics.SocialActionsTotal.WithLabelValues("like", "error").Inc()
		return nil, fmt.Errorf("retry with corrected urn failed: %w", err)
	}
	metrics.SocialActionsTotal.WithLabelValues("like", "success").Inc()
	return result, nil
}

func (c *Client) likeOnce(ctx context.Context, postURN string) (*ActionResult, error) {
	payload := likePayload{
		Actor:  "urn:li:person:" + c.config.UserID,
		Object: postURN,
	}

	resp, err := c.post(ctx, c.actionURL(postURN, "likes"), payload)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return &ActionResult{
			ID:      actionID(resp),
			URNUsed: postURN,
		}, nil
	case http.StatusConflict:
		return &ActionResult{
			ID:          "already_liked",
			URNUsed:     postURN,
			AlreadyDone: true,
		}, nil
	default:
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
}

// PostComment posts text as a comment on the post identified by urnOrID.
// Text is cleaned and truncated to the platform limit first. A thread URN
// mismatch is retried exactly once with the URN named in the error.
func (c *Client) PostComment(ctx context.Context, urnOrID string, text string) (*ActionResult, error) {
	formattedURN := FormatURN(urnOrID)
	cleaned := CleanComment(text)

	result, err := c.commentOnce(ctx, formattedURN, cleaned)
	if err == nil {
		metrics.SocialActionsTotal.WithLabelValues("comment", "success").Inc()
		return result, nil
	}

	mismatch, ok := asMismatch(err, formattedURN)
	if !ok {
		metrics.SocialActionsTotal.WithLabelValues("comment", "error").Inc()
		return nil, err
	}

	c.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"provided_urn": formattedURN,
		"actual_urn":   mismatch.Correct,
	}).Warn("thread urn mismatch, retrying with corrected urn")

	result, err = c.commentOnce(ctx, mismatch.Correct, cleaned)
	if err != nil {
		metrics.SocialActionsTotal.WithLabelValues("comment", "error").Inc()
		return nil, fmt.Errorf("retry with corrected urn failed: %w", err)
	}
	metrics.SocialActionsTotal.WithLabelValues("comment", "success").Inc()
	return result, nil
}

func (c *Client) commentOnce(ctx context.Context, postURN string, text string) (*ActionResult, error) {
	payload := commentPayload{
		Actor:  "urn:li:person:" + c.config.UserID,
		Object: postURN,
	}
	payload.Message.Text = text

	resp, err := c.post(ctx, c.actionURL(postURN, "comments"), payload)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
		return &ActionResult{
			ID:      actionID(resp),
			URNUsed: postURN,
		}, nil
	}
	return nil, &APIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
}

func (c *Client) actionURL(postURN string, action string) string {
	return fmt.Sprintf("%s/socialActions/%s/%s", c.config.BaseURL, url.QueryEscape(postURN), action)
}

func (c *Client) post(ctx context.Context, endpoint string, payload interface{}) (*httpclient.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	return c.http.Do(ctx, req)
}

// asMismatch converts a 400 mismatch APIError into a URNMismatchError
// carrying the corrected URN from the response body.
func asMismatch(err error, providedURN string) (*URNMismatchError, bool) {
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.StatusCode != http.StatusBadRequest {
		return nil, false
	}
	if !strings.Contains(apiErr.Body, urnMismatchMarker) {
		return nil, false
	}
	correct, found := ExtractThreadURN(apiErr.Body)
	if !found {
		return nil, false
	}
	return &URNMismatchError{Provided: providedURN, Correct: correct}, true
}

func actionID(resp *httpclient.Response) string {
	for _, header := range []string{"X-Linkedin-Id", "X-Restli-Id"} {
		if id := resp.Headers[header]; id != "" {
			return id
		}
	}
	if location := resp.Headers["Location"]; location != "" {
		parts := strings.Split(location, "/")
		return parts[len(parts)-1]
	}
	return "unknown"
}

// CleanComment strips annotation lines and collapses the text onto one
// line, truncating to the platform limit.
func CleanComment(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") || strings.HasPrefix(line, "Note:") {
			continue
		}
		kept = append(kept, line)
	}
	cleaned := strings.Join(kept, " ")
	// The platform limit counts characters, so truncate on rune
	// boundaries rather than bytes.
	if runes := []rune(cleaned); len(runes) > MaxCommentLength {
		cleaned = string(runes[:MaxCommentLength-3]) + "..."
	}
	return cleaned
}
