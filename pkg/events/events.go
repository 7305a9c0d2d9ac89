// Package events defines the engagement events emitted for downstream
// consumers.
package events

import (
	"context"
	"time"
)

// Event types produced by the service.
const (
	TypeCommentGenerated     = "comment.generated"
	TypeCommentPosted        = "comment.posted"
	TypePostLiked            = "post.liked"
	TypeProfileStatusChanged = "profile.status_changed"
)

// EngagementEvent is one lifecycle event in the outreach funnel.
type EngagementEvent struct {
	Type      string    `json:"type"`
	ProfileID int64     `json:"profile_id,omitempty"`
	PostID    int64     `json:"post_id,omitempty"`
	PostURN   string    `json:"post_urn,omitempty"`
	CommentID int64     `json:"comment_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Tracing
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// Emitter publishes engagement events. Implementations must be safe for
// concurrent use.
type Emitter interface {
	Emit(ctx context.Context, evt *EngagementEvent) error
}

// NoopEmitter discards events. Used when no broker is configured and in
// tests.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, *EngagementEvent) error { return nil }
