package models

import "time"

// CommentStatus records why a comment row exists
type CommentStatus string

const (
	CommentStatusGenerated CommentStatus = "GENERATED"
	CommentStatusDiscarded CommentStatus = "DISCARDED_BY_GATEKEEPER"
	CommentStatusRejected  CommentStatus = "REJECTED_BY_QC"
	CommentStatusFailed    CommentStatus = "FAILED"
)

// Comment is the generated (or refused) comment for one post.
// At most one row exists per (post_id, urn); regeneration updates in place.
type Comment struct {
	ID              int64         `json:"comment_id" db:"comment_id"`
	PostID          int64         `json:"post_id" db:"post_id"`
	URN             string        `json:"urn" db:"urn"`
	Text            string        `json:"generated_comment" db:"generated_comment"`
	ResearchSummary *string       `json:"research_summary,omitempty" db:"research_summary"`
	Status          CommentStatus `json:"status" db:"status"`
	IsProcessed     bool          `json:"is_processed" db:"is_processed"`
	IsPosted        bool          `json:"is_posted" db:"is_posted"`
	PostedActionID  *string       `json:"posted_action_id,omitempty" db:"posted_action_id"`
	PostedURN       *string       `json:"posted_urn,omitempty" db:"posted_urn"`
	PostedAt        *time.Time    `json:"posted_at,omitempty" db:"posted_at"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// UpsertCommentRequest is the terminal projection the pipeline persists
type UpsertCommentRequest struct {
	PostID          int64
	URN             string
	Text            string
	ResearchSummary string
	Status          CommentStatus
}
