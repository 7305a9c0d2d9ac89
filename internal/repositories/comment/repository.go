// Package comment persists generated comments and posting bookkeeping.
package comment

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var commentColumns = []string{
	"comment_id", "post_id", "urn", "generated_comment", "research_summary",
	"status", "is_processed", "is_posted", "posted_action_id", "posted_urn",
	"posted_at", "created_at", "updated_at",
}

// Repository handles comment persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes the pipeline's terminal projection for a post. At most
// one row exists per (post_id, urn); a regeneration overwrites it.
func (r *Repository) Upsert(ctx context.Context, req models.UpsertCommentRequest) (*models.Comment, error) {
	ctx, span := tracing.StartSpan(ctx, "comment.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	query := `
		INSERT INTO comments (post_id, urn, generated_comment, research_summary, status, is_processed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
		ON CONFLICT (post_id, urn) DO UPDATE SET
			generated_comment = EXCLUDED.generated_comment,
			research_summary = EXCLUDED.research_summary,
			status = EXCLUDED.status,
			is_processed = TRUE,
			updated_at = EXCLUDED.updated_at
		RETURNING comment_id
	`

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		req.PostID, req.URN, req.Text, req.ResearchSummary, req.Status, now,
	).Scan(&id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"post_id": req.PostID, "urn": req.URN, "status": req.Status}).Error("Failed to upsert comment")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to upsert comment: %v", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves a comment by ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	ctx, span := tracing.StartSpan(ctx, "comment.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(commentColumns...)
	sb.From("comments")
	sb.Where(sb.Equal("comment_id", id))

	query, args := sb.Build()
	var comment models.Comment
	if err := r.db.GetContext(ctx, &comment, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "comment %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"comment_id": id}).Error("Failed to get comment")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get comment: %v", err)
	}
	return &comment, nil
}

// ListUnposted returns approved comments not yet posted to the platform.
func (r *Repository) ListUnposted(ctx context.Context, limit int) ([]models.Comment, error) {
	ctx, span := tracing.StartSpan(ctx, "comment.Repository.ListUnposted")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(commentColumns...)
	sb.From("comments")
	sb.Where(
		sb.Equal("status", models.CommentStatusGenerated),
		sb.Equal("is_posted", false),
	)
	sb.OrderBy("created_at ASC")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list unposted comments")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list unposted comments: %v", err)
	}
	return comments, nil
}

// MarkPosted records a successful post. postedURN may differ from the
// comment's URN when the platform corrected it.
func (r *Repository) MarkPosted(ctx context.Context, commentID int64, actionID string, postedURN string) error {
	ctx, span := tracing.StartSpan(ctx, "comment.Repository.MarkPosted")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("comments")
	ub.Set(
		ub.Assign("is_posted", true),
		ub.Assign("posted_action_id", actionID),
		ub.Assign("posted_urn", postedURN),
		ub.Assign("posted_at", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("comment_id", commentID))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"comment_id": commentID}).Error("Failed to mark comment as posted")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to mark comment as posted: %v", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "comment %d not found", commentID)
	}
	return nil
}

// StatusCount is one row of the comment status breakdown.
type StatusCount struct {
	Status models.CommentStatus `db:"status" json:"status"`
	Count  int64                `db:"count" json:"count"`
}

// CountByStatus returns the number of comments in each status.
func (r *Repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	ctx, span := tracing.StartSpan(ctx, "comment.Repository.CountByStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("status", "COUNT(*) AS count")
	sb.From("comments")
	sb.GroupBy("status")
	sb.OrderBy("status")

	query, args := sb.Build()
	var counts []StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count comments by status")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to count comments: %v", err)
	}
	return counts, nil
}
