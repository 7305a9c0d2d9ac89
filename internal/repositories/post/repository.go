// Package post persists scraped posts and like bookkeeping.
package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var postColumns = []string{
	"post_id", "profile_id", "urn", "text", "posted_date", "reposted",
	"like_count", "comment_count", "is_post_liked", "liked_at",
	"like_action_id", "like_error", "created_at", "updated_at",
}

// Repository handles post persistence
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

// Upsert inserts a scraped post, updating text and counts when the URN
// was already seen for this profile.
func (r *Repository) Upsert(ctx context.Context, post *models.Post) (*models.Post, error) {
	ctx, span := tracing.StartSpan(ctx, "post.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	query := `
		INSERT INTO posts (profile_id, urn, text, posted_date, reposted, like_count, comment_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (profile_id, urn) DO UPDATE SET
			text = EXCLUDED.text,
			posted_date = EXCLUDED.posted_date,
			reposted = EXCLUDED.reposted,
			like_count = EXCLUDED.like_count,
			comment_count = EXCLUDED.comment_count,
			updated_at = EXCLUDED.updated_at
		RETURNING post_id
	`

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		post.ProfileID, post.URN, post.Text, post.PostedDate, post.Reposted,
		post.LikeCount, post.CommentCount, now,
	).Scan(&id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": post.ProfileID, "urn": post.URN}).Error("Failed to upsert post")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to upsert post: %v", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves a post by ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	ctx, span := tracing.StartSpan(ctx, "post.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(postColumns...)
	sb.From("posts")
	sb.Where(sb.Equal("post_id", id))

	query, args := sb.Build()
	var post models.Post
	if err := r.db.GetContext(ctx, &post, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "post %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"post_id": id}).Error("Failed to get post")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get post: %v", err)
	}
	return &post, nil
}

// ListPostsToLike returns unliked recent posts from profiles in the
// liking stage, capped per profile, best job title scores first.
func (r *Repository) ListPostsToLike(ctx context.Context, recency time.Duration, maxPerProfile int) ([]models.Post, error) {
	ctx, span := tracing.StartSpan(ctx, "post.Repository.ListPostsToLike")
	defer span.End()

	if maxPerProfile <= 0 {
		maxPerProfile = 3
	}
	cutoff := time.Now().UTC().Add(-recency)

	// Window function caps the number of posts per profile while the
	// outer ordering keeps high-scoring profiles first.
	query := fmt.Sprintf(`
		SELECT %s FROM (
			SELECT p.post_id, p.profile_id, p.urn, p.text, p.posted_date, p.reposted,
			       p.like_count, p.comment_count, p.is_post_liked, p.liked_at,
			       p.like_action_id, p.like_error, p.created_at, p.updated_at,
			       pr.job_title_score,
			       ROW_NUMBER() OVER (PARTITION BY p.profile_id ORDER BY p.posted_date DESC) AS post_rank
			FROM posts p
			JOIN profiles pr ON pr.profile_id = p.profile_id
			WHERE pr.status = $1
			  AND p.posted_date >= $2
			  AND p.is_post_liked = FALSE
			  AND p.like_error IS NULL
		) ranked
		WHERE post_rank <= $3
		ORDER BY job_title_score DESC, posted_date DESC
	`, columnList("ranked"))

	var posts []models.Post
	if err := r.db.SelectContext(ctx, &posts, query, models.FunnelStatusWeek1Liking, cutoff, maxPerProfile); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list posts to like")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list posts to like: %v", err)
	}
	return posts, nil
}

// ListEligibleForComment returns posts that can enter the comment
// pipeline: owned by a profile in the criteria's status, fresh enough,
// and with no comment row yet.
func (r *Repository) ListEligibleForComment(ctx context.Context, criteria models.EligiblePostCriteria, limit int) ([]models.Post, error) {
	ctx, span := tracing.StartSpan(ctx, "post.Repository.ListEligibleForComment")
	defer span.End()

	cutoff := time.Now().UTC().Add(-criteria.MaxPostAge)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	cols := make([]string, 0, len(postColumns)+1)
	for _, col := range postColumns {
		cols = append(cols, "p."+col)
	}
	cols = append(cols, "pr.connection_status")
	sb.Select(cols...)
	sb.From("posts p")
	sb.JoinWithOption(sqlbuilder.InnerJoin, "profiles pr", "pr.profile_id = p.profile_id")

	where := []string{
		sb.Equal("pr.status", criteria.ProfileStatus),
		sb.GreaterEqualThan("p.posted_date", cutoff),
	}
	if criteria.ExcludeReposts {
		where = append(where, sb.Equal("p.reposted", false))
	}
	if criteria.ExcludeWithComment {
		where = append(where, "p.post_id NOT IN (SELECT post_id FROM comments)")
	}
	sb.Where(where...)
	sb.OrderBy("pr.job_title_score DESC", "p.posted_date DESC")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var posts []models.Post
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"status": criteria.ProfileStatus}).Error("Failed to list posts eligible for comment")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list eligible posts: %v", err)
	}
	return posts, nil
}

// MarkLiked records a successful like. urnUsed may differ from the
// stored URN when the platform corrected it.
func (r *Repository) MarkLiked(ctx context.Context, postID int64, actionID string, urnUsed string) error {
	ctx, span := tracing.StartSpan(ctx, "post.Repository.MarkLiked")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("posts")
	assignments := []string{
		ub.Assign("is_post_liked", true),
		ub.Assign("liked_at", now),
		ub.Assign("like_action_id", actionID),
		ub.Assign("like_error", nil),
		ub.Assign("updated_at", now),
	}
	if urnUsed != "" {
		assignments = append(assignments, ub.Assign("urn", urnUsed))
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("post_id", postID))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"post_id": postID}).Error("Failed to mark post as liked")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to mark post as liked: %v", err)
	}
	return nil
}

// MarkLikeFailed records a permanent like failure so the post is not
// retried on the next run.
func (r *Repository) MarkLikeFailed(ctx context.Context, postID int64, reason string) error {
	ctx, span := tracing.StartSpan(ctx, "post.Repository.MarkLikeFailed")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("posts")
	ub.Set(
		ub.Assign("like_error", reason),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("post_id", postID))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"post_id": postID}).Error("Failed to mark like failure")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to mark like failure: %v", err)
	}
	return nil
}

// LatestPostDate returns the newest posted_date for a profile, or nil
// when the profile has no posts.
func (r *Repository) LatestPostDate(ctx context.Context, profileID int64) (*time.Time, error) {
	ctx, span := tracing.StartSpan(ctx, "post.Repository.LatestPostDate")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("MAX(posted_date)")
	sb.From("posts")
	sb.Where(sb.Equal("profile_id", profileID))

	query, args := sb.Build()
	var latest sql.NullTime
	if err := r.db.GetContext(ctx, &latest, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID}).Error("Failed to get latest post date")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get latest post date: %v", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

func columnList(prefix string) string {
	out := ""
	for i, col := range postColumns {
		if i > 0 {
			out += ", "
		}
		out += prefix + "." + col
	}
	return out
}
