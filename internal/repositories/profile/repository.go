// Package profile persists tracked profiles and their funnel position.
package profile

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

var profileColumns = []string{
	"profile_id", "profile_url", "username", "first_name", "last_name",
	"job_title", "job_title_score", "status", "connection_status",
	"weekly_batch", "last_action_date", "created_at", "updated_at",
}

// Repository handles profile persistence
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

// Create inserts a new profile. Prospects start in not_started;
// current connections go straight to maintenance.
func (r *Repository) Create(ctx context.Context, req models.ImportProfileRequest) (*models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.Create")
	defer span.End()

	connection := models.ConnectionStatus(req.Connection)
	if connection == "" {
		connection = models.ConnectionStatusProspect
	}
	status := models.FunnelStatusNotStarted
	if connection == models.ConnectionStatusCurrent {
		status = models.FunnelStatusMaintenance
	}

	now := time.Now().UTC()
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("profiles")
	ib.Cols("profile_url", "username", "first_name", "last_name", "job_title", "job_title_score", "status", "connection_status", "created_at", "updated_at")
	ib.Values(req.ProfileURL, req.Username, req.FirstName, req.LastName, req.JobTitle, req.JobTitleScore, status, connection, now, now)

	query, args := ib.Build()
	query += " RETURNING profile_id"

	var id int64
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_url": req.ProfileURL, "username": req.Username}).Error("Failed to create profile")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create profile: %v", err)
	}

	return r.GetByID(ctx, id)
}

// Exists reports whether a profile with this (profile_url, username) pair
// is already tracked.
func (r *Repository) Exists(ctx context.Context, profileURL, username string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.Exists")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("1")
	sb.From("profiles")
	sb.Where(sb.Equal("profile_url", profileURL), sb.Equal("username", username))
	sb.Limit(1)

	query, args := sb.Build()
	var one int
	err := r.db.GetContext(ctx, &one, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_url": profileURL}).Error("Failed to check profile existence")
		return false, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to check profile existence: %v", err)
	}
	return true, nil
}

// GetByProfileURL retrieves a profile by its URL. Returns nil without an
// error when no profile matches.
func (r *Repository) GetByProfileURL(ctx context.Context, profileURL string) (*models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.GetByProfileURL")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(profileColumns...)
	sb.From("profiles")
	sb.Where(sb.Equal("profile_url", profileURL))
	sb.Limit(1)

	query, args := sb.Build()
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_url": profileURL}).Error("Failed to get profile by URL")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get profile by URL: %v", err)
	}
	return &profile, nil
}

// MarkCurrentConnection promotes a tracked prospect to a current
// connection and parks it in maintenance.
func (r *Repository) MarkCurrentConnection(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.MarkCurrentConnection")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("profiles")
	ub.Set(
		ub.Assign("status", models.FunnelStatusMaintenance),
		ub.Assign("connection_status", models.ConnectionStatusCurrent),
		ub.Assign("last_action_date", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("profile_id", id))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": id}).Error("Failed to mark profile as connection")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to mark profile as connection: %v", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to mark profile as connection: %v", err)
	}
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "profile %d not found", id)
	}
	return nil
}

// GetByID retrieves a profile by ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(profileColumns...)
	sb.From("profiles")
	sb.Where(sb.Equal("profile_id", id))

	query, args := sb.Build()
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "profile %d not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": id}).Error("Failed to get profile")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get profile: %v", err)
	}
	return &profile, nil
}

// SetStatus writes the profile's funnel status and stamps
// last_action_date. Transition legality is the funnel controller's
// responsibility; this is storage only.
func (r *Repository) SetStatus(ctx context.Context, id int64, status models.FunnelStatus) error {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.SetStatus")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("profiles")
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("last_action_date", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("profile_id", id))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": id, "status": status}).Error("Failed to update profile status")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update profile status: %v", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "profile %d not found", id)
	}
	return nil
}

// ListByStatus returns profiles in the given funnel status, highest
// job_title_score first.
func (r *Repository) ListByStatus(ctx context.Context, status models.FunnelStatus, limit int) ([]models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.ListByStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(profileColumns...)
	sb.From("profiles")
	sb.Where(sb.Equal("status", status))
	sb.OrderBy("job_title_score DESC", "profile_id ASC")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"status": status}).Error("Failed to list profiles by status")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list profiles: %v", err)
	}
	return profiles, nil
}

// ListMaintenanceEligible returns maintenance profiles whose last action
// is older than the given window, so they can re-enter the funnel.
func (r *Repository) ListMaintenanceEligible(ctx context.Context, olderThan time.Duration, limit int) ([]models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.ListMaintenanceEligible")
	defer span.End()

	cutoff := time.Now().UTC().Add(-olderThan)
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(profileColumns...)
	sb.From("profiles")
	sb.Where(
		sb.Equal("status", models.FunnelStatusMaintenance),
		sb.Or(
			sb.IsNull("last_action_date"),
			sb.LessThan("last_action_date", cutoff),
		),
	)
	sb.OrderBy("last_action_date ASC NULLS FIRST")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list maintenance-eligible profiles")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list maintenance-eligible profiles: %v", err)
	}
	return profiles, nil
}

// ListCommentCleanupCandidates returns commenting-stage profiles that
// ended up with no approved comment on any of their posts.
func (r *Repository) ListCommentCleanupCandidates(ctx context.Context) ([]models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.ListCommentCleanupCandidates")
	defer span.End()

	query := `
		SELECT profile_id, profile_url, username, first_name, last_name,
		       job_title, job_title_score, status, connection_status,
		       weekly_batch, last_action_date, created_at, updated_at
		FROM profiles p
		WHERE p.status = $1
		  AND p.profile_id NOT IN (
			SELECT DISTINCT po.profile_id
			FROM posts po
			JOIN comments c ON po.post_id = c.post_id
			WHERE c.status = $2
		  )
	`

	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, query, models.FunnelStatusWeek2Commenting, models.CommentStatusGenerated); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list comment cleanup candidates")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list cleanup candidates: %v", err)
	}
	return profiles, nil
}

// StatusCount is one row of the funnel breakdown.
type StatusCount struct {
	Status models.FunnelStatus `db:"status" json:"status"`
	Count  int64               `db:"count" json:"count"`
}

// CountByStatus returns the number of profiles in each funnel status.
func (r *Repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	ctx, span := tracing.StartSpan(ctx, "profile.Repository.CountByStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("status", "COUNT(*) AS count")
	sb.From("profiles")
	sb.GroupBy("status")
	sb.OrderBy("status")

	query, args := sb.Build()
	var counts []StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count profiles by status")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to count profiles: %v", err)
	}
	return counts, nil
}
