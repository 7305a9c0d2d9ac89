// Package funnel owns the profile lifecycle: which status a profile
// moves to after scraping, liking, commenting, and cleanup. Transition
// decisions are pure functions; the Controller applies them to storage
// and emits status-change events.
package funnel

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/appctx"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Config holds the funnel timing windows.
type Config struct {
	// RecencyWindow is how fresh a profile's newest post must be for
	// the profile to enter the liking stage.
	RecencyWindow time.Duration

	// MaintenanceReentry is how long a maintenance profile rests before
	// it may re-enter the funnel.
	MaintenanceReentry time.Duration
}

// DefaultConfig returns the default funnel windows.
func DefaultConfig() Config {
	return Config{
		RecencyWindow:      21 * 24 * time.Hour,
		MaintenanceReentry: 180 * 24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	if c.RecencyWindow <= 0 {
		c.RecencyWindow = 21 * 24 * time.Hour
	}
	if c.MaintenanceReentry <= 0 {
		c.MaintenanceReentry = 180 * 24 * time.Hour
	}
	return c
}

// FailureStatus maps a connection type to the status a profile falls to
// when an engagement step fails. Total over all inputs: unknown
// connection types fall to the invitation stage.
func FailureStatus(connection models.ConnectionStatus) models.FunnelStatus {
	switch connection {
	case models.ConnectionStatusProspect:
		return models.FunnelStatusWeek3Invitation
	case models.ConnectionStatusCurrent:
		return models.FunnelStatusMaintenance
	default:
		return models.FunnelStatusWeek3Invitation
	}
}

// NextAfterScrape decides where a profile lands after a scrape pass.
func NextAfterScrape(hasRecentPost bool) models.FunnelStatus {
	if hasRecentPost {
		return models.FunnelStatusWeek1Liking
	}
	return models.FunnelStatusMaintenance
}

// ProfileStore is the storage surface the controller needs.
type ProfileStore interface {
	SetStatus(ctx context.Context, id int64, status models.FunnelStatus) error
	ListCommentCleanupCandidates(ctx context.Context) ([]models.Profile, error)
}

// Controller applies funnel transitions to storage.
type Controller struct {
	profiles ProfileStore
	emitter  events.Emitter
	config   Config
	logger   ectologger.Logger
}

func NewController(profiles ProfileStore, emitter events.Emitter, config Config, logger ectologger.Logger) *Controller {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Controller{
		profiles: profiles,
		emitter:  emitter,
		config:   config.withDefaults(),
		logger:   logger,
	}
}

// MaintenanceReentry returns how long a maintenance profile rests
// before it may be scraped again.
func (c *Controller) MaintenanceReentry() time.Duration {
	return c.config.MaintenanceReentry
}

// HasRecentPost reports whether the newest post date falls inside the
// recency window.
func (c *Controller) HasRecentPost(latestPostDate *time.Time, now time.Time) bool {
	return latestPostDate != nil && now.Sub(*latestPostDate) < c.config.RecencyWindow
}

// ApplyScrapeOutcome moves a profile after its posts were scraped:
// recent content enters the liking stage, everything else rests in
// maintenance.
func (c *Controller) ApplyScrapeOutcome(ctx context.Context, profile *models.Profile, latestPostDate *time.Time, now time.Time) (models.FunnelStatus, error) {
	next := NextAfterScrape(c.HasRecentPost(latestPostDate, now))
	return next, c.transition(ctx, profile, next, "scrape")
}

// ApplyLikeOutcome advances a profile to the commenting stage after a
// successful like, or drops it to its failure status.
func (c *Controller) ApplyLikeOutcome(ctx context.Context, profile *models.Profile, success bool) (models.FunnelStatus, error) {
	next := models.FunnelStatusWeek2Commenting
	if !success {
		next = FailureStatus(profile.ConnectionStatus)
	}
	return next, c.transition(ctx, profile, next, "like")
}

// ApplyCommentPostOutcome advances a profile to the invitation stage
// after its comment was posted, or drops it to its failure status.
func (c *Controller) ApplyCommentPostOutcome(ctx context.Context, profile *models.Profile, success bool) (models.FunnelStatus, error) {
	next := models.FunnelStatusWeek3Invitation
	if !success {
		next = FailureStatus(profile.ConnectionStatus)
	}
	return next, c.transition(ctx, profile, next, "comment-post")
}

// ApplyPipelineOutcome reacts to a terminal pipeline outcome. A post
// discarded by the gatekeeper while the profile is still in an active
// engagement stage drops the profile to its failure status; every other
// outcome leaves the funnel untouched.
func (c *Controller) ApplyPipelineOutcome(ctx context.Context, profile *models.Profile, outcome models.Outcome) (models.FunnelStatus, error) {
	switch outcome {
	case models.OutcomeDiscarded:
		switch profile.Status {
		case models.FunnelStatusWeek1Liking, models.FunnelStatusWeek2Commenting:
			next := FailureStatus(profile.ConnectionStatus)
			return next, c.transition(ctx, profile, next, "pipeline-discard")
		}
	case models.OutcomeNoData, models.OutcomeRejected, models.OutcomeSaved, models.OutcomeFailed:
	}
	return profile.Status, nil
}

// Cleanup moves commenting-stage profiles that never got an approved
// comment to their failure status. Returns the number of profiles moved.
func (c *Controller) Cleanup(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "funnel.Controller.Cleanup")
	defer span.End()

	candidates, err := c.profiles.ListCommentCleanupCandidates(ctx)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		c.logger.WithContext(ctx).Info("No profiles need cleanup")
		return 0, nil
	}

	moved := 0
	for i := range candidates {
		profile := &candidates[i]
		next := FailureStatus(profile.ConnectionStatus)
		if err := c.transition(ctx, profile, next, "cleanup"); err != nil {
			c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profile.ID}).Error("Cleanup transition failed")
			continue
		}
		moved++
	}

	c.logger.WithContext(ctx).Infof("Cleanup moved %d profiles out of the commenting stage", moved)
	return moved, nil
}

// transition writes the new status, records the metric, and emits a
// status-change event. A transition to the current status is a no-op.
// The funnel only moves forward, with one exception: a rested
// maintenance profile may re-enter at the liking stage.
func (c *Controller) transition(ctx context.Context, profile *models.Profile, to models.FunnelStatus, reason string) error {
	from := profile.Status
	if from == to {
		return nil
	}
	if from != models.FunnelStatusMaintenance && to.Rank() < from.Rank() {
		return fmt.Errorf("refusing backward funnel move for profile %d: %s -> %s", profile.ID, from, to)
	}

	if err := c.profiles.SetStatus(ctx, profile.ID, to); err != nil {
		return err
	}
	profile.Status = to

	metrics.FunnelTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	c.logger.WithContext(ctx).WithFields(map[string]any{
		"profile_id": profile.ID,
		"from":       from,
		"to":         to,
		"reason":     reason,
	}).Info("Profile moved in funnel")

	if err := c.emitter.Emit(ctx, &events.EngagementEvent{
		Type:      events.TypeProfileStatusChanged,
		ProfileID: profile.ID,
		From:      string(from),
		To:        string(to),
		RunID:     appctx.GetRunID(ctx),
		Timestamp: time.Now().UTC(),
	}); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to emit status change event")
	}
	return nil
}
