package runner

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/appctx"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/funnel"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/pipeline"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// PipelineEngine generates a comment for one post.
type PipelineEngine interface {
	Run(ctx context.Context, post *models.Post) (*pipeline.Result, error)
}

// CommentPostStore lists posts awaiting comment generation.
type CommentPostStore interface {
	ListEligibleForComment(ctx context.Context, criteria models.EligiblePostCriteria, limit int) ([]models.Post, error)
}

// CommentReport summarizes one comment-generation run.
type CommentReport struct {
	PostsProcessed int `json:"posts_processed"`
	Saved          int `json:"saved"`
	Discarded      int `json:"discarded"`
	Rejected       int `json:"rejected"`
	Failed         int `json:"failed"`
	Skipped        int `json:"skipped"`
}

// Commenter works the week2_commenting phase: it runs the generation
// pipeline against each eligible post and lets the funnel react to the
// outcome. One post failing never stops the batch.
type Commenter struct {
	posts    CommentPostStore
	profiles ProfileLoader
	engine   PipelineEngine
	funnel   *funnel.Controller
	emitter  events.Emitter
	locker   Locker
	criteria models.EligiblePostCriteria
	config   Config
	logger   ectologger.Logger
}

func NewCommenter(posts CommentPostStore, profiles ProfileLoader, engine PipelineEngine, controller *funnel.Controller, emitter events.Emitter, locker Locker, config Config, logger ectologger.Logger) *Commenter {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Commenter{
		posts:    posts,
		profiles: profiles,
		engine:   engine,
		funnel:   controller,
		emitter:  emitter,
		locker:   locker,
		criteria: models.DefaultEligiblePostCriteria(),
		config:   config.withDefaults(),
		logger:   logger,
	}
}

// Run generates comments for one batch of posts under a distributed
// lock.
func (c *Commenter) Run(ctx context.Context) (*CommentReport, error) {
	report := &CommentReport{}
	err := c.locker.WithLock(ctx, "commenter", c.config.LockTTL, func() error {
		return c.run(ctx, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (c *Commenter) run(ctx context.Context, report *CommentReport) error {
	ctx = appctx.SetRunID(ctx, uuid.NewString())
	ctx, span := tracing.StartSpan(ctx, "runner.Commenter.Run")
	defer span.End()

	posts, err := c.posts.ListEligibleForComment(ctx, c.criteria, c.config.BatchLimit)
	if err != nil {
		return err
	}

	for i := range posts {
		if i > 0 {
			if err := pace(ctx, c.config.MinActionDelay, c.config.MaxActionDelay); err != nil {
				return err
			}
		}
		c.processPost(ctx, &posts[i], report)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"posts_processed": report.PostsProcessed,
		"saved":           report.Saved,
		"discarded":       report.Discarded,
		"rejected":        report.Rejected,
		"failed":          report.Failed,
		"skipped":         report.Skipped,
	}).Info("Comment generation run completed")
	return nil
}

func (c *Commenter) processPost(ctx context.Context, post *models.Post, report *CommentReport) {
	report.PostsProcessed++

	result, err := c.engine.Run(ctx, post)
	if err != nil {
		report.Failed++
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"post_id": post.ID}).Error("Comment pipeline failed")
		return
	}

	switch result.Outcome {
	case models.OutcomeSaved:
		report.Saved++
		c.emitGenerated(ctx, post, result.CommentID)
	case models.OutcomeDiscarded:
		report.Discarded++
	case models.OutcomeRejected:
		report.Rejected++
	case models.OutcomeFailed:
		report.Failed++
	case models.OutcomeNoData:
		report.Skipped++
	}

	profile, err := c.profiles.GetByID(ctx, post.ProfileID)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": post.ProfileID}).Error("Failed to load profile for pipeline outcome")
		return
	}
	if _, err := c.funnel.ApplyPipelineOutcome(ctx, profile, result.Outcome); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": post.ProfileID}).Error("Failed to apply pipeline outcome")
	}
}

func (c *Commenter) emitGenerated(ctx context.Context, post *models.Post, commentID int64) {
	evt := &events.EngagementEvent{
		Type:      events.TypeCommentGenerated,
		ProfileID: post.ProfileID,
		PostID:    post.ID,
		PostURN:   post.URN,
		CommentID: commentID,
		Status:    string(models.CommentStatusGenerated),
		RunID:     appctx.GetRunID(ctx),
		Timestamp: time.Now().UTC(),
	}
	if err := c.emitter.Emit(ctx, evt); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"post_id": post.ID}).Warn("Failed to emit comment event")
	}
}
