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
	"github.com/Ramsey-B/fern/pkg/social"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// UnpostedCommentStore lists and updates generated comments awaiting
// posting.
type UnpostedCommentStore interface {
	ListUnposted(ctx context.Context, limit int) ([]models.Comment, error)
	MarkPosted(ctx context.Context, commentID int64, actionID string, postedURN string) error
}

// PostLoader fetches posts for comments being published.
type PostLoader interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
}

// PostReport summarizes one comment-posting run.
type PostReport struct {
	CommentsProcessed int `json:"comments_processed"`
	Posted            int `json:"posted"`
	Failed            int `json:"failed"`
	ProfilesAdvanced  int `json:"profiles_advanced"`
	ProfilesDropped   int `json:"profiles_dropped"`
}

// Poster publishes approved comments to the social API and advances
// each profile based on whether its comment landed.
type Poster struct {
	comments UnpostedCommentStore
	posts    PostLoader
	profiles ProfileLoader
	social   SocialClient
	funnel   *funnel.Controller
	emitter  events.Emitter
	locker   Locker
	config   Config
	logger   ectologger.Logger
}

func NewPoster(comments UnpostedCommentStore, posts PostLoader, profiles ProfileLoader, socialClient SocialClient, controller *funnel.Controller, emitter events.Emitter, locker Locker, config Config, logger ectologger.Logger) *Poster {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Poster{
		comments: comments,
		posts:    posts,
		profiles: profiles,
		social:   socialClient,
		funnel:   controller,
		emitter:  emitter,
		locker:   locker,
		config:   config.withDefaults(),
		logger:   logger,
	}
}

// Run posts one batch of generated comments under a distributed lock.
func (p *Poster) Run(ctx context.Context) (*PostReport, error) {
	report := &PostReport{}
	err := p.locker.WithLock(ctx, "poster", p.config.LockTTL, func() error {
		return p.run(ctx, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (p *Poster) run(ctx context.Context, report *PostReport) error {
	ctx = appctx.SetRunID(ctx, uuid.NewString())
	ctx, span := tracing.StartSpan(ctx, "runner.Poster.Run")
	defer span.End()

	comments, err := p.comments.ListUnposted(ctx, p.config.BatchLimit)
	if err != nil {
		return err
	}

	for i := range comments {
		if i > 0 {
			if err := pace(ctx, p.config.MinActionDelay, p.config.MaxActionDelay); err != nil {
				return err
			}
		}
		p.processComment(ctx, &comments[i], report)
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"comments_processed": report.CommentsProcessed,
		"posted":             report.Posted,
		"failed":             report.Failed,
		"profiles_advanced":  report.ProfilesAdvanced,
		"profiles_dropped":   report.ProfilesDropped,
	}).Info("Comment posting run completed")
	return nil
}

func (p *Poster) processComment(ctx context.Context, comment *models.Comment, report *PostReport) {
	report.CommentsProcessed++

	post, err := p.posts.GetByID(ctx, comment.PostID)
	if err != nil {
		report.Failed++
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"comment_id": comment.ID, "post_id": comment.PostID}).Error("Failed to load post for comment")
		return
	}

	text := social.CleanComment(comment.Text)
	result, err := p.social.PostComment(ctx, post.URN, text)
	if err != nil {
		report.Failed++
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"comment_id": comment.ID, "urn": post.URN}).Warn("Failed to post comment")
		p.applyOutcome(ctx, post.ProfileID, false, report)
		return
	}

	if err := p.comments.MarkPosted(ctx, comment.ID, result.ID, result.URNUsed); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"comment_id": comment.ID}).Error("Failed to record posted comment")
	}
	report.Posted++
	p.emitPosted(ctx, post, comment.ID, result)
	p.applyOutcome(ctx, post.ProfileID, true, report)
}

func (p *Poster) applyOutcome(ctx context.Context, profileID int64, success bool, report *PostReport) {
	profile, err := p.profiles.GetByID(ctx, profileID)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID}).Error("Failed to load profile for post outcome")
		return
	}
	next, err := p.funnel.ApplyCommentPostOutcome(ctx, profile, success)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID}).Error("Failed to apply post outcome")
		return
	}
	if success {
		report.ProfilesAdvanced++
	} else {
		report.ProfilesDropped++
	}
	p.logger.WithContext(ctx).WithFields(map[string]any{"profile_id": profileID, "status": next}).Info("Applied comment post outcome")
}

func (p *Poster) emitPosted(ctx context.Context, post *models.Post, commentID int64, result *social.ActionResult) {
	evt := &events.EngagementEvent{
		Type:      events.TypeCommentPosted,
		ProfileID: post.ProfileID,
		PostID:    post.ID,
		PostURN:   result.URNUsed,
		CommentID: commentID,
		RunID:     appctx.GetRunID(ctx),
		Timestamp: time.Now().UTC(),
	}
	if err := p.emitter.Emit(ctx, evt); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"comment_id": commentID}).Warn("Failed to emit posted event")
	}
}
