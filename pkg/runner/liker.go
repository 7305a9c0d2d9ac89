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

// Locker serializes batch runs across instances.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// SocialClient is the surface of the social API the runners use.
type SocialClient interface {
	Like(ctx context.Context, urnOrID string) (*social.ActionResult, error)
	PostComment(ctx context.Context, urnOrID string, text string) (*social.ActionResult, error)
}

// ProfileLoader fetches profiles for outcome application.
type ProfileLoader interface {
	GetByID(ctx context.Context, id int64) (*models.Profile, error)
}

// LikePostStore lists and updates posts in the liking phase.
type LikePostStore interface {
	ListPostsToLike(ctx context.Context, recency time.Duration, maxPerProfile int) ([]models.Post, error)
	MarkLiked(ctx context.Context, postID int64, actionID string, urnUsed string) error
	MarkLikeFailed(ctx context.Context, postID int64, reason string) error
}

// LikeReport summarizes one liking run.
type LikeReport struct {
	PostsProcessed   int `json:"posts_processed"`
	Liked            int `json:"liked"`
	AlreadyLiked     int `json:"already_liked"`
	Failed           int `json:"failed"`
	ProfilesAdvanced int `json:"profiles_advanced"`
	ProfilesDropped  int `json:"profiles_dropped"`
}

// Liker works the week1_liking phase: it likes recent posts from
// prospects and advances each profile based on whether any like landed.
type Liker struct {
	posts    LikePostStore
	profiles ProfileLoader
	social   SocialClient
	funnel   *funnel.Controller
	emitter  events.Emitter
	locker   Locker
	config   Config
	logger   ectologger.Logger
}

func NewLiker(posts LikePostStore, profiles ProfileLoader, socialClient SocialClient, controller *funnel.Controller, emitter events.Emitter, locker Locker, config Config, logger ectologger.Logger) *Liker {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Liker{
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

// Run likes one batch of posts under a distributed lock. A profile
// advances to week2_commenting when at least one of its posts is liked
// (an already-liked response counts); a profile whose every attempt
// failed drops to its failure status.
func (l *Liker) Run(ctx context.Context) (*LikeReport, error) {
	report := &LikeReport{}
	err := l.locker.WithLock(ctx, "liker", l.config.LockTTL, func() error {
		return l.run(ctx, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (l *Liker) run(ctx context.Context, report *LikeReport) error {
	ctx = appctx.SetRunID(ctx, uuid.NewString())
	ctx, span := tracing.StartSpan(ctx, "runner.Liker.Run")
	defer span.End()

	posts, err := l.posts.ListPostsToLike(ctx, l.config.LikeRecency, l.config.MaxLikesPerProfile)
	if err != nil {
		return err
	}
	if len(posts) > l.config.BatchLimit {
		posts = posts[:l.config.BatchLimit]
	}

	// Outcomes are decided per profile once all its posts are attempted.
	succeeded := map[int64]bool{}
	attempted := map[int64]bool{}

	for i, post := range posts {
		if i > 0 {
			if err := pace(ctx, l.config.MinActionDelay, l.config.MaxActionDelay); err != nil {
				return err
			}
		}
		report.PostsProcessed++
		attempted[post.ProfileID] = true

		result, err := l.social.Like(ctx, post.URN)
		if err != nil {
			report.Failed++
			l.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"post_id": post.ID, "urn": post.URN}).Warn("Failed to like post")
			if markErr := l.posts.MarkLikeFailed(ctx, post.ID, err.Error()); markErr != nil {
				l.logger.WithContext(ctx).WithError(markErr).WithFields(map[string]any{"post_id": post.ID}).Error("Failed to record like failure")
			}
			continue
		}

		succeeded[post.ProfileID] = true
		if result.AlreadyDone {
			report.AlreadyLiked++
		} else {
			report.Liked++
		}
		if err := l.posts.MarkLiked(ctx, post.ID, result.ID, result.URNUsed); err != nil {
			l.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"post_id": post.ID}).Error("Failed to record like")
			continue
		}
		l.emit(ctx, &post, result)
	}

	for profileID := range attempted {
		profile, err := l.profiles.GetByID(ctx, profileID)
		if err != nil {
			l.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID}).Error("Failed to load profile for like outcome")
			continue
		}
		next, err := l.funnel.ApplyLikeOutcome(ctx, profile, succeeded[profileID])
		if err != nil {
			l.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID}).Error("Failed to apply like outcome")
			continue
		}
		if succeeded[profileID] {
			report.ProfilesAdvanced++
		} else {
			report.ProfilesDropped++
		}
		l.logger.WithContext(ctx).WithFields(map[string]any{"profile_id": profileID, "status": next}).Info("Applied like outcome")
	}

	l.logger.WithContext(ctx).WithFields(map[string]any{
		"posts_processed":   report.PostsProcessed,
		"liked":             report.Liked,
		"already_liked":     report.AlreadyLiked,
		"failed":            report.Failed,
		"profiles_advanced": report.ProfilesAdvanced,
		"profiles_dropped":  report.ProfilesDropped,
	}).Info("Liking run completed")
	return nil
}

func (l *Liker) emit(ctx context.Context, post *models.Post, result *social.ActionResult) {
	evt := &events.EngagementEvent{
		Type:      events.TypePostLiked,
		ProfileID: post.ProfileID,
		PostID:    post.ID,
		PostURN:   result.URNUsed,
		RunID:     appctx.GetRunID(ctx),
		Timestamp: time.Now().UTC(),
	}
	if err := l.emitter.Emit(ctx, evt); err != nil {
		l.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"post_id": post.ID}).Warn("Failed to emit like event")
	}
}
