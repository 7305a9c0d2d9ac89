package runner

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/appctx"
	"github.com/Ramsey-B/fern/pkg/funnel"
	"github.com/Ramsey-B/fern/pkg/importer"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/scrape"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ScrapeProfileStore lists profiles due for scraping.
type ScrapeProfileStore interface {
	ListByStatus(ctx context.Context, status models.FunnelStatus, limit int) ([]models.Profile, error)
	ListMaintenanceEligible(ctx context.Context, olderThan time.Duration, limit int) ([]models.Profile, error)
}

// ScrapePostStore persists scraped posts.
type ScrapePostStore interface {
	Upsert(ctx context.Context, post *models.Post) (*models.Post, error)
	LatestPostDate(ctx context.Context, profileID int64) (*time.Time, error)
}

// ScrapeReport summarizes one scraping run.
type ScrapeReport struct {
	ProfilesProcessed int `json:"profiles_processed"`
	PostsSaved        int `json:"posts_saved"`
	ToWeek1           int `json:"to_week1"`
	ToMaintenance     int `json:"to_maintenance"`
	Errors            int `json:"errors"`
}

// Scraper pulls recent posts for profiles entering the funnel and for
// maintenance profiles due for re-engagement, then routes each profile
// based on whether it has recent content.
type Scraper struct {
	profiles ScrapeProfileStore
	posts    ScrapePostStore
	feed     scrape.Feed
	funnel   *funnel.Controller
	locker   Locker
	config   Config
	logger   ectologger.Logger
}

func NewScraper(profiles ScrapeProfileStore, posts ScrapePostStore, feed scrape.Feed, controller *funnel.Controller, locker Locker, config Config, logger ectologger.Logger) *Scraper {
	return &Scraper{
		profiles: profiles,
		posts:    posts,
		feed:     feed,
		funnel:   controller,
		locker:   locker,
		config:   config.withDefaults(),
		logger:   logger,
	}
}

// Run scrapes one batch of profiles under a distributed lock. New
// profiles are scraped first; any remaining capacity goes to
// maintenance profiles that have been idle long enough to re-enter the
// funnel.
func (s *Scraper) Run(ctx context.Context) (*ScrapeReport, error) {
	report := &ScrapeReport{}
	err := s.locker.WithLock(ctx, "scraper", s.config.LockTTL, func() error {
		return s.run(ctx, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Scraper) run(ctx context.Context, report *ScrapeReport) error {
	ctx = appctx.SetRunID(ctx, uuid.NewString())
	ctx, span := tracing.StartSpan(ctx, "runner.Scraper.Run")
	defer span.End()

	profiles, err := s.profiles.ListByStatus(ctx, models.FunnelStatusNotStarted, s.config.BatchLimit)
	if err != nil {
		return err
	}
	if remaining := s.config.BatchLimit - len(profiles); remaining > 0 {
		reentry, err := s.profiles.ListMaintenanceEligible(ctx, s.funnel.MaintenanceReentry(), remaining)
		if err != nil {
			return err
		}
		profiles = append(profiles, reentry...)
	}

	for i := range profiles {
		if i > 0 {
			if err := pace(ctx, s.config.MinActionDelay, s.config.MaxActionDelay); err != nil {
				return err
			}
		}
		s.scrapeProfile(ctx, &profiles[i], report)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"profiles_processed": report.ProfilesProcessed,
		"posts_saved":        report.PostsSaved,
		"to_week1":           report.ToWeek1,
		"to_maintenance":     report.ToMaintenance,
		"errors":             report.Errors,
	}).Info("Scraping run completed")
	return nil
}

func (s *Scraper) scrapeProfile(ctx context.Context, profile *models.Profile, report *ScrapeReport) {
	report.ProfilesProcessed++

	username := profile.Username
	if username == "" {
		username = importer.ExtractUsername(profile.ProfileURL)
	}
	if username == "" {
		report.Errors++
		s.logger.WithContext(ctx).WithFields(map[string]any{"profile_id": profile.ID, "profile_url": profile.ProfileURL}).Error("Cannot derive username for scraping")
		return
	}

	posts, err := s.feed.FetchPosts(ctx, username)
	if err != nil {
		report.Errors++
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profile.ID, "username": username}).Error("Failed to fetch posts")
		return
	}

	for i := range posts {
		posts[i].ProfileID = profile.ID
		if _, err := s.posts.Upsert(ctx, &posts[i]); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profile.ID, "urn": posts[i].URN}).Error("Failed to save post")
			continue
		}
		report.PostsSaved++
	}

	latest, err := s.posts.LatestPostDate(ctx, profile.ID)
	if err != nil {
		report.Errors++
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profile.ID}).Error("Failed to read latest post date")
		return
	}

	next, err := s.funnel.ApplyScrapeOutcome(ctx, profile, latest, time.Now().UTC())
	if err != nil {
		report.Errors++
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profile.ID}).Error("Failed to apply scrape outcome")
		return
	}
	switch next {
	case models.FunnelStatusWeek1Liking:
		report.ToWeek1++
	default:
		report.ToMaintenance++
	}
}
