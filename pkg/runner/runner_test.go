package runner

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/funnel"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/pipeline"
	"github.com/Ramsey-B/fern/pkg/social"
)

type fakeLocker struct {
	keys []string
}

func (f *fakeLocker) WithLock(_ context.Context, key string, _ time.Duration, fn func() error) error {
	f.keys = append(f.keys, key)
	return fn()
}

type fakeProfileDir struct {
	profiles map[int64]*models.Profile
	statuses map[int64]models.FunnelStatus
}

func newFakeProfileDir(profiles ...*models.Profile) *fakeProfileDir {
	dir := &fakeProfileDir{
		profiles: map[int64]*models.Profile{},
		statuses: map[int64]models.FunnelStatus{},
	}
	for _, p := range profiles {
		dir.profiles[p.ID] = p
	}
	return dir
}

func (f *fakeProfileDir) GetByID(_ context.Context, id int64) (*models.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, errors.New("profile not found")
	}
	return p, nil
}

func (f *fakeProfileDir) SetStatus(_ context.Context, id int64, status models.FunnelStatus) error {
	f.statuses[id] = status
	return nil
}

func (f *fakeProfileDir) ListCommentCleanupCandidates(context.Context) ([]models.Profile, error) {
	return nil, nil
}

func (f *fakeProfileDir) ListByStatus(_ context.Context, status models.FunnelStatus, limit int) ([]models.Profile, error) {
	var out []models.Profile
	ids := make([]int64, 0, len(f.profiles))
	for id := range f.profiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if f.profiles[id].Status == status && len(out) < limit {
			out = append(out, *f.profiles[id])
		}
	}
	return out, nil
}

func (f *fakeProfileDir) ListMaintenanceEligible(_ context.Context, _ time.Duration, limit int) ([]models.Profile, error) {
	return f.ListByStatus(context.Background(), models.FunnelStatusMaintenance, limit)
}

type captureEmitter struct {
	events []*events.EngagementEvent
}

func (c *captureEmitter) Emit(_ context.Context, evt *events.EngagementEvent) error {
	c.events = append(c.events, evt)
	return nil
}

type fakeSocial struct {
	likeErr      map[string]error
	alreadyLiked map[string]bool
	commentErr   map[string]error
	likes        []string
	comments     []string
}

func (f *fakeSocial) Like(_ context.Context, urn string) (*social.ActionResult, error) {
	if err := f.likeErr[urn]; err != nil {
		return nil, err
	}
	f.likes = append(f.likes, urn)
	return &social.ActionResult{ID: "act-1", URNUsed: urn, AlreadyDone: f.alreadyLiked[urn]}, nil
}

func (f *fakeSocial) PostComment(_ context.Context, urn string, text string) (*social.ActionResult, error) {
	if err := f.commentErr[urn]; err != nil {
		return nil, err
	}
	f.comments = append(f.comments, text)
	return &social.ActionResult{ID: "act-2", URNUsed: urn}, nil
}

func testRunnerLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func testRunnerConfig() Config {
	return Config{
		BatchLimit:         10,
		MinActionDelay:     time.Millisecond,
		MaxActionDelay:     time.Millisecond,
		LikeRecency:        21 * 24 * time.Hour,
		MaxLikesPerProfile: 3,
		LockTTL:            time.Minute,
	}
}

func testController(dir *fakeProfileDir) *funnel.Controller {
	return funnel.NewController(dir, events.NoopEmitter{}, funnel.DefaultConfig(), testRunnerLogger())
}

type fakeLikePosts struct {
	posts    []models.Post
	liked    map[int64]string
	failures map[int64]string
}

func newFakeLikePosts(posts ...models.Post) *fakeLikePosts {
	return &fakeLikePosts{posts: posts, liked: map[int64]string{}, failures: map[int64]string{}}
}

func (f *fakeLikePosts) ListPostsToLike(context.Context, time.Duration, int) ([]models.Post, error) {
	return f.posts, nil
}

func (f *fakeLikePosts) MarkLiked(_ context.Context, postID int64, _ string, urnUsed string) error {
	f.liked[postID] = urnUsed
	return nil
}

func (f *fakeLikePosts) MarkLikeFailed(_ context.Context, postID int64, reason string) error {
	f.failures[postID] = reason
	return nil
}

func TestLikerRun(t *testing.T) {
	dir := newFakeProfileDir(
		&models.Profile{ID: 1, Status: models.FunnelStatusWeek1Liking, ConnectionStatus: models.ConnectionStatusProspect},
		&models.Profile{ID: 2, Status: models.FunnelStatusWeek1Liking, ConnectionStatus: models.ConnectionStatusProspect},
	)
	posts := newFakeLikePosts(
		models.Post{ID: 10, ProfileID: 1, URN: "urn:li:activity:100"},
		models.Post{ID: 11, ProfileID: 1, URN: "urn:li:activity:101"},
		models.Post{ID: 12, ProfileID: 2, URN: "urn:li:activity:200"},
	)
	socialClient := &fakeSocial{
		likeErr:      map[string]error{"urn:li:activity:200": errors.New("boom")},
		alreadyLiked: map[string]bool{"urn:li:activity:101": true},
	}
	emitter := &captureEmitter{}
	locker := &fakeLocker{}

	liker := NewLiker(posts, dir, socialClient, testController(dir), emitter, locker, testRunnerConfig(), testRunnerLogger())
	report, err := liker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"liker"}, locker.keys)
	assert.Equal(t, 3, report.PostsProcessed)
	assert.Equal(t, 1, report.Liked)
	assert.Equal(t, 1, report.AlreadyLiked)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.ProfilesAdvanced)
	assert.Equal(t, 1, report.ProfilesDropped)

	assert.Equal(t, models.FunnelStatusWeek2Commenting, dir.statuses[1])
	assert.Equal(t, models.FunnelStatusWeek3Invitation, dir.statuses[2])

	assert.Equal(t, "urn:li:activity:100", posts.liked[10])
	assert.Equal(t, "boom", posts.failures[12])

	require.Len(t, emitter.events, 2)
	assert.Equal(t, events.TypePostLiked, emitter.events[0].Type)
	assert.Equal(t, int64(1), emitter.events[0].ProfileID)
}

type fakeEngine struct {
	outcomes map[int64]models.Outcome
	errs     map[int64]error
}

func (f *fakeEngine) Run(_ context.Context, post *models.Post) (*pipeline.Result, error) {
	if err := f.errs[post.ID]; err != nil {
		return nil, err
	}
	return &pipeline.Result{Outcome: f.outcomes[post.ID], CommentID: post.ID * 100}, nil
}

type fakeCommentPosts struct {
	posts []models.Post
}

func (f *fakeCommentPosts) ListEligibleForComment(context.Context, models.EligiblePostCriteria, int) ([]models.Post, error) {
	return f.posts, nil
}

func TestCommenterRun(t *testing.T) {
	dir := newFakeProfileDir(
		&models.Profile{ID: 1, Status: models.FunnelStatusWeek2Commenting, ConnectionStatus: models.ConnectionStatusProspect},
		&models.Profile{ID: 2, Status: models.FunnelStatusWeek2Commenting, ConnectionStatus: models.ConnectionStatusProspect},
		&models.Profile{ID: 3, Status: models.FunnelStatusWeek2Commenting, ConnectionStatus: models.ConnectionStatusProspect},
	)
	posts := &fakeCommentPosts{posts: []models.Post{
		{ID: 10, ProfileID: 1, URN: "urn:li:activity:100"},
		{ID: 11, ProfileID: 2, URN: "urn:li:activity:200"},
		{ID: 12, ProfileID: 3, URN: "urn:li:activity:300"},
	}}
	engine := &fakeEngine{
		outcomes: map[int64]models.Outcome{
			10: models.OutcomeSaved,
			11: models.OutcomeDiscarded,
		},
		errs: map[int64]error{12: errors.New("pipeline exploded")},
	}
	emitter := &captureEmitter{}
	locker := &fakeLocker{}

	commenter := NewCommenter(posts, dir, engine, testController(dir), emitter, locker, testRunnerConfig(), testRunnerLogger())
	report, err := commenter.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"commenter"}, locker.keys)
	assert.Equal(t, 3, report.PostsProcessed)
	assert.Equal(t, 1, report.Saved)
	assert.Equal(t, 1, report.Discarded)
	assert.Equal(t, 1, report.Failed)

	// A saved comment leaves the profile in place; a gate discard drops
	// the prospect out of the commenting stage.
	_, touched := dir.statuses[1]
	assert.False(t, touched)
	assert.Equal(t, models.FunnelStatusWeek3Invitation, dir.statuses[2])
	_, touched = dir.statuses[3]
	assert.False(t, touched)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, events.TypeCommentGenerated, emitter.events[0].Type)
	assert.Equal(t, int64(1000), emitter.events[0].CommentID)
}

type fakeUnposted struct {
	comments []models.Comment
	posted   map[int64]string
}

func newFakeUnposted(comments ...models.Comment) *fakeUnposted {
	return &fakeUnposted{comments: comments, posted: map[int64]string{}}
}

func (f *fakeUnposted) ListUnposted(context.Context, int) ([]models.Comment, error) {
	return f.comments, nil
}

func (f *fakeUnposted) MarkPosted(_ context.Context, commentID int64, _ string, postedURN string) error {
	f.posted[commentID] = postedURN
	return nil
}

type fakePostDir struct {
	posts map[int64]*models.Post
}

func (f *fakePostDir) GetByID(_ context.Context, id int64) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, errors.New("post not found")
	}
	return p, nil
}

func TestPosterRun(t *testing.T) {
	dir := newFakeProfileDir(
		&models.Profile{ID: 1, Status: models.FunnelStatusWeek2Commenting, ConnectionStatus: models.ConnectionStatusProspect},
		&models.Profile{ID: 2, Status: models.FunnelStatusWeek2Commenting, ConnectionStatus: models.ConnectionStatusCurrent},
	)
	postDir := &fakePostDir{posts: map[int64]*models.Post{
		10: {ID: 10, ProfileID: 1, URN: "urn:li:activity:100"},
		11: {ID: 11, ProfileID: 2, URN: "urn:li:activity:200"},
	}}
	comments := newFakeUnposted(
		models.Comment{ID: 50, PostID: 10, Text: "Great point about roadmaps.\n[Note: generated]"},
		models.Comment{ID: 51, PostID: 11, Text: "Interesting take."},
	)
	socialClient := &fakeSocial{
		commentErr: map[string]error{"urn:li:activity:200": errors.New("rate limited")},
	}
	emitter := &captureEmitter{}
	locker := &fakeLocker{}

	poster := NewPoster(comments, postDir, dir, socialClient, testController(dir), emitter, locker, testRunnerConfig(), testRunnerLogger())
	report, err := poster.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"poster"}, locker.keys)
	assert.Equal(t, 2, report.CommentsProcessed)
	assert.Equal(t, 1, report.Posted)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.ProfilesAdvanced)
	assert.Equal(t, 1, report.ProfilesDropped)

	// Annotation lines are stripped before posting.
	require.Len(t, socialClient.comments, 1)
	assert.Equal(t, "Great point about roadmaps.", socialClient.comments[0])

	assert.Equal(t, "urn:li:activity:100", comments.posted[50])
	assert.Equal(t, models.FunnelStatusWeek3Invitation, dir.statuses[1])
	assert.Equal(t, models.FunnelStatusMaintenance, dir.statuses[2])

	require.Len(t, emitter.events, 1)
	assert.Equal(t, events.TypeCommentPosted, emitter.events[0].Type)
}

type fakeFeed struct {
	posts map[string][]models.Post
	errs  map[string]error
}

func (f *fakeFeed) FetchPosts(_ context.Context, username string) ([]models.Post, error) {
	if err := f.errs[username]; err != nil {
		return nil, err
	}
	return f.posts[username], nil
}

type fakeScrapePosts struct {
	saved  []models.Post
	latest map[int64]*time.Time
}

func (f *fakeScrapePosts) Upsert(_ context.Context, post *models.Post) (*models.Post, error) {
	f.saved = append(f.saved, *post)
	return post, nil
}

func (f *fakeScrapePosts) LatestPostDate(_ context.Context, profileID int64) (*time.Time, error) {
	return f.latest[profileID], nil
}

func TestScraperRun(t *testing.T) {
	now := time.Now().UTC()
	recent := now.Add(-5 * 24 * time.Hour)
	stale := now.Add(-60 * 24 * time.Hour)

	dir := newFakeProfileDir(
		&models.Profile{ID: 1, Status: models.FunnelStatusNotStarted, Username: "fresh-poster", ConnectionStatus: models.ConnectionStatusProspect},
		&models.Profile{ID: 2, Status: models.FunnelStatusNotStarted, Username: "quiet-one", ConnectionStatus: models.ConnectionStatusProspect},
		&models.Profile{ID: 3, Status: models.FunnelStatusNotStarted, Username: "broken", ConnectionStatus: models.ConnectionStatusProspect},
	)
	feed := &fakeFeed{
		posts: map[string][]models.Post{
			"fresh-poster": {
				{URN: "urn:li:activity:100", Text: "Shipping weekly", PostedDate: recent},
				{URN: "urn:li:activity:101", Text: "Throwback", PostedDate: stale},
			},
			"quiet-one": {},
		},
		errs: map[string]error{"broken": errors.New("feed unavailable")},
	}
	scrapePosts := &fakeScrapePosts{latest: map[int64]*time.Time{1: &recent}}
	locker := &fakeLocker{}

	scraper := NewScraper(dir, scrapePosts, feed, testController(dir), locker, testRunnerConfig(), testRunnerLogger())
	report, err := scraper.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"scraper"}, locker.keys)
	assert.Equal(t, 3, report.ProfilesProcessed)
	assert.Equal(t, 2, report.PostsSaved)
	assert.Equal(t, 1, report.ToWeek1)
	assert.Equal(t, 1, report.ToMaintenance)
	assert.Equal(t, 1, report.Errors)

	assert.Equal(t, models.FunnelStatusWeek1Liking, dir.statuses[1])
	assert.Equal(t, models.FunnelStatusMaintenance, dir.statuses[2])

	require.Len(t, scrapePosts.saved, 2)
	assert.Equal(t, int64(1), scrapePosts.saved[0].ProfileID)
}

func TestCleanerRun(t *testing.T) {
	dir := newFakeProfileDir()
	locker := &fakeLocker{}

	cleaner := NewCleaner(testController(dir), locker, testRunnerConfig(), testRunnerLogger())
	report, err := cleaner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"cleanup"}, locker.keys)
	assert.Equal(t, 0, report.ProfilesMoved)
}
