// Package pipeline implements the staged comment generation flow: gate,
// research, synthesis, strategy routing, drafting, and the final quality
// check. Research stages degrade through fallbacks; only drafting can
// fail a run outright.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/llm"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/retry"
	"github.com/Ramsey-B/fern/pkg/search"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// DefaultWordCountFlexibility is the factor applied to the router's base
// word target so drafts have headroom for natural phrasing.
const DefaultWordCountFlexibility = 1.2

// Config holds pipeline tuning parameters
type Config struct {
	MaxAttempts          int
	WordCountFlexibility float64
	MinCommentLength     int
	PerCallTimeout       time.Duration
	MaxQueries           int
	MaxSearchResults     int
	FallbackCuratedDocs  int
	RetryInitialDelay    time.Duration
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:          3,
		WordCountFlexibility: DefaultWordCountFlexibility,
		MinCommentLength:     10,
		PerCallTimeout:       30 * time.Second,
		MaxQueries:           4,
		MaxSearchResults:     5,
		FallbackCuratedDocs:  3,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.WordCountFlexibility <= 0 {
		c.WordCountFlexibility = DefaultWordCountFlexibility
	}
	if c.MinCommentLength <= 0 {
		c.MinCommentLength = 10
	}
	if c.PerCallTimeout <= 0 {
		c.PerCallTimeout = 30 * time.Second
	}
	if c.MaxQueries <= 0 {
		c.MaxQueries = 4
	}
	if c.MaxSearchResults <= 0 {
		c.MaxSearchResults = 5
	}
	if c.FallbackCuratedDocs <= 0 {
		c.FallbackCuratedDocs = 3
	}
	if c.RetryInitialDelay <= 0 {
		c.RetryInitialDelay = time.Second
	}
	return c
}

// CommentStore persists the pipeline's terminal projection.
type CommentStore interface {
	Upsert(ctx context.Context, req models.UpsertCommentRequest) (*models.Comment, error)
}

// Result is the terminal report of one pipeline run.
type Result struct {
	Outcome   Outcome
	CommentID int64
	State     *models.PipelineState
}

// Outcome aliases the model type for callers.
type Outcome = models.Outcome

// Engine runs the comment pipeline for one post at a time.
type Engine struct {
	generator llm.Generator
	searcher  search.Searcher
	comments  CommentStore
	config    Config
	policy    retry.Policy
	logger    ectologger.Logger
}

// NewEngine creates a pipeline engine.
func NewEngine(generator llm.Generator, searcher search.Searcher, comments CommentStore, config Config, logger ectologger.Logger) *Engine {
	config = config.withDefaults()
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = config.MaxAttempts
	policy.InitialDelay = config.RetryInitialDelay
	return &Engine{
		generator: generator,
		searcher:  searcher,
		comments:  comments,
		config:    config,
		policy:    policy,
		logger:    logger,
	}
}

// Run executes the full pipeline for one post. It always returns a
// Result; the error is non-nil only when persistence itself failed.
func (e *Engine) Run(ctx context.Context, post *models.Post) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Engine.Run")
	defer span.End()

	start := time.Now()
	result, err := e.run(ctx, post)
	metrics.PipelineRunDuration.Observe(time.Since(start).Seconds())
	if result != nil {
		metrics.PipelineRunsTotal.WithLabelValues(string(result.Outcome)).Inc()
	}
	return result, err
}

func (e *Engine) run(ctx context.Context, post *models.Post) (*Result, error) {
	state := &models.PipelineState{
		PostID:      post.ID,
		PostURN:     post.URN,
		PostContent: strings.TrimSpace(post.Text),
	}
	log := e.logger.WithContext(ctx).WithFields(map[string]interface{}{"post_id": post.ID})

	// A post with no content never reaches the model and leaves no row.
	if state.PostContent == "" {
		log.Warn("Post has no content, skipping")
		return &Result{Outcome: models.OutcomeNoData, State: state}, nil
	}

	state.IsRelevant = e.gate(ctx, state)
	if state.IsRelevant == models.GateVerdictDiscard {
		log.Info("Post discarded by gatekeeper")
		return e.persist(ctx, state, models.CommentStatusDiscarded, models.OutcomeDiscarded)
	}

	state.SearchQueries = e.generateQueries(ctx, state)
	state.Documents = e.research(ctx, state)
	state.ResearchSummary = e.synthesize(ctx, state)
	state.Routing = e.route(ctx, state)

	comment, err := e.draft(ctx, state)
	if err != nil {
		log.WithError(err).Error("Drafting failed after all attempts")
		state.Error = err.Error()
		return e.persist(ctx, state, models.CommentStatusFailed, models.OutcomeFailed)
	}
	state.FinalComment = comment

	state.Quality = e.qualityCheck(ctx, state)
	switch state.Quality {
	case models.QualityVerdictApprove:
		return e.persist(ctx, state, models.CommentStatusGenerated, models.OutcomeSaved)
	case models.QualityVerdictReject:
		log.Info("Comment rejected by quality check")
		return e.persist(ctx, state, models.CommentStatusRejected, models.OutcomeRejected)
	default:
		return e.persist(ctx, state, models.CommentStatusRejected, models.OutcomeRejected)
	}
}

// persist writes the terminal projection. The upsert keys on
// (post_id, urn), so re-running a post updates its row in place.
func (e *Engine) persist(ctx context.Context, state *models.PipelineState, status models.CommentStatus, outcome Outcome) (*Result, error) {
	comment, err := e.comments.Upsert(ctx, models.UpsertCommentRequest{
		PostID:          state.PostID,
		URN:             state.PostURN,
		Text:            state.FinalComment,
		ResearchSummary: state.ResearchSummary,
		Status:          status,
	})
	if err != nil {
		return &Result{Outcome: models.OutcomeFailed, State: state}, fmt.Errorf("failed to persist comment for post %d: %w", state.PostID, err)
	}

	e.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"post_id":    state.PostID,
		"comment_id": comment.ID,
		"status":     status,
	}).Info("Pipeline run persisted")

	return &Result{Outcome: outcome, CommentID: comment.ID, State: state}, nil
}

// generate is the single door to the model, applying the per-call
// timeout.
func (e *Engine) generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return e.generator.Generate(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Timeout:     e.config.PerCallTimeout,
	})
}
