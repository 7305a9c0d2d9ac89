package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/llm"
	"github.com/Ramsey-B/fern/pkg/models"
)

// scriptedGenerator returns canned responses per stage, identified by
// prompt markers. Responses for a stage are consumed in order; the last
// one repeats.
type scriptedGenerator struct {
	responses map[string][]string
	calls     map[string]int
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{
		responses: make(map[string][]string),
		calls:     make(map[string]int),
	}
}

func (g *scriptedGenerator) script(stage string, responses ...string) {
	g.responses[stage] = responses
}

func stageForPrompt(prompt string) string {
	switch {
	case strings.Contains(prompt, "**Classification:**"):
		return "gate"
	case strings.Contains(prompt, "**JSON Output:**"):
		return "queries"
	case strings.Contains(prompt, "selected_indices"):
		return "curate"
	case strings.Contains(prompt, "**Briefing Note:**"):
		return "synthesize"
	case strings.Contains(prompt, "RESPOND IN THIS EXACT JSON FORMAT"):
		return "route"
	case strings.Contains(prompt, "APPROVE"):
		return "quality"
	default:
		return "draft"
	}
}

func (g *scriptedGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	stage := stageForPrompt(req.Prompt)
	idx := g.calls[stage]
	g.calls[stage]++

	responses := g.responses[stage]
	if len(responses) == 0 {
		return "", fmt.Errorf("no scripted response for stage %s", stage)
	}
	if idx >= len(responses) {
		idx = len(responses) - 1
	}
	resp := responses[idx]
	if strings.HasPrefix(resp, "ERROR:") {
		return "", fmt.Errorf("%s", strings.TrimPrefix(resp, "ERROR:"))
	}
	return resp, nil
}

type fakeSearcher struct {
	docs    map[string][]models.Document
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, query string, _ int) ([]models.Document, error) {
	s.queries = append(s.queries, query)
	return s.docs[query], nil
}

type fakeCommentStore struct {
	upserts []models.UpsertCommentRequest
	nextID  int64
}

func (s *fakeCommentStore) Upsert(_ context.Context, req models.UpsertCommentRequest) (*models.Comment, error) {
	s.upserts = append(s.upserts, req)
	s.nextID++
	return &models.Comment{ID: s.nextID, PostID: req.PostID, URN: req.URN, Text: req.Text, Status: req.Status}, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryInitialDelay = time.Millisecond
	return cfg
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func testPost() *models.Post {
	return &models.Post{
		ID:   42,
		URN:  "urn:li:activity:7351693708695674881",
		Text: "Generative AI is changing how product teams ship software.",
	}
}

const routingJSON = `{
	"content_type": "AI Technical Content",
	"selected_strategy": "Lead with Analysis",
	"target_word_count": 75,
	"response_tone": "Evidence-based/analytical"
}`

func scriptHappyPath(gen *scriptedGenerator) {
	gen.script("gate", "PROCEED")
	gen.script("queries", `["generative ai product development", "ai shipping velocity data"]`)
	gen.script("curate", `{"selected_indices": [0, 1]}`)
	gen.script("synthesize", "Key Trend: AI-assisted development is accelerating release cycles.")
	gen.script("route", routingJSON)
	gen.script("draft", "The shift in shipping velocity is the real story here. What metrics are teams using to separate speed from rework?")
	gen.script("quality", "APPROVE")
}

func searchDocs() map[string][]models.Document {
	return map[string][]models.Document{
		"generative ai product development": {
			{URL: "https://example.com/a", Title: "AI in product", Content: "analysis", Score: 0.9},
		},
		"ai shipping velocity data": {
			{URL: "https://example.com/b", Title: "Velocity report", Content: "data", Score: 0.7},
		},
	}
}

func TestRunEmptyPostLeavesNoRow(t *testing.T) {
	gen := newScriptedGenerator()
	store := &fakeCommentStore{}
	engine := NewEngine(gen, &fakeSearcher{}, store, testConfig(), testLogger())

	result, err := engine.Run(context.Background(), &models.Post{ID: 1, URN: "urn:li:activity:1", Text: "   "})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeNoData, result.Outcome)
	assert.Empty(t, store.upserts)
	assert.Empty(t, gen.calls)
}

func TestRunGateDiscardSkipsLaterStages(t *testing.T) {
	gen := newScriptedGenerator()
	gen.script("gate", "DISCARD")
	searcher := &fakeSearcher{}
	store := &fakeCommentStore{}
	engine := NewEngine(gen, searcher, store, testConfig(), testLogger())

	result, err := engine.Run(context.Background(), testPost())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeDiscarded, result.Outcome)
	assert.Equal(t, 1, gen.calls["gate"])
	assert.Zero(t, gen.calls["queries"])
	assert.Zero(t, gen.calls["route"])
	assert.Zero(t, gen.calls["draft"])
	assert.Empty(t, searcher.queries)

	require.Len(t, store.upserts, 1)
	assert.Equal(t, models.CommentStatusDiscarded, store.upserts[0].Status)
	assert.Empty(t, store.upserts[0].Text)
}

func TestRunHappyPathSavesGeneratedComment(t *testing.T) {
	gen := newScriptedGenerator()
	scriptHappyPath(gen)
	searcher := &fakeSearcher{docs: searchDocs()}
	store := &fakeCommentStore{}
	engine := NewEngine(gen, searcher, store, testConfig(), testLogger())

	result, err := engine.Run(context.Background(), testPost())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSaved, result.Outcome)
	assert.NotZero(t, result.CommentID)

	require.Len(t, store.upserts, 1)
	upsert := store.upserts[0]
	assert.Equal(t, int64(42), upsert.PostID)
	assert.Equal(t, "urn:li:activity:7351693708695674881", upsert.URN)
	assert.Equal(t, models.CommentStatusGenerated, upsert.Status)
	assert.Contains(t, upsert.Text, "shipping velocity")
	assert.NotEmpty(t, upsert.ResearchSummary)

	// 75 base words with the default 1.2 flexibility
	assert.Equal(t, 90, result.State.Routing.TargetWordCount)
	assert.Equal(t, models.StrategyAnalysis, result.State.Routing.Strategy)
	assert.Equal(t, []string{"generative ai product development", "ai shipping velocity data"}, searcher.queries)
}

func TestRunGateRetriesThenSucceeds(t *testing.T) {
	gen := newScriptedGenerator()
	scriptHappyPath(gen)
	gen.script("gate", "ERROR:rate limited", "ERROR:rate limited", "PROCEED")
	store := &fakeCommentStore{}
	engine := NewEngine(gen, &fakeSearcher{docs: searchDocs()}, store, testConfig(), testLogger())

	result, err := engine.Run(context.Background(), testPost())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSaved, result.Outcome)
	assert.Equal(t, 3, gen.calls["gate"])
}

func TestRunGateExhaustionFallsBackToDiscard(t *testing.T) {
	gen := newScriptedGenerator()
	gen.script("gate", "ERROR:provider down")
	store := &fakeCommentStore{}
	engine := NewEngine(gen, &fakeSearcher{}, store, testConfig(), testLogger())

	result, err := engine.Run(context.Background(), testPost())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeDiscarded, result.Outcome)
	assert.Equal(t, 3, gen.calls["gate"])
	require.Len(t, store.upserts, 1)
	assert.Equal(t, models.CommentStatusDiscarded, store.upserts[0].Status)
}

// cancellingGenerator cancels the run context on its first call, so the
// retry loop gives up mid-backoff instead of reaching its fallback.
type cancellingGenerator struct {
	cancel context.CancelFunc
	calls  int
}

func (g *cancellingGenerator) Generate(context.Context, llm.Request) (string, error) {
	g.calls++
	g.cancel()
	return "", fmt.Errorf("connection reset")
}

func TestRunGateCancellationDiscards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := &cancellingGenerator{cancel: cancel}
	store := &fakeCommentStore{}
	engine := NewEngine(gen, &fakeSearcher{}, store, testConfig(), testLogger())

	result, err := engine.Run(ctx, testPost())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeDiscarded, result.Outcome)
	assert.Equal(t, 1, gen.calls)
	assert.NotEmpty(t, result.State.Error)
	require.Len(t, store.upserts, 1)
	assert.Equal(t, models.CommentStatusDiscarded, store.upserts[0].Status)
}

func TestResearchSkipsTooShortQueries(t *testing.T) {
	searcher := &fakeSearcher{}
	engine := NewEngine(newScriptedGenerator(), searcher, &fakeCommentStore{}, testConfig(), testLogger())

	state := &models.PipelineState{SearchQueries: []string{"ai!", " ml ", "generative ai product development"}}
	engine.research(context.Background(), state)

	assert.Equal(t, []string{"generative ai product development"}, searcher.queries)
}

func TestPromptBuildersTruncateOnRuneBoundaries(t *testing.T) {
	for _, query := range heuristicQueries(strings.Repeat("é", 150)) {
		assert.True(t, utf8.ValidString(query))
	}

	summary := titlesSummary([]models.Document{{Title: strings.Repeat("ü", 80)}})
	assert.True(t, utf8.ValidString(summary))

	prompt := curationPrompt("post", []models.Document{{
		Title:   strings.Repeat("ü", 150),
		Content: strings.Repeat("ñ", 300),
		URL:     "https://example.com",
	}})
	assert.True(t, utf8.ValidString(prompt))
}

func TestRunQualityExhaustionRejects(t *testing.T) {
	gen := newScriptedGenerator()
	scriptHappyPath(gen)
	gen.script("quality", "ERROR:timeout")
	store := &fakeCommentStore{}
	engine := NewEngine(gen, &fakeSearcher{docs: searchDocs()}, store, testConfig(), testLogger())

	result, err := engine.Run(context.Background(), testPost())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeRejected, result.Outcome)
	assert.Equal(t, 3, gen.calls["quality"])
	require.Len(t, store.upserts, 1)
	assert.Equal(t, models.CommentStatusRejected, store.upserts[0].Status)
	// the rejected draft is kept for inspection
	assert.NotEmpty(t, store.upserts[0].Text)
}

func TestRunDraftExhaustionFailsRun(t *testing.T) {
	gen := newScriptedGenerator()
	scriptHappyPath(gen)
	gen.script("draft", "")
	store := &fakeCommentStore{}
	engine := NewEngine(gen, &fakeSearcher{docs: searchDocs()}, store, testConfig(), testLogger())

	result, err := engine.Run(context.Background(), testPost())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeFailed, result.Outcome)
	assert.Equal(t, 3, gen.calls["draft"])
	assert.Zero(t, gen.calls["quality"])
	require.Len(t, store.upserts, 1)
	assert.Equal(t, models.CommentStatusFailed, store.upserts[0].Status)
}

func TestRunQueryParseFailureUsesHeuristicQueries(t *testing.T) {
	gen := newScriptedGenerator()
	scriptHappyPath(gen)
	gen.script("queries", "not json at all")
	searcher := &fakeSearcher{}
	store := &fakeCommentStore{}
	engine := NewEngine(gen, searcher, store, testConfig(), testLogger())

	result, err := engine.Run(context.Background(), testPost())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSaved, result.Outcome)
	assert.Equal(t, 3, gen.calls["queries"])
	require.NotEmpty(t, searcher.queries)
	assert.True(t, strings.HasPrefix(searcher.queries[0], "latest trends"))
}

func TestRunCurationFallbackTopByScore(t *testing.T) {
	gen := newScriptedGenerator()
	scriptHappyPath(gen)
	gen.script("curate", "ERROR:unavailable")

	docs := map[string][]models.Document{
		"generative ai product development": {
			{URL: "https://example.com/1", Title: "one", Content: "c", Score: 0.2},
			{URL: "https://example.com/2", Title: "two", Content: "c", Score: 0.9},
			{URL: "https://example.com/3", Title: "three", Content: "c", Score: 0.5},
			{URL: "https://example.com/4", Title: "four", Content: "c", Score: 0.7},
		},
	}
	store := &fakeCommentStore{}
	engine := NewEngine(gen, &fakeSearcher{docs: docs}, store, testConfig(), testLogger())

	result, err := engine.Run(context.Background(), testPost())
	require.NoError(t, err)

	require.Len(t, result.State.Documents, 3)
	assert.Equal(t, "https://example.com/2", result.State.Documents[0].URL)
	assert.Equal(t, "https://example.com/4", result.State.Documents[1].URL)
	assert.Equal(t, "https://example.com/3", result.State.Documents[2].URL)
}

func TestRunNoSearchResultsStillDrafts(t *testing.T) {
	gen := newScriptedGenerator()
	scriptHappyPath(gen)
	store := &fakeCommentStore{}
	engine := NewEngine(gen, &fakeSearcher{}, store, testConfig(), testLogger())

	result, err := engine.Run(context.Background(), testPost())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSaved, result.Outcome)
	assert.Zero(t, gen.calls["curate"])
	assert.Zero(t, gen.calls["synthesize"])
	assert.Equal(t, "No research data available for synthesis", result.State.ResearchSummary)
}

func TestRunRoutingFallback(t *testing.T) {
	gen := newScriptedGenerator()
	scriptHappyPath(gen)
	gen.script("route", "garbage")
	store := &fakeCommentStore{}
	engine := NewEngine(gen, &fakeSearcher{docs: searchDocs()}, store, testConfig(), testLogger())

	result, err := engine.Run(context.Background(), testPost())
	require.NoError(t, err)

	assert.Equal(t, models.ContentTypeIndustry, result.State.Routing.ContentType)
	assert.Equal(t, models.StrategyCuriosity, result.State.Routing.Strategy)
	assert.Equal(t, 72, result.State.Routing.TargetWordCount)
	assert.Equal(t, "Curious expert", result.State.Routing.ResponseTone)
}
