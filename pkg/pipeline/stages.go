package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/retry"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// gate classifies whether the post is worth commenting on. Model errors
// retry; exhaustion falls back to DISCARD. A malformed verdict is not an
// error, it simply reads as DISCARD.
func (e *Engine) gate(ctx context.Context, state *models.PipelineState) models.GateVerdict {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Engine.gate")
	defer span.End()

	verdict, err := retry.Do(ctx, e.logger, "gate", e.policy,
		func(ctx context.Context) (models.GateVerdict, error) {
			text, err := e.generate(ctx, gatePrompt(state.PostContent), 10, 0)
			if err != nil {
				return models.GateVerdictUnset, err
			}
			return ParseGateVerdict(text), nil
		},
		nil,
		func(lastErr error) (models.GateVerdict, error) {
			metrics.StageAttemptsTotal.WithLabelValues("gate", "fallback").Inc()
			state.Error = lastErr.Error()
			return models.GateVerdictDiscard, nil
		},
	)
	if err != nil {
		// Cancellation during backoff bypasses the fallback. An unset
		// verdict must never read as PROCEED.
		state.Error = err.Error()
		verdict = models.GateVerdictDiscard
	}
	metrics.StageAttemptsTotal.WithLabelValues("gate", string(verdict)).Inc()
	return verdict
}

// generateQueries asks the model for search queries. Parse failures
// retry; exhaustion falls back to heuristic queries built from the
// post's opening words.
func (e *Engine) generateQueries(ctx context.Context, state *models.PipelineState) []string {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Engine.generateQueries")
	defer span.End()

	queries, _ := retry.Do(ctx, e.logger, "research-queries", e.policy,
		func(ctx context.Context) ([]string, error) {
			text, err := e.generate(ctx, queriesPrompt(state.PostContent), 200, 0.3)
			if err != nil {
				return nil, err
			}
			return ParseQueries(text, e.config.MaxQueries)
		},
		nil,
		func(error) ([]string, error) {
			metrics.StageAttemptsTotal.WithLabelValues("research-queries", "fallback").Inc()
			return heuristicQueries(state.PostContent), nil
		},
	)
	return queries
}

// heuristicQueries builds three generic queries from the first words of
// the post when the model cannot produce a usable list.
func heuristicQueries(postContent string) []string {
	words := strings.Fields(truncateRunes(postContent, 100))
	if len(words) > 10 {
		words = words[:10]
	}

	take := func(from, to int) string {
		if from >= len(words) {
			return ""
		}
		if to > len(words) {
			to = len(words)
		}
		return strings.Join(words[from:to], " ")
	}

	return []string{
		strings.TrimSpace("latest trends " + take(0, 3)),
		strings.TrimSpace("industry analysis " + take(3, 6)),
		strings.TrimSpace("expert opinion " + take(6, 9)),
	}
}

// research runs every query, deduplicates results by URL, and curates
// the pool. Individual search failures skip the query; an empty pool is
// a valid outcome, not an error.
func (e *Engine) research(ctx context.Context, state *models.PipelineState) []models.Document {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Engine.research")
	defer span.End()

	var pool []models.Document
	seen := make(map[string]struct{})
	for _, query := range state.SearchQueries {
		query = strings.TrimSpace(query)
		if len(query) <= minQueryLength {
			continue
		}
		docs, err := e.searcher.Search(ctx, query, e.config.MaxSearchResults)
		if err != nil {
			e.logger.WithContext(ctx).WithError(err).Warnf("Search failed for query %q", query)
			continue
		}
		for _, doc := range docs {
			if doc.URL == "" {
				continue
			}
			if _, ok := seen[doc.URL]; ok {
				continue
			}
			seen[doc.URL] = struct{}{}
			doc.Query = query
			pool = append(pool, doc)
		}
	}

	if len(pool) == 0 {
		e.logger.WithContext(ctx).Warn("No documents found during research")
		return nil
	}
	return e.curate(ctx, state.PostContent, pool)
}

// curate has the model pick the strongest documents. Parse failures
// retry; exhaustion falls back to the top documents by search score.
func (e *Engine) curate(ctx context.Context, postContent string, pool []models.Document) []models.Document {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Engine.curate")
	defer span.End()

	docs, _ := retry.Do(ctx, e.logger, "curate", e.policy,
		func(ctx context.Context) ([]models.Document, error) {
			text, err := e.generate(ctx, curationPrompt(postContent, pool), 300, 0.3)
			if err != nil {
				return nil, err
			}
			indices, err := ParseCuration(text, len(pool))
			if err != nil {
				return nil, err
			}
			selected := make([]models.Document, 0, len(indices))
			for _, i := range indices {
				selected = append(selected, pool[i])
			}
			return selected, nil
		},
		nil,
		func(error) ([]models.Document, error) {
			metrics.StageAttemptsTotal.WithLabelValues("curate", "fallback").Inc()
			return topByScore(pool, e.config.FallbackCuratedDocs), nil
		},
	)
	return docs
}

func topByScore(docs []models.Document, n int) []models.Document {
	sorted := make([]models.Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// synthesize distills the curated documents into a briefing note. With
// no documents the stage short-circuits to the no-data sentinel text;
// exhaustion falls back to a titles list.
func (e *Engine) synthesize(ctx context.Context, state *models.PipelineState) string {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Engine.synthesize")
	defer span.End()

	if len(state.Documents) == 0 {
		return "No research data available for synthesis"
	}

	summary, _ := retry.Do(ctx, e.logger, "synthesize", e.policy,
		func(ctx context.Context) (string, error) {
			text, err := e.generate(ctx, synthesisPrompt(state.PostContent, state.Documents), 500, 0.3)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(text) == "" {
				return "", fmt.Errorf("empty synthesis response")
			}
			return strings.TrimSpace(text), nil
		},
		nil,
		func(error) (string, error) {
			metrics.StageAttemptsTotal.WithLabelValues("synthesize", "fallback").Inc()
			return titlesSummary(state.Documents), nil
		},
	)
	return summary
}

func titlesSummary(docs []models.Document) string {
	titles := make([]string, 0, 3)
	for _, doc := range docs {
		if len(titles) == 3 {
			break
		}
		titles = append(titles, truncateRunes(doc.Title, 50))
	}
	return "Research indicates topics related to: " + strings.Join(titles, ", ")
}

// route classifies the post and selects the drafting strategy. Parse
// failures retry; exhaustion falls back to the curious-professional
// default. The flexibility factor is applied to whichever base count
// wins.
func (e *Engine) route(ctx context.Context, state *models.PipelineState) models.RoutingDecision {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Engine.route")
	defer span.End()

	decision, _ := retry.Do(ctx, e.logger, "route", e.policy,
		func(ctx context.Context) (models.RoutingDecision, error) {
			text, err := e.generate(ctx, routerPrompt(state.PostContent), 300, 0.3)
			if err != nil {
				return models.RoutingDecision{}, err
			}
			return ParseRouting(text)
		},
		nil,
		func(error) (models.RoutingDecision, error) {
			metrics.StageAttemptsTotal.WithLabelValues("route", "fallback").Inc()
			return models.RoutingDecision{
				ContentType:     models.ContentTypeIndustry,
				Strategy:        models.StrategyCuriosity,
				TargetWordCount: 60,
				ResponseTone:    "Curious expert",
			}, nil
		},
	)
	decision.TargetWordCount = AdjustWordCount(decision.TargetWordCount, e.config.WordCountFlexibility)

	e.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"content_type": decision.ContentType,
		"strategy":     decision.Strategy,
		"word_count":   decision.TargetWordCount,
	}).Info("Routing decision made")
	return decision
}

// draft writes the comment with the routed strategy's prompt. Empty or
// too-short drafts retry; there is no fallback, exhaustion fails the
// run.
func (e *Engine) draft(ctx context.Context, state *models.PipelineState) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Engine.draft")
	defer span.End()

	prompt := draftPrompt(state.Routing.Strategy, state.PostContent, state.ResearchSummary, state.Routing.TargetWordCount)

	return retry.Do(ctx, e.logger, "draft", e.policy,
		func(ctx context.Context) (string, error) {
			text, err := e.generate(ctx, prompt, 400, 1.0)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(text), nil
		},
		func(comment string) error {
			if comment == "" {
				return fmt.Errorf("empty comment generated")
			}
			if len(comment) < e.config.MinCommentLength {
				return fmt.Errorf("comment too short: %d characters", len(comment))
			}
			return nil
		},
		nil,
	)
}

// qualityCheck is the final gate on the drafted comment. Model errors
// retry; exhaustion falls back to REJECT. A malformed verdict reads as
// REJECT.
func (e *Engine) qualityCheck(ctx context.Context, state *models.PipelineState) models.QualityVerdict {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Engine.qualityCheck")
	defer span.End()

	verdict, _ := retry.Do(ctx, e.logger, "quality-check", e.policy,
		func(ctx context.Context) (models.QualityVerdict, error) {
			text, err := e.generate(ctx, qualityPrompt(state.PostContent, state.FinalComment), 10, 0.1)
			if err != nil {
				return models.QualityVerdictUnset, err
			}
			return ParseQualityVerdict(text), nil
		},
		nil,
		func(lastErr error) (models.QualityVerdict, error) {
			metrics.StageAttemptsTotal.WithLabelValues("quality-check", "fallback").Inc()
			state.Error = lastErr.Error()
			return models.QualityVerdictReject, nil
		},
	)
	metrics.StageAttemptsTotal.WithLabelValues("quality-check", string(verdict)).Inc()
	return verdict
}
