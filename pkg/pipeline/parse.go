package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// StripFences removes a markdown code fence wrapper from a model
// response, with or without a language tag.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// ParseGateVerdict coerces a model response into a gate verdict. Anything
// that is not exactly PROCEED reads as DISCARD.
func ParseGateVerdict(s string) models.GateVerdict {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(models.GateVerdictProceed):
		return models.GateVerdictProceed
	default:
		return models.GateVerdictDiscard
	}
}

// ParseQualityVerdict coerces a model response into a quality verdict.
// Anything that is not exactly APPROVE reads as REJECT.
func ParseQualityVerdict(s string) models.QualityVerdict {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(models.QualityVerdictApprove):
		return models.QualityVerdictApprove
	default:
		return models.QualityVerdictReject
	}
}

// minQueryLength drops queries too short to be useful search input.
const minQueryLength = 3

// ParseQueries parses a JSON array of search queries, dropping entries of
// minQueryLength characters or fewer and capping the result at maxQueries.
func ParseQueries(s string, maxQueries int) ([]string, error) {
	var raw []string
	if err := json.Unmarshal([]byte(StripFences(s)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse query list: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty query list")
	}

	queries := make([]string, 0, len(raw))
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if len(q) > minQueryLength {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no valid queries generated")
	}
	if maxQueries > 0 && len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return queries, nil
}

type curationResponse struct {
	SelectedIndices []int `json:"selected_indices"`
}

// ParseCuration parses the curator's selected indices, dropping any that
// fall outside [0, docCount).
func ParseCuration(s string, docCount int) ([]int, error) {
	var parsed curationResponse
	if err := json.Unmarshal([]byte(StripFences(s)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse curation response: %w", err)
	}

	indices := make([]int, 0, len(parsed.SelectedIndices))
	for _, i := range parsed.SelectedIndices {
		if i >= 0 && i < docCount {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("no valid documents selected")
	}
	return indices, nil
}

type routingResponse struct {
	ContentType     string `json:"content_type"`
	Strategy        string `json:"selected_strategy"`
	TargetWordCount int    `json:"target_word_count"`
	ResponseTone    string `json:"response_tone"`
}

// ParseRouting parses the router's decision and maps the named strategy
// onto a drafting variant. TargetWordCount is the raw base count; the
// caller applies the flexibility factor.
func ParseRouting(s string) (models.RoutingDecision, error) {
	var parsed routingResponse
	if err := json.Unmarshal([]byte(StripFences(s)), &parsed); err != nil {
		return models.RoutingDecision{}, fmt.Errorf("failed to parse routing response: %w", err)
	}
	if parsed.ContentType == "" || parsed.Strategy == "" || parsed.TargetWordCount <= 0 || parsed.ResponseTone == "" {
		return models.RoutingDecision{}, fmt.Errorf("routing response missing required fields")
	}

	contentType, err := parseContentType(parsed.ContentType)
	if err != nil {
		return models.RoutingDecision{}, err
	}

	return models.RoutingDecision{
		ContentType:     contentType,
		Strategy:        parseStrategy(parsed.Strategy),
		TargetWordCount: parsed.TargetWordCount,
		ResponseTone:    parsed.ResponseTone,
	}, nil
}

func parseContentType(s string) (models.ContentType, error) {
	switch models.ContentType(strings.TrimSpace(s)) {
	case models.ContentTypeAITechnical:
		return models.ContentTypeAITechnical, nil
	case models.ContentTypePMStrategy:
		return models.ContentTypePMStrategy, nil
	case models.ContentTypeIndustry:
		return models.ContentTypeIndustry, nil
	case models.ContentTypeToolReview:
		return models.ContentTypeToolReview, nil
	case models.ContentTypeCareer:
		return models.ContentTypeCareer, nil
	default:
		return "", fmt.Errorf("unknown content type: %q", s)
	}
}

// parseStrategy maps the router's strategy name to a drafting variant.
// Comparative Insight and Personal Example have no dedicated variant and
// fall back to the default crafter.
func parseStrategy(s string) models.Strategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lead with analysis":
		return models.StrategyAnalysis
	case "lead with experience":
		return models.StrategyExperience
	case "lead with questions":
		return models.StrategyCuriosity
	default:
		return models.StrategyDefault
	}
}

// truncateRunes caps s at n characters, counting runes so multi-byte
// characters are never split mid-sequence.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// AdjustWordCount applies the word count flexibility factor to a base
// target.
func AdjustWordCount(base int, flexibility float64) int {
	if flexibility <= 0 {
		return base
	}
	return int(math.Round(float64(base) * flexibility))
}
