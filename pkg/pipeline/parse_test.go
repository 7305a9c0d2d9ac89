package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json fence",
			input:    "```json\n[\"a\", \"b\"]\n```",
			expected: `["a", "b"]`,
		},
		{
			name:     "bare fence",
			input:    "```\n{\"x\": 1}\n```",
			expected: `{"x": 1}`,
		},
		{
			name:     "no fence",
			input:    `  {"x": 1}  `,
			expected: `{"x": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripFences(tt.input))
		})
	}
}

func TestParseGateVerdict(t *testing.T) {
	assert.Equal(t, models.GateVerdictProceed, ParseGateVerdict("PROCEED"))
	assert.Equal(t, models.GateVerdictProceed, ParseGateVerdict("  proceed \n"))
	assert.Equal(t, models.GateVerdictDiscard, ParseGateVerdict("DISCARD"))
	// anything unexpected reads as discard
	assert.Equal(t, models.GateVerdictDiscard, ParseGateVerdict("MAYBE"))
	assert.Equal(t, models.GateVerdictDiscard, ParseGateVerdict(""))
}

func TestParseQualityVerdict(t *testing.T) {
	assert.Equal(t, models.QualityVerdictApprove, ParseQualityVerdict("approve"))
	assert.Equal(t, models.QualityVerdictReject, ParseQualityVerdict("REJECT"))
	assert.Equal(t, models.QualityVerdictReject, ParseQualityVerdict("looks good"))
}

func TestParseQueries(t *testing.T) {
	t.Run("valid list capped at max", func(t *testing.T) {
		queries, err := ParseQueries(`["query one", "query two", "query three", "query four", "query five"]`, 4)
		require.NoError(t, err)
		assert.Len(t, queries, 4)
	})

	t.Run("drops short queries", func(t *testing.T) {
		queries, err := ParseQueries(`["ai", "generative ai adoption trends"]`, 4)
		require.NoError(t, err)
		assert.Equal(t, []string{"generative ai adoption trends"}, queries)
	})

	t.Run("all queries too short", func(t *testing.T) {
		_, err := ParseQueries(`["a", "bb", "cc"]`, 4)
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseQueries("here are some queries", 4)
		assert.Error(t, err)
	})

	t.Run("empty array", func(t *testing.T) {
		_, err := ParseQueries("[]", 4)
		assert.Error(t, err)
	})

	t.Run("fenced response", func(t *testing.T) {
		queries, err := ParseQueries("```json\n[\"generative ai adoption trends\"]\n```", 4)
		require.NoError(t, err)
		assert.Len(t, queries, 1)
	})
}

func TestParseCuration(t *testing.T) {
	t.Run("valid indices", func(t *testing.T) {
		indices, err := ParseCuration(`{"selected_indices": [0, 2, 4]}`, 5)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 2, 4}, indices)
	})

	t.Run("out of range indices dropped", func(t *testing.T) {
		indices, err := ParseCuration(`{"selected_indices": [0, 7, -1]}`, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{0}, indices)
	})

	t.Run("no valid indices", func(t *testing.T) {
		_, err := ParseCuration(`{"selected_indices": [9]}`, 3)
		assert.Error(t, err)
	})
}

func TestParseRouting(t *testing.T) {
	t.Run("valid decision", func(t *testing.T) {
		decision, err := ParseRouting(`{
			"content_type": "AI Technical Content",
			"selected_strategy": "Lead with Analysis",
			"target_word_count": 75,
			"response_tone": "Evidence-based/analytical",
			"reasoning": "technical post"
		}`)
		require.NoError(t, err)
		assert.Equal(t, models.ContentTypeAITechnical, decision.ContentType)
		assert.Equal(t, models.StrategyAnalysis, decision.Strategy)
		assert.Equal(t, 75, decision.TargetWordCount)
	})

	t.Run("unmapped strategy falls back to default variant", func(t *testing.T) {
		decision, err := ParseRouting(`{
			"content_type": "Tool/Platform Reviews",
			"selected_strategy": "Lead with Comparative Insight",
			"target_word_count": 50,
			"response_tone": "Balanced/experienced"
		}`)
		require.NoError(t, err)
		assert.Equal(t, models.StrategyDefault, decision.Strategy)
	})

	t.Run("unknown content type", func(t *testing.T) {
		_, err := ParseRouting(`{
			"content_type": "Cooking",
			"selected_strategy": "Lead with Questions",
			"target_word_count": 60,
			"response_tone": "Curious expert"
		}`)
		assert.Error(t, err)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := ParseRouting(`{"content_type": "Career/Leadership"}`)
		assert.Error(t, err)
	})
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 100))
	assert.Equal(t, "abc", truncateRunes("abcdef", 3))

	truncated := truncateRunes(strings.Repeat("é", 150), 100)
	assert.True(t, utf8.ValidString(truncated))
	assert.Equal(t, 100, utf8.RuneCountInString(truncated))
}

func TestAdjustWordCount(t *testing.T) {
	assert.Equal(t, 72, AdjustWordCount(60, 1.2))
	assert.Equal(t, 90, AdjustWordCount(75, 1.2))
	assert.Equal(t, 60, AdjustWordCount(60, 0))
	assert.Equal(t, 60, AdjustWordCount(40, 1.5))
}
