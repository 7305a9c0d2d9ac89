package models

// GateVerdict is the relevance gate's decision
type GateVerdict string

const (
	GateVerdictUnset   GateVerdict = ""
	GateVerdictProceed GateVerdict = "PROCEED"
	GateVerdictDiscard GateVerdict = "DISCARD"
)

// QualityVerdict is the final quality gate's decision
type QualityVerdict string

const (
	QualityVerdictUnset   QualityVerdict = ""
	QualityVerdictApprove QualityVerdict = "APPROVE"
	QualityVerdictReject  QualityVerdict = "REJECT"
)

// Strategy selects which drafting variant runs. Exactly one variant
// executes per pipeline run.
type Strategy string

const (
	StrategyAnalysis   Strategy = "lead_with_analysis"
	StrategyExperience Strategy = "lead_with_experience"
	StrategyCuriosity  Strategy = "lead_with_questions"
	StrategyDefault    Strategy = "default"
)

// ContentType classifies the subject post for strategy routing
type ContentType string

const (
	ContentTypeAITechnical ContentType = "AI Technical Content"
	ContentTypePMStrategy  ContentType = "PM Strategy Posts"
	ContentTypeIndustry    ContentType = "Industry News/Trends"
	ContentTypeToolReview  ContentType = "Tool/Platform Reviews"
	ContentTypeCareer      ContentType = "Career/Leadership"
)

// RoutingDecision is the output of the strategy routing stage.
// TargetWordCount is already adjusted by the flexibility factor.
type RoutingDecision struct {
	ContentType     ContentType `json:"content_type"`
	Strategy        Strategy    `json:"selected_strategy"`
	TargetWordCount int         `json:"target_word_count"`
	ResponseTone    string      `json:"response_tone"`
}

// Document is one curated research result
type Document struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Query   string  `json:"query,omitempty"`
}

// Outcome is the terminal classification of one pipeline run
type Outcome string

const (
	OutcomeNoData    Outcome = "no-data"
	OutcomeDiscarded Outcome = "discarded"
	OutcomeRejected  Outcome = "rejected"
	OutcomeSaved     Outcome = "saved"
	OutcomeFailed    Outcome = "failed"
)

// PipelineState is the mutable record threaded through the stage graph for
// one post. It is never persisted; only its terminal projection is written.
type PipelineState struct {
	PostID      int64
	PostURN     string
	PostContent string

	IsRelevant    GateVerdict
	SearchQueries []string
	Documents     []Document

	// ResearchSummary uses empty string as the no-data sentinel, never nil
	ResearchSummary string

	Routing      RoutingDecision
	FinalComment string
	Quality      QualityVerdict

	// Error holds the last non-fatal error description. Cleared on stage
	// success, retained on terminal failure.
	Error string
}
