package remote

// HealthStatus is the advisory backend health. Status is "error" when the
// probe itself failed.
type HealthStatus struct {
	Status            string `json:"status"`
	AIProviderEnabled bool   `json:"openai_enabled"`
	Error             string `json:"error,omitempty"`
}

// Healthy reports whether the backend answered with a non-error status.
func (h HealthStatus) Healthy() bool {
	return h.Status != "" && h.Status != "error"
}

type PromptSummary struct {
	TotalPrompts    int  `json:"total_prompts"`
	TotalCitations  int  `json:"total_citations"`
	TotalTokensUsed int  `json:"total_tokens_used"`
	UsingOpenAI     bool `json:"using_openai"`
}

type PromptResult struct {
	Prompt    string   `json:"prompt"`
	Response  string   `json:"response,omitempty"`
	Citations []string `json:"citations,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// PromptTestResponse is returned by POST /prompts/test.
type PromptTestResponse struct {
	Brand   string         `json:"brand"`
	Summary *PromptSummary `json:"summary,omitempty"`
	Results []PromptResult `json:"results"`
}

// SinglePromptResponse is returned by POST /prompts/single.
type SinglePromptResponse struct {
	Brand      string   `json:"brand"`
	Prompt     string   `json:"prompt"`
	Response   string   `json:"response"`
	Citations  []string `json:"citations,omitempty"`
	TokensUsed int      `json:"tokens_used,omitempty"`
	IsMock     bool     `json:"is_mock,omitempty"`
}

// PromptTemplates is returned by GET /prompts/templates.
type PromptTemplates struct {
	Templates []string `json:"templates"`
}

// PromptVariations is returned by GET /prompts/generate-variations.
type PromptVariations struct {
	Brand      string   `json:"brand"`
	BasePrompt string   `json:"base_prompt"`
	Variations []string `json:"variations"`
	TokensUsed int      `json:"tokens_used,omitempty"`
}

type CompetitorScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// CompetitorAnalysis is returned by POST /analyze_competitors/.
type CompetitorAnalysis struct {
	Brand            string            `json:"brand"`
	Competitors      []CompetitorScore `json:"competitors"`
	DetailedAnalysis string            `json:"detailed_analysis,omitempty"`
	TokensUsed       int               `json:"tokens_used,omitempty"`
	UsingOpenAI      bool              `json:"using_openai,omitempty"`
	IsMock           bool              `json:"is_mock,omitempty"`
}

// DomainInfo is one entry of DomainInsights.Domains. Every field is optional.
type DomainInfo struct {
	Title               string   `json:"title,omitempty"`
	Description         string   `json:"description,omitempty"`
	Image               string   `json:"image,omitempty"`
	VisibilityScore     *float64 `json:"visibility_score,omitempty"`
	MentionsInAnalysis  *int     `json:"mentions_in_analysis,omitempty"`
	RelevanceScore      *float64 `json:"relevance_score,omitempty"`
	AuthorityIndicators []string `json:"authority_indicators,omitempty"`
	Recommended         *bool    `json:"recommended,omitempty"`
	Source              string   `json:"source,omitempty"`
}

// DomainInsights is returned by POST /insights/analyze-domains.
type DomainInsights struct {
	Brand        string                `json:"brand"`
	Domains      map[string]DomainInfo `json:"domains"`
	FullAnalysis string                `json:"full_analysis,omitempty"`
	DataSources  []string              `json:"data_sources,omitempty"`
	TokensUsed   int                   `json:"tokens_used,omitempty"`
	UsingOpenAI  bool                  `json:"using_openai,omitempty"`
	IsMock       bool                  `json:"is_mock,omitempty"`
}

// DomainStats is returned by GET /insights/domain-stats.
type DomainStats struct {
	Domains map[string]DomainInfo `json:"domains"`
	Note    string                `json:"note,omitempty"`
}

// BrandPresence is returned by GET /citations/analyze-brand-presence.
type BrandPresence struct {
	Brand           string   `json:"brand"`
	Competitors     []string `json:"competitors"`
	Topic           string   `json:"topic"`
	Analysis        string   `json:"analysis"`
	Citations       []string `json:"citations"`
	CitationCount   int      `json:"citation_count"`
	Recommendations []string `json:"recommendations,omitempty"`
	TokensUsed      int      `json:"tokens_used,omitempty"`
	UsingOpenAI     bool     `json:"using_openai,omitempty"`
	IsMock          bool     `json:"is_mock,omitempty"`
}

// ExtractedURLs is returned by GET /citations/extract.
type ExtractedURLs struct {
	URLs               []string `json:"urls"`
	Count              int      `json:"count"`
	OriginalTextLength int      `json:"original_text_length"`
}
