// Package remote is the typed client for the GEO analytics backend.
//
// Every operation validates its input before touching the network, issues
// exactly one HTTP request and returns the decoded payload as the backend sent
// it. Normalization into heatmap rows happens in package heatmap.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL      = "http://localhost:8000"
	DefaultAnalysisType = "comprehensive"
	DefaultTopic        = "general marketing"
	defaultUserAgent    = "GeoGapCompass/1.0"
)

// Observer is notified once per completed request.
type Observer func(op string, elapsed time.Duration, err error)

// Client talks to the analytics backend over HTTP+JSON.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	observe   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. Its Timeout, if any, is the only
// deadline applied to requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{},
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health probes GET /health. It never fails: any error is folded into a
// HealthStatus with Status "error".
func (c *Client) Health(ctx context.Context) HealthStatus {
	data, err := c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
	if err != nil {
		return HealthStatus{Status: "error", Error: err.Error()}
	}
	var h HealthStatus
	if err := json.Unmarshal(data, &h); err != nil {
		return HealthStatus{Status: "error", Error: "health: malformed response body: " + err.Error()}
	}
	return h
}

// TestPrompts runs POST /prompts/test. Variations are optional; when none
// survive trimming the backend generates its own.
func (c *Client) TestPrompts(ctx context.Context, brand string, variations []string) (*PromptTestResponse, error) {
	const op = "test prompts"
	b, err := requireBrand(brand)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"brand": b}
	if v := CleanList(variations); len(v) > 0 {
		body["prompt_variations"] = v
	}
	data, err := c.do(ctx, op, http.MethodPost, "/prompts/test", nil, body)
	if err != nil {
		return nil, err
	}
	return decode[PromptTestResponse](op, data)
}

// SinglePrompt runs POST /prompts/single.
func (c *Client) SinglePrompt(ctx context.Context, brand, prompt string) (*SinglePromptResponse, error) {
	const op = "single prompt"
	b, err := requireBrand(brand)
	if err != nil {
		return nil, err
	}
	p := strings.TrimSpace(prompt)
	if p == "" {
		return nil, InvalidArgument("prompt", "is required")
	}
	data, err := c.do(ctx, op, http.MethodPost, "/prompts/single", nil, map[string]any{"brand": b, "prompt": p})
	if err != nil {
		return nil, err
	}
	return decode[SinglePromptResponse](op, data)
}

// PromptTemplates runs GET /prompts/templates.
func (c *Client) PromptTemplates(ctx context.Context) (*PromptTemplates, error) {
	const op = "prompt templates"
	data, err := c.do(ctx, op, http.MethodGet, "/prompts/templates", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[PromptTemplates](op, data)
}

// GenerateVariations runs GET /prompts/generate-variations. n <= 0 asks for 5.
func (c *Client) GenerateVariations(ctx context.Context, brand, basePrompt string, n int) (*PromptVariations, error) {
	const op = "generate variations"
	b, err := requireBrand(brand)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSpace(basePrompt)
	if base == "" {
		return nil, InvalidArgument("base prompt", "is required")
	}
	if n <= 0 {
		n = 5
	}
	q := url.Values{}
	q.Set("brand", b)
	q.Set("base_prompt", base)
	q.Set("num_variations", strconv.Itoa(n))
	data, err := c.do(ctx, op, http.MethodGet, "/prompts/generate-variations", q, nil)
	if err != nil {
		return nil, err
	}
	return decode[PromptVariations](op, data)
}

// AnalyzeCompetitors runs POST /analyze_competitors/.
func (c *Client) AnalyzeCompetitors(ctx context.Context, brand string, competitors []string) (*CompetitorAnalysis, error) {
	const op = "analyze competitors"
	b, err := requireBrand(brand)
	if err != nil {
		return nil, err
	}
	list, err := requireList("competitors", competitors)
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, op, http.MethodPost, "/analyze_competitors/", nil, map[string]any{
		"brand":       b,
		"competitors": list,
	})
	if err != nil {
		return nil, err
	}
	return decode[CompetitorAnalysis](op, data)
}

// AnalyzeDomains runs POST /insights/analyze-domains. An empty analysisType
// means DefaultAnalysisType.
func (c *Client) AnalyzeDomains(ctx context.Context, brand string, domains []string, analysisType string) (*DomainInsights, error) {
	const op = "analyze domains"
	b, err := requireBrand(brand)
	if err != nil {
		return nil, err
	}
	list, err := requireList("domains", domains)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(analysisType) == "" {
		analysisType = DefaultAnalysisType
	}
	data, err := c.do(ctx, op, http.MethodPost, "/insights/analyze-domains", nil, map[string]any{
		"brand":         b,
		"domains":       list,
		"analysis_type": strings.TrimSpace(analysisType),
	})
	if err != nil {
		return nil, err
	}
	return decode[DomainInsights](op, data)
}

// DomainStats runs GET /insights/domain-stats.
func (c *Client) DomainStats(ctx context.Context, brand string, domains []string, includeAI bool) (*DomainStats, error) {
	const op = "domain stats"
	b, err := requireBrand(brand)
	if err != nil {
		return nil, err
	}
	list, err := requireList("domains", domains)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("brand", b)
	q.Set("domains", strings.Join(list, ","))
	q.Set("include_ai_analysis", strconv.FormatBool(includeAI))
	data, err := c.do(ctx, op, http.MethodGet, "/insights/domain-stats", q, nil)
	if err != nil {
		return nil, err
	}
	return decode[DomainStats](op, data)
}

// GapHeatmap runs GET /gap_heatmap/ and returns the body untouched.
func (c *Client) GapHeatmap(ctx context.Context, brand string, missingTopics []string) (json.RawMessage, error) {
	b, err := requireBrand(brand)
	if err != nil {
		return nil, err
	}
	topics, err := requireList("topics", missingTopics)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("brand", b)
	q.Set("missing_topics", strings.Join(topics, ","))
	return c.raw(ctx, "gap heatmap", "/gap_heatmap/", q)
}

// BrandGap runs GET /citations/brand-gap. competitor may be empty.
func (c *Client) BrandGap(ctx context.Context, brand, competitor string) (json.RawMessage, error) {
	b, err := requireBrand(brand)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("brand", b)
	q.Set("competitor", strings.TrimSpace(competitor))
	return c.raw(ctx, "brand gap", "/citations/brand-gap", q)
}

// BrandMissing runs GET /citations/brand-missing. An empty promptTypes list
// lets the backend choose its default content types.
func (c *Client) BrandMissing(ctx context.Context, brand string, promptTypes []string) (json.RawMessage, error) {
	b, err := requireBrand(brand)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("brand", b)
	q.Set("prompt_types", strings.Join(CleanList(promptTypes), ","))
	return c.raw(ctx, "brand missing", "/citations/brand-missing", q)
}

// AnalyzeBrandPresence runs GET /citations/analyze-brand-presence.
func (c *Client) AnalyzeBrandPresence(ctx context.Context, brand string, competitors []string, topic string) (*BrandPresence, error) {
	const op = "analyze brand presence"
	b, err := requireBrand(brand)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(topic) == "" {
		topic = DefaultTopic
	}
	q := url.Values{}
	q.Set("brand", b)
	q.Set("competitors", strings.Join(CleanList(competitors), ","))
	q.Set("topic", strings.TrimSpace(topic))
	data, err := c.do(ctx, op, http.MethodGet, "/citations/analyze-brand-presence", q, nil)
	if err != nil {
		return nil, err
	}
	return decode[BrandPresence](op, data)
}

// ExtractURLs runs GET /citations/extract.
func (c *Client) ExtractURLs(ctx context.Context, text string) (*ExtractedURLs, error) {
	const op = "extract urls"
	if strings.TrimSpace(text) == "" {
		return nil, InvalidArgument("text", "is required")
	}
	q := url.Values{}
	q.Set("text", text)
	data, err := c.do(ctx, op, http.MethodGet, "/citations/extract", q, nil)
	if err != nil {
		return nil, err
	}
	return decode[ExtractedURLs](op, data)
}

func (c *Client) raw(ctx context.Context, op, path string, q url.Values) (json.RawMessage, error) {
	data, err := c.do(ctx, op, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("malformed response body")}
	}
	return json.RawMessage(data), nil
}

func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body any) (data []byte, err error) {
	start := time.Now()
	defer func() {
		if c.observe != nil {
			c.observe(op, time.Since(start), err)
		}
	}()

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func decode[T any](op string, data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("malformed response body: %w", err)}
	}
	return &v, nil
}

func requireBrand(brand string) (string, error) {
	b := strings.TrimSpace(brand)
	if b == "" {
		return "", InvalidArgument("brand", "is required")
	}
	return b, nil
}

func requireList(field string, items []string) ([]string, error) {
	list := CleanList(items)
	if len(list) == 0 {
		return nil, InvalidArgument(field, "must contain at least one non-empty entry")
	}
	return list, nil
}

// CleanList trims every entry and drops the empty ones.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitList parses a comma separated form value into a clean list.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	return CleanList(strings.Split(s, ","))
}
