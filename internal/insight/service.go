// Package insight asks the LLM for attribution allocations and report
// narratives. Responses are untrusted: everything is validated before use
// and every failure path degrades to a structured fallback.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/marketing-reports/internal/model"
	"github.com/sells-group/marketing-reports/pkg/anthropic"
)

// Options configures the service.
type Options struct {
	Model            string
	MaxTokens        int64
	Timeout          time.Duration
	RPS              float64
	SampleRows       int // records included in the attribution prompt
	SummaryCharLimit int // serialized data budget for the insights prompt
}

func (o *Options) fill() {
	if o.Model == "" {
		o.Model = "claude-sonnet-4-5-20250929"
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = 4096
	}
	if o.Timeout == 0 {
		o.Timeout = 60 * time.Second
	}
	if o.RPS == 0 {
		o.RPS = 2
	}
	if o.SampleRows == 0 {
		o.SampleRows = 20
	}
	if o.SummaryCharLimit == 0 {
		o.SummaryCharLimit = 4000
	}
}

// Service calls the LLM with rate limiting and per-call timeouts.
type Service struct {
	client  anthropic.Client
	opts    Options
	limiter *rate.Limiter
}

// NewService creates an insight service.
func NewService(client anthropic.Client, opts Options) *Service {
	opts.fill()
	return &Service{
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), 1),
	}
}

const attributionSystemPrompt = `You are an expert in marketing attribution modeling. Your task is to analyze marketing touchpoint data and create a fair attribution model that allocates credit to different marketing channels.

Analyze the data carefully and provide a detailed explanation of your attribution methodology. Your attribution percentages MUST add up to exactly 100%.`

// Attribution asks the model for a channel allocation. The request sample
// is bounded to SampleRows records. Any transport, parse, or validation
// failure returns an error; the attribution engine converts that into its
// equal-weight fallback.
func (s *Service) Attribution(ctx context.Context, req model.AttributionRequest, totalMetric float64) (*model.AIAllocation, error) {
	sample := req.Data
	if len(sample) > s.opts.SampleRows {
		sample = sample[:s.opts.SampleRows]
	}
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "insight: marshal data sample")
	}

	prompt := fmt.Sprintf(`I need to create a custom attribution model for these marketing channels: %s

The conversion metric I'm attributing is: %s
Total %s: %v

Here's a sample of my conversion path data:
%s

The fields that represent touchpoints are: %s

Please provide:
1. A fair percentage attribution for each channel (must sum to 100%%)
2. The reasoning behind your attribution
3. How this attribution compares to standard models like last-click or first-click

Respond with only a JSON object with:
- "attribution": an object mapping each channel to a percentage value
- "explanation": your explanation of the attribution methodology
- "insights": an array of key insights about channel performance`,
		strings.Join(req.Channels, ", "),
		req.ConversionMetric,
		req.ConversionMetric, totalMetric,
		string(sampleJSON),
		strings.Join(req.TouchpointFields, ", "))

	text, err := s.complete(ctx, attributionSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	return parseAllocation(text, req.Channels)
}

// parseAllocation decodes and validates the model's answer. Every
// requested channel must be present with a non-negative numeric
// percentage.
func parseAllocation(text string, channels []string) (*model.AIAllocation, error) {
	var raw struct {
		Attribution map[string]json.Number `json:"attribution"`
		Explanation string                 `json:"explanation"`
		Insights    []string               `json:"insights"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return nil, eris.Wrap(err, "insight: parse attribution response")
	}

	pct := make(map[string]float64, len(channels))
	for _, ch := range channels {
		n, ok := raw.Attribution[ch]
		if !ok {
			return nil, eris.Errorf("insight: response missing channel %q", ch)
		}
		v, err := n.Float64()
		if err != nil {
			return nil, eris.Wrapf(err, "insight: non-numeric percentage for channel %q", ch)
		}
		if v < 0 {
			return nil, eris.Errorf("insight: negative percentage for channel %q", ch)
		}
		pct[ch] = v
	}

	return &model.AIAllocation{
		Percentages: pct,
		Explanation: raw.Explanation,
		Insights:    raw.Insights,
	}, nil
}

const insightsSystemPrompt = "You are a marketing analytics expert that provides factual insights based on data."

// Insights asks for 3-5 narrative findings about the fetched data. On any
// failure it returns a single error-insight entry instead of an error, so
// report generation always proceeds.
func (s *Service) Insights(ctx context.Context, data []model.FetchResult, reportType string, channels, metrics []string) []model.Insight {
	summary, err := json.MarshalIndent(fetchResultsDoc(data), "", "  ")
	if err != nil {
		return errorInsight(err)
	}
	doc := truncateUTF8(string(summary), s.opts.SummaryCharLimit)

	prompt := fmt.Sprintf(`Analyze the following marketing data and provide 3-5 key insights.

Report Type: %s
Channels: %s
Metrics: %s

Data Summary:
%s

For each insight, provide:
1. A concise title (10 words or less)
2. A detailed explanation (2-3 sentences)
3. A recommendation based on the insight (1-2 sentences)

Respond with only a JSON object holding an "insights" array, each element with "title", "explanation", and "recommendation" fields.`,
		reportType, strings.Join(channels, ", "), strings.Join(metrics, ", "), doc)

	text, err := s.complete(ctx, insightsSystemPrompt, prompt)
	if err != nil {
		zap.L().Warn("insight generation failed", zap.Error(err))
		return errorInsight(err)
	}

	var raw struct {
		Insights []model.Insight `json:"insights"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		zap.L().Warn("insight response unparseable", zap.Error(err))
		return errorInsight(err)
	}
	return raw.Insights
}

func (s *Service) complete(ctx context.Context, system, prompt string) (string, error) {
	if s.client == nil {
		return "", eris.New("insight: no LLM client configured")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "insight: rate limit wait")
	}

	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.opts.Model,
		MaxTokens: s.opts.MaxTokens,
		System:    system,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// truncateUTF8 bounds s to limit bytes without splitting a multi-byte
// rune, stepping the cut back to the nearest rune start.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func errorInsight(err error) []model.Insight {
	return []model.Insight{{
		Title:          "Error Generating Insights",
		Explanation:    fmt.Sprintf("An error occurred while generating insights: %s", err),
		Recommendation: "Please check your data sources and try again.",
	}}
}

// fetchResultsDoc renders fetch results as the source-keyed document the
// prompt serializes: data on success, an {error} entry on failure.
func fetchResultsDoc(data []model.FetchResult) map[string]any {
	doc := make(map[string]any, len(data))
	for _, fr := range data {
		if fr.Error != "" {
			doc[fr.Source] = map[string]string{"error": fr.Error}
			continue
		}
		doc[fr.Source] = fr.Data
	}
	return doc
}

// stripFences removes a surrounding markdown code fence, which models
// sometimes add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
