// Package attribution allocates conversion credit across marketing
// channels using rule-based, placeholder, and LLM-backed strategies.
package attribution

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/sells-group/marketing-reports/internal/model"
)

// shapleySeed fixes the placeholder weight sequence so repeated runs over
// the same channel list produce identical allocations.
const shapleySeed = 42

// Narrator produces LLM-backed attribution allocations. Implementations
// are treated as untrusted: any error or malformed answer triggers the
// engine's equal-weight fallback.
type Narrator interface {
	Attribution(ctx context.Context, req model.AttributionRequest, totalMetric float64) (*model.AIAllocation, error)
}

// Engine evaluates attribution requests.
type Engine struct {
	ai Narrator
}

// NewEngine creates an engine. The narrator may be nil, in which case the
// ai model type falls back to equal weighting.
func NewEngine(ai Narrator) *Engine {
	return &Engine{ai: ai}
}

// Allocate computes the attribution result for the request. The request
// must already be validated. The ai path never returns an error; every
// other path is pure and cannot fail.
func (e *Engine) Allocate(ctx context.Context, req model.AttributionRequest) *model.AttributionResult {
	total := req.TotalMetric()

	var result *model.AttributionResult
	switch req.ModelType {
	case model.ModelFirstTouch:
		result = positional(req.Channels, 0, req.ModelType,
			"First-touch attribution gives 100% credit to the first marketing interaction in the customer journey.")
	case model.ModelLastTouch:
		result = positional(req.Channels, len(req.Channels)-1, req.ModelType,
			"Last-touch attribution gives 100% credit to the final marketing interaction before conversion.")
	case model.ModelShapley:
		result = shapley(req.Channels)
	case model.ModelMarkov:
		result = markov(req.Channels)
	case model.ModelAI:
		result = e.aiAllocate(ctx, req, total)
	default:
		// Linear is the default for any unrecognized type.
		result = linear(req.Channels)
	}

	result.TotalMetric = total
	result.AttributedValues = attributedValues(result.AttributionPercentages, total)
	return result
}

// positional assigns 100% to the channel at the given list index. Selection
// is by list position, not by interaction recency in the data.
func positional(channels []string, index int, mt model.ModelType, explanation string) *model.AttributionResult {
	pct := make(map[string]float64, len(channels))
	for i, ch := range channels {
		if i == index {
			pct[ch] = 100.0
		} else {
			pct[ch] = 0.0
		}
	}
	return &model.AttributionResult{
		ModelType:              mt,
		AttributionPercentages: pct,
		Explanation:            explanation,
	}
}

// linear gives each channel round2(100/N), then replaces the last listed
// channel's share with round2(100 - sum(others)) so the total is exactly
// 100.00. All rounding remainder lands on the last channel.
func linear(channels []string) *model.AttributionResult {
	pct := make(map[string]float64, len(channels))
	weight := round2(100.0 / float64(len(channels)))
	for _, ch := range channels {
		pct[ch] = weight
	}

	var others float64
	for _, ch := range channels[:len(channels)-1] {
		others += pct[ch]
	}
	pct[channels[len(channels)-1]] = round2(100.0 - others)

	return &model.AttributionResult{
		ModelType:              model.ModelLinear,
		AttributionPercentages: pct,
		Explanation:            "Linear attribution gives equal credit to all marketing interactions in the customer journey.",
	}
}

// shapley is a labeled placeholder, not a coalition-marginal-contribution
// computation: seeded random weights normalized to sum 1.
func shapley(channels []string) *model.AttributionResult {
	rng := rand.New(rand.NewSource(shapleySeed))

	raw := make([]float64, len(channels))
	var sum float64
	for i := range raw {
		raw[i] = rng.Float64()
		sum += raw[i]
	}

	pct := make(map[string]float64, len(channels))
	for i, ch := range channels {
		pct[ch] = round2(raw[i] / sum * 100)
	}

	return &model.AttributionResult{
		ModelType:              model.ModelShapley,
		AttributionPercentages: pct,
		Explanation: "Shapley value attribution assigns credit based on the marginal contribution " +
			"of each channel across all possible combinations of channels.",
	}
}

// markov is a labeled placeholder: a linear ramp from 0.5 to 1.5 across
// channel order, normalized, so later touchpoints receive more credit.
func markov(channels []string) *model.AttributionResult {
	n := len(channels)
	weights := make([]float64, n)
	var sum float64
	for i := range weights {
		if n == 1 {
			weights[i] = 0.5
		} else {
			weights[i] = 0.5 + float64(i)/float64(n-1)
		}
		sum += weights[i]
	}

	pct := make(map[string]float64, n)
	for i, ch := range channels {
		pct[ch] = round2(weights[i] / sum * 100)
	}

	return &model.AttributionResult{
		ModelType:              model.ModelMarkov,
		AttributionPercentages: pct,
		Explanation: "Markov chain attribution models the customer journey as a stochastic process, " +
			"measuring the impact of each channel by calculating removal effects.",
	}
}

// aiAllocate delegates to the narrator. On any failure it returns an
// equal-weight allocation with the error recorded in the explanation; it
// never propagates an error.
func (e *Engine) aiAllocate(ctx context.Context, req model.AttributionRequest, total float64) *model.AttributionResult {
	if e.ai == nil {
		return aiFallback(req.Channels, "no AI narrator configured")
	}

	answer, err := e.ai.Attribution(ctx, req, total)
	if err != nil {
		zap.L().Warn("ai attribution failed, using equal-weight fallback", zap.Error(err))
		return aiFallback(req.Channels, err.Error())
	}

	return &model.AttributionResult{
		ModelType:              model.ModelAI,
		AttributionPercentages: answer.Percentages,
		Explanation:            answer.Explanation,
		Insights:               answer.Insights,
	}
}

// aiFallback spreads credit evenly (100/N, unrounded) and reports the
// failure reason in the explanation.
func aiFallback(channels []string, reason string) *model.AttributionResult {
	pct := make(map[string]float64, len(channels))
	weight := 100.0 / float64(len(channels))
	for _, ch := range channels {
		pct[ch] = weight
	}
	return &model.AttributionResult{
		ModelType:              model.ModelAI,
		AttributionPercentages: pct,
		Explanation:            fmt.Sprintf("Error in AI attribution: %s. Using equal attribution as fallback.", reason),
	}
}

func attributedValues(pct map[string]float64, total float64) map[string]float64 {
	values := make(map[string]float64, len(pct))
	for ch, p := range pct {
		values[ch] = p / 100 * total
	}
	return values
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
