package model

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// ModelType identifies an attribution allocation strategy.
type ModelType string

const (
	ModelFirstTouch ModelType = "first_touch"
	ModelLastTouch  ModelType = "last_touch"
	ModelLinear     ModelType = "linear"
	ModelAI         ModelType = "ai"
	ModelShapley    ModelType = "shapley"
	ModelMarkov     ModelType = "markov"
)

// ConversionRecord is one row of conversion path data. Field names are
// caller-defined; the request declares which fields carry the conversion
// metric and the touchpoints.
type ConversionRecord map[string]any

// MetricValue extracts the named field as a float64. Returns 0, false when
// the field is absent or not coercible to a number.
func (r ConversionRecord) MetricValue(field string) (float64, bool) {
	v, ok := r[field]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// AttributionRequest describes an attribution model to build.
type AttributionRequest struct {
	Data             []ConversionRecord `json:"data" yaml:"data"`
	Channels         []string           `json:"channels" yaml:"channels"`
	ModelType        ModelType          `json:"model_type" yaml:"model_type"`
	ConversionMetric string             `json:"conversion_metric" yaml:"conversion_metric"`
	TouchpointFields []string           `json:"touchpoint_fields" yaml:"touchpoint_fields"`
}

// Validate checks the request before any external call is attempted.
func (r *AttributionRequest) Validate() error {
	if len(r.Channels) == 0 {
		return eris.New("attribution request: channels must not be empty")
	}
	if r.ConversionMetric == "" {
		return eris.New("attribution request: conversion_metric is required")
	}
	return nil
}

// TotalMetric sums the conversion metric over all records. Records missing
// the field (or holding a non-numeric value) contribute nothing; an entirely
// absent field yields 0 and allocation still proceeds.
func (r *AttributionRequest) TotalMetric() float64 {
	var total float64
	for _, rec := range r.Data {
		if v, ok := rec.MetricValue(r.ConversionMetric); ok {
			total += v
		}
	}
	return total
}

// AttributionResult is the outcome of an allocation run. Percentages sum to
// 100 within floating rounding, and every requested channel appears in both
// maps.
type AttributionResult struct {
	ModelType              ModelType          `json:"model_type"`
	AttributionPercentages map[string]float64 `json:"attribution_percentages"`
	AttributedValues       map[string]float64 `json:"attributed_values"`
	TotalMetric            float64            `json:"total_metric"`
	Explanation            string             `json:"explanation"`
	Insights               []string           `json:"insights,omitempty"`
}

// AIAllocation is a parsed, validated answer from the LLM narrator.
type AIAllocation struct {
	Percentages map[string]float64 `json:"attribution"`
	Explanation string             `json:"explanation"`
	Insights    []string           `json:"insights,omitempty"`
}

// AttributionModel is the persisted artifact: request parameters plus the
// computed result. Immutable once written.
type AttributionModel struct {
	ID               string             `json:"id"`
	Type             ModelType          `json:"type"`
	CreatedAt        time.Time          `json:"created_at"`
	Channels         []string           `json:"channels"`
	ConversionMetric string             `json:"conversion_metric"`
	Parameters       AttributionRequest `json:"parameters"`
	Results          *AttributionResult `json:"results"`
}

// ModelSummary is the listing view of a stored attribution model.
type ModelSummary struct {
	ID               string    `json:"id"`
	Type             ModelType `json:"type"`
	CreatedAt        time.Time `json:"created_at"`
	Channels         []string  `json:"channels"`
	ConversionMetric string    `json:"conversion_metric"`
}
