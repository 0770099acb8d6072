// Package report assembles marketing reports: fetch the configured data
// sources, generate insights, build visualizations, render HTML, and
// persist the artifact.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/marketing-reports/internal/model"
	"github.com/sells-group/marketing-reports/internal/source"
)

// InsightSource produces narrative findings for fetched data.
type InsightSource interface {
	Insights(ctx context.Context, data []model.FetchResult, reportType string, channels, metrics []string) []model.Insight
}

// ReportStore persists the generated artifact.
type ReportStore interface {
	SaveReport(r *model.Report, html []byte) error
}

// Generator runs the report pipeline end to end.
type Generator struct {
	gateway  *source.Gateway
	insights InsightSource
	renderer *Renderer
	store    ReportStore
	now      func() time.Time
}

// NewGenerator wires the pipeline. insights may be nil when no LLM is
// configured; reports then carry no narrative section.
func NewGenerator(gateway *source.Gateway, insights InsightSource, renderer *Renderer, store ReportStore) *Generator {
	return &Generator{
		gateway:  gateway,
		insights: insights,
		renderer: renderer,
		store:    store,
		now:      time.Now,
	}
}

// Generate produces and persists one report. Individual source failures
// are carried through as per-source errors; only validation, rendering,
// or persistence problems fail the run.
func (g *Generator) Generate(ctx context.Context, cfg model.ReportConfig) (*model.Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := g.now()
	reportType := cfg.Type
	if reportType == "" {
		reportType = "performance"
	}
	title := cfg.Title
	if title == "" {
		title = fmt.Sprintf("Marketing Report - %s", now.Format("2006-01-02"))
	}
	period := cfg.Period
	if period == "" {
		period = "last_30_days"
	}

	id := uuid.NewString()
	log := zap.L().With(zap.String("report_id", id), zap.String("type", reportType))
	log.Info("generating report", zap.Int("sources", len(cfg.DataSources)))

	data := g.gateway.FetchAll(ctx, cfg.DataSources)

	var insights []model.Insight
	if g.insights != nil {
		insights = g.insights.Insights(ctx, data, reportType, cfg.Channels, cfg.Metrics)
	}

	viz := BuildVisualizations(data, reportType, cfg.Metrics)

	html, err := g.renderer.Render(reportType, RenderContext{
		ReportID:       id,
		Title:          title,
		Description:    cfg.Description,
		Period:         period,
		Channels:       cfg.Channels,
		Metrics:        cfg.Metrics,
		Insights:       insights,
		Visualizations: viz,
		Data:           data,
		GeneratedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	rep := &model.Report{
		ID:          id,
		Title:       title,
		Description: cfg.Description,
		Type:        reportType,
		Path:        id + ".html",
		CreatedAt:   now,
		Config:      cfg,
	}
	if err := g.store.SaveReport(rep, html); err != nil {
		return nil, eris.Wrap(err, "report: persist")
	}

	log.Info("report generated",
		zap.Int("insights", len(insights)),
		zap.Int("visualizations", len(viz)),
	)
	return rep, nil
}
