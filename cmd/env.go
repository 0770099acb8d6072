package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/marketing-reports/internal/artifact"
	"github.com/sells-group/marketing-reports/internal/attribution"
	"github.com/sells-group/marketing-reports/internal/auth"
	"github.com/sells-group/marketing-reports/internal/config"
	"github.com/sells-group/marketing-reports/internal/insight"
	"github.com/sells-group/marketing-reports/internal/model"
	"github.com/sells-group/marketing-reports/internal/report"
	"github.com/sells-group/marketing-reports/internal/source"
	"github.com/sells-group/marketing-reports/pkg/anthropic"
	"github.com/sells-group/marketing-reports/pkg/bigquery"
	"github.com/sells-group/marketing-reports/pkg/sheets"
)

// env holds the wired services shared by the commands.
type env struct {
	store       *artifact.Store
	gateway     *source.Gateway
	insights    *insight.Service
	attribution *attribution.Service
	renderer    *report.Renderer
	generator   *report.Generator
	users       *auth.StaticUserStore
	tokens      *auth.TokenIssuer
	appConfig   *config.AppConfig

	db source.Database
}

// initEnv builds every service from configuration. Connectors without
// credentials stay nil; the matching features degrade instead of failing
// startup.
func initEnv(ctx context.Context) (*env, error) {
	store, err := artifact.NewStore(cfg.Store.ModelsDir, cfg.Store.ReportsDir)
	if err != nil {
		return nil, err
	}

	appCfg, err := config.NewAppConfig(cfg.Store.DataDir)
	if err != nil {
		return nil, err
	}

	e := &env{store: store, appConfig: appCfg}

	gateway := &source.Gateway{
		File:    source.NewFileSource(),
		Timeout: time.Duration(cfg.Report.FetchTimeoutSecs) * time.Second,
	}
	if cfg.BigQuery.AccessToken != "" && cfg.BigQuery.ProjectID != "" {
		client := bigquery.NewClient(cfg.BigQuery.AccessToken, cfg.BigQuery.ProjectID,
			bigquery.WithBaseURL(cfg.BigQuery.BaseURL))
		gateway.BigQuery = source.NewBigQuerySource(client, cfg.BigQuery.MaxBytes)
	}
	if cfg.Sheets.APIKey != "" {
		gateway.Spreadsheet = source.NewSpreadsheetSource(
			sheets.NewClient(cfg.Sheets.APIKey, sheets.WithBaseURL(cfg.Sheets.BaseURL)))
	} else {
		// Local XLSX workbooks still work without a Sheets API key.
		gateway.Spreadsheet = source.NewSpreadsheetSource(nil)
	}
	if db, err := source.OpenDatabase(ctx, cfg.Database); err != nil {
		zap.L().Warn("database source unavailable", zap.Error(err))
	} else {
		gateway.Database = db
		e.db = db
	}
	e.gateway = gateway

	if cfg.Anthropic.Key != "" {
		e.insights = insight.NewService(anthropic.NewClient(cfg.Anthropic.Key), insight.Options{
			Model:            cfg.Anthropic.Model,
			MaxTokens:        cfg.Anthropic.MaxTokens,
			Timeout:          time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
			RPS:              cfg.Anthropic.RPS,
			SampleRows:       cfg.Report.SampleRows,
			SummaryCharLimit: cfg.Report.SummaryCharLimit,
		})
	}

	// Typed-nil guards: a nil *insight.Service must not end up inside a
	// non-nil interface value.
	var narrator attribution.Narrator
	var insightSrc report.InsightSource
	if e.insights != nil {
		narrator = e.insights
		insightSrc = e.insights
	}

	e.attribution = attribution.NewService(attribution.NewEngine(narrator), store)
	e.renderer = report.NewRenderer(cfg.Store.TemplatesDir)
	e.generator = report.NewGenerator(gateway, insightSrc, e.renderer, store)

	e.users = auth.NewStaticUserStore()
	adminPassword := cfg.Auth.AdminPassword
	if adminPassword == "" {
		adminPassword = "admin"
		zap.L().Warn("auth.admin_password not set, using default credentials")
	}
	if err := e.users.AddUser(model.User{
		Username: cfg.Auth.AdminUser,
		Email:    cfg.Auth.AdminEmail,
		Role:     "admin",
	}, adminPassword); err != nil {
		return nil, err
	}
	e.tokens = auth.NewTokenIssuer(cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	return e, nil
}

func (e *env) Close() {
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			zap.L().Warn("closing database source", zap.Error(err))
		}
	}
}
