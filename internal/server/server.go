// Package server exposes the reporting backend over HTTP: auth, data
// source browsing, attribution modeling, report generation, and app
// configuration.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/marketing-reports/internal/artifact"
	"github.com/sells-group/marketing-reports/internal/attribution"
	"github.com/sells-group/marketing-reports/internal/auth"
	"github.com/sells-group/marketing-reports/internal/config"
	"github.com/sells-group/marketing-reports/internal/report"
	"github.com/sells-group/marketing-reports/internal/source"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server holds the wired services behind the HTTP API.
type Server struct {
	users       auth.UserStore
	tokens      *auth.TokenIssuer
	gateway     *source.Gateway
	attribution *attribution.Service
	store       *artifact.Store
	generator   *report.Generator
	renderer    *report.Renderer
	appConfig   *config.AppConfig

	router chi.Router
}

// Options carries the dependencies for New. Gateway sources and the
// attribution service may be partially configured; the matching routes
// then answer 503.
type Options struct {
	Users       auth.UserStore
	Tokens      *auth.TokenIssuer
	Gateway     *source.Gateway
	Attribution *attribution.Service
	Store       *artifact.Store
	Generator   *report.Generator
	Renderer    *report.Renderer
	AppConfig   *config.AppConfig
}

// New builds the server and its route table.
func New(opts Options) *Server {
	s := &Server{
		users:       opts.Users,
		tokens:      opts.Tokens,
		gateway:     opts.Gateway,
		attribution: opts.Attribution,
		store:       opts.Store,
		generator:   opts.Generator,
		renderer:    opts.Renderer,
		appConfig:   opts.AppConfig,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/connectors/status", s.handleConnectorsStatus)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/token", s.handleToken)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/auth/me", s.handleMe)

			r.Route("/data-sources", func(r chi.Router) {
				r.Get("/bigquery/datasets", s.handleBigQueryDatasets)
				r.Get("/bigquery/tables/{dataset}", s.handleBigQueryTables)
				r.Post("/bigquery/query", s.handleBigQueryQuery)
				r.Get("/spreadsheets/{spreadsheetID}/sheets", s.handleSpreadsheetSheets)
				r.Get("/spreadsheets/{spreadsheetID}/{sheetName}", s.handleSheetData)
				r.Get("/database/tables", s.handleDatabaseTables)
				r.Post("/database/query", s.handleDatabaseQuery)
			})

			r.Route("/ai/attribution", func(r chi.Router) {
				r.Post("/", s.handleCreateAttribution)
				r.Get("/models", s.handleListModels)
				r.Get("/models/{id}", s.handleGetModel)
				r.Delete("/models/{id}", s.handleDeleteModel)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/templates", s.handleListTemplates)
				r.Get("/saved", s.handleListReports)
				r.Post("/generate", s.handleGenerateReport)
				r.Get("/{id}", s.handleGetReport)
				r.Delete("/{id}", s.handleDeleteReport)
			})

			r.Get("/config", s.handleGetConfig)
			r.Post("/config", s.handleUpdateConfig)
		})
	})

	return r
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	zap.L().Info("http server stopped")
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
