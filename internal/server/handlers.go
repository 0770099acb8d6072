package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/marketing-reports/internal/artifact"
	"github.com/sells-group/marketing-reports/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := s.users.Authenticate(username, password)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		zap.L().Error("token issue failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}

func (s *Server) handleBigQueryDatasets(w http.ResponseWriter, r *http.Request) {
	if s.gateway.BigQuery == nil {
		writeError(w, http.StatusServiceUnavailable, "bigquery is not configured")
		return
	}
	datasets, err := s.gateway.BigQuery.ListDatasets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, datasets)
}

func (s *Server) handleBigQueryTables(w http.ResponseWriter, r *http.Request) {
	if s.gateway.BigQuery == nil {
		writeError(w, http.StatusServiceUnavailable, "bigquery is not configured")
		return
	}
	tables, err := s.gateway.BigQuery.ListTables(r.Context(), chi.URLParam(r, "dataset"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

type queryBody struct {
	Query string `json:"query"`
}

func (s *Server) handleBigQueryQuery(w http.ResponseWriter, r *http.Request) {
	s.runQuery(w, r, model.SourceBigQuery)
}

func (s *Server) handleDatabaseQuery(w http.ResponseWriter, r *http.Request) {
	s.runQuery(w, r, model.SourceDatabase)
}

func (s *Server) runQuery(w http.ResponseWriter, r *http.Request, srcType model.SourceType) {
	var body queryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := s.gateway.Fetch(r.Context(), model.SourceDescriptor{
		Type:  srcType,
		Query: body.Query,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSpreadsheetSheets(w http.ResponseWriter, r *http.Request) {
	if s.gateway.Spreadsheet == nil {
		writeError(w, http.StatusServiceUnavailable, "spreadsheets are not configured")
		return
	}
	sheetList, err := s.gateway.Spreadsheet.ListSheets(r.Context(), chi.URLParam(r, "spreadsheetID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sheetList)
}

func (s *Server) handleSheetData(w http.ResponseWriter, r *http.Request) {
	result, err := s.gateway.Fetch(r.Context(), model.SourceDescriptor{
		Type:          model.SourceSpreadsheet,
		SpreadsheetID: chi.URLParam(r, "spreadsheetID"),
		SheetName:     chi.URLParam(r, "sheetName"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDatabaseTables(w http.ResponseWriter, r *http.Request) {
	if s.gateway.Database == nil {
		writeError(w, http.StatusServiceUnavailable, "database is not configured")
		return
	}
	tables, err := s.gateway.Database.ListTables(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) handleCreateAttribution(w http.ResponseWriter, r *http.Request) {
	var req model.AttributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	m, err := s.attribution.CreateModel(r.Context(), req)
	if err != nil {
		if req.Validate() != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.store.ListModels()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetModel(chi.URLParam(r, "id"))
	if eris.Is(err, artifact.ErrNotFound) {
		writeError(w, http.StatusNotFound, "model not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteModel(chi.URLParam(r, "id"))
	if eris.Is(err, artifact.ErrNotFound) {
		writeError(w, http.StatusNotFound, "model not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.renderer.ListTemplates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.ListReports()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var cfg model.ReportConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.generator.Generate(r.Context(), cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"report_id":  rep.ID,
		"report_url": "/api/reports/" + rep.ID,
		"message":    "Report generated successfully",
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rep, err := s.store.GetReport(id)
	if eris.Is(err, artifact.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	html, err := s.store.GetReportHTML(id)
	if err != nil && !eris.Is(err, artifact.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          rep.ID,
		"title":       rep.Title,
		"description": rep.Description,
		"type":        rep.Type,
		"created_at":  rep.CreatedAt,
		"config":      rep.Config,
		"html":        string(html),
	})
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteReport(chi.URLParam(r, "id"))
	if eris.Is(err, artifact.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.appConfig.Get())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.appConfig.Update(partial)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleConnectorsStatus probes each configured connector with a cheap
// metadata call.
func (s *Server) handleConnectorsStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := map[string]map[string]string{}

	if s.gateway.BigQuery == nil {
		status["bigquery"] = map[string]string{"status": "not_configured"}
	} else if _, err := s.gateway.BigQuery.ListDatasets(ctx); err != nil {
		status["bigquery"] = map[string]string{"status": "error", "message": err.Error()}
	} else {
		status["bigquery"] = map[string]string{"status": "connected"}
	}

	if s.gateway.Spreadsheet == nil {
		status["spreadsheet"] = map[string]string{"status": "not_configured"}
	} else {
		status["spreadsheet"] = map[string]string{"status": "connected"}
	}

	if s.gateway.Database == nil {
		status["database"] = map[string]string{"status": "not_configured"}
	} else if _, err := s.gateway.Database.ListTables(ctx); err != nil {
		status["database"] = map[string]string{"status": "error", "message": err.Error()}
	} else {
		status["database"] = map[string]string{"status": "connected"}
	}

	writeJSON(w, http.StatusOK, status)
}
