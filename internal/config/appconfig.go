package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
)

// AppConfig manages the nested JSON configuration document exposed over
// the API (app, data_sources, ai, meridian, report_settings sections).
// Reads happen on startup; partial updates deep-merge into the existing
// structure and are written back atomically.
type AppConfig struct {
	mu   sync.Mutex
	path string
	doc  map[string]any
}

// NewAppConfig loads the document at dir/config.json, creating it with
// defaults when missing or unreadable.
func NewAppConfig(dir string) (*AppConfig, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "appconfig: create dir")
	}
	a := &AppConfig{path: filepath.Join(dir, "config.json")}

	raw, err := os.ReadFile(a.path)
	if err == nil {
		var doc map[string]any
		if jsonErr := json.Unmarshal(raw, &doc); jsonErr == nil {
			a.doc = doc
			return a, nil
		}
	}

	a.doc = defaultAppConfig()
	if err := a.save(); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns a deep copy of the current document.
func (a *AppConfig) Get() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copyMap(a.doc)
}

// Update deep-merges the given partial document into the stored one and
// persists the result. Child maps merge key-by-key; non-map values
// overwrite. Returns the merged document.
func (a *AppConfig) Update(partial map[string]any) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	deepMerge(a.doc, partial)
	if err := a.save(); err != nil {
		return nil, err
	}
	return copyMap(a.doc), nil
}

// save writes the document atomically (temp file + rename).
func (a *AppConfig) save() error {
	raw, err := json.MarshalIndent(a.doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "appconfig: marshal")
	}

	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return eris.Wrap(err, "appconfig: write temp file")
	}
	if err := os.Rename(tmp, a.path); err != nil {
		os.Remove(tmp)
		return eris.Wrap(err, "appconfig: rename")
	}
	return nil
}

func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			deepMerge(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if child, ok := v.(map[string]any); ok {
			out[k] = copyMap(child)
			continue
		}
		out[k] = v
	}
	return out
}

func defaultAppConfig() map[string]any {
	return map[string]any{
		"app": map[string]any{
			"name":    "Digital Marketing Reporting Tool",
			"version": "0.1.0",
		},
		"data_sources": map[string]any{
			"bigquery": map[string]any{
				"enabled":         true,
				"project_id":      os.Getenv("GCP_PROJECT_ID"),
				"default_dataset": "",
			},
			"spreadsheets": map[string]any{
				"enabled": true,
			},
			"database": map[string]any{
				"enabled": true,
				"type":    envOr("DB_TYPE", "sqlite"),
				"path":    envOr("DB_PATH", "data/marketing_reports.db"),
			},
		},
		"ai": map[string]any{
			"enabled": true,
			"models": map[string]any{
				"default": "claude-sonnet-4-5-20250929",
			},
		},
		"meridian": map[string]any{
			"enabled": false,
			"path":    "",
		},
		"report_settings": map[string]any{
			"default_template": "default",
			"logo_url":         "",
			"company_name":     "",
			"default_channels": []any{
				"Paid Search", "Organic Search", "Email", "Social", "Display", "Direct",
			},
			"default_metrics": []any{
				"Impressions", "Clicks", "Conversions", "Revenue",
			},
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
