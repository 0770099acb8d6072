package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// SourceType identifies a data source connector.
type SourceType string

const (
	SourceBigQuery    SourceType = "bigquery"
	SourceSpreadsheet SourceType = "spreadsheet"
	SourceDatabase    SourceType = "database"
	SourceFile        SourceType = "file"
)

// SourceDescriptor names one data source for a report.
type SourceDescriptor struct {
	Type          SourceType `json:"type" yaml:"type"`
	ID            string     `json:"id,omitempty" yaml:"id,omitempty"`
	Query         string     `json:"query,omitempty" yaml:"query,omitempty"`
	SpreadsheetID string     `json:"spreadsheet_id,omitempty" yaml:"spreadsheet_id,omitempty"`
	SheetName     string     `json:"sheet_name,omitempty" yaml:"sheet_name,omitempty"`
	Path          string     `json:"path,omitempty" yaml:"path,omitempty"`
}

// Key returns the identifier used for this source in fetch results,
// defaulting to the source type when no explicit id is set.
func (d SourceDescriptor) Key() string {
	if d.ID != "" {
		return d.ID
	}
	return string(d.Type)
}

// Validate checks the descriptor has everything its connector needs.
func (d SourceDescriptor) Validate() error {
	switch d.Type {
	case SourceBigQuery, SourceDatabase:
		if d.Query == "" {
			return eris.Errorf("source %s: query is required", d.Key())
		}
	case SourceSpreadsheet:
		if d.SpreadsheetID == "" && d.Path == "" {
			return eris.Errorf("source %s: spreadsheet_id or path is required", d.Key())
		}
	case SourceFile:
		if d.Path == "" {
			return eris.Errorf("source %s: path is required", d.Key())
		}
	default:
		return eris.Errorf("source %s: unsupported type %q", d.Key(), d.Type)
	}
	return nil
}

// ReportConfig describes a report to generate.
type ReportConfig struct {
	Type        string             `json:"type" yaml:"type"`
	Title       string             `json:"title" yaml:"title"`
	Description string             `json:"description" yaml:"description"`
	Period      string             `json:"period" yaml:"period"`
	Channels    []string           `json:"channels" yaml:"channels"`
	Metrics     []string           `json:"metrics" yaml:"metrics"`
	DataSources []SourceDescriptor `json:"data_sources" yaml:"data_sources"`
}

// Validate checks the config before any data is fetched.
func (c *ReportConfig) Validate() error {
	for _, src := range c.DataSources {
		if err := src.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Report is the persisted metadata record for a generated report. The
// rendered HTML body is stored separately under the same id.
type Report struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Type        string       `json:"type"`
	Path        string       `json:"path,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Config      ReportConfig `json:"config"`
}

// Insight is a single narrative finding produced by the LLM (or the error
// fallback entry when generation fails).
type Insight struct {
	Title          string `json:"title"`
	Explanation    string `json:"explanation"`
	Recommendation string `json:"recommendation"`
}

// VizType identifies a visualization kind.
type VizType string

const (
	VizBar  VizType = "bar"
	VizLine VizType = "line"
	VizPie  VizType = "pie"
)

// Series is one named sequence of values in a visualization.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Visualization is chart-ready data extracted from a tabular source.
type Visualization struct {
	Title  string   `json:"title"`
	Type   VizType  `json:"type"`
	Source string   `json:"source"`
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// TemplateInfo describes an available report template.
type TemplateInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
}
