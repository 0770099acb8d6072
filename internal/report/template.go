package report

import (
	"bytes"
	_ "embed"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/marketing-reports/internal/model"
)

//go:embed templates/default.html
var defaultTemplate string

// RenderContext carries everything a report template can reference.
// Data keeps the per-source fetch outcomes, error entries included, so
// a failing source stays visible in the persisted artifact.
type RenderContext struct {
	ReportID       string
	Title          string
	Description    string
	Period         string
	Channels       []string
	Metrics        []string
	Insights       []model.Insight
	Visualizations []model.Visualization
	Data           []model.FetchResult
	GeneratedAt    time.Time
}

// Renderer resolves and executes report templates. Templates live in a
// configured directory, keyed by report type; a missing type falls back
// to the built-in default.
type Renderer struct {
	dir string
}

// NewRenderer creates a renderer over the given templates directory. The
// directory may be absent; only the embedded default is available then.
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir}
}

// Render executes the template for the report type.
func (r *Renderer) Render(reportType string, ctx RenderContext) ([]byte, error) {
	tmpl, err := r.resolve(reportType)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return nil, eris.Wrapf(err, "report: render template for type %q", reportType)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) resolve(reportType string) (*template.Template, error) {
	if reportType != "" && r.dir != "" {
		path := filepath.Join(r.dir, reportType+".html")
		if _, err := os.Stat(path); err == nil {
			tmpl, err := template.ParseFiles(path)
			if err != nil {
				return nil, eris.Wrapf(err, "report: parse template %s", path)
			}
			return tmpl, nil
		}
	}

	tmpl, err := template.New("default.html").Parse(defaultTemplate)
	if err != nil {
		return nil, eris.Wrap(err, "report: parse built-in template")
	}
	return tmpl, nil
}

// ListTemplates enumerates the HTML templates in the directory. The
// built-in default is always included unless the directory shadows it.
func (r *Renderer) ListTemplates() ([]model.TemplateInfo, error) {
	out := []model.TemplateInfo{}
	seen := map[string]bool{}

	if r.dir != "" {
		entries, err := os.ReadDir(r.dir)
		if err != nil && !os.IsNotExist(err) {
			return nil, eris.Wrapf(err, "report: read templates dir %s", r.dir)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
				continue
			}
			id := strings.TrimSuffix(e.Name(), ".html")
			out = append(out, model.TemplateInfo{
				ID:       id,
				Name:     templateDisplayName(id),
				Filename: e.Name(),
			})
			seen[id] = true
		}
	}

	if !seen["default"] {
		out = append(out, model.TemplateInfo{ID: "default", Name: "Default", Filename: "default.html"})
	}
	return out, nil
}

func templateDisplayName(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
