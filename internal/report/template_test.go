package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/marketing-reports/internal/model"
)

func TestRenderFallsBackToDefault(t *testing.T) {
	r := NewRenderer(t.TempDir())

	html, err := r.Render("performance", RenderContext{
		Title:       "Q1 Performance",
		Period:      "last_30_days",
		GeneratedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		Insights: []model.Insight{
			{Title: "Search dominates", Explanation: "Search drives most revenue.", Recommendation: "Increase budget."},
		},
		Visualizations: []model.Visualization{
			{
				Title:  "revenue by Channel",
				Type:   model.VizBar,
				Labels: []string{"Search", "Email"},
				Series: []model.Series{{Name: "revenue", Values: []float64{500, 250}}},
			},
		},
	})
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "Q1 Performance")
	assert.Contains(t, out, "Search dominates")
	assert.Contains(t, out, "revenue by Channel")
	assert.Contains(t, out, "<td>500</td>")
}

func TestRenderShowsSourceOutcomes(t *testing.T) {
	r := NewRenderer("")
	html, err := r.Render("performance", RenderContext{
		Title: "Partial Fetch",
		Data: []model.FetchResult{
			{Source: "warehouse", Data: &model.TabularResult{RowCount: 12}},
			{Source: "broken", Error: "connection refused"},
		},
	})
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "warehouse")
	assert.Contains(t, out, "12 rows")
	assert.Contains(t, out, "broken")
	assert.Contains(t, out, "Error: connection refused")
}

func TestRenderUsesTypeTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "attribution.html"),
		[]byte("<h1>ATTRIBUTION: {{.Title}}</h1>"), 0644))

	r := NewRenderer(dir)
	html, err := r.Render("attribution", RenderContext{Title: "Model Review"})
	require.NoError(t, err)
	assert.Equal(t, "<h1>ATTRIBUTION: Model Review</h1>", string(html))
}

func TestRenderEscapesContext(t *testing.T) {
	r := NewRenderer("")
	html, err := r.Render("", RenderContext{Title: "<script>alert(1)</script>"})
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>alert(1)</script>")
	assert.True(t, strings.Contains(string(html), "&lt;script&gt;"))
}

func TestListTemplates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "channel_performance.html"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	r := NewRenderer(dir)
	templates, err := r.ListTemplates()
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "channel_performance", templates[0].ID)
	assert.Equal(t, "Channel Performance", templates[0].Name)
	assert.Equal(t, "default", templates[1].ID)
}

func TestListTemplatesMissingDir(t *testing.T) {
	r := NewRenderer(filepath.Join(t.TempDir(), "nope"))
	templates, err := r.ListTemplates()
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "default", templates[0].ID)
}
