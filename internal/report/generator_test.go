package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/marketing-reports/internal/artifact"
	"github.com/sells-group/marketing-reports/internal/model"
	"github.com/sells-group/marketing-reports/internal/source"
)

type fakeInsights struct {
	got      []model.FetchResult
	insights []model.Insight
}

func (f *fakeInsights) Insights(_ context.Context, data []model.FetchResult, _ string, _, _ []string) []model.Insight {
	f.got = data
	return f.insights
}

func TestGenerateEndToEnd(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "performance.csv")
	require.NoError(t, os.WriteFile(csvPath,
		[]byte("channel,date,revenue\nSearch,2026-01-01,500\nEmail,2026-01-02,250\n"), 0644))

	store, err := artifact.NewStore(filepath.Join(dir, "models"), filepath.Join(dir, "reports"))
	require.NoError(t, err)

	ins := &fakeInsights{insights: []model.Insight{
		{Title: "Search leads", Explanation: "Half of revenue is Search.", Recommendation: "Hold budget."},
	}}

	g := NewGenerator(
		&source.Gateway{File: source.NewFileSource()},
		ins,
		NewRenderer(""),
		store,
	)
	g.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	rep, err := g.Generate(context.Background(), model.ReportConfig{
		Type:    "performance",
		Title:   "March Performance",
		Metrics: []string{"revenue"},
		DataSources: []model.SourceDescriptor{
			{Type: model.SourceFile, ID: "perf", Path: csvPath},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "March Performance", rep.Title)
	assert.Equal(t, "performance", rep.Type)
	require.Len(t, ins.got, 1)

	// Persisted metadata and body are both readable.
	saved, err := store.GetReport(rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.Title, saved.Title)

	html, err := store.GetReportHTML(rep.ID)
	require.NoError(t, err)
	assert.Contains(t, string(html), "March Performance")
	assert.Contains(t, string(html), "Search leads")
	assert.Contains(t, string(html), "revenue by Channel")
	assert.Contains(t, string(html), "2 rows")
}

func TestGenerateDefaults(t *testing.T) {
	dir := t.TempDir()
	store, err := artifact.NewStore(filepath.Join(dir, "models"), filepath.Join(dir, "reports"))
	require.NoError(t, err)

	g := NewGenerator(&source.Gateway{}, nil, NewRenderer(""), store)
	g.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	rep, err := g.Generate(context.Background(), model.ReportConfig{})
	require.NoError(t, err)
	assert.Equal(t, "performance", rep.Type)
	assert.Equal(t, "Marketing Report - 2026-03-01", rep.Title)
	assert.NotEmpty(t, rep.ID)
}

func TestGenerateSourceFailureStillProduces(t *testing.T) {
	dir := t.TempDir()
	store, err := artifact.NewStore(filepath.Join(dir, "models"), filepath.Join(dir, "reports"))
	require.NoError(t, err)

	ins := &fakeInsights{}
	g := NewGenerator(&source.Gateway{File: source.NewFileSource()}, ins, NewRenderer(""), store)

	rep, err := g.Generate(context.Background(), model.ReportConfig{
		DataSources: []model.SourceDescriptor{
			{Type: model.SourceFile, ID: "gone", Path: filepath.Join(dir, "missing.csv")},
		},
	})
	require.NoError(t, err)
	require.Len(t, ins.got, 1)
	assert.NotEmpty(t, ins.got[0].Error)

	// The failing source and its error survive into the persisted body.
	html, err := store.GetReportHTML(rep.ID)
	require.NoError(t, err)
	assert.Contains(t, string(html), "gone")
	assert.Contains(t, string(html), "Error:")
	assert.Contains(t, string(html), "open")
}

func TestGenerateRejectsInvalidConfig(t *testing.T) {
	g := NewGenerator(&source.Gateway{}, nil, NewRenderer(""), nil)
	_, err := g.Generate(context.Background(), model.ReportConfig{
		DataSources: []model.SourceDescriptor{{Type: "ftp"}},
	})
	require.Error(t, err)
}
