package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/marketing-reports/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "models"), filepath.Join(dir, "reports"))
	require.NoError(t, err)
	return s
}

func sampleModel(id string, created time.Time) *model.AttributionModel {
	return &model.AttributionModel{
		ID:               id,
		Type:             model.ModelLinear,
		CreatedAt:        created,
		Channels:         []string{"Search", "Email"},
		ConversionMetric: "revenue",
		Results: &model.AttributionResult{
			ModelType:              model.ModelLinear,
			AttributionPercentages: map[string]float64{"Search": 50, "Email": 50},
			AttributedValues:       map[string]float64{"Search": 450, "Email": 450},
			TotalMetric:            900,
		},
	}
}

func TestModelRoundTrip(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveModel(sampleModel("attr_1", created)))

	got, err := s.GetModel("attr_1")
	require.NoError(t, err)
	assert.Equal(t, model.ModelLinear, got.Type)
	assert.Equal(t, []string{"Search", "Email"}, got.Channels)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NotNil(t, got.Results)
	assert.Equal(t, 50.0, got.Results.AttributionPercentages["Search"])
}

func TestGetModelNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetModel("missing")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestListModelsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveModel(sampleModel("attr_old", base)))
	require.NoError(t, s.SaveModel(sampleModel("attr_new", base.Add(time.Hour))))

	list, err := s.ListModels()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "attr_new", list[0].ID)
	assert.Equal(t, "attr_old", list[1].ID)
}

func TestListModelsSkipsCorruptFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveModel(sampleModel("attr_ok", time.Now())))
	require.NoError(t, os.WriteFile(filepath.Join(s.modelsDir, "broken.json"), []byte("{nope"), 0644))

	list, err := s.ListModels()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "attr_ok", list[0].ID)
}

func TestDeleteModel(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveModel(sampleModel("attr_del", time.Now())))
	require.NoError(t, s.DeleteModel("attr_del"))

	_, err := s.GetModel("attr_del")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.True(t, eris.Is(s.DeleteModel("attr_del"), ErrNotFound))
}

func TestRejectsPathTraversalIDs(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		_, err := s.GetModel(id)
		assert.Error(t, err, "id %q", id)
	}
}

func sampleReport(id string, created time.Time) *model.Report {
	return &model.Report{
		ID:        id,
		Title:     "Monthly Performance",
		Type:      "performance",
		CreatedAt: created,
	}
}

func TestReportRoundTrip(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveReport(sampleReport("rep_1", created), []byte("<html>ok</html>")))

	got, err := s.GetReport("rep_1")
	require.NoError(t, err)
	assert.Equal(t, "Monthly Performance", got.Title)

	html, err := s.GetReportHTML("rep_1")
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(html))
}

func TestListReportsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveReport(sampleReport("rep_a", base), []byte("a")))
	require.NoError(t, s.SaveReport(sampleReport("rep_b", base.Add(time.Minute)), []byte("b")))

	list, err := s.ListReports()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "rep_b", list[0].ID)
}

func TestDeleteReportRemovesBothFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveReport(sampleReport("rep_x", time.Now()), []byte("x")))
	require.NoError(t, s.DeleteReport("rep_x"))

	_, err := s.GetReport("rep_x")
	assert.True(t, eris.Is(err, ErrNotFound))
	_, err = s.GetReportHTML("rep_x")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestDeleteReportWithOnlyMetadata(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveReport(sampleReport("rep_y", time.Now()), []byte("y")))
	require.NoError(t, os.Remove(filepath.Join(s.reportsDir, "rep_y.html")))

	// One of the two files still existed, so the delete succeeds.
	require.NoError(t, s.DeleteReport("rep_y"))
	assert.True(t, eris.Is(s.DeleteReport("rep_y"), ErrNotFound))
}

func TestSaveReportRollsBackMetadataOnBodyFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "models"), filepath.Join(dir, "reports"))
	require.NoError(t, err)

	// Shadow the html target with a directory so the rename fails.
	require.NoError(t, os.MkdirAll(filepath.Join(s.reportsDir, "rep_z.html"), 0755))

	err = s.SaveReport(sampleReport("rep_z", time.Now()), []byte("z"))
	require.Error(t, err)
	_, err = s.GetReport("rep_z")
	assert.True(t, eris.Is(err, ErrNotFound))
}
