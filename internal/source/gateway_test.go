package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/marketing-reports/internal/model"
	"github.com/sells-group/marketing-reports/pkg/bigquery"
	"github.com/sells-group/marketing-reports/pkg/sheets"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGatewayFetchFile(t *testing.T) {
	path := writeCSV(t, "channel,clicks\nSearch,120\nEmail,45\n")
	g := &Gateway{File: NewFileSource()}

	res, err := g.Fetch(context.Background(), model.SourceDescriptor{
		Type: model.SourceFile, ID: "flat", Path: path,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"channel", "clicks"}, res.Columns)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, "Search", res.Rows[0]["channel"])
	assert.Equal(t, 120.0, res.Rows[0]["clicks"])
}

func TestGatewayFetchValidatesDescriptor(t *testing.T) {
	g := &Gateway{File: NewFileSource()}
	_, err := g.Fetch(context.Background(), model.SourceDescriptor{Type: model.SourceFile})
	require.Error(t, err)
}

func TestGatewayFetchUnconfiguredSource(t *testing.T) {
	g := &Gateway{}
	_, err := g.Fetch(context.Background(), model.SourceDescriptor{
		Type: model.SourceBigQuery, Query: "SELECT 1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestFetchAllPartialFailure(t *testing.T) {
	path := writeCSV(t, "channel,revenue\nSearch,900\n")
	g := &Gateway{File: NewFileSource()}

	results := g.FetchAll(context.Background(), []model.SourceDescriptor{
		{Type: model.SourceFile, ID: "good", Path: path},
		{Type: model.SourceFile, ID: "bad", Path: filepath.Join(t.TempDir(), "missing.csv")},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "good", results[0].Source)
	require.NotNil(t, results[0].Data)
	assert.Equal(t, 1, results[0].Data.RowCount)

	assert.Equal(t, "bad", results[1].Source)
	assert.Nil(t, results[1].Data)
	assert.NotEmpty(t, results[1].Error)
}

func TestGatewayFetchBigQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(bigquery.QueryResponse{
			Schema: bigquery.Schema{Fields: []bigquery.Field{
				{Name: "channel", Type: "STRING"},
				{Name: "revenue", Type: "FLOAT"},
			}},
			Rows: []bigquery.Row{
				{F: []bigquery.Cell{{V: "Search"}, {V: "1200.5"}}},
			},
			TotalBytesProcessed: "2048",
			JobComplete:         true,
		})
	}))
	defer srv.Close()

	g := &Gateway{BigQuery: NewBigQuerySource(
		bigquery.NewClient("tok", "proj", bigquery.WithBaseURL(srv.URL)), 0)}

	res, err := g.Fetch(context.Background(), model.SourceDescriptor{
		Type: model.SourceBigQuery, Query: "SELECT channel, revenue FROM t",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"channel", "revenue"}, res.Columns)
	require.Len(t, res.Rows, 1)
	// Numeric warehouse strings are coerced.
	assert.Equal(t, 1200.5, res.Rows[0]["revenue"])
	assert.Equal(t, "Search", res.Rows[0]["channel"])
	assert.Equal(t, int64(2048), res.BytesProcessed)
}

func TestGatewayFetchSpreadsheetRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"range":"Data!A1:B3","values":[["channel","conversions"],["Search",31],["Email",12]]}`))
	}))
	defer srv.Close()

	g := &Gateway{Spreadsheet: NewSpreadsheetSource(
		sheets.NewClient("key", sheets.WithBaseURL(srv.URL)))}

	res, err := g.Fetch(context.Background(), model.SourceDescriptor{
		Type: model.SourceSpreadsheet, SpreadsheetID: "sheet-1", SheetName: "Data",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"channel", "conversions"}, res.Columns)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, float64(31), res.Rows[0]["conversions"])
}

func TestFileSourceEmptyFile(t *testing.T) {
	path := writeCSV(t, "")
	res, err := NewFileSource().Read(path)
	require.NoError(t, err)
	assert.Equal(t, 0, res.RowCount)
}

func TestFileSourceRaggedRows(t *testing.T) {
	path := writeCSV(t, "a,b,c\n1,2\n4,5,6,7\n")
	res, err := NewFileSource().Read(path)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 1.0, res.Rows[0]["a"])
	_, has := res.Rows[0]["c"]
	assert.False(t, has)
	assert.Equal(t, 6.0, res.Rows[1]["c"])
}
