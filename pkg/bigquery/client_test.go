package bigquery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects/demo-project/queries", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SELECT channel, clicks FROM t", req.Query)
		assert.False(t, req.UseLegacySQL)

		json.NewEncoder(w).Encode(QueryResponse{
			Schema: Schema{Fields: []Field{{Name: "channel", Type: "STRING"}, {Name: "clicks", Type: "INTEGER"}}},
			Rows: []Row{
				{F: []Cell{{V: "Search"}, {V: "120"}}},
				{F: []Cell{{V: "Email"}, {V: "45"}}},
			},
			TotalRows:           "2",
			TotalBytesProcessed: "1024",
			JobComplete:         true,
		})
	}))
	defer srv.Close()

	c := NewClient("tok", "demo-project", WithBaseURL(srv.URL))
	resp, err := c.Query(context.Background(), QueryRequest{Query: "SELECT channel, clicks FROM t"})
	require.NoError(t, err)

	require.Len(t, resp.Schema.Fields, 2)
	assert.Equal(t, "channel", resp.Schema.Fields[0].Name)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "Search", resp.Rows[0].F[0].V)
	assert.Equal(t, "1024", resp.TotalBytesProcessed)
}

func TestQueryErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"access denied"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("tok", "demo-project", WithBaseURL(srv.URL))
	_, err := c.Query(context.Background(), QueryRequest{Query: "SELECT 1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "access denied")
}

func TestListDatasets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/demo-project/datasets", r.URL.Path)
		w.Write([]byte(`{"datasets":[{"datasetReference":{"datasetId":"marketing","projectId":"demo-project"},"location":"US"}]}`))
	}))
	defer srv.Close()

	c := NewClient("tok", "demo-project", WithBaseURL(srv.URL))
	datasets, err := c.ListDatasets(context.Background())
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, "marketing", datasets[0].DatasetReference.DatasetID)
	assert.Equal(t, "US", datasets[0].Location)
}

func TestListTables(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/demo-project/datasets/marketing/tables", r.URL.Path)
		w.Write([]byte(`{"tables":[{"tableReference":{"tableId":"campaigns"},"type":"TABLE"}]}`))
	}))
	defer srv.Close()

	c := NewClient("tok", "demo-project", WithBaseURL(srv.URL))
	tables, err := c.ListTables(context.Background(), "marketing")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "campaigns", tables[0].TableReference.TableID)
}
