// Package bigquery is a thin client for the BigQuery REST API v2,
// covering the query and metadata listing calls the reporting gateway
// needs.
package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://bigquery.googleapis.com/bigquery/v2"

// Client performs BigQuery API operations.
type Client interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
	ListDatasets(ctx context.Context) ([]Dataset, error)
	ListTables(ctx context.Context, datasetID string) ([]Table, error)
}

// QueryRequest is the body for POST /projects/{project}/queries.
type QueryRequest struct {
	Query               string `json:"query"`
	UseLegacySQL        bool   `json:"useLegacySql"`
	MaximumBytesBilled  int64  `json:"maximumBytesBilled,omitempty,string"`
	TimeoutMilliseconds int64  `json:"timeoutMs,omitempty"`
}

// QueryResponse is the jobs.query response.
type QueryResponse struct {
	Schema              Schema `json:"schema"`
	Rows                []Row  `json:"rows"`
	TotalRows           string `json:"totalRows"`
	TotalBytesProcessed string `json:"totalBytesProcessed"`
	JobComplete         bool   `json:"jobComplete"`
}

// Schema describes result columns.
type Schema struct {
	Fields []Field `json:"fields"`
}

// Field is one column of a result schema.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Row is one result row; values arrive positionally under "f".
type Row struct {
	F []Cell `json:"f"`
}

// Cell is one positional value.
type Cell struct {
	V any `json:"v"`
}

// Dataset describes a dataset in the project.
type Dataset struct {
	DatasetReference struct {
		DatasetID string `json:"datasetId"`
		ProjectID string `json:"projectId"`
	} `json:"datasetReference"`
	FriendlyName string `json:"friendlyName"`
	Location     string `json:"location"`
}

// Table describes a table in a dataset.
type Table struct {
	TableReference struct {
		TableID string `json:"tableId"`
	} `json:"tableReference"`
	Type string `json:"type"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token     string
	projectID string
	baseURL   string
	http      *http.Client
}

// NewClient creates a BigQuery API client authenticated with a bearer
// token (OAuth access token or service-account-derived token).
func NewClient(token, projectID string, opts ...Option) Client {
	c := &httpClient{
		token:     token,
		projectID: projectID,
		baseURL:   defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "bigquery: marshal request")
	}

	url := fmt.Sprintf("%s/projects/%s/queries", c.baseURL, c.projectID)
	var result QueryResponse
	if err := c.do(ctx, http.MethodPost, url, bytes.NewReader(body), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) ListDatasets(ctx context.Context) ([]Dataset, error) {
	url := fmt.Sprintf("%s/projects/%s/datasets", c.baseURL, c.projectID)
	var result struct {
		Datasets []Dataset `json:"datasets"`
	}
	if err := c.do(ctx, http.MethodGet, url, nil, &result); err != nil {
		return nil, err
	}
	return result.Datasets, nil
}

func (c *httpClient) ListTables(ctx context.Context, datasetID string) ([]Table, error) {
	url := fmt.Sprintf("%s/projects/%s/datasets/%s/tables", c.baseURL, c.projectID, datasetID)
	var result struct {
		Tables []Table `json:"tables"`
	}
	if err := c.do(ctx, http.MethodGet, url, nil, &result); err != nil {
		return nil, err
	}
	return result.Tables, nil
}

func (c *httpClient) do(ctx context.Context, method, url string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return eris.Wrap(err, "bigquery: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return eris.Wrap(err, "bigquery: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "bigquery: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("bigquery: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "bigquery: unmarshal response")
	}
	return nil
}
