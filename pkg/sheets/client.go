// Package sheets is a thin client for the Google Sheets REST API v4,
// covering metadata and range reads.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://sheets.googleapis.com/v4"

// Client performs Google Sheets API operations.
type Client interface {
	GetSpreadsheet(ctx context.Context, spreadsheetID string) (*Spreadsheet, error)
	GetValues(ctx context.Context, spreadsheetID, rangeA1 string) (*ValueRange, error)
}

// Spreadsheet is spreadsheet metadata including its sheet tabs.
type Spreadsheet struct {
	SpreadsheetID string  `json:"spreadsheetId"`
	Properties    Props   `json:"properties"`
	Sheets        []Sheet `json:"sheets"`
}

// Props holds spreadsheet-level properties.
type Props struct {
	Title string `json:"title"`
}

// Sheet is one tab of a spreadsheet.
type Sheet struct {
	Properties SheetProps `json:"properties"`
}

// SheetProps holds per-tab properties.
type SheetProps struct {
	SheetID  int64  `json:"sheetId"`
	Title    string `json:"title"`
	Index    int    `json:"index"`
	GridData struct {
		RowCount    int `json:"rowCount"`
		ColumnCount int `json:"columnCount"`
	} `json:"gridProperties"`
}

// ValueRange is the result of a range read.
type ValueRange struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
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
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Sheets API client authenticated with an API key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
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

func (c *httpClient) GetSpreadsheet(ctx context.Context, spreadsheetID string) (*Spreadsheet, error) {
	u := fmt.Sprintf("%s/spreadsheets/%s?key=%s", c.baseURL, url.PathEscape(spreadsheetID), url.QueryEscape(c.apiKey))
	var result Spreadsheet
	if err := c.get(ctx, u, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) GetValues(ctx context.Context, spreadsheetID, rangeA1 string) (*ValueRange, error) {
	u := fmt.Sprintf("%s/spreadsheets/%s/values/%s?key=%s",
		c.baseURL, url.PathEscape(spreadsheetID), url.PathEscape(rangeA1), url.QueryEscape(c.apiKey))
	var result ValueRange
	if err := c.get(ctx, u, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) get(ctx context.Context, url string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "sheets: create request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return eris.Wrap(err, "sheets: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "sheets: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("sheets: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "sheets: unmarshal response")
	}
	return nil
}
