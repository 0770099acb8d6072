package source

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/marketing-reports/internal/model"
	"github.com/sells-group/marketing-reports/pkg/bigquery"
)

// BigQuerySource fetches tabular data from the warehouse.
type BigQuerySource struct {
	client   bigquery.Client
	maxBytes int64
}

// NewBigQuerySource wraps a BigQuery client.
func NewBigQuerySource(client bigquery.Client, maxBytes int64) *BigQuerySource {
	return &BigQuerySource{client: client, maxBytes: maxBytes}
}

// Query runs a SQL query and normalizes the positional REST result into
// named rows. Numeric column values arrive as strings and are coerced.
func (s *BigQuerySource) Query(ctx context.Context, query string) (*model.TabularResult, error) {
	resp, err := s.client.Query(ctx, bigquery.QueryRequest{
		Query:              query,
		UseLegacySQL:       false,
		MaximumBytesBilled: s.maxBytes,
	})
	if err != nil {
		return nil, err
	}
	if !resp.JobComplete {
		return nil, eris.New("bigquery source: query did not complete")
	}

	columns := make([]string, len(resp.Schema.Fields))
	numeric := make([]bool, len(resp.Schema.Fields))
	for i, f := range resp.Schema.Fields {
		columns[i] = f.Name
		switch f.Type {
		case "INTEGER", "INT64", "FLOAT", "FLOAT64", "NUMERIC", "BIGNUMERIC":
			numeric[i] = true
		}
	}

	rows := make([]model.ConversionRecord, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		rec := make(model.ConversionRecord, len(columns))
		for i, cell := range r.F {
			if i >= len(columns) {
				break
			}
			v := normalizeValue(cell.V)
			if numeric[i] {
				v = coerceNumeric(v)
			}
			rec[columns[i]] = v
		}
		rows = append(rows, rec)
	}

	result := &model.TabularResult{
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
	}
	if resp.TotalBytesProcessed != "" {
		if b, err := strconv.ParseInt(resp.TotalBytesProcessed, 10, 64); err == nil {
			result.BytesProcessed = b
		}
	}
	return result, nil
}

// ListDatasets lists datasets in the configured project.
func (s *BigQuerySource) ListDatasets(ctx context.Context) ([]map[string]any, error) {
	datasets, err := s.client.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(datasets))
	for _, d := range datasets {
		out = append(out, map[string]any{
			"id":            d.DatasetReference.DatasetID,
			"full_id":       d.DatasetReference.ProjectID + "." + d.DatasetReference.DatasetID,
			"friendly_name": d.FriendlyName,
			"location":      d.Location,
		})
	}
	return out, nil
}

// ListTables lists tables in a dataset.
func (s *BigQuerySource) ListTables(ctx context.Context, datasetID string) ([]map[string]any, error) {
	tables, err := s.client.ListTables(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(tables))
	for _, t := range tables {
		out = append(out, map[string]any{
			"id":   t.TableReference.TableID,
			"type": t.Type,
		})
	}
	return out, nil
}
