package source

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/marketing-reports/internal/model"
)

// Gateway dispatches fetches to the configured sources. Any source may be
// nil; descriptors that need a missing source fail per-source, not
// globally.
type Gateway struct {
	BigQuery    *BigQuerySource
	Spreadsheet *SpreadsheetSource
	Database    Database
	File        *FileSource

	// Timeout bounds each individual source fetch. Zero means no bound.
	Timeout time.Duration
}

// Fetch retrieves one descriptor's data.
func (g *Gateway) Fetch(ctx context.Context, d model.SourceDescriptor) (*model.TabularResult, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	switch d.Type {
	case model.SourceBigQuery:
		if g.BigQuery == nil {
			return nil, eris.New("gateway: bigquery source not configured")
		}
		return g.BigQuery.Query(ctx, d.Query)
	case model.SourceSpreadsheet:
		if g.Spreadsheet == nil {
			return nil, eris.New("gateway: spreadsheet source not configured")
		}
		if d.Path != "" {
			return g.Spreadsheet.ReadWorkbook(d.Path, d.SheetName)
		}
		return g.Spreadsheet.SheetData(ctx, d.SpreadsheetID, d.SheetName)
	case model.SourceDatabase:
		if g.Database == nil {
			return nil, eris.New("gateway: database source not configured")
		}
		return g.Database.Query(ctx, d.Query)
	case model.SourceFile:
		if g.File == nil {
			return nil, eris.New("gateway: file source not configured")
		}
		return g.File.Read(d.Path)
	default:
		return nil, eris.Errorf("gateway: unsupported source type %q", d.Type)
	}
}

// FetchAll fetches every descriptor concurrently. Each failure is captured
// in its result entry; a partial failure never aborts the batch. Results
// keep descriptor order.
func (g *Gateway) FetchAll(ctx context.Context, descriptors []model.SourceDescriptor) []model.FetchResult {
	results := make([]model.FetchResult, len(descriptors))

	eg, ctx := errgroup.WithContext(ctx)
	for i, d := range descriptors {
		eg.Go(func() error {
			data, err := g.Fetch(ctx, d)
			if err != nil {
				zap.L().Warn("source fetch failed",
					zap.String("source", d.Key()),
					zap.String("type", string(d.Type)),
					zap.Error(err),
				)
				results[i] = model.FetchResult{Source: d.Key(), Error: err.Error()}
				return nil
			}
			results[i] = model.FetchResult{Source: d.Key(), Data: data}
			return nil
		})
	}
	// Goroutines never return errors; failures live in the results.
	_ = eg.Wait()

	return results
}
