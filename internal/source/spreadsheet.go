package source

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/marketing-reports/internal/model"
	"github.com/sells-group/marketing-reports/pkg/sheets"
)

// SpreadsheetSource fetches tabular data from Google Sheets or local XLSX
// workbooks. The first row of a sheet is treated as the header.
type SpreadsheetSource struct {
	client sheets.Client
}

// NewSpreadsheetSource wraps a Sheets client. The client may be nil when
// only local workbooks are used.
func NewSpreadsheetSource(client sheets.Client) *SpreadsheetSource {
	return &SpreadsheetSource{client: client}
}

// SheetData fetches a named sheet from a remote spreadsheet.
func (s *SpreadsheetSource) SheetData(ctx context.Context, spreadsheetID, sheetName string) (*model.TabularResult, error) {
	if s.client == nil {
		return nil, eris.New("spreadsheet source: no Sheets client configured")
	}

	vr, err := s.client.GetValues(ctx, spreadsheetID, sheetName)
	if err != nil {
		return nil, err
	}
	return tableFromGrid(vr.Values), nil
}

// ListSheets lists the tabs of a remote spreadsheet.
func (s *SpreadsheetSource) ListSheets(ctx context.Context, spreadsheetID string) ([]map[string]any, error) {
	if s.client == nil {
		return nil, eris.New("spreadsheet source: no Sheets client configured")
	}

	ss, err := s.client.GetSpreadsheet(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		out = append(out, map[string]any{
			"id":    sh.Properties.SheetID,
			"title": sh.Properties.Title,
			"index": sh.Properties.Index,
		})
	}
	return out, nil
}

// ReadWorkbook reads a sheet from a local XLSX file. An empty sheet name
// selects the first sheet.
func (s *SpreadsheetSource) ReadWorkbook(path, sheetName string) (*model.TabularResult, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "spreadsheet source: open workbook")
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		var ok bool
		sheet, ok = f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("spreadsheet source: sheet %q not found", sheetName)
		}
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("spreadsheet source: workbook has no sheets")
		}
		sheet = f.Sheets[0]
	}

	grid := make([][]any, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]any, len(row.Cells))
		for j, cell := range row.Cells {
			if f, err := cell.Float(); err == nil {
				cells[j] = f
				continue
			}
			cells[j] = cell.String()
		}
		grid = append(grid, cells)
	}
	return tableFromGrid(grid), nil
}

// tableFromGrid converts header+rows cell data into a tabular result.
// Rows shorter than the header leave the missing fields unset.
func tableFromGrid(grid [][]any) *model.TabularResult {
	if len(grid) == 0 {
		return &model.TabularResult{Columns: []string{}, Rows: []model.ConversionRecord{}}
	}

	columns := make([]string, len(grid[0]))
	for i, c := range grid[0] {
		columns[i] = cellString(c)
	}

	rows := make([]model.ConversionRecord, 0, len(grid)-1)
	for _, raw := range grid[1:] {
		rec := make(model.ConversionRecord, len(columns))
		for i, v := range raw {
			if i >= len(columns) {
				break
			}
			rec[columns[i]] = normalizeValue(v)
		}
		rows = append(rows, rec)
	}

	return &model.TabularResult{
		Columns:  columns,
		Rows:     rows,
		RowCount: len(rows),
	}
}
