package source

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/marketing-reports/internal/model"
)

// FileSource reads flat CSV files with a header row.
type FileSource struct{}

// NewFileSource creates a flat-file source.
func NewFileSource() *FileSource {
	return &FileSource{}
}

// Read parses the CSV file at path. The first row names the columns;
// numeric cells are coerced to float64.
func (s *FileSource) Read(path string) (*model.TabularResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "file source: open")
	}
	defer f.Close()

	return s.parse(f)
}

func (s *FileSource) parse(r io.Reader) (*model.TabularResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return &model.TabularResult{Columns: []string{}, Rows: []model.ConversionRecord{}}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "file source: read header")
	}

	result := &model.TabularResult{Columns: header, Rows: []model.ConversionRecord{}}
	for {
		raw, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "file source: read row")
		}

		rec := make(model.ConversionRecord, len(header))
		for i, v := range raw {
			if i >= len(header) {
				break
			}
			rec[header[i]] = coerceNumeric(v)
		}
		result.Rows = append(result.Rows, rec)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}
