// Package artifact persists attribution models and generated reports as
// flat JSON files, one artifact per file, named by artifact id.
package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/marketing-reports/internal/model"
)

// ErrNotFound is returned when an artifact id has no file on disk.
var ErrNotFound = eris.New("artifact not found")

// Store is a file-backed artifact store. Models and reports live in
// separate directories; report HTML bodies sit next to their metadata
// under the same id.
type Store struct {
	modelsDir  string
	reportsDir string
}

// NewStore creates both artifact directories if needed.
func NewStore(modelsDir, reportsDir string) (*Store, error) {
	for _, dir := range []string{modelsDir, reportsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, eris.Wrapf(err, "artifact store: create %s", dir)
		}
	}
	return &Store{modelsDir: modelsDir, reportsDir: reportsDir}, nil
}

// SaveModel writes an attribution model artifact.
func (s *Store) SaveModel(m *model.AttributionModel) error {
	if err := validID(m.ID); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.modelsDir, m.ID+".json"), m)
}

// GetModel loads one model by id.
func (s *Store) GetModel(id string) (*model.AttributionModel, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	var m model.AttributionModel
	if err := readJSON(filepath.Join(s.modelsDir, id+".json"), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListModels returns summaries of all stored models, newest first.
// Files that fail to parse are skipped, not fatal.
func (s *Store) ListModels() ([]model.ModelSummary, error) {
	paths, err := jsonFiles(s.modelsDir)
	if err != nil {
		return nil, err
	}

	out := make([]model.ModelSummary, 0, len(paths))
	for _, p := range paths {
		var m model.AttributionModel
		if err := readJSON(p, &m); err != nil {
			zap.L().Warn("skipping unreadable model artifact", zap.String("path", p), zap.Error(err))
			continue
		}
		out = append(out, model.ModelSummary{
			ID:               m.ID,
			Type:             m.Type,
			CreatedAt:        m.CreatedAt,
			Channels:         m.Channels,
			ConversionMetric: m.ConversionMetric,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// DeleteModel removes a model artifact.
func (s *Store) DeleteModel(id string) error {
	if err := validID(id); err != nil {
		return err
	}
	return removeArtifact(filepath.Join(s.modelsDir, id+".json"))
}

// SaveReport writes report metadata and its rendered HTML body. If the
// body cannot be written the metadata is rolled back so the two files
// never go out of step.
func (s *Store) SaveReport(r *model.Report, html []byte) error {
	if err := validID(r.ID); err != nil {
		return err
	}
	metaPath := filepath.Join(s.reportsDir, r.ID+".json")
	if err := writeJSON(metaPath, r); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(s.reportsDir, r.ID+".html"), html); err != nil {
		if rmErr := os.Remove(metaPath); rmErr != nil {
			zap.L().Warn("failed to roll back report metadata", zap.String("id", r.ID), zap.Error(rmErr))
		}
		return err
	}
	return nil
}

// GetReport loads one report's metadata by id.
func (s *Store) GetReport(id string) (*model.Report, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	var r model.Report
	if err := readJSON(filepath.Join(s.reportsDir, id+".json"), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReportHTML loads one report's rendered body by id.
func (s *Store) GetReportHTML(id string) ([]byte, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.reportsDir, id+".html"))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "artifact store: read report body")
	}
	return data, nil
}

// ListReports returns all stored report metadata, newest first. Files
// that fail to parse are skipped, not fatal.
func (s *Store) ListReports() ([]model.Report, error) {
	paths, err := jsonFiles(s.reportsDir)
	if err != nil {
		return nil, err
	}

	out := make([]model.Report, 0, len(paths))
	for _, p := range paths {
		var r model.Report
		if err := readJSON(p, &r); err != nil {
			zap.L().Warn("skipping unreadable report artifact", zap.String("path", p), zap.Error(err))
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// DeleteReport removes a report's metadata and body. It succeeds when at
// least one of the two files existed.
func (s *Store) DeleteReport(id string) error {
	if err := validID(id); err != nil {
		return err
	}
	metaErr := removeArtifact(filepath.Join(s.reportsDir, id+".json"))
	if metaErr != nil && !eris.Is(metaErr, ErrNotFound) {
		return metaErr
	}
	bodyErr := removeArtifact(filepath.Join(s.reportsDir, id+".html"))
	if bodyErr != nil && !eris.Is(bodyErr, ErrNotFound) {
		return bodyErr
	}
	if metaErr != nil && bodyErr != nil {
		return ErrNotFound
	}
	return nil
}

func validID(id string) error {
	if id == "" {
		return eris.New("artifact store: empty id")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return eris.Errorf("artifact store: invalid id %q", id)
	}
	return nil
}

func jsonFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact store: read %s", dir)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "artifact store: read %s", path)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrapf(err, "artifact store: parse %s", path)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "artifact store: marshal")
	}
	return writeAtomic(path, data)
}

// writeAtomic writes via a temp file and rename so readers never see a
// partially written artifact.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return eris.Wrap(err, "artifact store: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "artifact store: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "artifact store: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "artifact store: rename temp file")
	}
	return nil
}

func removeArtifact(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "artifact store: remove %s", path)
	}
	return nil
}
