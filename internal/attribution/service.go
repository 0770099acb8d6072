package attribution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/marketing-reports/internal/model"
)

// ModelStore persists attribution models.
type ModelStore interface {
	SaveModel(m *model.AttributionModel) error
}

// Service builds attribution models and persists them.
type Service struct {
	engine *Engine
	store  ModelStore
	now    func() time.Time
}

// NewService creates an attribution service.
func NewService(engine *Engine, store ModelStore) *Service {
	return &Service{engine: engine, store: store, now: time.Now}
}

// CreateModel validates the request, runs the allocation, and persists the
// resulting model. The stored model is immutable thereafter.
func (s *Service) CreateModel(ctx context.Context, req model.AttributionRequest) (*model.AttributionModel, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := s.engine.Allocate(ctx, req)

	now := s.now().UTC()
	m := &model.AttributionModel{
		ID:               NewModelID(now),
		Type:             result.ModelType,
		CreatedAt:        now,
		Channels:         req.Channels,
		ConversionMetric: req.ConversionMetric,
		Parameters:       req,
		Results:          result,
	}

	if err := s.store.SaveModel(m); err != nil {
		return nil, err
	}
	return m, nil
}

// NewModelID builds a model identifier from the creation time plus a short
// random suffix. The timestamp prefix keeps ids sortable; the suffix keeps
// two models created within the same second from colliding.
func NewModelID(t time.Time) string {
	return fmt.Sprintf("attr_%s_%s", t.Format("20060102_150405"), uuid.NewString()[:6])
}
