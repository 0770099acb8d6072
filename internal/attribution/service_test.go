package attribution

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/marketing-reports/internal/model"
)

type memModelStore struct {
	saved []*model.AttributionModel
	err   error
}

func (s *memModelStore) SaveModel(m *model.AttributionModel) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, m)
	return nil
}

func TestCreateModelPersists(t *testing.T) {
	store := &memModelStore{}
	svc := NewService(NewEngine(nil), store)
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) }

	m, err := svc.CreateModel(context.Background(), model.AttributionRequest{
		Channels:         []string{"Search", "Email"},
		ModelType:        model.ModelLinear,
		ConversionMetric: "revenue",
		Data:             []model.ConversionRecord{{"revenue": 120.0}},
	})
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	assert.Equal(t, m, store.saved[0])
	assert.Regexp(t, `^attr_20260831_100000_`, m.ID)
	assert.Equal(t, model.ModelLinear, m.Type)
	assert.Equal(t, []string{"Search", "Email"}, m.Channels)
	assert.Equal(t, 120.0, m.Results.TotalMetric)
}

func TestCreateModelValidates(t *testing.T) {
	store := &memModelStore{}
	svc := NewService(NewEngine(nil), store)

	_, err := svc.CreateModel(context.Background(), model.AttributionRequest{
		ConversionMetric: "revenue",
	})
	require.Error(t, err)
	assert.Empty(t, store.saved)
}

func TestCreateModelStoreFailure(t *testing.T) {
	store := &memModelStore{err: eris.New("disk full")}
	svc := NewService(NewEngine(nil), store)

	_, err := svc.CreateModel(context.Background(), model.AttributionRequest{
		Channels:         []string{"Search"},
		ModelType:        model.ModelFirstTouch,
		ConversionMetric: "revenue",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
