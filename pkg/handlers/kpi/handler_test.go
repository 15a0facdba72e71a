package kpi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/op-tools/kpi-atlas/pkg/models/api"
	"github.com/op-tools/kpi-atlas/pkg/models/store"
)

type mockKPIStore struct{ mock.Mock }

func (m *mockKPIStore) Create(ctx context.Context, rec store.KPIRecord) (store.KPIRecord, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(store.KPIRecord), args.Error(1)
}

func (m *mockKPIStore) EnsureWithAttrs(ctx context.Context, rec store.KPIRecord) (store.KPIRecord, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(store.KPIRecord), args.Error(1)
}

func (m *mockKPIStore) GetByName(ctx context.Context, name string) (*store.KPIRecord, error) {
	args := m.Called(ctx, name)
	rec, _ := args.Get(0).(*store.KPIRecord)
	return rec, args.Error(1)
}

func (m *mockKPIStore) List(ctx context.Context) ([]store.KPIRecord, error) {
	args := m.Called(ctx)
	recs, _ := args.Get(0).([]store.KPIRecord)
	return recs, args.Error(1)
}

type mockGoalStore struct{ mock.Mock }

func (m *mockGoalStore) Upsert(ctx context.Context, rec store.GoalRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockGoalStore) List(ctx context.Context, periodType string) ([]store.GoalRecord, error) {
	args := m.Called(ctx, periodType)
	recs, _ := args.Get(0).([]store.GoalRecord)
	return recs, args.Error(1)
}

func TestHandler_CreateKPI(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		kpis := &mockKPIStore{}
		kpis.On("Create", mock.Anything, store.KPIRecord{Name: "CTR", Unit: "%", Aggregation: "avg"}).
			Return(store.KPIRecord{ID: 3, Name: "CTR", Unit: "%", Aggregation: "avg"}, nil)
		h := NewHandler(kpis, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/kpis",
			strings.NewReader(`{"name":"CTR","unit":"%","aggregation":"avg"}`))
		rec := httptest.NewRecorder()

		h.CreateKPI(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp api.KPI
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(3), resp.ID)
		assert.Equal(t, "avg", resp.Aggregation)
	})

	t.Run("missing name", func(t *testing.T) {
		h := NewHandler(&mockKPIStore{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/kpis",
			strings.NewReader(`{"aggregation":"sum"}`))
		rec := httptest.NewRecorder()

		h.CreateKPI(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad aggregation", func(t *testing.T) {
		h := NewHandler(&mockKPIStore{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/kpis",
			strings.NewReader(`{"name":"CTR","aggregation":"median"}`))
		rec := httptest.NewRecorder()

		h.CreateKPI(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate maps to 409", func(t *testing.T) {
		kpis := &mockKPIStore{}
		kpis.On("Create", mock.Anything, mock.Anything).
			Return(store.KPIRecord{}, fmt.Errorf("duplicate key"))
		kpis.On("GetByName", mock.Anything, "Revenue").
			Return(&store.KPIRecord{ID: 1, Name: "Revenue", Aggregation: "sum"}, nil)
		h := NewHandler(kpis, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/kpis",
			strings.NewReader(`{"name":"Revenue","aggregation":"sum"}`))
		rec := httptest.NewRecorder()

		h.CreateKPI(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("storage failure maps to 500, not 409", func(t *testing.T) {
		kpis := &mockKPIStore{}
		kpis.On("Create", mock.Anything, mock.Anything).
			Return(store.KPIRecord{}, fmt.Errorf("connection refused"))
		kpis.On("GetByName", mock.Anything, "Revenue").Return(nil, nil)
		h := NewHandler(kpis, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/kpis",
			strings.NewReader(`{"name":"Revenue","aggregation":"sum"}`))
		rec := httptest.NewRecorder()

		h.CreateKPI(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_CreateGoals(t *testing.T) {
	body := `{
		"period_type": "monthly",
		"period_start": "2024-10-01",
		"period_end": "2024-10-31",
		"items": [
			{"kpi": "Revenue", "target_value": 1500000},
			{"kpi": "Leads Generated", "target_value": 120}
		]
	}`

	t.Run("success", func(t *testing.T) {
		kpis := &mockKPIStore{}
		kpis.On("EnsureWithAttrs", mock.Anything, store.KPIRecord{Name: "Revenue", Aggregation: "sum"}).
			Return(store.KPIRecord{ID: 1, Name: "Revenue"}, nil)
		kpis.On("EnsureWithAttrs", mock.Anything, store.KPIRecord{Name: "Leads Generated", Aggregation: "sum"}).
			Return(store.KPIRecord{ID: 2, Name: "Leads Generated"}, nil)
		goals := &mockGoalStore{}
		goals.On("Upsert", mock.Anything, mock.MatchedBy(func(rec store.GoalRecord) bool {
			return rec.KPIID == 1 && rec.TargetValue == 1500000
		})).Return(nil)
		goals.On("Upsert", mock.Anything, mock.MatchedBy(func(rec store.GoalRecord) bool {
			return rec.KPIID == 2 && rec.TargetValue == 120
		})).Return(nil)
		h := NewHandler(kpis, goals)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/goals", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.CreateGoals(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp api.GoalCreateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, []string{"Revenue", "Leads Generated"}, resp.KPIs)
		goals.AssertExpectations(t)
	})

	t.Run("item unit and aggregation reach the kpi definition", func(t *testing.T) {
		kpis := &mockKPIStore{}
		kpis.On("EnsureWithAttrs", mock.Anything, store.KPIRecord{Name: "CTR", Unit: "%", Aggregation: "avg"}).
			Return(store.KPIRecord{ID: 7, Name: "CTR", Unit: "%", Aggregation: "avg"}, nil)
		goals := &mockGoalStore{}
		goals.On("Upsert", mock.Anything, mock.MatchedBy(func(rec store.GoalRecord) bool {
			return rec.KPIID == 7 && rec.TargetValue == 12.5
		})).Return(nil)
		h := NewHandler(kpis, goals)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/goals",
			strings.NewReader(`{"period_type":"monthly","period_start":"2024-10-01","period_end":"2024-10-31","items":[{"kpi":"CTR","target_value":12.5,"unit":"%","aggregation":"avg"}]}`))
		rec := httptest.NewRecorder()

		h.CreateGoals(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		kpis.AssertExpectations(t)
		goals.AssertExpectations(t)
	})

	t.Run("bad item aggregation", func(t *testing.T) {
		h := NewHandler(&mockKPIStore{}, &mockGoalStore{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/goals",
			strings.NewReader(`{"period_type":"monthly","period_start":"2024-10-01","period_end":"2024-10-31","items":[{"kpi":"CTR","target_value":1,"aggregation":"median"}]}`))
		rec := httptest.NewRecorder()

		h.CreateGoals(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad period type", func(t *testing.T) {
		h := NewHandler(&mockKPIStore{}, &mockGoalStore{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/goals",
			strings.NewReader(`{"period_type":"weekly","period_start":"2024-10-01","period_end":"2024-10-31","items":[{"kpi":"Revenue","target_value":1}]}`))
		rec := httptest.NewRecorder()

		h.CreateGoals(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad date", func(t *testing.T) {
		h := NewHandler(&mockKPIStore{}, &mockGoalStore{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/goals",
			strings.NewReader(`{"period_type":"monthly","period_start":"October","period_end":"2024-10-31","items":[{"kpi":"Revenue","target_value":1}]}`))
		rec := httptest.NewRecorder()

		h.CreateGoals(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty items", func(t *testing.T) {
		h := NewHandler(&mockKPIStore{}, &mockGoalStore{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/goals",
			strings.NewReader(`{"period_type":"monthly","period_start":"2024-10-01","period_end":"2024-10-31","items":[]}`))
		rec := httptest.NewRecorder()

		h.CreateGoals(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_ListGoals(t *testing.T) {
	t.Run("filter passed through", func(t *testing.T) {
		goals := &mockGoalStore{}
		goals.On("List", mock.Anything, "monthly").Return([]store.GoalRecord{}, nil)
		h := NewHandler(&mockKPIStore{}, goals)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/goals?period_type=monthly", nil)
		rec := httptest.NewRecorder()

		h.ListGoals(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		goals.AssertExpectations(t)
	})

	t.Run("invalid filter rejected", func(t *testing.T) {
		h := NewHandler(&mockKPIStore{}, &mockGoalStore{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/goals?period_type=weekly", nil)
		rec := httptest.NewRecorder()

		h.ListGoals(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_ListKPIs(t *testing.T) {
	kpis := &mockKPIStore{}
	kpis.On("List", mock.Anything).Return([]store.KPIRecord{
		{ID: 1, Name: "Expenses", Aggregation: "sum"},
		{ID: 2, Name: "Revenue", Unit: "USD", Aggregation: "sum"},
	}, nil)
	h := NewHandler(kpis, &mockGoalStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/kpis", nil)
	rec := httptest.NewRecorder()

	h.ListKPIs(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []api.KPI
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "USD", resp[1].Unit)
}
