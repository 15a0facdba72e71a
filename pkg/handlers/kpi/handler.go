package kpi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/op-tools/kpi-atlas/pkg/adapters"
	"github.com/op-tools/kpi-atlas/pkg/models/api"
	"github.com/op-tools/kpi-atlas/pkg/models/domain"
	"github.com/op-tools/kpi-atlas/pkg/models/store"
)

// KPIStore is the KPI persistence the handler needs.
type KPIStore interface {
	Create(ctx context.Context, rec store.KPIRecord) (store.KPIRecord, error)
	EnsureWithAttrs(ctx context.Context, rec store.KPIRecord) (store.KPIRecord, error)
	GetByName(ctx context.Context, name string) (*store.KPIRecord, error)
	List(ctx context.Context) ([]store.KPIRecord, error)
}

// GoalStore writes one goal per KPI per period and lists them.
type GoalStore interface {
	Upsert(ctx context.Context, rec store.GoalRecord) error
	List(ctx context.Context, periodType string) ([]store.GoalRecord, error)
}

type Handler struct {
	kpis  KPIStore
	goals GoalStore
}

func NewHandler(kpis KPIStore, goals GoalStore) *Handler {
	return &Handler{kpis: kpis, goals: goals}
}

func (h *Handler) CreateKPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.KPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(ctx, w, http.StatusBadRequest, "name is required")
		return
	}
	agg, ok := domain.ParseAggregation(req.Aggregation)
	if !ok {
		writeError(ctx, w, http.StatusBadRequest, "aggregation must be sum or avg")
		return
	}

	rec, err := h.kpis.Create(ctx, store.KPIRecord{
		Name:        req.Name,
		Unit:        req.Unit,
		Aggregation: string(agg),
	})
	if err != nil {
		// Create fails on a duplicate name; re-check so a real storage
		// failure doesn't masquerade as a conflict.
		if existing, getErr := h.kpis.GetByName(ctx, req.Name); getErr == nil && existing != nil {
			writeError(ctx, w, http.StatusConflict, "kpi already exists")
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Str("kpi", req.Name).Msg("failed to create kpi")
		writeError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(ctx, w, http.StatusCreated, adapters.MapKPIDomainToAPI(adapters.MapKPIStoreToDomain(rec)))
}

func (h *Handler) ListKPIs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.kpis.List(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list kpis")
		writeError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	response := make([]api.KPI, 0, len(records))
	for _, rec := range records {
		response = append(response, adapters.MapKPIDomainToAPI(adapters.MapKPIStoreToDomain(rec)))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) CreateGoals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.GoalCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	period, ok := domain.ParsePeriodType(req.PeriodType)
	if !ok {
		writeError(ctx, w, http.StatusBadRequest, "period_type must be monthly or quarterly")
		return
	}
	start, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "period_start must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "period_end must be YYYY-MM-DD")
		return
	}
	if len(req.Items) == 0 {
		writeError(ctx, w, http.StatusBadRequest, "items must not be empty")
		return
	}

	created := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if item.KPI == "" {
			writeError(ctx, w, http.StatusBadRequest, "every item needs a kpi name")
			return
		}
		agg, ok := domain.ParseAggregation(item.Aggregation)
		if !ok {
			writeError(ctx, w, http.StatusBadRequest, "aggregation must be sum or avg")
			return
		}
		kpiRec, err := h.kpis.EnsureWithAttrs(ctx, store.KPIRecord{
			Name:        item.KPI,
			Unit:        item.Unit,
			Aggregation: string(agg),
		})
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("kpi", item.KPI).Msg("failed to register kpi for goal")
			writeError(ctx, w, http.StatusInternalServerError, "internal error")
			return
		}
		err = h.goals.Upsert(ctx, store.GoalRecord{
			KPIID:       kpiRec.ID,
			PeriodType:  string(period),
			PeriodStart: start,
			PeriodEnd:   end,
			TargetValue: item.TargetValue,
		})
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("kpi", item.KPI).Msg("failed to upsert goal")
			writeError(ctx, w, http.StatusInternalServerError, "internal error")
			return
		}
		created = append(created, kpiRec.Name)
	}

	writeJSON(ctx, w, http.StatusOK, api.GoalCreateResponse{Status: "ok", KPIs: created})
}

func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	periodType := r.URL.Query().Get("period_type")

	if periodType != "" {
		if _, ok := domain.ParsePeriodType(periodType); !ok {
			writeError(ctx, w, http.StatusBadRequest, "period_type must be monthly or quarterly")
			return
		}
	}

	records, err := h.goals.List(ctx, periodType)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list goals")
		writeError(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}

	response := make([]api.Goal, 0, len(records))
	for _, rec := range records {
		response = append(response, adapters.MapGoalStoreToAPI(rec))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, api.Error{Error: msg})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}
