package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/op-tools/kpi-atlas/pkg/adapters"
	"github.com/op-tools/kpi-atlas/pkg/models/api"
	"github.com/op-tools/kpi-atlas/pkg/models/domain"
	"github.com/op-tools/kpi-atlas/pkg/models/store"
)

const maxUploadBytes = 32 << 20

// Uploader runs the ingest pipeline for one uploaded file.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (domain.Report, error)
}

// Comparer produces the structured comparison for a report and goal period.
type Comparer interface {
	Compare(ctx context.Context, reportID string, period domain.PeriodType) (domain.AnalysisResult, error)
}

// Narrator renders a comparison as markdown; it never fails.
type Narrator interface {
	Summarize(ctx context.Context, result domain.AnalysisResult) domain.Narrative
}

// ReportSource is the report store slice the handler reads and the analysis
// sink it writes.
type ReportSource interface {
	Get(ctx context.Context, id string) (*store.ReportRecord, error)
	List(ctx context.Context) ([]store.ReportRecord, error)
	SaveAnalysis(ctx context.Context, rec store.AnalysisRecord) (int64, error)
}

type Handler struct {
	uploader Uploader
	comparer Comparer
	narrator Narrator
	reports  ReportSource
}

func NewHandler(uploader Uploader, comparer Comparer, narrator Narrator, reports ReportSource) *Handler {
	return &Handler{
		uploader: uploader,
		comparer: comparer,
		narrator: narrator,
		reports:  reports,
	}
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Oversized bodies are rejected outright; truncating a report would
	// silently drop rows and skew the aggregates.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(ctx, w, http.StatusRequestEntityTooLarge, "upload exceeds the 32 MiB limit")
			return
		}
		writeError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "failed to read upload")
		return
	}

	rep, err := h.uploader.Upload(ctx, header.Filename, data)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, api.UploadResponse{
		ReportID: rep.ID,
		Status:   string(rep.Status),
	})
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	period, ok := domain.ParsePeriodType(req.GoalPeriod)
	if !ok {
		writeError(ctx, w, http.StatusBadRequest, "goal_period must be monthly or quarterly")
		return
	}

	result, err := h.comparer.Compare(ctx, req.ReportID, period)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	narrative := h.narrator.Summarize(ctx, result)
	resp := adapters.MapAnalysisToAPI(result, narrative)

	comparisons, err := json.Marshal(resp.KPITable)
	if err == nil {
		_, err = h.reports.SaveAnalysis(ctx, store.AnalysisRecord{
			ReportID:    req.ReportID,
			GoalPeriod:  string(period),
			SummaryMD:   narrative.SummaryMD,
			Comparisons: comparisons,
		})
	}
	if err != nil {
		// The analysis row is derived, recomputable data; losing it should
		// not fail the request.
		zerolog.Ctx(ctx).Error().Err(err).Str("report_id", req.ReportID).Msg("failed to persist analysis")
	}

	writeJSON(ctx, w, http.StatusOK, resp)
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.reports.List(ctx)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	response := make([]api.Report, 0, len(records))
	for _, rec := range records {
		response = append(response, adapters.MapReportStoreToAPI(rec))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "reportID")

	rec, err := h.reports.Get(ctx, id)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	if rec == nil {
		writeError(ctx, w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapReportStoreToAPI(*rec))
}

func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat), errors.Is(err, domain.ErrEmptyTable):
		writeError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrReportNotFound):
		writeError(ctx, w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoGoals):
		writeError(ctx, w, http.StatusUnprocessableEntity, err.Error())
	default:
		zerolog.Ctx(ctx).Error().Err(err).Msg("request failed")
		writeError(ctx, w, http.StatusInternalServerError, "internal error")
	}
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
